// Package smi generates simulated industrial machine telemetry and analyzes it: descriptive
// statistics, correlation, control limits, a two group mean comparison and a failure classifier.
package smi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BTBurke/smi/pkg/classify"
	"github.com/BTBurke/smi/pkg/export"
	"github.com/BTBurke/smi/pkg/metric"
	"github.com/BTBurke/smi/pkg/stat"
	"github.com/BTBurke/smi/pkg/store"
	"github.com/BTBurke/smi/pkg/telemetry"
	"go.uber.org/zap"
)

// ErrNoUploader is returned by Publish when no object store is configured
var ErrNoUploader = errors.New("no export destination configured, set s3-endpoint and s3-bucket")

// Pipeline generates, persists, selects and analyzes readings
type Pipeline struct {
	cfg      Config
	store    *store.Store
	log      *zap.Logger
	metrics  *metric.Collectors
	reporter ErrorReporter
	uploader export.Uploader
}

type PipelineOption func(p *Pipeline)

func WithLogger(log *zap.Logger) PipelineOption {
	return func(p *Pipeline) {
		if log != nil {
			p.log = log
		}
	}
}

func WithCollectors(c *metric.Collectors) PipelineOption {
	return func(p *Pipeline) {
		p.metrics = c
	}
}

func WithErrorReporter(r ErrorReporter) PipelineOption {
	return func(p *Pipeline) {
		if r != nil {
			p.reporter = r
		}
	}
}

func WithUploader(u export.Uploader) PipelineOption {
	return func(p *Pipeline) {
		p.uploader = u
	}
}

// NewPipeline returns a pipeline over the dataset file named by cfg.Data
func NewPipeline(cfg Config, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		cfg:      cfg,
		log:      zap.NewNop(),
		reporter: noopReporter{},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.store = store.New(cfg.Data, store.WithLogger(p.log), store.WithCollectors(p.metrics))
	return p
}

// Config returns the configuration of the pipeline
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Store returns the dataset store
func (p *Pipeline) Store() *store.Store {
	return p.store
}

// Collectors returns the metrics of the pipeline, which may be nil
func (p *Pipeline) Collectors() *metric.Collectors {
	return p.metrics
}

// Generation describes a completed regeneration
type Generation struct {
	Path     string        `json:"path"`
	Rows     int           `json:"rows"`
	Seed     uint64        `json:"seed"`
	Start    time.Time     `json:"start"`
	End      time.Time     `json:"end"`
	Machines []string      `json:"machines"`
	Version  store.Version `json:"version"`
}

// Generate creates a new dataset from the configured seed, size and end instant and replaces the
// persisted one.  Any cached read is invalidated before Generate returns.  On failure the previous
// dataset is left in place and the error is reported.
func (p *Pipeline) Generate() (*Generation, error) {
	start := time.Now()
	d, err := telemetry.Generate(p.cfg.Generator())
	if err != nil {
		return nil, p.generationFailed(fmt.Errorf("failed to generate dataset: %w", err))
	}
	if err := p.store.Save(d); err != nil {
		return nil, p.generationFailed(fmt.Errorf("failed to persist dataset: %w", err))
	}
	v, err := p.store.Version()
	if err != nil {
		return nil, p.generationFailed(fmt.Errorf("failed to read dataset version: %w", err))
	}

	elapsed := time.Since(start)
	p.metrics.Generated(len(d), elapsed)
	g := &Generation{
		Path:     p.store.Path(),
		Rows:     len(d),
		Seed:     p.cfg.Seed,
		Start:    d[0].Timestamp,
		End:      d[len(d)-1].Timestamp,
		Machines: d.Machines(),
		Version:  v,
	}
	p.log.Info("dataset generated",
		zap.String("path", g.Path),
		zap.Int("rows", g.Rows),
		zap.Uint64("seed", g.Seed),
		zap.Time("end", g.End),
		zap.Duration("duration", elapsed),
	)
	return g, nil
}

func (p *Pipeline) generationFailed(err error) error {
	p.metrics.GenerationFailed()
	p.log.Error("regeneration failed", zap.Error(err))
	p.reporter.ReportError(err)
	return err
}

// Load returns the persisted dataset, served from cache while the file is unchanged
func (p *Pipeline) Load() (telemetry.Dataset, error) {
	return p.store.Load()
}

// Machines returns the sorted machine ids of the persisted dataset
func (p *Pipeline) Machines() ([]string, error) {
	d, err := p.Load()
	if err != nil {
		return nil, err
	}
	return d.Machines(), nil
}

// Query selects readings of one machine in an inclusive window.  A zero From or To defaults to the
// machine's first or last reading.
type Query struct {
	Machine string
	From    time.Time
	To      time.Time
}

// DefaultQuery returns the window configured for the pipeline
func (p *Pipeline) DefaultQuery() Query {
	return Query{Machine: p.cfg.Machine, From: p.cfg.From, To: p.cfg.To}
}

// Selection is the readings matched by a query together with the resolved window
type Selection struct {
	Machine  string            `json:"machine"`
	From     time.Time         `json:"from"`
	To       time.Time         `json:"to"`
	Readings telemetry.Dataset `json:"readings"`
}

// Select loads the dataset and filters it by q.  An unknown machine or a window outside the data is
// an empty selection, not an error.
func (p *Pipeline) Select(q Query) (*Selection, error) {
	d, err := p.Load()
	if err != nil {
		return nil, err
	}
	return Resolve(d, q), nil
}

// Resolve applies q to d, defaulting the window to the machine's observed span
func Resolve(d telemetry.Dataset, q Query) *Selection {
	from, to := q.From, q.To
	if start, end, ok := d.Span(q.Machine); ok {
		if from.IsZero() {
			from = start
		}
		if to.IsZero() {
			to = end
		}
	}
	sel := &Selection{Machine: q.Machine, From: from, To: to}
	if from.IsZero() || to.IsZero() {
		sel.Readings = telemetry.Dataset{}
		return sel
	}
	sel.Readings = d.Filter(q.Machine, from, to)
	return sel
}

func (p *Pipeline) timed(analysis string) func() {
	start := time.Now()
	return func() {
		p.metrics.Analyzed(analysis, time.Since(start))
	}
}

// Describe summarizes every signal of the selection
func (p *Pipeline) Describe(sel *Selection) []stat.Summary {
	defer p.timed("describe")()
	return stat.Describe(sel.Readings, telemetry.Signals)
}

// Correlate computes the Pearson correlation matrix of the signals
func (p *Pipeline) Correlate(sel *Selection) stat.Matrix {
	defer p.timed("correlation")()
	return stat.Correlate(sel.Readings, telemetry.Signals)
}

// Control computes three sigma control limits of column
func (p *Pipeline) Control(sel *Selection, column telemetry.Column) stat.Control {
	defer p.timed("control")()
	return stat.ControlLimits(sel.Readings, column)
}

// Compare runs Welch's t-test of column between operating and failed readings
func (p *Pipeline) Compare(sel *Selection, column telemetry.Column) stat.TTest {
	defer p.timed("ttest")()
	return stat.WelchTest(sel.Readings, column)
}

// Groups summarizes column per status
func (p *Pipeline) Groups(sel *Selection, column telemetry.Column) []stat.Group {
	defer p.timed("groups")()
	return stat.GroupSummary(sel.Readings, column)
}

// Indicators returns the operational indicators of the selection
func (p *Pipeline) Indicators(sel *Selection) stat.Indicators {
	defer p.timed("indicators")()
	return stat.OperatingIndicators(sel.Readings)
}

// Classify trains the failure model on all signals.  A selection without enough readings of both
// classes returns classify.InsufficientData.
func (p *Pipeline) Classify(sel *Selection) (*classify.Result, error) {
	defer p.timed("classify")()
	opts := p.cfg.Classifier()
	opts.Logger = p.log
	res, err := classify.Train(sel.Readings, telemetry.Signals, opts)
	var insufficient classify.InsufficientData
	if errors.As(err, &insufficient) {
		p.metrics.Insufficient()
	}
	return res, err
}

// Analysis is every analysis of one selection
type Analysis struct {
	Machine     string                     `json:"machine"`
	From        time.Time                  `json:"from"`
	To          time.Time                  `json:"to"`
	Rows        int                        `json:"rows"`
	Column      telemetry.Column           `json:"column"`
	Indicators  stat.Indicators            `json:"indicators"`
	Summary     []stat.Summary             `json:"summary"`
	Correlation stat.Matrix                `json:"correlation"`
	Control     stat.Control               `json:"control"`
	TTest       stat.TTest                 `json:"ttest"`
	Verdict     string                     `json:"verdict"`
	Groups      []stat.Group               `json:"groups"`
	Classifier  *classify.Result           `json:"classifier,omitempty"`
	Guard       *classify.InsufficientData `json:"insufficient_data,omitempty"`
}

// Analyze runs every analysis on the selection.  The classifier guard is part of the result rather
// than an error so the other analyses are still reported.
func (p *Pipeline) Analyze(sel *Selection, column telemetry.Column) (*Analysis, error) {
	a := &Analysis{
		Machine:     sel.Machine,
		From:        sel.From,
		To:          sel.To,
		Rows:        len(sel.Readings),
		Column:      column,
		Indicators:  p.Indicators(sel),
		Summary:     p.Describe(sel),
		Correlation: p.Correlate(sel),
		Control:     p.Control(sel, column),
		TTest:       p.Compare(sel, column),
		Groups:      p.Groups(sel, column),
	}
	a.Verdict = a.TTest.Verdict()
	res, err := p.Classify(sel)
	var insufficient classify.InsufficientData
	switch {
	case errors.As(err, &insufficient):
		a.Guard = &insufficient
	case err != nil:
		return nil, fmt.Errorf("failed to train failure model: %w", err)
	default:
		a.Classifier = res
	}
	return a, nil
}

// Publish uploads the selection as readings_<machine>.csv to the configured object store
func (p *Pipeline) Publish(ctx context.Context, sel *Selection) (string, error) {
	if p.uploader == nil {
		return "", ErrNoUploader
	}
	name, err := export.Publish(ctx, p.uploader, sel.Machine, sel.Readings)
	if err != nil {
		return "", err
	}
	p.log.Info("selection exported", zap.String("name", name), zap.String("machine", sel.Machine), zap.Int("rows", len(sel.Readings)))
	return name, nil
}
