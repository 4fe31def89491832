// Package metric names reported values and collects prometheus metrics for the pipeline
package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "smi"

// Collectors are the prometheus metrics of a pipeline.  A nil *Collectors records nothing.
type Collectors struct {
	registry *prometheus.Registry

	generations        prometheus.Counter
	generationFailures prometheus.Counter
	generationSeconds  prometheus.Histogram
	datasetRows        prometheus.Gauge
	cacheLoads         *prometheus.CounterVec
	analysisSeconds    *prometheus.HistogramVec
	insufficient       prometheus.Counter
	requests           *prometheus.CounterVec
	requestSeconds     *prometheus.HistogramVec
}

// NewCollectors creates the pipeline metrics and registers them on a new registry
func NewCollectors() *Collectors {
	c := &Collectors{
		registry: prometheus.NewRegistry(),
		generations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Number of datasets generated and persisted",
		}),
		generationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_failures_total",
			Help:      "Number of regenerations that failed to persist",
		}),
		generationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Time taken to generate and persist a dataset",
			Buckets:   prometheus.DefBuckets,
		}),
		datasetRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_rows",
			Help:      "Number of readings in the most recently loaded dataset",
		}),
		cacheLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_loads_total",
			Help:      "Dataset loads by cache result",
		}, []string{"result"}),
		analysisSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Time taken by each analysis",
			Buckets:   prometheus.DefBuckets,
		}, []string{"analysis"}),
		insufficient: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_insufficient_total",
			Help:      "Classifier runs refused for lack of data in a class",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		requestSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	c.registry.MustRegister(
		c.generations,
		c.generationFailures,
		c.generationSeconds,
		c.datasetRows,
		c.cacheLoads,
		c.analysisSeconds,
		c.insufficient,
		c.requests,
		c.requestSeconds,
	)
	return c
}

// Registry returns the registry the collectors are registered on
func (c *Collectors) Registry() *prometheus.Registry {
	if c == nil {
		return prometheus.NewRegistry()
	}
	return c.registry
}

// Generated records a successful regeneration of rows readings
func (c *Collectors) Generated(rows int, d time.Duration) {
	if c == nil {
		return
	}
	c.generations.Inc()
	c.generationSeconds.Observe(d.Seconds())
	c.datasetRows.Set(float64(rows))
}

// GenerationFailed records a regeneration that did not persist
func (c *Collectors) GenerationFailed() {
	if c == nil {
		return
	}
	c.generationFailures.Inc()
}

// Loaded records a dataset load and whether it was served from cache
func (c *Collectors) Loaded(rows int, cached bool) {
	if c == nil {
		return
	}
	result := "miss"
	if cached {
		result = "hit"
	}
	c.cacheLoads.WithLabelValues(result).Inc()
	c.datasetRows.Set(float64(rows))
}

// Analyzed records the duration of one analysis
func (c *Collectors) Analyzed(analysis string, d time.Duration) {
	if c == nil {
		return
	}
	c.analysisSeconds.WithLabelValues(analysis).Observe(d.Seconds())
}

// Insufficient records a classifier run refused by the class guard
func (c *Collectors) Insufficient() {
	if c == nil {
		return
	}
	c.insufficient.Inc()
}

// Request records one served HTTP request
func (c *Collectors) Request(route string, code string, d time.Duration) {
	if c == nil {
		return
	}
	c.requests.WithLabelValues(route, code).Inc()
	c.requestSeconds.WithLabelValues(route).Observe(d.Seconds())
}
