// Package store persists datasets as CSV files and caches the loaded dataset by file version
package store

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BTBurke/smi/pkg/metric"
	"github.com/BTBurke/smi/pkg/telemetry"
	"go.uber.org/zap"
)

// Version identifies one persisted state of the dataset file.  Generation counts saves and
// invalidations made through this store, the file attributes catch rewrites by anyone else.
type Version struct {
	Generation uint64    `json:"generation"`
	ModTime    time.Time `json:"mod_time"`
	Size       int64     `json:"size"`
}

// Store is a dataset file with a cached copy of its last loaded version.  It is safe for concurrent
// use.  Loaded datasets are shared and must not be modified.
type Store struct {
	path    string
	log     *zap.Logger
	metrics *metric.Collectors

	mu         sync.Mutex
	generation uint64
	cached     telemetry.Dataset
	version    Version
	valid      bool
}

// Option configures a store
type Option func(s *Store)

// WithLogger sets the logger
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// WithCollectors records cache hits and misses
func WithCollectors(c *metric.Collectors) Option {
	return func(s *Store) {
		s.metrics = c
	}
}

// New returns a store for the dataset file at path
func New(path string, opts ...Option) *Store {
	s := &Store{path: path, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the dataset file path
func (s *Store) Path() string {
	return s.path
}

// Version returns the current version of the dataset file
func (s *Store) Version() (Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stat()
}

func (s *Store) stat() (Version, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return Version{}, err
	}
	return Version{Generation: s.generation, ModTime: info.ModTime(), Size: info.Size()}, nil
}

// Invalidate drops the cached dataset so the next Load reads the file
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidate()
}

func (s *Store) invalidate() {
	s.generation++
	s.cached = nil
	s.valid = false
}

// Load returns the persisted dataset.  The cached copy is returned while the file version is
// unchanged.
func (s *Store) Load() (telemetry.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat dataset %s: %w", s.path, err)
	}
	if s.valid && v == s.version {
		s.metrics.Loaded(len(s.cached), true)
		return s.cached, nil
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %s: %w", s.path, err)
	}
	defer f.Close()
	d, err := ReadCSV(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", s.path, err)
	}

	s.cached = d
	s.version = v
	s.valid = true
	s.metrics.Loaded(len(d), false)
	s.log.Debug("dataset loaded", zap.String("path", s.path), zap.Int("rows", len(d)), zap.Uint64("generation", v.Generation))
	return d, nil
}

// Save replaces the dataset file with d.  The file is written to a temporary file in the same
// directory and renamed over the old one, so a failed save leaves the previous file intact.  The
// cache is invalidated before Save returns.
func (s *Store) Save(d telemetry.Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeAtomic(s.path, d); err != nil {
		return err
	}
	s.invalidate()
	s.log.Debug("dataset saved", zap.String("path", s.path), zap.Int("rows", len(d)), zap.Uint64("generation", s.generation))
	return nil
}

func writeAtomic(path string, d telemetry.Dataset) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	if err := WriteCSV(w, d); err != nil {
		return fmt.Errorf("failed to encode dataset: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync dataset: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("failed to set dataset permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close dataset: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace dataset %s: %w", path, err)
	}
	return nil
}
