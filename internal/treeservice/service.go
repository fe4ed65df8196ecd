// Package treeservice coordinates the model store with the operation
// journal, change events and metrics. Every client-facing surface (HTTP, MCP,
// CLI) goes through a Service.
package treeservice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/starford/modeltree/internal/export"
	"github.com/starford/modeltree/internal/journal"
	"github.com/starford/modeltree/internal/loader"
	"github.com/starford/modeltree/internal/metrics"
	"github.com/starford/modeltree/internal/models"
	"github.com/starford/modeltree/internal/modelstore"
	"github.com/starford/modeltree/internal/sse"
	"github.com/starford/modeltree/internal/storage"
)

// ErrNoSource is returned by Reload when the service was not built from a
// model directory.
var ErrNoSource = errors.New("treeservice: no model source configured")

// Publisher receives node change events and plain broadcasts.
type Publisher interface {
	PublishNodeEvent(ev sse.NodeEvent)
	Publish(ev sse.Event)
}

// Service wraps a model store with side effects that must follow each
// successful mutation.
type Service struct {
	store   *modelstore.Store
	source  storage.Provider
	root    string
	journal journal.Recorder
	events  Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger

	// reloadMu serializes Reload; the store has its own lock.
	reloadMu    sync.Mutex
	fingerprint string
}

// Option configures a Service.
type Option func(*Service)

// WithJournal records operations in j.
func WithJournal(j journal.Recorder) Option {
	return func(s *Service) { s.journal = j }
}

// WithPublisher sends change events to p.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.events = p }
}

// WithMetrics instruments operations with m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New wraps an already populated store.
func New(store *modelstore.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics.SetModels(store.Len())
	return s
}

// Open loads the model directory behind source and builds a service on it.
// root may be empty to infer the root model.
func Open(source storage.Provider, root string, opts ...Option) (*Service, error) {
	s := &Service{
		source: source,
		root:   root,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	res, err := loader.Load(source, root, s.logger)
	if err != nil {
		return nil, err
	}
	store, err := modelstore.New(res.Models, res.Root, modelstore.WithLogger(s.logger))
	if err != nil {
		return nil, fmt.Errorf("treeservice: %w", err)
	}
	s.store = store
	s.fingerprint = res.Fingerprint
	s.metrics.SetModels(store.Len())

	if s.journal != nil {
		if _, err := s.journal.SyncSources(res.Sources); err != nil {
			s.logger.Warn("source sync failed", slog.String("error", err.Error()))
		}
	}
	return s, nil
}

// RootName returns the designated root model.
func (s *Service) RootName(_ context.Context) string {
	return s.store.RootName()
}

// GetNode returns the summary of name.
func (s *Service) GetNode(_ context.Context, name string) (models.Node, error) {
	return s.store.Node(name)
}

// Children returns the ordered child names of an internal model.
func (s *Service) Children(_ context.Context, name string) ([]string, error) {
	return s.store.Children(name)
}

// Algorithm returns the algorithm of a leaf.
func (s *Service) Algorithm(_ context.Context, name string) (string, error) {
	return s.store.Algorithm(name)
}

// RefCount returns the number of parent references to name, 0 when missing.
func (s *Service) RefCount(_ context.Context, name string) int {
	return s.store.RefCount(name)
}

// Snapshot returns a deep copy of the current tree.
func (s *Service) Snapshot(_ context.Context) modelstore.Snapshot {
	return s.store.Snapshot()
}

// Mermaid renders the current tree as a Mermaid flowchart.
func (s *Service) Mermaid(ctx context.Context) string {
	return export.Mermaid(s.Snapshot(ctx))
}

// Outline renders the current tree as a Markdown outline.
func (s *Service) Outline(ctx context.Context) string {
	return export.Outline(s.Snapshot(ctx))
}

// Fingerprint identifies the source directory contents last loaded.
func (s *Service) Fingerprint() string {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()
	return s.fingerprint
}

// Journal lists recorded operations. It returns an empty list when no
// journal is configured.
func (s *Service) Journal(_ context.Context, q journal.Query) ([]journal.Entry, error) {
	if s.journal == nil {
		return []journal.Entry{}, nil
	}
	return s.journal.List(q)
}
