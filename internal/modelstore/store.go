// Package modelstore holds the in-memory model tree: a name-keyed table of
// models, the reference counter derived from it, the rename and naming rules,
// and every mutation applied to it.
//
// A node referenced by several parents is stored once; every edge is a name
// lookup. All access is serialized by a single mutex and every structural
// mutation ends with a full reference recount before the lock is released.
package modelstore

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/starford/modeltree/internal/apperr"
	"github.com/starford/modeltree/internal/models"
)

// Store owns every Model. It is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	models map[string]*models.Model
	root   string
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for soft warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New takes a copy of seed and root from the loader, checks that the handoff
// is well formed and computes reference counts.
func New(seed map[string]*models.Model, root string, opts ...Option) (*Store, error) {
	s := &Store{
		models: make(map[string]*models.Model),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Replace(seed, root); err != nil {
		return nil, err
	}
	return s, nil
}

// Replace swaps the entire contents of the store. The store is left
// untouched if seed is not well formed.
func (s *Store) Replace(seed map[string]*models.Model, root string) error {
	next := make(map[string]*models.Model, len(seed))
	for key, m := range seed {
		if m == nil {
			return fmt.Errorf("modelstore: model %q is nil", key)
		}
		if m.Name != key {
			return fmt.Errorf("modelstore: model keyed %q is named %q", key, m.Name)
		}
		next[key] = m.Clone()
	}
	if err := checkShape(next, root); err != nil {
		return err
	}
	recount(next)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.models = next
	s.root = root
	return nil
}

// Verify audits every invariant: leaf/internal duality, resolvable
// children, an existing root and reference counts that match a fresh count.
func (s *Store) Verify() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkShape(s.models, s.root); err != nil {
		return err
	}
	counts := countRefs(s.models)
	for name, m := range s.models {
		if m.RefCount != counts[name] {
			return fmt.Errorf("modelstore: %q ref_count = %d, want %d: %w",
				name, m.RefCount, counts[name], apperr.ErrInconsistent)
		}
	}
	return nil
}

// checkShape validates everything except reference counts.
func checkShape(ms map[string]*models.Model, root string) error {
	if _, ok := ms[root]; !ok {
		return fmt.Errorf("modelstore: root %q: %w", root, apperr.ErrNotFound)
	}
	for _, name := range sortedKeys(ms) {
		m := ms[name]
		if !m.Consistent() {
			return fmt.Errorf("modelstore: %q: %w", name, apperr.ErrInconsistent)
		}
		for _, child := range m.Children {
			if _, ok := ms[child]; !ok {
				return fmt.Errorf("modelstore: %q lists missing child %q: %w",
					name, child, apperr.ErrNotFound)
			}
		}
	}
	return nil
}

func sortedKeys(ms map[string]*models.Model) []string {
	keys := make([]string, 0, len(ms))
	for k := range ms {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
