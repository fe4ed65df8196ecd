package modelstore

import (
	"log/slog"
	"slices"

	"github.com/starford/modeltree/internal/apperr"
	"github.com/starford/modeltree/internal/models"
)

// Snapshot is a deep copy of the store taken under the lock.
type Snapshot struct {
	Root   string
	Models map[string]*models.Model
}

// Names returns the snapshot's model names in sorted order.
func (s Snapshot) Names() []string {
	return sortedKeys(s.Models)
}

// RootName returns the designated root.
func (s *Store) RootName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root
}

// Node returns the caller-facing summary of name.
func (s *Store) Node(name string) (models.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.models[name]
	if !ok {
		return models.Node{}, apperr.Desync("get_node", name, apperr.ErrNotFound)
	}
	if !m.Consistent() {
		return models.Node{}, apperr.Desync("get_node", name, apperr.ErrInconsistent)
	}
	return models.Node{
		Name:        m.Name,
		RefCount:    m.RefCount,
		HasChildren: !m.IsLeaf(),
	}, nil
}

// Children returns a copy of name's ordered child list.
func (s *Store) Children(name string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.models[name]
	if !ok {
		return nil, apperr.Desync("get_children", name, apperr.ErrNotFound)
	}
	if m.IsLeaf() {
		return nil, apperr.Desync("get_children", name, apperr.ErrKindMismatch)
	}
	out := slices.Clone(m.Children)
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// Algorithm returns the algorithm of a leaf.
func (s *Store) Algorithm(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.models[name]
	if !ok {
		return "", apperr.Desync("get_algorithm", name, apperr.ErrNotFound)
	}
	if m.Algorithm == nil {
		return "", apperr.Desync("get_algorithm", name, apperr.ErrKindMismatch)
	}
	return *m.Algorithm, nil
}

// RefCount returns the reference count of name. A missing name yields 0 and
// a warning: callers may query a node that was deleted concurrently.
func (s *Store) RefCount(name string) int {
	n, ok := s.refCount(name)
	if !ok {
		s.logger.Warn("ref count requested for missing model", slog.String("name", name))
	}
	return n
}

func (s *Store) refCount(name string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.models[name]
	if !ok {
		return 0, false
	}
	return m.RefCount, true
}

// Has reports whether name is a key in the store.
func (s *Store) Has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.models[name]
	return ok
}

// Len returns the number of models.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.models)
}

// Snapshot returns a deep copy of every model and the root.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := Snapshot{Root: s.root, Models: make(map[string]*models.Model, len(s.models))}
	for name, m := range s.models {
		out.Models[name] = m.Clone()
	}
	return out
}
