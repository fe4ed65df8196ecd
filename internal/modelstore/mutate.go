package modelstore

import (
	"slices"

	"github.com/starford/modeltree/internal/apperr"
	"github.com/starford/modeltree/internal/models"
)

// RenameResult is returned by Rename. Callers must continue with Name,
// which differs from the requested name when it had to be disambiguated.
type RenameResult struct {
	Name           string `json:"new_name"`
	UpdateRequired bool   `json:"requires_update"`
	Merged         bool   `json:"merged"`
}

// DeleteResult is returned by DeleteNode.
type DeleteResult struct {
	// Removed is true when the node left the store, false when it was only
	// unlinked from the parent.
	Removed bool `json:"removed"`
}

// ToggleResult is returned by ToggleKind.
type ToggleResult struct {
	Leaf bool `json:"leaf"`
	// Orphaned lists former children that no parent references any more.
	// They stay in the store.
	Orphaned []string `json:"orphaned,omitempty"`
}

// Rename renames oldName according to the identity rules and rewrites every
// parent link that pointed at it.
func (s *Store) Rename(oldName, newName string) (RenameResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.models[oldName]
	if !ok {
		return RenameResult{}, apperr.Desync("rename", oldName, apperr.ErrNotFound)
	}
	if !m.Consistent() {
		return RenameResult{}, apperr.Desync("rename", oldName, apperr.ErrInconsistent)
	}

	res := resolve(s.models, oldName, newName)
	switch res.action {
	case actionNone:
		return RenameResult{Name: oldName}, nil
	case actionMerge:
		delete(s.models, oldName)
	case actionRename:
		delete(s.models, oldName)
		m.Name = res.name
		s.models[res.name] = m
	}

	s.relink(oldName, res.name)
	if s.root == oldName {
		s.root = res.name
	}
	recount(s.models)

	return RenameResult{
		Name:           res.name,
		UpdateRequired: true,
		Merged:         res.action == actionMerge,
	}, nil
}

// relink points every child slot naming from at to instead.
func (s *Store) relink(from, to string) {
	for _, m := range s.models {
		for i, child := range m.Children {
			if child == from {
				m.Children[i] = to
			}
		}
	}
}

// AddNode creates a fresh leaf with a generated name and appends it to
// parent's children.
func (s *Store) AddNode(parent string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.models[parent]
	if !ok {
		return "", apperr.Desync("add_node", parent, apperr.ErrNotFound)
	}
	if p.IsLeaf() {
		return "", apperr.Desync("add_node", parent, apperr.ErrKindMismatch)
	}

	name := newNodeName(s.models)
	s.models[name] = models.NewLeaf(name, models.AlgorithmUndefined)
	p.Children = append(p.Children, name)
	recount(s.models)
	return name, nil
}

// DeleteNode removes the parent→name edge (every occurrence of name in
// parent's children). When parent held all references to name the node is
// removed from the store as well. The root is never removed.
func (s *Store) DeleteNode(parent, name string) (DeleteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.models[parent]
	if !ok {
		return DeleteResult{}, apperr.Desync("delete_node", parent, apperr.ErrNotFound)
	}
	child, ok := s.models[name]
	if !ok {
		return DeleteResult{}, apperr.Desync("delete_node", name, apperr.ErrNotFound)
	}
	if p.IsLeaf() {
		return DeleteResult{}, apperr.Desync("delete_node", parent, apperr.ErrKindMismatch)
	}

	occurrences := 0
	for _, c := range p.Children {
		if c == name {
			occurrences++
		}
	}
	if occurrences == 0 {
		return DeleteResult{}, apperr.Desync("delete_node", name, apperr.ErrNoEdge)
	}

	removed := child.RefCount == occurrences && name != s.root
	p.Children = slices.DeleteFunc(p.Children, func(c string) bool { return c == name })
	if removed {
		delete(s.models, name)
	}
	recount(s.models)
	return DeleteResult{Removed: removed}, nil
}

// ToggleKind flips name between leaf and internal. A new internal node has
// no children; a new leaf gets AlgorithmUndefined.
func (s *Store) ToggleKind(name string) (ToggleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.models[name]
	if !ok {
		return ToggleResult{}, apperr.Desync("toggle_node_kind", name, apperr.ErrNotFound)
	}
	if !m.Consistent() {
		return ToggleResult{}, apperr.Desync("toggle_node_kind", name, apperr.ErrInconsistent)
	}

	if m.IsLeaf() {
		m.Algorithm = nil
		m.Children = []string{}
		recount(s.models)
		return ToggleResult{Leaf: false}, nil
	}

	former := m.Children
	alg := models.AlgorithmUndefined
	m.Children = nil
	m.Algorithm = &alg
	counts := recount(s.models)

	var orphaned []string
	seen := make(map[string]struct{}, len(former))
	for _, c := range former {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		if counts[c] == 0 && c != s.root {
			orphaned = append(orphaned, c)
		}
	}
	return ToggleResult{Leaf: true, Orphaned: orphaned}, nil
}

// UpdateAlgorithm overwrites the algorithm of a leaf. Internal nodes are
// rejected.
func (s *Store) UpdateAlgorithm(name, algorithm string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.models[name]
	if !ok {
		return apperr.Desync("update_algorithm", name, apperr.ErrNotFound)
	}
	if !m.IsLeaf() {
		return apperr.Desync("update_algorithm", name, apperr.ErrKindMismatch)
	}
	m.Algorithm = &algorithm
	return nil
}
