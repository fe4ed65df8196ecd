// Package models defines the domain types for modeltree.
package models

import (
	"slices"
	"time"
)

// AlgorithmUndefined is the algorithm carried by leaves that have not been
// given one yet (loader placeholders, new nodes, internal nodes toggled to
// leaves).
const AlgorithmUndefined = "algorithm undefined"

// Model is a named node. A leaf has Algorithm set and Children nil; an
// internal node has Children non-nil (possibly empty) and Algorithm nil.
// RefCount is derived and written only by the reference counter.
type Model struct {
	Name      string   `json:"name"`
	Algorithm *string  `json:"algorithm,omitempty"`
	Children  []string `json:"children,omitempty"`
	RefCount  int      `json:"ref_count"`
}

// IsLeaf reports whether m is a leaf.
func (m *Model) IsLeaf() bool { return m.Children == nil }

// Consistent reports whether exactly one of Algorithm/Children is present.
func (m *Model) Consistent() bool {
	return (m.Algorithm != nil) != (m.Children != nil)
}

// Clone returns a deep copy that keeps the nil/empty distinction of Children.
func (m *Model) Clone() *Model {
	out := &Model{Name: m.Name, RefCount: m.RefCount}
	if m.Algorithm != nil {
		a := *m.Algorithm
		out.Algorithm = &a
	}
	if m.Children != nil {
		out.Children = slices.Clone(m.Children)
		if out.Children == nil {
			out.Children = []string{}
		}
	}
	return out
}

// NewLeaf returns a leaf model with the given algorithm.
func NewLeaf(name, algorithm string) *Model {
	return &Model{Name: name, Algorithm: &algorithm}
}

// NewInternal returns an internal model owning a copy of children.
func NewInternal(name string, children ...string) *Model {
	c := make([]string, len(children))
	copy(c, children)
	return &Model{Name: name, Children: c}
}

// Node is the caller-facing summary of a model.
type Node struct {
	Name        string `json:"name"`
	RefCount    int    `json:"ref_count"`
	HasChildren bool   `json:"has_children"`
}

// SourceMeta describes one declarative model file on disk.
type SourceMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
