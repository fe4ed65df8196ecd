package modelstore

import (
	"strconv"

	"github.com/starford/modeltree/internal/models"
)

const (
	// DuplicateSuffix is appended, possibly several times, to a requested
	// name that collides and cannot be merged.
	DuplicateSuffix = " (duplicate)"

	// NewNodeName is the base name of nodes created by AddNode.
	NewNodeName = "new node"
)

type action int

const (
	actionNone action = iota
	actionRename
	actionMerge
)

// resolution is the outcome of resolving a proposed name.
type resolution struct {
	action action
	name   string
}

// resolve decides how renaming current to proposed is applied. current must
// exist. Only a leaf may snap onto an existing leaf; any other collision
// gets a generated name so no internal node loses its children.
func resolve(ms map[string]*models.Model, current, proposed string) resolution {
	if proposed == current {
		return resolution{action: actionNone, name: current}
	}
	target, taken := ms[proposed]
	if !taken {
		return resolution{action: actionRename, name: proposed}
	}
	if ms[current].IsLeaf() && target.IsLeaf() {
		return resolution{action: actionMerge, name: proposed}
	}
	name := disambiguate(ms, current, proposed)
	if name == current {
		return resolution{action: actionNone, name: current}
	}
	return resolution{action: actionRename, name: name}
}

// disambiguate appends DuplicateSuffix to proposed until the candidate is
// free. The key being renamed counts as free.
func disambiguate(ms map[string]*models.Model, current, proposed string) string {
	candidate := proposed
	for {
		candidate += DuplicateSuffix
		if candidate == current {
			return candidate
		}
		if _, taken := ms[candidate]; !taken {
			return candidate
		}
	}
}

// newNodeName returns NewNodeName, or NewNodeName followed by the lowest
// positive integer that yields a free key.
func newNodeName(ms map[string]*models.Model) string {
	if _, taken := ms[NewNodeName]; !taken {
		return NewNodeName
	}
	for i := 1; ; i++ {
		candidate := NewNodeName + strconv.Itoa(i)
		if _, taken := ms[candidate]; !taken {
			return candidate
		}
	}
}
