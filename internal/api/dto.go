package api

import "github.com/starford/modeltree/internal/models"

// RenameRequest is the body of POST /nodes/rename.
type RenameRequest struct {
	OldName string `json:"old_name" example:"Leaf A"`
	NewName string `json:"new_name" example:"Leaf B"`
}

// AddNodeRequest is the body of POST /nodes/add.
type AddNodeRequest struct {
	Parent string `json:"parent" example:"Root"`
}

// AddNodeResponse carries the generated node name.
type AddNodeResponse struct {
	Name string `json:"name" example:"new node"`
}

// DeleteNodeRequest is the body of POST /nodes/delete.
type DeleteNodeRequest struct {
	Parent string `json:"parent" example:"Root"`
	Name   string `json:"name" example:"Leaf A"`
}

// ToggleRequest is the body of POST /nodes/toggle.
type ToggleRequest struct {
	Name string `json:"name" example:"Leaf A"`
}

// AlgorithmRequest is the body of PUT /nodes/algorithm.
type AlgorithmRequest struct {
	Name      string `json:"name" example:"Leaf A"`
	Algorithm string `json:"algorithm" example:"weighted mean"`
}

// AlgorithmResponse is returned by GET /nodes/algorithm.
type AlgorithmResponse struct {
	Name      string `json:"name"`
	Algorithm string `json:"algorithm"`
}

// ChildrenResponse is returned by GET /nodes/children.
type ChildrenResponse struct {
	Name     string   `json:"name"`
	Children []string `json:"children"`
}

// RefCountResponse is returned by GET /nodes/refcount.
type RefCountResponse struct {
	Name     string `json:"name"`
	RefCount int    `json:"ref_count"`
}

// RootResponse is returned by GET /root.
type RootResponse struct {
	Root string `json:"root"`
}

// LogRequest is the body of POST /log.
type LogRequest struct {
	Level   string `json:"level" example:"info"`
	Message string `json:"message" example:"client connected"`
}

// SnapshotResponse is the whole tree.
type SnapshotResponse struct {
	Root   string                   `json:"root"`
	Models map[string]*models.Model `json:"models"`
}
