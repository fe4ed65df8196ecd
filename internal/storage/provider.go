// Package storage defines read access to the directory of model files.
package storage

import "github.com/starford/modeltree/internal/models"

// Provider is the interface for model directory reads.
type Provider interface {
	// List returns metadata for every model file under dir (relative to the root).
	List(dir string) ([]models.SourceMeta, error)
	// Read returns the raw bytes of the file at path (relative to the root).
	Read(path string) ([]byte, error)
}
