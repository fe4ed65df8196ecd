package journal

import "github.com/starford/modeltree/internal/models"

// Recorder is the journal surface the tree service depends on.
type Recorder interface {
	Record(e Entry) (Entry, error)
	List(q Query) ([]Entry, error)
	SyncSources(metas []models.SourceMeta) ([]string, error)
	Close() error
}

// Verify *DB satisfies Recorder at compile time.
var _ Recorder = (*DB)(nil)
