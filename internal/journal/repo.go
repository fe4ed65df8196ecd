package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/starford/modeltree/internal/models"
)

// Outcomes stored with each entry.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Entry is one journaled operation.
type Entry struct {
	ID        string         `json:"id"`
	Seq       int64          `json:"seq"`
	Op        string         `json:"op"`
	Target    string         `json:"target"`
	Outcome   string         `json:"outcome"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Query filters List. Zero values mean "no filter".
type Query struct {
	Op     string
	Target string
	Limit  int
	Offset int
}

// Record inserts e, assigning its ID, sequence number and timestamp.
func (db *DB) Record(e Entry) (Entry, error) {
	if e.Op == "" {
		return Entry{}, fmt.Errorf("journal: record: empty op")
	}
	if e.Outcome == "" {
		e.Outcome = OutcomeOK
	}
	e.ID = uuid.NewString()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	detail, err := json.Marshal(e.Detail)
	if err != nil {
		return Entry{}, fmt.Errorf("journal: marshal detail: %w", err)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return Entry{}, fmt.Errorf("journal: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if err := tx.QueryRow(`SELECT COALESCE(MAX(seq), 0) + 1 FROM operations`).Scan(&e.Seq); err != nil {
		return Entry{}, fmt.Errorf("journal: next seq: %w", err)
	}
	_, err = tx.Exec(`
		INSERT INTO operations (id, seq, op, target, outcome, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Seq, e.Op, e.Target, e.Outcome, string(detail), e.CreatedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("journal: insert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("journal: commit: %w", err)
	}
	return e, nil
}

// List returns entries newest first.
func (db *DB) List(q Query) ([]Entry, error) {
	if q.Limit <= 0 || q.Limit > 500 {
		q.Limit = 50
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	where := "WHERE 1=1"
	var args []any
	if q.Op != "" {
		where += " AND op = ?"
		args = append(args, q.Op)
	}
	if q.Target != "" {
		where += " AND target = ?"
		args = append(args, q.Target)
	}
	args = append(args, q.Limit, q.Offset)

	rows, err := db.conn.Query(`
		SELECT id, seq, op, target, outcome, detail, created_at
		FROM operations `+where+`
		ORDER BY seq DESC
		LIMIT ? OFFSET ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var (
			e      Entry
			detail string
		)
		if err := rows.Scan(&e.ID, &e.Seq, &e.Op, &e.Target, &e.Outcome, &detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		if detail != "" && detail != "null" {
			_ = json.Unmarshal([]byte(detail), &e.Detail)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SyncSources stores the checksums of the given model files and returns the
// paths that were added, changed or removed since the previous sync, sorted.
func (db *DB) SyncSources(metas []models.SourceMeta) ([]string, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("journal: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	known, err := allChecksums(tx)
	if err != nil {
		return nil, err
	}

	var changed []string
	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}
		if known[m.Path] == m.Checksum {
			continue
		}
		changed = append(changed, m.Path)
		updated := m.UpdatedAt
		if updated.IsZero() {
			updated = time.Now().UTC()
		}
		_, err := tx.Exec(`
			INSERT INTO sources (path, checksum, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET
				checksum   = excluded.checksum,
				updated_at = excluded.updated_at
		`, m.Path, m.Checksum, updated)
		if err != nil {
			return nil, fmt.Errorf("journal: upsert source: %w", err)
		}
	}
	for p := range known {
		if _, ok := disk[p]; ok {
			continue
		}
		if _, err := tx.Exec(`DELETE FROM sources WHERE path = ?`, p); err != nil {
			return nil, fmt.Errorf("journal: delete source: %w", err)
		}
		changed = append(changed, p)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("journal: commit: %w", err)
	}
	sort.Strings(changed)
	return changed, nil
}

func allChecksums(tx *sql.Tx) (map[string]string, error) {
	rows, err := tx.Query(`SELECT path, checksum FROM sources`)
	if err != nil {
		return nil, fmt.Errorf("journal: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
