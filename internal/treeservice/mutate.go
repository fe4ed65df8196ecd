package treeservice

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/modeltree/internal/journal"
	"github.com/starford/modeltree/internal/modelstore"
	"github.com/starford/modeltree/internal/sse"
)

// Rename renames oldName. The returned name is authoritative: it differs from
// newName when the requested name had to be disambiguated.
func (s *Service) Rename(ctx context.Context, oldName, newName string) (modelstore.RenameResult, error) {
	if err := ctx.Err(); err != nil {
		return modelstore.RenameResult{}, err
	}
	start := time.Now()
	res, err := s.store.Rename(oldName, newName)
	s.finish("rename", oldName, start, err, map[string]any{
		"requested": newName,
		"new_name":  res.Name,
		"merged":    res.Merged,
	})
	if err == nil && res.UpdateRequired {
		s.publish(sse.NodeEvent{Kind: sse.KindRenamed, Name: res.Name, Previous: oldName, Merged: res.Merged})
	}
	return res, err
}

// AddNode appends a new leaf under parent and returns its name.
func (s *Service) AddNode(ctx context.Context, parent string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	start := time.Now()
	name, err := s.store.AddNode(parent)
	s.finish("add_node", parent, start, err, map[string]any{"name": name})
	if err == nil {
		s.publish(sse.NodeEvent{Kind: sse.KindAdded, Name: name, Parent: parent})
	}
	return name, err
}

// DeleteNode removes name from parent's children.
func (s *Service) DeleteNode(ctx context.Context, parent, name string) (modelstore.DeleteResult, error) {
	if err := ctx.Err(); err != nil {
		return modelstore.DeleteResult{}, err
	}
	start := time.Now()
	res, err := s.store.DeleteNode(parent, name)
	s.finish("delete_node", name, start, err, map[string]any{"parent": parent, "removed": res.Removed})
	if err == nil {
		s.publish(sse.NodeEvent{Kind: sse.KindDeleted, Name: name, Parent: parent, Removed: res.Removed})
	}
	return res, err
}

// ToggleKind switches name between leaf and internal.
func (s *Service) ToggleKind(ctx context.Context, name string) (modelstore.ToggleResult, error) {
	if err := ctx.Err(); err != nil {
		return modelstore.ToggleResult{}, err
	}
	start := time.Now()
	res, err := s.store.ToggleKind(name)
	s.finish("toggle_node_kind", name, start, err, map[string]any{"leaf": res.Leaf, "orphaned": res.Orphaned})
	if err != nil {
		return res, err
	}
	if len(res.Orphaned) > 0 {
		s.logger.Warn("models left without parents",
			slog.String("toggled", name),
			slog.Any("orphaned", res.Orphaned))
	}
	leaf := res.Leaf
	s.publish(sse.NodeEvent{Kind: sse.KindToggled, Name: name, Leaf: &leaf})
	return res, nil
}

// UpdateAlgorithm replaces the algorithm of a leaf.
func (s *Service) UpdateAlgorithm(ctx context.Context, name, algorithm string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	err := s.store.UpdateAlgorithm(name, algorithm)
	s.finish("update_algorithm", name, start, err, map[string]any{"algorithm": algorithm})
	if err == nil {
		s.publish(sse.NodeEvent{Kind: sse.KindAlgorithm, Name: name})
	}
	return err
}

// finish logs, counts and journals one mutation.
func (s *Service) finish(op, target string, start time.Time, err error, detail map[string]any) {
	elapsed := time.Since(start)
	s.metrics.ObserveOp(op, err, elapsed)
	if err == nil {
		s.metrics.SetModels(s.store.Len())
	}

	entry := journal.Entry{Op: op, Target: target, Outcome: journal.OutcomeOK, Detail: detail}
	if err != nil {
		entry.Outcome = journal.OutcomeError
		entry.Detail = map[string]any{"error": err.Error()}
		s.logger.Warn("operation rejected",
			slog.String("op", op),
			slog.String("target", target),
			slog.String("error", err.Error()))
	} else {
		s.logger.Info("operation applied",
			slog.String("op", op),
			slog.String("target", target),
			slog.Duration("elapsed", elapsed))
	}
	s.record(entry)
}

func (s *Service) record(e journal.Entry) {
	if s.journal == nil {
		return
	}
	if _, err := s.journal.Record(e); err != nil {
		s.logger.Error("journal write failed", slog.String("op", e.Op), slog.String("error", err.Error()))
	}
}

func (s *Service) publish(ev sse.NodeEvent) {
	if s.events != nil {
		s.events.PublishNodeEvent(ev)
	}
}
