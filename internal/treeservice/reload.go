package treeservice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/modeltree/internal/journal"
	"github.com/starford/modeltree/internal/loader"
	"github.com/starford/modeltree/internal/sse"
)

// ReloadResult describes a completed reload.
type ReloadResult struct {
	Root        string   `json:"root"`
	Models      int      `json:"models"`
	Fingerprint string   `json:"fingerprint"`
	Changed     []string `json:"changed"`
}

// Reload re-reads the model directory and replaces the whole tree, dropping
// in-memory edits. The store is left untouched when loading fails.
func (s *Service) Reload(ctx context.Context) (ReloadResult, error) {
	if s.source == nil {
		return ReloadResult{}, ErrNoSource
	}
	if err := ctx.Err(); err != nil {
		return ReloadResult{}, err
	}

	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	res, err := loader.Load(s.source, s.root, s.logger)
	if err == nil {
		err = s.store.Replace(res.Models, res.Root)
	}
	s.metrics.ObserveReload(err)
	if err != nil {
		s.logger.Error("reload failed", slog.String("error", err.Error()))
		s.record(journal.Entry{Op: "reload", Outcome: journal.OutcomeError, Detail: map[string]any{"error": err.Error()}})
		return ReloadResult{}, fmt.Errorf("treeservice: reload: %w", err)
	}

	s.fingerprint = res.Fingerprint
	s.metrics.SetModels(len(res.Models))

	out := ReloadResult{
		Root:        res.Root,
		Models:      len(res.Models),
		Fingerprint: res.Fingerprint,
		Changed:     []string{},
	}
	if s.journal != nil {
		changed, err := s.journal.SyncSources(res.Sources)
		if err != nil {
			s.logger.Warn("source sync failed", slog.String("error", err.Error()))
		} else if changed != nil {
			out.Changed = changed
		}
	}

	s.logger.Info("models reloaded",
		slog.String("root", out.Root),
		slog.Int("models", out.Models),
		slog.Int("changed_files", len(out.Changed)))
	s.record(journal.Entry{Op: "reload", Target: out.Root, Detail: map[string]any{
		"models":      out.Models,
		"fingerprint": out.Fingerprint,
		"changed":     out.Changed,
	}})
	for _, p := range out.Changed {
		s.publish(sse.NodeEvent{Kind: sse.KindSourceChanged, Path: p})
	}
	return out, nil
}

// SourceChanged reports a change to a model file on disk. It does not touch
// the tree; clients decide whether to reload.
func (s *Service) SourceChanged(_ context.Context, kind, path string) {
	s.logger.Info("model source changed", slog.String("path", path), slog.String("kind", kind))
	s.publish(sse.NodeEvent{Kind: sse.KindSourceChanged, Path: path})
}
