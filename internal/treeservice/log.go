package treeservice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/modeltree/internal/journal"
	"github.com/starford/modeltree/internal/sse"
)

// LogMessage writes a client-supplied line to the service log and the
// journal. level is one of debug, info, warn or error; empty means info.
func (s *Service) LogMessage(ctx context.Context, level, message string) error {
	if strings.TrimSpace(message) == "" {
		return fmt.Errorf("treeservice: log: empty message")
	}
	lvl := slog.LevelInfo
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return fmt.Errorf("treeservice: log: unknown level %q", level)
		}
	}

	s.logger.Log(ctx, lvl, message, slog.String("source", "client"))
	s.record(journal.Entry{Op: "log", Detail: map[string]any{
		"level":   lvl.String(),
		"message": message,
	}})
	if s.events != nil {
		s.events.Publish(sse.Event{Type: sse.ClientLog, Data: map[string]string{
			"level":   lvl.String(),
			"message": message,
		}})
	}
	return nil
}
