// Package history maintains the append-only record of finished generations
// for a project: most recent first, capped at MaxItems, persisted through
// the project store so it survives reloads and Lambda recycling.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jtallis/sceneforge/internal/jobs"
	"github.com/jtallis/sceneforge/internal/store"
)

// MaxItems is the number of history entries kept per project. Older entries
// fall off the end when new generations complete.
const MaxItems = 20

// Log is the capped generation history for one project.
type Log struct {
	store     store.ProjectStore
	projectID string
}

// NewLog creates a history log for a project.
func NewLog(s store.ProjectStore, projectID string) *Log {
	return &Log{store: s, projectID: projectID}
}

// Append prepends a history item and persists the capped list. Items with no
// ID or timestamp get them assigned here so callers can hand over a bare
// snapshot.
func (l *Log) Append(ctx context.Context, item store.HistoryItem) error {
	if item.ID == "" {
		item.ID = jobs.GenerateID("hist-")
	}
	if item.CreatedAt == 0 {
		item.CreatedAt = time.Now().Unix()
	}

	items, err := l.store.GetHistory(ctx, l.projectID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	items = append([]store.HistoryItem{item}, items...)
	if len(items) > MaxItems {
		items = items[:MaxItems]
	}

	if err := l.store.PutHistory(ctx, l.projectID, items); err != nil {
		return fmt.Errorf("persist history: %w", err)
	}

	log.Debug().
		Str("projectId", l.projectID).
		Str("historyId", item.ID).
		Str("status", item.Status).
		Int("items", len(items)).
		Msg("History item appended")
	return nil
}

// Items returns the project's history, most recent first.
func (l *Log) Items(ctx context.Context) ([]store.HistoryItem, error) {
	items, err := l.store.GetHistory(ctx, l.projectID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return items, nil
}

// Item returns one history entry by id, or nil when absent.
func (l *Log) Item(ctx context.Context, id string) (*store.HistoryItem, error) {
	items, err := l.Items(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == id {
			return &items[i], nil
		}
	}
	return nil, nil
}
