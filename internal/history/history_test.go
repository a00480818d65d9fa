package history

import (
	"context"
	"fmt"
	"testing"

	"github.com/jtallis/sceneforge/internal/store"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	s, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return NewLog(s, "proj-1")
}

func TestAppendMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	l := newTestLog(t)

	for i := 1; i <= 3; i++ {
		err := l.Append(ctx, store.HistoryItem{
			ID:               fmt.Sprintf("hist-%d", i),
			SceneDescription: fmt.Sprintf("scene %d", i),
			Status:           "completed",
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	items, err := l.Items(ctx)
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].ID != "hist-3" || items[2].ID != "hist-1" {
		t.Errorf("expected most-recent-first ordering, got %v, %v, %v",
			items[0].ID, items[1].ID, items[2].ID)
	}
}

func TestCapHoldsTwentyMostRecent(t *testing.T) {
	ctx := context.Background()
	l := newTestLog(t)

	for i := 1; i <= 25; i++ {
		err := l.Append(ctx, store.HistoryItem{ID: fmt.Sprintf("hist-%d", i), Status: "completed"})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	items, err := l.Items(ctx)
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(items) != MaxItems {
		t.Fatalf("expected exactly %d items after 25 appends, got %d", MaxItems, len(items))
	}
	if items[0].ID != "hist-25" {
		t.Errorf("expected hist-25 first, got %s", items[0].ID)
	}
	if items[MaxItems-1].ID != "hist-6" {
		t.Errorf("expected hist-6 last (oldest five dropped), got %s", items[MaxItems-1].ID)
	}
}

func TestAppendAssignsIDAndTimestamp(t *testing.T) {
	ctx := context.Background()
	l := newTestLog(t)

	if err := l.Append(ctx, store.HistoryItem{Status: "failed"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	items, _ := l.Items(ctx)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].ID == "" || items[0].CreatedAt == 0 {
		t.Errorf("expected assigned id and timestamp, got %+v", items[0])
	}
}

func TestItemLookup(t *testing.T) {
	ctx := context.Background()
	l := newTestLog(t)

	l.Append(ctx, store.HistoryItem{ID: "hist-a", Status: "completed"})

	item, err := l.Item(ctx, "hist-a")
	if err != nil || item == nil {
		t.Fatalf("expected hist-a, got %v, %v", item, err)
	}

	missing, err := l.Item(ctx, "hist-z")
	if err != nil || missing != nil {
		t.Errorf("expected nil for missing item, got %v, %v", missing, err)
	}
}
