package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return s
}

func TestExecutionRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	// Absent project reads as empty, not an error.
	id, err := s.GetExecution(ctx, "proj-1")
	if err != nil || id != "" {
		t.Fatalf("expected empty execution, got %q, %v", id, err)
	}

	if err := s.PutExecution(ctx, "proj-1", "exec-42"); err != nil {
		t.Fatalf("put: %v", err)
	}
	id, err = s.GetExecution(ctx, "proj-1")
	if err != nil || id != "exec-42" {
		t.Fatalf("expected exec-42, got %q, %v", id, err)
	}

	// Clearing is idempotent.
	for i := 0; i < 2; i++ {
		if err := s.ClearExecution(ctx, "proj-1"); err != nil {
			t.Fatalf("clear (%d): %v", i, err)
		}
	}
	id, _ = s.GetExecution(ctx, "proj-1")
	if id != "" {
		t.Errorf("expected cleared execution, got %q", id)
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	items := []HistoryItem{
		{ID: "hist-2", SceneDescription: "rooftop argument", Status: "completed", TotalCredits: 170},
		{ID: "hist-1", SceneDescription: "quiet kitchen", Status: "failed"},
	}
	if err := s.PutHistory(ctx, "proj-1", items); err != nil {
		t.Fatalf("put history: %v", err)
	}

	got, err := s.GetHistory(ctx, "proj-1")
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if len(got) != 2 || got[0].ID != "hist-2" {
		t.Errorf("unexpected history: %+v", got)
	}

	// History and execution id are independent records.
	if err := s.PutExecution(ctx, "proj-1", "exec-1"); err != nil {
		t.Fatalf("put execution: %v", err)
	}
	got, _ = s.GetHistory(ctx, "proj-1")
	if len(got) != 2 {
		t.Errorf("history lost after execution write: %+v", got)
	}
}

func TestProjectIsolation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.PutExecution(ctx, "proj-a", "exec-a")
	s.PutExecution(ctx, "proj-b", "exec-b")

	a, _ := s.GetExecution(ctx, "proj-a")
	b, _ := s.GetExecution(ctx, "proj-b")
	if a != "exec-a" || b != "exec-b" {
		t.Errorf("projects not isolated: %q / %q", a, b)
	}
}

func TestCorruptStateFileStartsFresh(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "proj-1.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	id, err := s.GetExecution(ctx, "proj-1")
	if err != nil || id != "" {
		t.Errorf("expected fresh state for corrupt file, got %q, %v", id, err)
	}
}

func TestInvalidProjectIDRejected(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.PutExecution(ctx, "../escape", "exec-1"); err == nil {
		t.Error("expected path-traversal project id to be rejected")
	}
	if err := s.PutExecution(ctx, "", "exec-1"); err == nil {
		t.Error("expected empty project id to be rejected")
	}
}
