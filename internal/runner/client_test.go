package runner

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newTestClient creates a Client pointing at a test HTTP server.
func newTestClient(server *httptest.Server) *Client {
	return &Client{
		httpClient: server.Client(),
		baseURL:    server.URL,
		token:      "test-token",
	}
}

func TestExecute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/workflows/execute" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected auth header: %q", got)
		}

		var req ExecuteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Shots) != 2 {
			t.Errorf("expected 2 shots, got %d", len(req.Shots))
		}
		if len(req.CharacterReferences) != 3 {
			t.Errorf("expected 3 character references, got %d", len(req.CharacterReferences))
		}

		json.NewEncoder(w).Encode(executeResponse{Success: true, ExecutionID: "exec-001"})
	}))
	defer server.Close()

	client := newTestClient(server)
	id, err := client.Execute(context.Background(), &ExecuteRequest{
		ProjectID:           "proj-1",
		SceneDescription:    "Two figures argue on a rooftop.",
		CharacterReferences: []string{"u1", "u2", "u3"},
		QualityTier:         "professional",
		Shots: []ShotPayload{
			{Slot: 1, Type: "dialogue"},
			{Slot: 2, Type: "action"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "exec-001" {
		t.Errorf("expected exec-001, got %s", id)
	}
}

func TestExecuteRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(executeResponse{Success: false, Error: "insufficient credits"})
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.Execute(context.Background(), &ExecuteRequest{ProjectID: "proj-1"})
	if err == nil {
		t.Fatal("expected error for rejected submission")
	}
}

func TestExecutionStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/workflows/exec-001" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(executionResponse{
			Success: true,
			Execution: &Execution{
				ID:          "exec-001",
				Status:      StatusRunning,
				CurrentStep: 2,
				TotalSteps:  5,
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server)
	exec, err := client.Execution(context.Background(), "exec-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exec.Status != StatusRunning {
		t.Errorf("expected running, got %s", exec.Status)
	}
	if exec.CurrentStep != 2 || exec.TotalSteps != 5 {
		t.Errorf("unexpected progress: %d/%d", exec.CurrentStep, exec.TotalSteps)
	}
}

func TestExecutionNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.Execution(context.Background(), "exec-gone")
	if !errors.Is(err, ErrExecutionNotFound) {
		t.Fatalf("expected ErrExecutionNotFound, got %v", err)
	}
}

func TestExecutionUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.Execution(context.Background(), "exec-001")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestDecide(t *testing.T) {
	var gotDecision Decision
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/workflows/exec-001/decision" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req decisionRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotDecision = req.Decision
		json.NewEncoder(w).Encode(decisionResponse{Success: true})
	}))
	defer server.Close()

	client := newTestClient(server)
	if err := client.Decide(context.Background(), "exec-001", DecisionContinue); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotDecision != DecisionContinue {
		t.Errorf("expected continue decision, got %q", gotDecision)
	}
}

func TestPartialDelivery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/workflows/exec-001/partial-delivery" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(partialDeliveryResponse{
			Success: true,
			Delivery: &PartialDeliveryResult{
				AssetURL:        "https://cdn.example.com/master.mp4",
				ChargedCredits:  40,
				RefundedCredits: 60,
				Reason:          "premium dialogue take rejected",
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server)
	pd, err := client.PartialDelivery(context.Background(), "exec-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pd.RefundedCredits != 60 {
		t.Errorf("expected 60 refunded credits, got %d", pd.RefundedCredits)
	}
}

func TestStatusPredicates(t *testing.T) {
	active := []Status{StatusQueued, StatusRunning, StatusAwaitingDecision}
	for _, s := range active {
		if !s.Active() {
			t.Errorf("%s should be active", s)
		}
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}

	terminal := []Status{StatusCompleted, StatusFailed, StatusPartialDelivery}
	for _, s := range terminal {
		if s.Active() {
			t.Errorf("%s should not be active", s)
		}
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}
