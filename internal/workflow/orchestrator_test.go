package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jtallis/sceneforge/internal/resolve"
	"github.com/jtallis/sceneforge/internal/runner"
	"github.com/jtallis/sceneforge/internal/scene"
	"github.com/jtallis/sceneforge/internal/store"
)

const testExecID = "exec-test-1"

// statusReply scripts one poll response: an HTTP error code, or a 200 with
// the given execution body. The last reply repeats for all further polls.
// blankID leaves the execution id off the body.
type statusReply struct {
	code    int
	exec    runner.Execution
	blankID bool
}

// runnerStub is a scripted Generation Runner for orchestrator tests.
type runnerStub struct {
	mu        sync.Mutex
	replies   []statusReply
	polls     int
	decisions []runner.Decision
	delivery  *runner.PartialDeliveryResult
	submitted *runner.ExecuteRequest

	// afterDecision, if set, replaces the reply script once any decision
	// is received.
	afterDecision []statusReply
}

func (s *runnerStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/workflows/execute", func(w http.ResponseWriter, r *http.Request) {
		var req runner.ExecuteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.submitted = &req
		s.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"success": true, "executionId": testExecID})
	})
	mux.HandleFunc("/workflows/"+testExecID+"/decision", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Decision runner.Decision `json:"decision"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.decisions = append(s.decisions, req.Decision)
		if s.afterDecision != nil {
			s.replies = s.afterDecision
			s.polls = 0
		}
		s.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
	mux.HandleFunc("/workflows/"+testExecID+"/partial-delivery", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		delivery := s.delivery
		s.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"success": true, "delivery": delivery})
	})
	mux.HandleFunc("/workflows/"+testExecID, func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		reply := s.replies[len(s.replies)-1]
		if s.polls < len(s.replies) {
			reply = s.replies[s.polls]
		}
		s.polls++
		s.mu.Unlock()
		if reply.code != 0 {
			http.Error(w, http.StatusText(reply.code), reply.code)
			return
		}
		exec := reply.exec
		if !reply.blankID {
			exec.ID = testExecID
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true, "execution": exec})
	})
	return mux
}

func (s *runnerStub) decisionList() []runner.Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]runner.Decision(nil), s.decisions...)
}

// memStore is an in-memory ProjectStore for orchestrator tests.
type memStore struct {
	mu      sync.Mutex
	exec    map[string]string
	history map[string][]store.HistoryItem
}

func newMemStore() *memStore {
	return &memStore{exec: make(map[string]string), history: make(map[string][]store.HistoryItem)}
}

func (m *memStore) PutExecution(_ context.Context, projectID, executionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exec[projectID] = executionID
	return nil
}

func (m *memStore) GetExecution(_ context.Context, projectID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exec[projectID], nil
}

func (m *memStore) ClearExecution(_ context.Context, projectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.exec, projectID)
	return nil
}

func (m *memStore) PutHistory(_ context.Context, projectID string, items []store.HistoryItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[projectID] = append([]store.HistoryItem(nil), items...)
	return nil
}

func (m *memStore) GetHistory(_ context.Context, projectID string) ([]store.HistoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.HistoryItem(nil), m.history[projectID]...), nil
}

func (m *memStore) historyLen(projectID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history[projectID])
}

// submitRequest builds a minimal fully configured submission: one enabled
// action shot with a video model chosen.
func submitRequest() *SubmitRequest {
	st := resolve.NewState()
	st.SetVideoModel(1, "cinema-v2")
	return &SubmitRequest{
		Analysis: &scene.Analysis{
			SceneDescription: "A lone figure walks through rain.",
			Shots: []scene.Shot{
				{Slot: 1, Type: scene.ShotAction, Description: "walks through rain", Credits: 50},
			},
		},
		State:       st,
		QualityTier: scene.TierProfessional,
	}
}

func newTestOrchestrator(t *testing.T, stub *runnerStub, s store.ProjectStore, opts ...Option) *Orchestrator {
	t.Helper()
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)
	base := []Option{
		WithPollInterval(5 * time.Millisecond),
		WithMaxPollDuration(5 * time.Second),
	}
	o := New(runner.NewClient(srv.URL, "test-token"), s, "proj-1", append(base, opts...)...)
	t.Cleanup(o.Stop)
	return o
}

// waitUntil polls cond until it holds or the deadline passes.
func waitUntil(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func TestSubmitPersistsExecutionIDBeforeReturn(t *testing.T) {
	stub := &runnerStub{replies: []statusReply{{exec: runner.Execution{Status: runner.StatusRunning}}}}
	ms := newMemStore()
	o := newTestOrchestrator(t, stub, ms, WithPollInterval(time.Hour))

	id, err := o.Submit(context.Background(), submitRequest())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id != testExecID {
		t.Errorf("execution id = %q, want %q", id, testExecID)
	}

	// The persisted id must already be readable when Submit returns.
	persisted, err := ms.GetExecution(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("GetExecution: %v", err)
	}
	if persisted != testExecID {
		t.Errorf("persisted execution id = %q, want %q", persisted, testExecID)
	}

	if exec := o.Current(); exec == nil || exec.Status != runner.StatusQueued {
		t.Errorf("initial snapshot = %+v, want queued", exec)
	}
}

func TestSubmitFiltersDisabledShotsAndCapsReferences(t *testing.T) {
	stub := &runnerStub{replies: []statusReply{{exec: runner.Execution{Status: runner.StatusRunning}}}}
	o := newTestOrchestrator(t, stub, newMemStore(), WithPollInterval(time.Hour))

	req := submitRequest()
	req.Analysis.Shots = append(req.Analysis.Shots,
		scene.Shot{Slot: 2, Type: scene.ShotAction, Description: "disabled beat", Credits: 40})
	req.State.SetShotEnabled(2, false)
	req.ManualReferenceURLs = []string{
		"https://img/a.png", "https://img/b.png", "https://img/c.png", "https://img/d.png",
	}

	if _, err := o.Submit(context.Background(), req); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	stub.mu.Lock()
	payload := stub.submitted
	stub.mu.Unlock()
	if payload == nil {
		t.Fatal("runner never received a submission")
	}
	if len(payload.Shots) != 1 || payload.Shots[0].Slot != 1 {
		t.Errorf("submitted shots = %+v, want only slot 1", payload.Shots)
	}
	if len(payload.CharacterReferences) != MaxCharacterReferences {
		t.Errorf("character references = %d, want cap of %d",
			len(payload.CharacterReferences), MaxCharacterReferences)
	}
	if payload.Shots[0].VideoModel != "cinema-v2" {
		t.Errorf("video model = %q, want cinema-v2", payload.Shots[0].VideoModel)
	}
}

func TestSubmitRejectsIncompleteShots(t *testing.T) {
	stub := &runnerStub{replies: []statusReply{{exec: runner.Execution{Status: runner.StatusRunning}}}}
	o := newTestOrchestrator(t, stub, newMemStore(), WithPollInterval(time.Hour))

	req := submitRequest()
	req.State = resolve.NewState() // action shot now missing its video model

	if _, err := o.Submit(context.Background(), req); err == nil {
		t.Fatal("Submit accepted an incompletely configured shot")
	} else if !strings.Contains(err.Error(), "not fully configured") {
		t.Errorf("error = %v, want incomplete-shot message", err)
	}
}

func TestSubmitWhileActiveFails(t *testing.T) {
	stub := &runnerStub{replies: []statusReply{{exec: runner.Execution{Status: runner.StatusRunning}}}}
	o := newTestOrchestrator(t, stub, newMemStore(), WithPollInterval(time.Hour))

	if _, err := o.Submit(context.Background(), submitRequest()); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	if _, err := o.Submit(context.Background(), submitRequest()); !errors.Is(err, ErrExecutionActive) {
		t.Errorf("second Submit error = %v, want ErrExecutionActive", err)
	}
}

func TestCompletionAppendsSingleHistoryItemAndClearsExecution(t *testing.T) {
	stub := &runnerStub{replies: []statusReply{
		{exec: runner.Execution{Status: runner.StatusRunning, CurrentStep: 1, TotalSteps: 3}},
		{exec: runner.Execution{
			Status:           runner.StatusCompleted,
			TotalCreditsUsed: 170,
			FinalOutputs:     []runner.Output{{Slot: 1, URL: "https://cdn/out-1.mp4"}},
		}},
	}}
	ms := newMemStore()
	o := newTestOrchestrator(t, stub, ms)

	if _, err := o.Submit(context.Background(), submitRequest()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	waitUntil(t, func() bool { return ms.historyLen("proj-1") == 1 }, "history item")
	waitUntil(t, func() bool {
		id, _ := ms.GetExecution(context.Background(), "proj-1")
		return id == ""
	}, "execution id cleared")

	items, _ := ms.GetHistory(context.Background(), "proj-1")
	item := items[0]
	if item.Status != string(runner.StatusCompleted) {
		t.Errorf("history status = %q, want completed", item.Status)
	}
	if item.SceneDescription != "A lone figure walks through rain." {
		t.Errorf("history description = %q", item.SceneDescription)
	}
	if item.QualityTier != scene.TierProfessional {
		t.Errorf("history tier = %q, want professional", item.QualityTier)
	}
	if item.TotalCredits != 170 {
		t.Errorf("history credits = %d, want 170", item.TotalCredits)
	}
	if len(item.Outputs) != 1 || item.Outputs[0].URL != "https://cdn/out-1.mp4" {
		t.Errorf("history outputs = %+v", item.Outputs)
	}
	if item.ID == "" || item.CreatedAt == 0 {
		t.Errorf("history item missing id/timestamp: %+v", item)
	}

	// Further ticks after the terminal state must not add more items.
	time.Sleep(30 * time.Millisecond)
	if n := ms.historyLen("proj-1"); n != 1 {
		t.Errorf("history items after settle = %d, want 1", n)
	}
}

func TestTransientPollErrorRetries(t *testing.T) {
	stub := &runnerStub{replies: []statusReply{
		{code: http.StatusInternalServerError},
		{code: http.StatusBadGateway},
		{exec: runner.Execution{Status: runner.StatusCompleted}},
	}}
	ms := newMemStore()
	o := newTestOrchestrator(t, stub, ms)

	if _, err := o.Submit(context.Background(), submitRequest()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	waitUntil(t, func() bool {
		exec := o.Current()
		return exec != nil && exec.Status == runner.StatusCompleted
	}, "completion after transient errors")
	if items, _ := ms.GetHistory(context.Background(), "proj-1"); len(items) != 1 {
		t.Errorf("history items = %d, want 1", len(items))
	}
}

func TestNotFoundPollStopsAndFails(t *testing.T) {
	stub := &runnerStub{replies: []statusReply{
		{exec: runner.Execution{Status: runner.StatusRunning}},
		{code: http.StatusNotFound},
	}}
	ms := newMemStore()
	o := newTestOrchestrator(t, stub, ms)

	if _, err := o.Submit(context.Background(), submitRequest()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	waitUntil(t, func() bool {
		exec := o.Current()
		return exec != nil && exec.Status == runner.StatusFailed
	}, "local failure after 404")
	waitUntil(t, func() bool {
		id, _ := ms.GetExecution(context.Background(), "proj-1")
		return id == ""
	}, "execution id cleared")

	// No further polls once the fatal response was seen.
	stub.mu.Lock()
	seen := stub.polls
	stub.mu.Unlock()
	time.Sleep(30 * time.Millisecond)
	stub.mu.Lock()
	after := stub.polls
	stub.mu.Unlock()
	if after != seen {
		t.Errorf("polling continued after fatal 404: %d -> %d", seen, after)
	}
}

func TestContinueDecisionResumesRun(t *testing.T) {
	stub := &runnerStub{
		replies: []statusReply{
			{exec: runner.Execution{Status: runner.StatusAwaitingDecision, DecisionPrompt: "Continue without audio?"}},
		},
		afterDecision: []statusReply{
			{exec: runner.Execution{Status: runner.StatusRunning}},
		},
	}
	o := newTestOrchestrator(t, stub, newMemStore())

	if _, err := o.Submit(context.Background(), submitRequest()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitUntil(t, func() bool {
		exec := o.Current()
		return exec != nil && exec.Status == runner.StatusAwaitingDecision
	}, "awaiting_decision status")

	if err := o.Continue(context.Background()); err != nil {
		t.Fatalf("Continue: %v", err)
	}
	if got := stub.decisionList(); len(got) != 1 || got[0] != runner.DecisionContinue {
		t.Errorf("decisions sent = %v, want [continue]", got)
	}
	waitUntil(t, func() bool {
		exec := o.Current()
		return exec != nil && exec.Status == runner.StatusRunning
	}, "running status after continue")
}

func TestContinueRequiresDecisionPoint(t *testing.T) {
	stub := &runnerStub{replies: []statusReply{
		{exec: runner.Execution{Status: runner.StatusRunning}},
	}}
	o := newTestOrchestrator(t, stub, newMemStore())

	if err := o.Continue(context.Background()); !errors.Is(err, ErrNoExecution) {
		t.Errorf("Continue with nothing tracked = %v, want ErrNoExecution", err)
	}

	if _, err := o.Submit(context.Background(), submitRequest()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitUntil(t, func() bool {
		exec := o.Current()
		return exec != nil && exec.Status == runner.StatusRunning
	}, "running status")

	if err := o.Continue(context.Background()); err == nil {
		t.Error("Continue accepted outside a decision point")
	}
}

func TestCancelClearsImmediatelyWithoutHistory(t *testing.T) {
	stub := &runnerStub{replies: []statusReply{
		{exec: runner.Execution{Status: runner.StatusAwaitingDecision}},
	}}
	ms := newMemStore()
	o := newTestOrchestrator(t, stub, ms)

	if _, err := o.Submit(context.Background(), submitRequest()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitUntil(t, func() bool {
		exec := o.Current()
		return exec != nil && exec.Status == runner.StatusAwaitingDecision
	}, "awaiting_decision status")

	if err := o.Cancel(context.Background()); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	// Cleanup happens before Cancel returns; the decision delivery is
	// fire-and-forget.
	if id, _ := ms.GetExecution(context.Background(), "proj-1"); id != "" {
		t.Errorf("execution id still persisted after cancel: %q", id)
	}
	if n := ms.historyLen("proj-1"); n != 0 {
		t.Errorf("cancelled run recorded %d history items, want 0", n)
	}
	if exec := o.Current(); exec == nil || exec.Status != StatusCancelled {
		t.Errorf("status after cancel = %+v, want cancelled", exec)
	}

	waitUntil(t, func() bool {
		got := stub.decisionList()
		return len(got) == 1 && got[0] == runner.DecisionCancel
	}, "cancel decision delivery")
}

func TestCancelRequiresDecisionPoint(t *testing.T) {
	stub := &runnerStub{replies: []statusReply{
		{exec: runner.Execution{Status: runner.StatusRunning}},
	}}
	ms := newMemStore()
	o := newTestOrchestrator(t, stub, ms)

	if err := o.Cancel(context.Background()); !errors.Is(err, ErrNoExecution) {
		t.Errorf("Cancel with nothing tracked = %v, want ErrNoExecution", err)
	}

	if _, err := o.Submit(context.Background(), submitRequest()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitUntil(t, func() bool {
		exec := o.Current()
		return exec != nil && exec.Status == runner.StatusRunning
	}, "running status")

	if err := o.Cancel(context.Background()); err == nil {
		t.Error("Cancel accepted outside a decision point")
	}

	// The run is untouched: still tracked and polling, id still persisted,
	// no decision delivered to the runner.
	if exec := o.Current(); exec == nil || exec.Status != runner.StatusRunning {
		t.Errorf("status after rejected cancel = %+v, want running", exec)
	}
	if id, _ := ms.GetExecution(context.Background(), "proj-1"); id != testExecID {
		t.Errorf("persisted execution id = %q, want %q", id, testExecID)
	}
	if got := stub.decisionList(); len(got) != 0 {
		t.Errorf("decisions sent to runner = %v, want none", got)
	}
}

func TestBlankStatusIDDoesNotStopPolling(t *testing.T) {
	stub := &runnerStub{replies: []statusReply{
		{exec: runner.Execution{Status: runner.StatusRunning}, blankID: true},
		{exec: runner.Execution{Status: runner.StatusCompleted, TotalCreditsUsed: 60}},
	}}
	ms := newMemStore()
	o := newTestOrchestrator(t, stub, ms)

	if _, err := o.Submit(context.Background(), submitRequest()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	waitUntil(t, func() bool { return ms.historyLen("proj-1") == 1 }, "completion after blank-id poll")
	if exec := o.Current(); exec == nil || exec.ID != testExecID {
		t.Errorf("final snapshot = %+v, want id %q backfilled", exec, testExecID)
	}
}

func TestPartialDeliveryFetchesDetailsOnce(t *testing.T) {
	stub := &runnerStub{
		replies: []statusReply{
			{exec: runner.Execution{Status: runner.StatusRunning}},
			{exec: runner.Execution{Status: runner.StatusPartialDelivery, TotalCreditsUsed: 80}},
		},
		delivery: &runner.PartialDeliveryResult{
			AssetURL:        "https://cdn/first-frame.png",
			ChargedCredits:  80,
			RefundedCredits: 120,
			Reason:          "premium take rejected",
		},
	}
	ms := newMemStore()
	o := newTestOrchestrator(t, stub, ms)

	if _, err := o.Submit(context.Background(), submitRequest()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	waitUntil(t, func() bool { return o.PartialDeliveryDetails() != nil }, "partial delivery details")
	d := o.PartialDeliveryDetails()
	if d.AssetURL != "https://cdn/first-frame.png" || d.RefundedCredits != 120 {
		t.Errorf("delivery details = %+v", d)
	}

	waitUntil(t, func() bool { return ms.historyLen("proj-1") == 1 }, "history item")
	items, _ := ms.GetHistory(context.Background(), "proj-1")
	if items[0].Status != string(runner.StatusPartialDelivery) {
		t.Errorf("history status = %q, want partial_delivery", items[0].Status)
	}
}

func TestRecoverResumesActiveExecution(t *testing.T) {
	stub := &runnerStub{replies: []statusReply{
		{exec: runner.Execution{Status: runner.StatusRunning, CurrentStep: 2, TotalSteps: 3}},
		{exec: runner.Execution{Status: runner.StatusCompleted, TotalCreditsUsed: 90}},
	}}
	ms := newMemStore()
	ms.PutExecution(context.Background(), "proj-1", testExecID)
	o := newTestOrchestrator(t, stub, ms)

	exec, err := o.Recover(context.Background())
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if exec == nil || exec.ID != testExecID || exec.Status != runner.StatusRunning {
		t.Fatalf("recovered execution = %+v, want running %s", exec, testExecID)
	}

	waitUntil(t, func() bool { return ms.historyLen("proj-1") == 1 }, "history item after resume")
	waitUntil(t, func() bool {
		id, _ := ms.GetExecution(context.Background(), "proj-1")
		return id == ""
	}, "execution id cleared")
}

func TestRecoverClearsTerminalExecutionWithoutHistory(t *testing.T) {
	stub := &runnerStub{replies: []statusReply{
		{exec: runner.Execution{Status: runner.StatusCompleted}},
	}}
	ms := newMemStore()
	ms.PutExecution(context.Background(), "proj-1", testExecID)
	o := newTestOrchestrator(t, stub, ms)

	exec, err := o.Recover(context.Background())
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if exec != nil {
		t.Errorf("recovered terminal execution = %+v, want nil", exec)
	}
	if id, _ := ms.GetExecution(context.Background(), "proj-1"); id != "" {
		t.Errorf("stale execution id not cleared: %q", id)
	}
	// The terminal run was recorded (or not) by the session that watched
	// it finish; recovery never writes history.
	if n := ms.historyLen("proj-1"); n != 0 {
		t.Errorf("recovery appended %d history items, want 0", n)
	}
}

func TestRecoverClearsUnknownExecution(t *testing.T) {
	stub := &runnerStub{replies: []statusReply{{code: http.StatusNotFound}}}
	ms := newMemStore()
	ms.PutExecution(context.Background(), "proj-1", testExecID)
	o := newTestOrchestrator(t, stub, ms)

	exec, err := o.Recover(context.Background())
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if exec != nil {
		t.Errorf("recovered unknown execution = %+v, want nil", exec)
	}
	if id, _ := ms.GetExecution(context.Background(), "proj-1"); id != "" {
		t.Errorf("unknown execution id not cleared: %q", id)
	}
}

func TestRecoverWithNothingPersisted(t *testing.T) {
	stub := &runnerStub{replies: []statusReply{{exec: runner.Execution{Status: runner.StatusRunning}}}}
	o := newTestOrchestrator(t, stub, newMemStore())

	exec, err := o.Recover(context.Background())
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if exec != nil {
		t.Errorf("Recover = %+v, want nil with nothing persisted", exec)
	}
}

func TestMaxPollDurationFailsLocally(t *testing.T) {
	stub := &runnerStub{replies: []statusReply{{exec: runner.Execution{Status: runner.StatusRunning}}}}
	ms := newMemStore()
	o := newTestOrchestrator(t, stub, ms, WithMaxPollDuration(20*time.Millisecond))

	if _, err := o.Submit(context.Background(), submitRequest()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	waitUntil(t, func() bool {
		exec := o.Current()
		return exec != nil && exec.Status == runner.StatusFailed
	}, "local failure at poll bound")
	if exec := o.Current(); exec != nil && exec.Error == "" {
		t.Error("local failure carries no error message")
	}
}

func TestUpdateHandlerSeesStatusProgression(t *testing.T) {
	stub := &runnerStub{replies: []statusReply{
		{exec: runner.Execution{Status: runner.StatusRunning}},
		{exec: runner.Execution{Status: runner.StatusCompleted}},
	}}

	var mu sync.Mutex
	var seen []runner.Status
	o := newTestOrchestrator(t, stub, newMemStore(), WithUpdateHandler(func(exec *runner.Execution) {
		mu.Lock()
		seen = append(seen, exec.Status)
		mu.Unlock()
	}))

	if _, err := o.Submit(context.Background(), submitRequest()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	waitUntil(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0 && seen[len(seen)-1] == runner.StatusCompleted
	}, "completed notification")

	mu.Lock()
	defer mu.Unlock()
	if seen[0] != runner.StatusQueued {
		t.Errorf("first notification = %q, want queued", seen[0])
	}
	for i := 1; i < len(seen); i++ {
		if seen[i] == runner.StatusQueued {
			t.Errorf("queued reappeared after progression: %v", seen)
		}
	}
}
