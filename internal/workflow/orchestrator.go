// Package workflow owns the generation execution lifecycle: submit the job
// to the Generation Runner, persist the execution id for crash recovery,
// poll status on a fixed interval, surface mid-flight decision points, and
// handle terminal states exactly once (history append + persisted-id
// cleanup).
//
// State machine:
//
//	queued → running → {awaiting_decision, partial_delivery, completed, failed}
//	awaiting_decision --continue--> running
//	awaiting_decision --cancel-->   cancelled (terminal locally, no charge)
//
// Completed and failed are terminal; partial_delivery triggers a one-shot
// fetch of the delivered-asset and refund details and is then terminal.
//
// One orchestrator tracks at most one execution at a time. Polling runs in a
// single goroutine with one in-flight request per tick, so status responses
// apply in order; a monotonic sequence guard protects against stale applies
// if that ever changes.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jtallis/sceneforge/internal/history"
	"github.com/jtallis/sceneforge/internal/metrics"
	"github.com/jtallis/sceneforge/internal/resolve"
	"github.com/jtallis/sceneforge/internal/runner"
	"github.com/jtallis/sceneforge/internal/scene"
	"github.com/jtallis/sceneforge/internal/store"
)

const (
	// DefaultPollInterval is the fixed delay between status polls.
	DefaultPollInterval = 3 * time.Second

	// DefaultMaxPollDuration bounds how long a single execution is
	// polled before being failed locally. The source behavior polled
	// forever; the bound is a hardening guard against a runner that
	// never reaches a terminal state.
	DefaultMaxPollDuration = 30 * time.Minute

	// MaxCharacterReferences is the cap on character reference URLs
	// sent with a submission.
	MaxCharacterReferences = 3
)

// Local terminal status for operator-cancelled runs. The runner never
// reports it; it exists only in orchestrator snapshots and history.
const StatusCancelled runner.Status = "cancelled"

// ErrExecutionActive is returned by Submit while an execution is already
// being tracked.
var ErrExecutionActive = errors.New("an execution is already in progress")

// ErrNoExecution is returned by decision methods when nothing is tracked.
var ErrNoExecution = errors.New("no execution in progress")

// SubmitRequest carries everything needed to build the runner payload.
type SubmitRequest struct {
	WorkflowIDs []string
	Analysis    *scene.Analysis
	State       *resolve.State
	QualityTier scene.QualityTier
	AspectRatio string
	Duration    int

	// ManualReferenceURLs are operator-uploaded character images merged
	// with the analysis-provided headshot URLs, capped at
	// MaxCharacterReferences in total.
	ManualReferenceURLs []string
}

// Orchestrator drives one project's generation workflow.
type Orchestrator struct {
	runner    *runner.Client
	store     store.ProjectStore
	history   *history.Log
	projectID string

	pollInterval    time.Duration
	maxPollDuration time.Duration

	// onUpdate, if set, receives every accepted status snapshot plus the
	// synthetic cancelled snapshot. Called from the poll goroutine.
	onUpdate func(*runner.Execution)

	mu          sync.Mutex
	executionID string
	current     *runner.Execution

	// submission details echoed into the history item on finalize
	sceneDescription string
	qualityTier      scene.QualityTier
	seq         int64 // last applied poll sequence
	nextSeq     int64
	finalized   bool
	stopPoll    context.CancelFunc
	delivery    *runner.PartialDeliveryResult
	cancelSent  bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPollInterval overrides the fixed poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(o *Orchestrator) { o.pollInterval = d }
}

// WithMaxPollDuration overrides the poll-duration safety bound.
func WithMaxPollDuration(d time.Duration) Option {
	return func(o *Orchestrator) { o.maxPollDuration = d }
}

// WithUpdateHandler registers the status fan-out callback.
func WithUpdateHandler(fn func(*runner.Execution)) Option {
	return func(o *Orchestrator) { o.onUpdate = fn }
}

// New creates an orchestrator for one project.
func New(client *runner.Client, s store.ProjectStore, projectID string, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		runner:          client,
		store:           s,
		history:         history.NewLog(s, projectID),
		projectID:       projectID,
		pollInterval:    DefaultPollInterval,
		maxPollDuration: DefaultMaxPollDuration,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Current returns a copy of the latest execution snapshot, or nil when
// nothing is tracked.
func (o *Orchestrator) Current() *runner.Execution {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil {
		return nil
	}
	snapshot := *o.current
	return &snapshot
}

// PartialDeliveryDetails returns the fetched partial-delivery breakdown, or
// nil when the execution did not end in partial delivery.
func (o *Orchestrator) PartialDeliveryDetails() *runner.PartialDeliveryResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.delivery == nil {
		return nil
	}
	d := *o.delivery
	return &d
}

// History returns the project's generation history log.
func (o *Orchestrator) History() *history.Log {
	return o.history
}

// Submit builds the runner payload from the configured scene, submits it,
// persists the returned execution id, and starts polling.
//
// The execution id is persisted before Submit returns so that a process
// restart during the run can recover it. Submission failures are reported
// to the caller and never retried.
func (o *Orchestrator) Submit(ctx context.Context, req *SubmitRequest) (string, error) {
	o.mu.Lock()
	if o.executionID != "" {
		o.mu.Unlock()
		return "", ErrExecutionActive
	}
	o.mu.Unlock()

	payload, err := BuildExecuteRequest(o.projectID, req)
	if err != nil {
		return "", err
	}

	execID, err := o.runner.Execute(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("submit generation: %w", err)
	}

	// Persist before handing control back: a reload between here and the
	// first poll must still find the execution.
	if err := o.store.PutExecution(ctx, o.projectID, execID); err != nil {
		log.Error().Err(err).Str("executionId", execID).
			Msg("Execution submitted but id could not be persisted — reload recovery unavailable")
	}

	o.mu.Lock()
	o.sceneDescription = payload.SceneDescription
	o.qualityTier = payload.QualityTier
	o.mu.Unlock()

	o.track(execID, &runner.Execution{ID: execID, Status: runner.StatusQueued})

	metrics.New("SceneForge").
		Dimension("QualityTier", string(payload.QualityTier)).
		Count("GenerationSubmitted").
		Property("executionId", execID).
		Property("shotCount", len(payload.Shots)).
		Flush()

	return execID, nil
}

// Recover resumes tracking a persisted execution after a process restart.
// It re-fetches status and resumes polling only for still-active statuses;
// anything else (including an unknown/expired execution) clears the stale
// persisted id. Recovery never appends history, so a terminal execution
// observed here is not double-recorded.
func (o *Orchestrator) Recover(ctx context.Context) (*runner.Execution, error) {
	o.mu.Lock()
	if o.executionID != "" {
		o.mu.Unlock()
		return o.Current(), nil
	}
	o.mu.Unlock()

	execID, err := o.store.GetExecution(ctx, o.projectID)
	if err != nil {
		return nil, fmt.Errorf("read persisted execution: %w", err)
	}
	if execID == "" {
		return nil, nil
	}

	exec, err := o.runner.Execution(ctx, execID)
	if err != nil {
		if errors.Is(err, runner.ErrExecutionNotFound) || errors.Is(err, runner.ErrUnauthorized) {
			log.Warn().Err(err).Str("executionId", execID).Msg("Persisted execution is stale, clearing")
			if clearErr := o.store.ClearExecution(ctx, o.projectID); clearErr != nil {
				log.Error().Err(clearErr).Msg("Failed to clear stale execution id")
			}
			return nil, nil
		}
		return nil, fmt.Errorf("re-fetch execution %s: %w", execID, err)
	}

	if !exec.Status.Active() {
		log.Info().Str("executionId", execID).Str("status", string(exec.Status)).
			Msg("Persisted execution already terminal, clearing without re-recording")
		if err := o.store.ClearExecution(ctx, o.projectID); err != nil {
			log.Error().Err(err).Msg("Failed to clear finished execution id")
		}
		return nil, nil
	}

	log.Info().Str("executionId", execID).Str("status", string(exec.Status)).
		Msg("Recovered in-flight execution, resuming polling")
	o.track(execID, exec)
	return o.Current(), nil
}

// Continue answers an awaiting_decision prompt with "continue": the run
// returns to running and polling carries on.
func (o *Orchestrator) Continue(ctx context.Context) error {
	o.mu.Lock()
	execID := o.executionID
	status := runner.Status("")
	if o.current != nil {
		status = o.current.Status
	}
	o.mu.Unlock()

	if execID == "" {
		return ErrNoExecution
	}
	if status != runner.StatusAwaitingDecision {
		return fmt.Errorf("continue: execution is %s, not awaiting a decision", status)
	}

	if err := o.runner.Decide(ctx, execID, runner.DecisionContinue); err != nil {
		return fmt.Errorf("continue decision: %w", err)
	}

	o.mu.Lock()
	if o.current != nil && o.current.Status == runner.StatusAwaitingDecision {
		o.current.Status = runner.StatusRunning
	}
	snapshot := o.snapshotLocked()
	o.mu.Unlock()
	o.notify(snapshot)
	return nil
}

// Cancel answers an awaiting_decision prompt with "cancel". The decision
// call is issued exactly once but not awaited: local state clears
// immediately and the execution is terminal with no charge and no history
// entry.
func (o *Orchestrator) Cancel(ctx context.Context) error {
	o.mu.Lock()
	execID := o.executionID
	if execID == "" {
		o.mu.Unlock()
		return ErrNoExecution
	}
	status := runner.Status("")
	if o.current != nil {
		status = o.current.Status
	}
	// Cancel is only an edge out of awaiting_decision. Tearing down a
	// queued or running execution locally would abandon a run the runner
	// keeps executing and charging for.
	if status != runner.StatusAwaitingDecision {
		o.mu.Unlock()
		return fmt.Errorf("cancel: execution is %s, not awaiting a decision", status)
	}
	alreadySent := o.cancelSent
	o.cancelSent = true
	o.mu.Unlock()

	if !alreadySent {
		// Fire-and-forget: the operator's session must not hang on the
		// runner acknowledging the cancellation.
		go func() {
			sendCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := o.runner.Decide(sendCtx, execID, runner.DecisionCancel); err != nil {
				log.Warn().Err(err).Str("executionId", execID).Msg("Cancel decision delivery failed")
			}
		}()
	}

	o.finalize(ctx, StatusCancelled, nil)
	return nil
}

// Stop tears down the poll loop without touching persisted state; used on
// shutdown/unmount. A later Recover picks the execution back up.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	stop := o.stopPoll
	o.stopPoll = nil
	o.executionID = ""
	o.current = nil
	o.mu.Unlock()

	if stop != nil {
		stop()
	}
}

// --- Polling ---

// track installs an execution and starts its poll loop, tearing down any
// previous loop first.
func (o *Orchestrator) track(execID string, initial *runner.Execution) {
	pollCtx, stop := context.WithCancel(context.Background())

	o.mu.Lock()
	if o.stopPoll != nil {
		o.stopPoll()
	}
	o.executionID = execID
	o.current = initial
	o.seq = 0
	o.nextSeq = 0
	o.finalized = false
	o.delivery = nil
	o.cancelSent = false
	o.stopPoll = stop
	snapshot := o.snapshotLocked()
	o.mu.Unlock()

	o.notify(snapshot)
	go o.pollLoop(pollCtx, execID)
}

// pollLoop fetches status once per tick until the execution is terminal,
// the context is cancelled, or the poll-duration bound is hit. Requests are
// serialized: the next tick is not armed until the previous fetch finished.
func (o *Orchestrator) pollLoop(ctx context.Context, execID string) {
	deadline := time.Now().Add(o.maxPollDuration)
	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if time.Now().After(deadline) {
			log.Error().Str("executionId", execID).Dur("bound", o.maxPollDuration).
				Msg("Execution exceeded maximum poll duration, failing locally")
			o.finalize(ctx, runner.StatusFailed, &runner.Execution{
				ID:     execID,
				Status: runner.StatusFailed,
				Error:  "generation did not finish within the polling bound",
			})
			return
		}

		seq := o.claimSeq()
		exec, err := o.runner.Execution(ctx, execID)
		if err != nil {
			if errors.Is(err, runner.ErrExecutionNotFound) || errors.Is(err, runner.ErrUnauthorized) {
				// Fatal to this execution: stop polling immediately.
				log.Error().Err(err).Str("executionId", execID).Msg("Status poll fatal, stopping")
				o.finalize(ctx, runner.StatusFailed, &runner.Execution{
					ID:     execID,
					Status: runner.StatusFailed,
					Error:  err.Error(),
				})
				return
			}
			// A single failed poll is not fatal; the next tick retries.
			log.Warn().Err(err).Str("executionId", execID).Msg("Status poll failed, will retry")
			continue
		}

		if exec.ID == "" {
			// A status body without an id still answers the execution
			// this loop polled; a blank id must not read as teardown.
			exec.ID = execID
		}

		if done := o.apply(ctx, seq, exec); done {
			return
		}
	}
}

// claimSeq hands out the next poll sequence number.
func (o *Orchestrator) claimSeq() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nextSeq++
	return o.nextSeq
}

// apply installs a poll response unless it is stale (an earlier-claimed
// response arriving after a later one) and handles terminal transitions.
// Returns true when polling should stop.
func (o *Orchestrator) apply(ctx context.Context, seq int64, exec *runner.Execution) bool {
	o.mu.Lock()
	if o.finalized || o.executionID != exec.ID {
		o.mu.Unlock()
		return true
	}
	if seq <= o.seq {
		log.Debug().Int64("seq", seq).Int64("applied", o.seq).Msg("Discarding stale poll response")
		o.mu.Unlock()
		return false
	}
	o.seq = seq
	o.current = exec
	snapshot := o.snapshotLocked()
	o.mu.Unlock()

	o.notify(snapshot)

	switch exec.Status {
	case runner.StatusCompleted, runner.StatusFailed:
		o.finalize(ctx, exec.Status, exec)
		return true
	case runner.StatusPartialDelivery:
		o.handlePartialDelivery(ctx, exec)
		return true
	}
	return false
}

// handlePartialDelivery performs the one-shot fetch of delivered-asset and
// refund details before finalizing. The refund figures are stored for
// display only.
func (o *Orchestrator) handlePartialDelivery(ctx context.Context, exec *runner.Execution) {
	delivery, err := o.runner.PartialDelivery(ctx, exec.ID)
	if err != nil {
		log.Warn().Err(err).Str("executionId", exec.ID).
			Msg("Partial delivery details unavailable, finalizing without them")
	} else {
		o.mu.Lock()
		o.delivery = delivery
		o.mu.Unlock()
	}
	o.finalize(ctx, runner.StatusPartialDelivery, exec)
}

// finalize runs the terminal transition exactly once: append the history
// item (cancelled runs excepted — nothing was charged or delivered), clear
// the persisted execution id, and stop the poll loop. Repeated calls are
// no-ops. Persistence runs on a detached context: the caller's context is
// usually the poll context, which finalize itself cancels.
func (o *Orchestrator) finalize(_ context.Context, status runner.Status, exec *runner.Execution) {
	o.mu.Lock()
	if o.finalized {
		o.mu.Unlock()
		return
	}
	o.finalized = true
	stop := o.stopPoll
	o.stopPoll = nil
	description := o.sceneDescription
	tier := o.qualityTier
	if exec != nil {
		o.current = exec
	} else if o.current != nil {
		o.current.Status = status
	}
	snapshot := o.snapshotLocked()
	if snapshot != nil {
		snapshot.Status = status
	}
	o.current = snapshot
	o.mu.Unlock()

	if stop != nil {
		stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if status != StatusCancelled && snapshot != nil {
		item := store.HistoryItem{
			SceneDescription: description,
			QualityTier:      tier,
			TotalCredits:     snapshot.TotalCreditsUsed,
			Status:           string(status),
		}
		for _, out := range snapshot.FinalOutputs {
			item.Outputs = append(item.Outputs, store.HistoryOutput{
				Slot: out.Slot, URL: out.URL, S3Key: out.S3Key,
			})
		}
		if err := o.history.Append(ctx, item); err != nil {
			log.Error().Err(err).Str("executionId", snapshot.ID).Msg("Failed to append history item")
		}
	}

	if err := o.store.ClearExecution(ctx, o.projectID); err != nil {
		log.Error().Err(err).Str("projectId", o.projectID).Msg("Failed to clear persisted execution id")
	}

	log.Info().
		Str("projectId", o.projectID).
		Str("status", string(status)).
		Msg("Execution finalized")

	m := metrics.New("SceneForge").
		Dimension("Status", string(status)).
		Count("GenerationFinalized")
	if snapshot != nil {
		m.Property("executionId", snapshot.ID)
		m.Metric("CreditsUsed", float64(snapshot.TotalCreditsUsed), metrics.UnitCount)
	}
	m.Flush()

	o.notify(snapshot)
}

// snapshotLocked copies the current execution; caller holds o.mu.
func (o *Orchestrator) snapshotLocked() *runner.Execution {
	if o.current == nil {
		return nil
	}
	snapshot := *o.current
	return &snapshot
}

// notify fans a snapshot out to the registered update handler.
func (o *Orchestrator) notify(exec *runner.Execution) {
	if o.onUpdate != nil && exec != nil {
		o.onUpdate(exec)
	}
}
