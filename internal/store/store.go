// Package store provides persistent per-project state for the generation
// workflow: the execution id of a run that may still be in flight, and the
// capped history of finished generations. Persisting the execution id before
// submission returns is what lets a reloaded session recover and resume
// polling a running workflow.
//
// Two backends implement the ProjectStore interface: a local JSON file store
// for CLI and local-web use, and a single-table DynamoDB store for the
// hosted Lambda deployment (partition key PROJECT#{projectId}, sort keys
// EXEC and HISTORY).
package store

import (
	"context"
	"time"

	"github.com/jtallis/sceneforge/internal/scene"
)

// ExecutionTTL is the time-to-live applied to persisted execution ids in
// DynamoDB. An execution id older than this is stale by any measure; the
// runner expires executions long before it.
const ExecutionTTL = 24 * time.Hour

// ProjectStore defines the persistence contract for workflow state. Each
// method is safe for concurrent use. Get methods return zero values (empty
// string, nil slice) when no record exists; Clear and Put are idempotent.
type ProjectStore interface {
	// PutExecution records the execution id currently owned by a project.
	PutExecution(ctx context.Context, projectID, executionID string) error

	// GetExecution returns the persisted execution id, or "" when none
	// is tracked.
	GetExecution(ctx context.Context, projectID string) (string, error)

	// ClearExecution removes the persisted execution id. Clearing an
	// already-clear project is not an error.
	ClearExecution(ctx context.Context, projectID string) error

	// PutHistory replaces the project's generation history.
	PutHistory(ctx context.Context, projectID string, items []HistoryItem) error

	// GetHistory returns the project's generation history, most recent
	// first. Returns nil when the project has no history.
	GetHistory(ctx context.Context, projectID string) ([]HistoryItem, error)
}

// HistoryOutput is one finished video recorded in a history item.
type HistoryOutput struct {
	Slot  int    `json:"slot" dynamodbav:"slot"`
	URL   string `json:"url" dynamodbav:"url"`
	S3Key string `json:"s3Key,omitempty" dynamodbav:"s3Key,omitempty"`
}

// HistoryItem is an immutable snapshot of one finished (or failed)
// generation, appended when the workflow reaches a terminal state.
type HistoryItem struct {
	ID               string            `json:"id" dynamodbav:"id"`
	SceneDescription string            `json:"sceneDescription" dynamodbav:"sceneDescription"`
	QualityTier      scene.QualityTier `json:"qualityTier" dynamodbav:"qualityTier"`
	Outputs          []HistoryOutput   `json:"outputs,omitempty" dynamodbav:"outputs,omitempty"`
	TotalCredits     int               `json:"totalCredits" dynamodbav:"totalCredits"`
	CreatedAt        int64             `json:"createdAt" dynamodbav:"createdAt"`
	Status           string            `json:"status" dynamodbav:"status"`
}
