package runner

import "github.com/jtallis/sceneforge/internal/scene"

// Status is the execution lifecycle state reported by the runner.
type Status string

const (
	StatusQueued           Status = "queued"
	StatusRunning          Status = "running"
	StatusAwaitingDecision Status = "awaiting_decision"
	StatusPartialDelivery  Status = "partial_delivery"
	StatusCompleted        Status = "completed"
	StatusFailed           Status = "failed"
)

// Terminal reports whether the status admits no further transitions.
// PartialDelivery is terminal after its one-shot detail fetch; it is
// included here because the runner itself will not move past it.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusPartialDelivery:
		return true
	}
	return false
}

// Active reports whether the status still warrants polling.
func (s Status) Active() bool {
	switch s {
	case StatusQueued, StatusRunning, StatusAwaitingDecision:
		return true
	}
	return false
}

// Decision is the operator's answer to a mid-flight decision point.
type Decision string

const (
	// DecisionContinue resumes the run (for example, without audio).
	DecisionContinue Decision = "continue"

	// DecisionCancel abandons the run with no charge.
	DecisionCancel Decision = "cancel"
)

// StepResult is the runner's report for one pipeline step.
type StepResult struct {
	Step    int    `json:"step"`
	Name    string `json:"name,omitempty"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Output is one finished video produced by an execution.
type Output struct {
	Slot     int    `json:"slot"`
	URL      string `json:"url"`
	S3Key    string `json:"s3Key,omitempty"`
	Duration int    `json:"duration,omitempty"`
}

// Execution is the runner's view of a workflow execution.
type Execution struct {
	ID               string       `json:"id"`
	Status           Status       `json:"status"`
	CurrentStep      int          `json:"currentStep"`
	TotalSteps       int          `json:"totalSteps"`
	StepResults      []StepResult `json:"stepResults,omitempty"`
	TotalCreditsUsed int          `json:"totalCreditsUsed"`
	FinalOutputs     []Output     `json:"finalOutputs,omitempty"`

	// DecisionPrompt is the operator-facing question attached to an
	// awaiting_decision status (e.g. continue without audio).
	DecisionPrompt string `json:"decisionPrompt,omitempty"`

	// Error carries the runner's failure message for failed executions.
	Error string `json:"error,omitempty"`
}

// ShotPayload is the per-shot breakdown entry sent on submission. Only
// enabled shots are included, with any per-shot operator overrides applied.
type ShotPayload struct {
	Slot             int    `json:"slot"`
	Type             string `json:"type"`
	CharacterID      string `json:"characterId,omitempty"`
	LocationID       string `json:"locationId,omitempty"`
	DialogueText     string `json:"dialogueText,omitempty"`
	Description      string `json:"description,omitempty"`
	VideoModel       string `json:"videoModel,omitempty"`
	DurationOverride int    `json:"durationOverride,omitempty"`

	// Reference image URLs resolved by the configuration wizard.
	CharacterImageURLs map[string]string `json:"characterImageUrls,omitempty"`
	LocationImageURL   string            `json:"locationImageUrl,omitempty"`
	PropImageURLs      map[string]string `json:"propImageUrls,omitempty"`

	// LocationDescription carries the free-text setting when the shot
	// opted out of a location reference.
	LocationDescription string `json:"locationDescription,omitempty"`
}

// ExecuteRequest is the submission payload for POST /workflows/execute.
type ExecuteRequest struct {
	WorkflowIDs         []string          `json:"workflowIds,omitempty"`
	ProjectID           string            `json:"projectId"`
	SceneDescription    string            `json:"sceneDescription"`
	CharacterReferences []string          `json:"characterReferences,omitempty"` // capped at 3 URLs
	AspectRatio         string            `json:"aspectRatio,omitempty"`
	Duration            int               `json:"duration,omitempty"`
	QualityTier         scene.QualityTier `json:"qualityTier"`
	Shots               []ShotPayload     `json:"shots"`
}

type executeResponse struct {
	Success     bool   `json:"success"`
	ExecutionID string `json:"executionId"`
	Error       string `json:"error,omitempty"`
}

type executionResponse struct {
	Success   bool       `json:"success"`
	Execution *Execution `json:"execution,omitempty"`
	Error     string     `json:"error,omitempty"`
}

type decisionRequest struct {
	Decision Decision `json:"decision"`
}

type decisionResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// PartialDeliveryResult is the delivered-asset and refund breakdown for an
// execution whose premium take was rejected mid-pipeline. All credit figures
// are display data reported by the runner, never inputs to local arithmetic.
type PartialDeliveryResult struct {
	AssetURL        string `json:"assetUrl"`
	AssetS3Key      string `json:"assetS3Key,omitempty"`
	ChargedCredits  int    `json:"chargedCredits"`
	RefundedCredits int    `json:"refundedCredits"`
	Reason          string `json:"reason,omitempty"`
}

type partialDeliveryResponse struct {
	Success  bool                   `json:"success"`
	Delivery *PartialDeliveryResult `json:"delivery,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

// PriceShot identifies one shot in a pricing request.
type PriceShot struct {
	Slot    int `json:"slot"`
	Credits int `json:"credits"`
}

// PriceRequest is the payload for POST /workflows/price.
type PriceRequest struct {
	Shots             []PriceShot       `json:"shots"`
	DurationOverrides map[string]int    `json:"durationOverrides,omitempty"` // keyed by slot
	ModelOverrides    map[string]string `json:"modelOverrides,omitempty"`    // keyed by slot
	QualityTier       scene.QualityTier `json:"qualityTier,omitempty"`
}

// ShotPrice is the runner's price quote for one shot.
type ShotPrice struct {
	ShotSlot        int `json:"shotSlot"`
	HDPrice         int `json:"hdPrice"`
	K4Price         int `json:"k4Price"`
	FirstFramePrice int `json:"firstFramePrice"`
}

// PriceResponse is the runner's pricing quote.
type PriceResponse struct {
	Success bool        `json:"success"`
	Shots   []ShotPrice `json:"shots,omitempty"`
	Error   string      `json:"error,omitempty"`
}
