package domain

import "time"

// ResultType is the canonical pass/fail tag attached to every
// verification result, independent of the verification type that
// produced it.
type ResultType string

const (
	ResultPass ResultType = "PASS"
	ResultFail ResultType = "FAIL"
)

// ActionResult is the outcome of dispatching a single Action to a
// controller.
type ActionResult struct {
	ActionID        string `json:"action_id"`
	Command         string `json:"command"`
	Success         bool   `json:"success"`
	Message         string `json:"message,omitempty"`
	ErrorCode       string `json:"error_code,omitempty"`
	ExecutionTimeMS int64  `json:"execution_time_ms"`
}

// Error codes surfaced by the action executor. These are not Go
// errors: they travel inside ActionResult so a batch execution never
// aborts mid-list.
const (
	ErrCodeCommandMissing     = "command_missing"
	ErrCodeInputRequired      = "input_required"
	ErrCodeHostError          = "host_error"
	ErrCodeExecutionException = "execution_exception"
)

// ActionBatchResult is returned by the action executor for one list of
// actions (main, retry, or failure).
type ActionBatchResult struct {
	Success     bool            `json:"success"`
	Results     []*ActionResult `json:"results"`
	PassedCount int             `json:"passed_count"`
	TotalCount  int             `json:"total_count"`
}

// VerificationResult is the canonical flattened shape every verification
// controller response is mapped into.
type VerificationResult struct {
	VerificationID    string     `json:"verification_id"`
	Success           bool       `json:"success"`
	Message           string     `json:"message,omitempty"`
	Error             string     `json:"error,omitempty"`
	Threshold         float64    `json:"threshold,omitempty"`
	Confidence        float64    `json:"confidence,omitempty"`
	ResultType        ResultType `json:"resultType"`
	SourceImageURL    string     `json:"sourceImageUrl,omitempty"`
	ReferenceImageURL string     `json:"referenceImageUrl,omitempty"`
	ResultOverlayURL  string     `json:"resultOverlayUrl,omitempty"`
	ExtractedText     string     `json:"extractedText,omitempty"`
	DetectedLanguage  string     `json:"detectedLanguage,omitempty"`
	Extra             map[string]any `json:"extra,omitempty"`
	ExecutionTimeMS   int64      `json:"execution_time_ms"`
}

// VerificationPassCondition selects how a batch of verification results
// is reduced to an overall pass/fail.
type VerificationPassCondition string

const (
	PassConditionAll VerificationPassCondition = "all"
	PassConditionAny VerificationPassCondition = "any"
)

// VerificationBatchResult is returned by the verification executor for
// one list of verifications.
type VerificationBatchResult struct {
	Success     bool                   `json:"success"`
	Results     []*VerificationResult  `json:"results"`
	PassedCount int                    `json:"passed_count"`
	FailedCount int                    `json:"failed_count"`
	TotalCount  int                    `json:"total_count"`
	Message     string                 `json:"message"`
}

// TaskStatus is the lifecycle state of a TaskRecord.
type TaskStatus string

const (
	TaskStarted   TaskStatus = "started"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// TaskRecord is the task manager's entry for one unit of background
// work.
type TaskRecord struct {
	ID          string         `json:"id"`
	Command     string         `json:"command"`
	Params      map[string]any `json:"params"`
	Status      TaskStatus     `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Result      any            `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	Progress    any            `json:"progress,omitempty"`
}

// CampaignStatus is the lifecycle state of a CampaignExecution.
type CampaignStatus string

const (
	CampaignRunning   CampaignStatus = "running"
	CampaignCompleted CampaignStatus = "completed"
	CampaignFailed    CampaignStatus = "failed"
)

// ScriptConfiguration is one entry in a campaign's plan.
type ScriptConfiguration struct {
	ScriptName string         `json:"script_name" yaml:"script_name"`
	ScriptType string         `json:"script_type" yaml:"script_type"`
	Parameters map[string]any `json:"parameters" yaml:"parameters"`
}

// ExecutionPolicy governs how a campaign's scripts are sequenced.
type ExecutionPolicy struct {
	ContinueOnFailure bool `json:"continue_on_failure" yaml:"continue_on_failure"`
	TimeoutMinutes    int  `json:"timeout_minutes" yaml:"timeout_minutes"`
	Parallel          bool `json:"parallel" yaml:"parallel"` // always false; sequential only is in scope
}

// CampaignExecution is the parent record linking a sequence of child
// script executions.
type CampaignExecution struct {
	CampaignExecutionID string                `json:"campaign_execution_id"`
	TeamID              string                `json:"team_id"`
	CampaignName        string                `json:"campaign_name"`
	UserinterfaceName   string                `json:"userinterface_name"`
	HostName            string                `json:"host_name"`
	DeviceName          string                `json:"device_name"`
	Status              CampaignStatus        `json:"status"`
	ScriptConfigurations []ScriptConfiguration `json:"script_configurations"`
	ScriptResultIDs     []string              `json:"script_result_ids"`
	ExecutedBy          string                `json:"executed_by"`
	SuccessfulScripts   int                   `json:"successful_scripts"`
	FailedScripts       int                   `json:"failed_scripts"`
	Success             bool                  `json:"success"`
	ReportURL           string                `json:"report_url,omitempty"`
	StartedAt           time.Time             `json:"started_at"`
	CompletedAt         *time.Time            `json:"completed_at,omitempty"`
	DurationMS          int64                 `json:"duration_ms,omitempty"`
}

// DeviceSession identifies the exclusive owner of a host-attached
// device.
type DeviceSession struct {
	DeviceKey string `json:"device_key"` // "<host_name>:<device_id>"
	SessionID string `json:"session_id"`
}
