package domain

import "time"

// ExecutionContext is a per-invocation record shared across the
// orchestrator and its executors for the lifetime of a single script
// or request.
type ExecutionContext struct {
	Host              string
	SelectedDevice    string
	TeamID            string
	TreeID            string
	UserinterfaceName string

	// ScriptResultID is set by the harness before execution begins. It
	// is intentionally a pointer: executors must not assume it is
	// present and should check before using
	// it to record step outcomes.
	ScriptResultID *string

	StepResults     []*StepResult
	ScreenshotPaths []string
	CustomData      map[string]any

	OverallSuccess bool
	ErrorMessage   string

	StartTime time.Time
}

// NewExecutionContext returns a zero-valued context with StartTime set
// to now and its slice/map fields initialized.
func NewExecutionContext(host, device, teamID string) *ExecutionContext {
	return &ExecutionContext{
		Host:            host,
		SelectedDevice:  device,
		TeamID:          teamID,
		StepResults:     make([]*StepResult, 0),
		ScreenshotPaths: make([]string, 0),
		CustomData:      make(map[string]any),
		StartTime:       time.Now(),
	}
}

// AppendStep appends a step record in execution order, deriving
// StepNumber implicitly from the resulting index rather than requiring
// the caller to track it.
func (c *ExecutionContext) AppendStep(s *StepResult) {
	s.StepNumber = len(c.StepResults) + 1
	c.StepResults = append(c.StepResults, s)
}

// AppendScreenshot records a captured screenshot path.
func (c *ExecutionContext) AppendScreenshot(path string) {
	if path == "" {
		return
	}
	c.ScreenshotPaths = append(c.ScreenshotPaths, path)
}

// RequireScriptResultID returns the bound script result id, or false if
// none was set. Callers that treat the field as mandatory should fail
// fast on the false case rather than writing a record with an empty id.
func (c *ExecutionContext) RequireScriptResultID() (string, bool) {
	if c.ScriptResultID == nil || *c.ScriptResultID == "" {
		return "", false
	}
	return *c.ScriptResultID, true
}

// StepResult is appended to ExecutionContext.StepResults in execution
// order by whichever executor produced it.
type StepResult struct {
	StepNumber          int               `json:"step_number"`
	Success             bool              `json:"success"`
	ScreenshotPath      string            `json:"screenshot_path,omitempty"`
	Message             string            `json:"message"`
	ExecutionTimeMS     int64             `json:"execution_time_ms"`
	FromNode            string            `json:"from_node,omitempty"`
	ToNode              string            `json:"to_node,omitempty"`
	Actions             []*Action         `json:"actions,omitempty"`
	RetryActions        []*Action         `json:"retryActions,omitempty"`
	FailureActions      []*Action         `json:"failureActions,omitempty"`
	Verifications       []*Verification   `json:"verifications,omitempty"`
	VerificationResults []*VerificationResult `json:"verification_results,omitempty"`
}
