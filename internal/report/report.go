// Package report generates the structured execution summary a script
// harness attaches to its result record. It consumes a finished
// domain.ExecutionContext and reduces it to counts and a pass/fail
// verdict; turning that summary into a rendered document (HTML, PDF,
// an uploaded screenshot gallery) is outside this package.
package report

import "github.com/virtualpytest/core/internal/domain"

// StepSummary is one line of the flattened step report.
type StepSummary struct {
	StepNumber      int    `json:"step_number"`
	Success         bool   `json:"success"`
	FromNode        string `json:"from_node,omitempty"`
	ToNode          string `json:"to_node,omitempty"`
	Message         string `json:"message,omitempty"`
	ExecutionTimeMS int64  `json:"execution_time_ms"`
	ScreenshotPath  string `json:"screenshot_path,omitempty"`
}

// Summary is the structured report generated at the end of a script
// execution, regardless of outcome.
type Summary struct {
	Success         bool          `json:"success"`
	TotalSteps      int           `json:"total_steps"`
	PassedSteps     int           `json:"passed_steps"`
	FailedSteps     int           `json:"failed_steps"`
	TotalDurationMS int64         `json:"total_duration_ms"`
	ErrorMessage    string        `json:"error_message,omitempty"`
	Steps           []StepSummary `json:"steps"`
	ScreenshotPaths []string      `json:"screenshot_paths,omitempty"`
}

// Generate reduces ctx into a Summary. It never errors: a context with
// zero steps simply produces an empty report whose Success is
// ctx.OverallSuccess (false unless the caller has set it), matching the harness's "always generate a report regardless of
// outcome" contract.
func Generate(ctx *domain.ExecutionContext) *Summary {
	s := &Summary{
		Success:         ctx.OverallSuccess,
		ErrorMessage:    ctx.ErrorMessage,
		ScreenshotPaths: ctx.ScreenshotPaths,
	}
	for _, step := range ctx.StepResults {
		s.TotalSteps++
		if step.Success {
			s.PassedSteps++
		} else {
			s.FailedSteps++
		}
		s.TotalDurationMS += step.ExecutionTimeMS
		s.Steps = append(s.Steps, StepSummary{
			StepNumber:      step.StepNumber,
			Success:         step.Success,
			FromNode:        step.FromNode,
			ToNode:          step.ToNode,
			Message:         step.Message,
			ExecutionTimeMS: step.ExecutionTimeMS,
			ScreenshotPath:  step.ScreenshotPath,
		})
	}
	return s
}
