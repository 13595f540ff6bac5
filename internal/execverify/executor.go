// Package execverify implements the verification executor: runs a
// verification list against a device controller, reduces the results
// per the configured pass condition, and records each outcome to the
// store.
package execverify

import (
	"context"
	"fmt"
	"time"

	"github.com/virtualpytest/core/internal/controller"
	"github.com/virtualpytest/core/internal/domain"
	"github.com/virtualpytest/core/internal/logging"
	"github.com/virtualpytest/core/internal/metrics"
	"github.com/virtualpytest/core/internal/observability"
	"github.com/virtualpytest/core/internal/store"
)

// Executor runs verification batches and records their outcomes.
type Executor struct {
	controllers *controller.Registry
	execStore   store.ExecutionStore
	metrics     *metrics.Recorder
}

// New returns an Executor.
func New(controllers *controller.Registry, execStore store.ExecutionStore, m *metrics.Recorder) *Executor {
	return &Executor{controllers: controllers, execStore: execStore, metrics: m}
}

// Params bundles the per-call identifying fields requires.
type Params struct {
	TeamID            string
	UserinterfaceName string
	ImageSourceURL    string
	TreeID            string
	NodeID            string
	DeviceKey         string
	HostName          string
	DeviceModel       string
	ScriptResultID    string
	PassCondition     domain.VerificationPassCondition

	// StrictParams rejects the whole batch when any verification lacks
	// its type-specific minimum parameters, instead of silently
	// dropping just the offending ones.
	StrictParams bool
}

func filterValid(verifications []*domain.Verification) (valid []*domain.Verification, dropped int) {
	valid = make([]*domain.Verification, 0, len(verifications))
	for _, v := range verifications {
		if v.HasMinimalParams() {
			valid = append(valid, v)
		} else {
			dropped++
		}
	}
	return valid, dropped
}

// ExecuteVerifications runs verifications in declared order and reduces
// the batch per p.PassCondition (default "all" —).
func (ex *Executor) ExecuteVerifications(ctx context.Context, p Params, verifications []*domain.Verification) (*domain.VerificationBatchResult, error) {
	valid, dropped := filterValid(verifications)
	if dropped > 0 && p.StrictParams {
		return &domain.VerificationBatchResult{
			Success: false, Results: []*domain.VerificationResult{},
			Message: fmt.Sprintf("rejected batch: %d verification(s) missing required parameters", dropped),
		}, nil
	}
	if len(valid) == 0 {
		return &domain.VerificationBatchResult{
			Success: true, Results: []*domain.VerificationResult{}, Message: "No verifications to execute",
		}, nil
	}

	cond := p.PassCondition
	if cond == "" {
		cond = domain.PassConditionAll
	}

	results := make([]*domain.VerificationResult, 0, len(valid))
	passed, failed := 0, 0
	for _, v := range valid {
		r := ex.runOne(ctx, p, v)
		results = append(results, r)
		if r.Success {
			passed++
		} else {
			failed++
		}
	}

	var success bool
	switch cond {
	case domain.PassConditionAny:
		success = passed > 0
	default:
		success = failed == 0
	}

	message := fmt.Sprintf("%d/%d verifications passed", passed, len(valid))
	if ex.metrics != nil {
		ex.metrics.RecordVerificationBatch(success)
	}

	return &domain.VerificationBatchResult{
		Success:     success,
		Results:     results,
		PassedCount: passed,
		FailedCount: failed,
		TotalCount:  len(valid),
		Message:     message,
	}, nil
}

func (ex *Executor) runOne(ctx context.Context, p Params, v *domain.Verification) (res *domain.VerificationResult) {
	ctx, span := observability.StartSpan(ctx, "execverify.runOne",
		observability.AttrTeamID.String(p.TeamID),
		observability.AttrNodeID.String(p.NodeID),
		observability.AttrDeviceKey.String(p.DeviceKey),
	)
	defer func() {
		if res != nil && res.Success {
			observability.SetSpanOK(span)
		} else if res != nil {
			observability.SetSpanError(span, fmt.Errorf("%s", res.Error))
		}
		span.End()
	}()

	start := time.Now()
	res = &domain.VerificationResult{VerificationID: v.ID, ResultType: domain.ResultFail}

	c, err := ex.controllers.Resolve(p.DeviceKey)
	if err != nil {
		res.Success = false
		res.Error = err.Error()
		res.ExecutionTimeMS = time.Since(start).Milliseconds()
		ex.record(ctx, p, v, res)
		return res
	}

	out, err := c.ExecuteVerification(ctx, v)
	res.ExecutionTimeMS = time.Since(start).Milliseconds()
	if err != nil {
		res.Success = false
		res.Error = err.Error()
		logging.Printf(ctx, "verification %s (%s) raised: %v", v.ID, v.VerificationType, err)
		ex.record(ctx, p, v, res)
		return res
	}

	res.Success = out.Success
	res.Message = out.Message
	res.Error = out.Error
	res.Confidence = out.Confidence
	res.Threshold = out.Threshold
	res.Extra = out.Extra
	if out.Success {
		res.ResultType = domain.ResultPass
	}
	if out.Extra != nil {
		if s, ok := out.Extra["source_image_url"].(string); ok {
			res.SourceImageURL = s
		}
		if s, ok := out.Extra["reference_image_url"].(string); ok {
			res.ReferenceImageURL = s
		}
		if s, ok := out.Extra["result_overlay_url"].(string); ok {
			res.ResultOverlayURL = s
		}
		if s, ok := out.Extra["extracted_text"].(string); ok {
			res.ExtractedText = s
		}
		if s, ok := out.Extra["detected_language"].(string); ok {
			res.DetectedLanguage = s
		}
	}
	logging.Printf(ctx, "verification %s (%s) -> %s", v.ID, v.VerificationType, res.ResultType)
	ex.record(ctx, p, v, res)
	return res
}

func (ex *Executor) record(ctx context.Context, p Params, v *domain.Verification, r *domain.VerificationResult) {
	if ex.execStore == nil {
		return
	}
	rec := &store.NodeExecutionRecord{
		TeamID:          p.TeamID,
		TreeID:          p.TreeID,
		NodeID:          p.NodeID,
		HostName:        p.HostName,
		DeviceModel:     p.DeviceModel,
		Success:         r.Success,
		ExecutionTimeMS: r.ExecutionTimeMS,
		Message:         r.Message,
		ScriptResultID:  p.ScriptResultID,
	}
	if err := ex.execStore.RecordNodeExecution(ctx, rec); err != nil {
		logging.Printf(ctx, "record node execution for verification %s failed: %v", v.ID, err)
	}
}
