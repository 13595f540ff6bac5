// Package execaction implements the action executor of: runs
// an action list against a device controller with retry and failure
// fallbacks, recording each outcome to the store.
package execaction

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

// Executor runs action batches against a controller registry and
// records outcomes through an ExecutionStore.
type Executor struct {
	controllers *controller.Registry
	execStore   store.ExecutionStore
	metrics     *metrics.Recorder
}

// New returns an Executor.
func New(controllers *controller.Registry, execStore store.ExecutionStore, m *metrics.Recorder) *Executor {
	return &Executor{controllers: controllers, execStore: execStore, metrics: m}
}

// Params bundles the per-call identifying fields the contract of
// requires alongside the action lists themselves.
type Params struct {
	TeamID         string
	TreeID         string
	EdgeID         string
	DeviceKey      string
	HostName       string
	DeviceModel    string
	ScriptResultID string
}

// filterValid drops actions lacking a command, and actions that
// require input but were not given one.
func filterValid(actions []*domain.Action) []*domain.Action {
	out := make([]*domain.Action, 0, len(actions))
	for _, a := range actions {
		if a.Command == "" {
			continue
		}
		if a.RequiresInput && a.InputValue == "" {
			continue
		}
		out = append(out, a)
	}
	return out
}

// ExecuteActions runs the main action list, then the retry list if the
// main list did not fully pass, then the failure list as a diagnostic
// if the batch is still unsuccessful.
func (ex *Executor) ExecuteActions(ctx context.Context, p Params, actions, retryActions, failureActions []*domain.Action) (*domain.ActionBatchResult, error) {
	main := filterValid(actions)
	if len(main) == 0 {
		return &domain.ActionBatchResult{Success: true, Results: []*domain.ActionResult{}, TotalCount: 0}, nil
	}

	results := make([]*domain.ActionResult, 0, len(main))
	passed := 0
	for _, a := range main {
		r := ex.runOne(ctx, p, a)
		results = append(results, r)
		if r.Success {
			passed++
		}
	}

	if passed < len(main) {
		retry := filterValid(retryActions)
		for _, a := range retry {
			r := ex.runOne(ctx, p, a)
			results = append(results, r)
			if r.Success {
				passed++
			}
		}
	}

	totalMain := len(main)
	success := passed >= totalMain

	if !success {
		for _, a := range filterValid(failureActions) {
			// Diagnostic: executed and recorded, but never flips success.
			r := ex.runOne(ctx, p, a)
			results = append(results, r)
		}
	}

	if ex.metrics != nil {
		ex.metrics.RecordActionBatch(success, len(results))
	}

	return &domain.ActionBatchResult{
		Success:     success,
		Results:     results,
		PassedCount: passed,
		TotalCount:  totalMain,
	}, nil
}

func (ex *Executor) runOne(ctx context.Context, p Params, a *domain.Action) (res *domain.ActionResult) {
	ctx, span := observability.StartSpan(ctx, "execaction.runOne",
		observability.AttrTeamID.String(p.TeamID),
		observability.AttrEdgeID.String(p.EdgeID),
		observability.AttrDeviceKey.String(p.DeviceKey),
	)
	defer func() {
		if res != nil && res.Success {
			observability.SetSpanOK(span)
		} else if res != nil {
			observability.SetSpanError(span, fmt.Errorf("%s: %s", res.ErrorCode, res.Message))
		}
		span.End()
	}()

	start := time.Now()
	res = &domain.ActionResult{ActionID: a.ID, Command: a.Command}

	c, err := ex.controllers.Resolve(p.DeviceKey)
	if err != nil {
		res.Success = false
		res.ErrorCode = domain.ErrCodeHostError
		res.Message = err.Error()
		res.ExecutionTimeMS = time.Since(start).Milliseconds()
		ex.record(ctx, p, a, res)
		return res
	}

	out, err := c.ExecuteCommand(ctx, a.Command, a.Params)
	res.ExecutionTimeMS = time.Since(start).Milliseconds()
	if err != nil {
		res.Success = false
		res.ErrorCode = domain.ErrCodeExecutionException
		res.Message = err.Error()
		logging.Printf(ctx, "action %s (%s) raised: %v", a.ID, a.Command, err)
		ex.record(ctx, p, a, res)
		return res
	}
	if out == nil {
		res.Success = false
		res.ErrorCode = domain.ErrCodeHostError
		res.Message = "controller returned no result"
		ex.record(ctx, p, a, res)
		return res
	}

	res.Success = out.Success
	res.Message = out.Message
	if !out.Success && res.ErrorCode == "" {
		res.ErrorCode = domain.ErrCodeHostError
	}
	logging.Printf(ctx, "action %s (%s) -> success=%v", a.ID, a.Command, res.Success)
	ex.record(ctx, p, a, res)
	return res
}

func (ex *Executor) record(ctx context.Context, p Params, a *domain.Action, r *domain.ActionResult) {
	if ex.execStore == nil {
		return
	}
	errDetails := ""
	if !r.Success {
		errDetails = fmt.Sprintf("%s: %s", r.ErrorCode, r.Message)
	}
	rec := &store.EdgeExecutionRecord{
		TeamID:          p.TeamID,
		TreeID:          p.TreeID,
		EdgeID:          p.EdgeID,
		HostName:        p.HostName,
		DeviceModel:     p.DeviceModel,
		Success:         r.Success,
		ExecutionTimeMS: r.ExecutionTimeMS,
		Message:         r.Message,
		ErrorDetails:    errDetails,
		ScriptResultID:  p.ScriptResultID,
	}
	if err := ex.execStore.RecordEdgeExecution(ctx, rec); err != nil {
		logging.Printf(ctx, "record edge execution for action %s failed: %v", a.ID, err)
	}
}
