// Package navexec implements the navigation executor of:
// given a target node, resolve a path via the pathfinder, drive the
// action executor per edge, and verify at the target.
package navexec

import (
	"context"
	"fmt"
	"time"

	"github.com/virtualpytest/core/internal/domain"
	"github.com/virtualpytest/core/internal/execaction"
	"github.com/virtualpytest/core/internal/execverify"
	"github.com/virtualpytest/core/internal/graph"
	"github.com/virtualpytest/core/internal/logging"
	"github.com/virtualpytest/core/internal/metrics"
	"github.com/virtualpytest/core/internal/observability"
)

// Request is the input to Execute.
type Request struct {
	TreeID            string
	UserinterfaceName string
	TeamID            string
	TargetNodeID      string
	TargetNodeLabel   string
	CurrentNodeID     string
	ImageSourceURL    string
	NavigationPath    []*domain.Transition // optional precomputed path

	DeviceKey   string
	HostName    string
	DeviceModel string

	// FrontendSentPosition, when true, makes CurrentNodeID authoritative
	//. When false, a discovery
	// step could be prepended by a caller outside this package's scope.
	FrontendSentPosition bool

	ScriptResultID string
}

// Result is the navigation executor's output.
type Result struct {
	Success              bool
	TransitionsExecuted  int
	TotalTransitions     int
	ActionsExecuted      int
	TotalActions         int
	ExecutionTimeMS      int64
	VerificationResults  []*domain.VerificationResult
	NavigationPath       []string
	FinalPositionNodeID  string
	Error                string
}

// Executor drives a navigation by combining the graph cache, the
// pathfinder, and the action/verification executors.
type Executor struct {
	cache         *graph.Cache
	actions       *execaction.Executor
	verifications *execverify.Executor
	metrics       *metrics.Recorder
}

// New returns an Executor.
func New(cache *graph.Cache, actions *execaction.Executor, verifications *execverify.Executor, m *metrics.Recorder) *Executor {
	return &Executor{cache: cache, actions: actions, verifications: verifications, metrics: m}
}

// Execute runs one navigation end to end.
func (e *Executor) Execute(ctx context.Context, req Request) (result *Result, err error) {
	ctx, span := observability.StartSpan(ctx, "navexec.Execute",
		observability.AttrTeamID.String(req.TeamID),
		observability.AttrTreeID.String(req.TreeID),
		observability.AttrDeviceKey.String(req.DeviceKey),
	)
	defer func() {
		if result != nil && result.Success {
			observability.SetSpanOK(span)
		} else if result != nil {
			observability.SetSpanError(span, fmt.Errorf("%s", result.Error))
		}
		span.End()
	}()

	start := time.Now()

	entry, loadErr := e.loadEntry(ctx, req)
	if loadErr != nil {
		return &Result{Success: false, Error: loadErr.Error()}, nil
	}

	transitions := req.NavigationPath
	if transitions == nil {
		target := req.TargetNodeID
		if target == "" {
			target = req.TargetNodeLabel
		}
		startNodeID, ok := entry.ResolveStart(req.CurrentNodeID)
		if !ok {
			return &Result{Success: false, Error: "no start node could be resolved"}, nil
		}
		pfStart := time.Now()
		transitions, err = entry.FindShortestPath(startNodeID, target)
		if e.metrics != nil {
			e.metrics.RecordPathfind(float64(time.Since(pfStart).Microseconds())/1000.0, len(transitions))
		}
		if err != nil {
			return &Result{Success: false, Error: fmt.Sprintf("target not found: %v", err)}, nil
		}
		if transitions == nil {
			logging.Printf(ctx, "no navigation path found from %s to %s", startNodeID, target)
			return &Result{Success: false, Error: "No navigation path found"}, nil
		}
	}

	result = &Result{TotalTransitions: len(transitions)}
	lastSuccessfulTarget := req.CurrentNodeID

	for _, t := range transitions {
		result.TotalActions += len(t.Actions)
		result.NavigationPath = append(result.NavigationPath, t.Description)

		batch, err := e.actions.ExecuteActions(ctx, execaction.Params{
			TeamID:         req.TeamID,
			TreeID:         req.TreeID,
			EdgeID:         t.EdgeID,
			DeviceKey:      req.DeviceKey,
			HostName:       req.HostName,
			DeviceModel:    req.DeviceModel,
			ScriptResultID: req.ScriptResultID,
		}, t.Actions, t.RetryActions, t.FailureActions)
		if err != nil {
			result.Error = err.Error()
			result.FinalPositionNodeID = lastSuccessfulTarget
			e.finish(result, start)
			return result, nil
		}
		result.ActionsExecuted += len(batch.Results)

		if !batch.Success {
			result.Success = false
			result.Error = "transition failed"
			result.FinalPositionNodeID = lastSuccessfulTarget
			e.finish(result, start)
			return result, nil
		}

		result.TransitionsExecuted++
		lastSuccessfulTarget = t.ToNodeID
		if t.FinalWaitTimeMS > 0 {
			select {
			case <-time.After(time.Duration(t.FinalWaitTimeMS) * time.Millisecond):
			case <-ctx.Done():
				result.Success = false
				result.Error = ctx.Err().Error()
				result.FinalPositionNodeID = lastSuccessfulTarget
				e.finish(result, start)
				return result, nil
			}
		}
	}

	result.Success = true
	result.FinalPositionNodeID = lastSuccessfulTarget

	if targetNode, ok := entry.ResolvedNodes[lastSuccessfulTarget]; ok && len(targetNode.Verifications) > 0 {
		vbatch, err := e.verifications.ExecuteVerifications(ctx, execverify.Params{
			TeamID:            req.TeamID,
			UserinterfaceName: req.UserinterfaceName,
			ImageSourceURL:    req.ImageSourceURL,
			TreeID:            req.TreeID,
			NodeID:            targetNode.NodeID,
			DeviceKey:         req.DeviceKey,
			HostName:          req.HostName,
			DeviceModel:       req.DeviceModel,
			ScriptResultID:    req.ScriptResultID,
			PassCondition:     domain.PassConditionAll,
		}, targetNode.Verifications)
		if err != nil {
			result.Success = false
			result.Error = err.Error()
			e.finish(result, start)
			return result, nil
		}
		result.VerificationResults = vbatch.Results
		if !vbatch.Success {
			result.Success = false
			result.Error = "arrived but target verification failed"
		}
		// final_position_node_id remains target regardless of
		// verification outcome.
	}

	e.finish(result, start)
	return result, nil
}

func (e *Executor) finish(result *Result, start time.Time) {
	result.ExecutionTimeMS = time.Since(start).Milliseconds()
	if e.metrics != nil {
		e.metrics.RecordNavigation(result.Success, result.ExecutionTimeMS)
	}
}

func (e *Executor) loadEntry(ctx context.Context, req Request) (*graph.Entry, error) {
	if req.TreeID != "" {
		return e.cache.GetByTreeID(ctx, req.TeamID, req.TreeID)
	}
	return e.cache.GetByUserinterfaceName(ctx, req.TeamID, req.UserinterfaceName)
}
