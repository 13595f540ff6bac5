// Package orchestrator implements the execution orchestrator: the
// single dispatcher for the four execution kinds (navigation, actions,
// verifications, standard blocks), wrapping every call with
// per-execution log capture and a uniform result envelope. The
// orchestrator deliberately knows nothing about edges, nodes, or
// transitions — only the executors it wraps do.
package orchestrator

import (
	"context"

	"github.com/virtualpytest/core/internal/domain"
	"github.com/virtualpytest/core/internal/execaction"
	"github.com/virtualpytest/core/internal/execblock"
	"github.com/virtualpytest/core/internal/execverify"
	"github.com/virtualpytest/core/internal/logging"
	"github.com/virtualpytest/core/internal/navexec"
)

// Orchestrator dispatches to the action/verification/block/navigation
// executors, attaching captured logs and a success flag to every
// result.
type Orchestrator struct {
	actions       *execaction.Executor
	verifications *execverify.Executor
	blocks        *execblock.Registry
	navigation    *navexec.Executor
}

// New returns an Orchestrator wired to the four underlying executors.
func New(actions *execaction.Executor, verifications *execverify.Executor, blocks *execblock.Registry, navigation *navexec.Executor) *Orchestrator {
	return &Orchestrator{actions: actions, verifications: verifications, blocks: blocks, navigation: navigation}
}

// Envelope wraps any executor result with the logs captured during its
// execution and a top-level success flag.
type Envelope struct {
	Success bool
	Logs    string
	Result  any
}

// ExecuteActions dispatches to the action executor with log capture.
func (o *Orchestrator) ExecuteActions(ctx context.Context, p execaction.Params, actions, retry, failure []*domain.Action) *Envelope {
	result, logs, err := logging.ExecuteWithLogging(ctx, func(ctx context.Context) (*domain.ActionBatchResult, error) {
		return o.actions.ExecuteActions(ctx, p, actions, retry, failure)
	})
	if err != nil {
		return &Envelope{Success: false, Logs: logs, Result: nil}
	}
	return &Envelope{Success: result.Success, Logs: logs, Result: result}
}

// ExecuteVerifications dispatches to the verification executor with
// log capture.
func (o *Orchestrator) ExecuteVerifications(ctx context.Context, p execverify.Params, verifications []*domain.Verification) *Envelope {
	result, logs, err := logging.ExecuteWithLogging(ctx, func(ctx context.Context) (*domain.VerificationBatchResult, error) {
		return o.verifications.ExecuteVerifications(ctx, p, verifications)
	})
	if err != nil {
		return &Envelope{Success: false, Logs: logs, Result: nil}
	}
	return &Envelope{Success: result.Success, Logs: logs, Result: result}
}

// ExecuteBlocks dispatches to the standard block registry with log
// capture.
func (o *Orchestrator) ExecuteBlocks(ctx context.Context, command string, params map[string]any) *Envelope {
	result, logs, err := logging.ExecuteWithLogging(ctx, func(ctx context.Context) (*execblock.Result, error) {
		return o.blocks.Execute(ctx, command, params)
	})
	if err != nil {
		return &Envelope{Success: false, Logs: logs, Result: nil}
	}
	return &Envelope{Success: result.Success, Logs: logs, Result: result}
}

// ExecuteNavigation dispatches to the navigation executor with log
// capture.
func (o *Orchestrator) ExecuteNavigation(ctx context.Context, req navexec.Request) *Envelope {
	result, logs, err := logging.ExecuteWithLogging(ctx, func(ctx context.Context) (*navexec.Result, error) {
		return o.navigation.Execute(ctx, req)
	})
	if err != nil {
		return &Envelope{Success: false, Logs: logs, Result: &navexec.Result{Success: false, Error: err.Error()}}
	}
	return &Envelope{Success: result.Success, Logs: logs, Result: result}
}
