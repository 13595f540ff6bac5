// Package harness provides the scaffolding invoked at the top of every
// user script: argument parsing, device lock acquisition, tree
// loading, and the always-runs report/record/release tail regardless
// of how the script's own function exits.
package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/virtualpytest/core/internal/devicelock"
	"github.com/virtualpytest/core/internal/domain"
	"github.com/virtualpytest/core/internal/graph"
	"github.com/virtualpytest/core/internal/logging"
	"github.com/virtualpytest/core/internal/observability"
	"github.com/virtualpytest/core/internal/report"
	"github.com/virtualpytest/core/internal/store"
)

// Exit codes returned by Run, matching the harness's documented CLI
// contract.
const (
	ExitSuccess   = 0
	ExitFailure   = 1
	ExitInterrupt = 130
)

// ScriptFunc is a user script's entry point, invoked with the bound
// execution context, a device key already locked for the duration of
// the call, and the parsed argument map.
type ScriptFunc func(ctx context.Context, execCtx *domain.ExecutionContext, args map[string]any) error

// Params identifies the script being run and the device it runs
// against.
type Params struct {
	ScriptName        string
	UserinterfaceName string
	TeamID            string
	HostName          string
	DeviceKey         string // "<host_name>:<device_id>"
	DeviceModel       string
	Declared          []ArgSpec
	Argv              []string
}

// Harness wires the lock coordinator, graph cache, and execution store
// every script run needs.
type Harness struct {
	locks     *devicelock.Coordinator
	cache     *graph.Cache
	execStore store.ExecutionStore
}

// New returns a Harness.
func New(locks *devicelock.Coordinator, cache *graph.Cache, execStore store.ExecutionStore) *Harness {
	return &Harness{locks: locks, cache: cache, execStore: execStore}
}

// Run executes fn under the full harness contract and returns the
// process exit code the caller's main() should use.
func (h *Harness) Run(ctx context.Context, p Params, fn ScriptFunc) int {
	ctx, span := observability.StartSpan(ctx, "harness.Run",
		observability.AttrTeamID.String(p.TeamID),
		observability.AttrHostName.String(p.HostName),
		observability.AttrDeviceKey.String(p.DeviceKey),
	)
	defer span.End()

	args, err := ParseArgs(p.Declared, p.Argv)
	if err != nil {
		observability.SetSpanError(span, err)
		logging.Printf(ctx, "harness: %v", err)
		return ExitFailure
	}

	sessionID := uuid.NewString()
	if !h.locks.LockDevice(p.DeviceKey, sessionID) {
		err := fmt.Errorf("device %s is already locked", p.DeviceKey)
		observability.SetSpanError(span, err)
		logging.Printf(ctx, "harness: %v", err)
		return ExitFailure
	}
	defer h.locks.UnlockDevice(p.DeviceKey, sessionID)

	entry, err := h.cache.GetByUserinterfaceName(ctx, p.TeamID, p.UserinterfaceName)
	if err != nil {
		observability.SetSpanError(span, err)
		logging.Printf(ctx, "harness: load tree: %v", err)
		return ExitFailure
	}

	execCtx := domain.NewExecutionContext(p.HostName, p.DeviceKey, p.TeamID)
	execCtx.UserinterfaceName = p.UserinterfaceName
	execCtx.TreeID = entry.TreeID

	resultID, err := h.execStore.RecordScriptResult(ctx, &store.ScriptResultRecord{
		ID:                uuid.NewString(),
		TeamID:            p.TeamID,
		ScriptName:        p.ScriptName,
		UserinterfaceName: p.UserinterfaceName,
		HostName:          p.HostName,
		DeviceName:        p.DeviceKey,
		StartedAt:         execCtx.StartTime,
		CompletedAt:       execCtx.StartTime,
	})
	if err != nil {
		observability.SetSpanError(span, err)
		logging.Printf(ctx, "harness: pre-record script result: %v", err)
		return ExitFailure
	}
	execCtx.ScriptResultID = &resultID

	runErr := h.invoke(ctx, execCtx, args, fn)
	execCtx.OverallSuccess = runErr == nil
	if runErr != nil {
		execCtx.ErrorMessage = runErr.Error()
	}

	exitCode := ExitSuccess
	switch {
	case ctx.Err() == context.Canceled:
		exitCode = ExitInterrupt
	case runErr != nil:
		exitCode = ExitFailure
	}

	h.finish(ctx, p, execCtx)
	if runErr != nil {
		observability.SetSpanError(span, runErr)
	} else {
		observability.SetSpanOK(span)
	}
	return exitCode
}

// invoke isolates fn's panic surface from the always-runs tail: a
// script that panics still gets a report and a release.
func (h *Harness) invoke(ctx context.Context, execCtx *domain.ExecutionContext, args map[string]any, fn ScriptFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("script panicked: %v", r)
		}
	}()
	return fn(ctx, execCtx, args)
}

// finish generates the report and finalizes the pre-recorded script
// result row, regardless of how the script's own function exited.
func (h *Harness) finish(ctx context.Context, p Params, execCtx *domain.ExecutionContext) {
	summary := report.Generate(execCtx)

	id, ok := execCtx.RequireScriptResultID()
	if !ok {
		return
	}
	if err := h.execStore.UpdateScriptResult(ctx, id, summary.Success, summary.ErrorMessage,
		summary.TotalDurationMS, "", time.Now()); err != nil {
		logging.Printf(ctx, "harness: update script result: %v", err)
	}
}
