// Package campaign implements the campaign executor: it sequences a
// list of child script executions, links each child's recorded result
// back into the parent campaign record, and rolls up an aggregate
// outcome.
package campaign

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/virtualpytest/core/internal/domain"
	"github.com/virtualpytest/core/internal/logging"
	"github.com/virtualpytest/core/internal/metrics"
	"github.com/virtualpytest/core/internal/observability"
	"github.com/virtualpytest/core/internal/store"
)

// linkWindow is how far before/after a script's invocation the executor
// searches the store for the script result it produced.
const linkWindow = 30 * time.Second

// ScriptRunner launches one child script as its own process and blocks
// until it exits or ctx is cancelled. The command invocation itself
// (binary path, argument encoding) is a harness concern; campaign only
// needs the child's own pass/fail outcome plus a reasonably tight time
// window to search for the result it recorded. success and err are
// distinct: err reports that the child could not be run or its outcome
// could not be determined at all (host unreachable, process failed to
// start); success reports the outcome the child itself recorded, which
// may legitimately be false without err being set.
type ScriptRunner func(ctx context.Context, cfg domain.ScriptConfiguration) (success bool, err error)

// Params identifies the campaign being run.
type Params struct {
	TeamID            string
	CampaignName      string
	UserinterfaceName string
	HostName          string
	DeviceName        string
	ExecutedBy        string
	Policy            domain.ExecutionPolicy
	ScriptConfigs     []domain.ScriptConfiguration
}

// Executor drives a campaign's child scripts in sequence.
type Executor struct {
	execStore store.ExecutionStore
	run       ScriptRunner
	metrics   *metrics.Recorder
}

// New returns an Executor. run is invoked once per configured script.
func New(execStore store.ExecutionStore, run ScriptRunner, m *metrics.Recorder) *Executor {
	return &Executor{execStore: execStore, run: run, metrics: m}
}

// Execute runs every configured script in order, recording a
// campaign-start entry up front and an aggregate result at the end.
func (e *Executor) Execute(ctx context.Context, p Params) (camp *domain.CampaignExecution, err error) {
	ctx, span := observability.StartSpan(ctx, "campaign.Execute",
		observability.AttrTeamID.String(p.TeamID),
	)
	defer func() {
		if err != nil {
			observability.SetSpanError(span, err)
		} else if camp != nil {
			span.SetAttributes(observability.AttrCampaignID.String(camp.CampaignExecutionID))
			observability.SetSpanOK(span)
		}
		span.End()
	}()

	start := time.Now()

	camp = &domain.CampaignExecution{
		CampaignExecutionID:  uuid.NewString(),
		TeamID:               p.TeamID,
		CampaignName:         p.CampaignName,
		UserinterfaceName:    p.UserinterfaceName,
		HostName:             p.HostName,
		DeviceName:           p.DeviceName,
		Status:               domain.CampaignRunning,
		ScriptConfigurations: p.ScriptConfigs,
		ExecutedBy:           p.ExecutedBy,
		StartedAt:            start,
	}

	campaignExecutionID, err := e.execStore.RecordCampaignStart(ctx, camp)
	if err != nil {
		return nil, fmt.Errorf("campaign: record start: %w", err)
	}
	camp.CampaignExecutionID = campaignExecutionID

	for _, cfg := range p.ScriptConfigs {
		resultID, success, runErr := e.runOne(ctx, p, cfg)
		if resultID != "" {
			camp.ScriptResultIDs = append(camp.ScriptResultIDs, resultID)
			if err := e.execStore.AppendCampaignScriptResult(ctx, campaignExecutionID, resultID); err != nil {
				logging.Printf(ctx, "campaign %s: link script result %s: %v", campaignExecutionID, resultID, err)
			}
		}

		if runErr != nil || !success {
			camp.FailedScripts++
			if runErr != nil {
				logging.Printf(ctx, "campaign %s: script %s failed: %v", campaignExecutionID, cfg.ScriptName, runErr)
			} else {
				logging.Printf(ctx, "campaign %s: script %s recorded a failed result", campaignExecutionID, cfg.ScriptName)
			}
			if !p.Policy.ContinueOnFailure {
				break
			}
			continue
		}
		camp.SuccessfulScripts++
	}

	camp.Success = camp.FailedScripts == 0
	camp.Status = domain.CampaignCompleted
	if !camp.Success {
		camp.Status = domain.CampaignFailed
	}
	now := time.Now()
	camp.CompletedAt = &now
	camp.DurationMS = now.Sub(start).Milliseconds()

	if err := e.execStore.UpdateCampaignResult(ctx, campaignExecutionID, camp.Status,
		camp.SuccessfulScripts, camp.FailedScripts, camp.Success, camp.ReportURL, camp.DurationMS); err != nil {
		return camp, fmt.Errorf("campaign: update result: %w", err)
	}
	if e.metrics != nil {
		e.metrics.RecordCampaign(camp.Success)
	}
	return camp, nil
}

// runOne launches one script and attempts to find the result it
// recorded. The child's own success/failure is independent of whether
// it could be run at all: a script that ran and recorded a failure
// still gets looked up and linked, since the campaign record must
// reflect every child that actually executed. Only a run-level error
// (the child could not be launched, or its outcome could not be
// determined) skips the lookup — there is nothing to find.
func (e *Executor) runOne(ctx context.Context, p Params, cfg domain.ScriptConfiguration) (resultID string, success bool, err error) {
	invokedAt := time.Now()
	success, err = e.run(ctx, cfg)
	if err != nil {
		return "", false, fmt.Errorf("run %s: %w", cfg.ScriptName, err)
	}

	resultID, err = e.execStore.FindRecentScriptResult(ctx, p.TeamID, cfg.ScriptName,
		invokedAt.Add(-linkWindow), time.Now().Add(linkWindow))
	if err != nil {
		return "", success, fmt.Errorf("link %s: no result found within window: %w", cfg.ScriptName, err)
	}
	return resultID, success, nil
}
