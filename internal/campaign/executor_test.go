package campaign

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtualpytest/core/internal/domain"
	"github.com/virtualpytest/core/internal/store"
)

type fakeExecStore struct {
	nextResultID int
	results      map[string]string // script name -> result id
	campaigns    map[string]*domain.CampaignExecution
	linked       map[string][]string
}

func newFakeExecStore() *fakeExecStore {
	return &fakeExecStore{
		results:   make(map[string]string),
		campaigns: make(map[string]*domain.CampaignExecution),
		linked:    make(map[string][]string),
	}
}

func (f *fakeExecStore) RecordEdgeExecution(ctx context.Context, rec *store.EdgeExecutionRecord) error { return nil }
func (f *fakeExecStore) RecordNodeExecution(ctx context.Context, rec *store.NodeExecutionRecord) error { return nil }
func (f *fakeExecStore) RecordScriptResult(ctx context.Context, rec *store.ScriptResultRecord) (string, error) {
	return "", nil
}
func (f *fakeExecStore) UpdateScriptResult(ctx context.Context, id string, success bool, errorMessage string, durationMS int64, reportURL string, completedAt time.Time) error {
	return nil
}

func (f *fakeExecStore) FindRecentScriptResult(ctx context.Context, teamID, scriptName string, after, before time.Time) (string, error) {
	id, ok := f.results[scriptName]
	if !ok {
		return "", fmt.Errorf("no recorded result for %s", scriptName)
	}
	return id, nil
}

func (f *fakeExecStore) RecordCampaignStart(ctx context.Context, camp *domain.CampaignExecution) (string, error) {
	id := fmt.Sprintf("campaign-%d", len(f.campaigns)+1)
	f.campaigns[id] = camp
	return id, nil
}

func (f *fakeExecStore) AppendCampaignScriptResult(ctx context.Context, campaignExecutionID, scriptResultID string) error {
	f.linked[campaignExecutionID] = append(f.linked[campaignExecutionID], scriptResultID)
	return nil
}

func (f *fakeExecStore) UpdateCampaignResult(ctx context.Context, campaignExecutionID string, status domain.CampaignStatus, successful, failed int, success bool, reportURL string, durationMS int64) error {
	camp := f.campaigns[campaignExecutionID]
	camp.Status = status
	camp.SuccessfulScripts = successful
	camp.FailedScripts = failed
	camp.Success = success
	return nil
}

func (f *fakeExecStore) recordResult(scriptName string) string {
	f.nextResultID++
	id := fmt.Sprintf("result-%d", f.nextResultID)
	f.results[scriptName] = id
	return id
}

func TestCampaignExecuteAllScriptsSucceed(t *testing.T) {
	fs := newFakeExecStore()
	fs.recordResult("smoke")
	fs.recordResult("regression")

	runner := func(ctx context.Context, cfg domain.ScriptConfiguration) (bool, error) { return true, nil }
	ex := New(fs, runner, nil)

	camp, err := ex.Execute(context.Background(), Params{
		TeamID: "team1", CampaignName: "nightly",
		ScriptConfigs: []domain.ScriptConfiguration{{ScriptName: "smoke"}, {ScriptName: "regression"}},
	})

	require.NoError(t, err)
	assert.True(t, camp.Success)
	assert.Equal(t, domain.CampaignCompleted, camp.Status)
	assert.Equal(t, 2, camp.SuccessfulScripts)
	assert.Equal(t, 0, camp.FailedScripts)
	assert.Len(t, camp.ScriptResultIDs, 2)
}

// TestCampaignExecuteContinueOnFailure is spec scenario S6: two scripts,
// first succeeds, second runs and records a failed result,
// continue_on_failure=true. Both children recorded a result, so both
// must be linked into the campaign regardless of outcome.
func TestCampaignExecuteContinueOnFailure(t *testing.T) {
	fs := newFakeExecStore()
	fs.recordResult("smoke")
	fs.recordResult("regression")

	runner := func(ctx context.Context, cfg domain.ScriptConfiguration) (bool, error) {
		return cfg.ScriptName != "regression", nil
	}
	ex := New(fs, runner, nil)

	camp, err := ex.Execute(context.Background(), Params{
		TeamID: "team1", CampaignName: "nightly",
		Policy:        domain.ExecutionPolicy{ContinueOnFailure: true},
		ScriptConfigs: []domain.ScriptConfiguration{{ScriptName: "smoke"}, {ScriptName: "regression"}},
	})

	require.NoError(t, err)
	assert.False(t, camp.Success)
	assert.Equal(t, domain.CampaignFailed, camp.Status)
	assert.Equal(t, 1, camp.SuccessfulScripts)
	assert.Equal(t, 1, camp.FailedScripts)
	assert.Len(t, camp.ScriptResultIDs, 2, "both children link their recorded result, regardless of outcome")
}

func TestCampaignExecuteStopsWithoutContinueOnFailure(t *testing.T) {
	fs := newFakeExecStore()
	callCount := 0
	runner := func(ctx context.Context, cfg domain.ScriptConfiguration) (bool, error) {
		callCount++
		return false, fmt.Errorf("script %s crashed", cfg.ScriptName)
	}
	ex := New(fs, runner, nil)

	camp, err := ex.Execute(context.Background(), Params{
		TeamID: "team1", CampaignName: "nightly",
		ScriptConfigs: []domain.ScriptConfiguration{{ScriptName: "a"}, {ScriptName: "b"}},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, callCount, "second script must not run once the first fails without continue_on_failure")
	assert.Equal(t, 1, camp.FailedScripts)
	assert.False(t, camp.Success)
}
