package harness

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtualpytest/core/internal/devicelock"
	"github.com/virtualpytest/core/internal/domain"
	"github.com/virtualpytest/core/internal/graph"
	"github.com/virtualpytest/core/internal/metrics"
	"github.com/virtualpytest/core/internal/store"
)

type fakeTreeStore struct{}

func (f *fakeTreeStore) GetTree(ctx context.Context, teamID, treeID string) (*domain.Tree, error) {
	return &domain.Tree{TreeID: "tree-1", TeamID: teamID, UserinterfaceName: "ui1"}, nil
}
func (f *fakeTreeStore) GetTreeByName(ctx context.Context, teamID, uiName string) (*domain.Tree, error) {
	return &domain.Tree{TreeID: "tree-1", TeamID: teamID, UserinterfaceName: uiName}, nil
}
func (f *fakeTreeStore) SaveTree(ctx context.Context, tree *domain.Tree) error { return nil }
func (f *fakeTreeStore) GetActions(ctx context.Context, teamID string, ids []string) (map[string]*domain.Action, error) {
	return map[string]*domain.Action{}, nil
}
func (f *fakeTreeStore) GetVerifications(ctx context.Context, teamID string, ids []string) (map[string]*domain.Verification, error) {
	return map[string]*domain.Verification{}, nil
}

type fakeExecStore struct {
	updated     bool
	updatedID   string
	updatedOK   bool
	updatedErr  string
}

func (f *fakeExecStore) RecordEdgeExecution(ctx context.Context, rec *store.EdgeExecutionRecord) error { return nil }
func (f *fakeExecStore) RecordNodeExecution(ctx context.Context, rec *store.NodeExecutionRecord) error { return nil }
func (f *fakeExecStore) RecordScriptResult(ctx context.Context, rec *store.ScriptResultRecord) (string, error) {
	return rec.ID, nil
}
func (f *fakeExecStore) UpdateScriptResult(ctx context.Context, id string, success bool, errorMessage string, durationMS int64, reportURL string, completedAt time.Time) error {
	f.updated = true
	f.updatedID = id
	f.updatedOK = success
	f.updatedErr = errorMessage
	return nil
}
func (f *fakeExecStore) FindRecentScriptResult(ctx context.Context, teamID, scriptName string, after, before time.Time) (string, error) {
	return "", nil
}
func (f *fakeExecStore) RecordCampaignStart(ctx context.Context, camp *domain.CampaignExecution) (string, error) {
	return "", nil
}
func (f *fakeExecStore) AppendCampaignScriptResult(ctx context.Context, campaignExecutionID, scriptResultID string) error {
	return nil
}
func (f *fakeExecStore) UpdateCampaignResult(ctx context.Context, campaignExecutionID string, status domain.CampaignStatus, successful, failed int, success bool, reportURL string, durationMS int64) error {
	return nil
}

func newTestHarness() (*Harness, *fakeExecStore) {
	fs := &fakeExecStore{}
	h := New(devicelock.New(metrics.New("test")), graph.NewCache(&fakeTreeStore{}), fs)
	return h, fs
}

func TestRunSucceedsAndUpdatesScriptResult(t *testing.T) {
	h, fs := newTestHarness()

	code := h.Run(context.Background(), Params{
		ScriptName: "smoke", UserinterfaceName: "ui1", TeamID: "team1",
		HostName: "host1", DeviceKey: "host1:dev1",
	}, func(ctx context.Context, execCtx *domain.ExecutionContext, args map[string]any) error {
		return nil
	})

	assert.Equal(t, ExitSuccess, code)
	assert.True(t, fs.updated)
	assert.True(t, fs.updatedOK)
}

func TestRunScriptErrorReturnsFailureExit(t *testing.T) {
	h, fs := newTestHarness()

	code := h.Run(context.Background(), Params{
		ScriptName: "smoke", UserinterfaceName: "ui1", TeamID: "team1",
		HostName: "host1", DeviceKey: "host1:dev1",
	}, func(ctx context.Context, execCtx *domain.ExecutionContext, args map[string]any) error {
		return errors.New("boom")
	})

	assert.Equal(t, ExitFailure, code)
	assert.False(t, fs.updatedOK)
	assert.Equal(t, "boom", fs.updatedErr)
}

func TestRunPanicIsRecoveredAndReported(t *testing.T) {
	h, fs := newTestHarness()

	code := h.Run(context.Background(), Params{
		ScriptName: "smoke", UserinterfaceName: "ui1", TeamID: "team1",
		HostName: "host1", DeviceKey: "host1:dev1",
	}, func(ctx context.Context, execCtx *domain.ExecutionContext, args map[string]any) error {
		panic("script exploded")
	})

	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, fs.updatedErr, "script exploded")
}

func TestRunDeviceAlreadyLockedFailsFast(t *testing.T) {
	h, _ := newTestHarness()
	h.locks.LockDevice("host1:dev1", "someone-else")

	called := false
	code := h.Run(context.Background(), Params{
		ScriptName: "smoke", UserinterfaceName: "ui1", TeamID: "team1",
		HostName: "host1", DeviceKey: "host1:dev1",
	}, func(ctx context.Context, execCtx *domain.ExecutionContext, args map[string]any) error {
		called = true
		return nil
	})

	assert.Equal(t, ExitFailure, code)
	assert.False(t, called, "a locked device must prevent the script body from ever running")
}

func TestRunMalformedArgvFailsBeforeLocking(t *testing.T) {
	h, _ := newTestHarness()

	code := h.Run(context.Background(), Params{
		ScriptName: "smoke", UserinterfaceName: "ui1", TeamID: "team1",
		HostName: "host1", DeviceKey: "host1:dev1",
		Argv: []string{"not-a-flag"},
	}, func(ctx context.Context, execCtx *domain.ExecutionContext, args map[string]any) error {
		return nil
	})

	assert.Equal(t, ExitFailure, code)
	assert.False(t, h.locks.IsDeviceLocked("host1:dev1"))
}

func TestRunExecCtxCarriesScriptResultIDToScript(t *testing.T) {
	h, _ := newTestHarness()

	var seenID string
	h.Run(context.Background(), Params{
		ScriptName: "smoke", UserinterfaceName: "ui1", TeamID: "team1",
		HostName: "host1", DeviceKey: "host1:dev1",
	}, func(ctx context.Context, execCtx *domain.ExecutionContext, args map[string]any) error {
		id, ok := execCtx.RequireScriptResultID()
		require.True(t, ok)
		seenID = id
		return nil
	})

	assert.NotEmpty(t, seenID)
}
