package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtualpytest/core/internal/controller"
	"github.com/virtualpytest/core/internal/domain"
	"github.com/virtualpytest/core/internal/execaction"
	"github.com/virtualpytest/core/internal/execblock"
	"github.com/virtualpytest/core/internal/execverify"
	"github.com/virtualpytest/core/internal/logging"
)

type fakeController struct {
	success bool
}

func (f *fakeController) ExecuteCommand(ctx context.Context, command string, params map[string]any) (*controller.Result, error) {
	logging.Printf(ctx, "executing %s", command)
	return &controller.Result{Success: f.success, Message: command}, nil
}

func (f *fakeController) ExecuteVerification(ctx context.Context, v *domain.Verification) (*controller.Result, error) {
	return &controller.Result{Success: f.success}, nil
}

func newTestOrchestrator(success bool) *Orchestrator {
	reg := controller.NewRegistry()
	reg.Register("host:dev1", &fakeController{success: success})
	actions := execaction.New(reg, nil, nil)
	verifications := execverify.New(reg, nil, nil)
	blocks := execblock.NewRegistry()
	return New(actions, verifications, blocks, nil)
}

func TestExecuteActionsEnvelopeCapturesLogsAndSuccess(t *testing.T) {
	o := newTestOrchestrator(true)

	env := o.ExecuteActions(context.Background(), execaction.Params{DeviceKey: "host:dev1"},
		[]*domain.Action{{ID: "a1", Command: "tap"}}, nil, nil)

	assert.True(t, env.Success)
	assert.Contains(t, env.Logs, "executing tap")
	require.NotNil(t, env.Result)
}

func TestExecuteActionsEnvelopeReflectsFailure(t *testing.T) {
	o := newTestOrchestrator(false)

	env := o.ExecuteActions(context.Background(), execaction.Params{DeviceKey: "host:dev1"},
		[]*domain.Action{{ID: "a1", Command: "tap"}}, nil, nil)

	assert.False(t, env.Success)
}

func TestExecuteVerificationsEnvelope(t *testing.T) {
	o := newTestOrchestrator(true)

	env := o.ExecuteVerifications(context.Background(), execverify.Params{DeviceKey: "host:dev1"},
		[]*domain.Verification{{ID: "v1", VerificationType: domain.VerificationTypeText, Params: map[string]any{"text": "hi"}}})

	assert.True(t, env.Success)
}

func TestExecuteBlocksEnvelopeUnknownCommandFails(t *testing.T) {
	o := newTestOrchestrator(true)

	env := o.ExecuteBlocks(context.Background(), "does-not-exist", nil)

	assert.False(t, env.Success)
}
