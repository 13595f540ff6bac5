package execaction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtualpytest/core/internal/controller"
	"github.com/virtualpytest/core/internal/domain"
)

type fakeController struct {
	results map[string]*controller.Result
	err     error
}

func (f *fakeController) ExecuteCommand(ctx context.Context, command string, params map[string]any) (*controller.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.results[command]; ok {
		return r, nil
	}
	return &controller.Result{Success: true}, nil
}

func (f *fakeController) ExecuteVerification(ctx context.Context, v *domain.Verification) (*controller.Result, error) {
	return &controller.Result{Success: true}, nil
}

func newExecutor(deviceKey string, c controller.Controller) *Executor {
	reg := controller.NewRegistry()
	reg.Register(deviceKey, c)
	return New(reg, nil, nil)
}

func TestExecuteActionsAllPass(t *testing.T) {
	ex := newExecutor("host:dev1", &fakeController{})

	result, err := ex.ExecuteActions(context.Background(), Params{DeviceKey: "host:dev1"},
		[]*domain.Action{{ID: "a1", Command: "tap"}, {ID: "a2", Command: "swipe"}}, nil, nil)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.PassedCount)
	assert.Equal(t, 2, result.TotalCount)
}

func TestExecuteActionsEmptyBatchSucceedsVacuously(t *testing.T) {
	ex := newExecutor("host:dev1", &fakeController{})

	result, err := ex.ExecuteActions(context.Background(), Params{DeviceKey: "host:dev1"}, nil, nil, nil)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 0, result.TotalCount)
}

func TestExecuteActionsDropsActionsMissingRequiredInput(t *testing.T) {
	ex := newExecutor("host:dev1", &fakeController{})

	result, err := ex.ExecuteActions(context.Background(), Params{DeviceKey: "host:dev1"},
		[]*domain.Action{
			{ID: "a1", Command: "input_text", RequiresInput: true}, // dropped: no InputValue
			{ID: "a2", Command: "tap"},
		}, nil, nil)

	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "a2", result.Results[0].ActionID)
}

func TestExecuteActionsRetryRecoversFromMainFailure(t *testing.T) {
	c := &fakeController{results: map[string]*controller.Result{
		"tap": {Success: false, Message: "not found"},
	}}
	ex := newExecutor("host:dev1", c)

	result, err := ex.ExecuteActions(context.Background(), Params{DeviceKey: "host:dev1"},
		[]*domain.Action{{ID: "a1", Command: "tap"}},
		[]*domain.Action{{ID: "r1", Command: "swipe"}},
		nil)

	require.NoError(t, err)
	assert.True(t, result.Success, "retry action passing should bring the batch back to success")
	require.Len(t, result.Results, 2)
}

func TestExecuteActionsRunsFailureActionsWithoutFlippingSuccess(t *testing.T) {
	c := &fakeController{results: map[string]*controller.Result{
		"tap":   {Success: false, Message: "not found"},
		"swipe": {Success: false, Message: "still not found"},
	}}
	ex := newExecutor("host:dev1", c)

	result, err := ex.ExecuteActions(context.Background(), Params{DeviceKey: "host:dev1"},
		[]*domain.Action{{ID: "a1", Command: "tap"}},
		[]*domain.Action{{ID: "r1", Command: "swipe"}},
		[]*domain.Action{{ID: "f1", Command: "screenshot"}})

	require.NoError(t, err)
	assert.False(t, result.Success)
	require.Len(t, result.Results, 3, "main + retry + failure actions are all recorded")
	assert.Equal(t, "f1", result.Results[2].ActionID)
}

func TestExecuteActionsUnresolvedControllerMarksHostError(t *testing.T) {
	reg := controller.NewRegistry()
	ex := New(reg, nil, nil)

	result, err := ex.ExecuteActions(context.Background(), Params{DeviceKey: "host:missing"},
		[]*domain.Action{{ID: "a1", Command: "tap"}}, nil, nil)

	require.NoError(t, err)
	assert.False(t, result.Success)
	require.Len(t, result.Results, 1)
	assert.Equal(t, domain.ErrCodeHostError, result.Results[0].ErrorCode)
}
