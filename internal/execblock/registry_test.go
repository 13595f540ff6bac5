package execblock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteRunsRegisteredBlock(t *testing.T) {
	r := NewRegistry()
	r.Register(&Block{
		Info: Info{Command: "sleep"},
		Run: func(ctx context.Context, params map[string]any) (*Result, error) {
			return &Result{Success: true, Message: "slept"}, nil
		},
	})

	res, err := r.Execute(context.Background(), "sleep", nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "slept", res.Message)
}

func TestExecuteUnknownCommandReturnsAvailableBlocks(t *testing.T) {
	r := NewRegistry()
	r.Register(&Block{Info: Info{Command: "sleep"}, Run: func(ctx context.Context, params map[string]any) (*Result, error) {
		return &Result{Success: true}, nil
	}})

	res, err := r.Execute(context.Background(), "does-not-exist", nil)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, []string{"sleep"}, res.Extra["available_blocks"])
}

func TestRegisterLastWriterWins(t *testing.T) {
	r := NewRegistry()
	r.Register(&Block{Info: Info{Command: "cmd"}, Run: func(ctx context.Context, params map[string]any) (*Result, error) {
		return &Result{Message: "first"}, nil
	}})
	r.Register(&Block{Info: Info{Command: "cmd"}, Run: func(ctx context.Context, params map[string]any) (*Result, error) {
		return &Result{Message: "second"}, nil
	}})

	res, _ := r.Execute(context.Background(), "cmd", nil)
	assert.Equal(t, "second", res.Message)
}

func TestStartAsyncTransitionsToCompleted(t *testing.T) {
	r := NewRegistry()
	r.Register(&Block{Info: Info{Command: "job"}, Run: func(ctx context.Context, params map[string]any) (*Result, error) {
		return &Result{Success: true, Message: "done"}, nil
	}})
	a := NewAsyncExecutor(r)

	id := a.StartAsync(context.Background(), "job", nil)
	require.NotEmpty(t, id)

	require.Eventually(t, func() bool {
		rec := a.Status(id)
		return rec != nil && rec.Status == AsyncCompleted
	}, time.Second, 5*time.Millisecond)

	rec := a.Status(id)
	assert.Equal(t, "done", rec.Result.Message)
}

func TestStartAsyncTransitionsToFailedOnError(t *testing.T) {
	r := NewRegistry()
	r.Register(&Block{Info: Info{Command: "job"}, Run: func(ctx context.Context, params map[string]any) (*Result, error) {
		return nil, errors.New("boom")
	}})
	a := NewAsyncExecutor(r)

	id := a.StartAsync(context.Background(), "job", nil)

	require.Eventually(t, func() bool {
		rec := a.Status(id)
		return rec != nil && rec.Status == AsyncFailed
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, "boom", a.Status(id).Error)
}

func TestStatusUnknownIDReturnsNil(t *testing.T) {
	a := NewAsyncExecutor(NewRegistry())
	assert.Nil(t, a.Status("does-not-exist"))
}

func TestUpdateProgressSetsField(t *testing.T) {
	r := NewRegistry()
	blocked := make(chan struct{})
	r.Register(&Block{Info: Info{Command: "job"}, Run: func(ctx context.Context, params map[string]any) (*Result, error) {
		<-blocked
		return &Result{Success: true}, nil
	}})
	a := NewAsyncExecutor(r)
	id := a.StartAsync(context.Background(), "job", nil)

	a.UpdateProgress(id, map[string]any{"step": 1})
	rec := a.Status(id)
	require.NotNil(t, rec)
	assert.Equal(t, map[string]any{"step": 1}, rec.Progress)

	close(blocked)
}
