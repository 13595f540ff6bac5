package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtualpytest/core/internal/domain"
)

func TestGenerateEmptyContextProducesEmptySummary(t *testing.T) {
	ctx := domain.NewExecutionContext("host1", "host1:dev1", "team1")

	summary := Generate(ctx)

	assert.False(t, summary.Success, "OverallSuccess defaults to false until the harness sets it")
	assert.Equal(t, 0, summary.TotalSteps)
	assert.Empty(t, summary.Steps)
}

func TestGenerateCountsPassedAndFailedSteps(t *testing.T) {
	ctx := domain.NewExecutionContext("host1", "host1:dev1", "team1")
	ctx.OverallSuccess = true
	ctx.AppendStep(&domain.StepResult{Success: true, ExecutionTimeMS: 100})
	ctx.AppendStep(&domain.StepResult{Success: false, ExecutionTimeMS: 200, Message: "mismatch"})

	summary := Generate(ctx)

	require.Equal(t, 2, summary.TotalSteps)
	assert.Equal(t, 1, summary.PassedSteps)
	assert.Equal(t, 1, summary.FailedSteps)
	assert.Equal(t, int64(300), summary.TotalDurationMS)
	require.Len(t, summary.Steps, 2)
	assert.Equal(t, 1, summary.Steps[0].StepNumber)
	assert.Equal(t, 2, summary.Steps[1].StepNumber)
}

func TestGenerateCarriesErrorMessageAndScreenshots(t *testing.T) {
	ctx := domain.NewExecutionContext("host1", "host1:dev1", "team1")
	ctx.ErrorMessage = "device disconnected"
	ctx.AppendScreenshot("/tmp/shot1.png")

	summary := Generate(ctx)

	assert.Equal(t, "device disconnected", summary.ErrorMessage)
	assert.Equal(t, []string{"/tmp/shot1.png"}, summary.ScreenshotPaths)
}
