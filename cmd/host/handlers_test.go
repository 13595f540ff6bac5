package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtualpytest/core/internal/controller"
	"github.com/virtualpytest/core/internal/devicelock"
	"github.com/virtualpytest/core/internal/domain"
	"github.com/virtualpytest/core/internal/execaction"
	"github.com/virtualpytest/core/internal/execblock"
	"github.com/virtualpytest/core/internal/execverify"
	"github.com/virtualpytest/core/internal/metrics"
	"github.com/virtualpytest/core/internal/navexec"
	"github.com/virtualpytest/core/internal/orchestrator"
)

type fakeController struct {
	success bool
}

func (f *fakeController) ExecuteCommand(ctx context.Context, command string, params map[string]any) (*controller.Result, error) {
	return &controller.Result{Success: f.success}, nil
}

func (f *fakeController) ExecuteVerification(ctx context.Context, v *domain.Verification) (*controller.Result, error) {
	return &controller.Result{Success: f.success}, nil
}

func newTestHostServer(success bool) *hostServer {
	reg := controller.NewRegistry()
	reg.Register("myhost:dev1", &fakeController{success: success})
	actions := execaction.New(reg, nil, nil)
	verifications := execverify.New(reg, nil, nil)
	blocks := execblock.NewRegistry()
	nav := navexec.New(nil, actions, verifications, nil)
	orch := orchestrator.New(actions, verifications, blocks, nav)
	return &hostServer{
		orch:        orch,
		locks:       devicelock.New(metrics.New("test")),
		asyncBlocks: execblock.NewAsyncExecutor(blocks),
		hostName:    "myhost",
	}
}

func TestHandleTypedVerificationExecutesAsImage(t *testing.T) {
	h := newTestHostServer(true)

	body := `{"team_id":"team1","device_id":"dev1","node_id":"n1","params":{"image_path":"/tmp/a.png"}}`
	req := httptest.NewRequest(http.MethodPost, "/host/verification/image/execute", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.handleTypedVerification(domain.VerificationTypeImage)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
}

func TestHandleTypedVerificationMalformedBodyRejected(t *testing.T) {
	h := newTestHostServer(true)

	req := httptest.NewRequest(http.MethodPost, "/host/verification/text/execute", strings.NewReader("not json"))
	rec := httptest.NewRecorder()

	h.handleTypedVerification(domain.VerificationTypeText)(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleBuilderExecuteAndStatusRoundTrip(t *testing.T) {
	h := newTestHostServer(true)
	h.asyncBlocks.UpdateProgress("ignored", nil) // no-op sanity call against a fresh executor

	body := `{"command":"does-not-exist","params":{}}`
	req := httptest.NewRequest(http.MethodPost, "/host/builder/execute", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.handleBuilderExecute(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var started map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	id, _ := started["execution_id"].(string)
	require.NotEmpty(t, id)

	require.Eventually(t, func() bool {
		statusReq := httptest.NewRequest(http.MethodGet, "/host/builder/execution/"+id+"/status", nil)
		statusReq.SetPathValue("id", id)
		statusRec := httptest.NewRecorder()
		h.handleBuilderStatus(statusRec, statusReq)
		return statusRec.Code == http.StatusOK && strings.Contains(statusRec.Body.String(), `"Status":"completed"`)
	}, time.Second, 5*time.Millisecond)
}

func TestHandleBuilderStatusUnknownIDReturnsNotFound(t *testing.T) {
	h := newTestHostServer(true)

	req := httptest.NewRequest(http.MethodGet, "/host/builder/execution/missing/status", nil)
	req.SetPathValue("id", "missing")
	rec := httptest.NewRecorder()

	h.handleBuilderStatus(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
