package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordActionBatchIncrementsByOutcome(t *testing.T) {
	r := New("test_action")

	r.RecordActionBatch(true, 3)
	r.RecordActionBatch(false, 1)
	r.RecordActionBatch(true, 2)

	assert.Equal(t, float64(2), testutil.ToFloat64(r.actionBatchesTotal.WithLabelValues("true")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.actionBatchesTotal.WithLabelValues("false")))
}

func TestSetTasksActiveOverwritesGaugeValue(t *testing.T) {
	r := New("test_tasks")

	r.SetTasksActive("running", 5)
	r.SetTasksActive("running", 2)

	assert.Equal(t, float64(2), testutil.ToFloat64(r.tasksActive.WithLabelValues("running")))
}

func TestSetDevicesLockedSetsGauge(t *testing.T) {
	r := New("test_devices")

	r.SetDevicesLocked(4)

	assert.Equal(t, float64(4), testutil.ToFloat64(r.devicesLocked))
}

func TestRecordCampaignIncrementsByOutcome(t *testing.T) {
	r := New("test_campaign")

	r.RecordCampaign(true)
	r.RecordCampaign(true)
	r.RecordCampaign(false)

	assert.Equal(t, float64(2), testutil.ToFloat64(r.campaignsTotal.WithLabelValues("true")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.campaignsTotal.WithLabelValues("false")))
}

func TestNilRecorderMethodsAreNoop(t *testing.T) {
	var r *Recorder

	assert.NotPanics(t, func() {
		r.RecordActionBatch(true, 1)
		r.RecordVerificationBatch(true)
		r.RecordNavigation(true, 100)
		r.RecordPathfind(1.5, 3)
		r.SetTasksActive("running", 1)
		r.SetDevicesLocked(1)
		r.RecordCampaign(true)
	})
}

func TestHandlerServesPrometheusExposition(t *testing.T) {
	r := New("test_handler")
	r.RecordCampaign(true)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_handler_campaigns_total")
}
