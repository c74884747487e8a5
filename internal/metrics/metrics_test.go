package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestRecordTransition(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.RecordTransition("campaign", nil)
	m.RecordTransition("campaign", errors.New("boom"))
	m.RecordTransition("campaign", nil)

	out := scrape(t, m)
	assert.Contains(t, out, `test_wizard_transitions_total{result="ok",step="campaign"} 2`)
	assert.Contains(t, out, `test_wizard_transitions_total{result="error",step="campaign"} 1`)
}

func TestRecordUploadAndRemoteCall(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.RecordUpload("fulfilled", 100)
	m.RecordUpload("fulfilled", 50)
	m.RecordRemoteCall("create_ad", nil, 20*time.Millisecond)

	out := scrape(t, m)
	assert.Contains(t, out, `test_uploads_total{status="fulfilled"} 2`)
	assert.Contains(t, out, `test_upload_bytes_total{status="fulfilled"} 150`)
	assert.Contains(t, out, `test_remote_calls_total{op="create_ad",result="ok"} 1`)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordTransition("adset", nil)
		m.RecordUpload("rejected", 1)
		m.RecordDraftOp("redis", "save", nil)
		m.RecordRemoteCall("upload_file", nil, time.Second)
		m.SetActiveWizards(3)
	})
}

func TestActiveWizardsGauge(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())
	m.SetActiveWizards(2)

	assert.Contains(t, scrape(t, m), "test_wizard_active 2")
}
