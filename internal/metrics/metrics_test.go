package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorders(t *testing.T) {
	m := New()

	m.ObserveAPI("GET", "/project/get-projects", "200", 20*time.Millisecond)
	m.ObserveAPI("GET", "/project/get-projects", "200", 30*time.Millisecond)
	m.RecordRefresh("ok")
	m.RecordPollTick("project_create", "pending")
	m.PollerStarted()
	m.PollerStarted()
	m.PollerStopped()
	m.RecordAlert("error")
	m.RecordStale("projects")
	m.RecordError("api", "decode")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.APIRequestsTotal.WithLabelValues("GET", "/project/get-projects", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokenRefreshes.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PollTicksTotal.WithLabelValues("project_create", "pending")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PollersActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlertsTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StaleResponses.WithLabelValues("projects")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("api", "decode")))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveAPI("GET", "/x", "200", time.Millisecond)
		m.RecordRefresh("ok")
		m.RecordPollTick("p", "ok")
		m.PollerStarted()
		m.PollerStopped()
		m.RecordAlert("info")
		m.RecordStale("s")
		m.RecordError("m", "t")
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.RecordAlert("success")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `geoai_alerts_total{severity="success"} 1`)
}
