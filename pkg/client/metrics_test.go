package client

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordDialAttempt()
	m.RecordDialAttempt()
	m.RecordTokenRotation()
	m.RecordNotification(LevelWarning)
	m.RecordConnectionState(StateReady)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.reconnectAttempts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tokenRotations))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("warning")))
	assert.Equal(t, float64(StateReady), testutil.ToFloat64(m.connectionState))
}

func TestMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg).RecordFrameSent("login")

	srv := httptest.NewServer(MetricsHandler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `votefeed_client_frames_sent_total{type="login"} 1`)

	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
