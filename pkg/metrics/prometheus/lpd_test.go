package prometheus

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/lpspool/pkg/metrics"
)

func TestSessionMetricsRecording(t *testing.T) {
	metrics.ResetForTesting()
	t.Cleanup(metrics.ResetForTesting)
	metrics.InitRegistry()

	m := metrics.NewSessionMetrics()
	require.NotNil(t, m)

	// ====================================================================
	// Session lifecycle
	// ====================================================================

	m.RecordSessionStart()
	reg := metrics.GetRegistry()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.(*sessionMetrics).sessionsInFlight))

	m.RecordSessionEnd("spooling", 150*time.Millisecond, "helper")
	assert.Equal(t, float64(0), testutil.ToFloat64(m.(*sessionMetrics).sessionsInFlight))

	// ====================================================================
	// File, job, error, and connection counters
	// ====================================================================

	m.RecordFileReceived("data", "spooling", 4096)
	m.RecordFileReceived("control", "spooling", 112)
	m.RecordProtocolError("bad_length")
	m.RecordJobCommitted("laser")
	m.RecordHelperLaunched()
	m.RecordConnectionAccepted()
	m.RecordConnectionClosed()
	m.SetActiveConnections(3)

	expected := strings.NewReader(`
# HELP lpspool_bytes_received_total Payload bytes received, by file kind and queue mode
# TYPE lpspool_bytes_received_total counter
lpspool_bytes_received_total{kind="control",mode="spooling"} 112
lpspool_bytes_received_total{kind="data",mode="spooling"} 4096
# HELP lpspool_jobs_committed_total Jobs whose control and data files were both committed
# TYPE lpspool_jobs_committed_total counter
lpspool_jobs_committed_total{queue="laser"} 1
# HELP lpspool_protocol_errors_total Terminal session errors by classification
# TYPE lpspool_protocol_errors_total counter
lpspool_protocol_errors_total{kind="bad_length"} 1
`)
	assert.NoError(t, testutil.GatherAndCompare(reg, expected,
		"lpspool_bytes_received_total",
		"lpspool_jobs_committed_total",
		"lpspool_protocol_errors_total",
	))

	assert.Equal(t, float64(3), testutil.ToFloat64(m.(*sessionMetrics).activeConnections))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.(*sessionMetrics).helpersLaunched))
}
