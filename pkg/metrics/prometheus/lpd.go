// Package prometheus provides the Prometheus implementation of the metrics
// interfaces in pkg/metrics. Importing it (for side effects) wires the
// constructors into the interface package:
//
//	import _ "github.com/marmos91/lpspool/pkg/metrics/prometheus"
package prometheus

import (
	"time"

	"github.com/marmos91/lpspool/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func init() {
	metrics.RegisterSessionMetricsConstructor(newSessionMetrics)
}

// sessionMetrics is the Prometheus implementation of metrics.SessionMetrics.
type sessionMetrics struct {
	sessionsInFlight  prometheus.Gauge
	sessionDuration   *prometheus.HistogramVec
	filesReceived     *prometheus.CounterVec
	bytesReceived     *prometheus.CounterVec
	protocolErrors    *prometheus.CounterVec
	jobsCommitted     *prometheus.CounterVec
	helpersLaunched   prometheus.Counter
	connsAccepted     prometheus.Counter
	connsClosed       prometheus.Counter
	connsForceClosed  prometheus.Counter
	activeConnections prometheus.Gauge
}

func newSessionMetrics() metrics.SessionMetrics {
	reg := metrics.GetRegistry()
	if reg == nil {
		return nil
	}

	return &sessionMetrics{
		sessionsInFlight: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "lpspool_sessions_in_flight",
			Help: "Number of sessions currently being served",
		}),
		sessionDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "lpspool_session_duration_seconds",
				Help: "Session duration by queue mode and outcome",
				Buckets: []float64{
					0.001, // trivial rejects
					0.01,
					0.1,
					1,
					10,   // typical full job over LAN
					60,   // slow printers
					600,  // very large data files
				},
			},
			[]string{"mode", "outcome"},
		),
		filesReceived: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "lpspool_files_received_total",
				Help: "Job files fully transferred, by file kind and queue mode",
			},
			[]string{"kind", "mode"}, // kind: "control", "data"
		),
		bytesReceived: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "lpspool_bytes_received_total",
				Help: "Payload bytes received, by file kind and queue mode",
			},
			[]string{"kind", "mode"},
		),
		protocolErrors: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "lpspool_protocol_errors_total",
				Help: "Terminal session errors by classification",
			},
			[]string{"kind"},
		),
		jobsCommitted: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "lpspool_jobs_committed_total",
				Help: "Jobs whose control and data files were both committed",
			},
			[]string{"queue"},
		),
		helpersLaunched: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "lpspool_helpers_launched_total",
			Help: "Print helper invocations",
		}),
		connsAccepted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "lpspool_connections_accepted_total",
			Help: "TCP connections accepted",
		}),
		connsClosed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "lpspool_connections_closed_total",
			Help: "TCP connections closed",
		}),
		connsForceClosed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "lpspool_connections_force_closed_total",
			Help: "TCP connections force-closed after shutdown timeout",
		}),
		activeConnections: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "lpspool_active_connections",
			Help: "Currently open TCP connections",
		}),
	}
}

func (m *sessionMetrics) RecordSessionStart() {
	m.sessionsInFlight.Inc()
}

func (m *sessionMetrics) RecordSessionEnd(mode string, duration time.Duration, outcome string) {
	m.sessionsInFlight.Dec()
	m.sessionDuration.WithLabelValues(mode, outcome).Observe(duration.Seconds())
}

func (m *sessionMetrics) RecordFileReceived(kind string, mode string, bytes uint64) {
	m.filesReceived.WithLabelValues(kind, mode).Inc()
	m.bytesReceived.WithLabelValues(kind, mode).Add(float64(bytes))
}

func (m *sessionMetrics) RecordProtocolError(kind string) {
	m.protocolErrors.WithLabelValues(kind).Inc()
}

func (m *sessionMetrics) RecordJobCommitted(queue string) {
	m.jobsCommitted.WithLabelValues(queue).Inc()
}

func (m *sessionMetrics) RecordHelperLaunched() {
	m.helpersLaunched.Inc()
}

func (m *sessionMetrics) RecordConnectionAccepted() {
	m.connsAccepted.Inc()
}

func (m *sessionMetrics) RecordConnectionClosed() {
	m.connsClosed.Inc()
}

func (m *sessionMetrics) RecordConnectionForceClosed() {
	m.connsForceClosed.Inc()
}

func (m *sessionMetrics) SetActiveConnections(count int32) {
	m.activeConnections.Set(float64(count))
}
