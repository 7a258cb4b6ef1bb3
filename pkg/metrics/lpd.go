package metrics

import (
	"time"
)

// SessionMetrics provides observability for LPD sessions and the
// connections that carry them.
//
// Implementations may be nil - every consumer treats a nil interface as
// "metrics disabled" with zero overhead. Use the package-level helpers
// (ObserveSession, ObserveFile, ...) when the nil check would otherwise be
// repeated at each call site.
type SessionMetrics interface {
	// RecordSessionStart increments the in-flight session gauge.
	RecordSessionStart()

	// RecordSessionEnd records a finished session with its queue mode
	// ("sink", "spooling", or "unresolved" when the session died before
	// naming a queue), duration, and outcome ("ok", "error", "helper").
	RecordSessionEnd(mode string, duration time.Duration, outcome string)

	// RecordFileReceived records one fully transferred job file by kind
	// ("control", "data") and payload size.
	RecordFileReceived(kind string, mode string, bytes uint64)

	// RecordProtocolError counts a terminal session error by its
	// classification (duplicate_subcommand, length_mismatch, ...).
	RecordProtocolError(kind string)

	// RecordJobCommitted counts a job whose both files were committed.
	RecordJobCommitted(queue string)

	// RecordHelperLaunched counts helper invocations.
	RecordHelperLaunched()

	// Connection lifecycle, recorded by the TCP adapter.
	RecordConnectionAccepted()
	RecordConnectionClosed()
	RecordConnectionForceClosed()
	SetActiveConnections(count int32)
}

// NewSessionMetrics creates a new Prometheus-backed SessionMetrics
// instance, or nil when metrics are not enabled (InitRegistry not called).
func NewSessionMetrics() SessionMetrics {
	if !IsEnabled() || newPrometheusSessionMetrics == nil {
		return nil
	}
	return newPrometheusSessionMetrics()
}

// newPrometheusSessionMetrics is implemented in pkg/metrics/prometheus.
// The indirection keeps this package free of a hard dependency on the
// implementation while letting consumers depend only on the interface.
var newPrometheusSessionMetrics func() SessionMetrics

// RegisterSessionMetricsConstructor registers the Prometheus session
// metrics constructor. Called by pkg/metrics/prometheus during package
// initialization.
func RegisterSessionMetricsConstructor(constructor func() SessionMetrics) {
	newPrometheusSessionMetrics = constructor
}

// ObserveSessionEnd records a finished session when m is non-nil.
func ObserveSessionEnd(m SessionMetrics, mode string, duration time.Duration, outcome string) {
	if m != nil {
		m.RecordSessionEnd(mode, duration, outcome)
	}
}

// ObserveFileReceived records a completed file transfer when m is non-nil.
func ObserveFileReceived(m SessionMetrics, kind string, mode string, bytes uint64) {
	if m != nil {
		m.RecordFileReceived(kind, mode, bytes)
	}
}

// ObserveProtocolError counts a protocol error when m is non-nil.
func ObserveProtocolError(m SessionMetrics, kind string) {
	if m != nil && kind != "" {
		m.RecordProtocolError(kind)
	}
}
