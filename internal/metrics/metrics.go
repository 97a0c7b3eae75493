// Package metrics exposes the engine's prometheus instrumentation. A nil
// *Metrics is valid and records nothing, so library callers that do not
// run the exporter pay no cost.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	syncOperations      *prometheus.CounterVec
	coaRequests         *prometheus.CounterVec
	staleSessionsClosed prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		syncOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radsync_sync_operations_total",
				Help: "Synchronization operations by operation name and result.",
			},
			[]string{"operation", "result"},
		),
		coaRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radsync_coa_requests_total",
				Help: "CoA/Disconnect requests by request type and outcome.",
			},
			[]string{"type", "result"},
		),
		staleSessionsClosed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "radsync_stale_sessions_closed_total",
				Help: "Accounting rows closed by the stale-session sweep.",
			},
		),
	}

	reg.MustRegister(m.syncOperations, m.coaRequests, m.staleSessionsClosed)
	return m
}

func (m *Metrics) ObserveSync(operation string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.syncOperations.WithLabelValues(operation, result).Inc()
}

// ObserveCoA records one control-plane request. Result is one of ack,
// nak, timeout or error.
func (m *Metrics) ObserveCoA(requestType, result string) {
	if m == nil {
		return
	}
	m.coaRequests.WithLabelValues(requestType, result).Inc()
}

func (m *Metrics) AddStaleClosed(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.staleSessionsClosed.Add(float64(n))
}
