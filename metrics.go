package stls

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts what the retry loop does. A nil *Metrics records nothing.
type Metrics struct {
	suspensions  *prometheus.CounterVec
	waitFailures *prometheus.CounterVec
	suppressed   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them when registerer is not nil.
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		suspensions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stls_suspensions_total",
				Help: "Number of times an operation suspended waiting for socket readiness",
			},
			[]string{"op", "direction"},
		),
		waitFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stls_wait_failures_total",
				Help: "Number of readiness waits that ended in an error",
			},
			[]string{"op", "reason"},
		),
		suppressed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stls_suppressed_total",
				Help: "Number of benign engine failures turned into normal results",
			},
			[]string{"kind"},
		),
	}
	if registerer != nil {
		for _, c := range []prometheus.Collector{m.suspensions, m.waitFailures, m.suppressed} {
			if err := registerer.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) suspended(op string, direction string) {
	if m == nil {
		return
	}
	m.suspensions.WithLabelValues(op, direction).Inc()
}

func (m *Metrics) waitFailed(op string, err error) {
	if m == nil {
		return
	}
	reason := "error"
	if IsTimeout(err) {
		reason = "timeout"
	}
	m.waitFailures.WithLabelValues(op, reason).Inc()
}

func (m *Metrics) benign(kind string) {
	if m == nil {
		return
	}
	m.suppressed.WithLabelValues(kind).Inc()
}
