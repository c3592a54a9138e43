package relay

import (
	"anonrelay/backend/internal/models"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the relay's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	submissions      *prometheus.CounterVec
	replies          prometheus.Counter
	deliveryFailures *prometheus.CounterVec
	maintenance      prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "anonrelay",
			Name:      "submissions_total",
			Help:      "Accepted sender submissions by content kind.",
		}, []string{"kind"}),
		replies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "anonrelay",
			Name:      "operator_replies_total",
			Help:      "Operator replies delivered to senders.",
		}),
		deliveryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "anonrelay",
			Name:      "delivery_failures_total",
			Help:      "Outbound sends that failed, by direction.",
		}, []string{"direction"}),
		maintenance: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "anonrelay",
			Name:      "maintenance_active",
			Help:      "1 while maintenance mode is on.",
		}),
	}
	reg.MustRegister(m.submissions, m.replies, m.deliveryFailures, m.maintenance)
	return m
}

func (m *Metrics) submission(kind models.ContentKind) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) reply() {
	if m == nil {
		return
	}
	m.replies.Inc()
}

func (m *Metrics) deliveryFailure(direction string) {
	if m == nil {
		return
	}
	m.deliveryFailures.WithLabelValues(direction).Inc()
}

func (m *Metrics) setMaintenance(active bool) {
	if m == nil {
		return
	}
	if active {
		m.maintenance.Set(1)
	} else {
		m.maintenance.Set(0)
	}
}
