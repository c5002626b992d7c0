// Package metrics exposes Prometheus counters for the identity service.
// A nil *Auth is valid and records nothing.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outcome labels.
const (
	OutcomeSuccess   = "success"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"
	OutcomeTwoFactor = "two_factor_required"
)

type Auth struct {
	operations    *prometheus.CounterVec
	refreshReuse  prometheus.Counter
	notifications *prometheus.CounterVec
	tokensPurged  prometheus.Counter
}

// NewAuth creates the counters and registers them with reg.
func NewAuth(reg prometheus.Registerer) *Auth {
	m := &Auth{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "talenthub",
			Subsystem: "auth",
			Name:      "operations_total",
			Help:      "Auth operations by name and outcome.",
		}, []string{"operation", "outcome"}),
		refreshReuse: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "talenthub",
			Subsystem: "auth",
			Name:      "refresh_reuse_total",
			Help:      "Refresh tokens presented after they were already rotated.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "talenthub",
			Subsystem: "notify",
			Name:      "emails_total",
			Help:      "Outbound emails by kind and delivery outcome.",
		}, []string{"kind", "outcome"}),
		tokensPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "talenthub",
			Subsystem: "auth",
			Name:      "refresh_tokens_purged_total",
			Help:      "Expired or revoked refresh tokens deleted from the ledger.",
		}),
	}
	reg.MustRegister(m.operations, m.refreshReuse, m.notifications, m.tokensPurged)
	return m
}

func (m *Auth) Operation(operation, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

func (m *Auth) RefreshReuse() {
	if m == nil {
		return
	}
	m.refreshReuse.Inc()
}

func (m *Auth) Notification(kind string, delivered bool) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if !delivered {
		outcome = OutcomeError
	}
	m.notifications.WithLabelValues(kind, outcome).Inc()
}

func (m *Auth) TokensPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.tokensPurged.Add(float64(n))
}
