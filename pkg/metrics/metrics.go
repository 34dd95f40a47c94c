package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	StoreOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "safar", Name: "userstore_operations_total", Help: "User store operations by operation and outcome reason."},
		[]string{"op", "reason"},
	)
	MigratedKeys = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "safar", Name: "userstore_migrated_keys_total", Help: "Legacy global keys processed during migration by result."},
		[]string{"result"},
	)
	SessionTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "safar", Name: "session_transitions_total", Help: "Session reconciler transitions by target state."},
		[]string{"state"},
	)
	AuthEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "safar", Name: "auth_events_total", Help: "Auth provider events seen by the reconciler, by event and whether they were applied."},
		[]string{"event", "applied"},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "safar", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "safar", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(StoreOperations)
	reg.MustRegister(MigratedKeys)
	reg.MustRegister(SessionTransitions)
	reg.MustRegister(AuthEvents)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}
