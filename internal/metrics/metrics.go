package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RLRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_requests_total",
			Help: "Total requests seen by the rate limiter",
		},
		[]string{"endpoint"},
	)
	RLBlocked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_blocked_total",
			Help: "Total requests blocked by the rate limiter",
		},
		[]string{"endpoint"},
	)

	// Actions counts every economy request by action and outcome code
	Actions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_actions_total",
			Help: "Economy actions by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	// CoinsFlow tracks coins entering and leaving circulation
	CoinsFlow = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_coins_total",
			Help: "Coins minted or burned by source",
		},
		[]string{"direction", "source"},
	)

	SpinTiers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wheel_spins_total",
			Help: "Wheel spins by resulting tier",
		},
		[]string{"tier"},
	)

	Battles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pvp_battles_total",
			Help: "Resolved battles by result",
		},
		[]string{"result", "revenge"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	Withdrawals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "withdrawals_total",
			Help: "Withdrawal requests by status transition",
		},
		[]string{"status"},
	)
)

// Action records the outcome of one economy action
func Action(action, outcome string) {
	Actions.WithLabelValues(action, outcome).Inc()
}

// Minted records coins credited from nowhere (rewards, yield, refunds)
func Minted(source string, amount int64) {
	if amount > 0 {
		CoinsFlow.WithLabelValues("minted", source).Add(float64(amount))
	}
}

// Burned records coins removed from circulation (costs, fines, withdrawals)
func Burned(source string, amount int64) {
	if amount > 0 {
		CoinsFlow.WithLabelValues("burned", source).Add(float64(amount))
	}
}

func Battle(result string, revenge bool) {
	Battles.WithLabelValues(result, strconv.FormatBool(revenge)).Inc()
}
