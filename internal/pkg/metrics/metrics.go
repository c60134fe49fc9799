package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	ledgerOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bingo",
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Wallet credit/debit attempts by outcome.",
		},
		[]string{"type", "result"},
	)

	draws = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bingo",
			Subsystem: "game",
			Name:      "draws_total",
			Help:      "Numbers drawn by outcome.",
		},
		[]string{"result"},
	)

	claims = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bingo",
			Subsystem: "game",
			Name:      "prize_claims_total",
			Help:      "Prize claim attempts by outcome.",
		},
		[]string{"result"},
	)

	redemptions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bingo",
			Subsystem: "giftcard",
			Name:      "redemptions_total",
			Help:      "Gift card redemption attempts by outcome.",
		},
		[]string{"result"},
	)

	panics = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bingo",
			Subsystem: "http",
			Name:      "panics_total",
			Help:      "Handler panics recovered by the HTTP middleware.",
		},
	)
)

func init() {
	Registry.MustRegister(
		ledgerOperations,
		draws,
		claims,
		redemptions,
		panics,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordLedger counts one ledger operation.
func RecordLedger(txType string, err error) {
	ledgerOperations.WithLabelValues(txType, result(err)).Inc()
}

// RecordDraw counts one draw attempt.
func RecordDraw(err error) {
	draws.WithLabelValues(result(err)).Inc()
}

// RecordClaim counts one claim attempt; outcome is a short label such as "won" or "already_claimed".
func RecordClaim(outcome string) {
	claims.WithLabelValues(outcome).Inc()
}

// RecordRedemption counts one gift card redemption attempt.
func RecordRedemption(err error) {
	redemptions.WithLabelValues(result(err)).Inc()
}

// RecordPanic counts one recovered handler panic.
func RecordPanic() {
	panics.Inc()
}
