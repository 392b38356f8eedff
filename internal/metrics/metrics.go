package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RoundsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coinflip_rounds_settled_total",
		Help: "Settled rounds by result.",
	}, []string{"result"})

	PayoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coinflip_payouts_total",
		Help: "Payout dispositions.",
	}, []string{"status"})

	DepositChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coinflip_deposit_checks_total",
		Help: "Deposit reference verification dispositions.",
	}, []string{"disposition"})

	StatsWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coinflip_stats_write_failures_total",
		Help: "Failed round bookkeeping writes.",
	})

	SettleLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "coinflip_settle_duration_seconds",
		Help:    "End-to-end settlement latency.",
		Buckets: prometheus.DefBuckets,
	})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
