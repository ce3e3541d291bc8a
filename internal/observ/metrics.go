package observ

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cycles_total", Help: "Pipeline cycles by outcome (done|failed)"},
		[]string{"outcome"},
	)
	CycleSkipsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cycle_skips_total", Help: "Scheduler ticks skipped by gate reason"},
		[]string{"reason"},
	)
	StageRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "stage_retries_total", Help: "Generation attempts retried per stage"},
		[]string{"stage"},
	)
	StageSentinelsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "stage_sentinels_total", Help: "Stages that exhausted retries and returned the sentinel"},
		[]string{"stage"},
	)
	MarketFetchErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "market_fetch_errors_total", Help: "Partial market data failures by field"},
		[]string{"field"},
	)
	NotifyErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "notify_errors_total", Help: "Failed notifier deliveries"},
	)
	LedgerRejectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "ledger_rejects_total", Help: "Ledger writes refused because the payload was not valid JSON"},
	)
)

func init() {
	prometheus.MustRegister(
		CyclesTotal, CycleSkipsTotal, StageRetriesTotal, StageSentinelsTotal,
		MarketFetchErrorsTotal, NotifyErrorsTotal, LedgerRejectsTotal,
	)
}

// ServeMetrics exposes /metrics on addr in the background. Returns the server
// so callers can Close it; nil when addr is empty.
func ServeMetrics(addr string) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
