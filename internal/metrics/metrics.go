package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ticks_total", Help: "Count of market snapshots processed"},
		[]string{"symbol"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_total", Help: "Signals generated by direction"},
		[]string{"symbol", "direction"},
	)
	DeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "deliveries_total", Help: "Broadcast delivery outcomes"},
		[]string{"status"},
	)
	RiskBlocksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "risk_blocks_total", Help: "Position entries blocked by risk policy"},
		[]string{"symbol", "reason"},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, SignalsTotal, DeliveriesTotal, RiskBlocksTotal)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{ Addr: addr, Handler: mux }
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
