package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	startsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "convertd",
		Subsystem: "engine",
		Name:      "starts_total",
		Help:      "Total engine process spawns",
	})

	startFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "convertd",
		Subsystem: "engine",
		Name:      "start_failures_total",
		Help:      "Total engine startups that timed out or died before ready",
	})

	stopsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "convertd",
		Subsystem: "engine",
		Name:      "stops_total",
		Help:      "Total engine processes stopped",
	})
)

func init() {
	prometheus.MustRegister(startsTotal, startFailuresTotal, stopsTotal)
}
