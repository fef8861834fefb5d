package resource

import "github.com/prometheus/client_golang/prometheus"

var (
	loadsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "convertd",
		Subsystem: "resource",
		Name:      "loads_total",
		Help:      "Total successful resource loads",
	})

	loadFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "convertd",
		Subsystem: "resource",
		Name:      "load_failures_total",
		Help:      "Total failed resource loads",
	})

	unloadsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "convertd",
		Subsystem: "resource",
		Name:      "unloads_total",
		Help:      "Total resource unloads that released a loaded resource",
	})
)

func init() {
	prometheus.MustRegister(loadsTotal, loadFailuresTotal, unloadsTotal)
}
