package job

import "github.com/prometheus/client_golang/prometheus"

var (
	jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "convertd",
			Subsystem: "jobs",
			Name:      "finished_total",
			Help:      "Jobs finished, by terminal status",
		},
		[]string{"status"},
	)

	jobsInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "convertd",
		Subsystem: "jobs",
		Name:      "inflight",
		Help:      "Jobs with a live worker subprocess",
	})

	progressEventsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "convertd",
		Subsystem: "jobs",
		Name:      "progress_events_total",
		Help:      "Progress events delivered to per-job queues",
	})

	progressDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "convertd",
		Subsystem: "jobs",
		Name:      "progress_dropped_total",
		Help:      "Progress events dropped because a queue was full",
	})
)

func init() {
	prometheus.MustRegister(jobsTotal, jobsInflight, progressEventsTotal, progressDroppedTotal)
}
