package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Engine main-loop metrics

	TriggersAcquiredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "jobcore",
		Name:      "triggers_acquired_total",
		Help:      "Total triggers acquired by the main loop (WAITING -> ACQUIRED).",
	})

	FireLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "jobcore",
		Name:      "fire_latency_seconds",
		Help:      "Time between a trigger's scheduled fire time and its actual fire.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	})

	MisfiresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jobcore",
		Name:      "misfires_total",
		Help:      "Total triggers detected as misfired, by the resolved misfire instruction.",
	}, []string{"instruction"})

	// Worker pool metrics

	JobsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "jobcore",
		Name:      "worker_jobs_in_flight",
		Help:      "Number of jobs currently executing in the worker pool.",
	})

	WorkerPoolSaturation = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "jobcore",
		Name:      "worker_pool_saturation_ratio",
		Help:      "Fraction of worker pool capacity currently in use.",
	})

	JobsCompletedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jobcore",
		Name:      "jobs_completed_total",
		Help:      "Total jobs finished, by completion instruction.",
	}, []string{"instruction"})

	JobExecutionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "jobcore",
		Name:      "job_execution_duration_seconds",
		Help:      "Duration of job execution.",
		Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"job_class"})

	// Store metrics

	StoredTriggersGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "jobcore",
		Name:      "triggers_by_state",
		Help:      "Number of triggers currently in each runtime state.",
	}, []string{"state"})
)

func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		TriggersAcquiredTotal,
		FireLatency,
		MisfiresTotal,
		JobsInFlight,
		WorkerPoolSaturation,
		JobsCompletedTotal,
		JobExecutionDuration,
		StoredTriggersGauge,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{Addr: addr, Handler: mux}
}
