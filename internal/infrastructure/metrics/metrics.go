package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "devtransfer"

func NewCounter() *prometheus.CounterVec {
	return promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "general_counters",
		},
		[]string{"result"})
}

type Sweeper struct {
	Runs     prometheus.Counter
	Expired  prometheus.Counter
	Orphans  prometheus.Counter
	Failures prometheus.Counter
	Duration prometheus.Histogram
}

// NewSweeper registers the sweep metrics with reg. Tests pass a fresh
// registry so repeated construction does not collide.
func NewSweeper(reg prometheus.Registerer) *Sweeper {
	f := promauto.With(reg)

	return &Sweeper{
		Runs: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_runs_total",
			Help:      "Sweeper passes started.",
		}),
		Expired: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_expired_total",
			Help:      "Transfers retired by the sweeper.",
		}),
		Orphans: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_orphans_total",
			Help:      "Blobs removed because no live transfer references them.",
		}),
		Failures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_failures_total",
			Help:      "Sweeper passes that ended with an error.",
		}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Time spent in one sweeper pass.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}),
	}
}
