package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stageRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "import_stage_runs_total",
		Help: "Stage runs started, by stage",
	}, []string{"stage"})

	stageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "import_stage_failures_total",
		Help: "Sessions failed, by the stage that failed them",
	}, []string{"stage"})

	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "import_stage_duration_seconds",
		Help:    "Wall time of stage runs",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
	}, []string{"stage"})

	rowsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "import_rows_processed_total",
		Help: "Rows written by the process stage, by outcome",
	}, []string{"outcome"})
)

func observeStage(stage string, started time.Time) {
	stageDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
}
