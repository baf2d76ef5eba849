package actions

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var actionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "import_action_duration_seconds",
	Help:    "Duration of row pipeline actions",
	Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
}, []string{"action"})

func observeAction(action string, d time.Duration) {
	actionDuration.WithLabelValues(action).Observe(d.Seconds())
}
