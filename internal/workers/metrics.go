package workers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var taskOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "import_worker_tasks_total",
	Help: "Stage tasks processed by workers, by type and outcome",
}, []string{"task_type", "outcome"})
