package conflicts

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var conflictsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "import_conflicts_total",
		Help: "Total uniqueness conflicts resolved during import",
	},
	[]string{"kind", "strategy", "outcome"},
)

func recordConflict(kind Kind, strategy, outcome string) {
	conflictsTotal.WithLabelValues(kind.String(), strategy, outcome).Inc()
}
