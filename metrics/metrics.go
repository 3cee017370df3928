package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// StepsAppliedTotal tracks the total number of migration steps applied.
var StepsAppliedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dbdeploy_migration_steps_applied_total",
		Help: "Total migration steps applied",
	},
	[]string{"dialect"},
)

// StepFailuresTotal tracks the total number of migration steps that failed
// and were rolled back.
var StepFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dbdeploy_migration_step_failures_total",
		Help: "Total migration steps that failed and rolled back",
	},
	[]string{"dialect"},
)

// RollbacksTotal tracks the total number of reverse operations applied.
var RollbacksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dbdeploy_migration_rollbacks_total",
		Help: "Total migration steps reversed by downgrade",
	},
	[]string{"dialect"},
)

// StepDuration tracks how long migration steps take to commit.
var StepDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "dbdeploy_migration_step_duration_seconds",
		Help:    "Duration of migration step execution",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"dialect"},
)

// SchemaVersion tracks the last applied migration ordinal.
var SchemaVersion = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "dbdeploy_schema_version",
		Help: "Last applied migration ordinal",
	},
	[]string{"dialect"},
)

// DeploysTotal tracks deployment attempts by outcome stage.
var DeploysTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dbdeploy_deploys_total",
		Help: "Total deployment attempts by outcome stage",
	},
	[]string{"dialect", "stage"},
)
