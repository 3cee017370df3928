package metrics

import "time"

// Collector wraps metrics and provides helper methods with pre-filled labels.
type Collector struct {
	dialect string
}

// NewCollector creates a new Collector for the given dialect.
func NewCollector(dialect string) *Collector {
	return &Collector{dialect: dialect}
}

// IncStepApplied increments the steps applied counter.
func (c *Collector) IncStepApplied() {
	StepsAppliedTotal.WithLabelValues(c.dialect).Inc()
}

// IncStepFailure increments the step failures counter.
func (c *Collector) IncStepFailure() {
	StepFailuresTotal.WithLabelValues(c.dialect).Inc()
}

// IncRollback increments the rollbacks counter.
func (c *Collector) IncRollback() {
	RollbacksTotal.WithLabelValues(c.dialect).Inc()
}

// ObserveStepDuration records how long a step took to commit.
func (c *Collector) ObserveStepDuration(d time.Duration) {
	StepDuration.WithLabelValues(c.dialect).Observe(d.Seconds())
}

// SetSchemaVersion sets the schema version gauge.
func (c *Collector) SetSchemaVersion(version int) {
	SchemaVersion.WithLabelValues(c.dialect).Set(float64(version))
}

// IncDeploy increments the deploys counter for an outcome stage.
func (c *Collector) IncDeploy(stage string) {
	DeploysTotal.WithLabelValues(c.dialect, stage).Inc()
}
