package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector_IncStepApplied(t *testing.T) {
	c := NewCollector("col-sqlite")

	before := testutil.ToFloat64(StepsAppliedTotal.WithLabelValues("col-sqlite"))
	c.IncStepApplied()
	after := testutil.ToFloat64(StepsAppliedTotal.WithLabelValues("col-sqlite"))

	assert.Equal(t, before+1, after)
}

func TestCollector_IncStepFailure(t *testing.T) {
	c := NewCollector("col-postgres")

	before := testutil.ToFloat64(StepFailuresTotal.WithLabelValues("col-postgres"))
	c.IncStepFailure()
	after := testutil.ToFloat64(StepFailuresTotal.WithLabelValues("col-postgres"))

	assert.Equal(t, before+1, after)
}

func TestCollector_IncRollback(t *testing.T) {
	c := NewCollector("col-mysql")

	before := testutil.ToFloat64(RollbacksTotal.WithLabelValues("col-mysql"))
	c.IncRollback()
	after := testutil.ToFloat64(RollbacksTotal.WithLabelValues("col-mysql"))

	assert.Equal(t, before+1, after)
}

func TestCollector_SetSchemaVersion(t *testing.T) {
	c := NewCollector("col-sqlite-2")

	c.SetSchemaVersion(3)
	value := testutil.ToFloat64(SchemaVersion.WithLabelValues("col-sqlite-2"))

	assert.Equal(t, float64(3), value)
}

func TestCollector_ObserveStepDuration(t *testing.T) {
	c := NewCollector("col-sqlite-3")

	c.ObserveStepDuration(150 * time.Millisecond)
	count := testutil.CollectAndCount(StepDuration)

	assert.Greater(t, count, 0)
}

func TestCollector_IncDeploy(t *testing.T) {
	c := NewCollector("col-sqlite-4")

	before := testutil.ToFloat64(DeploysTotal.WithLabelValues("col-sqlite-4", "migrate"))
	c.IncDeploy("migrate")
	after := testutil.ToFloat64(DeploysTotal.WithLabelValues("col-sqlite-4", "migrate"))

	assert.Equal(t, before+1, after)
}
