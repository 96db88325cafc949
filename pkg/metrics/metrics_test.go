package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTimerObserveAction(t *testing.T) {
	before := testutil.ToFloat64(ActionsTotal.WithLabelValues("DUMP", "OK"))

	timer := NewTimer("DUMP")
	d := timer.ObserveAction("OK")

	assert.GreaterOrEqual(t, int64(d), int64(0))
	assert.Equal(t, before+1, testutil.ToFloat64(ActionsTotal.WithLabelValues("DUMP", "OK")))
	assert.GreaterOrEqual(t, testutil.CollectAndCount(ActionLatency), 1)
}

func TestCountersRegistered(t *testing.T) {
	before := testutil.ToFloat64(ObjectsPromoted)
	ObjectsPromoted.Add(3)
	assert.Equal(t, before+3, testutil.ToFloat64(ObjectsPromoted))

	OperationsTotal.WithLabelValues("create", "success").Inc()
	assert.GreaterOrEqual(t, testutil.CollectAndCount(OperationsTotal, "featurestore_operations_total"), 1)
}
