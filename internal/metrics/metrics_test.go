package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollector_RecordsClaimAndCompletion(t *testing.T) {
	c := NewCollector()
	c.RecordClaim()
	c.RecordCompletion("done", 12.5)

	mfs, err := c.registry.Gather()
	assert.NoError(t, err)

	var sawClaimed, sawCompleted bool
	for _, mf := range mfs {
		switch mf.GetName() {
		case "asdb_jobs_claimed_total":
			sawClaimed = true
			assert.Equal(t, float64(1), mf.Metric[0].GetCounter().GetValue())
		case "asdb_jobs_completed_total":
			sawCompleted = true
		}
	}
	assert.True(t, sawClaimed)
	assert.True(t, sawCompleted)
}
