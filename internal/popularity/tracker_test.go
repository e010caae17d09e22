package popularity

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPopularityMonotone(t *testing.T) {
	tr := NewTracker(1, 8, 5.0, 0.1)
	now := time.Now()
	for i := 0; i < 20; i++ {
		tr.recordQueryAt("StageX=*", 1.0, now)
	}
	for i := 0; i < 5; i++ {
		tr.recordQueryAt("Other=*", 1.0, now)
	}
	assert.GreaterOrEqual(t, tr.GetReplicationFactor("StageX=*"), tr.GetReplicationFactor("Other=*"))
}

func TestPopularityDecay(t *testing.T) {
	tr := NewTracker(1, 8, 1000.0, 0.2) // high threshold disables the rich-get-richer bonus
	start := time.Now()
	tr.recordQueryAt("k", 3.0, start)

	later := start.Add(5 * time.Hour)
	got := tr.decayedScoreLockedForTest("k", later)
	want := 3.0 * math.Exp(-0.2*5)
	assert.InDelta(t, want, got, 1e-9)
}

func (t *Tracker) decayedScoreLockedForTest(pattern string, at time.Time) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.decayedScoreLocked(pattern, at)
}

func TestScenario6PopularityReplicationBounds(t *testing.T) {
	tr := NewTracker(1, 8, 5.0, 0.1)
	now := time.Now()
	for i := 0; i < 100; i++ {
		tr.recordQueryAt("StageX=*", 1.0, now)
	}
	rf := tr.GetReplicationFactor("StageX=*")
	assert.GreaterOrEqual(t, rf, 2)
	assert.LessOrEqual(t, rf, 8)
}

func TestReplicationFactorBelowThresholdIsBase(t *testing.T) {
	tr := NewTracker(2, 8, 100.0, 0.1)
	tr.RecordQuery("cold", 1.0)
	assert.Equal(t, 2, tr.GetReplicationFactor("cold"))
}

func TestGetAllKeysSortedByPopularityFiltersAndSorts(t *testing.T) {
	tr := NewTracker(1, 5, 5.0, 0.1)
	now := time.Now()
	tr.recordQueryAt("hot", 10.0, now)
	tr.recordQueryAt("warm", 2.0, now)

	scores := tr.GetAllKeysSortedByPopularity()
	assert.Len(t, scores, 2)
	assert.Equal(t, "hot", scores[0].Pattern)
	assert.Equal(t, "warm", scores[1].Pattern)
}
