// Package popularity implements the per-pattern, time-decayed
// popularity score used to derive an elevated replication factor for
// hot keys, and the adaptive router that wraps dart.Table with it.
//
// The design notes call for replacing the original's module-level
// singleton with an explicit context passed into the adaptive router at
// construction; Tracker is that context, with router lifetime equal to
// its own.
package popularity

import (
	"math"
	"sort"
	"sync"
	"time"
)

// reportThreshold is the minimum decayed score a pattern must have to
// appear in GetAllKeysSortedByPopularity.
const reportThreshold = 0.01

// Tracker is a thread-safe, time-decaying popularity score per
// key-pattern, used to derive an adaptive replication factor.
type Tracker struct {
	mu sync.Mutex

	baseReplicationFactor int
	maxReplicationFactor  int
	threshold             float64
	decay                 float64

	rawScore   map[string]float64
	lastAccess map[string]time.Time
}

// NewTracker constructs a Tracker. maxReplication defaults to 5 and
// threshold to 10.0 and decay to 0.1 when passed as zero, mirroring the
// original's constructor defaults.
func NewTracker(baseReplication, maxReplication int, threshold, decay float64) *Tracker {
	if maxReplication <= 0 {
		maxReplication = 5
	}
	if threshold <= 0 {
		threshold = 10.0
	}
	if decay <= 0 {
		decay = 0.1
	}
	return &Tracker{
		baseReplicationFactor: baseReplication,
		maxReplicationFactor:  maxReplication,
		threshold:             threshold,
		decay:                 decay,
		rawScore:              make(map[string]float64),
		lastAccess:            make(map[string]time.Time),
	}
}

// decayFactor returns exp(-decay * hoursSinceLastAccess) for pattern, or
// 1.0 (no decay) if pattern was never recorded. Callers must hold mu.
func (t *Tracker) decayFactor(pattern string, now time.Time) float64 {
	last, ok := t.lastAccess[pattern]
	if !ok {
		return 1.0
	}
	hours := now.Sub(last).Hours()
	return math.Exp(-t.decay * hours)
}

// decayedScoreLocked returns the current effective score for pattern.
// Callers must hold mu.
func (t *Tracker) decayedScoreLocked(pattern string, now time.Time) float64 {
	raw, ok := t.rawScore[pattern]
	if !ok {
		return 0.0
	}
	return raw * t.decayFactor(pattern, now)
}

// RecordQuery records one query against pattern with the given weight,
// used as passed. The effective score is computed first (decay applied),
// a rich-get-richer bonus is applied if that score exceeds the
// threshold, the weight is added, and lastAccess is reset to now.
func (t *Tracker) RecordQuery(pattern string, weight float64) {
	t.recordQueryAt(pattern, weight, time.Now())
}

func (t *Tracker) recordQueryAt(pattern string, weight float64, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	effective := t.decayedScoreLocked(pattern, now)
	actualWeight := weight
	if effective > t.threshold {
		actualWeight *= 1 + math.Log10(effective/t.threshold)
	}
	t.rawScore[pattern] = effective + actualWeight
	t.lastAccess[pattern] = now
}

// GetPopularity returns the current decayed score for pattern.
func (t *Tracker) GetPopularity(pattern string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.decayedScoreLocked(pattern, time.Now())
}

// GetReplicationFactor returns baseReplicationFactor when pattern's
// decayed score is below the threshold, otherwise
// min(maxReplicationFactor, base + floor(log10(score/threshold))).
func (t *Tracker) GetReplicationFactor(pattern string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	score := t.decayedScoreLocked(pattern, time.Now())
	if score < t.threshold {
		return t.baseReplicationFactor
	}
	adaptive := t.baseReplicationFactor + int(math.Log10(score/t.threshold))
	if adaptive > t.maxReplicationFactor {
		return t.maxReplicationFactor
	}
	return adaptive
}

// KeyScore is one entry in a popularity report.
type KeyScore struct {
	Pattern string
	Score   float64
}

// GetAllKeysSortedByPopularity returns every tracked pattern with a
// decayed score above reportThreshold, sorted by score descending.
func (t *Tracker) GetAllKeysSortedByPopularity() []KeyScore {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	result := make([]KeyScore, 0, len(t.rawScore))
	for pattern := range t.rawScore {
		score := t.decayedScoreLocked(pattern, now)
		if score > reportThreshold {
			result = append(result, KeyScore{Pattern: pattern, Score: score})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Score > result[j].Score })
	return result
}

// Reset clears all tracked popularity data.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rawScore = make(map[string]float64)
	t.lastAccess = make(map[string]time.Time)
}
