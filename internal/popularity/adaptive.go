package popularity

import "github.com/sashank1508/idioms/internal/dart"

// exactPatternWeight and defaultPatternWeight are the query weights
// recorded for the adaptive router: exact-pattern queries are rewarded
// with double weight because they stand to benefit most from local
// replica placement.
const (
	exactPatternWeight   = 2.0
	defaultPatternWeight = 1.0
)

// AdaptiveRouter wraps a dart.Table, recording every query's key-pattern
// and substituting the tracker's adaptive replication factor for the
// base router's fixed factor. With adaptive mode disabled, it must
// behave identically to the base table.
type AdaptiveRouter struct {
	table    *dart.Table
	tracker  *Tracker
	adaptive bool
}

// NewAdaptiveRouter wraps table with tracker. adaptive controls whether
// GetServersForKey/GetDestinationServers substitute the tracker's
// replication factor; when false the router is a pass-through to table
// (still recording queries, since recording is an observational side
// effect independent of routing behavior).
func NewAdaptiveRouter(table *dart.Table, tracker *Tracker, adaptive bool) *AdaptiveRouter {
	return &AdaptiveRouter{table: table, tracker: tracker, adaptive: adaptive}
}

// SetAdaptive toggles adaptive replication at runtime.
func (a *AdaptiveRouter) SetAdaptive(enabled bool) {
	a.adaptive = enabled
}

// Table returns the underlying base router.
func (a *AdaptiveRouter) Table() *dart.Table {
	return a.table
}

// GetServersForKey records key as an exact-weight query, then resolves
// servers for key, using the adaptive replication factor when enabled.
func (a *AdaptiveRouter) GetServersForKey(key string) []int {
	a.tracker.RecordQuery(key, exactPatternWeight)
	if !a.adaptive {
		return a.table.GetServersForKey(key)
	}
	return a.table.GetServersForKeyWithFactor(key, a.tracker.GetReplicationFactor(key))
}

// GetDestinationServers records queryStr's key-portion (exact weight for
// an exact pattern, default weight otherwise), then resolves
// destination servers for queryStr, using the adaptive replication
// factor when enabled.
func (a *AdaptiveRouter) GetDestinationServers(queryStr string) []int {
	keyPattern := dart.KeyPortion(queryStr)
	weight := defaultPatternWeight
	if dart.IsExactPattern(keyPattern) {
		weight = exactPatternWeight
	}
	a.tracker.RecordQuery(keyPattern, weight)

	if !a.adaptive {
		return a.table.GetDestinationServers(queryStr)
	}
	return a.table.GetDestinationServersWithFactor(queryStr, a.tracker.GetReplicationFactor(keyPattern))
}
