package popularity

import (
	"testing"

	"github.com/sashank1508/idioms/internal/dart"
	"github.com/stretchr/testify/assert"
)

func TestAdaptiveRouterMatchesBaseWhenDisabled(t *testing.T) {
	table := dart.NewBuilder(8, 0.1).Table()
	tracker := NewTracker(table.ReplicationFactor(), 8, 5.0, 0.1)
	router := NewAdaptiveRouter(table, tracker, false)

	assert.Equal(t, table.GetServersForKey("StageX"), router.GetServersForKey("StageX"))
	assert.Equal(t, table.GetDestinationServers("StageX=100"), router.GetDestinationServers("StageX=100"))
}

func TestAdaptiveRouterRecordsExactWeightDouble(t *testing.T) {
	table := dart.NewBuilder(8, 0.1).Table()
	tracker := NewTracker(table.ReplicationFactor(), 8, 1.0, 0.1)
	router := NewAdaptiveRouter(table, tracker, true)

	router.GetDestinationServers("StageX=100")
	exactScore := tracker.GetPopularity("StageX")

	router.GetDestinationServers("Stage*=100")
	prefixScore := tracker.GetPopularity("Stage*")

	assert.Greater(t, exactScore, prefixScore)
}

func TestAdaptiveRouterCanOverrideReplicationFactor(t *testing.T) {
	table := dart.NewBuilder(8, 0.1).Table()
	tracker := NewTracker(1, 8, 1.0, 0.1)
	router := NewAdaptiveRouter(table, tracker, true)

	for i := 0; i < 50; i++ {
		router.GetServersForKey("StageX")
	}
	servers := router.GetServersForKey("StageX")
	assert.Greater(t, len(servers), len(table.GetServersForKey("StageX")))
}
