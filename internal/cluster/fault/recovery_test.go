package fault

import (
	"testing"

	"github.com/sashank1508/idioms/internal/dart"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectCoordinatorIsLowestRankedActive(t *testing.T) {
	m := NewManager(4)
	m.status[0] = ConfirmedDown
	m.status[1] = Active
	m.status[2] = Active

	id, ok := SelectCoordinator(m)
	require.True(t, ok)
	assert.Equal(t, 1, id)
}

func TestSelectCoordinatorNoneActive(t *testing.T) {
	m := NewManager(2)
	m.status[0] = ConfirmedDown
	m.status[1] = ConfirmedDown

	_, ok := SelectCoordinator(m)
	assert.False(t, ok)
}

func TestPlanRecoveryReassignsOnlyFailedServersVNodes(t *testing.T) {
	table := dart.NewBuilder(4, 0.25).Table()

	var failedID int
	for _, vn := range table.VirtualNodes() {
		failedID = table.ServerForVirtualNode(vn.ID)
		break
	}

	plan := PlanRecovery(table, failedID, 0)
	require.NotEmpty(t, plan.Reassignments)
	for _, r := range plan.Reassignments {
		assert.Equal(t, failedID, r.FromServer)
		assert.Equal(t, failedID, table.ServerForVirtualNode(r.VNodeID))
		if r.CanReassign {
			assert.NotEqual(t, failedID, r.ToServer)
		}
	}
	assert.True(t, plan.Succeeded())
}

func TestParticipantsExcludingCoordinator(t *testing.T) {
	m := NewManager(3)
	participants := ParticipantsExcluding(m, 1)
	assert.ElementsMatch(t, []int{0, 2}, participants)
}
