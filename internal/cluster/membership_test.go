package cluster

import (
	"testing"

	"github.com/sashank1508/idioms/internal/cluster/fault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMembershipAddressLookup(t *testing.T) {
	m := NewMembership([]string{"s0", "s1", "s2"}, nil)

	addr, ok := m.Address(1)
	require.True(t, ok)
	assert.Equal(t, "s1", addr)

	_, ok = m.Address(3)
	assert.False(t, ok)
	assert.Equal(t, 3, m.NumServers())
}

func TestMembershipMembersReflectsFaultStatus(t *testing.T) {
	faults := fault.NewManager(2)
	faults.MarkConfirmedDown(1)
	m := NewMembership([]string{"s0", "s1"}, faults)

	members := m.Members()
	require.Len(t, members, 2)
	assert.Equal(t, ClusterMember{Rank: 1, Address: "s0", Status: fault.Active}, members[0])
	assert.Equal(t, ClusterMember{Rank: 2, Address: "s1", Status: fault.ConfirmedDown}, members[1])
}

func TestMembershipSelectCoordinatorAndParticipants(t *testing.T) {
	faults := fault.NewManager(4)
	faults.MarkConfirmedDown(0)
	m := NewMembership([]string{"s0", "s1", "s2", "s3"}, faults)

	coordinatorID, ok := m.SelectCoordinator()
	require.True(t, ok)
	assert.Equal(t, 1, coordinatorID)
	assert.ElementsMatch(t, []int{2, 3}, m.ParticipantsExcluding(coordinatorID))
}

func TestMembershipWithoutFaultsHasNoCoordinator(t *testing.T) {
	m := NewMembership([]string{"s0", "s1"}, nil)
	_, ok := m.SelectCoordinator()
	assert.False(t, ok)
	assert.Nil(t, m.ParticipantsExcluding(0))
}
