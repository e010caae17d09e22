// Package cluster holds the mutable view of who is in this idioms
// cluster: ClusterMember is the immutable per-process view returned by
// Membership.Members, analogous to the teacher's Node interface,
// while Membership is the mutable list a process builds at startup
// from its config, analogous to the teacher's BuilderNode.
package cluster

import "github.com/sashank1508/idioms/internal/cluster/fault"

// ClusterMember is one process's immutable identity within the
// cluster: its rank, the address other processes reach it on, and the
// fault manager's current view of its status.
type ClusterMember struct {
	Rank    int
	Address string
	Status  fault.ServerStatus
}

// Membership is the mutable roster a process builds from its config
// at startup: one address per rank, rank 0 being the client.
type Membership struct {
	addresses []string
	faults    *fault.Manager
}

// NewMembership builds a Membership from the server addresses listed
// in config (index i holds server id i, i.e. rank i+1).
func NewMembership(serverAddresses []string, faults *fault.Manager) *Membership {
	return &Membership{addresses: serverAddresses, faults: faults}
}

// Address returns the address of the server with the given serverID.
func (m *Membership) Address(serverID int) (string, bool) {
	if serverID < 0 || serverID >= len(m.addresses) {
		return "", false
	}
	return m.addresses[serverID], true
}

// Addresses returns every server address, in server-id order.
func (m *Membership) Addresses() []string {
	return m.addresses
}

// NumServers reports how many servers this membership tracks.
func (m *Membership) NumServers() int {
	return len(m.addresses)
}

// Members returns the current ClusterMember snapshot for every server,
// rank = serverID+1 per the design's "process role is derived from
// rank" convention.
func (m *Membership) Members() []ClusterMember {
	out := make([]ClusterMember, len(m.addresses))
	for id, addr := range m.addresses {
		status := fault.Active
		if m.faults != nil {
			status = m.faults.Status(id)
		}
		out[id] = ClusterMember{Rank: id + 1, Address: addr, Status: status}
	}
	return out
}

// SelectCoordinator returns the lowest-ranked Active server in this
// membership, the client's pick for recovery coordinator per §4.E. ok
// is false if this Membership was built without a fault.Manager or no
// server is currently Active.
func (m *Membership) SelectCoordinator() (serverID int, ok bool) {
	if m.faults == nil {
		return 0, false
	}
	return fault.SelectCoordinator(m.faults)
}

// ParticipantsExcluding returns every Active server other than
// coordinatorID, the set a recovery coordinator instructs to rebuild
// partitions from replicas.
func (m *Membership) ParticipantsExcluding(coordinatorID int) []int {
	if m.faults == nil {
		return nil
	}
	return fault.ParticipantsExcluding(m.faults, coordinatorID)
}
