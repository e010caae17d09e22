package fault

import (
	"sort"

	"github.com/sashank1508/idioms/internal/dart"
)

// ReassignedVNode is one line item in a RecoveryPlan: a virtual node
// that was owned by the failed server and must move.
type ReassignedVNode struct {
	VNodeID     int
	FromServer  int
	ToServer    int
	CanReassign bool // false if every candidate server was also excluded
}

// RecoveryPlan is what a recovery coordinator computes before telling
// participants to rebuild anything, mirroring rebalance_context's
// "compute the whole plan first, then apply it" split.
type RecoveryPlan struct {
	FailedServerID int
	CoordinatorID  int
	Reassignments  []ReassignedVNode
}

// SelectCoordinator returns the lowest-ranked Active server, per the
// design's "client selects the lowest-ranked Active server as recovery
// coordinator". ok is false if there is no Active server left.
func SelectCoordinator(m *Manager) (coordinatorID int, ok bool) {
	actives := m.ActiveServers()
	if len(actives) == 0 {
		return 0, false
	}
	return actives[0], true
}

// PlanRecovery computes which virtual nodes owned by failedServerID
// must be reassigned, and to which server, using table's ring to pick
// the next server other than failedServerID for each one (see
// dart.Table.ReplacementServer; other servers' status is not checked).
func PlanRecovery(table *dart.Table, failedServerID, coordinatorID int) *RecoveryPlan {
	plan := &RecoveryPlan{FailedServerID: failedServerID, CoordinatorID: coordinatorID}
	for _, vn := range table.VirtualNodes() {
		if table.ServerForVirtualNode(vn.ID) != failedServerID {
			continue
		}
		replacement, ok := table.ReplacementServer(vn.ID, failedServerID)
		plan.Reassignments = append(plan.Reassignments, ReassignedVNode{
			VNodeID:     vn.ID,
			FromServer:  failedServerID,
			ToServer:    replacement,
			CanReassign: ok,
		})
	}
	sort.Slice(plan.Reassignments, func(i, j int) bool {
		return plan.Reassignments[i].VNodeID < plan.Reassignments[j].VNodeID
	})
	return plan
}

// Succeeded reports whether every reassignment in the plan found a
// live replacement server, the condition the coordinator reports back
// to the client as RecoveryComplete(success).
func (p *RecoveryPlan) Succeeded() bool {
	for _, r := range p.Reassignments {
		if !r.CanReassign {
			return false
		}
	}
	return true
}

// ParticipantsExcluding returns every Active server other than the
// coordinator, the set the coordinator instructs to rebuild partitions
// from replicas.
func ParticipantsExcluding(m *Manager, coordinatorID int) []int {
	var out []int
	for _, id := range m.ActiveServers() {
		if id != coordinatorID {
			out = append(out, id)
		}
	}
	return out
}
