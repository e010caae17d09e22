package fault

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManagerStartsAllActive(t *testing.T) {
	m := NewManager(3)
	for i := 0; i < 3; i++ {
		assert.Equal(t, Active, m.Status(i))
	}
}

func TestTickTransitionsActiveToSuspect(t *testing.T) {
	m := NewManager(1)
	start := time.Now()
	m.recordHeartbeatAt(0, start)

	transitions := m.Tick(start.Add(SuspectAfter + time.Millisecond))
	require.Len(t, transitions, 1)
	assert.Equal(t, Transition{0, Active, Suspect}, transitions[0])
	assert.Equal(t, Suspect, m.Status(0))
}

func TestTickTransitionsSuspectToConfirmedDown(t *testing.T) {
	m := NewManager(1)
	start := time.Now()
	m.recordHeartbeatAt(0, start)
	m.Tick(start.Add(SuspectAfter + time.Millisecond))

	transitions := m.Tick(start.Add(ConfirmedDownAfter + time.Millisecond))
	require.Len(t, transitions, 1)
	assert.Equal(t, Transition{0, Suspect, ConfirmedDown}, transitions[0])
}

func TestNoSkippingSuspectOnTheWayDown(t *testing.T) {
	m := NewManager(1)
	start := time.Now()
	m.recordHeartbeatAt(0, start)

	// A single tick far past both thresholds must still only report the
	// Active -> Suspect transition: Suspect -> ConfirmedDown needs its own tick.
	transitions := m.Tick(start.Add(ConfirmedDownAfter + time.Hour))
	require.Len(t, transitions, 1)
	assert.Equal(t, Active, transitions[0].From)
	assert.Equal(t, Suspect, transitions[0].To)
}

func TestHeartbeatRecoversSuspectToActive(t *testing.T) {
	m := NewManager(1)
	start := time.Now()
	m.recordHeartbeatAt(0, start)
	m.Tick(start.Add(SuspectAfter + time.Millisecond))
	require.Equal(t, Suspect, m.Status(0))

	m.RecordHeartbeat(0)
	assert.Equal(t, Active, m.Status(0))
}

func TestPingTargetsExcludesConfirmedDown(t *testing.T) {
	m := NewManager(2)
	start := time.Now()
	m.recordHeartbeatAt(0, start)
	m.recordHeartbeatAt(1, start)
	m.Tick(start.Add(SuspectAfter + time.Millisecond))
	m.Tick(start.Add(ConfirmedDownAfter + time.Millisecond))

	assert.Empty(t, m.PingTargets())
	assert.Empty(t, m.ActiveServers())
}
