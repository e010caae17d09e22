// Package client implements the client side of the cluster protocol:
// create/delete/search against the replica set a router computes, and
// the client-manager that tracks active client handles, grounded on
// the teacher's TCPMsgRing connection map generalized from net.Conn to
// logical client handles.
package client

import (
	"sync"
	"sync/atomic"
)

// Manager is a mutex-protected map of active client handles plus an
// atomic monotonic id counter, per the design's concurrency model.
type Manager struct {
	mu      sync.Mutex
	handles map[int64]*Client
	nextID  atomic.Int64
}

// NewManager builds an empty client manager.
func NewManager() *Manager {
	return &Manager{handles: make(map[int64]*Client)}
}

// Register assigns the next client id to c and tracks it, returning
// the assigned id.
func (m *Manager) Register(c *Client) int64 {
	id := m.nextID.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	c.id = id
	m.handles[id] = c
	return id
}

// Get returns the client handle for id, if still registered.
func (m *Manager) Get(id int64) (*Client, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.handles[id]
	return c, ok
}

// Unregister drops a client handle, e.g. on disconnect.
func (m *Manager) Unregister(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handles, id)
}

// Count returns the number of currently registered handles.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handles)
}
