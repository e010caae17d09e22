package client

import (
	"sort"

	"go.uber.org/zap"

	"github.com/sashank1508/idioms/internal/cluster/fault"
	"github.com/sashank1508/idioms/internal/cluster/wire"
)

// Router resolves keys and queries to destination server ids. Both
// dart.Table and popularity.AdaptiveRouter satisfy this, so a Client
// can be pointed at either the base router or its adaptive wrapper
// without any change to client logic.
type Router interface {
	GetServersForKey(key string) []int
	GetDestinationServers(queryStr string) []int
}

// Transport is the subset of wire.TCPTransport (and wire.GRPCTransport,
// via a thin adapter) a Client needs: a blocking request/response
// round trip to one server address.
type Transport interface {
	SendAndReceive(addr string, tag wire.Tag, msg interface{}) (*wire.Envelope, error)
}

// Client is one logical client handle: it resolves destination
// servers via Router, sends requests via Transport, and consults
// Faults to skip servers it already believes are down.
type Client struct {
	id        int64
	Addrs     []string // Addrs[serverID] is that server's dial address
	Router    Router
	Transport Transport
	Faults    *fault.Manager
	log       *zap.Logger
}

// New builds a Client. Faults may be nil, in which case no server is
// ever treated as down (useful for tests and for the adaptive-router
// unit tests that don't exercise fault handling).
func New(addrs []string, router Router, transport Transport, faults *fault.Manager, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{Addrs: addrs, Router: router, Transport: transport, Faults: faults, log: logger}
}

// ID returns the id assigned by a Manager's Register, or 0 if this
// Client was never registered.
func (c *Client) ID() int64 {
	return c.id
}

func (c *Client) isConfirmedDown(serverID int) bool {
	return c.Faults != nil && c.Faults.Status(serverID) == fault.ConfirmedDown
}

func (c *Client) addr(serverID int) (string, bool) {
	if serverID < 0 || serverID >= len(c.Addrs) {
		return "", false
	}
	return c.Addrs[serverID], true
}

// CreateMDIndex sends CreateIndex to every replica of key, per the
// design's "acknowledges only after each replica has confirmed its
// local insert". A transport error against one replica is logged and
// does not abort the others — the design says the client does not
// retry — and is reported back as a single aggregate error.
func (c *Client) CreateMDIndex(key, value string, objectID int64) error {
	servers := c.Router.GetServersForKey(key)
	return c.fanOutIndexMutation(servers, wire.TagCreateIndex, &wire.CreateIndexMessage{
		Key: key, Value: value, ObjectID: objectID,
	})
}

// DeleteMDIndex sends DeleteIndex to every replica of key.
func (c *Client) DeleteMDIndex(key, value string, objectID int64) error {
	servers := c.Router.GetServersForKey(key)
	return c.fanOutIndexMutation(servers, wire.TagDeleteIndex, &wire.DeleteIndexMessage{
		Key: key, Value: value, ObjectID: objectID,
	})
}

func (c *Client) fanOutIndexMutation(servers []int, tag wire.Tag, msg interface{}) error {
	var firstErr error
	for _, serverID := range servers {
		if c.isConfirmedDown(serverID) {
			continue
		}
		addr, ok := c.addr(serverID)
		if !ok {
			continue
		}
		if _, err := c.Transport.SendAndReceive(addr, tag, msg); err != nil {
			c.log.Warn("index mutation failed against replica",
				zap.Int("server", serverID), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// MDSearch sends Query to every destination server the router picks
// for queryStr, skipping any ConfirmedDown server (which contributes
// an empty result set per the design), and returns the sorted
// deduplicated union.
func (c *Client) MDSearch(queryStr string) []int64 {
	servers := c.Router.GetDestinationServers(queryStr)
	seen := make(map[int64]bool)
	var union []int64
	for _, serverID := range servers {
		if c.isConfirmedDown(serverID) {
			continue
		}
		addr, ok := c.addr(serverID)
		if !ok {
			continue
		}
		env, err := c.Transport.SendAndReceive(addr, wire.TagQuery, &wire.QueryMessage{QueryStr: queryStr})
		if err != nil {
			c.log.Warn("query failed against replica", zap.Int("server", serverID), zap.Error(err))
			continue
		}
		resp, ok := env.Payload.(*wire.ResponseMessage)
		if !ok || !resp.Success {
			continue
		}
		for _, id := range resp.Results {
			if !seen[id] {
				seen[id] = true
				union = append(union, id)
			}
		}
	}
	sort.Slice(union, func(i, j int) bool { return union[i] < union[j] })
	return union
}

// SendHeartbeat pings serverID and, on a successful reply, records it
// Active in Faults.
func (c *Client) SendHeartbeat(serverID int, timestampMs int64) {
	addr, ok := c.addr(serverID)
	if !ok {
		return
	}
	env, err := c.Transport.SendAndReceive(addr, wire.TagHeartbeat, &wire.HeartbeatMessage{
		SenderID: int(c.id), TimestampMs: timestampMs,
	})
	if err != nil {
		return
	}
	if _, ok := env.Payload.(*wire.HeartbeatMessage); ok && c.Faults != nil {
		c.Faults.RecordHeartbeat(serverID)
	}
}
