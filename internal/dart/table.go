package dart

import (
	"strconv"
	"strings"

	"github.com/sashank1508/idioms/internal/affixindex"
	"github.com/sashank1508/idioms/internal/hashring"
)

// DefaultReplicationRatio is used when a Table is built without an
// explicit ratio.
const DefaultReplicationRatio = 0.1

// Table is the immutable, queryable DART router, analogous to the
// teacher's Ring: all mutation happens on a Builder, and Table is what
// callers hold onto to resolve keys and queries to servers.
type Table struct {
	numServers  int
	ratio       float64
	vnodes      []VirtualNode
	vnodeServer map[int]int
	ring        *hashring.Ring
}

// ReplicationFactor returns r = max(1, floor(numServers*ratio)).
func (t *Table) ReplicationFactor() int {
	r := int(float64(t.numServers) * t.ratio)
	if r < 1 {
		r = 1
	}
	return r
}

// NumServers returns the number of servers this table was built for.
func (t *Table) NumServers() int {
	return t.numServers
}

// GetVirtualNodeID scans virtual nodes in id order and returns the id of
// the first whose prefix is a prefix of key. An empty pool yields 0;
// otherwise, when no prefix matches (impossible while the pool holds an
// empty-prefix virtual node), the key's FNV-1a hash modulo the pool size
// is returned.
func (t *Table) GetVirtualNodeID(key string) int {
	for _, vn := range t.vnodes {
		if strings.HasPrefix(key, vn.Prefix) {
			return vn.ID
		}
	}
	if len(t.vnodes) == 0 {
		return 0
	}
	return int(hashring.HashFNV1a32(key)) % len(t.vnodes)
}

// GetServersForKey returns the primary server for key followed by up to
// ReplicationFactor() distinct replica servers (excluding the primary).
func (t *Table) GetServersForKey(key string) []int {
	return t.getServersForKey(key, t.ReplicationFactor())
}

// getServersForKey is the replication-factor-parameterized core, reused
// by the adaptive router (component D) to substitute its own factor.
func (t *Table) getServersForKey(key string, replicationFactor int) []int {
	primary := t.vnodeServer[t.GetVirtualNodeID(key)]
	replicas := t.ring.GetReplicaServers(key, replicationFactor)

	result := []int{primary}
	seen := map[int]bool{primary: true}
	added := 0
	for _, s := range replicas {
		if added >= replicationFactor {
			break
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		added++
		result = append(result, s)
	}
	return result
}

// GetServersForKeyWithFactor is GetServersForKey parameterized on an
// explicit replication factor, used by the adaptive router (component
// D) to substitute its own factor in place of ReplicationFactor().
func (t *Table) GetServersForKeyWithFactor(key string, replicationFactor int) []int {
	return t.getServersForKey(key, replicationFactor)
}

// GetDestinationServersWithFactor is GetDestinationServers parameterized
// on an explicit replication factor.
func (t *Table) GetDestinationServersWithFactor(queryStr string, replicationFactor int) []int {
	return t.getDestinationServers(queryStr, replicationFactor)
}

// KeyPortion returns the key-portion of a "keyPattern=valuePattern"
// query string (the whole string if there is no '=').
func KeyPortion(queryStr string) string {
	keyPattern, _, err := affixindex.SplitQuery(queryStr)
	if err != nil {
		return queryStr
	}
	return keyPattern
}

// IsExactPattern reports whether pattern classifies as the Exact shape.
func IsExactPattern(pattern string) bool {
	shape, _ := affixindex.ClassifyPattern(pattern)
	return shape == affixindex.Exact
}

// GetDestinationServers classifies queryStr's key-portion into one of
// the five query shapes and returns the minimum necessary fan-out.
func (t *Table) GetDestinationServers(queryStr string) []int {
	return t.getDestinationServers(queryStr, t.ReplicationFactor())
}

func (t *Table) getDestinationServers(queryStr string, replicationFactor int) []int {
	if isCompoundOrRangeQuery(queryStr) {
		return t.allServers()
	}
	keyPattern, _, err := affixindex.SplitQuery(queryStr)
	if err != nil {
		return t.allServers()
	}
	shape, body := affixindex.ClassifyPattern(keyPattern)
	switch shape {
	case affixindex.Wildcard:
		return t.allServers()
	case affixindex.Infix:
		return t.prefixServers(body)
	case affixindex.Suffix:
		// Suffix queries treat the suffix as a key and route through
		// GetServersForKey, per the design's dispatch table.
		return t.getServersForKey(body, replicationFactor)
	case affixindex.Prefix:
		return t.prefixServers(body)
	default: // Exact
		return t.getServersForKey(body, replicationFactor)
	}
}

// isCompoundOrRangeQuery reports whether queryStr uses one of the
// internal/query grammars rather than the plain
// "keyPattern=valuePattern" shape SplitQuery/ClassifyPattern
// understand. A single key-portion can't be derived from these
// grammars without duplicating internal/query's parser here, so they
// always fan out to every server rather than risk misrouting on a
// bogus key split.
func isCompoundOrRangeQuery(queryStr string) bool {
	return strings.Contains(queryStr, " AND ") ||
		strings.Contains(queryStr, " OR ") ||
		strings.Contains(queryStr, " in range [")
}

// prefixServers collects the server for every virtual node whose prefix
// is a prefix of query, or whose query is a prefix of the vnode's
// prefix, deduplicated. An empty result fans out to all servers.
func (t *Table) prefixServers(query string) []int {
	seen := map[int]bool{}
	var result []int
	for _, vn := range t.vnodes {
		if strings.HasPrefix(query, vn.Prefix) || strings.HasPrefix(vn.Prefix, query) {
			server := t.vnodeServer[vn.ID]
			if !seen[server] {
				seen[server] = true
				result = append(result, server)
			}
		}
	}
	if len(result) == 0 {
		return t.allServers()
	}
	return result
}

func (t *Table) allServers() []int {
	result := make([]int, t.numServers)
	for i := range result {
		result[i] = i
	}
	return result
}

// VirtualNodes returns a copy of the virtual-node pool.
func (t *Table) VirtualNodes() []VirtualNode {
	out := make([]VirtualNode, len(t.vnodes))
	copy(out, t.vnodes)
	return out
}

// ServerForVirtualNode returns the server a virtual node is currently
// assigned to.
func (t *Table) ServerForVirtualNode(vnodeID int) int {
	return t.vnodeServer[vnodeID]
}

// Reassign mutates vnodeID's owning server, applying one step of a
// recovery coordinator's plan in place. Unlike Remap, it touches a
// single virtual node and leaves the rest of the table untouched.
func (t *Table) Reassign(vnodeID, newServer int) {
	t.vnodeServer[vnodeID] = newServer
}

// ReplacementServer returns the first server in the ring's replica order
// for "vnode_<vnodeID>" other than excludeServerID, for use by the
// recovery coordinator when reassigning virtual nodes owned by a
// confirmed-down server. Server status is not consulted, so the result
// may itself be down. ok is false only when every server on the ring is
// excluded.
func (t *Table) ReplacementServer(vnodeID int, excludeServerID int) (server int, ok bool) {
	key := "vnode_" + strconv.Itoa(vnodeID)
	candidates := t.ring.GetReplicaServers(key, t.numServers)
	for _, s := range candidates {
		if s != excludeServerID {
			return s, true
		}
	}
	return 0, false
}
