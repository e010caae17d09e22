// Package dart implements the DART routing layer: a fixed pool of
// virtual nodes keyed by short prefixes, assigned to servers by
// consistent hashing, used to translate a key or a query into the
// minimum set of destination servers.
package dart

import (
	"strconv"

	"github.com/sashank1508/idioms/internal/hashring"
)

// VirtualNodeCount is the fixed size of the virtual-node pool.
const VirtualNodeCount = 256

// VirtualNode is a routing unit carrying a short prefix and a stable id.
type VirtualNode struct {
	ID     int
	Prefix string
}

var punctuationPrefixes = []string{
	"_", "-", ".", "/", ",", ":", ";", "!", "@", "#", "$", "%", "^", "&", "*", "(", ")",
}

// commonPrefixes are twenty hard-coded two-character prefixes seeded
// alongside the single-character alphabet, matching the design's
// rationale that real metadata keys cluster around a handful of
// two-letter stems (Stage, File, Data, ...).
var commonPrefixes = []string{
	"St", "Fi", "Da", "Mi", "Ob", "Cr", "Au", "Va", "Ke", "Me",
	"Po", "Re", "Se", "Sc", "Im", "Sa", "Ex", "Lo", "Ti", "Ch",
}

func seedPrefixes() []string {
	var prefixes []string
	for c := 'a'; c <= 'z'; c++ {
		prefixes = append(prefixes, string(c))
	}
	for c := 'A'; c <= 'Z'; c++ {
		prefixes = append(prefixes, string(c))
	}
	for c := '0'; c <= '9'; c++ {
		prefixes = append(prefixes, string(c))
	}
	prefixes = append(prefixes, punctuationPrefixes...)
	prefixes = append(prefixes, commonPrefixes...)
	prefixes = append(prefixes, "")
	return prefixes
}

// buildVirtualNodes repeatedly iterates the seed prefix list, assigning
// each element a new virtual-node id, until exactly VirtualNodeCount
// virtual nodes exist.
func buildVirtualNodes() []VirtualNode {
	seeds := seedPrefixes()
	nodes := make([]VirtualNode, 0, VirtualNodeCount)
	for id := 0; len(nodes) < VirtualNodeCount; id++ {
		nodes = append(nodes, VirtualNode{ID: id, Prefix: seeds[id%len(seeds)]})
	}
	return nodes
}

// assignVirtualNodes assigns each virtual node to a server by
// consistent-hashing "vnode_<id>" against the given ring.
func assignVirtualNodes(nodes []VirtualNode, ring *hashring.Ring) map[int]int {
	assignment := make(map[int]int, len(nodes))
	for _, vn := range nodes {
		assignment[vn.ID] = ring.GetServer("vnode_" + strconv.Itoa(vn.ID))
	}
	return assignment
}
