package dart

import "github.com/sashank1508/idioms/internal/hashring"

// Builder constructs and, on membership change, remaps a Table. It
// mirrors the teacher's Builder/Ring split: mutation happens here,
// Table() hands back an immutable snapshot.
type Builder struct {
	numServers int
	ratio      float64
	vnodes     []VirtualNode
}

// NewBuilder constructs a Builder for numServers servers with the given
// replication ratio. A ratio <= 0 falls back to DefaultReplicationRatio.
func NewBuilder(numServers int, ratio float64) *Builder {
	if ratio <= 0 {
		ratio = DefaultReplicationRatio
	}
	return &Builder{
		numServers: numServers,
		ratio:      ratio,
		vnodes:     buildVirtualNodes(),
	}
}

// Table builds (or rebuilds) the immutable Table from the builder's
// current state.
func (b *Builder) Table() *Table {
	ring := hashring.NewRing(b.numServers)
	assignment := assignVirtualNodes(b.vnodes, ring)
	return &Table{
		numServers:  b.numServers,
		ratio:       b.ratio,
		vnodes:      b.vnodes,
		vnodeServer: assignment,
		ring:        ring,
	}
}

// RemapResult reports how many virtual nodes changed server assignment
// across a remap, per the design's persistence section.
type RemapResult struct {
	Table         *Table
	VNodesChanged int
}

// Remap rebuilds the ring for a new server count and reassigns virtual
// nodes, reporting how many vnodes moved relative to the previous table.
func (b *Builder) Remap(numServers int, previous *Table) *RemapResult {
	b.numServers = numServers
	next := b.Table()
	changed := 0
	if previous != nil {
		for _, vn := range next.vnodes {
			if previous.vnodeServer[vn.ID] != next.vnodeServer[vn.ID] {
				changed++
			}
		}
	}
	return &RemapResult{Table: next, VNodesChanged: changed}
}
