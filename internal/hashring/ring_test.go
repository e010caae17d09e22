package hashring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetServerIsDeterministic(t *testing.T) {
	r1 := NewRing(8)
	r2 := NewRing(8)
	keys := []string{"StageX", "FILE_PATH", "microscope", "", "a-very-long-key-name"}
	for _, k := range keys {
		assert.Equal(t, r1.GetServer(k), r2.GetServer(k), "key %q", k)
	}
}

func TestGetServerEmptyRing(t *testing.T) {
	r := NewRing(0)
	assert.Equal(t, 0, r.GetServer("anything"))
}

func TestGetReplicaServersUniqueAndSized(t *testing.T) {
	r := NewRing(4)
	servers := r.GetReplicaServers("StageX", 1)
	assert.Len(t, servers, 2)
	assert.Equal(t, r.GetServer("StageX"), servers[0])
	seen := map[int]bool{}
	for _, s := range servers {
		assert.False(t, seen[s], "duplicate server %d", s)
		seen[s] = true
	}
}

func TestGetReplicaServersCapsAtNumServers(t *testing.T) {
	r := NewRing(3)
	servers := r.GetReplicaServers("StageX", 10)
	assert.Len(t, servers, 3)
}

func TestGetReplicaServersFirstIsPrimary(t *testing.T) {
	r := NewRing(6)
	for _, k := range []string{"a", "b", "c", "StageX=300.00", "FILE_PATH"} {
		servers := r.GetReplicaServers(k, 2)
		assert.Equal(t, r.GetServer(k), servers[0])
	}
}

func TestHashFNV1a64KnownVector(t *testing.T) {
	// FNV-1a-64 of the empty string is the offset basis itself.
	assert.Equal(t, fnv64OffsetBasis, HashFNV1a64(""))
}

func TestHashFNV1a32KnownVector(t *testing.T) {
	assert.Equal(t, fnv32OffsetBasis, HashFNV1a32(""))
}
