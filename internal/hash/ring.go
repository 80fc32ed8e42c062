// Package hash distributes leases across consumer instances with a consistent hash ring.
package hash

import (
	"cmp"
	"encoding/binary"
	"slices"

	"github.com/zeebo/xxh3"

	"github.com/arloliu/feedsync/types"
)

// DefaultVirtualNodes is the number of ring positions per owner.
const DefaultVirtualNodes = 150

// Ring implements a consistent hash ring with virtual nodes.
//
// The ring maps lease ids to owners so that adding or removing a consumer
// instance moves only the leases that hashed next to it.
type Ring struct {
	nodes  []virtualNode
	owners []string
	seed   uint64
}

type virtualNode struct {
	hash     uint64
	ownerIdx int
}

// NewRing creates a new consistent hash ring.
//
// Parameters:
//   - owners: Owner identities to place on the ring (duplicates are ignored)
//   - virtualNodesPerOwner: Ring positions per owner (higher = smoother distribution)
//   - seed: Hash seed (0 = unseeded)
//
// Returns:
//   - *Ring: Initialized hash ring
//
// Example:
//
//	ring := hash.NewRing([]string{"host-a", "host-b"}, hash.DefaultVirtualNodes, 0)
//	owner := ring.OwnerFor(lease.ID)
func NewRing(owners []string, virtualNodesPerOwner int, seed uint64) *Ring {
	uniq := make([]string, 0, len(owners))
	seen := make(map[string]struct{}, len(owners))
	for _, o := range owners {
		if _, ok := seen[o]; ok {
			continue
		}
		seen[o] = struct{}{}
		uniq = append(uniq, o)
	}

	r := &Ring{
		nodes:  make([]virtualNode, 0, len(uniq)*virtualNodesPerOwner),
		owners: uniq,
		seed:   seed,
	}
	for i, owner := range uniq {
		r.addOwner(owner, i, virtualNodesPerOwner)
	}
	slices.SortFunc(r.nodes, func(a, b virtualNode) int {
		return cmp.Compare(a.hash, b.hash)
	})

	return r
}

// OwnerFor returns the owner responsible for a lease id ("" on an empty ring).
func (r *Ring) OwnerFor(leaseID string) string {
	idx := r.ownerIndex(leaseID)
	if idx < 0 {
		return ""
	}

	return r.owners[idx]
}

// Owners returns the unique owners on the ring.
func (r *Ring) Owners() []string {
	return append([]string(nil), r.owners...)
}

// Size returns the total number of virtual nodes on the ring.
func (r *Ring) Size() int {
	return len(r.nodes)
}

// Assign distributes leases over the ring's owners with bounded load.
//
// Each lease goes to its ring owner unless that owner already holds
// ceil(len(leases)/owners) leases, in which case the next owner clockwise
// with spare capacity takes it. The result is deterministic for a given
// lease set and owner set regardless of input order.
//
// Parameters:
//   - leases: Leases to distribute
//
// Returns:
//   - map[string][]types.Lease: Owner -> leases, each slice sorted by lease id
func (r *Ring) Assign(leases []types.Lease) map[string][]types.Lease {
	out := make(map[string][]types.Lease, len(r.owners))
	if len(r.owners) == 0 || len(leases) == 0 {
		return out
	}

	sorted := slices.Clone(leases)
	slices.SortFunc(sorted, func(a, b types.Lease) int { return cmp.Compare(a.ID, b.ID) })

	limit := (len(sorted) + len(r.owners) - 1) / len(r.owners)
	counts := make([]int, len(r.owners))

	for _, l := range sorted {
		pos := r.position(l.ID)
		for step := range len(r.nodes) {
			idx := r.nodes[(pos+step)%len(r.nodes)].ownerIdx
			if counts[idx] < limit {
				counts[idx]++
				out[r.owners[idx]] = append(out[r.owners[idx]], l)

				break
			}
		}
	}

	return out
}

func (r *Ring) addOwner(owner string, ownerIdx int, virtualNodes int) {
	for i := range virtualNodes {
		h := r.hash(owner)

		var ib [8]byte
		binary.LittleEndian.PutUint64(ib[:], uint64(i)) //nolint:gosec
		h = xxh3.HashSeed(ib[:], h)

		r.nodes = append(r.nodes, virtualNode{hash: h, ownerIdx: ownerIdx})
	}
}

func (r *Ring) ownerIndex(key string) int {
	if len(r.nodes) == 0 {
		return -1
	}

	return r.nodes[r.position(key)].ownerIdx
}

// position returns the index of the first virtual node at or after key's hash.
func (r *Ring) position(key string) int {
	target := r.hash(key)
	idx, _ := slices.BinarySearchFunc(r.nodes, target, func(node virtualNode, t uint64) int {
		return cmp.Compare(node.hash, t)
	})
	if idx >= len(r.nodes) {
		idx = 0
	}

	return idx
}

func (r *Ring) hash(key string) uint64 {
	if r.seed != 0 {
		return xxh3.HashStringSeed(key, r.seed)
	}

	return xxh3.HashString(key)
}
