// Package replica builds the per-host bookkeeping a synchronization
// layer needs once LocalIndex has fixed a host's local id space: which
// local ids are masters, and which local ids are mirrors of a master
// owned by some other real host.
//
// Generalizes a flat "which remote owns this id" lookup table to the
// two-sided owned-here/owned-elsewhere split a vertex-cut partition
// needs.
package replica

import (
	"sort"

	"github.com/distgraph/cartesiancut/blockmap"
	"github.com/distgraph/cartesiancut/grid"
	"github.com/distgraph/cartesiancut/localindex"
)

// Tables is immutable once built.
type Tables struct {
	// Masters lists the local ids this host owns as masters.
	Masters []uint32

	// MirrorsByOwner groups every non-master local id by the real host
	// that owns its master, in ascending local-id order.
	MirrorsByOwner map[int][]uint32

	// Owner maps a mirror's local id back to its owning real host.
	Owner map[uint32]int
}

// Build derives Tables for host from its LocalIndex, using bm and g to
// map each mirror's global id back to the real host that owns it.
func Build(g *grid.Grid, bm *blockmap.BlockMap, host int, li *localindex.LocalIndex) *Tables {
	t := &Tables{
		MirrorsByOwner: make(map[int][]uint32),
		Owner:          make(map[uint32]int),
	}

	for lid, kind := range li.Kind {
		if kind == localindex.Master {
			t.Masters = append(t.Masters, uint32(lid))
			continue
		}

		gid := li.Local2Global[lid]
		owner := g.VirtualToReal(bm.HostOf(gid))
		t.Owner[uint32(lid)] = owner
		t.MirrorsByOwner[owner] = append(t.MirrorsByOwner[owner], uint32(lid))
	}

	return t
}

// OwnerHosts returns the distinct real hosts this host holds mirrors
// for, in ascending order.
func (t *Tables) OwnerHosts() []int {
	hosts := make([]int, 0, len(t.MirrorsByOwner))
	for h := range t.MirrorsByOwner {
		hosts = append(hosts, h)
	}
	sort.Ints(hosts)
	return hosts
}

// HasMirrorsOf reports whether this host holds any mirror owned by
// peer: the shared-nodes-with-peer test syncpolicy.NothingToSend needs
// for a Reduce round.
func (t *Tables) HasMirrorsOf(peer int) bool {
	return len(t.MirrorsByOwner[peer]) > 0
}
