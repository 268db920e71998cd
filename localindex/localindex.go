// Package localindex builds a host's local<->global id mapping and CSR
// prefix-sum table from its own Inspector output and the row-wise
// MetadataExchange result, in three passes: owned masters, then
// outgoing mirrors for other row peers' sources that route edges into
// this host's column, then incoming mirrors for column peers'
// destinations this host must be able to address.
package localindex

import (
	"github.com/distgraph/cartesiancut/blockmap"
	"github.com/distgraph/cartesiancut/exchange"
	"github.com/distgraph/cartesiancut/grid"
	"github.com/distgraph/cartesiancut/inspector"
	"github.com/distgraph/cartesiancut/msg"
	"github.com/distgraph/cartesiancut/partitionerr"
)

// Slot classifies why a local id exists.
type Slot int

const (
	// Master is an owned source: one of this host's own D virtual
	// ranges, always materialized regardless of out-degree.
	Master Slot = iota
	// OutgoingMirror is a master living on a row peer whose out-edges
	// route into this host's column; it needs a local CSR slot so
	// EdgeLoader can construct those edges here.
	OutgoingMirror
	// DummyOutgoing is an OutgoingMirror with no edges routed to it
	// by MetadataExchange degree counts, kept only because the
	// checkerboard (columnBlocked) cut can't tell in advance it will
	// be idle; see Config.LenientDummyOutgoing.
	DummyOutgoing
	// IncomingMirror is a destination-only placeholder: some column
	// peer's master has an edge landing here, but this host never
	// owns or routes that source's out-edges.
	IncomingMirror
)

// LocalIndex is a host's local id space: Local2Global[lid] is the
// global id local id lid refers to; PrefixEdges[lid] is the running
// sum of constructed-locally out-edge counts up to (not including)
// local id lid, so PrefixEdges has length len(Local2Global)+1.
type LocalIndex struct {
	Local2Global []uint64
	Global2Local map[uint64]uint32
	PrefixEdges  []uint64
	Kind         []Slot

	NumMasters       int
	NumOutgoingTotal int // masters + outgoing mirrors, i.e. nodesWithEdges
	DummyOutgoing    int

	// R and C are the grid dimensions this LocalIndex was built against,
	// carried along so a persisted snapshot can be checked against the
	// grid geometry of whatever host later loads it.
	R, C int
}

// NumNodes returns the total local id count, across all three slot
// kinds.
func (li *LocalIndex) NumNodes() int { return len(li.Local2Global) }

// NumEdges returns the total out-edge count that will be constructed
// locally by EdgeLoader.
func (li *LocalIndex) NumEdges() uint64 {
	if len(li.PrefixEdges) == 0 {
		return 0
	}
	return li.PrefixEdges[len(li.PrefixEdges)-1]
}

func (li *LocalIndex) addNode(gid uint64, kind Slot) {
	lid := uint32(len(li.Local2Global))
	li.Local2Global = append(li.Local2Global, gid)
	li.Global2Local[gid] = lid
	li.Kind = append(li.Kind, kind)
}

// Build constructs host's LocalIndex. insp must be host's own Inspector
// result; exch must be the MetadataExchange result computed from insp
// over host's row. lenientDummyOutgoing controls whether a source that
// should have been owned, but wasn't flagged as an outgoing mirror by
// degree counts, is tolerated (the checkerboard-only dummy-outgoing
// path) or treated as a partition invariant violation in the
// non-columnBlocked branch.
func Build(g *grid.Grid, bm *blockmap.BlockMap, host msg.HostID, insp *inspector.Result, exch *exchange.Result, lenientDummyOutgoing bool) (*LocalIndex, error) {
	ownCol := g.ColOf(int(host))

	li := &LocalIndex{
		Global2Local: make(map[uint64]uint32),
		PrefixEdges:  []uint64{0},
		R:            g.Rows(),
		C:            g.Cols(),
	}

	var numEdges uint64

	// Step 1: owned masters. Every source in this host's own D ranges
	// is materialized unconditionally, using this host's own
	// (un-exchanged) out-degree into its own column.
	owned := g.OwnedVirtualHosts(int(host))
	for d, v := range owned {
		r := bm.RangeOf(v)
		degs := insp.OutDeg[d][ownCol]
		for k, deg := range degs {
			gid := r.Start + uint64(k)
			li.addNode(gid, Master)
			numEdges += deg
			li.PrefixEdges = append(li.PrefixEdges, numEdges)
		}
	}
	li.NumMasters = li.NumNodes()

	// Step 2: outgoing mirrors. For every other row peer, walk that
	// peer's own D ranges using the degree vectors it sent us during
	// MetadataExchange (its sources' out-degree into our column).
	for _, p := range g.RowMembers(int(host)) {
		if p == int(host) {
			continue
		}
		degVecs, ok := exch.Received[msg.HostID(p)]
		if !ok {
			return nil, partitionerr.New(partitionerr.ProtocolMismatch, int(host), 0,
				"missing MetadataExchange result from row peer")
		}

		peerOwned := g.OwnedVirtualHosts(p)
		for d, v := range peerOwned {
			r := bm.RangeOf(v)
			degs := degVecs[d]
			for k, deg := range degs {
				gid := r.Start + uint64(k)

				switch {
				case deg > 0:
					li.addNode(gid, OutgoingMirror)
					numEdges += deg
					li.PrefixEdges = append(li.PrefixEdges, numEdges)

				case bm.ColumnPeerOf(gid) == ownCol && exch.Combined.Test(bm.ColumnIndexOf(gid)):
					// This source lies in our column and has an
					// incoming edge (per the combined incidence
					// bitset), but the exchanged degree count for it
					// was zero: it
					// should have been owned as a master by someone
					// but wasn't assigned that way.
					if g.ColumnBlocked() {
						li.addNode(gid, DummyOutgoing)
						li.DummyOutgoing++
						li.PrefixEdges = append(li.PrefixEdges, numEdges)
					} else if lenientDummyOutgoing {
						li.addNode(gid, DummyOutgoing)
						li.DummyOutgoing++
						li.PrefixEdges = append(li.PrefixEdges, numEdges)
					} else {
						return nil, partitionerr.New(partitionerr.PartitionInvariant, int(host), 0,
							"source should have been owned but wasn't assigned to any row peer")
					}
				}
			}
		}
	}
	li.NumOutgoingTotal = li.NumNodes()

	// Step 3: incoming mirrors. Walk every virtual host sharing our
	// grid column (across the full decomposed row space, not just our
	// own D ranges) and materialize any destination the combined
	// incidence bitset marks as receiving an edge, if it isn't already
	// a local id.
	rows := g.Rows()
	cols := g.Cols()
	for r := 0; r < rows; r++ {
		var v int
		if g.ColumnBlocked() {
			v = ownCol*rows + r
		} else {
			v = r*cols + ownCol
		}
		if g.VirtualToReal(v) == int(host) {
			continue
		}
		rng := bm.RangeOf(v)
		for gid := rng.Start; gid < rng.End; gid++ {
			if !exch.Combined.Test(bm.ColumnIndexOf(gid)) {
				continue
			}
			if _, exists := li.Global2Local[gid]; exists {
				continue
			}
			li.addNode(gid, IncomingMirror)
			li.PrefixEdges = append(li.PrefixEdges, numEdges)
		}
	}

	return li, nil
}
