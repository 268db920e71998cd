// Package blockmap owns the contiguous global-id ranges assigned to
// each virtual host, generalizing fixed-size index-range slicing
// (pindex := vid / partitionSize) to scale-factor-weighted,
// edge-count-balanced ranges over H*D virtual hosts instead of H
// equal-size workers.
package blockmap

import (
	"math"
	"sort"

	"github.com/distgraph/cartesiancut/graphio"
	"github.com/distgraph/cartesiancut/grid"
	"github.com/distgraph/cartesiancut/partitionerr"
)

// Range is a half-open [Start, End) window of global ids.
type Range struct {
	Start, End uint64
}

// Len returns End - Start.
func (r Range) Len() uint64 { return r.End - r.Start }

// Contains reports whether gid falls in [Start, End).
func (r Range) Contains(gid uint64) bool { return gid >= r.Start && gid < r.End }

// BlockMap is immutable after Build. ranges has length grid.NumVirtualHosts()
// and covers [0, N) contiguously.
type BlockMap struct {
	grid    *grid.Grid
	ranges  []Range
	colIdx  []uint64 // per virtual block, offset within its column-peer's concatenation
}

// Build balances N nodes across H*D virtual hosts so that each virtual
// host v owns approximately M * scale[v % H] / (D * sum(scale)) incident
// out-edges: a larger scale factor gives a host proportionally more.
// It is a single deterministic streaming pass: given identical inputs
// it always produces identical ranges.
func Build(reader graphio.Reader, g *grid.Grid, scale []int) (*BlockMap, error) {
	h := g.NumHosts()
	if len(scale) != h {
		return nil, partitionerr.New(partitionerr.ConfigError, -1, 0, "scale-factor vector length must equal H")
	}
	sum := 0
	for _, s := range scale {
		if s < 0 {
			return nil, partitionerr.New(partitionerr.ConfigError, -1, 0, "scale-factor entries must be non-negative")
		}
		sum += s
	}
	if sum <= 0 {
		return nil, partitionerr.New(partitionerr.ConfigError, -1, 0, "scale-factor vector must sum to at least 1")
	}

	numVirtual := g.NumVirtualHosts()
	n := reader.NumNodes()
	m := reader.NumEdges()

	weights := make([]float64, numVirtual)
	var totalWeight float64
	for v := 0; v < numVirtual; v++ {
		w := float64(scale[v%h])
		weights[v] = w
		totalWeight += w
	}

	ranges := make([]Range, numVirtual)
	var gid uint64
	var cumulative uint64
	var accWeight float64

	for v := 0; v < numVirtual; v++ {
		if gid >= n {
			ranges[v] = Range{Start: gid, End: gid}
			continue
		}
		accWeight += weights[v]
		var target uint64
		if totalWeight > 0 {
			target = uint64(math.Ceil(float64(m) * accWeight / totalWeight))
		}
		start := gid
		for gid < n && cumulative < target {
			begin, err := reader.EdgeBegin(gid)
			if err != nil {
				return nil, partitionerr.Wrap(partitionerr.IoError, -1, 0, "reading degree during block layout", err)
			}
			end, err := reader.EdgeEnd(gid)
			if err != nil {
				return nil, partitionerr.Wrap(partitionerr.IoError, -1, 0, "reading degree during block layout", err)
			}
			cumulative += end - begin
			gid++
		}
		ranges[v] = Range{Start: start, End: gid}
	}
	// Trailing nodes with no out-edges are left unassigned once the last
	// target is reached; fold them into the last virtual host so the
	// range table still covers [0, N).
	if gid < n {
		ranges[numVirtual-1].End = n
	}

	bm := &BlockMap{grid: g, ranges: ranges}
	bm.buildColumnIndex()
	return bm, nil
}

func (bm *BlockMap) buildColumnIndex() {
	h := bm.grid.NumHosts()
	cols := bm.grid.Cols()
	running := make([]uint64, cols)
	bm.colIdx = make([]uint64, len(bm.ranges))
	for v, r := range bm.ranges {
		block := v % h
		peer := bm.grid.ColumnPeerOfBlock(block)
		bm.colIdx[v] = running[peer]
		running[peer] += r.Len()
	}
}

// NumVirtual returns the size of the range table, H*D.
func (bm *BlockMap) NumVirtual() int { return len(bm.ranges) }

// RangeOf returns the range owned by virtual host v.
func (bm *BlockMap) RangeOf(v int) Range { return bm.ranges[v] }

// HostOf returns the unique virtual host v with gid in RangeOf(v).
func (bm *BlockMap) HostOf(gid uint64) int {
	return sort.Search(len(bm.ranges), func(i int) bool { return bm.ranges[i].End > gid })
}

// BlockOf returns the real host HostOf(gid) folds onto (HostOf(gid) mod H).
func (bm *BlockMap) BlockOf(gid uint64) int {
	return bm.HostOf(gid) % bm.grid.NumHosts()
}

// ColumnPeerOf returns the column peer of gid's block.
func (bm *BlockMap) ColumnPeerOf(gid uint64) int {
	return bm.grid.ColumnPeerOfBlock(bm.BlockOf(gid))
}

// ColumnIndexOf returns gid's position within the concatenation, in
// ascending virtual-block order, of all BlockMap ranges sharing gid's
// column peer.
func (bm *BlockMap) ColumnIndexOf(gid uint64) uint32 {
	v := bm.HostOf(gid)
	return uint32(bm.colIdx[v] + (gid - bm.ranges[v].Start))
}

// ColumnSize returns the total number of global ids assigned to column
// peer i across all virtual ranges: the addressable size needed for a
// ColumnIncidence bitset over column peer i.
func (bm *BlockMap) ColumnSize(peer int) uint64 {
	h := bm.grid.NumHosts()
	var total uint64
	for v, r := range bm.ranges {
		if bm.grid.ColumnPeerOfBlock(v%h) == peer {
			total += r.Len()
		}
	}
	return total
}
