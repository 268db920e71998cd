// Package grid implements the cartesian (2-D) host grid arithmetic: the
// pure, total mapping from host and virtual-host ids to grid coordinates.
// It has no I/O and no failure modes beyond rejecting a malformed
// configuration at construction, keeping this heavily-used value type
// small, total, and free of network or disk concerns.
package grid

import (
	"math"

	"github.com/distgraph/cartesiancut/partitionerr"
)

// Grid is immutable after construction.
type Grid struct {
	h             int // real hosts
	d             int // decompose factor
	baseRows      int // R0: row count before the D multiply
	cols          int // C: column count, unaffected by D
	moreColumns   bool
	columnBlocked bool
}

// New factorizes h hosts into an R0 x C grid (C the largest divisor of h
// not exceeding sqrt(h)), optionally swaps rows/columns, then scales the
// row count by the decompose factor d to virtualize h into h*d logical
// hosts. The D multiply is applied after the moreColumns swap so that
// swapping rows and columns always acts on the real-host grid, leaving
// virtual-host decomposition as a layer purely on top of row count.
func New(h, d int, moreColumns, columnBlocked bool) (*Grid, error) {
	if h <= 0 {
		return nil, partitionerr.New(partitionerr.ConfigError, -1, 0, "H must be positive")
	}
	if d <= 0 {
		return nil, partitionerr.New(partitionerr.ConfigError, -1, 0, "D must be at least 1")
	}

	c := int(math.Sqrt(float64(h)))
	if c < 1 {
		c = 1
	}
	for h%c != 0 {
		c--
	}
	r := h / c

	if moreColumns {
		r, c = c, r
	}

	return &Grid{
		h:             h,
		d:             d,
		baseRows:      r,
		cols:          c,
		moreColumns:   moreColumns,
		columnBlocked: columnBlocked,
	}, nil
}

// NumHosts returns the number of real (non-virtual) hosts, H.
func (g *Grid) NumHosts() int { return g.h }

// DecomposeFactor returns D.
func (g *Grid) DecomposeFactor() int { return g.d }

// Rows returns R, the decomposed row count (R = R0 * D). R*Cols() == H*D.
func (g *Grid) Rows() int { return g.baseRows * g.d }

// Cols returns C, the column count. Unaffected by the decompose factor.
func (g *Grid) Cols() int { return g.cols }

// NumVirtualHosts returns H*D, the size of the BlockMap range table.
func (g *Grid) NumVirtualHosts() int { return g.h * g.d }

func (g *Grid) MoreColumns() bool   { return g.moreColumns }
func (g *Grid) ColumnBlocked() bool { return g.columnBlocked }

// RowOf returns the grid row of a real host id (not a virtual id).
func (g *Grid) RowOf(realHost int) int { return realHost / g.cols }

// ColOf returns the grid column of a real host id.
func (g *Grid) ColOf(realHost int) int { return realHost % g.cols }

// VirtualToReal maps a virtual host id v in [0, H*D) down to its owning
// real host in [0, H).
func (g *Grid) VirtualToReal(v int) int { return v % g.h }

// ColumnPeerOfBlock returns the column peer of a block id (a value in
// [0, H), per BlockMap.BlockOf). Under columnBlocked (checkerboard) mode
// blocks are assigned to columns contiguously using the decomposed row
// count; otherwise assignment is round-robin by column.
func (g *Grid) ColumnPeerOfBlock(block int) int {
	if g.columnBlocked {
		return block / g.Rows()
	}
	return block % g.cols
}

// OwnedVirtualHosts returns the D virtual host ids a real host hosts:
// {host, host+H, host+2H, ..., host+(D-1)H}.
func (g *Grid) OwnedVirtualHosts(host int) []int {
	owned := make([]int, g.d)
	for i := 0; i < g.d; i++ {
		owned[i] = host + i*g.h
	}
	return owned
}

// SameRow returns whether real hosts a and b share a grid row.
func (g *Grid) SameRow(a, b int) bool { return g.RowOf(a) == g.RowOf(b) }

// SameCol returns whether real hosts a and b share a grid column.
func (g *Grid) SameCol(a, b int) bool { return g.ColOf(a) == g.ColOf(b) }

// RowMembers returns all real hosts sharing host's grid row, in ascending
// order, including host itself.
func (g *Grid) RowMembers(host int) []int {
	row := g.RowOf(host)
	members := make([]int, 0, g.cols)
	for c := 0; c < g.cols; c++ {
		h := row*g.cols + c
		if h < g.h {
			members = append(members, h)
		}
	}
	return members
}

// ColMembers returns all real hosts sharing host's grid column, in
// ascending order, including host itself.
func (g *Grid) ColMembers(host int) []int {
	col := g.ColOf(host)
	rows := g.h / g.cols
	members := make([]int, 0, rows)
	for r := 0; r < rows; r++ {
		h := r*g.cols + col
		if h < g.h {
			members = append(members, h)
		}
	}
	return members
}
