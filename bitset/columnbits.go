// Package bitset wraps github.com/bits-and-blooms/bitset into the
// per-column incidence sets the Inspector and MetadataExchange stages
// need. A set-of-ids representation would make the metadata exchange
// O(M) per host; the packed bitset is O(N/C) bits per column peer.
package bitset

import (
	bb "github.com/bits-and-blooms/bitset"
)

// ColumnIncidence is hasIn[i]: one bit per column-index slot in the
// compact column-block address space of a single column peer.
type ColumnIncidence struct {
	bits *bb.BitSet
}

// New allocates a ColumnIncidence able to address size distinct column
// indices.
func New(size uint) *ColumnIncidence {
	return &ColumnIncidence{bits: bb.New(size)}
}

// Set marks column index i as having at least one incoming edge.
func (c *ColumnIncidence) Set(i uint32) {
	c.bits.Set(uint(i))
}

// Test reports whether column index i has been marked.
func (c *ColumnIncidence) Test(i uint32) bool {
	return c.bits.Test(uint(i))
}

// Len returns the addressable size of the bitset.
func (c *ColumnIncidence) Len() uint {
	return c.bits.Len()
}

// Merge OR-reduces other into c in place, folding a row peer's
// incidence bits into this host's own.
func (c *ColumnIncidence) Merge(other *ColumnIncidence) {
	c.bits.InPlaceUnion(other.bits)
}

// Clone returns an independent copy.
func (c *ColumnIncidence) Clone() *ColumnIncidence {
	return &ColumnIncidence{bits: c.bits.Clone()}
}

// MarshalBinary serializes the bitset for the MetadataExchange wire
// format.
func (c *ColumnIncidence) MarshalBinary() ([]byte, error) {
	return c.bits.MarshalBinary()
}

// UnmarshalBinary deserializes a bitset received over the wire into a
// freshly allocated ColumnIncidence.
func UnmarshalBinary(data []byte) (*ColumnIncidence, error) {
	bs := &bb.BitSet{}
	if err := bs.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return &ColumnIncidence{bits: bs}, nil
}
