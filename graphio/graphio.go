// Package graphio is the out-of-core global edge source the partitioner
// reads from: the offline, buffered graph reader external to the
// partitioning core, with a concrete, minimal, byte-exact on-disk format
// so the rest of the module has something to build and test against.
package graphio

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/distgraph/cartesiancut/partitionerr"
)

// Reader is a byte-range-addressable view over the global edge file.
// EdgeBegin/EdgeEnd bracket the half-open range of edge indices sourced
// at gid; Destination and Data index into that same edge-index space.
type Reader interface {
	NumNodes() uint64
	NumEdges() uint64
	EdgeBegin(gid uint64) (uint64, error)
	EdgeEnd(gid uint64) (uint64, error)
	Destination(edgeIdx uint64) (uint64, error)
	// Data returns the edge payload bytes for edgeIdx, or nil if the
	// graph carries no per-edge data (the unit-type instantiation).
	Data(edgeIdx uint64) ([]byte, error)
	Close() error
}

// FileReader reads a fixed on-disk format: header (N, M) as two native
// little-endian u64s, then N u64 node-end offsets, then M u64 edge
// destinations, then an optional M*edgeDataSize byte edge-data array.
// Random access uses io.ReaderAt directly against the open file rather
// than loading the file whole.
type FileReader struct {
	f            *os.File
	numNodes     uint64
	numEdges     uint64
	nodeEndOff   int64
	destOff      int64
	dataOff      int64
	edgeDataSize int
}

// Open opens path and reads its header. edgeDataSize is the fixed size in
// bytes of each edge's payload (0 for a unit/void edge type).
func Open(path string, edgeDataSize int) (*FileReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, partitionerr.Wrap(partitionerr.IoError, -1, 0, "opening global graph file", err)
	}

	br := bufio.NewReader(f)
	var hdr [16]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		f.Close()
		return nil, partitionerr.Wrap(partitionerr.IoError, -1, 0, "reading global graph header", err)
	}

	n := binary.LittleEndian.Uint64(hdr[0:8])
	m := binary.LittleEndian.Uint64(hdr[8:16])

	return &FileReader{
		f:            f,
		numNodes:     n,
		numEdges:     m,
		nodeEndOff:   16,
		destOff:      16 + int64(n)*8,
		dataOff:      16 + int64(n)*8 + int64(m)*8,
		edgeDataSize: edgeDataSize,
	}, nil
}

func (r *FileReader) NumNodes() uint64 { return r.numNodes }
func (r *FileReader) NumEdges() uint64 { return r.numEdges }

func (r *FileReader) readU64At(off int64) (uint64, error) {
	var b [8]byte
	if _, err := r.f.ReadAt(b[:], off); err != nil {
		return 0, partitionerr.Wrap(partitionerr.IoError, -1, 0, "reading global graph file", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func (r *FileReader) nodeEnd(gid uint64) (uint64, error) {
	return r.readU64At(r.nodeEndOff + int64(gid)*8)
}

func (r *FileReader) EdgeBegin(gid uint64) (uint64, error) {
	if gid == 0 {
		return 0, nil
	}
	return r.nodeEnd(gid - 1)
}

func (r *FileReader) EdgeEnd(gid uint64) (uint64, error) {
	return r.nodeEnd(gid)
}

func (r *FileReader) Destination(edgeIdx uint64) (uint64, error) {
	return r.readU64At(r.destOff + int64(edgeIdx)*8)
}

func (r *FileReader) Data(edgeIdx uint64) ([]byte, error) {
	if r.edgeDataSize == 0 {
		return nil, nil
	}
	buf := make([]byte, r.edgeDataSize)
	if _, err := r.f.ReadAt(buf, r.dataOff+int64(edgeIdx)*int64(r.edgeDataSize)); err != nil {
		return nil, partitionerr.Wrap(partitionerr.IoError, -1, 0, "reading edge data", err)
	}
	return buf, nil
}

func (r *FileReader) Close() error { return r.f.Close() }
