package graphio

import "sort"

// MemReader is an in-memory Reader built directly from an edge list, used
// by tests and by small embedded deployments that don't warrant a file on
// disk. It materializes exactly the CSR arrays FileReader would read so
// the two implementations are interchangeable from the partitioner's
// point of view.
type MemReader struct {
	numNodes uint64
	nodeEnd  []uint64
	dest     []uint64
	data     [][]byte
}

// Edge is a single (source, destination[, data]) tuple used to build a
// MemReader.
type Edge struct {
	Src, Dst uint64
	Data     []byte
}

// NewMemReader builds the CSR representation of edges over numNodes
// nodes. Edges need not be pre-sorted by source.
func NewMemReader(numNodes uint64, edges []Edge) *MemReader {
	sorted := make([]Edge, len(edges))
	copy(sorted, edges)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Src < sorted[j].Src })

	nodeEnd := make([]uint64, numNodes)
	dest := make([]uint64, len(sorted))
	data := make([][]byte, len(sorted))

	var src uint64
	var i int
	for i = 0; i < len(sorted); i++ {
		for src < sorted[i].Src {
			nodeEnd[src] = uint64(i)
			src++
		}
		dest[i] = sorted[i].Dst
		data[i] = sorted[i].Data
	}
	for src < numNodes {
		nodeEnd[src] = uint64(i)
		src++
	}

	return &MemReader{numNodes: numNodes, nodeEnd: nodeEnd, dest: dest, data: data}
}

func (r *MemReader) NumNodes() uint64 { return r.numNodes }
func (r *MemReader) NumEdges() uint64 { return uint64(len(r.dest)) }

func (r *MemReader) EdgeBegin(gid uint64) (uint64, error) {
	if gid == 0 {
		return 0, nil
	}
	return r.nodeEnd[gid-1], nil
}

func (r *MemReader) EdgeEnd(gid uint64) (uint64, error) {
	return r.nodeEnd[gid], nil
}

func (r *MemReader) Destination(edgeIdx uint64) (uint64, error) {
	return r.dest[edgeIdx], nil
}

func (r *MemReader) Data(edgeIdx uint64) ([]byte, error) {
	return r.data[edgeIdx], nil
}

func (r *MemReader) Close() error { return nil }
