// Package inspector implements the first pass over the host's own D
// virtual ranges: for each owned source, walk its out-edges once,
// building a per-column-peer outgoing-degree vector and a per-column-peer
// incoming-incidence bitset.
//
// Per-node work is independent, so it is parallelized with
// golang.org/x/sync/errgroup: each goroutine owns a private accumulator
// and the accumulators are drained (merged) once the group completes,
// never under a shared lock while inspecting.
package inspector

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/distgraph/cartesiancut/bitset"
	"github.com/distgraph/cartesiancut/blockmap"
	"github.com/distgraph/cartesiancut/grid"
	"github.com/distgraph/cartesiancut/msg"
	"github.com/distgraph/cartesiancut/partitionerr"
)

// Result holds the Inspector's output for one host.
type Result struct {
	// OutDeg[d][i][k] is the number of outgoing edges from the k-th
	// source of the host's d-th owned virtual range whose destination's
	// column peer is i.
	OutDeg [][][]uint64
	// HasIn[i] is the bitset over column peer i's compact column-index
	// space: bit set iff some edge read by this host ends at that
	// destination.
	HasIn []*bitset.ColumnIncidence
}

type sourceJob struct {
	rangeIdx int
	gid      uint64
}

// Inspect runs the first pass for host, reading from reader. bm and g
// must be the same BlockMap/Grid the rest of the build uses.
func Inspect(reader Reader, bm *blockmap.BlockMap, g *grid.Grid, host msg.HostID) (*Result, error) {
	d := g.DecomposeFactor()
	c := g.Cols()
	owned := g.OwnedVirtualHosts(int(host))

	outDeg := make([][][]uint64, d)
	ranges := make([]blockmap.Range, d)
	for di, v := range owned {
		r := bm.RangeOf(v)
		ranges[di] = r
		outDeg[di] = make([][]uint64, c)
		for i := 0; i < c; i++ {
			outDeg[di][i] = make([]uint64, r.Len())
		}
	}

	colSizes := make([]uint64, c)
	for i := 0; i < c; i++ {
		colSizes[i] = bm.ColumnSize(i)
	}

	shared := make([]*bitset.ColumnIncidence, c)
	for i := range shared {
		shared[i] = bitset.New(uint(colSizes[i]) + 1)
	}

	jobs := make([]sourceJob, 0)
	for di, r := range ranges {
		for gid := r.Start; gid < r.End; gid++ {
			jobs = append(jobs, sourceJob{rangeIdx: di, gid: gid})
		}
	}

	if len(jobs) == 0 {
		return &Result{OutDeg: outDeg, HasIn: shared}, nil
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > len(jobs) {
		numWorkers = len(jobs)
	}
	if numWorkers < 1 {
		numWorkers = 1
	}
	chunkSize := (len(jobs) + numWorkers - 1) / numWorkers

	results := make([][]*bitset.ColumnIncidence, numWorkers)

	eg := new(errgroup.Group)
	for w := 0; w < numWorkers; w++ {
		w := w
		start := w * chunkSize
		end := start + chunkSize
		if end > len(jobs) {
			end = len(jobs)
		}
		if start >= end {
			continue
		}

		eg.Go(func() error {
			local := make([]*bitset.ColumnIncidence, c)
			for i := range local {
				local[i] = bitset.New(uint(colSizes[i]) + 1)
			}

			for _, job := range jobs[start:end] {
				r := ranges[job.rangeIdx]
				k := job.gid - r.Start

				begin, err := reader.EdgeBegin(job.gid)
				if err != nil {
					return partitionerr.Wrap(partitionerr.IoError, int(host), 0, "reading edge begin", err)
				}
				end, err := reader.EdgeEnd(job.gid)
				if err != nil {
					return partitionerr.Wrap(partitionerr.IoError, int(host), 0, "reading edge end", err)
				}

				for e := begin; e < end; e++ {
					dst, err := reader.Destination(e)
					if err != nil {
						return partitionerr.Wrap(partitionerr.IoError, int(host), 0, "reading edge destination", err)
					}
					i := bm.ColumnPeerOf(dst)
					outDeg[job.rangeIdx][i][k]++
					local[i].Set(bm.ColumnIndexOf(dst))
				}
			}

			results[w] = local
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for _, local := range results {
		if local == nil {
			continue
		}
		for i := 0; i < c; i++ {
			shared[i].Merge(local[i])
		}
	}

	return &Result{OutDeg: outDeg, HasIn: shared}, nil
}

// Reader is the subset of graphio.Reader the Inspector needs; declared
// locally so this package doesn't force a hard dependency on graphio's
// concrete types.
type Reader interface {
	EdgeBegin(gid uint64) (uint64, error)
	EdgeEnd(gid uint64) (uint64, error)
	Destination(edgeIdx uint64) (uint64, error)
}
