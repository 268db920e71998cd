// Package edgeloader implements the second pass over the graph: every
// host streams its own owned sources' edges, constructing each edge
// locally when its destination lands in the host's own column, and
// otherwise buffering it for the row peer that owns an outgoing-mirror
// slot for that source. A receiver goroutine concurrently drains
// batches routed to this host by its row peers and writes them into
// the matching local CSR slots.
//
// The goroutine split (one sender, one receiver, synchronized only on
// the CSR write cursor) keeps a dedicated receiver draining a channel
// until every expected peer signals done, while the main flow streams
// its own work independently.
package edgeloader

import (
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/distgraph/cartesiancut/blockmap"
	"github.com/distgraph/cartesiancut/grid"
	"github.com/distgraph/cartesiancut/localindex"
	"github.com/distgraph/cartesiancut/msg"
	"github.com/distgraph/cartesiancut/partitionerr"
)

// outBatchSize caps how many edges accumulate for one peer before being
// flushed as a msg.EdgeBatchPayload.
const outBatchSize = 256

// Reader is the subset of graphio.Reader EdgeLoader needs.
type Reader interface {
	EdgeBegin(gid uint64) (uint64, error)
	EdgeEnd(gid uint64) (uint64, error)
	Destination(edgeIdx uint64) (uint64, error)
	Data(edgeIdx uint64) ([]byte, error)
}

// Sender is the transport surface EdgeLoader drives, matching
// exchange.Sender and transport.Transport's method set.
type Sender interface {
	Send(target msg.HostID, tag uint64, payload []byte) error
	RecvTagged(tag uint64) (msg.HostID, []byte, error)
	Phase() uint64
	IncrementPhase() uint64
}

// Codec marshals/unmarshals msg.EdgeBatchPayload.
type Codec interface {
	Encode(msg.EdgeBatchPayload) ([]byte, error)
	Decode([]byte) (msg.EdgeBatchPayload, error)
}

// CSR is a host's local compressed-sparse-row edge table: for local id
// lid, its out-edges are Dest[li.PrefixEdges[lid]:li.PrefixEdges[lid+1]]
// (and the matching slice of Data, when E carries edge data).
type CSR[E any] struct {
	Dest []uint64
	Data []E
}

// Load[E] runs the second pass for host, writing into a freshly
// allocated CSR[E] sized from li. decodeData converts a reader's raw
// edge payload into E; pass nil when E is a zero-size type and the
// graph carries no edge data.
func Load[E any](reader Reader, g *grid.Grid, bm *blockmap.BlockMap, li *localindex.LocalIndex, host msg.HostID, t Sender, codec Codec, decodeData func([]byte) (E, error)) (*CSR[E], error) {
	ownCol := g.ColOf(int(host))
	tag := t.Phase()

	csr := &CSR[E]{
		Dest: make([]uint64, li.NumEdges()),
		Data: make([]E, li.NumEdges()),
	}
	cursor := make([]uint64, li.NumOutgoingTotal)
	copy(cursor, li.PrefixEdges[:li.NumOutgoingTotal])

	var mu sync.Mutex
	writeLocal := func(lid uint32, dst uint64, data E) {
		mu.Lock()
		idx := cursor[lid]
		csr.Dest[idx] = dst
		csr.Data[idx] = data
		cursor[lid] = idx + 1
		mu.Unlock()
	}

	decode := func(raw []byte) (E, error) {
		var zero E
		if decodeData == nil {
			return zero, nil
		}
		return decodeData(raw)
	}

	rowPeers := g.RowMembers(int(host))
	expectedSenders := len(rowPeers) - 1

	eg := new(errgroup.Group)

	eg.Go(func() error {
		return receiveRouted(t, codec, decode, li, host, tag, expectedSenders, writeLocal)
	})

	eg.Go(func() error {
		return sendOwned(reader, g, bm, li, host, ownCol, t, codec, rowPeers, tag, decode, writeLocal)
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	// Every master and outgoing mirror's cursor must land exactly on its
	// PrefixEdges upper bound; landing short means a routing bug silently
	// dropped edges, and the CSR would read as truncated instead of
	// failing loudly here.
	for lid := 0; lid < li.NumOutgoingTotal; lid++ {
		want := li.PrefixEdges[lid+1] - li.PrefixEdges[lid]
		got := cursor[lid] - li.PrefixEdges[lid]
		if got != want {
			return nil, partitionerr.New(partitionerr.PartitionInvariant, int(host), tag,
				"constructed edge count does not match prefix sum for local id")
		}
	}

	t.IncrementPhase()
	return csr, nil
}

func receiveRouted[E any](t Sender, codec Codec, decode func([]byte) (E, error), li *localindex.LocalIndex, host msg.HostID, tag uint64, expectedSenders int, writeLocal func(uint32, uint64, E)) error {
	done := 0
	for done < expectedSenders {
		_, body, err := t.RecvTagged(tag)
		if err != nil {
			return err
		}
		batch, err := codec.Decode(body)
		if err != nil {
			return partitionerr.Wrap(partitionerr.IoError, int(host), tag, "decoding edge batch", err)
		}
		if len(batch.Edges) == 0 {
			done++
			continue
		}
		for _, e := range batch.Edges {
			lid, ok := li.Global2Local[e.Src]
			if !ok {
				return partitionerr.New(partitionerr.PartitionInvariant, int(host), tag,
					"received edge for a source with no local outgoing-mirror slot")
			}
			data, err := decode(e.Data)
			if err != nil {
				return partitionerr.Wrap(partitionerr.IoError, int(host), tag, "decoding edge data", err)
			}
			writeLocal(lid, e.Dst, data)
		}
	}
	return nil
}

func sendOwned[E any](reader Reader, g *grid.Grid, bm *blockmap.BlockMap, li *localindex.LocalIndex, host msg.HostID, ownCol int, t Sender, codec Codec, rowPeers []int, tag uint64, decode func([]byte) (E, error), writeLocal func(uint32, uint64, E)) error {
	cols := g.Cols()
	row := g.RowOf(int(host))
	outgoing := make(map[msg.HostID][]msg.Edge, len(rowPeers))

	flush := func(target msg.HostID) error {
		edges := outgoing[target]
		if len(edges) == 0 {
			return nil
		}
		body, err := codec.Encode(msg.EdgeBatchPayload{Sender: host, Edges: edges})
		if err != nil {
			return partitionerr.Wrap(partitionerr.IoError, int(host), tag, "encoding edge batch", err)
		}
		if err := t.Send(target, tag, body); err != nil {
			return err
		}
		outgoing[target] = outgoing[target][:0]
		return nil
	}

	owned := g.OwnedVirtualHosts(int(host))
	for _, v := range owned {
		r := bm.RangeOf(v)
		for gid := r.Start; gid < r.End; gid++ {
			begin, err := reader.EdgeBegin(gid)
			if err != nil {
				return partitionerr.Wrap(partitionerr.IoError, int(host), tag, "reading edge begin", err)
			}
			end, err := reader.EdgeEnd(gid)
			if err != nil {
				return partitionerr.Wrap(partitionerr.IoError, int(host), tag, "reading edge end", err)
			}

			for e := begin; e < end; e++ {
				dst, err := reader.Destination(e)
				if err != nil {
					return partitionerr.Wrap(partitionerr.IoError, int(host), tag, "reading edge destination", err)
				}
				data, err := reader.Data(e)
				if err != nil {
					return partitionerr.Wrap(partitionerr.IoError, int(host), tag, "reading edge data", err)
				}

				peerCol := bm.ColumnPeerOf(dst)
				if peerCol == ownCol {
					lid, ok := li.Global2Local[gid]
					if !ok {
						return partitionerr.New(partitionerr.PartitionInvariant, int(host), tag,
							"owned source missing its own master slot")
					}
					typed, err := decode(data)
					if err != nil {
						return partitionerr.Wrap(partitionerr.IoError, int(host), tag, "decoding edge data", err)
					}
					writeLocal(lid, dst, typed)
					continue
				}

				target := msg.HostID(row*cols + peerCol)
				outgoing[target] = append(outgoing[target], msg.Edge{Src: gid, Dst: dst, Data: data})
				if len(outgoing[target]) >= outBatchSize {
					if err := flush(target); err != nil {
						return err
					}
				}
			}
		}
	}

	for _, p := range rowPeers {
		if p == int(host) {
			continue
		}
		target := msg.HostID(p)
		if err := flush(target); err != nil {
			return err
		}
		if err := sendDone(t, codec, host, target, tag); err != nil {
			return err
		}
	}
	return nil
}

func sendDone(t Sender, codec Codec, host msg.HostID, target msg.HostID, tag uint64) error {
	body, err := codec.Encode(msg.EdgeBatchPayload{Sender: host, Edges: nil})
	if err != nil {
		return partitionerr.Wrap(partitionerr.IoError, int(host), tag, "encoding done signal", err)
	}
	return t.Send(target, tag, body)
}
