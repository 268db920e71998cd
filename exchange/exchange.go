// Package exchange implements MetadataExchange: the row-wise
// all-to-all round where every host hands each of its row peers the
// slice of its own Inspector output that describes that peer's column,
// and receives the symmetric slice back.
//
// Every host sends to all other column hosts in its row from one
// goroutine while it drains replies by a completion count rather than
// arrival order, OR-reducing each received incidence bitset as it
// arrives.
package exchange

import (
	"golang.org/x/sync/errgroup"

	"github.com/distgraph/cartesiancut/bitset"
	"github.com/distgraph/cartesiancut/grid"
	"github.com/distgraph/cartesiancut/inspector"
	"github.com/distgraph/cartesiancut/msg"
	"github.com/distgraph/cartesiancut/partitionerr"
)

// Result holds what a host learns about its own column from every other
// row peer, plus the combined incidence bitset for that column.
type Result struct {
	// Received[p] is row peer p's own D degree vectors, each sized to
	// p's own d-th virtual range: Received[p][d][k] is the number of
	// out-edges from the k-th source of p's d-th range whose
	// destination lands in THIS host's column. Used by LocalIndex step
	// 2 to decide which of p's masters must be materialized locally as
	// outgoing mirrors.
	Received map[msg.HostID][][]uint64

	// Combined is the OR of this host's own HasIn[ownColumn] (from
	// Inspector) with every received IncidenceBin: one bit per
	// column-index slot in this host's own column, set iff some row
	// peer (or this host itself) read an edge ending there.
	Combined *bitset.ColumnIncidence
}

// Sender abstracts the transport this round runs over so the package
// doesn't import transport directly (mirrors inspector's locally
// declared Reader interface).
type Sender interface {
	Send(target msg.HostID, tag uint64, payload []byte) error
	RecvTagged(tag uint64) (msg.HostID, []byte, error)
	Phase() uint64
	IncrementPhase() uint64
}

// Codec marshals/unmarshals msg.MetadataPayload. Kept as an interface so
// callers can swap gob for another encoding without touching this
// package; the default in partition.Build uses encoding/gob.
type Codec interface {
	Encode(msg.MetadataPayload) ([]byte, error)
	Decode([]byte) (msg.MetadataPayload, error)
}

// Run performs one MetadataExchange round for host, given its own
// Inspector output, over t, using codec to frame payloads. It advances
// t's phase counter by exactly one before returning successfully.
func Run(t Sender, codec Codec, g *grid.Grid, host msg.HostID, insp *inspector.Result) (*Result, error) {
	ownCol := g.ColOf(int(host))
	rowPeers := g.RowMembers(int(host))
	tag := t.Phase()

	combined := insp.HasIn[ownCol].Clone()
	received := make(map[msg.HostID][][]uint64, len(rowPeers)-1)

	eg := new(errgroup.Group)
	eg.Go(func() error {
		for _, p := range rowPeers {
			if p == int(host) {
				continue
			}
			peerCol := g.ColOf(p)

			degVecs := make([][]uint64, len(insp.OutDeg))
			for d := range insp.OutDeg {
				degVecs[d] = insp.OutDeg[d][peerCol]
			}
			incBin, err := insp.HasIn[peerCol].MarshalBinary()
			if err != nil {
				return partitionerr.Wrap(partitionerr.IoError, int(host), tag, "marshaling incidence bitset", err)
			}

			payload := msg.MetadataPayload{
				Sender:       host,
				DegreeVecs:   degVecs,
				IncidenceBin: incBin,
			}
			body, err := codec.Encode(payload)
			if err != nil {
				return partitionerr.Wrap(partitionerr.IoError, int(host), tag, "encoding metadata payload", err)
			}
			if err := t.Send(msg.HostID(p), tag, body); err != nil {
				return err
			}
		}
		return nil
	})

	want := len(rowPeers) - 1
	for i := 0; i < want; i++ {
		_, body, err := t.RecvTagged(tag)
		if err != nil {
			return nil, err
		}
		payload, err := codec.Decode(body)
		if err != nil {
			return nil, partitionerr.Wrap(partitionerr.IoError, int(host), tag, "decoding metadata payload", err)
		}
		received[payload.Sender] = payload.DegreeVecs

		inc, err := bitset.UnmarshalBinary(payload.IncidenceBin)
		if err != nil {
			return nil, partitionerr.Wrap(partitionerr.IoError, int(host), tag, "unmarshaling incidence bitset", err)
		}
		combined.Merge(inc)
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	t.IncrementPhase()

	return &Result{Received: received, Combined: combined}, nil
}
