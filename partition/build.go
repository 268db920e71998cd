// Package partition wires Grid, BlockMap, Inspector, MetadataExchange,
// LocalIndex, EdgeLoader and ReplicaTables into the single per-host
// pipeline a partition build runs end to end.
package partition

import (
	"fmt"
	"log"

	"github.com/distgraph/cartesiancut/blockmap"
	"github.com/distgraph/cartesiancut/edgeloader"
	"github.com/distgraph/cartesiancut/exchange"
	"github.com/distgraph/cartesiancut/graphio"
	"github.com/distgraph/cartesiancut/grid"
	"github.com/distgraph/cartesiancut/inspector"
	"github.com/distgraph/cartesiancut/localindex"
	"github.com/distgraph/cartesiancut/msg"
	"github.com/distgraph/cartesiancut/partitionerr"
	"github.com/distgraph/cartesiancut/replica"
)

// Config names the grid geometry and this host's identity for one
// partition build.
type Config struct {
	Host msg.HostID

	H             int
	D             int
	MoreColumns   bool
	ColumnBlocked bool
	Scale         []int

	// LenientDummyOutgoing controls the fatal/warning split for an
	// outgoing mirror a row peer routes no edges to: always tolerated
	// under a columnBlocked cut; under a row/column aligned cut it is a
	// PartitionInvariant error unless this is true.
	LenientDummyOutgoing bool
}

// Sender is the row-wise point-to-point transport both MetadataExchange
// and EdgeLoader need; *transport.Transport satisfies it.
type Sender interface {
	Send(target msg.HostID, tag uint64, payload []byte) error
	RecvTagged(tag uint64) (msg.HostID, []byte, error)
	Phase() uint64
	IncrementPhase() uint64
}

// Result is everything one host's finished partition build produces.
type Result[E any] struct {
	Grid     *grid.Grid
	BlockMap *blockmap.BlockMap
	Local    *localindex.LocalIndex
	Replicas *replica.Tables
	CSR      *edgeloader.CSR[E]
}

// Build runs the full pipeline for one host against reader, over t for
// the two row-wise exchange rounds: Grid, BlockMap, Inspector,
// MetadataExchange, LocalIndex, EdgeLoader, ReplicaTables, in that
// order. decodeData decodes one edge's payload bytes into E; pass nil
// for the unit-edge-data case (Build[struct{}]).
//
// Any failure, a returned error from any stage or an unexpected panic
// from deep inside one, surfaces as a single *partitionerr.PartitionError
// so downstream computation never sees a half-built partition.
func Build[E any](reader graphio.Reader, t Sender, cfg Config, decodeData func([]byte) (E, error)) (res *Result[E], err error) {
	defer func() {
		if r := recover(); r != nil {
			if pe, ok := r.(*partitionerr.PartitionError); ok {
				res, err = nil, pe
				return
			}
			res, err = nil, partitionerr.New(partitionerr.PartitionInvariant, int(cfg.Host), t.Phase(),
				fmt.Sprintf("unrecovered panic in partition build: %v", r))
		}
	}()

	log.Printf("partition build starting: host=%d H=%d D=%d moreColumns=%v columnBlocked=%v",
		cfg.Host, cfg.H, cfg.D, cfg.MoreColumns, cfg.ColumnBlocked)

	g, err := grid.New(cfg.H, cfg.D, cfg.MoreColumns, cfg.ColumnBlocked)
	if err != nil {
		return nil, err
	}

	bm, err := blockmap.Build(reader, g, cfg.Scale)
	if err != nil {
		return nil, err
	}

	insp, err := inspector.Inspect(reader, bm, g, cfg.Host)
	if err != nil {
		return nil, err
	}
	log.Printf("host %d: inspector done", cfg.Host)

	exch, err := exchange.Run(t, exchange.GobCodec{}, g, cfg.Host, insp)
	if err != nil {
		return nil, err
	}
	log.Printf("host %d: metadata exchange done, phase=%d", cfg.Host, t.Phase())

	li, err := localindex.Build(g, bm, cfg.Host, insp, exch, cfg.LenientDummyOutgoing)
	if err != nil {
		return nil, err
	}
	log.Printf("host %d: local index built: %d nodes (%d masters, %d dummy outgoing)",
		cfg.Host, li.NumNodes(), li.NumMasters, li.DummyOutgoing)

	csr, err := edgeloader.Load(reader, g, bm, li, cfg.Host, t, edgeloader.GobCodec{}, decodeData)
	if err != nil {
		return nil, err
	}
	log.Printf("host %d: edge loader done: %d edges", cfg.Host, li.NumEdges())

	tbl := replica.Build(g, bm, int(cfg.Host), li)
	log.Printf("host %d: replica tables built: %d masters, mirrors of %d owner hosts",
		cfg.Host, len(tbl.Masters), len(tbl.OwnerHosts()))

	return &Result[E]{Grid: g, BlockMap: bm, Local: li, Replicas: tbl, CSR: csr}, nil
}
