package localindex

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/distgraph/cartesiancut/blockmap"
	"github.com/distgraph/cartesiancut/exchange"
	"github.com/distgraph/cartesiancut/graphio"
	"github.com/distgraph/cartesiancut/grid"
	"github.com/distgraph/cartesiancut/inspector"
	"github.com/distgraph/cartesiancut/msg"
)

// buildAll runs Grid->BlockMap->Inspector (all hosts)->Exchange (all
// pairs) in-process, without a real transport, by computing exchange
// results directly from each host's Inspector output: the row-local
// slices every host would have sent/received over the wire.
func buildAll(t *testing.T, h, d int) (*grid.Grid, *blockmap.BlockMap, []*inspector.Result, []*exchange.Result) {
	t.Helper()
	g, err := grid.New(h, d, false, false)
	require.NoError(t, err)

	r := graphio.NewMemReader(4, []graphio.Edge{
		{Src: 0, Dst: 1},
		{Src: 1, Dst: 2},
		{Src: 2, Dst: 3},
	})
	scale := make([]int, h)
	for i := range scale {
		scale[i] = 1
	}
	bm, err := blockmap.Build(r, g, scale)
	require.NoError(t, err)

	insp := make([]*inspector.Result, h)
	for host := 0; host < h; host++ {
		res, err := inspector.Inspect(r, bm, g, msg.HostID(host))
		require.NoError(t, err)
		insp[host] = res
	}

	exch := make([]*exchange.Result, h)
	for host := 0; host < h; host++ {
		ownCol := g.ColOf(host)
		combined := insp[host].HasIn[ownCol].Clone()
		received := map[msg.HostID][][]uint64{}
		for _, p := range g.RowMembers(host) {
			if p == host {
				continue
			}
			peerOwnCol := g.ColOf(host) // the column WE represent to p
			degVecs := make([][]uint64, g.DecomposeFactor())
			for dd := 0; dd < g.DecomposeFactor(); dd++ {
				degVecs[dd] = insp[p].OutDeg[dd][peerOwnCol]
			}
			received[msg.HostID(p)] = degVecs
			combined.Merge(insp[p].HasIn[ownCol])
		}
		exch[host] = &exchange.Result{Received: received, Combined: combined}
	}

	return g, bm, insp, exch
}

func TestBuildSingleHostAllMasters(t *testing.T) {
	g, bm, insp, exch := buildAll(t, 1, 1)

	li, err := Build(g, bm, msg.HostID(0), insp[0], exch[0], false)
	require.NoError(t, err)

	require.Equal(t, []uint64{0, 1, 2, 3}, li.Local2Global)
	for _, k := range li.Kind {
		require.Equal(t, Master, k)
	}
	require.Equal(t, 4, li.NumMasters)
	require.Equal(t, uint64(3), li.NumEdges())
}

func TestBuildOutgoingAndIncomingMirrors(t *testing.T) {
	g, bm, insp, exch := buildAll(t, 4, 1)

	// Ranges are [0,1),[1,2),[2,3),[3,4); nodes 0 and 2 sit in column 0.
	// Host 0 owns node 0 (its edge 0->1 leaves for column 1), receives
	// row peer 1's edge 1->2 into an outgoing mirror for node 1, and
	// needs node 2 (owned by column peer 2) as an incoming mirror.
	li, err := Build(g, bm, msg.HostID(0), insp[0], exch[0], false)
	require.NoError(t, err)

	require.Equal(t, []uint64{0, 1, 2}, li.Local2Global)
	require.Equal(t, []Slot{Master, OutgoingMirror, IncomingMirror}, li.Kind)
	require.Equal(t, 1, li.NumMasters)
	require.Equal(t, 2, li.NumOutgoingTotal)
	require.Equal(t, 0, li.DummyOutgoing)
	require.Equal(t, []uint64{0, 0, 1, 1}, li.PrefixEdges)
}

func TestGlobal2LocalRoundTrips(t *testing.T) {
	g, bm, insp, exch := buildAll(t, 4, 1)

	li, err := Build(g, bm, msg.HostID(3), insp[3], exch[3], false)
	require.NoError(t, err)

	for lid, gid := range li.Local2Global {
		got, ok := li.Global2Local[gid]
		require.True(t, ok)
		require.Equal(t, uint32(lid), got)
	}
}
