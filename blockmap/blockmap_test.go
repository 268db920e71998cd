package blockmap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/distgraph/cartesiancut/graphio"
	"github.com/distgraph/cartesiancut/grid"
)

func chainReader(n uint64) *graphio.MemReader {
	edges := make([]graphio.Edge, 0, n-1)
	for i := uint64(0); i+1 < n; i++ {
		edges = append(edges, graphio.Edge{Src: i, Dst: i + 1})
	}
	return graphio.NewMemReader(n, edges)
}

func TestBuildCoversAllNodes(t *testing.T) {
	g, err := grid.New(2, 1, false, false)
	require.NoError(t, err)
	r := chainReader(8)
	bm, err := Build(r, g, []int{1, 1})
	require.NoError(t, err)

	require.Equal(t, 2, bm.NumVirtual())
	require.Equal(t, uint64(0), bm.RangeOf(0).Start)
	require.Equal(t, uint64(8), bm.RangeOf(1).End)
	require.Equal(t, bm.RangeOf(0).End, bm.RangeOf(1).Start)
}

func TestScaleFactorWeighting(t *testing.T) {
	g, err := grid.New(2, 1, false, false)
	require.NoError(t, err)
	r := chainReader(8) // 7 edges, chain 0..7
	bm, err := Build(r, g, []int{3, 1})
	require.NoError(t, err)

	// host 0's weight (3) outpaces host 1's (1) 3:1 over 7 edges, so it
	// absorbs nodes 0..5 (6 nodes) and host 1 gets the remaining 2.
	require.Equal(t, Range{Start: 0, End: 6}, bm.RangeOf(0))
	require.Equal(t, Range{Start: 6, End: 8}, bm.RangeOf(1))
}

func TestHostOfAndBlockOf(t *testing.T) {
	g, err := grid.New(4, 1, false, false)
	require.NoError(t, err)
	r := chainReader(16)
	bm, err := Build(r, g, []int{1, 1, 1, 1})
	require.NoError(t, err)

	for v := 0; v < bm.NumVirtual(); v++ {
		rng := bm.RangeOf(v)
		if rng.Len() == 0 {
			continue
		}
		require.Equal(t, v, bm.HostOf(rng.Start))
		require.Equal(t, v%4, bm.BlockOf(rng.Start))
	}
}

func TestColumnIndexMonotonicWithinPeer(t *testing.T) {
	g, err := grid.New(4, 1, false, false) // R=2,C=2
	require.NoError(t, err)
	r := chainReader(32)
	bm, err := Build(r, g, []int{1, 1, 1, 1})
	require.NoError(t, err)

	// Within the same column peer, column index should increase with gid.
	peer := bm.ColumnPeerOf(0)
	last := uint32(0)
	seenFirst := false
	for gid := uint64(0); gid < 32; gid++ {
		if bm.ColumnPeerOf(gid) != peer {
			continue
		}
		idx := bm.ColumnIndexOf(gid)
		if seenFirst {
			require.GreaterOrEqual(t, idx, last)
		}
		last = idx
		seenFirst = true
	}
}

func TestConfigErrorsOnBadScale(t *testing.T) {
	g, err := grid.New(2, 1, false, false)
	require.NoError(t, err)
	r := chainReader(4)

	_, err = Build(r, g, []int{1})
	require.Error(t, err)

	_, err = Build(r, g, []int{0, 0})
	require.Error(t, err)
}

func TestDeterministic(t *testing.T) {
	g, err := grid.New(3, 1, false, false)
	require.NoError(t, err)
	r1 := chainReader(20)
	r2 := chainReader(20)

	bm1, err := Build(r1, g, []int{1, 2, 1})
	require.NoError(t, err)
	bm2, err := Build(r2, g, []int{1, 2, 1})
	require.NoError(t, err)

	for v := 0; v < bm1.NumVirtual(); v++ {
		require.Equal(t, bm1.RangeOf(v), bm2.RangeOf(v))
	}
}
