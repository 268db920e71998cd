package grid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFactorizeSquareHosts(t *testing.T) {
	g, err := New(4, 1, false, false)
	require.NoError(t, err)
	require.Equal(t, 2, g.Rows())
	require.Equal(t, 2, g.Cols())
}

func TestFactorizeNonSquare(t *testing.T) {
	// H=6: sqrt(6)=2.44 -> c starts at 2, 6%2==0, so C=2, R=3.
	g, err := New(6, 1, false, false)
	require.NoError(t, err)
	require.Equal(t, 3, g.Rows())
	require.Equal(t, 2, g.Cols())
}

func TestMoreColumnsSwap(t *testing.T) {
	g, err := New(6, 1, true, false)
	require.NoError(t, err)
	require.Equal(t, 2, g.Rows())
	require.Equal(t, 3, g.Cols())
}

func TestDecomposeMultipliesRowsAfterSwap(t *testing.T) {
	g, err := New(6, 2, true, false)
	require.NoError(t, err)
	// base swap gives R0=2, C=3; decompose multiplies rows only.
	require.Equal(t, 4, g.Rows())
	require.Equal(t, 3, g.Cols())
	require.Equal(t, g.Rows()*g.Cols(), g.NumHosts()*g.DecomposeFactor())
}

func TestRowColOf(t *testing.T) {
	g, err := New(6, 1, false, false)
	require.NoError(t, err)
	// R=3, C=2: host 0..5 -> rows 0,0,1,1,2,2 ; cols 0,1,0,1,0,1
	for h := 0; h < 6; h++ {
		require.Equal(t, h/2, g.RowOf(h))
		require.Equal(t, h%2, g.ColOf(h))
	}
}

func TestVirtualToReal(t *testing.T) {
	g, err := New(4, 3, false, false)
	require.NoError(t, err)
	require.Equal(t, 0, g.VirtualToReal(0))
	require.Equal(t, 0, g.VirtualToReal(4))
	require.Equal(t, 0, g.VirtualToReal(8))
	require.Equal(t, 1, g.VirtualToReal(5))
}

func TestColumnPeerOfBlockRoundRobin(t *testing.T) {
	g, err := New(4, 1, false, false) // R=2,C=2
	require.NoError(t, err)
	require.Equal(t, 0, g.ColumnPeerOfBlock(0))
	require.Equal(t, 1, g.ColumnPeerOfBlock(1))
	require.Equal(t, 0, g.ColumnPeerOfBlock(2))
	require.Equal(t, 1, g.ColumnPeerOfBlock(3))
}

func TestColumnPeerOfBlockColumnBlocked(t *testing.T) {
	g, err := New(4, 1, false, true) // R=2,C=2
	require.NoError(t, err)
	require.Equal(t, 0, g.ColumnPeerOfBlock(0))
	require.Equal(t, 0, g.ColumnPeerOfBlock(1))
	require.Equal(t, 1, g.ColumnPeerOfBlock(2))
	require.Equal(t, 1, g.ColumnPeerOfBlock(3))
}

func TestRowAndColMembers(t *testing.T) {
	g, err := New(6, 1, false, false) // R=3,C=2
	require.NoError(t, err)
	require.Equal(t, []int{0, 1}, g.RowMembers(0))
	require.Equal(t, []int{2, 3}, g.RowMembers(2))
	require.Equal(t, []int{0, 2, 4}, g.ColMembers(0))
	require.Equal(t, []int{1, 3, 5}, g.ColMembers(1))
}

func TestOwnedVirtualHosts(t *testing.T) {
	g, err := New(3, 2, false, false)
	require.NoError(t, err)
	require.Equal(t, []int{1, 4}, g.OwnedVirtualHosts(1))
}

func TestConfigErrors(t *testing.T) {
	_, err := New(0, 1, false, false)
	require.Error(t, err)
	_, err = New(4, 0, false, false)
	require.Error(t, err)
}
