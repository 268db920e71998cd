package graphio

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTestGraph(t *testing.T, n, m uint64, nodeEnd []uint64, dest []uint64, data []byte) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.bin")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	var buf bytes.Buffer
	var hdr [16]byte
	binary.LittleEndian.PutUint64(hdr[0:8], n)
	binary.LittleEndian.PutUint64(hdr[8:16], m)
	buf.Write(hdr[:])
	for _, v := range nodeEnd {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], v)
		buf.Write(b[:])
	}
	for _, v := range dest {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], v)
		buf.Write(b[:])
	}
	buf.Write(data)

	_, err = f.Write(buf.Bytes())
	require.NoError(t, err)
	return path
}

func TestFileReaderChain(t *testing.T) {
	// chain 0->1->2->3, N=4, M=3
	path := writeTestGraph(t, 4, 3, []uint64{1, 2, 3, 3}, []uint64{1, 2, 3}, nil)
	r, err := Open(path, 0)
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, uint64(4), r.NumNodes())
	require.Equal(t, uint64(3), r.NumEdges())

	for gid := uint64(0); gid < 4; gid++ {
		begin, err := r.EdgeBegin(gid)
		require.NoError(t, err)
		end, err := r.EdgeEnd(gid)
		require.NoError(t, err)
		if gid < 3 {
			require.Equal(t, end-begin, uint64(1))
		} else {
			require.Equal(t, begin, end)
		}
	}

	dst, err := r.Destination(0)
	require.NoError(t, err)
	require.Equal(t, uint64(1), dst)
}

func TestFileReaderWithEdgeData(t *testing.T) {
	data := []byte{0xAA, 0xBB}
	path := writeTestGraph(t, 2, 2, []uint64{1, 2}, []uint64{1, 0}, data)
	r, err := Open(path, 1)
	require.NoError(t, err)
	defer r.Close()

	d0, err := r.Data(0)
	require.NoError(t, err)
	require.Equal(t, []byte{0xAA}, d0)
	d1, err := r.Data(1)
	require.NoError(t, err)
	require.Equal(t, []byte{0xBB}, d1)
}

func TestMemReaderBasic(t *testing.T) {
	r := NewMemReader(4, []Edge{{Src: 0, Dst: 1}, {Src: 1, Dst: 2}, {Src: 2, Dst: 3}})
	require.Equal(t, uint64(4), r.NumNodes())
	require.Equal(t, uint64(3), r.NumEdges())

	begin, _ := r.EdgeBegin(3)
	end, _ := r.EdgeEnd(3)
	require.Equal(t, begin, end)

	begin0, _ := r.EdgeBegin(0)
	end0, _ := r.EdgeEnd(0)
	require.Equal(t, uint64(0), begin0)
	require.Equal(t, uint64(1), end0)
}

func TestMemReaderUnsortedInput(t *testing.T) {
	r := NewMemReader(3, []Edge{{Src: 2, Dst: 0}, {Src: 0, Dst: 1}})
	begin, _ := r.EdgeBegin(0)
	end, _ := r.EdgeEnd(0)
	require.Equal(t, uint64(1), end-begin)
	dst, _ := r.Destination(begin)
	require.Equal(t, uint64(1), dst)
}
