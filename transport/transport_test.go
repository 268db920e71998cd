package transport

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/distgraph/cartesiancut/msg"
)

func pairedTransports(t *testing.T) (*Transport, *Transport) {
	t.Helper()
	connA, connB := net.Pipe()

	a := New(0, t.TempDir()+"/a.log")
	b := New(1, t.TempDir()+"/b.log")

	a.Accept(1, connA)
	b.Accept(0, connB)

	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return a, b
}

func TestSendRecvTagged(t *testing.T) {
	a, b := pairedTransports(t)

	payload := []byte("hello from a")
	go func() {
		require.NoError(t, a.Send(1, 7, payload))
	}()

	sender, body, err := b.RecvTagged(7)
	require.NoError(t, err)
	require.Equal(t, msg.HostID(0), sender)
	require.Equal(t, payload, body)
}

func TestPhaseCounterMonotonic(t *testing.T) {
	a, _ := pairedTransports(t)
	require.Equal(t, uint64(0), a.Phase())
	require.Equal(t, uint64(1), a.IncrementPhase())
	require.Equal(t, uint64(2), a.IncrementPhase())
	require.Equal(t, uint64(2), a.Phase())
}

func TestRecvMatchesByTagNotArrivalOrder(t *testing.T) {
	a, b := pairedTransports(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		require.NoError(t, a.Send(1, 2, []byte("second-round")))
		require.NoError(t, a.Send(1, 1, []byte("first-round")))
	}()

	// Even though tag 2's frame is sent first, a caller waiting on tag 1
	// gets the right message because matching is by tag, not FIFO.
	sender, body, err := b.RecvTagged(1)
	require.NoError(t, err)
	require.Equal(t, msg.HostID(0), sender)
	require.Equal(t, []byte("first-round"), body)

	sender2, body2, err := b.RecvTagged(2)
	require.NoError(t, err)
	require.Equal(t, msg.HostID(0), sender2)
	require.Equal(t, []byte("second-round"), body2)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sender goroutine did not finish")
	}
}
