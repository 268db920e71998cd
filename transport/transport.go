// Package transport implements the tagged send/receive-between-hosts
// interface: send(targetHost, tag, bytes), recvTagged(tag) ->
// Option<(sender, bytes)>, flush(), incrementPhase(). Frames are a
// length-prefixed buffer over a net.Conn, with every frame wrapped by
// github.com/DistributedClocks/GoVector/govec so the causal order of
// cross-host messages is recoverable from the vector-clock log even
// when TCP delivers different senders' frames interleaved.
package transport

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/DistributedClocks/GoVector/govec"

	"github.com/distgraph/cartesiancut/msg"
	"github.com/distgraph/cartesiancut/partitionerr"
)

// frameEnvelope is what actually crosses the wire; govec serializes it
// via PrepareSend/UnpackReceive, piggy-backing the vector clock.
type frameEnvelope struct {
	Tag    uint64
	Sender msg.HostID
	Body   []byte
}

// Transport is a host's connection table to its peers plus the shared
// phase counter namespacing exchange rounds.
type Transport struct {
	self   msg.HostID
	logger *govec.GoLog

	mu    sync.Mutex
	peers map[msg.HostID]net.Conn
	chans map[uint64]chan frameEnvelope

	phase uint64
}

// New creates a Transport for host self, logging vector-clock causal
// history to logfile (passed straight to govec.InitGoVector).
func New(self msg.HostID, logfile string) *Transport {
	return &Transport{
		self:   self,
		logger: govec.InitGoVector(fmt.Sprintf("host%d", self), logfile, govec.GetDefaultConfig()),
		peers:  make(map[msg.HostID]net.Conn),
		chans:  make(map[uint64]chan frameEnvelope),
	}
}

// Connect dials addr and registers the resulting connection as peer.
func (t *Transport) Connect(peer msg.HostID, addr string) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return partitionerr.Wrap(partitionerr.IoError, int(t.self), t.Phase(), "dialing peer", err)
	}
	t.Accept(peer, conn)
	return nil
}

// Accept registers an already-established connection to peer (the server
// side of a peer's Connect) and starts draining it.
func (t *Transport) Accept(peer msg.HostID, conn net.Conn) {
	t.mu.Lock()
	t.peers[peer] = conn
	t.mu.Unlock()
	go t.receiveLoop(peer, conn)
}

// Send writes payload to target tagged with tag. Frames are written
// immediately, so Flush has nothing left to do; EdgeLoader batches
// edges itself before calling Send.
func (t *Transport) Send(target msg.HostID, tag uint64, payload []byte) error {
	t.mu.Lock()
	conn, ok := t.peers[target]
	t.mu.Unlock()
	if !ok {
		return partitionerr.New(partitionerr.ProtocolMismatch, int(t.self), tag,
			fmt.Sprintf("no connection to host %d", target))
	}

	env := frameEnvelope{Tag: tag, Sender: t.self, Body: payload}
	out := t.logger.PrepareSend(fmt.Sprintf("partition-phase-%d", tag), env, govec.GetDefaultLogOptions())

	var sizeBuf [4]byte
	binary.LittleEndian.PutUint32(sizeBuf[:], uint32(len(out)))

	if _, err := conn.Write(sizeBuf[:]); err != nil {
		return partitionerr.Wrap(partitionerr.IoError, int(t.self), tag, "writing frame size", err)
	}
	if _, err := conn.Write(out); err != nil {
		return partitionerr.Wrap(partitionerr.IoError, int(t.self), tag, "writing frame body", err)
	}
	return nil
}

// Flush is a no-op: Send writes synchronously. It exists so callers can
// be written against a network interface without caring whether a given
// implementation batches.
func (t *Transport) Flush() error { return nil }

// RecvTagged blocks until a frame tagged with tag has arrived from any
// peer, then returns its sender and body. Frames from different senders
// may interleave; frames from the same sender with the same tag arrive
// in FIFO order (guaranteed by the underlying TCP stream).
func (t *Transport) RecvTagged(tag uint64) (msg.HostID, []byte, error) {
	env, ok := <-t.tagChan(tag)
	if !ok {
		return 0, nil, partitionerr.New(partitionerr.ProtocolMismatch, int(t.self), tag, "transport closed while waiting")
	}
	return env.Sender, env.Body, nil
}

// Phase returns the current phase counter value.
func (t *Transport) Phase() uint64 { return atomic.LoadUint64(&t.phase) }

// IncrementPhase bumps the phase counter by one and returns the new
// value. Must be called exactly once per host per exchange round, after
// that host has completed its part of the round.
func (t *Transport) IncrementPhase() uint64 { return atomic.AddUint64(&t.phase, 1) }

func (t *Transport) tagChan(tag uint64) chan frameEnvelope {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch, ok := t.chans[tag]
	if !ok {
		ch = make(chan frameEnvelope, 64)
		t.chans[tag] = ch
	}
	return ch
}

func (t *Transport) receiveLoop(peer msg.HostID, conn net.Conn) {
	for {
		var sizeBuf [4]byte
		if _, err := io.ReadFull(conn, sizeBuf[:]); err != nil {
			return
		}
		size := binary.LittleEndian.Uint32(sizeBuf[:])
		buf := make([]byte, size)
		if _, err := io.ReadFull(conn, buf); err != nil {
			return
		}

		var env frameEnvelope
		t.logger.UnpackReceive(fmt.Sprintf("partition-recv-from-%d", peer), buf, &env, govec.GetDefaultLogOptions())
		t.tagChan(env.Tag) <- env
	}
}

// Close tears down all peer connections.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var firstErr error
	for _, conn := range t.peers {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
