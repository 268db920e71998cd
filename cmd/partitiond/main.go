// Command partitiond runs one host's side of a cartesian-cut partition
// build. It takes the grid geometry and its row peers' addresses as
// positional arguments over os.Args, establishes its row-peer
// connections, then serves a net/rpc PartitionService that
// partitionctl triggers to actually run the build.
//
// peerAddrsCSV lists every real host's row-peer listen address in
// ascending host-index order, including this host's own entry (used
// to pick the port this host itself listens on for lower-indexed
// peers to dial in).
//
// Usage:
//
//	partitiond <hostIndex> <H> <D> <rpcAddr> <peerAddrsCSV> <graphPath> <scaleCSV> [moreColumns] [columnBlocked] [mongoAddr]
package main

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
	"log"
	"net"
	"net/rpc"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/distgraph/cartesiancut/graphio"
	"github.com/distgraph/cartesiancut/grid"
	"github.com/distgraph/cartesiancut/msg"
	"github.com/distgraph/cartesiancut/partition"
	"github.com/distgraph/cartesiancut/persist"
	"github.com/distgraph/cartesiancut/rpcapi"
	"github.com/distgraph/cartesiancut/transport"
)

func checkErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}

// PartitionService is the net/rpc surface partitionctl drives: one
// exported method per request shape.
type PartitionService struct {
	reader  graphio.Reader
	t       *transport.Transport
	cfg     partition.Config
	store   *persist.Store
	mongoOK bool

	mu   sync.Mutex
	done bool
	res  rpcapi.BuildResponse
}

// Build runs partition.Build[struct{}] once, records the result for
// Status, and optionally checkpoints it via persist.
func (s *PartitionService) Build(req rpcapi.BuildRequest, reply *rpcapi.BuildResponse) error {
	result, err := partition.Build[struct{}](s.reader, s.t, s.cfg, nil)
	if err != nil {
		s.mu.Lock()
		s.res = rpcapi.BuildResponse{HostID: int(s.cfg.Host), Err: err.Error()}
		s.done = true
		s.mu.Unlock()
		*reply = s.res
		return nil
	}

	resp := rpcapi.BuildResponse{
		HostID:           int(s.cfg.Host),
		NumNodes:         result.Local.NumNodes(),
		NumMasters:       result.Local.NumMasters,
		NumOutgoingTotal: result.Local.NumOutgoingTotal,
		DummyOutgoing:    result.Local.DummyOutgoing,
		NumEdges:         result.Local.NumEdges(),
	}

	if s.mongoOK && req.JobKey != "" {
		access := persist.NewAccess(req.JobKey)
		if err := persist.Save[struct{}](s.store, access, int(s.cfg.Host), time.Now().Unix(), result.Local, result.CSR); err != nil {
			resp.Err = err.Error()
		}
	}

	s.mu.Lock()
	s.res = resp
	s.done = true
	s.mu.Unlock()

	*reply = resp
	return nil
}

// Status reports whether a prior Build call has finished.
func (s *PartitionService) Status(req rpcapi.StatusRequest, reply *rpcapi.StatusResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	reply.Done = s.done
	reply.Err = s.res.Err
	return nil
}

func main() {
	log.SetFlags(log.Lshortfile)

	hostIndex, err := strconv.Atoi(os.Args[1])
	checkErr(err)
	h, err := strconv.Atoi(os.Args[2])
	checkErr(err)
	d, err := strconv.Atoi(os.Args[3])
	checkErr(err)
	rpcAddr := os.Args[4]
	peerAddrs := strings.Split(os.Args[5], ",")
	graphPath := os.Args[6]
	scale := parseIntCSV(os.Args[7])

	moreColumns := len(os.Args) > 8 && os.Args[8] == "true"
	columnBlocked := len(os.Args) > 9 && os.Args[9] == "true"
	mongoAddr := ""
	if len(os.Args) > 10 {
		mongoAddr = os.Args[10]
	}

	host := msg.HostID(hostIndex)

	g, err := grid.New(h, d, moreColumns, columnBlocked)
	checkErr(err)

	reader, err := graphio.Open(graphPath, 0)
	checkErr(err)

	tp := transport.New(host, fmt.Sprintf("partitiond-host%d.log", hostIndex))

	connectRowPeers(tp, g, host, peerAddrs, h, d, moreColumns, columnBlocked)
	log.Printf("host %d: row peer connections established", hostIndex)

	svc := &PartitionService{
		reader: reader,
		t:      tp,
		cfg: partition.Config{
			Host:          host,
			H:             h,
			D:             d,
			MoreColumns:   moreColumns,
			ColumnBlocked: columnBlocked,
			Scale:         scale,
		},
	}
	if mongoAddr != "" {
		svc.store = persist.New(mongoAddr)
		svc.mongoOK = true
	}

	checkErr(rpc.Register(svc))
	listener, err := net.Listen("tcp", rpcAddr)
	checkErr(err)
	log.Printf("host %d: serving PartitionService on %s", hostIndex, rpcAddr)
	rpc.Accept(listener)
}

func parseIntCSV(s string) []int {
	fields := strings.Split(s, ",")
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		checkErr(err)
		out[i] = v
	}
	return out
}

// connectRowPeers dials/accepts exactly one connection per row-peer
// pair: the lower-indexed host dials, the higher-indexed host listens
// and accepts, so no pair races to open two connections. Every
// connection is preceded by a plain gob handshake exchanging
// msg.HelloPayload before any Transport traffic begins. Only the
// accepting side uses the peer's HostID from it; the grid fields are
// not compared.
func connectRowPeers(tp *transport.Transport, g *grid.Grid, self msg.HostID, peerAddrs []string, h, d int, moreColumns, columnBlocked bool) {
	rowPeers := g.RowMembers(int(self))
	hello := msg.HelloPayload{HostID: self, NumHosts: h, Decompose: d, MoreColumns: moreColumns, ColumnBlocked: columnBlocked}

	// The lower-indexed host in a pair dials; the higher-indexed host
	// accepts, so every row-peer pair opens exactly one connection
	// instead of racing to open two.
	var lower []int
	for _, p := range rowPeers {
		if p < int(self) {
			lower = append(lower, p)
		}
	}

	var wg sync.WaitGroup
	if len(lower) > 0 {
		listener, err := net.Listen("tcp", peerAddrs[self])
		checkErr(err)
		wg.Add(len(lower))
		go func() {
			accepted := 0
			for accepted < len(lower) {
				conn, err := listener.Accept()
				checkErr(err)
				go func(conn net.Conn) {
					peer := handshake(conn, hello)
					tp.Accept(peer, conn)
					wg.Done()
				}(conn)
				accepted++
			}
			listener.Close()
		}()
	}

	for _, p := range rowPeers {
		if p <= int(self) {
			continue
		}
		peer := p
		conn := dialWithRetry(peerAddrs[peer])
		sendHello(conn, hello)
		readHello(conn)
		tp.Accept(msg.HostID(peer), conn)
	}

	wg.Wait()
}

func dialWithRetry(addr string) net.Conn {
	deadline := time.Now().Add(30 * time.Second)
	for {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			return conn
		}
		if time.Now().After(deadline) {
			log.Panic(err)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func handshake(conn net.Conn, own msg.HelloPayload) msg.HostID {
	peer := readHello(conn)
	sendHello(conn, own)
	return peer
}

func sendHello(conn net.Conn, hello msg.HelloPayload) {
	var buf bytes.Buffer
	checkErr(gob.NewEncoder(&buf).Encode(hello))
	var sizeBuf [4]byte
	binary.LittleEndian.PutUint32(sizeBuf[:], uint32(buf.Len()))
	_, err := conn.Write(sizeBuf[:])
	checkErr(err)
	_, err = conn.Write(buf.Bytes())
	checkErr(err)
}

func readHello(conn net.Conn) msg.HostID {
	var sizeBuf [4]byte
	_, err := io.ReadFull(conn, sizeBuf[:])
	checkErr(err)
	size := binary.LittleEndian.Uint32(sizeBuf[:])
	body := make([]byte, size)
	_, err = io.ReadFull(conn, body)
	checkErr(err)

	var hello msg.HelloPayload
	checkErr(gob.NewDecoder(bytes.NewReader(body)).Decode(&hello))
	return hello.HostID
}
