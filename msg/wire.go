// Package msg holds the wire types exchanged between cooperating hosts
// during a partition build: a small Type enum with a stringer, and
// plain structs for each message shape rather than a generic envelope.
package msg

import "fmt"

// HostID identifies a real host in [0, H).
type HostID int

// Type enumerates the message shapes exchanged over transport during a
// partition build.
type Type int

const (
	NilType Type = iota // can't start at 0: a zero-value Type must never look like a real message

	// MetadataExchange round
	Metadata

	// EdgeLoader second pass
	EdgeBatch

	// Admin / handshake
	HostHello
	HostHelloAck
)

func TypeStr(t Type) string {
	switch t {
	case Metadata:
		return "Metadata"
	case EdgeBatch:
		return "EdgeBatch"
	case HostHello:
		return "HostHello"
	case HostHelloAck:
		return "HostHelloAck"
	default:
		return fmt.Sprintf("Illegal msg.Type: %v", t)
	}
}

// MetadataPayload is the buffer one column peer sends another during
// MetadataExchange: the sender's D degree vectors for the receiving
// peer's column, followed by the sender's hasIn bitset for that column,
// the bitset already serialized.
type MetadataPayload struct {
	Sender       HostID
	DegreeVecs   [][]uint64 // length D, one vector per virtual range
	IncidenceBin []byte     // marshaled bitset.ColumnIncidence
}

// Edge is a single (source, destination[, data]) tuple in transit.
type Edge struct {
	Src, Dst uint64
	Data     []byte
}

// EdgeBatchPayload is a buffer of routed edges sent from one host to the
// column peer that owns them.
type EdgeBatchPayload struct {
	Sender HostID
	Edges  []Edge
}

// HelloPayload is exchanged when a host's transport connection to a peer
// is first established, before any exchange round begins, carrying the
// sender's host id and grid configuration.
type HelloPayload struct {
	HostID        HostID
	NumHosts      int
	Decompose     int
	MoreColumns   bool
	ColumnBlocked bool
}
