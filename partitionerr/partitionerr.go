// Package partitionerr defines the error taxonomy the partition build
// reports to its caller: the offending host id and the phase counter at
// the time of failure always travel with the error.
package partitionerr

import "fmt"

// Kind classifies a partition-build failure.
type Kind int

const (
	// IoError is a failure reading the global graph file.
	IoError Kind = iota
	// PartitionInvariant is a violated structural invariant (duplicate
	// global id, prefix-sum mismatch, source expected owned was not).
	PartitionInvariant
	// ProtocolMismatch is a received buffer whose sender is inconsistent
	// with the round's expected partner.
	ProtocolMismatch
	// ConfigError is a bad input configuration (zero scale-factor sum,
	// D = 0, missing file).
	ConfigError
)

func (k Kind) String() string {
	switch k {
	case IoError:
		return "IoError"
	case PartitionInvariant:
		return "PartitionInvariant"
	case ProtocolMismatch:
		return "ProtocolMismatch"
	case ConfigError:
		return "ConfigError"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// PartitionError is fatal to the partition build; there is no
// consistent-subgraph fallback. Downstream computation must not start.
type PartitionError struct {
	Kind   Kind
	HostID int
	Phase  uint64
	Msg    string
	Err    error
}

func (e *PartitionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (host %d, phase %d): %s: %v", e.Kind, e.HostID, e.Phase, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s (host %d, phase %d): %s", e.Kind, e.HostID, e.Phase, e.Msg)
}

func (e *PartitionError) Unwrap() error { return e.Err }

// New builds a PartitionError with no wrapped cause.
func New(kind Kind, hostID int, phase uint64, msg string) *PartitionError {
	return &PartitionError{Kind: kind, HostID: hostID, Phase: phase, Msg: msg}
}

// Wrap builds a PartitionError around an underlying error.
func Wrap(kind Kind, hostID int, phase uint64, msg string, err error) *PartitionError {
	return &PartitionError{Kind: kind, HostID: hostID, Phase: phase, Msg: msg, Err: err}
}
