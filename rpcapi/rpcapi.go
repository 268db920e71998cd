// Package rpcapi holds the net/rpc argument and reply types exchanged
// between partitionctl and a running partitiond, mirroring the
// teacher's msg package convention of one plain struct per request/
// response shape (msg.ClientConnectionMsg/ServerConnectionResp,
// msg.ClientRequestMsg/ServerRequestResp) rather than a generic
// envelope.
package rpcapi

// BuildRequest asks a partitiond to run a partition build over the
// graph file it was started with.
type BuildRequest struct {
	JobKey string
}

// BuildResponse summarizes one host's finished build, enough for
// partitionctl to print a cluster-wide report without needing the full
// LocalIndex/CSR (those stay local to the host, or land in persist).
type BuildResponse struct {
	HostID           int
	NumNodes         int
	NumMasters       int
	NumOutgoingTotal int
	DummyOutgoing    int
	NumEdges         uint64
	Err              string
}

// StatusRequest asks a partitiond to report whether a Build call has
// completed. partitiond does not consult JobKey: it reports on its most
// recent Build, whatever job that was for.
type StatusRequest struct {
	JobKey string
}

// StatusResponse is empty-Err, Done=false until a BuildRequest's
// partition.Build call has returned.
type StatusResponse struct {
	Done bool
	Err  string
}
