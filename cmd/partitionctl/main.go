// Command partitionctl submits a partition build to a running set of
// partitiond processes and reports the aggregated result: one small
// command that dials each host's net/rpc service and drives it rather
// than doing the work itself.
//
// Usage:
//
//	partitionctl <jobKey> <partitiondRpcAddrsCSV>
package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"net/rpc"

	"github.com/distgraph/cartesiancut/rpcapi"
)

func checkErr(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	log.SetFlags(log.Lshortfile)

	jobKey := os.Args[1]
	addrs := strings.Split(os.Args[2], ",")

	fmt.Printf("Submitting build %q to %d hosts.\n", jobKey, len(addrs))

	var wg sync.WaitGroup
	replies := make([]rpcapi.BuildResponse, len(addrs))
	errs := make([]error, len(addrs))

	wg.Add(len(addrs))
	for i, addr := range addrs {
		i, addr := i, addr
		go func() {
			defer wg.Done()
			replies[i], errs[i] = submitBuild(addr, jobKey)
		}()
	}
	wg.Wait()

	failed := false
	for i, addr := range addrs {
		if errs[i] != nil {
			failed = true
			fmt.Printf("host at %s: RPC error: %v\n", addr, errs[i])
			continue
		}
		r := replies[i]
		if r.Err != "" {
			failed = true
			fmt.Printf("host %d (%s): build failed: %s\n", r.HostID, addr, r.Err)
			continue
		}
		fmt.Printf("host %d (%s): %d nodes (%d masters, %d outgoing mirrors, %d dummy), %d edges\n",
			r.HostID, addr, r.NumNodes, r.NumMasters, r.NumOutgoingTotal-r.NumMasters, r.DummyOutgoing, r.NumEdges)
	}

	if failed {
		os.Exit(1)
	}
	fmt.Println("Build succeeded on all hosts.")
}

func submitBuild(addr, jobKey string) (rpcapi.BuildResponse, error) {
	service, err := rpc.Dial("tcp", addr)
	if err != nil {
		return rpcapi.BuildResponse{}, err
	}
	defer service.Close()

	var reply rpcapi.BuildResponse
	err = service.Call("PartitionService.Build", rpcapi.BuildRequest{JobKey: jobKey}, &reply)
	return reply, err
}
