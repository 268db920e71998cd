// Command clusterlaunch brings up H remote partitiond processes over
// SSH, one per real host: dial each remote, start the binary in a
// session, and leave the session running until told to stop.
//
// Usage:
//
//	clusterlaunch <clusterConfigPath>
//
// clusterConfigPath is a text file with one line per real host:
//
//	<user> <sshHost> <password> <partitiondBinaryPath> <partitiondArgs...>
package main

import (
	"bufio"
	"bytes"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"golang.org/x/crypto/ssh"
)

type remoteHost struct {
	hostIndex int
	user      string
	sshHost   string
	password  string
	command   string
}

type output struct {
	hostIndex int
	raw       string
}

func checkErr(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	log.SetFlags(log.Lshortfile)

	configPath := os.Args[1]
	hosts := parseClusterConfig(configPath)

	stop := make(chan bool, len(hosts))
	results := make(chan output, len(hosts))

	for _, h := range hosts {
		go runRemote(h, stop, results)
	}

	fmt.Printf("Launched %d partitiond processes. Press Ctrl+C to stop the cluster.\n", len(hosts))

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	<-sigs

	for range hosts {
		stop <- true
	}
	for range hosts {
		res := <-results
		fmt.Printf("host %d output:\n%s\n", res.hostIndex, res.raw)
	}
}

func parseClusterConfig(path string) []remoteHost {
	f, err := os.Open(path)
	checkErr(err)
	defer f.Close()

	var hosts []remoteHost
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			log.Fatalf("malformed cluster config line: %q", line)
		}
		hosts = append(hosts, remoteHost{
			hostIndex: len(hosts),
			user:      fields[0],
			sshHost:   fields[1],
			password:  fields[2],
			command:   strings.Join(fields[3:], " "),
		})
	}
	checkErr(scanner.Err())
	return hosts
}

func runRemote(h remoteHost, stop chan bool, results chan output) {
	config := &ssh.ClientConfig{
		User:            h.user,
		Auth:            []ssh.AuthMethod{ssh.Password(h.password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	client, err := ssh.Dial("tcp", h.sshHost+":22", config)
	checkErr(err)
	defer client.Close()

	session, err := client.NewSession()
	checkErr(err)
	defer session.Close()

	var out bytes.Buffer
	session.Stdout = &out
	session.Stderr = &out

	log.Printf("host %d: starting %q on %s", h.hostIndex, h.command, h.sshHost)
	checkErr(session.Start(h.command))

	<-stop
	session.Signal(ssh.SIGINT)
	results <- output{hostIndex: h.hostIndex, raw: out.String()}
}
