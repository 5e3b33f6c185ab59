// Command parbreak runs either half of the job farm: the coordinator
// (-s/--server) that owns the job store and worker registry, or a worker
// (-c/--client) that connects to a coordinator and runs the commands it is
// given.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
)

func main() {
	var server bool
	flag.BoolVar(&server, "s", false, "act as a coordinator")
	flag.BoolVar(&server, "server", false, "act as a coordinator")

	var client string
	flag.StringVar(&client, "c", "", "act as a worker, connecting to the given coordinator URL")
	flag.StringVar(&client, "client", "", "act as a worker, connecting to the given coordinator URL")

	var port int
	flag.IntVar(&port, "p", 55000, "port to use")
	flag.IntVar(&port, "port", 55000, "port to use")

	var txtfile string
	flag.StringVar(&txtfile, "t", "", "coordinator: pre-ingest jobs from this file")
	flag.StringVar(&txtfile, "txtfile", "", "coordinator: pre-ingest jobs from this file")

	var debug bool
	flag.BoolVar(&debug, "d", false, "enable verbose logs")
	flag.BoolVar(&debug, "debug", false, "enable verbose logs")

	var metricsAddr string
	flag.StringVar(&metricsAddr, "m", "", "coordinator: address to serve /metrics on (empty disables)")
	flag.StringVar(&metricsAddr, "metrics-addr", "", "coordinator: address to serve /metrics on (empty disables)")

	var historyDB string
	flag.StringVar(&historyDB, "history-db", "coco-history.db", "coordinator: path to the job-history sqlite database")

	var sshConfig string
	flag.StringVar(&sshConfig, "ssh-config", "", "coordinator: path to the optional worker-launch TOML config")

	flag.Parse()

	if !debug {
		log.SetFlags(log.LstdFlags)
	} else {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	if server && client != "" {
		fmt.Fprintln(os.Stderr, "unable to be server and client at the same time")
		os.Exit(1)
	}
	if !server && client == "" {
		fmt.Fprintln(os.Stderr, "need either -s/--server or -c/--client <host>")
		os.Exit(1)
	}

	if server {
		runServer(serverConfig{
			port:        port,
			txtfile:     txtfile,
			metricsAddr: metricsAddr,
			historyDB:   historyDB,
			sshConfig:   sshConfig,
		})
		return
	}
	runClient(client)
}
