package main

import (
	"log"
	"time"

	"github.com/nicholasbl/JobParbreak"
)

func runClient(url string) {
	conn, err := parbreak.DialWithRetry(url, 5, 2*time.Second)
	if err != nil {
		log.Fatalf("connect to %s: %v", url, err)
	}
	defer conn.Close()

	log.Printf("connected to %s", url)
	runner := parbreak.NewRunner(conn, "/bin/sh")
	runner.Run()
	log.Print("coordinator connection closed, exiting")
}
