package main

import (
	"bufio"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/nicholasbl/JobParbreak"
)

type serverConfig struct {
	port        int
	txtfile     string
	metricsAddr string
	historyDB   string
	sshConfig   string
}

func runServer(cfg serverConfig) {
	store := parbreak.NewStore()
	metrics := parbreak.NewMetrics()

	var history *parbreak.History
	if cfg.historyDB != "" {
		h, err := parbreak.OpenHistory(cfg.historyDB)
		if err != nil {
			log.Fatalf("open history db: %v", err)
		}
		history = h
		store.SetHistory(history)
		defer history.Close()
	}

	disp := parbreak.NewDispatcher(store, metrics)
	go disp.Run()
	defer disp.Stop()

	if cfg.txtfile != "" {
		f, err := os.Open(cfg.txtfile)
		if err != nil {
			log.Fatalf("open txtfile: %v", err)
		}
		n, err := store.IngestFile(f)
		f.Close()
		if err != nil {
			log.Fatalf("ingest txtfile: %v", err)
		}
		log.Printf("ingested %d jobs from %s", n, cfg.txtfile)
	}

	var launcher *parbreak.Launcher
	sshCfg, err := parbreak.LoadSSHConfig(cfg.sshConfig)
	if err != nil {
		log.Fatalf("load ssh config: %v", err)
	}
	launcher = parbreak.NewLauncher(cfg.port, sshCfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		conn, err := parbreak.Upgrade(w, r)
		if err != nil {
			log.Printf("upgrade failed: %v", err)
			return
		}
		disp.Accept(conn)
	})

	addr := fmt.Sprintf(":%d", cfg.port)
	go func() {
		log.Printf("coordinator listening on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	if cfg.metricsAddr != "" {
		go func() {
			log.Printf("metrics listening on %s", cfg.metricsAddr)
			if err := http.ListenAndServe(cfg.metricsAddr, metrics.Handler()); err != nil {
				log.Printf("metrics server: %v", err)
			}
		}()
	}

	// Periodically publish the idle-worker gauge; the dispatcher has no
	// push notification for idleness changes, so a ticker pulls it.
	idleTicker := time.NewTicker(2 * time.Second)
	defer idleTicker.Stop()
	go func() {
		for range idleTicker.C {
			metrics.SetIdle(disp.IdleCount())
		}
	}()

	console := parbreak.NewConsole(store, disp, history, launcher)

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	console.Run(lines)
	log.Print("coordinator shutting down")
}
