// Copyright 2025 The stomp-go Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// package main is the entrypoint for the stompd broker.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/turtacn/stomp-go/pkg/audit"
	"github.com/turtacn/stomp-go/pkg/config"
	"github.com/turtacn/stomp-go/pkg/metrics"
	"github.com/turtacn/stomp-go/pkg/registry"
	"github.com/turtacn/stomp-go/pkg/server"
)

const usage = "usage: stompd <port> <tpc|reactor> [config-file]"

func main() {
	args := os.Args[1:]
	if len(args) < 2 || len(args) > 3 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	port, err := strconv.Atoi(args[0])
	if err != nil || port < 1 || port > 65535 {
		fmt.Fprintf(os.Stderr, "invalid port %q\n%s\n", args[0], usage)
		os.Exit(2)
	}

	mode := server.Mode(args[1])
	if mode != server.ModeThreadPerConnection && mode != server.ModeReactor {
		fmt.Fprintf(os.Stderr, "invalid mode %q\n%s\n", args[1], usage)
		os.Exit(2)
	}

	configPath := ""
	if len(args) == 3 {
		configPath = args[2]
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	creds, err := cfg.BuildCredentials()
	if err != nil {
		log.Fatalf("Failed to build credential store: %v", err)
	}

	var rec audit.Recorder
	if cfg.Broker.AuditDSN != "" {
		pg, err := audit.OpenPostgres(cfg.Broker.AuditDSN)
		if err != nil {
			log.Fatalf("Failed to open audit database: %v", err)
		}
		rec = pg
	} else {
		rec = audit.NewMemoryRecorder()
	}
	defer rec.Close()

	srv, err := server.New(server.Options{
		Addr:     fmt.Sprintf(":%d", port),
		Mode:     mode,
		Host:     cfg.Broker.Host,
		PoolSize: cfg.Broker.ReactorPoolSize,
		WSAddr:   cfg.Broker.WSAddr,
		Registry: registry.New(creds),
		Audit:    rec,
	})
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	if cfg.Broker.MetricsAddr != "" {
		go metrics.Serve(cfg.Broker.MetricsAddr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Starting stompd on port %d in %s mode", port, mode)
	if err := srv.Serve(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}

	log.Println("Shutdown signal received. Shutting down...")
	if err := rec.WriteReport(os.Stdout); err != nil {
		log.Printf("[WARN] Failed to write audit report: %v", err)
	}
}
