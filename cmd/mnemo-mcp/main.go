// Command mnemo-mcp is the MCP (Model Context Protocol) knowledge-graph
// server. It wires the NDJSON graph store through the graph engine and
// serves JSON-RPC 2.0 requests over stdio.
//
// Startup sequence:
//  1. Load configuration from environment variables.
//  2. Open the graph store and the working-memory session file.
//  3. Build the graph, search, and health engines.
//  4. Optionally start the HTTP read surface and the graph-file watcher.
//  5. Serve JSON-RPC 2.0 requests from stdin, writing responses to stdout.
//
// CRITICAL: ALL logging MUST go to stderr. Any bytes written to stdout that
// are not valid JSON-RPC 2.0 response frames will corrupt the protocol.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mnemo-ai/mnemo/internal/api/mcp"
	"github.com/mnemo-ai/mnemo/internal/config"
	"github.com/mnemo-ai/mnemo/internal/engine"
	"github.com/mnemo-ai/mnemo/internal/notify"
	"github.com/mnemo-ai/mnemo/internal/server"
	"github.com/mnemo-ai/mnemo/internal/session"
	"github.com/mnemo-ai/mnemo/internal/storage/jsonl"
)

func main() {
	// Redirect the default logger to stderr so that any incidental log calls
	// from imported packages never pollute the stdout JSON-RPC stream.
	log.SetOutput(os.Stderr)
	log.SetPrefix("mnemo-mcp: ")
	log.SetFlags(log.LstdFlags)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := os.MkdirAll(cfg.Storage.DataPath, 0o700); err != nil {
		log.Fatalf("failed to create data directory %q: %v", cfg.Storage.DataPath, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("received shutdown signal")
		cancel()
	}()

	store, err := jsonl.NewStore(cfg.Storage.GraphPath())
	if err != nil {
		log.Fatalf("failed to open graph store at %q: %v", cfg.Storage.GraphPath(), err)
	}
	// Fail fast on a corrupt graph file rather than on the first tool call.
	if g, err := store.Load(ctx); err != nil {
		log.Fatalf("failed to load graph from %q: %v", store.Path(), err)
	} else {
		log.Printf("graph loaded: %d entities, %d relations", len(g.Entities), len(g.Relations))
	}

	sess := session.New(cfg.Storage.WorkingMemoryPath())
	outcome := sess.Load(ctx)
	log.Printf("working memory: %s (%s)", outcome, sess)

	graphs := engine.NewManager(store)
	search := engine.NewSearcher(graphs)
	health := engine.NewHealthEngine(graphs, engine.HealthConfig{
		StaleDays:          cfg.Health.StaleDays,
		DuplicateThreshold: cfg.Health.DuplicateThreshold,
	})

	if cfg.Features.EnableHTTP {
		addr, wsHub, err := server.Start(ctx, cfg, graphs, search, health, sess)
		if err != nil {
			log.Fatalf("failed to start HTTP server: %v", err)
		}
		log.Printf("HTTP read surface on %s", addr)

		watcher := notify.NewGraphWatcher(store.Path(), wsHub.BroadcastGraphChanged)
		if err := watcher.Start(); err != nil {
			log.Printf("graph watcher disabled: %v", err)
		} else {
			defer watcher.Stop()
		}
	}

	mcpServer := mcp.NewServer(graphs, search, health, sess, mcp.WithConfig(cfg))
	log.Printf("session %s ready, serving stdio", mcpServer.SessionID())

	transport := mcp.NewStdioTransport(mcpServer)
	if err := transport.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("transport error: %v", err)
	}
	log.Println("shutdown complete")
}
