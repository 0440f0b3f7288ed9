// Package server wires the optional HTTP read surface: routing, middleware,
// the websocket change feed, and lifecycle.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/mnemo-ai/mnemo/internal/config"
	"github.com/mnemo-ai/mnemo/internal/engine"
	"github.com/mnemo-ai/mnemo/internal/session"
	"github.com/mnemo-ai/mnemo/web/handlers"
)

// securityHeadersMiddleware adds the standard security headers to every
// response.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// Start builds the router and starts the HTTP server. It returns the actual
// listen address (port 0 resolves for tests) and the websocket hub so the
// caller can wire the graph-file watcher into it. The server shuts down when
// ctx is cancelled.
func Start(ctx context.Context, cfg *config.Config, graphs *engine.Manager, search *engine.Searcher, health *engine.HealthEngine, sess *session.Session) (string, *handlers.WebSocketHub, error) {
	mux := http.NewServeMux()

	wsHub := handlers.NewWebSocketHub()
	go wsHub.Run()

	rateLimiter := handlers.NewRateLimiter(10.0, 20)
	api := handlers.NewAPIHandlers(graphs, search, health, sess)

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("/api/graph", get(api.GetGraph))
	apiMux.HandleFunc("/api/search", get(api.Search))
	apiMux.HandleFunc("/api/working-memory", get(api.GetWorkingMemory))

	// Liveness endpoint, no auth: monitoring needs it before tokens exist.
	mux.HandleFunc("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	apiMux.HandleFunc("/api/health", get(api.GetHealth))

	mux.Handle("/api/", handlers.RequireAuth(apiMux, cfg))
	mux.Handle("/ws", wsHub)

	handler := handlers.RateLimitMiddleware(mux, rateLimiter)
	handler = securityHeadersMiddleware(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		wsHub.Stop()
		return "", nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	actualAddr := listener.Addr().String()

	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("http: server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("http: shutdown: %v", err)
		}
		wsHub.Stop()
	}()

	log.Printf("http: listening on %s", actualAddr)
	return actualAddr, wsHub, nil
}

// get restricts a handler to the GET method.
func get(fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		fn(w, r)
	}
}
