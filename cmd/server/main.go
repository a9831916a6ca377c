/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the referral credit and trust engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load TOML configuration (flag overrides apply on top)
  3. Initialize store (SQLite or in-memory)
  4. Create API handler with dependencies
  5. Start the pool rollover sweeper
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  TOML configuration file (optional; defaults apply without one)
  -addr    HTTP listen address (overrides config)
  -db      SQLite database path (overrides config)
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the sweeper and close the database
  4. Exit

EXAMPLES:
  # Run with defaults
  ./server

  # Run with a config file and in-memory database
  ./server -config=./engine.toml -db=":memory:"

SEE ALSO:
  - config/config.go: Configuration schema and defaults
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/techizeBuilder/Decision-Maker-sub003/api"
	"github.com/techizeBuilder/Decision-Maker-sub003/config"
	"github.com/techizeBuilder/Decision-Maker-sub003/engine"
	enginestore "github.com/techizeBuilder/Decision-Maker-sub003/engine/store"
	"github.com/techizeBuilder/Decision-Maker-sub003/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "TOML configuration file")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	// Configuration
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dbPath != "" {
		cfg.Storage.Path = *dbPath
	}

	// Initialize store
	var store engine.Store
	switch cfg.Storage.Driver {
	case "memory":
		store = enginestore.NewMemory()
	default:
		s, err := sqlite.New(cfg.Storage.Path)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer s.Close()
		store = s
	}

	// Initialize handler and router
	handler := api.NewHandler(store, cfg)
	router := api.NewRouter(handler)

	// Pool rollover sweeper
	sweeper := api.NewRolloverSweeper(store, handler.Pool)
	sweeper.Enabled = cfg.Sweeper.Enabled
	sweeper.CheckInterval = cfg.Sweeper.Interval()
	sweeper.Start()
	defer sweeper.Stop()

	// Create server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
