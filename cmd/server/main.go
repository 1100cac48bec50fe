package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thanhnp/pow-ledger/internal/api"
	"github.com/thanhnp/pow-ledger/internal/api/handlers"
	"github.com/thanhnp/pow-ledger/internal/config"
	"github.com/thanhnp/pow-ledger/internal/ledger"
	"github.com/thanhnp/pow-ledger/internal/notifier"
	"github.com/thanhnp/pow-ledger/internal/registry"
	"github.com/thanhnp/pow-ledger/internal/storage"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Println("Starting PoW ledger server...")

	// Open the in-memory block index
	db, err := storage.NewPebbleDB(cfg.CacheSizeBytes())
	if err != nil {
		log.Fatalf("Failed to open block index: %v", err)
	}
	stores := storage.NewStores(db)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := notifier.NewHub()
	reg := registry.New(ctx, hub, stores)

	if cfg.Ledger.DefaultChain {
		entry, err := reg.Create(cfg.Ledger.Difficulty, ledger.WithGenesisTransactions(cfg.Ledger.GenesisTransactions))
		if err != nil {
			log.Fatalf("Failed to create default chain: %v", err)
		}
		log.Printf("Default chain: %s", entry.ID)
	}

	// Initialize API router
	router := api.NewRouter(
		reg,
		handlers.ChainDefaults{
			Difficulty:          cfg.Ledger.Difficulty,
			GenesisTransactions: cfg.Ledger.GenesisTransactions,
		},
		cfg.MiningTimeoutDuration(),
	)

	// Create HTTP server. Appends can mine for a long time, so only the
	// mining timeout bounds the write side when one is configured.
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     router.Engine(),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
	if timeout := cfg.MiningTimeoutDuration(); timeout > 0 {
		server.WriteTimeout = timeout + 30*time.Second
	}

	// Start HTTP server in goroutine
	go func() {
		log.Printf("HTTP server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// Cancel context to stop indexers
	cancel()

	if err := reg.Close(); err != nil {
		log.Printf("Error stopping indexers: %v", err)
	}

	if err := stores.Close(); err != nil {
		log.Printf("Error closing block index: %v", err)
	}

	log.Println("Server stopped")
}
