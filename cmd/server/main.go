// Package main runs the full tracker: the collection scheduler, the HTTP
// query surface, the live WebSocket feed, and Prometheus metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"crypto-tracker/internal/analytics"
	"crypto-tracker/internal/api"
	"crypto-tracker/internal/coingecko"
	"crypto-tracker/internal/ingestion"
	"crypto-tracker/internal/storage"
	chstore "crypto-tracker/internal/storage/clickhouse"
	"crypto-tracker/internal/storage/memory"
	"crypto-tracker/internal/storage/migrations"
	pgstore "crypto-tracker/internal/storage/postgres"
	"crypto-tracker/internal/stream"
)

func main() {
	// Load .env file if it exists; system env vars win.
	_ = godotenv.Load()

	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional tick archive)")
	apiKey := flag.String("coingecko-api-key", os.Getenv("COINGECKO_API_KEY"), "CoinGecko demo API key")
	listenAddr := flag.String("listen-addr", envOr("LISTEN_ADDR", ":8000"), "HTTP listen address")
	interval := flag.Duration("collect-interval", envDurationOr("COLLECT_INTERVAL", ingestion.DefaultInterval), "Gap between collection cycles")
	fetchTimeout := flag.Duration("fetch-timeout", envDurationOr("FETCH_TIMEOUT", ingestion.DefaultFetchTimeout), "Snapshot fetch timeout")
	topN := flag.Int("top-n", 50, "Coins per snapshot, by market cap")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, archive, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	source := coingecko.NewClient(
		coingecko.WithTimeout(*fetchTimeout),
		coingecko.WithAPIKey(*apiKey),
	)

	hub := stream.NewHub(log.New(os.Stdout, "[stream] ", log.LstdFlags))
	defer hub.Close()

	collector := ingestion.NewCollector(ingestion.CollectorOptions{
		Source:       source,
		Store:        store,
		Archive:      archive,
		Hub:          hub,
		TopN:         *topN,
		FetchTimeout: *fetchTimeout,
		Logger:       log.New(os.Stdout, "[collect] ", log.LstdFlags),
	})
	scheduler := ingestion.NewScheduler(collector, *interval, log.New(os.Stdout, "[collect] ", log.LstdFlags))

	server := api.NewServer(api.ServerOptions{
		Store:  store,
		Engine: analytics.NewEngine(store),
		Hub:    hub,
		Logger: log.New(os.Stdout, "[api] ", log.LstdFlags),
	})

	httpServer := &http.Server{
		Addr:    *listenAddr,
		Handler: server.Router(),
	}

	done := make(chan struct{})

	// Handle shutdown signals. A second signal forces immediate exit.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown error: %v", err)
		}

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	go func() {
		logger.Printf("Starting HTTP server on %s", *listenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server error: %v", err)
		}
	}()

	err = scheduler.Run(ctx)
	close(done)

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Scheduler error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// createStores builds the primary store and the optional tick archive.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool, logger *log.Logger) (storage.Store, ingestion.TickArchiver, func(), error) {
	if useMemory {
		logger.Println("Using in-memory storage")
		return memory.NewStore(), nil, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}
	store := pgstore.NewStore(pool)

	// The ClickHouse archive is optional; without a DSN the tracker runs
	// on Postgres alone.
	if clickhouseDSN == "" {
		return store, nil, pool.Close, nil
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
	}

	cleanup := func() {
		conn.Close()
		pool.Close()
	}
	return store, chstore.NewTickArchive(conn), cleanup, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
