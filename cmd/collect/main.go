// Package main runs a single collection cycle and exits. Useful for
// cron-style deployments and for backfilling a fresh database.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"crypto-tracker/internal/coingecko"
	"crypto-tracker/internal/ingestion"
	"crypto-tracker/internal/storage/migrations"
	pgstore "crypto-tracker/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()

	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	apiKey := flag.String("coingecko-api-key", os.Getenv("COINGECKO_API_KEY"), "CoinGecko demo API key")
	fetchTimeout := flag.Duration("fetch-timeout", ingestion.DefaultFetchTimeout, "Snapshot fetch timeout")
	topN := flag.Int("top-n", 50, "Coins per snapshot, by market cap")
	timeout := flag.Duration("timeout", 60*time.Second, "Overall cycle deadline")

	flag.Parse()

	logger := log.New(os.Stdout, "[collect] ", log.LstdFlags)

	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	collector := ingestion.NewCollector(ingestion.CollectorOptions{
		Source: coingecko.NewClient(
			coingecko.WithTimeout(*fetchTimeout),
			coingecko.WithAPIKey(*apiKey),
		),
		Store:        pgstore.NewStore(pool),
		TopN:         *topN,
		FetchTimeout: *fetchTimeout,
		Logger:       logger,
	})

	result, err := collector.RunCycle(ctx)
	if err != nil {
		logger.Fatalf("Collection cycle failed: %v", err)
	}

	logger.Printf("Committed %d ticks, %d new assets in %v",
		result.TicksWritten, result.NewAssets, result.Duration)
}
