package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/paperfolio/paperfolio-backend/internal/adapter/quote"
	"github.com/paperfolio/paperfolio-backend/internal/adapter/repository/memory"
	"github.com/paperfolio/paperfolio-backend/internal/adapter/repository/postgres"
	"github.com/paperfolio/paperfolio-backend/internal/adapter/rest"
	"github.com/paperfolio/paperfolio-backend/internal/config"
	"github.com/paperfolio/paperfolio-backend/internal/domain"
	"github.com/paperfolio/paperfolio-backend/internal/usecase/ledger"
	"github.com/paperfolio/paperfolio-backend/internal/usecase/pricing"
	"github.com/paperfolio/paperfolio-backend/internal/usecase/seeder"
	"github.com/paperfolio/paperfolio-backend/internal/usecase/valuation"
)

func main() {
	log := newLogger(os.Getenv("LOG_LEVEL"))

	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log = newLogger(cfg.LogLevel)

	// 2. Initialize Repositories
	var ledgerRepo domain.LedgerRepository
	var priceRepo domain.ClosingPriceRepository
	switch cfg.StorageDriver {
	case "postgres":
		db, err := postgres.NewDB(cfg.DBConnStr)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
		ledgerRepo = postgres.NewLedgerRepository(db)
		priceRepo = postgres.NewClosingPriceRepository(db)
	case "memory":
		ledgerRepo = memory.NewLedgerRepository(cfg.OpeningBalance)
		priceRepo = memory.NewClosingPriceRepository()
	}

	// 3. Seed the paper-trading account
	accountSeeder := seeder.NewAccountSeeder(ledgerRepo, cfg.OpeningBalance)
	ctx := context.Background()
	if err := accountSeeder.Seed(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed account")
	}
	log.Info().Str("opening_balance", cfg.OpeningBalance.String()).Msg("Account seeded")

	// 4. Initialize Services (Use Cases)
	quoteClient := quote.NewClient(cfg.QuoteBaseURL, cfg.QuoteCacheTTL, log)
	resolver := pricing.NewResolver(quoteClient, cfg.QuoteTimeout, log)
	resolver.History = priceRepo

	ledgerService := ledger.NewService(ledgerRepo)
	summaryService := valuation.NewSummaryService(ledgerService, resolver.Resolve)
	snapshotBuilder := valuation.NewSnapshotBuilder(ledgerService, priceRepo)

	// 5. Start HTTP Server
	handler := rest.NewHandler(ledgerService, resolver, summaryService, snapshotBuilder, log)
	server := rest.NewServer(cfg.Port, handler, log)

	go func() {
		log.Info().Int("port", cfg.Port).Msg("HTTP server listening")
		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to serve HTTP server")
		}
	}()

	// Graceful shutdown
	waitForShutdown(server, log)
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the server
func waitForShutdown(server *rest.Server, log zerolog.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Shutdown did not complete cleanly")
	}
	log.Info().Msg("HTTP server stopped")
}

func newLogger(level string) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(parsed).With().Timestamp().Logger()
}
