package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"hldesk/internal/aggregator"
	"hldesk/internal/aitrader"
	"hldesk/internal/api"
	"hldesk/internal/config"
	"hldesk/internal/observability"
	"hldesk/internal/paper"
	"hldesk/internal/poller"
	"hldesk/internal/ratecache"
	"hldesk/internal/repository"
	"hldesk/internal/sampler"
	"hldesk/internal/snapshotwriter"
	"hldesk/internal/venue"
)

const sampleEveryNCycles = 120 // ~1h at a 30s poll interval, per C8's hourly mark-to-market cadence

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := observability.NewLogger(observability.LoggerConfig{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		FilePath: cfg.Logging.FilePath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var db *sql.DB
	if cfg.Database.PersistenceEnabled() {
		db, err = repository.Open(cfg.Database)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		logger.Info("connected to database")
	} else {
		logger.Warn("SUPABASE_SERVICE_ROLE_KEY not set, simulation persistence disabled")
	}

	primary, cex, err := venue.BuildAdapters(cfg.Venues.CexVenues)
	if err != nil {
		logger.Fatal("failed to build venue adapters", zap.Error(err))
	}
	agg := aggregator.New(primary, cex, cfg.Poll.VenueTimeout)
	cache := ratecache.New(agg, cfg.Poll.CacheTTL)

	fundingRepo := repository.NewFundingRepository(db)
	portfolioRepo := repository.NewPortfolioRepository(db)
	positionRepo := repository.NewPositionRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)
	traderRepo := repository.NewAiTraderRepository(db)

	paperEngine := paper.NewEngine(portfolioRepo, positionRepo, transactionRepo, logger)

	llmClient := aitrader.NewLLMClient(cfg.LLM.BaseURL, cfg.LLM.OpenRouterAPIKey, cfg.LLM.CallTimeout)
	aiEngine := aitrader.NewEngine(traderRepo, llmClient, cfg.LLM.CallTimeout, logger)

	snapshotSampler := sampler.New(portfolioRepo, positionRepo, traderRepo, snapshotRepo, logger)
	fundingWriter := snapshotwriter.New(fundingRepo, logger)

	pollEngine := poller.New(agg, cache, fundingWriter, paperEngine, cfg.Poll.Interval, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go pollEngine.Run(ctx, snapshotSampler.Run, sampleEveryNCycles)

	deps := &api.Dependencies{
		Cache:        cache,
		VenueHealth:  agg.Health(),
		Funding:      fundingRepo,
		Portfolios:   portfolioRepo,
		Positions:    positionRepo,
		Transactions: transactionRepo,
		Snapshots:    snapshotRepo,
		Traders:      traderRepo,
		AiEngine:     aiEngine,
		Sampler:      snapshotSampler,
		Logger:       logger,
	}
	router := api.SetupRoutes(deps)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

