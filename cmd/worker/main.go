// File: cmd/worker/main.go
//
// Worker-only process: runs the queue driver and the reconcile schedule
// without the HTTP API. Useful for scaling job processing independently of
// the API surface; any number of these can run against the same database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"call-audit-platform/internal/config"
	"call-audit-platform/internal/domain/ports/adapter"
	"call-audit-platform/internal/infra/adapters/analysis"
	"call-audit-platform/internal/infra/adapters/recording"
	pg "call-audit-platform/internal/infra/db/postgres"
	"call-audit-platform/internal/infra/logging"
	"call-audit-platform/internal/infra/metrics"
	"call-audit-platform/internal/infra/ratelimit"
	"call-audit-platform/internal/infra/sched"
	"call-audit-platform/internal/infra/worker"
	"call-audit-platform/internal/usecase"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	if err := pg.RunMigrations(cfg.Database.URL); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()

	tm := pg.NewTxManager(pool)
	campaignRepo := pg.NewCampaignRepo(pool)
	jobRepo := pg.NewCampaignJobRepo(pool, tm)
	auditRepo := pg.NewCallAuditRepo(pool)
	scorecardRepo := pg.NewScorecardRepo(pool)

	progressUC := usecase.NewProgressUseCase(campaignRepo, jobRepo, logger)

	analyzer, err := buildAnalyzer(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("analysis adapter init failed")
	}
	analysisLimiter := ratelimit.NewSlidingWindow("analysis", cfg.RateLimit.Analysis.MaxRequests, cfg.RateLimit.Analysis.Window)
	analyzer = analysis.NewThrottledAnalyzer(analyzer, analysisLimiter)
	fetchLimiter := ratelimit.NewSlidingWindow("fetch", cfg.RateLimit.Fetch.MaxRequests, cfg.RateLimit.Fetch.Window)
	fetcher := recording.NewThrottledFetcher(recording.NewHTTPFetcher(cfg.Analysis.FetchTimeout), fetchLimiter)

	retry := worker.NewRetryPolicy(cfg.Analysis.MaxRetries, cfg.Analysis.RetryBaseDelay)
	controller := worker.NewConcurrencyController(cfg.Worker.Ceiling, worker.NewSystemProbe(), logger)
	processor := worker.NewProcessor(jobRepo, campaignRepo, scorecardRepo, auditRepo,
		fetcher, analyzer, retry, progressUC, controller, cfg.Worker.CycleBudgetMultiple, logger)
	driver := worker.NewDriver(processor, cfg.Worker.MinDelay, cfg.Worker.MaxDelay, cfg.Worker.BackoffFactor, logger)

	scheduler, err := sched.NewScheduler(cfg.Cron.WorkerSpec, cfg.Cron.ReconcileSpec,
		processor, cfg.Worker.MaxCyclesPerTrigger, campaignRepo, progressUC, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler init failed")
	}
	scheduler.Start()
	defer scheduler.Stop()

	driver.Run(ctx)
	logger.Info().Msg("worker stopped")
}

func buildAnalyzer(ctx context.Context, cfg *config.Config) (adapter.CallAnalyzer, error) {
	switch cfg.Analysis.Provider {
	case "openai":
		return analysis.NewOpenAIAnalyzer(cfg.Analysis.OpenAIKey, cfg.Analysis.Model)
	case "gemini":
		return analysis.NewGeminiAnalyzer(ctx, cfg.Analysis.GeminiKey, cfg.Analysis.GeminiURL, cfg.Analysis.Model, cfg.Analysis.MaxOutputTokens)
	case "noop":
		return analysis.NewNoopAnalyzer(), nil
	default:
		return nil, fmt.Errorf("unknown analysis provider %q", cfg.Analysis.Provider)
	}
}
