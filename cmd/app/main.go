// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"call-audit-platform/internal/config"
	"call-audit-platform/internal/domain/ports/adapter"
	"call-audit-platform/internal/infra/adapters/analysis"
	"call-audit-platform/internal/infra/adapters/recording"
	"call-audit-platform/internal/infra/api"
	pg "call-audit-platform/internal/infra/db/postgres"
	"call-audit-platform/internal/infra/logging"
	"call-audit-platform/internal/infra/metrics"
	"call-audit-platform/internal/infra/ratelimit"
	red "call-audit-platform/internal/infra/redis"
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

	// ---- Postgres ----
	if err := pg.RunMigrations(cfg.Database.URL); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()
	requestLimiter := red.NewRequestLimiter(redisClient)

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	campaignRepo := pg.NewCampaignRepo(pool)
	jobRepo := pg.NewCampaignJobRepo(pool, tm)
	auditRepo := pg.NewCallAuditRepo(pool)
	scorecardRepo := pg.NewScorecardRepo(pool)

	// ---- Use cases ----
	progressUC := usecase.NewProgressUseCase(campaignRepo, jobRepo, logger)
	campaignUC := usecase.NewCampaignUseCase(campaignRepo, jobRepo, tm, progressUC, logger)
	reportUC := usecase.NewReportUseCase(campaignRepo, jobRepo, auditRepo, progressUC, logger)

	// ---- Outbound adapters ----
	analyzer, err := buildAnalyzer(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("analysis adapter init failed")
	}
	analysisLimiter := ratelimit.NewSlidingWindow("analysis", cfg.RateLimit.Analysis.MaxRequests, cfg.RateLimit.Analysis.Window)
	analyzer = analysis.NewThrottledAnalyzer(analyzer, analysisLimiter)

	fetchLimiter := ratelimit.NewSlidingWindow("fetch", cfg.RateLimit.Fetch.MaxRequests, cfg.RateLimit.Fetch.Window)
	fetcher := recording.NewThrottledFetcher(recording.NewHTTPFetcher(cfg.Analysis.FetchTimeout), fetchLimiter)

	// ---- Worker ----
	retry := worker.NewRetryPolicy(cfg.Analysis.MaxRetries, cfg.Analysis.RetryBaseDelay)
	controller := worker.NewConcurrencyController(cfg.Worker.Ceiling, worker.NewSystemProbe(), logger)
	processor := worker.NewProcessor(jobRepo, campaignRepo, scorecardRepo, auditRepo,
		fetcher, analyzer, retry, progressUC, controller, cfg.Worker.CycleBudgetMultiple, logger)
	driver := worker.NewDriver(processor, cfg.Worker.MinDelay, cfg.Worker.MaxDelay, cfg.Worker.BackoffFactor, logger)
	go driver.Run(ctx)

	// ---- Scheduler ----
	scheduler, err := sched.NewScheduler(cfg.Cron.WorkerSpec, cfg.Cron.ReconcileSpec,
		processor, cfg.Worker.MaxCyclesPerTrigger, campaignRepo, progressUC, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler init failed")
	}
	scheduler.Start()
	defer scheduler.Stop()

	// ---- HTTP ----
	server := api.NewServer(campaignUC, reportUC, processor, cfg.Worker.MaxCyclesPerTrigger, logger)
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           server.Router(cfg.API.JWTSecret, requestLimiter, cfg.API.RequestsPerMinute),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Int("port", cfg.API.Port).Msg("http server listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
}

// buildAnalyzer picks the analysis provider from config.
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
