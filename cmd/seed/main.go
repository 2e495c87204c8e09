// Seeds a demo campaign for local testing. Pair with analysis.provider=noop
// to exercise the whole pipeline without external providers.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"call-audit-platform/internal/config"
	pg "call-audit-platform/internal/infra/db/postgres"
	"call-audit-platform/internal/infra/logging"
	"call-audit-platform/internal/usecase"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	rows := flag.Int("rows", 5, "number of demo rows")
	recordingURL := flag.String("url", "https://example.com/demo-call.mp3", "recording url for the demo rows")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := pg.RunMigrations(cfg.Database.URL); err != nil {
		log.Fatalf("migrations: %v", err)
	}
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	tm := pg.NewTxManager(pool)
	campaignRepo := pg.NewCampaignRepo(pool)
	jobRepo := pg.NewCampaignJobRepo(pool, tm)
	progressUC := usecase.NewProgressUseCase(campaignRepo, jobRepo, logger)
	campaignUC := usecase.NewCampaignUseCase(campaignRepo, jobRepo, tm, progressUC, logger)

	in := usecase.CreateCampaignInput{
		Name:           fmt.Sprintf("Demo campaign %s", time.Now().Format("2006-01-02 15:04")),
		CreatedBy:      "seed",
		Team:           "demo",
		SourceDocument: "seed.csv",
	}
	for i := 0; i < *rows; i++ {
		in.Rows = append(in.Rows, map[string]any{
			"recording_url":  *recordingURL,
			"agent_name":     fmt.Sprintf("agent-%d", i+1),
			"customer_phone": fmt.Sprintf("+1555000%04d", i+1),
		})
	}

	c, _, err := campaignUC.Create(ctx, in)
	if err != nil {
		log.Fatalf("create campaign: %v", err)
	}
	fmt.Printf("seeded campaign %s with %d jobs\n", c.ID, c.TotalJobs)
}
