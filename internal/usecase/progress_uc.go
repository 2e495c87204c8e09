// File: internal/usecase/progress_uc.go
package usecase

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"call-audit-platform/internal/domain/model"
	"call-audit-platform/internal/domain/ports/repository"
	"call-audit-platform/internal/infra/metrics"
)

// ProgressUseCase derives a campaign's counters, status, eta and the
// started/finished stamps from its job rows. The campaign row is a cached
// snapshot of the jobs table; recomputing is idempotent and safe to run at
// any time.
type ProgressUseCase struct {
	campaigns repository.CampaignRepository
	jobs      repository.CampaignJobRepository
	log       *zerolog.Logger
}

func NewProgressUseCase(campaigns repository.CampaignRepository, jobs repository.CampaignJobRepository, logger *zerolog.Logger) *ProgressUseCase {
	l := logger.With().Str("component", "ProgressUseCase").Logger()
	return &ProgressUseCase{campaigns: campaigns, jobs: jobs, log: &l}
}

// Recompute refreshes and persists the campaign snapshot, returning the
// updated campaign. A canceled campaign keeps its status; only the counters
// are refreshed.
func (uc *ProgressUseCase) Recompute(ctx context.Context, campaignID string) (*model.Campaign, error) {
	c, err := uc.campaigns.FindByID(ctx, nil, campaignID)
	if err != nil {
		return nil, err
	}
	counts, err := uc.jobs.CountByStatus(ctx, nil, campaignID)
	if err != nil {
		return nil, err
	}

	c.CompletedJobs = counts.Succeeded
	c.FailedJobs = counts.Failed
	c.CanceledJobs = counts.Canceled

	remaining := counts.Queued + counts.Processing
	c.ETASeconds = nil
	if remaining > 0 {
		avg, err := uc.jobs.AverageDurationMs(ctx, nil, campaignID)
		if err != nil {
			return nil, err
		}
		if avg != nil {
			eta := int64(math.Round(float64(remaining) * *avg / 1000.0))
			c.ETASeconds = &eta
		}
	}

	wasTerminal := c.Terminal()
	uc.reviseStatus(c, counts, remaining)

	if err := uc.campaigns.UpdateProgress(ctx, nil, c); err != nil {
		return nil, err
	}
	if !wasTerminal && c.Terminal() {
		metrics.IncCampaignFinished(string(c.Status))
		uc.log.Info().Str("campaign_id", c.ID).Str("status", string(c.Status)).
			Int("completed", c.CompletedJobs).Int("failed", c.FailedJobs).
			Msg("campaign finished")
	}
	return c, nil
}

func (uc *ProgressUseCase) reviseStatus(c *model.Campaign, counts repository.JobCounts, remaining int) {
	// cancellation is sticky
	if c.Status == model.CampaignStatusCanceled {
		return
	}

	now := time.Now()
	started := counts.Processing+counts.Succeeded+counts.Failed+counts.Canceled > 0
	if started && c.StartedAt == nil {
		c.StartedAt = &now
	}

	if remaining > 0 || !started {
		// still pending until the first job is picked up
		if started {
			c.Status = model.CampaignStatusRunning
		}
		c.FinishedAt = nil
		return
	}

	// job failures never fail the whole campaign; "failed" is reserved for
	// campaign-level conditions
	if counts.Failed > 0 {
		c.Status = model.CampaignStatusCompletedWithErrors
	} else {
		c.Status = model.CampaignStatusCompleted
	}
	if c.FinishedAt == nil {
		c.FinishedAt = &now
	}
}
