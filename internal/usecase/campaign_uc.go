// File: internal/usecase/campaign_uc.go
package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"call-audit-platform/internal/domain"
	"call-audit-platform/internal/domain/model"
	"call-audit-platform/internal/domain/ports/repository"
	"call-audit-platform/internal/infra/metrics"
)

// CreateCampaignInput is one batch submission: campaign metadata plus the
// raw rows parsed out of the uploaded document.
type CreateCampaignInput struct {
	Name           string
	Timezone       string
	CreatedBy      string
	Team           string
	ScorecardID    string
	SourceDocument string
	Rows           []map[string]any
}

// CampaignUseCase covers the campaign lifecycle: create, read, cancel,
// delete. All reads refresh the cached progress snapshot first so callers
// never see stale counters.
type CampaignUseCase struct {
	campaigns repository.CampaignRepository
	jobs      repository.CampaignJobRepository
	tm        repository.TransactionManager
	progress  *ProgressUseCase
	log       *zerolog.Logger
}

func NewCampaignUseCase(
	campaigns repository.CampaignRepository,
	jobs repository.CampaignJobRepository,
	tm repository.TransactionManager,
	progress *ProgressUseCase,
	logger *zerolog.Logger,
) *CampaignUseCase {
	l := logger.With().Str("component", "CampaignUseCase").Logger()
	return &CampaignUseCase{campaigns: campaigns, jobs: jobs, tm: tm, progress: progress, log: &l}
}

// Create validates the submission, drops rows without a recording reference,
// and writes the campaign plus its jobs in one transaction. Accepted rows are
// re-indexed from zero so row_index stays dense; the returned slice holds the
// original indexes of the rejected rows.
func (uc *CampaignUseCase) Create(ctx context.Context, in CreateCampaignInput) (*model.Campaign, []int, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, nil, fmt.Errorf("%w: campaign name is required", domain.ErrInvalidArgument)
	}
	if len(in.Rows) == 0 {
		return nil, nil, fmt.Errorf("%w: no rows submitted", domain.ErrInvalidArgument)
	}
	tz := in.Timezone
	if tz == "" {
		tz = "UTC"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, nil, fmt.Errorf("%w: unknown timezone %q", domain.ErrInvalidArgument, in.Timezone)
	}

	now := time.Now()
	campaign := &model.Campaign{
		ID:             ulid.Make().String(),
		Name:           name,
		Timezone:       tz,
		CreatedBy:      in.CreatedBy,
		Team:           in.Team,
		ScorecardID:    in.ScorecardID,
		SourceDocument: in.SourceDocument,
		Status:         model.CampaignStatusPending,
		CreatedAt:      now,
	}

	jobs := make([]*model.CampaignJob, 0, len(in.Rows))
	var rejected []int
	for i, row := range in.Rows {
		job := &model.CampaignJob{
			ID:         ulid.Make().String(),
			CampaignID: campaign.ID,
			RowIndex:   len(jobs),
			Payload:    row,
			Status:     model.JobStatusQueued,
			CreatedAt:  now,
		}
		if job.RecordingURL() == "" {
			rejected = append(rejected, i)
			continue
		}
		jobs = append(jobs, job)
	}
	if len(rejected) > 0 {
		metrics.AddRowsRejected(len(rejected))
	}
	if len(jobs) == 0 {
		return nil, rejected, fmt.Errorf("%w: no row carries a recording reference", domain.ErrInvalidArgument)
	}
	campaign.TotalJobs = len(jobs)

	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := uc.campaigns.Save(ctx, tx, campaign); err != nil {
			return err
		}
		return uc.jobs.BulkInsert(ctx, tx, jobs)
	})
	if err != nil {
		return nil, nil, err
	}

	metrics.IncCampaignCreated()
	uc.log.Info().Str("campaign_id", campaign.ID).Str("created_by", in.CreatedBy).
		Int("jobs", len(jobs)).Int("rejected_rows", len(rejected)).Msg("campaign created")
	return campaign, rejected, nil
}

// Get returns one campaign with a fresh progress snapshot. Callers only see
// their own campaigns.
func (uc *CampaignUseCase) Get(ctx context.Context, callerID, id string) (*model.Campaign, error) {
	c, err := uc.campaigns.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if c.CreatedBy != callerID {
		return nil, domain.ErrNotFound
	}
	return uc.progress.Recompute(ctx, id)
}

// List returns the caller's campaigns, newest first, each with a fresh
// progress snapshot.
func (uc *CampaignUseCase) List(ctx context.Context, callerID string, offset, limit int) ([]*model.Campaign, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	campaigns, err := uc.campaigns.ListByCreator(ctx, nil, callerID, offset, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Campaign, 0, len(campaigns))
	for _, c := range campaigns {
		if c.Terminal() {
			out = append(out, c)
			continue
		}
		fresh, err := uc.progress.Recompute(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, fresh)
	}
	return out, nil
}

// Cancel flips a campaign and all its non-terminal jobs to 'canceled'.
// Jobs already being processed are canceled in the store; an in-flight
// worker still finishes its current call, but the result row stays canceled
// because the terminal-state guards refuse the late update. Cancelling a
// campaign that already reached a terminal state is a no-op.
func (uc *CampaignUseCase) Cancel(ctx context.Context, callerID, id string) (*model.Campaign, error) {
	c, err := uc.campaigns.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if c.CreatedBy != callerID {
		return nil, domain.ErrNotFound
	}
	if c.Terminal() {
		return c, nil
	}

	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		n, err := uc.jobs.CancelPending(ctx, tx, id)
		if err != nil {
			return err
		}
		counts, err := uc.jobs.CountByStatus(ctx, tx, id)
		if err != nil {
			return err
		}
		now := time.Now()
		c.Status = model.CampaignStatusCanceled
		c.CompletedJobs = counts.Succeeded
		c.FailedJobs = counts.Failed
		c.CanceledJobs = counts.Canceled
		c.ETASeconds = nil
		c.FinishedAt = &now
		uc.log.Info().Str("campaign_id", id).Int("jobs_canceled", n).Msg("campaign canceled")
		return uc.campaigns.UpdateProgress(ctx, tx, c)
	})
	if err != nil {
		return nil, err
	}
	metrics.IncCampaignFinished(string(model.CampaignStatusCanceled))
	return c, nil
}

// Delete removes a campaign and, through the store's cascades, its jobs and
// audit records.
func (uc *CampaignUseCase) Delete(ctx context.Context, callerID, id string) error {
	c, err := uc.campaigns.FindByID(ctx, nil, id)
	if err != nil {
		return err
	}
	if c.CreatedBy != callerID {
		return domain.ErrNotFound
	}
	if err := uc.campaigns.Delete(ctx, nil, id); err != nil {
		return err
	}
	uc.log.Info().Str("campaign_id", id).Str("caller_id", callerID).Msg("campaign deleted")
	return nil
}
