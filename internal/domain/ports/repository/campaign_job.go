package repository

import (
	"context"
	"time"

	"call-audit-platform/internal/domain/model"
)

// JobCounts aggregates job statuses for one campaign.
type JobCounts struct {
	Total      int
	Queued     int
	Processing int
	Succeeded  int
	Failed     int
	Canceled   int
}

type CampaignJobRepository interface {
	BulkInsert(ctx context.Context, tx Tx, jobs []*model.CampaignJob) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.CampaignJob, error)
	ListByCampaign(ctx context.Context, tx Tx, campaignID string) ([]*model.CampaignJob, error)

	// ClaimNextQueued atomically flips the oldest queued job to 'processing',
	// stamps started_at, and returns it. The first claim for a pending
	// campaign also flips the campaign to 'running'. Safe under any number of
	// concurrent callers; returns domain.ErrNotFound when the queue is empty.
	ClaimNextQueued(ctx context.Context) (*model.CampaignJob, error)

	// MarkSucceeded and MarkFailed are the only paths into the two terminal
	// result states. Both stamp duration and finished_at; MarkFailed also
	// increments the retries counter.
	MarkSucceeded(ctx context.Context, tx Tx, jobID, callAuditID string, elapsed time.Duration) error
	MarkFailed(ctx context.Context, tx Tx, jobID, message string, elapsed time.Duration) error

	// CancelPending flips every queued or processing job of the campaign to
	// 'canceled' and returns how many were flipped.
	CancelPending(ctx context.Context, tx Tx, campaignID string) (int, error)

	CountByStatus(ctx context.Context, tx Tx, campaignID string) (JobCounts, error)
	// AverageDurationMs averages duration over jobs that recorded one;
	// nil when no job has a duration yet.
	AverageDurationMs(ctx context.Context, tx Tx, campaignID string) (*float64, error)
}
