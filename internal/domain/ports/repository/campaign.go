package repository

import (
	"context"

	"call-audit-platform/internal/domain/model"
)

type CampaignRepository interface {
	// Save inserts a campaign. TotalJobs is written once here and never
	// touched by UpdateProgress.
	Save(ctx context.Context, tx Tx, c *model.Campaign) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Campaign, error)
	// ListByCreator returns campaigns owned by createdBy, newest first.
	ListByCreator(ctx context.Context, tx Tx, createdBy string, offset, limit int) ([]*model.Campaign, error)
	// ListUnfinishedIDs returns ids of campaigns not yet in a terminal status.
	ListUnfinishedIDs(ctx context.Context, tx Tx) ([]string, error)
	// UpdateProgress persists the derived fields: counters, eta, status and
	// the started/finished stamps.
	UpdateProgress(ctx context.Context, tx Tx, c *model.Campaign) error
	// Delete removes the campaign; jobs and audits cascade at the store level.
	Delete(ctx context.Context, tx Tx, id string) error
}
