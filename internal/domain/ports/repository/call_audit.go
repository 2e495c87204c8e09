package repository

import (
	"context"

	"call-audit-platform/internal/domain/model"
)

type CallAuditRepository interface {
	Save(ctx context.Context, tx Tx, audit *model.CallAudit) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.CallAudit, error)
	ListByCampaign(ctx context.Context, tx Tx, campaignID string) ([]*model.CallAudit, error)
}
