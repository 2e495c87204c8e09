package repository

import (
	"context"

	"call-audit-platform/internal/domain/model"
)

type ScorecardRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Scorecard, error)
	// FindDefault returns the system default template used by campaigns that
	// do not link a scorecard.
	FindDefault(ctx context.Context, tx Tx) (*model.Scorecard, error)
}
