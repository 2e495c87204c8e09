package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"call-audit-platform/internal/domain"
	"call-audit-platform/internal/domain/model"
	"call-audit-platform/internal/domain/ports/repository"
)

var _ repository.ScorecardRepository = (*scorecardRepo)(nil)

type scorecardRepo struct {
	pool *pgxpool.Pool
}

func NewScorecardRepo(pool *pgxpool.Pool) *scorecardRepo {
	return &scorecardRepo{pool: pool}
}

func (r *scorecardRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Scorecard, error) {
	const q = `SELECT id, name, items, is_default, created_at FROM scorecards WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanScorecard(row)
}

func (r *scorecardRepo) FindDefault(ctx context.Context, tx repository.Tx) (*model.Scorecard, error) {
	const q = `SELECT id, name, items, is_default, created_at FROM scorecards WHERE is_default LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q)
	if err != nil {
		return nil, err
	}
	return scanScorecard(row)
}

func scanScorecard(row pgx.Row) (*model.Scorecard, error) {
	var (
		s     model.Scorecard
		items []byte
	)
	if err := row.Scan(&s.ID, &s.Name, &items, &s.IsDefault, &s.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &s.Items); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return &s, nil
}
