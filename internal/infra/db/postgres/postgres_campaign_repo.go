package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"call-audit-platform/internal/domain"
	"call-audit-platform/internal/domain/model"
	"call-audit-platform/internal/domain/ports/repository"
)

var _ repository.CampaignRepository = (*campaignRepo)(nil)

type campaignRepo struct {
	pool *pgxpool.Pool
}

func NewCampaignRepo(pool *pgxpool.Pool) *campaignRepo {
	return &campaignRepo{pool: pool}
}

const campaignColumns = `
id, name, timezone, created_by, team, scorecard_id, source_document,
total_jobs, completed_jobs, failed_jobs, canceled_jobs, eta_seconds,
status, created_at, started_at, finished_at`

func (r *campaignRepo) Save(ctx context.Context, tx repository.Tx, c *model.Campaign) error {
	const q = `
INSERT INTO campaigns (
  id, name, timezone, created_by, team, scorecard_id, source_document,
  total_jobs, status, created_at
) VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),$7,$8,$9,$10);`

	_, err := execSQL(ctx, r.pool, tx, q,
		c.ID, c.Name, c.Timezone, c.CreatedBy, c.Team, c.ScorecardID,
		c.SourceDocument, c.TotalJobs, c.Status, c.CreatedAt)
	return err
}

func (r *campaignRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Campaign, error) {
	q := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanCampaign(row)
}

func (r *campaignRepo) ListByCreator(ctx context.Context, tx repository.Tx, createdBy string, offset, limit int) ([]*model.Campaign, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT ` + campaignColumns + `
  FROM campaigns WHERE created_by=$1
 ORDER BY created_at DESC OFFSET $2 LIMIT $3;`
	rows, err := pickRows(ctx, r.pool, tx, q, createdBy, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *campaignRepo) ListUnfinishedIDs(ctx context.Context, tx repository.Tx) ([]string, error) {
	const q = `SELECT id FROM campaigns WHERE status IN ('pending','running');`
	rows, err := pickRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateProgress writes the derived fields only; total_jobs stays immutable.
func (r *campaignRepo) UpdateProgress(ctx context.Context, tx repository.Tx, c *model.Campaign) error {
	const q = `
UPDATE campaigns SET
  completed_jobs=$2, failed_jobs=$3, canceled_jobs=$4, eta_seconds=$5,
  status=$6, started_at=$7, finished_at=$8
WHERE id=$1;`

	tag, err := execSQL(ctx, r.pool, tx, q,
		c.ID, c.CompletedJobs, c.FailedJobs, c.CanceledJobs, c.ETASeconds,
		c.Status, c.StartedAt, c.FinishedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *campaignRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM campaigns WHERE id=$1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanCampaign(row pgx.Row) (*model.Campaign, error) {
	var (
		c           model.Campaign
		scorecardID *string
		status      string
	)
	err := row.Scan(
		&c.ID, &c.Name, &c.Timezone, &c.CreatedBy, &c.Team, &scorecardID,
		&c.SourceDocument, &c.TotalJobs, &c.CompletedJobs, &c.FailedJobs,
		&c.CanceledJobs, &c.ETASeconds, &status, &c.CreatedAt, &c.StartedAt,
		&c.FinishedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if scorecardID != nil {
		c.ScorecardID = *scorecardID
	}
	c.Status = model.CampaignStatus(status)
	return &c, nil
}
