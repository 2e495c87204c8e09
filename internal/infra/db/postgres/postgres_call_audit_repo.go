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

var _ repository.CallAuditRepository = (*callAuditRepo)(nil)

type callAuditRepo struct {
	pool *pgxpool.Pool
}

func NewCallAuditRepo(pool *pgxpool.Pool) *callAuditRepo {
	return &callAuditRepo{pool: pool}
}

const auditColumns = `
id, campaign_id, job_id, agent_name, customer_phone, overall_score,
criteria, transcript, usage, created_at`

func (r *callAuditRepo) Save(ctx context.Context, tx repository.Tx, audit *model.CallAudit) error {
	criteria, err := json.Marshal(audit.Criteria)
	if err != nil {
		return err
	}
	usage, err := json.Marshal(audit.Usage)
	if err != nil {
		return err
	}

	const q = `
INSERT INTO call_audits (
  id, campaign_id, job_id, agent_name, customer_phone, overall_score,
  criteria, transcript, usage, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);`

	_, err = execSQL(ctx, r.pool, tx, q,
		audit.ID, audit.CampaignID, audit.JobID, audit.AgentName,
		audit.CustomerPhone, audit.OverallScore, criteria, audit.Transcript,
		usage, audit.CreatedAt)
	return err
}

func (r *callAuditRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.CallAudit, error) {
	q := `SELECT ` + auditColumns + ` FROM call_audits WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanAudit(row)
}

func (r *callAuditRepo) ListByCampaign(ctx context.Context, tx repository.Tx, campaignID string) ([]*model.CallAudit, error) {
	q := `SELECT ` + auditColumns + ` FROM call_audits WHERE campaign_id=$1 ORDER BY created_at;`
	rows, err := pickRows(ctx, r.pool, tx, q, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.CallAudit
	for rows.Next() {
		a, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAudit(row pgx.Row) (*model.CallAudit, error) {
	var (
		a        model.CallAudit
		criteria []byte
		usage    []byte
	)
	err := row.Scan(
		&a.ID, &a.CampaignID, &a.JobID, &a.AgentName, &a.CustomerPhone,
		&a.OverallScore, &criteria, &a.Transcript, &usage, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(criteria) > 0 {
		if err := json.Unmarshal(criteria, &a.Criteria); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	if len(usage) > 0 {
		if err := json.Unmarshal(usage, &a.Usage); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return &a, nil
}
