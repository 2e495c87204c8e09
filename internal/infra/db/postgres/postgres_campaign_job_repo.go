package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"call-audit-platform/internal/domain"
	"call-audit-platform/internal/domain/model"
	"call-audit-platform/internal/domain/ports/repository"
)

var _ repository.CampaignJobRepository = (*campaignJobRepo)(nil)

type campaignJobRepo struct {
	pool *pgxpool.Pool
	tm   repository.TransactionManager
}

func NewCampaignJobRepo(pool *pgxpool.Pool, tm repository.TransactionManager) *campaignJobRepo {
	return &campaignJobRepo{pool: pool, tm: tm}
}

const jobColumns = `
id, campaign_id, row_index, payload, status, error, call_audit_id,
retries, duration_ms, created_at, started_at, finished_at`

func (r *campaignJobRepo) BulkInsert(ctx context.Context, tx repository.Tx, jobs []*model.CampaignJob) error {
	const q = `
INSERT INTO campaign_jobs (id, campaign_id, row_index, payload, status, created_at)
VALUES ($1,$2,$3,$4,$5,$6);`

	for _, j := range jobs {
		payload, err := json.Marshal(j.Payload)
		if err != nil {
			return err
		}
		if _, err := execSQL(ctx, r.pool, tx, q,
			j.ID, j.CampaignID, j.RowIndex, payload, j.Status, j.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}

func (r *campaignJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.CampaignJob, error) {
	q := `SELECT ` + jobColumns + ` FROM campaign_jobs WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanJob(row)
}

func (r *campaignJobRepo) ListByCampaign(ctx context.Context, tx repository.Tx, campaignID string) ([]*model.CampaignJob, error) {
	q := `SELECT ` + jobColumns + ` FROM campaign_jobs WHERE campaign_id=$1 ORDER BY row_index;`
	rows, err := pickRows(ctx, r.pool, tx, q, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.CampaignJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// ClaimNextQueued atomically picks the oldest queued job and flips it to
// 'processing'. FOR UPDATE SKIP LOCKED keeps concurrent workers from ever
// receiving the same row; each caller gets its own or none.
func (r *campaignJobRepo) ClaimNextQueued(ctx context.Context) (*model.CampaignJob, error) {
	var job *model.CampaignJob

	err := r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		fetchQuery := `
SELECT ` + jobColumns + `
FROM campaign_jobs
WHERE status = 'queued'
ORDER BY created_at, row_index
LIMIT 1
FOR UPDATE SKIP LOCKED;`

		row, err := pickRow(ctx, r.pool, tx, fetchQuery)
		if err != nil {
			return err
		}
		claimed, err := scanJob(row)
		if err != nil {
			return err
		}

		now := time.Now()
		claimed.Status = model.JobStatusProcessing
		claimed.StartedAt = &now

		const markQuery = `
UPDATE campaign_jobs SET status='processing', started_at=$2 WHERE id=$1;`
		if _, err := execSQL(ctx, r.pool, tx, markQuery, claimed.ID, now); err != nil {
			return err
		}

		// First claim moves the owning campaign out of 'pending'.
		const startCampaign = `
UPDATE campaigns SET status='running', started_at=COALESCE(started_at,$2)
WHERE id=$1 AND status='pending';`
		if _, err := execSQL(ctx, r.pool, tx, startCampaign, claimed.CampaignID, now); err != nil {
			return err
		}

		job = claimed
		return nil
	})

	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNotFound
	}
	return job, err
}

func (r *campaignJobRepo) MarkSucceeded(ctx context.Context, tx repository.Tx, jobID, callAuditID string, elapsed time.Duration) error {
	const q = `
UPDATE campaign_jobs
   SET status='succeeded', call_audit_id=$2, duration_ms=$3, finished_at=$4
 WHERE id=$1 AND status='processing';`

	_, err := execSQL(ctx, r.pool, tx, q, jobID, callAuditID, elapsed.Milliseconds(), time.Now())
	return err
}

func (r *campaignJobRepo) MarkFailed(ctx context.Context, tx repository.Tx, jobID, message string, elapsed time.Duration) error {
	const q = `
UPDATE campaign_jobs
   SET status='failed', error=$2, retries=retries+1, duration_ms=$3, finished_at=$4
 WHERE id=$1 AND status='processing';`

	_, err := execSQL(ctx, r.pool, tx, q, jobID, message, elapsed.Milliseconds(), time.Now())
	return err
}

func (r *campaignJobRepo) CancelPending(ctx context.Context, tx repository.Tx, campaignID string) (int, error) {
	const q = `
UPDATE campaign_jobs
   SET status='canceled', finished_at=$2
 WHERE campaign_id=$1 AND status IN ('queued','processing');`

	tag, err := execSQL(ctx, r.pool, tx, q, campaignID, time.Now())
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *campaignJobRepo) CountByStatus(ctx context.Context, tx repository.Tx, campaignID string) (repository.JobCounts, error) {
	const q = `
SELECT status, COUNT(*) FROM campaign_jobs WHERE campaign_id=$1 GROUP BY status;`

	var counts repository.JobCounts
	rows, err := pickRows(ctx, r.pool, tx, q, campaignID)
	if err != nil {
		return counts, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return counts, err
		}
		counts.Total += n
		switch model.JobStatus(status) {
		case model.JobStatusQueued:
			counts.Queued = n
		case model.JobStatusProcessing:
			counts.Processing = n
		case model.JobStatusSucceeded:
			counts.Succeeded = n
		case model.JobStatusFailed:
			counts.Failed = n
		case model.JobStatusCanceled:
			counts.Canceled = n
		}
	}
	return counts, rows.Err()
}

func (r *campaignJobRepo) AverageDurationMs(ctx context.Context, tx repository.Tx, campaignID string) (*float64, error) {
	const q = `
SELECT AVG(duration_ms)::float8 FROM campaign_jobs
 WHERE campaign_id=$1 AND duration_ms IS NOT NULL;`

	row, err := pickRow(ctx, r.pool, tx, q, campaignID)
	if err != nil {
		return nil, err
	}
	var avg *float64
	if err := row.Scan(&avg); err != nil {
		return nil, err
	}
	return avg, nil
}

func scanJob(row pgx.Row) (*model.CampaignJob, error) {
	var (
		j           model.CampaignJob
		payload     []byte
		status      string
		callAuditID *string
	)
	err := row.Scan(
		&j.ID, &j.CampaignID, &j.RowIndex, &payload, &status, &j.Error,
		&callAuditID, &j.Retries, &j.DurationMs, &j.CreatedAt, &j.StartedAt,
		&j.FinishedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &j.Payload); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	if callAuditID != nil {
		j.CallAuditID = *callAuditID
	}
	j.Status = model.JobStatus(status)
	return &j, nil
}
