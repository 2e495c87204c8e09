//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"call-audit-platform/internal/domain"
	"call-audit-platform/internal/domain/model"
)

// seedQueuedCampaign inserts a pending campaign with jobCount queued jobs.
func seedQueuedCampaign(t *testing.T, jobCount int) *model.Campaign {
	t.Helper()
	ctx := context.Background()

	c := &model.Campaign{
		ID:        uuid.NewString(),
		Name:      "store test",
		Timezone:  "UTC",
		CreatedBy: "user-1",
		TotalJobs: jobCount,
		Status:    model.CampaignStatusPending,
		CreatedAt: time.Now(),
	}
	if err := NewCampaignRepo(testPool).Save(ctx, nil, c); err != nil {
		t.Fatalf("failed to save campaign: %v", err)
	}

	jobs := make([]*model.CampaignJob, 0, jobCount)
	for i := 0; i < jobCount; i++ {
		jobs = append(jobs, &model.CampaignJob{
			ID:         uuid.NewString(),
			CampaignID: c.ID,
			RowIndex:   i,
			Payload:    map[string]any{"recording_url": fmt.Sprintf("https://x/%d.mp3", i)},
			Status:     model.JobStatusQueued,
			CreatedAt:  time.Now(),
		})
	}
	repo := NewCampaignJobRepo(testPool, NewTxManager(testPool))
	if err := repo.BulkInsert(ctx, nil, jobs); err != nil {
		t.Fatalf("failed to insert jobs: %v", err)
	}
	return c
}

func TestCampaignJobRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	repo := NewCampaignJobRepo(testPool, NewTxManager(testPool))

	t.Run("concurrent claims hand out each job exactly once", func(t *testing.T) {
		cleanup(t)
		const workers = 8
		const jobCount = 5
		seedQueuedCampaign(t, jobCount)

		var mu sync.Mutex
		claimed := make(map[string]int)
		misses := 0

		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				job, err := repo.ClaimNextQueued(ctx)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					claimed[job.ID]++
				case errors.Is(err, domain.ErrNotFound):
					misses++
				default:
					t.Errorf("ClaimNextQueued() error = %v", err)
				}
			}()
		}
		wg.Wait()

		// 8 callers racing over 5 jobs: 5 claims, 3 empty-handed, no doubles.
		if len(claimed) != jobCount {
			t.Fatalf("claimed %d distinct jobs, want %d", len(claimed), jobCount)
		}
		for id, n := range claimed {
			if n != 1 {
				t.Errorf("job %s claimed %d times, want exactly once", id, n)
			}
		}
		if misses != workers-jobCount {
			t.Errorf("empty claims = %d, want %d", misses, workers-jobCount)
		}

		var queued int
		if err := testPool.QueryRow(ctx, "SELECT COUNT(*) FROM campaign_jobs WHERE status='queued'").Scan(&queued); err != nil {
			t.Fatalf("failed to count queued jobs: %v", err)
		}
		if queued != 0 {
			t.Errorf("queued jobs left = %d, want 0", queued)
		}
	})

	t.Run("first claim moves the campaign out of pending", func(t *testing.T) {
		cleanup(t)
		c := seedQueuedCampaign(t, 2)

		if _, err := repo.ClaimNextQueued(ctx); err != nil {
			t.Fatalf("ClaimNextQueued() error = %v", err)
		}

		var status string
		var startedAt *time.Time
		err := testPool.QueryRow(ctx, "SELECT status, started_at FROM campaigns WHERE id=$1", c.ID).Scan(&status, &startedAt)
		if err != nil {
			t.Fatalf("failed to query campaign: %v", err)
		}
		if status != string(model.CampaignStatusRunning) {
			t.Errorf("campaign status = %q, want running after the first claim", status)
		}
		if startedAt == nil {
			t.Fatal("campaign started_at not stamped on the first claim")
		}
		first := *startedAt

		if _, err := repo.ClaimNextQueued(ctx); err != nil {
			t.Fatalf("second ClaimNextQueued() error = %v", err)
		}
		err = testPool.QueryRow(ctx, "SELECT started_at FROM campaigns WHERE id=$1", c.ID).Scan(&startedAt)
		if err != nil {
			t.Fatalf("failed to re-query campaign: %v", err)
		}
		if startedAt == nil || !startedAt.Equal(first) {
			t.Errorf("started_at moved on a later claim: %v vs %v", startedAt, first)
		}
	})

	t.Run("terminal writes are refused once a job is canceled", func(t *testing.T) {
		cleanup(t)
		c := seedQueuedCampaign(t, 1)

		job, err := repo.ClaimNextQueued(ctx)
		if err != nil {
			t.Fatalf("ClaimNextQueued() error = %v", err)
		}

		if _, err := repo.CancelPending(ctx, nil, c.ID); err != nil {
			t.Fatalf("CancelPending() error = %v", err)
		}

		// A worker that is still processing the job finishes late; its write
		// must not resurrect the canceled row.
		if err := repo.MarkSucceeded(ctx, nil, job.ID, "audit-1", time.Second); err != nil {
			t.Fatalf("MarkSucceeded() error = %v", err)
		}
		got, err := repo.FindByID(ctx, nil, job.ID)
		if err != nil {
			t.Fatalf("FindByID() error = %v", err)
		}
		if got.Status != model.JobStatusCanceled {
			t.Errorf("job status = %s, want canceled to stick", got.Status)
		}
		if got.CallAuditID != "" {
			t.Errorf("call_audit_id = %q, want empty on a canceled job", got.CallAuditID)
		}
	})
}
