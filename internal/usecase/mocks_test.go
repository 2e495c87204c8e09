package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"call-audit-platform/internal/domain"
	"call-audit-platform/internal/domain/model"
	"call-audit-platform/internal/domain/ports/repository"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// memStore backs the campaign and job repositories with maps so the
// usecases run against realistic read-your-writes semantics.
type memStore struct {
	mu        sync.Mutex
	campaigns map[string]*model.Campaign
	jobs      map[string]*model.CampaignJob
	audits    map[string]*model.CallAudit
}

func newMemStore() *memStore {
	return &memStore{
		campaigns: map[string]*model.Campaign{},
		jobs:      map[string]*model.CampaignJob{},
		audits:    map[string]*model.CallAudit{},
	}
}

// WithTx runs fn directly; the map store has no transactions.
func (s *memStore) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}

// campaign repository

func (s *memStore) Save(ctx context.Context, _ repository.Tx, c *model.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.campaigns[c.ID] = &cp
	return nil
}

func (s *memStore) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *memStore) ListByCreator(ctx context.Context, _ repository.Tx, createdBy string, offset, limit int) ([]*model.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Campaign
	for _, c := range s.campaigns {
		if c.CreatedBy == createdBy {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) ListUnfinishedIDs(ctx context.Context, _ repository.Tx) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, c := range s.campaigns {
		if !c.Terminal() {
			out = append(out, c.ID)
		}
	}
	return out, nil
}

func (s *memStore) UpdateProgress(ctx context.Context, _ repository.Tx, c *model.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.campaigns[c.ID]
	if !ok {
		return domain.ErrNotFound
	}
	cur.CompletedJobs = c.CompletedJobs
	cur.FailedJobs = c.FailedJobs
	cur.CanceledJobs = c.CanceledJobs
	cur.ETASeconds = c.ETASeconds
	cur.Status = c.Status
	cur.StartedAt = c.StartedAt
	cur.FinishedAt = c.FinishedAt
	return nil
}

func (s *memStore) Delete(ctx context.Context, _ repository.Tx, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.campaigns[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.campaigns, id)
	for jid, j := range s.jobs {
		if j.CampaignID == id {
			delete(s.jobs, jid)
		}
	}
	return nil
}

// job repository

type memJobRepo struct{ s *memStore }

func (m *memJobRepo) BulkInsert(ctx context.Context, _ repository.Tx, jobs []*model.CampaignJob) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, j := range jobs {
		cp := *j
		m.s.jobs[j.ID] = &cp
	}
	return nil
}

func (m *memJobRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.CampaignJob, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	j, ok := m.s.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memJobRepo) ListByCampaign(ctx context.Context, _ repository.Tx, campaignID string) ([]*model.CampaignJob, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*model.CampaignJob
	for _, j := range m.s.jobs {
		if j.CampaignID == campaignID {
			cp := *j
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RowIndex < out[j].RowIndex })
	return out, nil
}

func (m *memJobRepo) ClaimNextQueued(ctx context.Context) (*model.CampaignJob, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var pick *model.CampaignJob
	for _, j := range m.s.jobs {
		if j.Status != model.JobStatusQueued {
			continue
		}
		if pick == nil || j.RowIndex < pick.RowIndex {
			pick = j
		}
	}
	if pick == nil {
		return nil, domain.ErrNotFound
	}
	now := time.Now()
	pick.Status = model.JobStatusProcessing
	pick.StartedAt = &now
	cp := *pick
	return &cp, nil
}

func (m *memJobRepo) MarkSucceeded(ctx context.Context, _ repository.Tx, jobID, callAuditID string, elapsed time.Duration) error {
	return m.finish(jobID, model.JobStatusSucceeded, "", callAuditID, elapsed)
}

func (m *memJobRepo) MarkFailed(ctx context.Context, _ repository.Tx, jobID, message string, elapsed time.Duration) error {
	return m.finish(jobID, model.JobStatusFailed, message, "", elapsed)
}

func (m *memJobRepo) finish(jobID string, status model.JobStatus, message, auditID string, elapsed time.Duration) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	j, ok := m.s.jobs[jobID]
	if !ok || j.Status != model.JobStatusProcessing {
		return domain.ErrNotFound
	}
	now := time.Now()
	ms := elapsed.Milliseconds()
	j.Status = status
	j.Error = message
	j.CallAuditID = auditID
	j.DurationMs = &ms
	j.FinishedAt = &now
	return nil
}

func (m *memJobRepo) CancelPending(ctx context.Context, _ repository.Tx, campaignID string) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	n := 0
	for _, j := range m.s.jobs {
		if j.CampaignID != campaignID || j.Terminal() {
			continue
		}
		j.Status = model.JobStatusCanceled
		n++
	}
	return n, nil
}

func (m *memJobRepo) CountByStatus(ctx context.Context, _ repository.Tx, campaignID string) (repository.JobCounts, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var counts repository.JobCounts
	for _, j := range m.s.jobs {
		if j.CampaignID != campaignID {
			continue
		}
		counts.Total++
		switch j.Status {
		case model.JobStatusQueued:
			counts.Queued++
		case model.JobStatusProcessing:
			counts.Processing++
		case model.JobStatusSucceeded:
			counts.Succeeded++
		case model.JobStatusFailed:
			counts.Failed++
		case model.JobStatusCanceled:
			counts.Canceled++
		}
	}
	return counts, nil
}

func (m *memJobRepo) AverageDurationMs(ctx context.Context, _ repository.Tx, campaignID string) (*float64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	sum, n := 0.0, 0
	for _, j := range m.s.jobs {
		if j.CampaignID == campaignID && j.DurationMs != nil {
			sum += float64(*j.DurationMs)
			n++
		}
	}
	if n == 0 {
		return nil, nil
	}
	avg := sum / float64(n)
	return &avg, nil
}

// audit repository

type memAuditRepo struct{ s *memStore }

func (m *memAuditRepo) Save(ctx context.Context, _ repository.Tx, audit *model.CallAudit) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cp := *audit
	m.s.audits[audit.ID] = &cp
	return nil
}

func (m *memAuditRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.CallAudit, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	a, ok := m.s.audits[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAuditRepo) ListByCampaign(ctx context.Context, _ repository.Tx, campaignID string) ([]*model.CallAudit, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*model.CallAudit
	for _, a := range m.s.audits {
		if a.CampaignID == campaignID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

// newFixture wires the usecases against one shared in-memory store.
func newFixture() (*memStore, *memJobRepo, *CampaignUseCase, *ProgressUseCase, *ReportUseCase) {
	store := newMemStore()
	jobs := &memJobRepo{s: store}
	progress := NewProgressUseCase(store, jobs, testLogger())
	campaigns := NewCampaignUseCase(store, jobs, store, progress, testLogger())
	reports := NewReportUseCase(store, jobs, &memAuditRepo{s: store}, progress, testLogger())
	return store, jobs, campaigns, progress, reports
}
