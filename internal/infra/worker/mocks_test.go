package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"call-audit-platform/internal/domain"
	"call-audit-platform/internal/domain/model"
	"call-audit-platform/internal/domain/ports/adapter"
	"call-audit-platform/internal/domain/ports/repository"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func rateLimited() error {
	return &domain.RateLimitedError{Err: errors.New("429 too many requests")}
}

type fakeProbe struct {
	freeRatio float64
	freeErr   error
	load1     float64
	loadErr   error
	cpus      int
}

func (f *fakeProbe) FreeMemoryRatio() (float64, error) { return f.freeRatio, f.freeErr }
func (f *fakeProbe) LoadAverage() (float64, error)     { return f.load1, f.loadErr }
func (f *fakeProbe) NumCPU() int                       { return f.cpus }

// memJobs is a thread-safe in-memory CampaignJobRepository. Claims hand out
// each queued job exactly once, mirroring the FOR UPDATE SKIP LOCKED store.
type memJobs struct {
	mu        sync.Mutex
	queue     []*model.CampaignJob
	succeeded map[string]string // job id -> audit id
	failed    map[string]string // job id -> error message
	claims    int
}

func newMemJobs(jobs ...*model.CampaignJob) *memJobs {
	return &memJobs{
		queue:     jobs,
		succeeded: map[string]string{},
		failed:    map[string]string{},
	}
}

func (m *memJobs) ClaimNextQueued(ctx context.Context) (*model.CampaignJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims++
	if len(m.queue) == 0 {
		return nil, domain.ErrNotFound
	}
	job := m.queue[0]
	m.queue = m.queue[1:]
	job.Status = model.JobStatusProcessing
	return job, nil
}

func (m *memJobs) MarkSucceeded(ctx context.Context, tx repository.Tx, jobID, auditID string, elapsed time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.succeeded[jobID] = auditID
	return nil
}

func (m *memJobs) MarkFailed(ctx context.Context, tx repository.Tx, jobID, message string, elapsed time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed[jobID] = message
	return nil
}

func (m *memJobs) BulkInsert(ctx context.Context, tx repository.Tx, jobs []*model.CampaignJob) error {
	return nil
}
func (m *memJobs) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.CampaignJob, error) {
	return nil, domain.ErrNotFound
}
func (m *memJobs) ListByCampaign(ctx context.Context, tx repository.Tx, campaignID string) ([]*model.CampaignJob, error) {
	return nil, nil
}
func (m *memJobs) CancelPending(ctx context.Context, tx repository.Tx, campaignID string) (int, error) {
	return 0, nil
}
func (m *memJobs) CountByStatus(ctx context.Context, tx repository.Tx, campaignID string) (repository.JobCounts, error) {
	return repository.JobCounts{}, nil
}
func (m *memJobs) AverageDurationMs(ctx context.Context, tx repository.Tx, campaignID string) (*float64, error) {
	return nil, nil
}

type mockCampaignRepo struct {
	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.Campaign, error)
}

func (m *mockCampaignRepo) Save(ctx context.Context, tx repository.Tx, c *model.Campaign) error {
	return nil
}
func (m *mockCampaignRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Campaign, error) {
	return m.FindByIDFunc(ctx, tx, id)
}
func (m *mockCampaignRepo) ListByCreator(ctx context.Context, tx repository.Tx, createdBy string, offset, limit int) ([]*model.Campaign, error) {
	return nil, nil
}
func (m *mockCampaignRepo) ListUnfinishedIDs(ctx context.Context, tx repository.Tx) ([]string, error) {
	return nil, nil
}
func (m *mockCampaignRepo) UpdateProgress(ctx context.Context, tx repository.Tx, c *model.Campaign) error {
	return nil
}
func (m *mockCampaignRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	return nil
}

type mockScorecardRepo struct {
	FindByIDFunc    func(ctx context.Context, tx repository.Tx, id string) (*model.Scorecard, error)
	FindDefaultFunc func(ctx context.Context, tx repository.Tx) (*model.Scorecard, error)
}

func (m *mockScorecardRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Scorecard, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	return nil, domain.ErrNotFound
}
func (m *mockScorecardRepo) FindDefault(ctx context.Context, tx repository.Tx) (*model.Scorecard, error) {
	if m.FindDefaultFunc != nil {
		return m.FindDefaultFunc(ctx, tx)
	}
	return &model.Scorecard{ID: "default", Name: "Default", Items: []model.ScorecardItem{{Name: "Greeting", Weight: 1}}}, nil
}

type memAudits struct {
	mu     sync.Mutex
	audits []*model.CallAudit
}

func (m *memAudits) Save(ctx context.Context, tx repository.Tx, audit *model.CallAudit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits = append(m.audits, audit)
	return nil
}
func (m *memAudits) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.CallAudit, error) {
	return nil, domain.ErrNotFound
}
func (m *memAudits) ListByCampaign(ctx context.Context, tx repository.Tx, campaignID string) ([]*model.CallAudit, error) {
	return nil, nil
}

type mockFetcher struct {
	FetchFunc func(ctx context.Context, url string) (*adapter.Recording, error)
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) (*adapter.Recording, error) {
	return m.FetchFunc(ctx, url)
}

type mockAnalyzer struct {
	mu          sync.Mutex
	calls       int
	AnalyzeFunc func(ctx context.Context, req adapter.AnalysisRequest) (*adapter.AnalysisResult, error)
}

func (m *mockAnalyzer) Analyze(ctx context.Context, req adapter.AnalysisRequest) (*adapter.AnalysisResult, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.AnalyzeFunc(ctx, req)
}

type mockProgress struct {
	mu    sync.Mutex
	calls []string
}

func (m *mockProgress) Recompute(ctx context.Context, campaignID string) (*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, campaignID)
	return &model.Campaign{ID: campaignID}, nil
}

func unlimitedController() *ConcurrencyController {
	return NewConcurrencyController(4, &fakeProbe{freeRatio: 0.8, load1: 0.5, cpus: 8}, testLogger())
}
