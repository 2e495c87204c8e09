package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"call-audit-platform/internal/domain"
	"call-audit-platform/internal/domain/model"
	"call-audit-platform/internal/infra/logging"
	"call-audit-platform/internal/infra/redis"
	"call-audit-platform/internal/usecase"
)

// CampaignService is the slice of CampaignUseCase the handlers need.
type CampaignService interface {
	Create(ctx context.Context, in usecase.CreateCampaignInput) (*model.Campaign, []int, error)
	Get(ctx context.Context, callerID, id string) (*model.Campaign, error)
	List(ctx context.Context, callerID string, offset, limit int) ([]*model.Campaign, error)
	Cancel(ctx context.Context, callerID, id string) (*model.Campaign, error)
	Delete(ctx context.Context, callerID, id string) error
}

type ReportService interface {
	Report(ctx context.Context, callerID, campaignID string) (*usecase.CampaignReport, error)
}

// WorkerTrigger runs a bounded number of worker cycles on demand.
type WorkerTrigger interface {
	RunCycles(ctx context.Context, maxCycles int) int
}

type Server struct {
	campaigns CampaignService
	reports   ReportService
	worker    WorkerTrigger

	maxCycles int
	log       *zerolog.Logger
}

func NewServer(campaigns CampaignService, reports ReportService, worker WorkerTrigger, maxCycles int, logger *zerolog.Logger) *Server {
	if maxCycles <= 0 {
		maxCycles = 3
	}
	l := logger.With().Str("component", "api").Logger()
	return &Server{campaigns: campaigns, reports: reports, worker: worker, maxCycles: maxCycles, log: &l}
}

// Router builds the route tree. The /api/v1 subtree is authenticated and
// rate limited; health and metrics stay open for probes and scrapers.
func (s *Server) Router(jwtSecret string, limiter *redis.RequestLimiter, perMinute int) http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), Recover(s.log), RequestLog(s.log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Auth(jwtSecret))
		if limiter != nil {
			r.Use(RateLimit(limiter, perMinute, s.log))
		}

		r.Post("/campaigns", s.handleCreate)
		r.Get("/campaigns", s.handleList)
		r.Get("/campaigns/{id}", s.handleGet)
		r.Get("/campaigns/{id}/reports", s.handleReport)
		r.Post("/campaigns/{id}/cancel", s.handleCancel)
		r.Delete("/campaigns/{id}", s.handleDelete)

		r.Post("/worker/run", s.handleWorkerRun)
	})
	return r
}

type createCampaignRequest struct {
	Name           string           `json:"name"`
	Timezone       string           `json:"timezone"`
	Team           string           `json:"team"`
	ScorecardID    string           `json:"scorecardId"`
	SourceDocument string           `json:"sourceDocument"`
	Rows           []map[string]any `json:"rows"`
}

type campaignResponse struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Timezone       string     `json:"timezone"`
	Team           string     `json:"team,omitempty"`
	ScorecardID    string     `json:"scorecardId,omitempty"`
	SourceDocument string     `json:"sourceDocument,omitempty"`
	Status         string     `json:"status"`
	TotalJobs      int        `json:"totalJobs"`
	CompletedJobs  int        `json:"completedJobs"`
	FailedJobs     int        `json:"failedJobs"`
	CanceledJobs   int        `json:"canceledJobs"`
	ETASeconds     *int64     `json:"etaSeconds"`
	CreatedAt      time.Time  `json:"createdAt"`
	StartedAt      *time.Time `json:"startedAt,omitempty"`
	FinishedAt     *time.Time `json:"finishedAt,omitempty"`
}

func toCampaignResponse(c *model.Campaign) campaignResponse {
	return campaignResponse{
		ID:             c.ID,
		Name:           c.Name,
		Timezone:       c.Timezone,
		Team:           c.Team,
		ScorecardID:    c.ScorecardID,
		SourceDocument: c.SourceDocument,
		Status:         string(c.Status),
		TotalJobs:      c.TotalJobs,
		CompletedJobs:  c.CompletedJobs,
		FailedJobs:     c.FailedJobs,
		CanceledJobs:   c.CanceledJobs,
		ETASeconds:     c.ETASeconds,
		CreatedAt:      c.CreatedAt,
		StartedAt:      c.StartedAt,
		FinishedAt:     c.FinishedAt,
	}
}

type jobResponse struct {
	ID          string         `json:"id"`
	RowIndex    int            `json:"rowIndex"`
	Status      string         `json:"status"`
	Error       string         `json:"error,omitempty"`
	CallAuditID string         `json:"callAuditId,omitempty"`
	Retries     int            `json:"retries"`
	DurationMs  *int64         `json:"durationMs,omitempty"`
	Payload     map[string]any `json:"payload"`
	Audit       *auditResponse `json:"audit,omitempty"`
}

type auditResponse struct {
	ID           string                 `json:"id"`
	AgentName    string                 `json:"agentName,omitempty"`
	OverallScore float64                `json:"overallScore"`
	Criteria     []model.CriterionScore `json:"criteria"`
	Transcript   string                 `json:"transcript,omitempty"`
	Usage        model.Usage            `json:"usage"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	c, rejected, err := s.campaigns.Create(r.Context(), usecase.CreateCampaignInput{
		Name:           req.Name,
		Timezone:       req.Timezone,
		CreatedBy:      logging.CallerID(r.Context()),
		Team:           req.Team,
		ScorecardID:    req.ScorecardID,
		SourceDocument: req.SourceDocument,
		Rows:           req.Rows,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if rejected == nil {
		rejected = []int{}
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"campaign":     toCampaignResponse(c),
		"rejectedRows": rejected,
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	offset, limit := paging(r)
	list, err := s.campaigns.List(r.Context(), logging.CallerID(r.Context()), offset, limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out := make([]campaignResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toCampaignResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"campaigns": out})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	c, err := s.campaigns.Get(r.Context(), logging.CallerID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCampaignResponse(c))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.reports.Report(r.Context(), logging.CallerID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	jobs := make([]jobResponse, 0, len(report.Jobs))
	for _, jr := range report.Jobs {
		j := jobResponse{
			ID:          jr.Job.ID,
			RowIndex:    jr.Job.RowIndex,
			Status:      string(jr.Job.Status),
			Error:       jr.Job.Error,
			CallAuditID: jr.Job.CallAuditID,
			Retries:     jr.Job.Retries,
			DurationMs:  jr.Job.DurationMs,
			Payload:     jr.Job.Payload,
		}
		if jr.Audit != nil {
			j.Audit = &auditResponse{
				ID:           jr.Audit.ID,
				AgentName:    jr.Audit.AgentName,
				OverallScore: jr.Audit.OverallScore,
				Criteria:     jr.Audit.Criteria,
				Transcript:   jr.Audit.Transcript,
				Usage:        jr.Audit.Usage,
			}
		}
		jobs = append(jobs, j)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"campaign": toCampaignResponse(report.Campaign),
		"jobs":     jobs,
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	c, err := s.campaigns.Cancel(r.Context(), logging.CallerID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCampaignResponse(c))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.campaigns.Delete(r.Context(), logging.CallerID(r.Context()), chi.URLParam(r, "id")); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleWorkerRun drains the queue synchronously for up to maxCycles cycles.
// Meant for operators and tests; the background driver does the same thing
// on its own schedule.
func (s *Server) handleWorkerRun(w http.ResponseWriter, r *http.Request) {
	n := s.worker.RunCycles(r.Context(), s.maxCycles)
	writeJSON(w, http.StatusOK, map[string]any{"jobsProcessed": n})
}

func paging(r *http.Request) (offset, limit int) {
	q := r.URL.Query()
	offset = atoiDefault(q.Get("offset"), 0)
	limit = atoiDefault(q.Get("limit"), 20)
	return offset, limit
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logging.With(r.Context(), s.log).Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
