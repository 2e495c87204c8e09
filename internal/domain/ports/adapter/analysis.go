package adapter

import (
	"context"

	"call-audit-platform/internal/domain/model"
)

// AnalysisRequest carries one recording plus the scoring context for a single
// external analysis call.
type AnalysisRequest struct {
	Recording   []byte
	ContentType string
	Criteria    []model.ScorecardItem
	CampaignID  string
	JobID       string
	AgentName   string
}

// AnalysisResult is the structured outcome of one analysis call.
type AnalysisResult struct {
	OverallScore float64
	Criteria     []model.CriterionScore
	Transcript   string
	Usage        model.Usage
}

// CallAnalyzer scores one call recording against a set of criteria.
// Implementations translate provider throttling into *domain.RateLimitedError
// so callers can distinguish transient from permanent failures.
type CallAnalyzer interface {
	Analyze(ctx context.Context, req AnalysisRequest) (*AnalysisResult, error)
}
