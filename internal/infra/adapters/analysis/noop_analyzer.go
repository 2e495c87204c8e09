package analysis

import (
	"context"
	"time"

	"call-audit-platform/internal/domain/model"
	"call-audit-platform/internal/domain/ports/adapter"
)

var _ adapter.CallAnalyzer = (*NoopAnalyzer)(nil)

// NoopAnalyzer implements adapter.CallAnalyzer for local/dev runs. It returns
// deterministic scores instead of calling a real provider.
type NoopAnalyzer struct{}

func NewNoopAnalyzer() *NoopAnalyzer { return &NoopAnalyzer{} }

func (a *NoopAnalyzer) Analyze(ctx context.Context, req adapter.AnalysisRequest) (*adapter.AnalysisResult, error) {
	// Simulate slight processing time and respect ctx
	select {
	case <-time.After(50 * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	scores := make([]model.CriterionScore, 0, len(req.Criteria))
	for _, c := range req.Criteria {
		scores = append(scores, model.CriterionScore{
			Name:    c.Name,
			Score:   80,
			Weight:  c.Weight,
			Fatal:   c.Fatal,
			Comment: "noop analyzer",
		})
	}
	return &adapter.AnalysisResult{
		OverallScore: 80,
		Criteria:     scores,
		Transcript:   "(noop transcript)",
		Usage:        adapterUsage(0, 0, 50),
	}, nil
}
