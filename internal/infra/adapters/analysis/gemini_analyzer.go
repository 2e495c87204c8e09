package analysis

import (
	"context"
	"errors"
	"net/http"
	"time"

	"google.golang.org/genai"

	"call-audit-platform/internal/domain"
	"call-audit-platform/internal/domain/ports/adapter"
	"call-audit-platform/internal/infra/metrics"
)

var _ adapter.CallAnalyzer = (*GeminiAnalyzer)(nil)

// GeminiAnalyzer sends the audio inline and has the model transcribe and
// score in a single multimodal call.
type GeminiAnalyzer struct {
	client *genai.Client
	model  string
	maxOut int
}

func NewGeminiAnalyzer(ctx context.Context, apiKey, baseURL, model string, maxOut int) (*GeminiAnalyzer, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAnalyzer{client: c, model: model, maxOut: maxOut}, nil
}

func (g *GeminiAnalyzer) Analyze(ctx context.Context, req adapter.AnalysisRequest) (*adapter.AnalysisResult, error) {
	start := time.Now()

	contentType := req.ContentType
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	prompt := buildScoringPrompt(req.Criteria, "") // model transcribes the audio itself
	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: contentType, Data: req.Recording}},
			{Text: prompt},
		},
	}}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		MaxOutputTokens: int32(g.maxOut),
	})
	latency := time.Since(start).Milliseconds()
	if err != nil {
		metrics.ObserveAnalysis("gemini", latency, false)
		return nil, translateGeminiError(err)
	}

	reply, scores, err := parseReply(resp.Text(), req.Criteria)
	if err != nil {
		metrics.ObserveAnalysis("gemini", latency, false)
		return nil, err
	}

	var promptTokens, completionTokens int
	if resp.UsageMetadata != nil {
		promptTokens = int(resp.UsageMetadata.PromptTokenCount)
		completionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	metrics.ObserveAnalysis("gemini", latency, true)
	metrics.AddAnalysisTokens("gemini", promptTokens, completionTokens)

	return &adapter.AnalysisResult{
		OverallScore: reply.OverallScore,
		Criteria:     scores,
		Transcript:   reply.Transcript,
		Usage:        adapterUsage(promptTokens, completionTokens, latency),
	}, nil
}

func translateGeminiError(err error) error {
	var aerr genai.APIError
	if errors.As(err, &aerr) && aerr.Code == http.StatusTooManyRequests {
		return &domain.RateLimitedError{Err: err}
	}
	return err
}
