package analysis

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/pkoukk/tiktoken-go"

	"call-audit-platform/internal/domain"
	"call-audit-platform/internal/domain/ports/adapter"
	"call-audit-platform/internal/infra/metrics"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.CallAnalyzer = (*OpenAIAnalyzer)(nil)

// OpenAIAnalyzer transcribes the recording with Whisper and scores the
// transcript with a chat model.
type OpenAIAnalyzer struct {
	client openai.Client
	model  string
}

func NewOpenAIAnalyzer(apiKey, model string) (*OpenAIAnalyzer, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIAnalyzer{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

func (o *OpenAIAnalyzer) Analyze(ctx context.Context, req adapter.AnalysisRequest) (*adapter.AnalysisResult, error) {
	start := time.Now()

	transcription, err := o.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: openai.AudioModelWhisper1,
		File:  openai.File(bytes.NewReader(req.Recording), audioFileName(req.ContentType), req.ContentType),
	})
	if err != nil {
		metrics.ObserveAnalysis("openai", time.Since(start).Milliseconds(), false)
		return nil, translateOpenAIError(err)
	}

	prompt := buildScoringPrompt(req.Criteria, transcription.Text)
	completion, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You grade call-center conversations and reply with strict JSON."),
			openai.UserMessage(prompt),
		},
	})
	latency := time.Since(start).Milliseconds()
	if err != nil {
		metrics.ObserveAnalysis("openai", latency, false)
		return nil, translateOpenAIError(err)
	}
	if len(completion.Choices) == 0 {
		metrics.ObserveAnalysis("openai", latency, false)
		return nil, errors.New("openai: empty completion")
	}

	reply, scores, err := parseReply(completion.Choices[0].Message.Content, req.Criteria)
	if err != nil {
		metrics.ObserveAnalysis("openai", latency, false)
		return nil, err
	}

	promptTokens := int(completion.Usage.PromptTokens)
	if promptTokens == 0 {
		promptTokens = estimateTokens(prompt)
	}
	completionTokens := int(completion.Usage.CompletionTokens)
	metrics.ObserveAnalysis("openai", latency, true)
	metrics.AddAnalysisTokens("openai", promptTokens, completionTokens)

	return &adapter.AnalysisResult{
		OverallScore: reply.OverallScore,
		Criteria:     scores,
		Transcript:   transcription.Text,
		Usage:        adapterUsage(promptTokens, completionTokens, latency),
	}, nil
}

// translateOpenAIError maps provider throttling onto the domain signal so
// the retry policy can recognize it; everything else passes through.
func translateOpenAIError(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) && apierr.StatusCode == 429 {
		var retryAfter time.Duration
		if apierr.Response != nil {
			if s := apierr.Response.Header.Get("Retry-After"); s != "" {
				if secs, perr := strconv.Atoi(s); perr == nil {
					retryAfter = time.Duration(secs) * time.Second
				}
			}
		}
		return &domain.RateLimitedError{RetryAfter: retryAfter, Err: err}
	}
	return err
}

// estimateTokens approximates prompt size when the provider omits usage.
func estimateTokens(text string) int {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}
