package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"call-audit-platform/internal/domain/model"
)

// buildScoringPrompt renders the grading instructions for one call. When
// transcript is empty the provider is expected to transcribe the attached
// audio itself and include the transcript in its reply.
func buildScoringPrompt(criteria []model.ScorecardItem, transcript string) string {
	var b strings.Builder
	b.WriteString("You are a quality-assurance analyst grading a customer service call.\n")
	b.WriteString("Score each criterion from 0 to 100. Criteria:\n")
	for _, c := range criteria {
		fmt.Fprintf(&b, "- %s (weight %.0f", c.Name, c.Weight)
		if c.Fatal {
			b.WriteString(", fatal")
		}
		b.WriteString(")\n")
	}
	b.WriteString("\nRespond with JSON only, no prose, in this shape:\n")
	b.WriteString(`{"overall_score": 0-100, "criteria": [{"name": "...", "score": 0-100, "comment": "..."}]`)
	if transcript == "" {
		b.WriteString(`, "transcript": "..."`)
	}
	b.WriteString("}\n")
	if transcript != "" {
		b.WriteString("\nCall transcript:\n")
		b.WriteString(transcript)
	}
	return b.String()
}

type modelReply struct {
	OverallScore float64 `json:"overall_score"`
	Criteria     []struct {
		Name    string  `json:"name"`
		Score   float64 `json:"score"`
		Comment string  `json:"comment"`
	} `json:"criteria"`
	Transcript string `json:"transcript"`
}

// parseReply decodes the provider's JSON verdict and re-attaches weight and
// fatal flags from the scorecard, matching criteria by name.
func parseReply(text string, criteria []model.ScorecardItem) (*modelReply, []model.CriterionScore, error) {
	text = stripCodeFence(text)

	var reply modelReply
	if err := json.Unmarshal([]byte(text), &reply); err != nil {
		return nil, nil, fmt.Errorf("decode analysis reply: %w", err)
	}
	if len(reply.Criteria) == 0 {
		return nil, nil, errors.New("analysis reply has no criterion scores")
	}

	byName := make(map[string]model.ScorecardItem, len(criteria))
	for _, c := range criteria {
		byName[strings.ToLower(c.Name)] = c
	}

	scores := make([]model.CriterionScore, 0, len(reply.Criteria))
	for _, c := range reply.Criteria {
		item := byName[strings.ToLower(c.Name)]
		scores = append(scores, model.CriterionScore{
			Name:    c.Name,
			Score:   c.Score,
			Weight:  item.Weight,
			Fatal:   item.Fatal,
			Comment: c.Comment,
		})
	}
	return &reply, scores, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func adapterUsage(prompt, completion int, latencyMs int64) model.Usage {
	return model.Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
		LatencyMs:        latencyMs,
	}
}

// audioFileName guesses an upload filename from the content type; some
// providers refuse uploads without a recognizable extension.
func audioFileName(contentType string) string {
	switch {
	case strings.Contains(contentType, "wav"):
		return "recording.wav"
	case strings.Contains(contentType, "ogg"):
		return "recording.ogg"
	case strings.Contains(contentType, "mp4"), strings.Contains(contentType, "m4a"):
		return "recording.m4a"
	default:
		return "recording.mp3"
	}
}
