package model

import "time"

// CriterionScore is the analyzer's verdict for a single scorecard item.
type CriterionScore struct {
	Name    string  `json:"name"`
	Score   float64 `json:"score"`
	Weight  float64 `json:"weight"`
	Fatal   bool    `json:"fatal"`
	Comment string  `json:"comment,omitempty"`
}

// Usage carries token and timing metadata reported by the analyzer.
type Usage struct {
	PromptTokens     int   `json:"prompt_tokens"`
	CompletionTokens int   `json:"completion_tokens"`
	TotalTokens      int   `json:"total_tokens"`
	LatencyMs        int64 `json:"latency_ms"`
}

// CallAudit is the persisted result record produced by a successful job.
type CallAudit struct {
	ID            string
	CampaignID    string
	JobID         string
	AgentName     string
	CustomerPhone string
	OverallScore  float64
	Criteria      []CriterionScore
	Transcript    string
	Usage         Usage
	CreatedAt     time.Time
}
