package model

import "time"

// ScorecardItem is one scoring criterion. Fatal items can force the overall
// score to zero on the analyzer side; the engine passes the flag through
// untouched.
type ScorecardItem struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Fatal  bool    `json:"fatal"`
}

// Scorecard is a scoring-criteria template. Campaigns may link one; jobs of
// unlinked campaigns fall back to the system default.
type Scorecard struct {
	ID        string
	Name      string
	Items     []ScorecardItem
	IsDefault bool
	CreatedAt time.Time
}
