package model

import "testing"

func TestCampaignTerminal(t *testing.T) {
	cases := []struct {
		status CampaignStatus
		want   bool
	}{
		{CampaignStatusPending, false},
		{CampaignStatusRunning, false},
		{CampaignStatusCompleted, true},
		{CampaignStatusCompletedWithErrors, true},
		{CampaignStatusFailed, true},
		{CampaignStatusCanceled, true},
	}
	for _, tc := range cases {
		c := &Campaign{Status: tc.status}
		if got := c.Terminal(); got != tc.want {
			t.Errorf("Terminal() with status %s = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestCampaignRemainingJobs(t *testing.T) {
	c := &Campaign{TotalJobs: 10, CompletedJobs: 4, FailedJobs: 1, CanceledJobs: 2}
	if got := c.RemainingJobs(); got != 3 {
		t.Fatalf("RemainingJobs() = %d, want 3", got)
	}
}

func TestCampaignJobRecordingURL(t *testing.T) {
	t.Run("checks known keys in order", func(t *testing.T) {
		j := &CampaignJob{Payload: map[string]any{
			"audio_url":     "https://x/b.mp3",
			"recording_url": "https://x/a.mp3",
		}}
		if got := j.RecordingURL(); got != "https://x/a.mp3" {
			t.Fatalf("RecordingURL() = %q, want recording_url to win", got)
		}
	})

	t.Run("falls back to url", func(t *testing.T) {
		j := &CampaignJob{Payload: map[string]any{"url": "https://x/c.mp3"}}
		if got := j.RecordingURL(); got != "https://x/c.mp3" {
			t.Fatalf("RecordingURL() = %q", got)
		}
	})

	t.Run("empty when the row has none", func(t *testing.T) {
		j := &CampaignJob{Payload: map[string]any{"agent_name": "sam", "recording_url": 42}}
		if got := j.RecordingURL(); got != "" {
			t.Fatalf("RecordingURL() = %q, want empty", got)
		}
	})
}

func TestCampaignJobPayloadString(t *testing.T) {
	j := &CampaignJob{Payload: map[string]any{"agent_name": "sam", "attempts": 3}}
	if got := j.PayloadString("agent_name"); got != "sam" {
		t.Fatalf("PayloadString(agent_name) = %q", got)
	}
	if got := j.PayloadString("attempts"); got != "" {
		t.Fatalf("PayloadString(attempts) = %q, want empty for non-string", got)
	}
	if got := j.PayloadString("missing"); got != "" {
		t.Fatalf("PayloadString(missing) = %q, want empty", got)
	}
}
