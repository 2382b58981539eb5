package models

import "time"

// BatchFailure records one business the batch scheduler could not process.
type BatchFailure struct {
	BusinessID string `json:"businessId"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// BatchSummary tallies one batch scheduler run.
type BatchSummary struct {
	RunID      string         `json:"runId"`
	Period     string         `json:"period"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
	Total      int            `json:"total"`
	Succeeded  int            `json:"succeeded"`
	Failed     int            `json:"failed"`
	Failures   []BatchFailure `json:"failures,omitempty"`
}
