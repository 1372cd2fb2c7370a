package dto

import "time"

// JobSummary is the operator-facing result of a sweep run.
type JobSummary struct {
	Job       string        `json:"job"`
	Processed int           `json:"processed"`
	Days      int           `json:"days,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Message   string        `json:"message"`
}

type TriggerJobRequest struct {
	Days int `json:"days" query:"days" validate:"gte=0,lte=365"`
}
