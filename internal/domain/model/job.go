// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/masterofmagic999/mugic/internal/domain/analysis"
)

// JobStatus is the lifecycle state of an asynchronous evaluation.
type JobStatus string

// Job states.
const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Done reports whether s is terminal.
func (s JobStatus) Done() bool { return s == JobSucceeded || s == JobFailed }

// EvaluationJob is a recording submitted for evaluation in the background.
type EvaluationJob struct {
	ID             string                 `json:"id"`
	PieceID        string                 `json:"piece_id"`
	IdempotencyKey string                 `json:"idempotency_key,omitempty"`
	Instrument     string                 `json:"instrument"`
	Audio          analysis.AudioAnalysis `json:"-"`
	Status         JobStatus              `json:"status"`
	SessionID      string                 `json:"session_id,omitempty"`
	Error          string                 `json:"error,omitempty"`
	SubmittedAt    time.Time              `json:"submitted_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}
