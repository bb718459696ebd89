// Package practicesim drives a running evaluation service with simulated
// practice sessions and checks that the results are consistent.
package practicesim

import (
	"time"

	"github.com/masterofmagic999/mugic/internal/adapters/repository"
	"github.com/masterofmagic999/mugic/internal/domain/model"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Pieces     int           // Number of reference pieces to create
	Attempts   int           // Practice attempts per piece
	NotesPer   int           // Notes per generated piece
	Duplicates int           // Every Nth submission is sent twice; 0 disables
	Workers    int           // Number of concurrent submitters
	Timeout    time.Duration // HTTP request timeout
	Poll       time.Duration // Job polling interval
	Seed       uint64        // Seed for the performance generator
	Instrument string        // Instrument sent with every attempt
	OutputFile string        // Optional JSON report path
	Verbose    bool          // Enable verbose logging
}

// Attempt is one simulated performance of a piece.
type Attempt struct {
	PieceID string `json:"piece_id"`
	Index   int    `json:"index"`
	// Key is sent as the Idempotency-Key header.
	Key string `json:"key"`
	// Mistakes is the number of notes the generator altered.
	Mistakes int    `json:"mistakes"`
	JobID    string `json:"job_id,omitempty"`

	request performanceBody
}

// Result is the outcome of a finished attempt.
type Result struct {
	Attempt Attempt             `json:"attempt"`
	Job     model.EvaluationJob `json:"job"`
	Session *repository.Session `json:"session,omitempty"`
}

// Stats holds run statistics.
type Stats struct {
	PiecesCreated   int
	Submitted       int
	Accepted        int
	Duplicates      int
	Rejected        int
	Succeeded       int
	Failed          int
	SessionsChecked int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
