// Package repository persists pieces and practice sessions.
package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/masterofmagic999/mugic/internal/domain/analysis"
	"github.com/masterofmagic999/mugic/internal/domain/feedback"
	"github.com/masterofmagic999/mugic/pkg/metrics"
)

// Piece is a reference score the user practises.
type Piece struct {
	ID        string                      `json:"id"`
	Title     string                      `json:"title"`
	Composer  string                      `json:"composer,omitempty"`
	Sheet     analysis.SheetMusicAnalysis `json:"sheet"`
	CreatedAt time.Time                   `json:"created_at"`
	// SessionCount is filled by ListPieces.
	SessionCount int `json:"session_count"`
}

// Session is one evaluated attempt at a piece.
type Session struct {
	ID         string                 `json:"id"`
	PieceID    string                 `json:"piece_id"`
	Instrument string                 `json:"instrument"`
	Score      int                    `json:"score"`
	Audio      analysis.AudioAnalysis `json:"audio"`
	Feedback   feedback.Feedback      `json:"feedback"`
	CreatedAt  time.Time              `json:"created_at"`
}

// Store provides read/write access to pieces and sessions.
type Store interface {
	// CreatePiece stores p, assigning an ID and creation time when unset.
	CreatePiece(ctx context.Context, p Piece) (Piece, error)
	// GetPiece returns ErrPieceNotFound for unknown ids.
	GetPiece(ctx context.Context, id string) (Piece, error)
	// ListPieces returns pieces newest first with their session counts.
	ListPieces(ctx context.Context) ([]Piece, error)

	// SaveSession stores s and returns its id. The piece must exist.
	SaveSession(ctx context.Context, s Session) (string, error)
	// GetSession returns ErrNotFound for unknown ids.
	GetSession(ctx context.Context, id string) (Session, error)
	// ListSessions returns the sessions of a piece newest first.
	ListSessions(ctx context.Context, pieceID string) ([]Session, error)
	// PreviousSession returns the most recent session of pieceID other than
	// excludingID, or nil when there is none.
	PreviousSession(ctx context.Context, pieceID, excludingID string) (*Session, error)
	// CountSessions returns how many sessions a piece has.
	CountSessions(ctx context.Context, pieceID string) (int, error)

	Close() error
}

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open returns the store for driver.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (Store, error) {
	switch strings.ToLower(driver) {
	case "", DriverMemory:
		return NewMemoryStore(opts...), nil
	case DriverSQLite, DriverPostgres:
		st, err := OpenGorm(ctx, driver, dsn, opts...)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}

func preparePiece(p Piece, now time.Time) (Piece, error) {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return Piece{}, fmt.Errorf("%w: title is required", ErrInvalidPiece)
	}
	if err := p.Sheet.Validate(); err != nil {
		return Piece{}, fmt.Errorf("%w: %w", ErrInvalidPiece, err)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.SessionCount = 0
	return p, nil
}

func prepareSession(s Session, now time.Time) Session {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.Score = s.Feedback.OverallScore
	return s
}

// observe records the latency of a store operation.
func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}
