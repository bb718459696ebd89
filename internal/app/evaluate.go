package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/masterofmagic999/mugic/internal/adapters/repository"
	"github.com/masterofmagic999/mugic/internal/domain/analysis"
	"github.com/masterofmagic999/mugic/internal/domain/feedback"
	"github.com/masterofmagic999/mugic/internal/domain/music"
	"github.com/masterofmagic999/mugic/internal/domain/progress"
	"github.com/masterofmagic999/mugic/internal/domain/recommend"
	"github.com/masterofmagic999/mugic/pkg/logger"
	"github.com/masterofmagic999/mugic/pkg/metrics"
)

// Evaluation is a persisted evaluation together with its progress report.
type Evaluation struct {
	SessionID  string                `json:"session_id"`
	PieceID    string                `json:"piece_id"`
	Instrument string                `json:"instrument"`
	Feedback   feedback.Feedback     `json:"feedback"`
	Progress   progress.SessionDelta `json:"progress"`
	CreatedAt  time.Time             `json:"created_at"`
}

// CreatePiece stores a new reference piece.
func (s *Service) CreatePiece(ctx context.Context, p repository.Piece) (repository.Piece, error) {
	created, err := s.store.CreatePiece(ctx, p)
	if err != nil {
		return repository.Piece{}, err
	}
	s.logger.Info(ctx, "piece created",
		logger.String("piece_id", created.ID),
		logger.String("title", created.Title),
		logger.Int("notes", len(created.Sheet.Notes)),
	)
	return created, nil
}

// GetPiece returns a piece by id.
func (s *Service) GetPiece(ctx context.Context, id string) (repository.Piece, error) {
	return s.store.GetPiece(ctx, id)
}

// ListPieces returns all pieces newest first.
func (s *Service) ListPieces(ctx context.Context) ([]repository.Piece, error) {
	pieces, err := s.store.ListPieces(ctx)
	if err != nil {
		return nil, err
	}
	metrics.UpdateTotalPieces(len(pieces))
	return pieces, nil
}

// GetSession returns a session by id.
func (s *Service) GetSession(ctx context.Context, id string) (repository.Session, error) {
	return s.store.GetSession(ctx, id)
}

// ListSessions returns the sessions of a piece newest first.
func (s *Service) ListSessions(ctx context.Context, pieceID string) ([]repository.Session, error) {
	return s.store.ListSessions(ctx, pieceID)
}

// Instruments returns the supported instrument catalogue.
func (s *Service) Instruments() []music.Instrument {
	out := make([]music.Instrument, len(music.Instruments))
	copy(out, music.Instruments)
	return out
}

// Evaluate scores audio against the piece, saves the session and compares it
// with the previous attempt.
func (s *Service) Evaluate(ctx context.Context, pieceID, instrument string, audio analysis.AudioAnalysis) (*Evaluation, error) {
	inst, err := normalizeInstrument(instrument)
	if err != nil {
		metrics.RecordEvaluation(metrics.OutcomeInvalid)
		return nil, err
	}
	piece, err := s.store.GetPiece(ctx, pieceID)
	if err != nil {
		return nil, err
	}

	fb, err := s.evaluate(ctx, piece, audio)
	if err != nil {
		return nil, err
	}

	session := repository.Session{
		PieceID:    piece.ID,
		Instrument: inst,
		Audio:      analysis.Complete(audio),
		Feedback:   *fb,
	}
	id, err := s.store.SaveSession(ctx, session)
	if err != nil {
		metrics.RecordErrorByComponent("store", "save_session")
		return nil, fmt.Errorf("save session: %w", err)
	}
	saved, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	delta, err := s.compare(ctx, saved)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "performance evaluated",
		logger.String("piece_id", piece.ID),
		logger.String("session_id", id),
		logger.String("instrument", inst),
		logger.Int("overall", fb.OverallScore),
		logger.String("recommendation_source", fb.RecommendationSource),
	)

	return &Evaluation{
		SessionID:  id,
		PieceID:    piece.ID,
		Instrument: inst,
		Feedback:   saved.Feedback,
		Progress:   delta,
		CreatedAt:  saved.CreatedAt,
	}, nil
}

// CompareWithPrevious compares a stored session with the most recent other
// session of the same piece.
func (s *Service) CompareWithPrevious(ctx context.Context, pieceID, sessionID string) (progress.SessionDelta, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return progress.SessionDelta{}, err
	}
	if pieceID != "" && session.PieceID != pieceID {
		return progress.SessionDelta{}, fmt.Errorf("%w: session %s is not part of piece %s", repository.ErrNotFound, sessionID, pieceID)
	}
	return s.compare(ctx, session)
}

func (s *Service) compare(ctx context.Context, session repository.Session) (progress.SessionDelta, error) {
	prev, err := s.store.PreviousSession(ctx, session.PieceID, session.ID)
	if err != nil {
		return progress.SessionDelta{}, fmt.Errorf("compare: %w", err)
	}
	count, err := s.store.CountSessions(ctx, session.PieceID)
	if err != nil {
		return progress.SessionDelta{}, fmt.Errorf("compare: %w", err)
	}

	opts := []progress.Option{progress.WithPriorAttempts(count - 1)}
	if prev == nil {
		return progress.Compare(session.Feedback, nil, opts...), nil
	}
	opts = append(opts, progress.WithPreviousDate(prev.CreatedAt))
	return progress.Compare(session.Feedback, &prev.Feedback, opts...), nil
}

// evaluate runs the feedback engine and records its metrics.
func (s *Service) evaluate(ctx context.Context, piece repository.Piece, audio analysis.AudioAnalysis) (*feedback.Feedback, error) {
	start := time.Now()

	opts := []feedback.EvalOption{feedback.WithWindow(s.window)}
	if s.disableDynamics {
		opts = append(opts, feedback.WithDynamicsDisabled())
	}

	fb, err := s.engine.Evaluate(ctx, piece.Sheet, audio, opts...)
	if err != nil {
		if errors.Is(err, music.ErrInvalidInput) {
			metrics.RecordEvaluation(metrics.OutcomeInvalid)
		} else {
			metrics.RecordEvaluation(metrics.OutcomeError)
		}
		return nil, err
	}

	metrics.RecordEvaluation(metrics.OutcomeSuccess)
	metrics.RecordEvaluationLatency(float64(time.Since(start).Microseconds()) / 1000)
	metrics.RecordOverallScore(fb.OverallScore)
	metrics.RecordDimensionScore("pitch", fb.Pitch.Score)
	metrics.RecordDimensionScore("rhythm", fb.Rhythm.Score)
	metrics.RecordDimensionScore("tempo", fb.Tempo.Score)
	if d := fb.DynamicsScore(); d != nil {
		metrics.RecordDimensionScore("dynamics", *d)
	}
	metrics.RecordAlignmentMatches("correct", fb.Alignment.Correct)
	metrics.RecordAlignmentMatches("wrong_pitch", fb.Alignment.WrongPitch)
	metrics.RecordAlignmentMatches("missing", fb.Alignment.Missing)
	metrics.RecordAlignmentMatches("extra", fb.Alignment.Extra)
	metrics.RecordRecommendation(fb.RecommendationSource)
	if s.generator != nil && fb.RecommendationSource == recommend.TemplateName {
		metrics.RecordRecommendationFallback()
	}
	return fb, nil
}

func normalizeInstrument(name string) (string, error) {
	id, ok := music.NormalizeInstrument(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownInstrument, name)
	}
	return id, nil
}
