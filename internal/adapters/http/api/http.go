// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	eventqueue "github.com/masterofmagic999/mugic/internal/adapters/mq/queue"
	"github.com/masterofmagic999/mugic/internal/adapters/repository"
	service "github.com/masterofmagic999/mugic/internal/app"
	"github.com/masterofmagic999/mugic/internal/domain/analysis"
	"github.com/masterofmagic999/mugic/internal/domain/model"
	"github.com/masterofmagic999/mugic/internal/domain/music"
	"github.com/masterofmagic999/mugic/internal/domain/progress"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 8 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	PieceDependencies
	EvaluationDependencies
	JobDependencies
	StatsProvider
	InstrumentsProvider
}

// PieceDependencies manage reference pieces.
type PieceDependencies interface {
	CreatePiece(ctx context.Context, p repository.Piece) (repository.Piece, error)
	GetPiece(ctx context.Context, id string) (repository.Piece, error)
	ListPieces(ctx context.Context) ([]repository.Piece, error)
}

// EvaluationDependencies evaluate performances and read back sessions.
type EvaluationDependencies interface {
	Evaluate(ctx context.Context, pieceID, instrument string, audio analysis.AudioAnalysis) (*service.Evaluation, error)
	GetSession(ctx context.Context, id string) (repository.Session, error)
	ListSessions(ctx context.Context, pieceID string) ([]repository.Session, error)
	CompareWithPrevious(ctx context.Context, pieceID, sessionID string) (progress.SessionDelta, error)
}

// JobDependencies run evaluations in the background.
type JobDependencies interface {
	SubmitJob(ctx context.Context, pieceID, idempotencyKey, instrument string, audio analysis.AudioAnalysis) (model.EvaluationJob, bool, error)
	GetJob(ctx context.Context, id string) (model.EvaluationJob, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	pieceHandler       *PieceHandler
	evaluationHandler  *EvaluationHandler
	jobHandler         *JobHandler
	instrumentsHandler *InstrumentsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	sheets := analysis.JSONSheetAnalyzer{}
	audio := analysis.JSONAudioAnalyzer{}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		pieceHandler:       NewPieceHandler(deps, sheets),
		evaluationHandler:  NewEvaluationHandler(deps, audio),
		jobHandler:         NewJobHandler(deps, audio),
		instrumentsHandler: NewInstrumentsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("GET /metrics", s.healthHandler.MetricsHandler())
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /instruments", MetricsMiddleware(s.instrumentsHandler.HandleList, "instruments"))

	mux.HandleFunc("POST /pieces", MetricsMiddleware(s.pieceHandler.HandleCreate, "pieces"))
	mux.HandleFunc("GET /pieces", MetricsMiddleware(s.pieceHandler.HandleList, "pieces"))
	mux.HandleFunc("GET /pieces/{id}", MetricsMiddleware(s.pieceHandler.HandleGet, "piece"))

	mux.HandleFunc("POST /pieces/{id}/evaluations", MetricsMiddleware(s.evaluationHandler.HandleEvaluate, "evaluations"))
	mux.HandleFunc("GET /pieces/{id}/sessions", MetricsMiddleware(s.evaluationHandler.HandleListSessions, "sessions"))
	mux.HandleFunc("GET /sessions/{id}", MetricsMiddleware(s.evaluationHandler.HandleGetSession, "session"))
	mux.HandleFunc("GET /sessions/{id}/progress", MetricsMiddleware(s.evaluationHandler.HandleProgress, "progress"))

	mux.HandleFunc("POST /pieces/{id}/jobs", MetricsMiddleware(s.jobHandler.HandleSubmit, "jobs"))
	mux.HandleFunc("GET /jobs/{id}", MetricsMiddleware(s.jobHandler.HandleGet, "job"))
}

// performanceRequest is the body of evaluation and job submissions. Audio
// holds a pre-extracted transcription in the AudioAnalysis JSON shape.
type performanceRequest struct {
	Instrument string          `json:"instrument"`
	Audio      json.RawMessage `json:"audio"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Field, Index and Sequence locate a malformed input value.
	Field    string `json:"field,omitempty"`
	Index    *int   `json:"index,omitempty"`
	Sequence string `json:"sequence,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	resp := errorResponse{Code: code, Message: msg}
	var verr *music.ValidationError
	if errors.As(err, &verr) {
		resp.Field = verr.Field
		resp.Sequence = verr.Sequence
		if verr.Index >= 0 {
			idx := verr.Index
			resp.Index = &idx
		}
	}
	writeJSON(w, status, resp)
}

// writeDomainError translates upstream error kinds to HTTP statuses.
func writeDomainError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, music.ErrInvalidInput),
		errors.Is(err, music.ErrInvalidPitch),
		errors.Is(err, repository.ErrInvalidPiece),
		errors.Is(err, service.ErrUnknownInstrument):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, repository.ErrPieceNotFound),
		errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, eventqueue.ErrFull), errors.Is(err, ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
	case errors.Is(err, eventqueue.ErrClosed), errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// decodeBody reads a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", ErrBadRequest)
		}
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}
