package api

import (
	"bytes"
	"net/http"

	"github.com/masterofmagic999/mugic/internal/adapters/repository"
	"github.com/masterofmagic999/mugic/internal/domain/analysis"
)

// EvaluationHandler handles synchronous evaluations and session reads.
type EvaluationHandler struct {
	deps     EvaluationDependencies
	analyzer analysis.AudioAnalyzer
}

// NewEvaluationHandler creates a new evaluation handler.
func NewEvaluationHandler(deps EvaluationDependencies, analyzer analysis.AudioAnalyzer) *EvaluationHandler {
	return &EvaluationHandler{deps: deps, analyzer: analyzer}
}

type sessionsResponse struct {
	Sessions []repository.Session `json:"sessions"`
}

// HandleEvaluate handles POST /pieces/{id}/evaluations requests.
func (h *EvaluationHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	const op = "api.evaluate"

	audio, instrument, ok := readPerformance(w, r, op, h.analyzer)
	if !ok {
		return
	}

	ev, err := h.deps.Evaluate(r.Context(), r.PathValue("id"), instrument, audio)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

// HandleListSessions handles GET /pieces/{id}/sessions requests.
func (h *EvaluationHandler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_sessions"

	sessions, err := h.deps.ListSessions(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionsResponse{Sessions: sessions})
}

// HandleGetSession handles GET /sessions/{id} requests.
func (h *EvaluationHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_session"

	session, err := h.deps.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// HandleProgress handles GET /sessions/{id}/progress requests.
func (h *EvaluationHandler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	const op = "api.progress"

	delta, err := h.deps.CompareWithPrevious(r.Context(), "", r.PathValue("id"))
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, delta)
}

// readPerformance decodes a performanceRequest and runs its audio through
// analyzer. On failure the error response is already written.
func readPerformance(w http.ResponseWriter, r *http.Request, op string, analyzer analysis.AudioAnalyzer) (analysis.AudioAnalysis, string, bool) {
	var req performanceRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return analysis.AudioAnalysis{}, "", false
	}
	if len(req.Audio) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errMissing("audio")))
		return analysis.AudioAnalysis{}, "", false
	}
	audio, err := analyzer.AnalyzeAudio(r.Context(), bytes.NewReader(req.Audio))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return analysis.AudioAnalysis{}, "", false
	}
	return audio, req.Instrument, true
}
