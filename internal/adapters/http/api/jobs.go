package api

import (
	"net/http"
	"strings"

	"github.com/masterofmagic999/mugic/internal/domain/analysis"
	"github.com/masterofmagic999/mugic/internal/domain/model"
)

// IdempotencyKeyHeader carries the client's deduplication key.
const IdempotencyKeyHeader = "Idempotency-Key"

// JobHandler handles asynchronous evaluation jobs.
type JobHandler struct {
	deps     JobDependencies
	analyzer analysis.AudioAnalyzer
}

// NewJobHandler creates a new job handler.
func NewJobHandler(deps JobDependencies, analyzer analysis.AudioAnalyzer) *JobHandler {
	return &JobHandler{deps: deps, analyzer: analyzer}
}

type submitResponse struct {
	Job       model.EvaluationJob `json:"job"`
	Duplicate bool                `json:"duplicate"`
}

// HandleSubmit handles POST /pieces/{id}/jobs requests. A repeated
// Idempotency-Key answers 200 with the original job instead of 202.
func (h *JobHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_job"

	audio, instrument, ok := readPerformance(w, r, op, h.analyzer)
	if !ok {
		return
	}

	key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	job, dup, err := h.deps.SubmitJob(r.Context(), r.PathValue("id"), key, instrument, audio)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}

	status := http.StatusAccepted
	if dup {
		status = http.StatusOK
	}
	writeJSON(w, status, submitResponse{Job: job, Duplicate: dup})
}

// HandleGet handles GET /jobs/{id} requests.
func (h *JobHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_job"

	job, err := h.deps.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}
