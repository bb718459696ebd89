package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/masterofmagic999/mugic/internal/domain/analysis"
	"github.com/masterofmagic999/mugic/internal/domain/model"
	"github.com/masterofmagic999/mugic/pkg/logger"
	"github.com/masterofmagic999/mugic/pkg/metrics"
)

// SubmitJob queues audio for background evaluation. A non-empty
// idempotencyKey that was seen before returns the original job and
// duplicate=true without queueing anything.
func (s *Service) SubmitJob(ctx context.Context, pieceID, idempotencyKey, instrument string, audio analysis.AudioAnalysis) (job model.EvaluationJob, duplicate bool, err error) {
	queue, deduper, started := s.running()
	if !started {
		return model.EvaluationJob{}, false, ErrNotStarted
	}

	inst, err := normalizeInstrument(instrument)
	if err != nil {
		return model.EvaluationJob{}, false, err
	}
	if _, err := s.store.GetPiece(ctx, pieceID); err != nil {
		return model.EvaluationJob{}, false, err
	}
	if err := audio.Validate(); err != nil {
		return model.EvaluationJob{}, false, fmt.Errorf("submit job: %w", err)
	}

	now := s.now()
	j := model.EvaluationJob{
		ID:             uuid.NewString(),
		PieceID:        pieceID,
		IdempotencyKey: idempotencyKey,
		Instrument:     inst,
		Audio:          audio,
		Status:         model.JobQueued,
		SubmittedAt:    now,
		UpdatedAt:      now,
	}

	if idempotencyKey != "" {
		owner, dup := deduper.Claim(ctx, idempotencyKey, j.ID)
		if dup {
			metrics.RecordDuplicateSubmission()
			s.logger.Debug(ctx, "duplicate submission",
				logger.String("idempotency_key", idempotencyKey),
				logger.String("job_id", owner),
			)
			existing, err := s.GetJob(ctx, owner)
			if err != nil {
				// The job was evicted; report the id we know about.
				existing = model.EvaluationJob{ID: owner, PieceID: pieceID, IdempotencyKey: idempotencyKey}
			}
			return existing, true, nil
		}
	}

	s.putJob(&j)
	if err := queue.Enqueue(ctx, j); err != nil {
		s.dropJob(j.ID)
		if idempotencyKey != "" {
			deduper.Release(ctx, idempotencyKey)
		}
		return model.EvaluationJob{}, false, fmt.Errorf("submit job: %w", err)
	}

	s.logger.Debug(ctx, "job queued", logger.String("job_id", j.ID), logger.String("piece_id", pieceID))
	return j, false, nil
}

// GetJob returns the current state of a job.
func (s *Service) GetJob(_ context.Context, id string) (model.EvaluationJob, error) {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return model.EvaluationJob{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return *j, nil
}

// Process evaluates a queued job. It is called by the worker pool.
func (s *Service) Process(ctx context.Context, j model.EvaluationJob) error { //nolint:gocritic // hugeParam: jobs travel by value
	s.setStatus(j.ID, model.JobRunning, "", "")

	ev, err := s.Evaluate(ctx, j.PieceID, j.Instrument, j.Audio)
	if err != nil {
		s.setStatus(j.ID, model.JobFailed, "", err.Error())
		return err
	}
	s.setStatus(j.ID, model.JobSucceeded, ev.SessionID, "")
	return nil
}

func (s *Service) putJob(j *model.EvaluationJob) {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	stored := *j
	stored.Audio = analysis.AudioAnalysis{}
	s.jobs[j.ID] = &stored
	s.jobOrder = append(s.jobOrder, j.ID)
	s.evictLocked()
}

// evictLocked forgets the oldest finished jobs while over capacity.
func (s *Service) evictLocked() {
	if len(s.jobs) <= s.maxJobs {
		return
	}
	kept := s.jobOrder[:0]
	for _, id := range s.jobOrder {
		j, ok := s.jobs[id]
		if !ok {
			continue
		}
		if len(s.jobs) > s.maxJobs && j.Status.Done() {
			delete(s.jobs, id)
			continue
		}
		kept = append(kept, id)
	}
	s.jobOrder = kept
}

// dropJob forgets a job that never made it onto the queue.
func (s *Service) dropJob(id string) {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	delete(s.jobs, id)
	// The rejected job is almost always the last one appended.
	for i := len(s.jobOrder) - 1; i >= 0; i-- {
		if s.jobOrder[i] == id {
			s.jobOrder = append(s.jobOrder[:i], s.jobOrder[i+1:]...)
			return
		}
	}
}

func (s *Service) setStatus(id string, status model.JobStatus, sessionID, errMsg string) {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return
	}
	j.Status = status
	j.UpdatedAt = s.now()
	if sessionID != "" {
		j.SessionID = sessionID
	}
	j.Error = errMsg
}
