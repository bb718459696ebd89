package practicesim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/masterofmagic999/mugic/internal/domain/model"
	"github.com/masterofmagic999/mugic/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	reportPermission    = 0600
)

// ErrInvalidConfig is returned by Run for unusable settings.
var ErrInvalidConfig = errors.New("invalid simulation config")

// Run executes a complete simulation: it creates pieces, submits every
// attempt as a job, waits for the jobs and verifies the stored sessions.
func Run(ctx context.Context, config *Config) (*Stats, []Result, error) {
	if err := validate(config); err != nil {
		return nil, nil, err
	}
	stats := &Stats{StartTime: time.Now()}
	log := logger.Named("practicesim")

	log.Info(ctx, "starting practice simulation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("pieces", config.Pieces),
		logger.Int("attempts", config.Attempts),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout))

	client := NewClient(config.BaseURL, config.Timeout)

	// Step 1: Check service health
	if err := client.Health(ctx); err != nil {
		return stats, nil, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Create pieces and their attempts
	attempts, err := prepare(ctx, client, config, stats)
	if err != nil {
		return stats, nil, err
	}

	// Step 3: Submit attempts concurrently
	if err := submitAttempts(ctx, client, config, attempts, stats); err != nil {
		return stats, nil, fmt.Errorf("submission failed: %w", err)
	}

	// Step 4: Wait for the jobs
	results, err := awaitJobs(ctx, client, config, attempts, stats)
	if err != nil {
		return stats, results, fmt.Errorf("waiting for jobs failed: %w", err)
	}

	// Step 5: Verify stored sessions
	if err := verifyResults(ctx, client, config, results, stats); err != nil {
		return stats, results, fmt.Errorf("result verification failed: %w", err)
	}

	if config.OutputFile != "" {
		if err := saveReport(config.OutputFile, results); err != nil {
			log.Warn(ctx, "failed to save report", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, results, nil
}

func validate(c *Config) error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base url is empty", ErrInvalidConfig)
	case c.Pieces < 1:
		return fmt.Errorf("%w: pieces must be >= 1", ErrInvalidConfig)
	case c.Attempts < 1:
		return fmt.Errorf("%w: attempts must be >= 1", ErrInvalidConfig)
	case c.NotesPer < 1:
		return fmt.Errorf("%w: notes must be >= 1", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be >= 1", ErrInvalidConfig)
	case c.Poll <= 0:
		return fmt.Errorf("%w: poll interval must be positive", ErrInvalidConfig)
	}
	return nil
}

// prepare creates the pieces and generates one Attempt per practice run.
func prepare(ctx context.Context, client *Client, config *Config, stats *Stats) ([]Attempt, error) {
	gen := NewGenerator(config.Seed)
	runID := time.Now().UnixNano()

	attempts := make([]Attempt, 0, config.Pieces*config.Attempts)
	for p := 0; p < config.Pieces; p++ {
		sheet, err := gen.Piece(config.NotesPer)
		if err != nil {
			return nil, err
		}
		piece, err := client.CreatePiece(ctx, fmt.Sprintf("Study %d", p+1), sheet)
		if err != nil {
			return nil, fmt.Errorf("create piece %d: %w", p+1, err)
		}
		stats.PiecesCreated++

		for i := 0; i < config.Attempts; i++ {
			audio, mistakes, err := gen.Performance(sheet, i, config.Attempts)
			if err != nil {
				return nil, err
			}
			attempts = append(attempts, Attempt{
				PieceID:  piece.ID,
				Index:    i,
				Key:      fmt.Sprintf("sim-%d-%s-%d", runID, piece.ID, i),
				Mistakes: mistakes,
				request:  performanceBody{Instrument: config.Instrument, Audio: audio},
			})
		}
	}
	return attempts, nil
}

// submitAttempts fans the attempts out to config.Workers submitters. Every
// config.Duplicates-th attempt is submitted a second time with the same
// key, which must return the original job.
func submitAttempts(ctx context.Context, client *Client, config *Config, attempts []Attempt, stats *Stats) error {
	var (
		accepted, duplicates, rejected int64
		firstErr                       error
		errOnce                        sync.Once
	)
	fail := func(err error) { errOnce.Do(func() { firstErr = err }) }

	idx := make(chan int, config.Workers*2)
	var wg sync.WaitGroup
	for w := 0; w < config.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				a := &attempts[i]
				job, dup, err := submitWithRetry(ctx, client, config, a)
				if err != nil {
					atomic.AddInt64(&rejected, 1)
					fail(err)
					continue
				}
				if dup {
					fail(fmt.Errorf("attempt %s reported as duplicate on first submission", a.Key))
				}
				a.JobID = job.ID
				atomic.AddInt64(&accepted, 1)

				if config.Duplicates > 0 && i%config.Duplicates == 0 {
					again, dup, err := submitWithRetry(ctx, client, config, a)
					switch {
					case err != nil:
						fail(err)
					case !dup || again.ID != job.ID:
						fail(fmt.Errorf("resubmitting %s returned job %s (duplicate=%t), want %s", a.Key, again.ID, dup, job.ID))
					default:
						atomic.AddInt64(&duplicates, 1)
					}
				}
			}
		}()
	}

	go func() {
		defer close(idx)
		for i := range attempts {
			select {
			case <-ctx.Done():
				return
			case idx <- i:
			}
		}
	}()
	wg.Wait()

	stats.Accepted = int(accepted)
	stats.Duplicates = int(duplicates)
	stats.Rejected = int(rejected)
	stats.Submitted = stats.Accepted + stats.Duplicates + stats.Rejected

	logger.Get().Info(ctx, "submission completed",
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int("rejected", stats.Rejected))

	if err := ctx.Err(); err != nil {
		return err
	}
	return firstErr
}

// submitWithRetry retries while the service applies backpressure.
func submitWithRetry(ctx context.Context, client *Client, config *Config, a *Attempt) (model.EvaluationJob, bool, error) {
	for {
		job, dup, err := client.SubmitJob(ctx, a.PieceID, a.Key, a.request)
		var se *StatusError
		if !errors.As(err, &se) || se.Code != http.StatusTooManyRequests {
			return job, dup, err
		}
		select {
		case <-ctx.Done():
			return model.EvaluationJob{}, false, ctx.Err()
		case <-time.After(config.Poll):
		}
	}
}

// awaitJobs polls every job until it reaches a terminal state.
func awaitJobs(ctx context.Context, client *Client, config *Config, attempts []Attempt, stats *Stats) ([]Result, error) {
	results := make([]Result, len(attempts))
	for i, a := range attempts {
		if a.JobID == "" {
			return nil, fmt.Errorf("attempt %s has no job", a.Key)
		}
		for {
			job, err := client.GetJob(ctx, a.JobID)
			if err != nil {
				return results, err
			}
			if job.Status.Done() {
				results[i] = Result{Attempt: a, Job: job}
				if job.Status == model.JobSucceeded {
					stats.Succeeded++
				} else {
					stats.Failed++
				}
				break
			}
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(config.Poll):
			}
		}
	}
	return results, nil
}

// saveReport writes the results as indented JSON.
func saveReport(filename string, results []Result) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(filename, data, reportPermission); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// displayFinalStats logs the run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.Accepted) / stats.Duration.Seconds()
	}
	logger.Get().Info(ctx, "final statistics",
		logger.Int("piecesCreated", stats.PiecesCreated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int("rejected", stats.Rejected),
		logger.Int("succeeded", stats.Succeeded),
		logger.Int("failed", stats.Failed),
		logger.Int("sessionsChecked", stats.SessionsChecked),
		logger.Duration("duration", stats.Duration),
		logger.Float64("evaluationsPerSecond", perSecond))
}
