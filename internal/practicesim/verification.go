package practicesim

import (
	"context"
	"errors"
	"fmt"

	"github.com/masterofmagic999/mugic/internal/domain/model"
	"github.com/masterofmagic999/mugic/pkg/logger"
)

// verifyResults checks the stored sessions against what was submitted:
// every job succeeded, every piece has one session per attempt, scores are
// percentages, a flawless attempt aligns cleanly and the newest session
// counts every attempt.
func verifyResults(ctx context.Context, client *Client, config *Config, results []Result, stats *Stats) error {
	var errs []error
	byPiece := make(map[string][]int)

	for i := range results {
		r := &results[i]
		byPiece[r.Attempt.PieceID] = append(byPiece[r.Attempt.PieceID], i)

		if r.Job.Status != model.JobSucceeded {
			errs = append(errs, fmt.Errorf("job %s %s: %s", r.Job.ID, r.Job.Status, r.Job.Error))
			continue
		}
		session, err := client.GetSession(ctx, r.Job.SessionID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		r.Session = &session
		stats.SessionsChecked++

		fb := session.Feedback
		if fb.OverallScore < 0 || fb.OverallScore > 100 {
			errs = append(errs, fmt.Errorf("session %s: overall score %d out of range", session.ID, fb.OverallScore))
		}
		if r.Attempt.Mistakes == 0 && (fb.Alignment.WrongPitch != 0 || fb.Alignment.Missing != 0 || fb.Alignment.Extra != 0) {
			errs = append(errs, fmt.Errorf("session %s: flawless attempt aligned with %+v", session.ID, fb.Alignment))
		}
	}

	for pieceID, idx := range byPiece {
		sessions, err := client.ListSessions(ctx, pieceID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(sessions) != len(idx) {
			errs = append(errs, fmt.Errorf("piece %s: %d sessions, want %d", pieceID, len(sessions), len(idx)))
			continue
		}
		delta, err := client.Progress(ctx, sessions[0].ID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if delta.TotalAttempts != len(idx) {
			errs = append(errs, fmt.Errorf("piece %s: progress counts %d attempts, want %d", pieceID, delta.TotalAttempts, len(idx)))
		}
		if config.Verbose {
			logger.Get().Info(ctx, "piece verified",
				logger.String("piece_id", pieceID),
				logger.Int("sessions", len(sessions)),
				logger.Int("latest_score", delta.CurrentScore),
				logger.String("message", delta.Message))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	logger.Get().Info(ctx, "result verification completed", logger.Int("sessions", stats.SessionsChecked))
	return nil
}
