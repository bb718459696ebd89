// Package progress compares an evaluation with the previous attempt at the
// same piece.
package progress

import (
	"fmt"
	"time"

	"github.com/masterofmagic999/mugic/internal/domain/feedback"
)

// A dimension must move by more than this many points to be reported.
const changeThreshold = 5

// Default lines used when no dimension moved enough either way.
const (
	DefaultImprovement = "Keep up the consistent work!"
	DefaultRegression  = "All areas maintained!"
	FirstAttempt       = "This is your first attempt at this piece!"
)

// SessionDelta describes how a session compares to the one before it.
type SessionDelta struct {
	HasPrevious    bool       `json:"has_previous"`
	PreviousDate   *time.Time `json:"previous_date,omitempty"`
	PreviousScore  *int       `json:"previous_score,omitempty"`
	CurrentScore   int        `json:"current_score"`
	OverallChange  int        `json:"overall_change"`
	PitchChange    int        `json:"pitch_change"`
	RhythmChange   int        `json:"rhythm_change"`
	TempoChange    int        `json:"tempo_change"`
	DynamicsChange *int       `json:"dynamics_change,omitempty"`
	Improvements   []string   `json:"improvements"`
	Regressions    []string   `json:"regressions"`
	Message        string     `json:"message"`
	TotalAttempts  int        `json:"total_attempts"`
}

type compareConfig struct {
	priorAttempts int
	previousDate  *time.Time
}

// Option tunes Compare.
type Option func(*compareConfig)

// WithPriorAttempts sets how many sessions preceded the current one.
func WithPriorAttempts(n int) Option {
	return func(c *compareConfig) {
		if n >= 0 {
			c.priorAttempts = n
		}
	}
}

// WithPreviousDate records when the previous session took place.
func WithPreviousDate(t time.Time) Option {
	return func(c *compareConfig) { c.previousDate = &t }
}

type dimension struct {
	improved  string
	regressed string
}

var (
	pitchDim    = dimension{"Pitch accuracy improved by %d points", "Pitch accuracy decreased by %d points"}
	rhythmDim   = dimension{"Rhythm improved by %d points", "Rhythm needs more work (decreased by %d points)"}
	tempoDim    = dimension{"Tempo control improved by %d points", "Tempo control needs work (decreased by %d points)"}
	dynamicsDim = dimension{"Dynamics improved by %d points", "Dynamics need more work (decreased by %d points)"}
)

// Compare computes the delta between current and previous. A nil previous
// means this is the first attempt.
func Compare(current feedback.Feedback, previous *feedback.Feedback, opts ...Option) SessionDelta {
	cfg := compareConfig{priorAttempts: -1}
	for _, opt := range opts {
		opt(&cfg)
	}

	if previous == nil {
		return SessionDelta{
			CurrentScore:  current.OverallScore,
			Improvements:  []string{},
			Regressions:   []string{},
			Message:       FirstAttempt,
			TotalAttempts: attempts(cfg.priorAttempts, 0),
		}
	}

	prevScore := previous.OverallScore
	d := SessionDelta{
		HasPrevious:   true,
		PreviousDate:  cfg.previousDate,
		PreviousScore: &prevScore,
		CurrentScore:  current.OverallScore,
		OverallChange: current.OverallScore - previous.OverallScore,
		PitchChange:   current.Pitch.Score - previous.Pitch.Score,
		RhythmChange:  current.Rhythm.Score - previous.Rhythm.Score,
		TempoChange:   current.Tempo.Score - previous.Tempo.Score,
		Improvements:  []string{},
		Regressions:   []string{},
		TotalAttempts: attempts(cfg.priorAttempts, 1),
	}

	d.classify(pitchDim, d.PitchChange)
	d.classify(rhythmDim, d.RhythmChange)
	d.classify(tempoDim, d.TempoChange)
	if current.Dynamics != nil && previous.Dynamics != nil {
		change := current.Dynamics.Score - previous.Dynamics.Score
		d.DynamicsChange = &change
		d.classify(dynamicsDim, change)
	}

	if len(d.Improvements) == 0 && len(d.Regressions) == 0 {
		d.Improvements = []string{DefaultImprovement}
		d.Regressions = []string{DefaultRegression}
	}

	d.Message = message(d.OverallChange)
	return d
}

func (d *SessionDelta) classify(dim dimension, change int) {
	switch {
	case change > changeThreshold:
		d.Improvements = append(d.Improvements, fmt.Sprintf(dim.improved, change))
	case change < -changeThreshold:
		d.Regressions = append(d.Regressions, fmt.Sprintf(dim.regressed, -change))
	}
}

func message(change int) string {
	switch {
	case change > 0:
		return fmt.Sprintf("Great job! Your overall score improved by %d points.", change)
	case change < 0:
		return fmt.Sprintf("Your score decreased by %d points. Keep practicing!", -change)
	default:
		return "Your score remained the same. Try focusing on specific areas for improvement."
	}
}

// attempts is prior+1, or fallback+1 when the prior count is unknown.
func attempts(prior, fallback int) int {
	if prior < 0 {
		prior = fallback
	}
	return prior + 1
}
