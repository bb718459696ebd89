// Package feedback runs the full evaluation pipeline: validate, align,
// score every dimension, aggregate, summarise and recommend.
package feedback

import (
	"context"
	"fmt"

	"github.com/masterofmagic999/mugic/internal/domain/alignment"
	"github.com/masterofmagic999/mugic/internal/domain/analysis"
	"github.com/masterofmagic999/mugic/internal/domain/recommend"
	"github.com/masterofmagic999/mugic/internal/domain/scoring"
)

// Feedback is the complete result of one evaluation. It is never modified
// after Evaluate returns it.
type Feedback struct {
	OverallScore         int                    `json:"overall_score"`
	Pitch                scoring.PitchScore     `json:"pitch"`
	Rhythm               scoring.RhythmScore    `json:"rhythm"`
	Tempo                scoring.TempoScore     `json:"tempo"`
	Dynamics             *scoring.DynamicsScore `json:"dynamics,omitempty"`
	Recommendations      []string               `json:"recommendations"`
	Summary              string                 `json:"summary"`
	RecommendationSource string                 `json:"recommendation_source"`
	Alignment            alignment.Counts       `json:"alignment"`
}

// DynamicsScore returns the dynamics score or nil when the dimension was
// disabled.
func (f *Feedback) DynamicsScore() *int {
	if f == nil || f.Dynamics == nil {
		return nil
	}
	s := f.Dynamics.Score
	return &s
}

// Engine evaluates performances. It holds no per-call state and is safe for
// concurrent use.
type Engine struct {
	recommender *recommend.Engine
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithRecommender sets the recommendation engine. The default only uses
// templates.
func WithRecommender(r *recommend.Engine) Option {
	return func(e *Engine) {
		if r != nil {
			e.recommender = r
		}
	}
}

// NewEngine creates an Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{recommender: recommend.NewEngine()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type evalConfig struct {
	window          float64
	disableDynamics bool
}

// EvalOption tunes a single evaluation.
type EvalOption func(*evalConfig)

// WithWindow sets the alignment window in seconds.
func WithWindow(seconds float64) EvalOption {
	return func(c *evalConfig) {
		if seconds > 0 {
			c.window = seconds
		}
	}
}

// WithDynamicsDisabled leaves dynamics out of scoring and aggregation.
func WithDynamicsDisabled() EvalOption {
	return func(c *evalConfig) { c.disableDynamics = true }
}

// Evaluate compares audio against sheet. It returns either a complete
// Feedback or an error wrapping a *music.ValidationError; recommendation
// backend failures never fail the evaluation.
func (e *Engine) Evaluate(ctx context.Context, sheet analysis.SheetMusicAnalysis, audio analysis.AudioAnalysis, opts ...EvalOption) (*Feedback, error) {
	cfg := evalConfig{window: alignment.DefaultWindow}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := sheet.Validate(); err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	if err := audio.Validate(); err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	matches, err := alignment.Align(sheet.Notes, audio.Notes, alignment.WithWindow(cfg.window))
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	pitch := scoring.ScorePitch(matches)
	rhythm := scoring.ScoreRhythm(rhythmInput(sheet, audio))
	tempo := scoring.ScoreTempo(sheet.Tempo, audio.Tempo)

	var dynamics *scoring.DynamicsScore
	var dynamicsScore *int
	if !cfg.disableDynamics {
		d := scoring.ScoreDynamics(audio.Dynamics)
		dynamics = &d
		dynamicsScore = &d.Score
	}

	overall := scoring.Aggregate(pitch.Score, rhythm.Score, tempo.Score, dynamicsScore)

	rec := e.recommender.Recommend(ctx, recommend.Facts{
		Overall:  overall,
		Pitch:    pitch,
		Rhythm:   rhythm,
		Tempo:    tempo,
		Dynamics: dynamics,
	})

	return &Feedback{
		OverallScore:         overall,
		Pitch:                pitch,
		Rhythm:               rhythm,
		Tempo:                tempo,
		Dynamics:             dynamics,
		Recommendations:      rec.Recommendations,
		Summary:              Summary(overall, pitch.Score, rhythm.Score, tempo.Score),
		RecommendationSource: rec.Source,
		Alignment:            alignment.Count(matches),
	}, nil
}

// rhythmInput uses the analyzer's intervals, or derives them from the
// performed notes when the analyzer supplied neither intervals nor a std.
func rhythmInput(sheet analysis.SheetMusicAnalysis, audio analysis.AudioAnalysis) scoring.RhythmInput {
	in := scoring.RhythmInput{
		ExpectedTempo:       sheet.Tempo,
		PerformedTempo:      audio.Tempo,
		InterOnsetIntervals: audio.Rhythm.InterOnsetIntervals,
		StdIOI:              audio.Rhythm.StdIOI,
	}
	if len(in.InterOnsetIntervals) == 0 && in.StdIOI == 0 {
		in.InterOnsetIntervals = analysis.RhythmFromNotes(audio.Notes).InterOnsetIntervals
	}
	return in
}
