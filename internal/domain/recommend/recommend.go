// Package recommend turns scorer diagnostics into short practice advice.
//
// The deterministic TemplateSource is the contract of record. A
// GenerativeSource may be configured in front of it; any failure or thin
// output from the generative path degrades to templates.
package recommend

import (
	"context"

	"github.com/masterofmagic999/mugic/internal/domain/scoring"
	"github.com/masterofmagic999/mugic/pkg/logger"
)

// Facts are the diagnostics advice is derived from.
type Facts struct {
	Overall  int
	Pitch    scoring.PitchScore
	Rhythm   scoring.RhythmScore
	Tempo    scoring.TempoScore
	Dynamics *scoring.DynamicsScore
}

// Source produces advice lines, most important first.
type Source interface {
	Recommend(ctx context.Context, f Facts) ([]string, error)
	Name() string
}

// Result is what the Engine hands back.
type Result struct {
	Recommendations []string
	// Source names the source the lines came from.
	Source string
	// Fallback holds the error that made the Engine fall back to templates.
	Fallback error
}

// Engine runs the configured Source and falls back to templates.
type Engine struct {
	source Source
	logger logger.Logger
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithSource sets the primary source. Nil keeps the template source.
func WithSource(s Source) Option {
	return func(e *Engine) {
		if s != nil {
			e.source = s
		}
	}
}

// WithLogger sets the logger used to report fallbacks.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an Engine. Without options it only uses templates.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{source: TemplateSource{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Recommend never fails; it returns between one and five lines.
func (e *Engine) Recommend(ctx context.Context, f Facts) Result {
	if _, ok := e.source.(TemplateSource); ok {
		return Result{Recommendations: Templates(f), Source: TemplateName}
	}

	lines, err := e.source.Recommend(ctx, f)
	if err == nil && len(lines) > 0 {
		if len(lines) > maxRecommendations {
			lines = lines[:maxRecommendations]
		}
		return Result{Recommendations: lines, Source: e.source.Name()}
	}
	if err == nil {
		err = ErrInsufficientOutput
	}
	if e.logger != nil {
		e.logger.Warn(ctx, "recommendation source failed, using templates",
			logger.String("source", e.source.Name()),
			logger.Error(err),
		)
	}
	return Result{Recommendations: Templates(f), Source: TemplateName, Fallback: err}
}
