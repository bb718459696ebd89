// Package alignment pairs expected notes with performed notes using
// time-windowed nearest-neighbour matching.
package alignment

import (
	"math"

	"github.com/masterofmagic999/mugic/internal/domain/music"
)

// DefaultWindow is the maximum onset distance, in seconds, for two notes to
// be considered the same event.
const DefaultWindow = 0.5

// Kind classifies a match.
type Kind string

// Match kinds.
const (
	MatchedCorrect    Kind = "matched-correct"
	MatchedWrongPitch Kind = "matched-wrong-pitch"
	Missing           Kind = "missing"
	Extra             Kind = "extra"
)

// Match pairs at most one expected note with at most one performed note.
// Indices refer to the time-sorted sequences and are -1 when absent.
type Match struct {
	Kind           Kind        `json:"kind"`
	ExpectedIndex  int         `json:"expected_index"`
	PerformedIndex int         `json:"performed_index"`
	Expected       *music.Note `json:"expected,omitempty"`
	Performed      *music.Note `json:"performed,omitempty"`
	// TimeDelta is |performed.start - expected.start| for matched pairs.
	TimeDelta float64 `json:"time_delta,omitempty"`
}

// Matched reports whether both sides are present.
func (m Match) Matched() bool {
	return m.Kind == MatchedCorrect || m.Kind == MatchedWrongPitch
}

// Option applies a configuration option to an alignment run.
type Option func(*config)

type config struct {
	window float64
}

// WithWindow overrides DefaultWindow. Non-positive values are ignored.
func WithWindow(seconds float64) Option {
	return func(c *config) {
		if seconds > 0 && !math.IsInf(seconds, 0) {
			c.window = seconds
		}
	}
}

// Align validates both sequences and aligns them. On invalid input it
// returns a *music.ValidationError and no matches.
//
// Expected notes are visited in time order. Each one claims the closest
// unclaimed performed note within the window that lies after the last
// claimed performed note, ties going to the earlier note. Expected notes
// with no candidate become Missing; unclaimed performed notes become Extra.
// Output lists expected-driven matches first, then extras in time order.
func Align(expected, performed []music.Note, opts ...Option) ([]Match, error) {
	cfg := config{window: DefaultWindow}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := music.ValidateNotes("expected", expected); err != nil {
		return nil, err
	}
	if err := music.ValidateNotes("performed", performed); err != nil {
		return nil, err
	}

	exp := music.SortByStart(expected)
	perf := music.SortByStart(performed)

	claimed := make([]bool, len(perf))
	matches := make([]Match, 0, len(exp)+len(perf))
	lastClaimed := -1
	// The window is inclusive; the epsilon absorbs float noise at the edge.
	limit := cfg.window + 1e-9

	for i := range exp {
		best, bestDelta := -1, math.Inf(1)
		for j := lastClaimed + 1; j < len(perf); j++ {
			if claimed[j] {
				continue
			}
			delta := math.Abs(perf[j].StartTime - exp[i].StartTime)
			if delta > limit {
				if perf[j].StartTime > exp[i].StartTime {
					break
				}
				continue
			}
			if delta < bestDelta {
				best, bestDelta = j, delta
			}
		}

		e := exp[i]
		if best < 0 {
			matches = append(matches, Match{Kind: Missing, ExpectedIndex: i, PerformedIndex: -1, Expected: &e})
			continue
		}

		claimed[best] = true
		lastClaimed = best
		p := perf[best]
		kind := MatchedWrongPitch
		if e.Pitch == p.Pitch {
			kind = MatchedCorrect
		}
		matches = append(matches, Match{
			Kind:           kind,
			ExpectedIndex:  i,
			PerformedIndex: best,
			Expected:       &e,
			Performed:      &p,
			TimeDelta:      bestDelta,
		})
	}

	for j := range perf {
		if claimed[j] {
			continue
		}
		p := perf[j]
		matches = append(matches, Match{Kind: Extra, ExpectedIndex: -1, PerformedIndex: j, Performed: &p})
	}

	return matches, nil
}

// Counts tallies matches by kind.
type Counts struct {
	Correct    int `json:"correct"`
	WrongPitch int `json:"wrong_pitch"`
	Missing    int `json:"missing"`
	Extra      int `json:"extra"`
}

// Count tallies matches by kind.
func Count(matches []Match) Counts {
	var c Counts
	for _, m := range matches {
		switch m.Kind {
		case MatchedCorrect:
			c.Correct++
		case MatchedWrongPitch:
			c.WrongPitch++
		case Missing:
			c.Missing++
		case Extra:
			c.Extra++
		}
	}
	return c
}

// Expected returns the number of expected notes represented in c.
func (c Counts) Expected() int { return c.Correct + c.WrongPitch + c.Missing }

// Performed returns the number of performed notes represented in c.
func (c Counts) Performed() int { return c.Correct + c.WrongPitch + c.Extra }
