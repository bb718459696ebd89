package recommend

import (
	"context"
	"fmt"
	"strings"

	"github.com/masterofmagic999/mugic/internal/domain/music"
	"github.com/masterofmagic999/mugic/internal/domain/scoring"
)

// TemplateName identifies the deterministic source.
const TemplateName = "template"

const (
	adviceThreshold    = 70
	maxNamedPitches    = 5
	maxRecommendations = 5
)

// Advice texts.
const (
	rhythmAdvice   = "Your rhythm is uneven. Practice with a metronome to develop steady timing."
	dynamicsAdvice = "Work on dynamic variety. Practice playing softer (piano) and louder (forte) sections."
	positiveAdvice = "Excellent work! Your performance is accurate. Continue refining your interpretation."
	noTempoAdvice  = "The reference tempo is unknown, so tempo could not be compared. Set a target tempo and practice with a metronome."
)

// TemplateSource selects fixed advice texts from scorer diagnostics. It is
// deterministic and never fails.
type TemplateSource struct{}

// Name implements Source.
func (TemplateSource) Name() string { return TemplateName }

// Recommend implements Source.
func (TemplateSource) Recommend(_ context.Context, f Facts) ([]string, error) {
	return Templates(f), nil
}

// Templates applies the template rules in priority order: pitch, rhythm,
// tempo, dynamics. When no rule fires a single positive message is returned.
func Templates(f Facts) []string {
	var out []string

	if f.Pitch.Score < adviceThreshold {
		out = append(out, pitchAdvice(f.Pitch.Detail))
	}

	if f.Rhythm.Score < adviceThreshold && f.Rhythm.Detail.RhythmConsistency == scoring.ConsistencyNeedsWork {
		out = append(out, rhythmAdvice)
	}

	if f.Tempo.Score < adviceThreshold {
		out = append(out, tempoAdvice(f.Tempo.Detail))
	}

	if f.Dynamics != nil && f.Dynamics.Score < adviceThreshold && f.Dynamics.Detail.Variety == scoring.VarietyLimited {
		out = append(out, dynamicsAdvice)
	}

	if len(out) == 0 {
		return []string{positiveAdvice}
	}
	if len(out) > maxRecommendations {
		out = out[:maxRecommendations]
	}
	return out
}

func pitchAdvice(d scoring.PitchDetail) string {
	msg := fmt.Sprintf(
		"Focus on pitch accuracy. You got %d out of %d notes correct. Practice slowly and use a tuner to verify each note.",
		d.CorrectNotes, d.TotalNotes,
	)
	if names := namePitches(d.MispitchedNotes); names != "" {
		msg += " Pay special attention to these notes: " + names + "."
	}
	return msg
}

func namePitches(ps []music.Pitch) string {
	if len(ps) > maxNamedPitches {
		ps = ps[:maxNamedPitches]
	}
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}

func tempoAdvice(d scoring.TempoDetail) string {
	switch {
	case d.ExpectedBPM == 0:
		return noTempoAdvice
	case d.ActualBPM < d.ExpectedBPM:
		return fmt.Sprintf(
			"You're playing too slowly. Gradually increase your tempo from %s BPM to the target %s BPM.",
			bpm(d.ActualBPM), bpm(d.ExpectedBPM),
		)
	default:
		return fmt.Sprintf(
			"You're playing too fast. Slow down from %s BPM to the target %s BPM and focus on accuracy.",
			bpm(d.ActualBPM), bpm(d.ExpectedBPM),
		)
	}
}

func bpm(v float64) string {
	return fmt.Sprintf("%.0f", v)
}
