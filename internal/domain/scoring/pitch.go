package scoring

import (
	"math"

	"github.com/masterofmagic999/mugic/internal/domain/alignment"
	"github.com/masterofmagic999/mugic/internal/domain/music"
)

const (
	maxPitchErrors = 10
	// PlayedMissing marks an expected note nothing was matched to.
	PlayedMissing = "MISSING"
)

// PitchError is one wrong or missing note.
type PitchError struct {
	Position int         `json:"position"`
	Expected music.Pitch `json:"expected"`
	Played   string      `json:"played"`
	Time     float64     `json:"time"`
}

// PitchDetail carries pitch diagnostics.
type PitchDetail struct {
	CorrectNotes int          `json:"correct_notes"`
	TotalNotes   int          `json:"total_notes"`
	Accuracy     float64      `json:"accuracy"`
	Errors       []PitchError `json:"errors"`
	ExtraNotes   int          `json:"extra_notes,omitempty"`
	// MispitchedNotes lists distinct expected pitches that were wrong or
	// missing, in the order they occur.
	MispitchedNotes []music.Pitch `json:"mispitched_notes,omitempty"`
}

// PitchScore is the pitch dimension result.
type PitchScore struct {
	Score  int         `json:"score"`
	Detail PitchDetail `json:"detail"`
}

// ScorePitch scores pitch accuracy from an alignment.
func ScorePitch(matches []alignment.Match) PitchScore {
	counts := alignment.Count(matches)
	d := PitchDetail{
		CorrectNotes: counts.Correct,
		TotalNotes:   counts.Expected(),
		Errors:       []PitchError{},
	}
	if extra := counts.Performed() - counts.Expected(); extra > 0 {
		d.ExtraNotes = extra
	}

	seen := make(map[music.Pitch]bool)
	for _, m := range matches {
		if m.Kind != alignment.MatchedWrongPitch && m.Kind != alignment.Missing {
			continue
		}
		if !seen[m.Expected.Pitch] {
			seen[m.Expected.Pitch] = true
			d.MispitchedNotes = append(d.MispitchedNotes, m.Expected.Pitch)
		}
		if len(d.Errors) == maxPitchErrors {
			continue
		}
		played := PlayedMissing
		if m.Performed != nil {
			played = string(m.Performed.Pitch)
		}
		d.Errors = append(d.Errors, PitchError{
			Position: m.ExpectedIndex,
			Expected: m.Expected.Pitch,
			Played:   played,
			Time:     m.Expected.StartTime,
		})
	}

	var accuracy float64
	if d.TotalNotes > 0 {
		accuracy = 100 * float64(d.CorrectNotes) / float64(d.TotalNotes)
	}
	d.Accuracy = round(accuracy, 2)

	return PitchScore{Score: clamp(int(math.Round(accuracy))), Detail: d}
}
