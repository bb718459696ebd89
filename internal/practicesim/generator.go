package practicesim

import (
	"fmt"
	"math/rand/v2"

	"github.com/masterofmagic999/mugic/internal/domain/analysis"
	"github.com/masterofmagic999/mugic/internal/domain/music"
)

// Generation ranges.
const (
	lowestMIDI      = 55 // G3
	highestMIDI     = 79 // G5
	minTempo        = 72
	tempoRange      = 60
	maxTimingJitter = 0.04
	// mistakeRate is the share of altered notes in the first attempt. Later
	// attempts improve linearly towards zero.
	mistakeRate = 0.4
)

// scaleSteps are the semitone offsets of a major scale.
var scaleSteps = [...]int{0, 2, 4, 5, 7, 9, 11}

// Generator produces reference pieces and flawed performances of them.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator returns a generator seeded for reproducible runs.
func NewGenerator(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Piece generates a diatonic melody of n notes.
func (g *Generator) Piece(n int) (analysis.SheetMusicAnalysis, error) {
	tempo := float64(minTempo + g.rng.IntN(tempoRange))
	beat := 60 / tempo
	root := lowestMIDI + g.rng.IntN(12)

	notes := make([]music.Note, 0, n)
	t := 0.0
	for i := 0; i < n; i++ {
		step := scaleSteps[g.rng.IntN(len(scaleSteps))]
		midi := min(root+step+12*g.rng.IntN(2), highestMIDI)
		p, err := music.PitchFromMIDI(midi)
		if err != nil {
			return analysis.SheetMusicAnalysis{}, fmt.Errorf("generate piece: %w", err)
		}
		dur := beat
		if g.rng.IntN(4) == 0 {
			dur = beat / 2
		}
		notes = append(notes, music.Note{Pitch: p, StartTime: t, Duration: dur})
		t += dur
	}
	return analysis.SheetMusicAnalysis{Notes: notes, Tempo: tempo, TimeSignature: "4/4"}, nil
}

// Performance plays sheet with attempt-dependent mistakes. Attempt index i
// of total makes roughly mistakeRate*(1-i/total) errors per note: wrong
// pitches, dropped notes and timing jitter. It returns the number of
// altered notes.
func (g *Generator) Performance(sheet analysis.SheetMusicAnalysis, i, total int) (analysis.AudioAnalysis, int, error) {
	rate := 0.0
	if total > 1 {
		rate = mistakeRate * (1 - float64(i)/float64(total-1))
	}

	notes := make([]music.Note, 0, len(sheet.Notes))
	mistakes := 0
	for _, n := range sheet.Notes {
		played := n
		played.StartTime = max(0, n.StartTime+(g.rng.Float64()*2-1)*maxTimingJitter*rate)
		played.Confidence = 0.9
		if g.rng.Float64() < rate {
			mistakes++
			if g.rng.IntN(3) == 0 {
				continue
			}
			p, err := music.PitchFromMIDI(played.Pitch.MIDI() + 1)
			if err != nil {
				return analysis.AudioAnalysis{}, 0, fmt.Errorf("generate performance: %w", err)
			}
			played.Pitch = p
		}
		notes = append(notes, played)
	}
	if len(notes) == 0 {
		notes = append(notes, sheet.Notes[0])
	}
	return analysis.Complete(analysis.AudioAnalysis{Notes: notes}), mistakes, nil
}
