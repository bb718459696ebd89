package analysis

import (
	"math"
	"sort"

	"github.com/masterofmagic999/mugic/internal/domain/music"
	"github.com/masterofmagic999/mugic/internal/domain/scoring"
)

// Tempo estimation bounds.
const (
	DefaultTempo = 120.0
	minTempo     = 40.0
	maxTempo     = 240.0
	// Intervals at or below this are treated as chord spread, not beats.
	minBeatInterval = 0.1
	epsilon         = 1e-6
)

// TempoFromOnsets estimates BPM as 60 over the median inter-onset interval,
// clamped to 40..240. It returns DefaultTempo when no usable interval exists.
func TempoFromOnsets(onsets []float64) float64 {
	var iois []float64
	for i := 1; i < len(onsets); i++ {
		if d := onsets[i] - onsets[i-1]; d > minBeatInterval {
			iois = append(iois, d)
		}
	}
	if len(iois) == 0 {
		return DefaultTempo
	}
	tempo := 60 / median(iois)
	return math.Max(minTempo, math.Min(maxTempo, tempo))
}

// RhythmFromNotes sorts notes by onset and computes their rhythm statistics.
func RhythmFromNotes(notes []music.Note) Rhythm {
	return RhythmFromOnsets(Onsets(notes))
}

// Onsets returns the start times of notes in time order.
func Onsets(notes []music.Note) []float64 {
	sorted := music.SortByStart(notes)
	onsets := make([]float64, len(sorted))
	for i, n := range sorted {
		onsets[i] = n.StartTime
	}
	return onsets
}

// RhythmFromOnsets computes inter-onset statistics of sorted onsets. Consistency is
// 1 - std/mean, floored at zero.
func RhythmFromOnsets(onsets []float64) Rhythm {
	if len(onsets) < 2 {
		return Rhythm{InterOnsetIntervals: []float64{}}
	}
	iois := make([]float64, 0, len(onsets)-1)
	var sum float64
	for i := 1; i < len(onsets); i++ {
		d := onsets[i] - onsets[i-1]
		iois = append(iois, d)
		sum += d
	}
	mean := sum / float64(len(iois))
	std := scoring.StdDev(iois)
	return Rhythm{
		InterOnsetIntervals: iois,
		MeanIOI:             mean,
		StdIOI:              std,
		Consistency:         math.Max(0, 1-std/(mean+epsilon)),
	}
}

// ClassifyLevel maps a loudness in dBFS to a dynamic marking.
func ClassifyLevel(db float64) music.DynamicLevel {
	switch {
	case db > -10:
		return music.FF
	case db > -20:
		return music.F
	case db > -30:
		return music.MF
	case db > -40:
		return music.MP
	case db > -50:
		return music.P
	default:
		return music.PP
	}
}

func median(xs []float64) float64 {
	s := make([]float64, len(xs))
	copy(s, xs)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 0 {
		return (s[mid-1] + s[mid]) / 2
	}
	return s[mid]
}
