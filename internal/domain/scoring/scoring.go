// Package scoring turns aligned notes and analysis data into 0-100 scores
// for pitch, rhythm, tempo and dynamics, and combines them into one overall
// score.
package scoring

import "math"

// Score bounds.
const (
	minScore = 0
	maxScore = 100
)

// Aggregation weights.
const (
	PitchWeight    = 0.4
	RhythmWeight   = 0.3
	TempoWeight    = 0.2
	DynamicsWeight = 0.1

	// withoutDynamics is the weight left when dynamics is disabled.
	withoutDynamics = 0.9
)

// Aggregate combines dimension scores into the overall score. When dynamics
// is nil the three remaining terms are divided by 0.9 so that their weights
// sum to one again.
func Aggregate(pitch, rhythm, tempo int, dynamics *int) int {
	sum := float64(pitch)*PitchWeight + float64(rhythm)*RhythmWeight + float64(tempo)*TempoWeight
	if dynamics != nil {
		return clamp(int(math.Round(sum + float64(*dynamics)*DynamicsWeight)))
	}
	return clamp(int(math.Round(sum / withoutDynamics)))
}

func clamp(score int) int {
	if score < minScore {
		return minScore
	}
	if score > maxScore {
		return maxScore
	}
	return score
}

// round rounds f to the given number of decimals.
func round(f float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(f*p) / p
}
