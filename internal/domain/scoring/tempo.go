package scoring

import "math"

// Tempo ratings.
const (
	RatingExcellent        = "excellent"
	RatingGood             = "good"
	RatingFair             = "fair"
	RatingNeedsImprovement = "needs_improvement"
)

type tempoBand struct {
	below  float64
	rating string
	score  int
}

// Bands are checked in order with a strict "<", so a value sitting exactly
// on a boundary falls to the next band.
var tempoBands = []tempoBand{
	{below: 5, rating: RatingExcellent, score: 100},
	{below: 10, rating: RatingGood, score: 85},
	{below: 15, rating: RatingFair, score: 70},
}

const (
	tempoFallbackScore   = 50
	maxPercentDifference = 100.0
)

// TempoDetail carries tempo diagnostics.
type TempoDetail struct {
	ExpectedBPM          float64 `json:"expected_bpm"`
	ActualBPM            float64 `json:"actual_bpm"`
	DifferenceBPM        float64 `json:"difference_bpm"`
	PercentageDifference float64 `json:"percentage_difference"`
	Rating               string  `json:"rating"`
}

// TempoScore is the tempo dimension result.
type TempoScore struct {
	Score  int         `json:"score"`
	Detail TempoDetail `json:"detail"`
}

// ScoreTempo rates the performed tempo against the expected one. An
// expected tempo of zero cannot be compared and scores 0.
func ScoreTempo(expected, performed float64) TempoScore {
	diff := math.Abs(expected - performed)
	d := TempoDetail{
		ExpectedBPM:   round(expected, 1),
		ActualBPM:     round(performed, 1),
		DifferenceBPM: round(diff, 1),
	}
	if expected == 0 {
		d.PercentageDifference = maxPercentDifference
		d.Rating = RatingNeedsImprovement
		return TempoScore{Score: 0, Detail: d}
	}

	pct := 100 * diff / expected
	d.PercentageDifference = round(pct, 2)
	for _, b := range tempoBands {
		if pct < b.below {
			d.Rating = b.rating
			return TempoScore{Score: b.score, Detail: d}
		}
	}
	d.Rating = RatingNeedsImprovement
	return TempoScore{Score: tempoFallbackScore, Detail: d}
}
