package scoring

import "math"

// Rhythm thresholds and penalties.
const (
	rhythmLargeTempoGap  = 10.0
	rhythmSmallTempoGap  = 5.0
	rhythmLargePenalty   = 20
	rhythmSmallPenalty   = 10
	unevenIOIThreshold   = 0.15
	unevenRhythmPenalty  = 15
	goodConsistencyBelow = 0.10
)

// Rhythm consistency labels.
const (
	ConsistencyGood      = "good"
	ConsistencyNeedsWork = "needs_work"
)

// Rhythm issue codes.
const (
	IssueTempoInconsistent = "tempo_inconsistent"
	IssueUnevenRhythm      = "uneven_rhythm"
)

// RhythmInput is what the rhythm scorer needs. When InterOnsetIntervals is
// empty, StdIOI is taken as already computed by the audio analyzer.
type RhythmInput struct {
	ExpectedTempo       float64
	PerformedTempo      float64
	InterOnsetIntervals []float64
	StdIOI              float64
}

// RhythmDetail carries rhythm diagnostics.
type RhythmDetail struct {
	TempoDifference   float64  `json:"tempo_difference"`
	StdIOI            float64  `json:"std_ioi"`
	RhythmConsistency string   `json:"rhythm_consistency"`
	Issues            []string `json:"issues"`
}

// RhythmScore is the rhythm dimension result.
type RhythmScore struct {
	Score  int          `json:"score"`
	Detail RhythmDetail `json:"detail"`
}

// ScoreRhythm scores tempo steadiness and onset regularity.
func ScoreRhythm(in RhythmInput) RhythmScore {
	std := in.StdIOI
	if len(in.InterOnsetIntervals) > 0 {
		std = StdDev(in.InterOnsetIntervals)
	}
	gap := math.Abs(in.ExpectedTempo - in.PerformedTempo)

	score := maxScore
	issues := []string{}
	switch {
	case gap > rhythmLargeTempoGap:
		score -= rhythmLargePenalty
		issues = append(issues, IssueTempoInconsistent)
	case gap > rhythmSmallTempoGap:
		score -= rhythmSmallPenalty
		issues = append(issues, IssueTempoInconsistent)
	}
	if std > unevenIOIThreshold {
		score -= unevenRhythmPenalty
		issues = append(issues, IssueUnevenRhythm)
	}

	consistency := ConsistencyNeedsWork
	if std < goodConsistencyBelow {
		consistency = ConsistencyGood
	}

	return RhythmScore{
		Score: clamp(score),
		Detail: RhythmDetail{
			TempoDifference:   round(gap, 2),
			StdIOI:            round(std, 4),
			RhythmConsistency: consistency,
			Issues:            issues,
		},
	}
}

// StdDev returns the population standard deviation of xs (0 when empty).
func StdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return math.Sqrt(ss / float64(len(xs)))
}
