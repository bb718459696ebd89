package scoring

import (
	"math"
	"sort"

	"github.com/masterofmagic999/mugic/internal/domain/music"
)

const (
	dynamicsBaseScore    = 70
	dynamicsNeutralScore = 50
	dynamicsBonus        = 15
	wideRangeDB          = 30.0
	manyLevels           = 4
	goodVarietyLevels    = 3
)

// Dynamics labels.
const (
	VarietyGood    = "good"
	VarietyLimited = "limited"
	RangeWide      = "wide"
	RangeLimited   = "limited"
	ControlUnknown = "unknown"
	ControlMeasure = "measured"
)

// DynamicsDetail carries dynamics diagnostics.
type DynamicsDetail struct {
	RangeDB    float64              `json:"range_db"`
	LevelsUsed []music.DynamicLevel `json:"levels_used"`
	Variety    string               `json:"variety"`
	Range      string               `json:"range"`
	Control    string               `json:"control"`
}

// DynamicsScore is the dynamics dimension result.
type DynamicsScore struct {
	Score  int            `json:"score"`
	Detail DynamicsDetail `json:"detail"`
}

// ScoreDynamics scores loudness range and the variety of levels used. An
// empty series yields a fixed neutral result.
func ScoreDynamics(samples []music.DynamicSample) DynamicsScore {
	if len(samples) == 0 {
		return DynamicsScore{
			Score: dynamicsNeutralScore,
			Detail: DynamicsDetail{
				LevelsUsed: []music.DynamicLevel{},
				Variety:    VarietyLimited,
				Range:      RangeLimited,
				Control:    ControlUnknown,
			},
		}
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	seen := make(map[music.DynamicLevel]bool)
	levels := []music.DynamicLevel{}
	for _, s := range samples {
		lo = math.Min(lo, s.DB)
		hi = math.Max(hi, s.DB)
		if !seen[s.Level] {
			seen[s.Level] = true
			levels = append(levels, s.Level)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].Rank() < levels[j].Rank() })
	rangeDB := hi - lo

	score := dynamicsBaseScore
	if rangeDB > wideRangeDB {
		score += dynamicsBonus
	}
	if len(levels) >= manyLevels {
		score += dynamicsBonus
	}

	d := DynamicsDetail{
		RangeDB:    round(rangeDB, 2),
		LevelsUsed: levels,
		Variety:    VarietyLimited,
		Range:      RangeLimited,
		Control:    ControlMeasure,
	}
	if len(levels) >= goodVarietyLevels {
		d.Variety = VarietyGood
	}
	if rangeDB > wideRangeDB {
		d.Range = RangeWide
	}
	return DynamicsScore{Score: clamp(score), Detail: d}
}
