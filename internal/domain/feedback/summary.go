package feedback

import (
	"fmt"
	"strings"
)

const strengthThreshold = 80

var bands = []struct {
	min   int
	label string
}{
	{90, "outstanding"},
	{80, "very good"},
	{70, "good"},
	{60, "fair"},
}

// Band names the performance level of an overall score.
func Band(overall int) string {
	for _, b := range bands {
		if overall >= b.min {
			return b.label
		}
	}
	return "needs improvement"
}

// Summary renders the one-paragraph overview of an evaluation.
func Summary(overall, pitch, rhythm, tempo int) string {
	s := fmt.Sprintf("Your performance was %s with an overall score of %d/100.", Band(overall), overall)

	var strengths []string
	if pitch >= strengthThreshold {
		strengths = append(strengths, "pitch accuracy")
	}
	if rhythm >= strengthThreshold {
		strengths = append(strengths, "rhythmic consistency")
	}
	if tempo >= strengthThreshold {
		strengths = append(strengths, "tempo control")
	}
	if len(strengths) > 0 {
		s += " Your strengths include: " + strings.Join(strengths, ", ") + "."
	}
	return s
}
