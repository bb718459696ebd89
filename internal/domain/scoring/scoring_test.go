package scoring_test

import (
	"testing"

	"github.com/masterofmagic999/mugic/internal/domain/alignment"
	"github.com/masterofmagic999/mugic/internal/domain/music"
	"github.com/masterofmagic999/mugic/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func note(p string, start float64) music.Note {
	return music.Note{Pitch: music.Pitch(p), StartTime: start, Duration: 0.5}
}

func align(expected, performed []music.Note) []alignment.Match {
	m, err := alignment.Align(expected, performed)
	if err != nil {
		panic(err)
	}
	return m
}

func intp(v int) *int { return &v }

func TestScorePitch(t *testing.T) {
	Convey("Given the C4 D4 E4 phrase played as C4 D4 F4", t, func() {
		res := scoring.ScorePitch(align(
			[]music.Note{note("C4", 0), note("D4", 0.5), note("E4", 1.0)},
			[]music.Note{note("C4", 0.02), note("D4", 0.51), note("F4", 1.05)},
		))

		Convey("Then accuracy is 66.67 and the score rounds to 67", func() {
			So(res.Score, ShouldEqual, 67)
			So(res.Detail.CorrectNotes, ShouldEqual, 2)
			So(res.Detail.TotalNotes, ShouldEqual, 3)
			So(res.Detail.Accuracy, ShouldEqual, 66.67)
			So(res.Detail.Errors, ShouldHaveLength, 1)
			So(res.Detail.Errors[0].Expected, ShouldEqual, music.Pitch("E4"))
			So(res.Detail.Errors[0].Played, ShouldEqual, "F4")
			So(res.Detail.Errors[0].Position, ShouldEqual, 2)
			So(res.Detail.MispitchedNotes, ShouldResemble, []music.Pitch{"E4"})
		})
	})

	Convey("Given a perfect performance", t, func() {
		notes := []music.Note{note("C4", 0), note("D4", 0.5)}
		res := scoring.ScorePitch(align(notes, notes))
		So(res.Score, ShouldEqual, 100)
		So(res.Detail.Errors, ShouldBeEmpty)
		So(res.Detail.ExtraNotes, ShouldEqual, 0)
	})

	Convey("Given an empty performance", t, func() {
		res := scoring.ScorePitch(align([]music.Note{note("C4", 0), note("D4", 0.5)}, nil))
		So(res.Score, ShouldEqual, 0)
		So(res.Detail.Errors[0].Played, ShouldEqual, scoring.PlayedMissing)
	})

	Convey("Given nothing expected", t, func() {
		res := scoring.ScorePitch(align(nil, []music.Note{note("C4", 0)}))

		Convey("Then zero of zero scores 0 and the extra note is counted", func() {
			So(res.Score, ShouldEqual, 0)
			So(res.Detail.Accuracy, ShouldEqual, 0.0)
			So(res.Detail.ExtraNotes, ShouldEqual, 1)
		})
	})

	Convey("Given many missing notes", t, func() {
		var expected []music.Note
		for i := 0; i < 15; i++ {
			expected = append(expected, note("G4", float64(i)))
		}
		expected = append(expected, note("A4", 15))
		res := scoring.ScorePitch(align(expected, nil))

		Convey("Then at most ten errors are reported but every pitch is named", func() {
			So(res.Detail.Errors, ShouldHaveLength, 10)
			So(res.Detail.MispitchedNotes, ShouldResemble, []music.Pitch{"G4", "A4"})
		})
	})
}

func TestScoreRhythm(t *testing.T) {
	Convey("Given a steady performance at the right tempo", t, func() {
		res := scoring.ScoreRhythm(scoring.RhythmInput{
			ExpectedTempo:       120,
			PerformedTempo:      121,
			InterOnsetIntervals: []float64{0.5, 0.5, 0.5},
		})
		So(res.Score, ShouldEqual, 100)
		So(res.Detail.RhythmConsistency, ShouldEqual, scoring.ConsistencyGood)
		So(res.Detail.Issues, ShouldBeEmpty)
	})

	Convey("Given tempo gaps", t, func() {
		Convey("When the gap is above 10 BPM only the larger penalty applies", func() {
			res := scoring.ScoreRhythm(scoring.RhythmInput{ExpectedTempo: 120, PerformedTempo: 100})
			So(res.Score, ShouldEqual, 80)
			So(res.Detail.TempoDifference, ShouldEqual, 20.0)
		})

		Convey("When the gap is between 5 and 10 BPM", func() {
			res := scoring.ScoreRhythm(scoring.RhythmInput{ExpectedTempo: 120, PerformedTempo: 113})
			So(res.Score, ShouldEqual, 90)
			So(res.Detail.Issues, ShouldResemble, []string{scoring.IssueTempoInconsistent})
		})

		Convey("When the gap is exactly 5 BPM", func() {
			res := scoring.ScoreRhythm(scoring.RhythmInput{ExpectedTempo: 120, PerformedTempo: 115})
			So(res.Score, ShouldEqual, 100)
		})
	})

	Convey("Given uneven onsets", t, func() {
		res := scoring.ScoreRhythm(scoring.RhythmInput{
			ExpectedTempo:       120,
			PerformedTempo:      100,
			InterOnsetIntervals: []float64{0.2, 0.9, 0.3, 1.0},
		})

		Convey("Then both penalties stack and consistency needs work", func() {
			So(res.Score, ShouldEqual, 65)
			So(res.Detail.RhythmConsistency, ShouldEqual, scoring.ConsistencyNeedsWork)
			So(res.Detail.Issues, ShouldResemble, []string{scoring.IssueTempoInconsistent, scoring.IssueUnevenRhythm})
		})
	})

	Convey("Given only a precomputed std", t, func() {
		res := scoring.ScoreRhythm(scoring.RhythmInput{ExpectedTempo: 90, PerformedTempo: 90, StdIOI: 0.12})
		So(res.Score, ShouldEqual, 100)
		So(res.Detail.RhythmConsistency, ShouldEqual, scoring.ConsistencyNeedsWork)
	})

	Convey("Given population standard deviation", t, func() {
		So(scoring.StdDev(nil), ShouldEqual, 0.0)
		So(scoring.StdDev([]float64{1, 3}), ShouldEqual, 1.0)
	})
}

func TestScoreTempo(t *testing.T) {
	Convey("Given tempo band boundaries", t, func() {
		cases := []struct {
			performed float64
			rating    string
			score     int
		}{
			{100, scoring.RatingExcellent, 100},
			{104, scoring.RatingExcellent, 100},
			{105, scoring.RatingGood, 85},
			{90, scoring.RatingFair, 70},
			{115, scoring.RatingNeedsImprovement, 50},
			{150, scoring.RatingNeedsImprovement, 50},
		}
		for _, c := range cases {
			res := scoring.ScoreTempo(100, c.performed)
			So(res.Detail.Rating, ShouldEqual, c.rating)
			So(res.Score, ShouldEqual, c.score)
		}
	})

	Convey("Given a detailed comparison", t, func() {
		res := scoring.ScoreTempo(120, 108.04)
		So(res.Detail.ExpectedBPM, ShouldEqual, 120.0)
		So(res.Detail.ActualBPM, ShouldEqual, 108.0)
		So(res.Detail.DifferenceBPM, ShouldEqual, 12.0)
		So(res.Detail.PercentageDifference, ShouldEqual, 9.97)
		So(res.Detail.Rating, ShouldEqual, scoring.RatingGood)
	})

	Convey("Given an unknown expected tempo", t, func() {
		res := scoring.ScoreTempo(0, 100)
		So(res.Score, ShouldEqual, 0)
		So(res.Detail.Rating, ShouldEqual, scoring.RatingNeedsImprovement)
		So(res.Detail.PercentageDifference, ShouldEqual, 100.0)
	})
}

func TestScoreDynamics(t *testing.T) {
	Convey("Given p, mf and ff across 35 dB", t, func() {
		// Three levels earn the range bonus only; the level bonus needs four.
		res := scoring.ScoreDynamics([]music.DynamicSample{
			{Time: 0, DB: -45, Level: music.P},
			{Time: 1, DB: -25, Level: music.MF},
			{Time: 2, DB: -10, Level: music.FF},
		})
		So(res.Score, ShouldEqual, 85)
		So(res.Detail.RangeDB, ShouldEqual, 35.0)
		So(res.Detail.Variety, ShouldEqual, scoring.VarietyGood)
		So(res.Detail.Range, ShouldEqual, scoring.RangeWide)
	})

	Convey("Given four levels across 35 dB", t, func() {
		res := scoring.ScoreDynamics([]music.DynamicSample{
			{Time: 0, DB: -10, Level: music.FF},
			{Time: 1, DB: -45, Level: music.P},
			{Time: 2, DB: -25, Level: music.MF},
			{Time: 3, DB: -35, Level: music.MP},
		})

		Convey("Then both bonuses apply and levels are listed soft to loud", func() {
			So(res.Score, ShouldEqual, 100)
			So(res.Detail.LevelsUsed, ShouldResemble, []music.DynamicLevel{music.P, music.MP, music.MF, music.FF})
		})
	})

	Convey("Given a narrow series", t, func() {
		res := scoring.ScoreDynamics([]music.DynamicSample{
			{Time: 0, DB: -22, Level: music.MF},
			{Time: 1, DB: -25, Level: music.MF},
		})
		So(res.Score, ShouldEqual, 70)
		So(res.Detail.Variety, ShouldEqual, scoring.VarietyLimited)
	})

	Convey("Given no samples", t, func() {
		res := scoring.ScoreDynamics(nil)
		So(res.Score, ShouldEqual, 50)
		So(res.Detail.Range, ShouldEqual, scoring.RangeLimited)
		So(res.Detail.Control, ShouldEqual, scoring.ControlUnknown)
	})
}

func TestAggregate(t *testing.T) {
	Convey("Given dimension scores", t, func() {
		Convey("When dynamics is disabled and all scores are 80", func() {
			So(scoring.Aggregate(80, 80, 80, nil), ShouldEqual, 80)
		})

		Convey("When dynamics is disabled the sum is divided by 0.9", func() {
			// (90*0.4 + 60*0.3 + 50*0.2) / 0.9 = 64 / 0.9 = 71.1
			So(scoring.Aggregate(90, 60, 50, nil), ShouldEqual, 71)
		})

		Convey("When dynamics is present", func() {
			// 90*0.4 + 60*0.3 + 50*0.2 + 100*0.1 = 74
			So(scoring.Aggregate(90, 60, 50, intp(100)), ShouldEqual, 74)
			So(scoring.Aggregate(100, 100, 100, intp(100)), ShouldEqual, 100)
			So(scoring.Aggregate(0, 0, 0, intp(0)), ShouldEqual, 0)
		})
	})
}
