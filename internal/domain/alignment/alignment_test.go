package alignment_test

import (
	"errors"
	"math"
	"testing"

	"github.com/masterofmagic999/mugic/internal/domain/alignment"
	"github.com/masterofmagic999/mugic/internal/domain/music"
	. "github.com/smartystreets/goconvey/convey"
)

func n(p string, start float64) music.Note {
	return music.Note{Pitch: music.Pitch(p), StartTime: start, Duration: 0.5}
}

func kinds(ms []alignment.Match) []alignment.Kind {
	out := make([]alignment.Kind, len(ms))
	for i, m := range ms {
		out[i] = m.Kind
	}
	return out
}

func TestAlign(t *testing.T) {
	Convey("Given the C4 D4 E4 phrase played as C4 D4 F4", t, func() {
		expected := []music.Note{n("C4", 0.0), n("D4", 0.5), n("E4", 1.0)}
		performed := []music.Note{n("C4", 0.02), n("D4", 0.51), n("F4", 1.05)}

		matches, err := alignment.Align(expected, performed)

		Convey("Then two notes are correct and one has the wrong pitch", func() {
			So(err, ShouldBeNil)
			So(kinds(matches), ShouldResemble, []alignment.Kind{
				alignment.MatchedCorrect, alignment.MatchedCorrect, alignment.MatchedWrongPitch,
			})
			So(matches[2].Expected.Pitch, ShouldEqual, music.Pitch("E4"))
			So(matches[2].Performed.Pitch, ShouldEqual, music.Pitch("F4"))
			So(matches[2].TimeDelta, ShouldAlmostEqual, 0.05, 1e-9)
		})
	})

	Convey("Given empty sequences", t, func() {
		Convey("When nothing was expected", func() {
			matches, err := alignment.Align(nil, []music.Note{n("C4", 0), n("D4", 1)})
			So(err, ShouldBeNil)
			So(kinds(matches), ShouldResemble, []alignment.Kind{alignment.Extra, alignment.Extra})
			So(matches[0].ExpectedIndex, ShouldEqual, -1)
		})

		Convey("When nothing was played", func() {
			matches, err := alignment.Align([]music.Note{n("C4", 0), n("D4", 1)}, nil)
			So(err, ShouldBeNil)
			So(kinds(matches), ShouldResemble, []alignment.Kind{alignment.Missing, alignment.Missing})
			So(matches[1].PerformedIndex, ShouldEqual, -1)
		})

		Convey("When both are empty", func() {
			matches, err := alignment.Align(nil, nil)
			So(err, ShouldBeNil)
			So(matches, ShouldBeEmpty)
		})
	})

	Convey("Given candidates at equal distance", t, func() {
		expected := []music.Note{n("C4", 1.0)}
		performed := []music.Note{n("D4", 0.75), n("C4", 1.25)}

		matches, _ := alignment.Align(expected, performed)

		Convey("Then the earlier performed note wins", func() {
			So(matches[0].PerformedIndex, ShouldEqual, 0)
			So(matches[0].Kind, ShouldEqual, alignment.MatchedWrongPitch)
			So(matches[1].Kind, ShouldEqual, alignment.Extra)
			So(matches[1].PerformedIndex, ShouldEqual, 1)
		})
	})

	Convey("Given a performed note outside the window", t, func() {
		matches, _ := alignment.Align([]music.Note{n("C4", 0)}, []music.Note{n("C4", 0.6)})
		So(kinds(matches), ShouldResemble, []alignment.Kind{alignment.Missing, alignment.Extra})

		Convey("When the window is widened", func() {
			matches, _ := alignment.Align([]music.Note{n("C4", 0)}, []music.Note{n("C4", 0.6)}, alignment.WithWindow(1))
			So(kinds(matches), ShouldResemble, []alignment.Kind{alignment.MatchedCorrect})
		})

		Convey("When the note sits exactly on the window edge", func() {
			matches, _ := alignment.Align([]music.Note{n("C4", 0.1)}, []music.Note{n("C4", 0.6)})
			So(kinds(matches), ShouldResemble, []alignment.Kind{alignment.MatchedCorrect})
		})
	})

	Convey("Given a later expected note whose nearest candidate was already passed", t, func() {
		expected := []music.Note{n("C4", 0.3), n("D4", 0.4)}
		performed := []music.Note{n("D4", 0.0), n("C4", 0.3)}

		matches, err := alignment.Align(expected, performed)

		Convey("Then it is not matched backwards across the previous pair", func() {
			So(err, ShouldBeNil)
			So(kinds(matches), ShouldResemble, []alignment.Kind{
				alignment.MatchedCorrect, alignment.Missing, alignment.Extra,
			})
			So(matches[0].PerformedIndex, ShouldEqual, 1)
			So(matches[2].PerformedIndex, ShouldEqual, 0)
		})
	})

	Convey("Given malformed notes", t, func() {
		bad := music.Note{Pitch: "C4", StartTime: math.NaN(), Duration: 0.5}

		matches, err := alignment.Align([]music.Note{n("C4", 0)}, []music.Note{bad})

		Convey("Then no matches are returned with a validation error", func() {
			So(matches, ShouldBeNil)
			var verr *music.ValidationError
			So(errors.As(err, &verr), ShouldBeTrue)
			So(verr.Sequence, ShouldEqual, "performed")
		})
	})
}

func TestAlignInvariants(t *testing.T) {
	Convey("Given a dense, irregular performance", t, func() {
		var expected, performed []music.Note
		names := []string{"C4", "D4", "E4", "F4", "G4", "A4", "B4"}
		for i := 0; i < 40; i++ {
			expected = append(expected, n(names[i%7], float64(i)*0.25))
		}
		for i := 0; i < 47; i++ {
			jitter := math.Sin(float64(i)) * 0.2
			start := math.Max(0, float64(i)*0.22+jitter)
			performed = append(performed, n(names[(i*3)%7], start))
		}

		first, err := alignment.Align(expected, performed)
		So(err, ShouldBeNil)

		Convey("Then every note appears in exactly one match", func() {
			seenE := map[int]int{}
			seenP := map[int]int{}
			for _, m := range first {
				if m.ExpectedIndex >= 0 {
					seenE[m.ExpectedIndex]++
				}
				if m.PerformedIndex >= 0 {
					seenP[m.PerformedIndex]++
				}
			}
			So(len(seenE), ShouldEqual, len(expected))
			So(len(seenP), ShouldEqual, len(performed))
			for _, c := range seenE {
				So(c, ShouldEqual, 1)
			}
			for _, c := range seenP {
				So(c, ShouldEqual, 1)
			}
		})

		Convey("Then matched pairs are monotonic", func() {
			lastE, lastP := -1, -1
			for _, m := range first {
				if !m.Matched() {
					continue
				}
				So(m.ExpectedIndex, ShouldBeGreaterThan, lastE)
				So(m.PerformedIndex, ShouldBeGreaterThan, lastP)
				lastE, lastP = m.ExpectedIndex, m.PerformedIndex
			}
		})

		Convey("Then re-running yields identical matches", func() {
			second, _ := alignment.Align(expected, performed)
			So(second, ShouldResemble, first)
		})

		Convey("Then counts add up", func() {
			c := alignment.Count(first)
			So(c.Expected(), ShouldEqual, len(expected))
			So(c.Performed(), ShouldEqual, len(performed))
		})
	})
}
