package music_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/masterofmagic999/mugic/internal/domain/music"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPitchConversions(t *testing.T) {
	Convey("Given pitch conversions", t, func() {
		Convey("When converting MIDI numbers", func() {
			c4, err := music.PitchFromMIDI(60)
			So(err, ShouldBeNil)
			So(c4, ShouldEqual, music.Pitch("C4"))

			fs3, _ := music.PitchFromMIDI(54)
			So(fs3, ShouldEqual, music.Pitch("F#3"))

			_, err = music.PitchFromMIDI(128)
			So(errors.Is(err, music.ErrInvalidPitch), ShouldBeTrue)
		})

		Convey("When converting frequencies", func() {
			a4, err := music.PitchFromFrequency(440)
			So(err, ShouldBeNil)
			So(a4, ShouldEqual, music.Pitch("A4"))

			c4, _ := music.PitchFromFrequency(261.63)
			So(c4, ShouldEqual, music.Pitch("C4"))

			f4, _ := music.PitchFromFrequency(349.23)
			So(f4, ShouldEqual, music.Pitch("F4"))

			_, err = music.PitchFromFrequency(0)
			So(err, ShouldNotBeNil)
			_, err = music.PitchFromFrequency(math.NaN())
			So(err, ShouldNotBeNil)
		})

		Convey("When parsing names", func() {
			for in, want := range map[string]music.Pitch{
				"C4":  "C4",
				"c#4": "C#4",
				"Db4": "C#4",
				"F♯3": "F#3",
				"Cb4": "B3",
				"B#3": "C4",
			} {
				got, err := music.ParsePitch(in)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, want)
			}

			_, err := music.ParsePitch("H2")
			So(err, ShouldNotBeNil)
			_, err = music.ParsePitch("C")
			So(err, ShouldNotBeNil)
		})

		Convey("Then MIDI and Valid agree with the canonical form", func() {
			So(music.Pitch("C4").MIDI(), ShouldEqual, 60)
			So(music.Pitch("Db4").Valid(), ShouldBeFalse)
			So(music.Pitch("C#4").Valid(), ShouldBeTrue)
			So(music.Pitch("??").MIDI(), ShouldEqual, -1)
		})
	})
}

func TestNoteJSON(t *testing.T) {
	Convey("Given notes encoded in different shapes", t, func() {
		raw := `[
			{"pitch":"Eb4","start_time":0,"duration":0.5},
			{"pitch":62,"start_time":0.5,"duration":0.5},
			{"midi":64,"start_time":1.0,"duration":0.5},
			{"frequency":349.23,"start_time":1.5,"duration":0.5,"confidence":0.8}
		]`
		var notes []music.Note
		err := json.Unmarshal([]byte(raw), &notes)

		Convey("Then every pitch resolves to its canonical name", func() {
			So(err, ShouldBeNil)
			So(notes, ShouldHaveLength, 4)
			So(notes[0].Pitch, ShouldEqual, music.Pitch("D#4"))
			So(notes[1].Pitch, ShouldEqual, music.Pitch("D4"))
			So(notes[2].Pitch, ShouldEqual, music.Pitch("E4"))
			So(notes[3].Pitch, ShouldEqual, music.Pitch("F4"))
			So(notes[3].EffectiveConfidence(), ShouldEqual, 0.8)
			So(notes[0].EffectiveConfidence(), ShouldEqual, 1.0)
		})
	})
}

func TestNoteValidation(t *testing.T) {
	Convey("Given a sequence of notes", t, func() {
		good := music.Note{Pitch: "C4", StartTime: 0, Duration: 0.5}

		Convey("When all notes are well formed", func() {
			So(music.ValidateNotes("expected", []music.Note{good, good}), ShouldBeNil)
		})

		Convey("When a note has a negative duration", func() {
			bad := good
			bad.Duration = -1
			err := music.ValidateNotes("performed", []music.Note{good, bad})

			Convey("Then a ValidationError names its position", func() {
				var verr *music.ValidationError
				So(errors.As(err, &verr), ShouldBeTrue)
				So(verr.Index, ShouldEqual, 1)
				So(verr.Field, ShouldEqual, "duration")
				So(errors.Is(err, music.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When a note has a NaN start time", func() {
			bad := good
			bad.StartTime = math.NaN()
			err := music.ValidateNotes("expected", []music.Note{bad})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "start_time")
		})

		Convey("When a note has an unknown pitch or bad confidence", func() {
			So(music.ValidateNotes("expected", []music.Note{{Pitch: "X9", Duration: 1}}), ShouldNotBeNil)
			So(music.ValidateNotes("expected", []music.Note{{Pitch: "C4", Duration: 1, Confidence: 1.5}}), ShouldNotBeNil)
		})

		Convey("When a note spells a valid pitch in a non-canonical form", func() {
			err := music.ValidateNotes("expected", []music.Note{{Pitch: "Db4", Duration: 1}})

			Convey("Then the error points at the canonical spelling", func() {
				var verr *music.ValidationError
				So(errors.As(err, &verr), ShouldBeTrue)
				So(verr.Field, ShouldEqual, "pitch")
				So(verr.Reason, ShouldEqual, "must be in canonical sharp form: Db4 is written C#4")
				So(err.Error(), ShouldNotContainSubstring, "not a recognised")
			})
		})

		Convey("When a note has a pitch that does not parse", func() {
			err := music.ValidateNotes("expected", []music.Note{{Pitch: "H9", Duration: 1}})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "not a recognised pitch name: H9")
		})

		Convey("When validating tempos", func() {
			So(music.ValidateTempo("audio", 120), ShouldBeNil)
			So(music.ValidateTempo("audio", 0), ShouldBeNil)
			So(music.ValidateTempo("audio", -3), ShouldNotBeNil)
			So(music.ValidateTempo("audio", math.Inf(1)), ShouldNotBeNil)
		})
	})
}

func TestSortAndIntervals(t *testing.T) {
	Convey("Given unsorted notes with simultaneous onsets", t, func() {
		notes := []music.Note{
			{Pitch: "E4", StartTime: 1.0, Duration: 0.5},
			{Pitch: "C4", StartTime: 0.0, Duration: 0.5},
			{Pitch: "G4", StartTime: 0.0, Duration: 0.5},
		}
		sorted := music.SortByStart(notes)

		Convey("Then ties keep their original order and the input is untouched", func() {
			So(sorted[0].Pitch, ShouldEqual, music.Pitch("C4"))
			So(sorted[1].Pitch, ShouldEqual, music.Pitch("G4"))
			So(sorted[2].Pitch, ShouldEqual, music.Pitch("E4"))
			So(notes[0].Pitch, ShouldEqual, music.Pitch("E4"))
		})

		Convey("Then intervals are measured between neighbours", func() {
			So(music.InterOnsetIntervals(sorted), ShouldResemble, []float64{0, 1.0})
			So(music.InterOnsetIntervals(sorted[:1]), ShouldBeNil)
		})
	})
}

func TestDynamicLevels(t *testing.T) {
	Convey("Given dynamic levels", t, func() {
		So(music.PPP.Rank(), ShouldEqual, 0)
		So(music.FFF.Rank(), ShouldEqual, 7)
		So(music.DynamicLevel("loud").Valid(), ShouldBeFalse)

		Convey("When validating a series", func() {
			ok := []music.DynamicSample{{Time: 0, DB: -30, Level: music.MF}}
			So(music.ValidateDynamics(ok), ShouldBeNil)

			bad := []music.DynamicSample{{Time: 0, DB: -30, Level: "loud"}}
			err := music.ValidateDynamics(bad)
			So(errors.Is(err, music.ErrInvalidInput), ShouldBeTrue)
		})
	})
}

func TestNormalizeInstrument(t *testing.T) {
	Convey("Given instrument names", t, func() {
		id, ok := music.NormalizeInstrument("")
		So(ok, ShouldBeTrue)
		So(id, ShouldEqual, music.DefaultInstrument)

		id, ok = music.NormalizeInstrument(" French_Horn ")
		So(ok, ShouldBeTrue)
		So(id, ShouldEqual, "french_horn")

		_, ok = music.NormalizeInstrument("kazoo")
		So(ok, ShouldBeFalse)
	})
}
