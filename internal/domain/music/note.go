package music

import (
	"encoding/json"
	"math"
	"sort"
)

// Note is one expected or performed note. Notes are values; nothing in the
// engine mutates a Note after it has been built.
type Note struct {
	Pitch     Pitch   `json:"pitch"`
	StartTime float64 `json:"start_time"`
	Duration  float64 `json:"duration"`
	// Confidence is in [0,1]; zero means the producer did not report one.
	Confidence float64 `json:"confidence,omitempty"`
}

// EffectiveConfidence returns Confidence, defaulting to 1.0 when unset.
func (n Note) EffectiveConfidence() float64 {
	if n.Confidence == 0 {
		return 1.0
	}
	return n.Confidence
}

// noteWire is the accepted JSON shape. Transcribers sometimes emit only a
// frequency or a MIDI number instead of a pitch name.
type noteWire struct {
	Pitch      *Pitch   `json:"pitch"`
	MIDI       *int     `json:"midi"`
	Frequency  *float64 `json:"frequency"`
	StartTime  float64  `json:"start_time"`
	Duration   float64  `json:"duration"`
	Confidence float64  `json:"confidence"`
}

// UnmarshalJSON decodes a note, resolving its pitch from "pitch", then
// "midi", then "frequency".
func (n *Note) UnmarshalJSON(b []byte) error {
	var w noteWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*n = Note{StartTime: w.StartTime, Duration: w.Duration, Confidence: w.Confidence}
	switch {
	case w.Pitch != nil:
		n.Pitch = *w.Pitch
	case w.MIDI != nil:
		p, err := PitchFromMIDI(*w.MIDI)
		if err != nil {
			return err
		}
		n.Pitch = p
	case w.Frequency != nil:
		p, err := PitchFromFrequency(*w.Frequency)
		if err != nil {
			return err
		}
		n.Pitch = p
	}
	return nil
}

// Validate checks a single note. sequence and index are only used to label
// the returned *ValidationError.
func (n Note) Validate(sequence string, index int) error {
	fail := func(field, reason string) error {
		return &ValidationError{Sequence: sequence, Index: index, Field: field, Reason: reason}
	}
	switch {
	case n.Pitch == "":
		return fail("pitch", "is empty")
	case !n.Pitch.Valid():
		if canonical, err := ParsePitch(string(n.Pitch)); err == nil {
			return fail("pitch", "must be in canonical sharp form: "+string(n.Pitch)+" is written "+string(canonical))
		}
		return fail("pitch", "is not a recognised pitch name: "+string(n.Pitch))
	case !finite(n.StartTime):
		return fail("start_time", "must be finite")
	case n.StartTime < 0:
		return fail("start_time", "must not be negative")
	case !finite(n.Duration):
		return fail("duration", "must be finite")
	case n.Duration <= 0:
		return fail("duration", "must be positive")
	case !finite(n.Confidence) || n.Confidence < 0 || n.Confidence > 1:
		return fail("confidence", "must be within [0,1]")
	}
	return nil
}

// ValidateNotes validates every note of a sequence and returns the first
// failure.
func ValidateNotes(sequence string, notes []Note) error {
	for i, n := range notes {
		if err := n.Validate(sequence, i); err != nil {
			return err
		}
	}
	return nil
}

// ValidateTempo rejects negative or non-finite tempos. Zero is allowed and
// means "unknown".
func ValidateTempo(name string, bpm float64) error {
	if !finite(bpm) || bpm < 0 {
		return &ValidationError{Sequence: name, Index: -1, Field: "tempo", Reason: "must be a finite non-negative BPM"}
	}
	return nil
}

// SortByStart returns a copy of notes ordered by start time. The sort is
// stable so simultaneous onsets keep their original order.
func SortByStart(notes []Note) []Note {
	out := make([]Note, len(notes))
	copy(out, notes)
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out
}

// InterOnsetIntervals returns the gaps between consecutive onsets of an
// already sorted sequence.
func InterOnsetIntervals(sorted []Note) []float64 {
	if len(sorted) < 2 {
		return nil
	}
	iois := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		iois = append(iois, sorted[i].StartTime-sorted[i-1].StartTime)
	}
	return iois
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
