// Package music holds the value types shared by the alignment and scoring
// stages: notes, pitches and dynamic levels.
package music

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	semitonesPerOctave = 12
	referenceA4Hz      = 440.0
	referenceA4MIDI    = 69
	maxMIDI            = 127
)

var pitchClasses = [semitonesPerOctave]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var letterOffsets = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// Pitch is a canonical scientific pitch name such as "C4" or "F#3".
// Sharps are always used, so two pitches are equal exactly when their MIDI
// numbers are equal.
type Pitch string

// PitchFromMIDI returns the canonical name of a MIDI note number (60 = C4).
func PitchFromMIDI(n int) (Pitch, error) {
	if n < 0 || n > maxMIDI {
		return "", fmt.Errorf("midi %d out of range: %w", n, ErrInvalidPitch)
	}
	octave := n/semitonesPerOctave - 1
	return Pitch(pitchClasses[n%semitonesPerOctave] + strconv.Itoa(octave)), nil
}

// PitchFromFrequency maps a frequency in Hz to the nearest equal-tempered
// pitch, tuned to A4 = 440 Hz.
func PitchFromFrequency(hz float64) (Pitch, error) {
	if math.IsNaN(hz) || math.IsInf(hz, 0) || hz <= 0 {
		return "", fmt.Errorf("frequency %v: %w", hz, ErrInvalidPitch)
	}
	midi := int(math.Round(referenceA4MIDI + semitonesPerOctave*math.Log2(hz/referenceA4Hz)))
	return PitchFromMIDI(midi)
}

// ParsePitch accepts names like "C4", "c#4", "Db4", "F♯3" or "Bb-1" and
// returns the canonical sharp spelling.
func ParsePitch(s string) (Pitch, error) {
	midi, err := parseMIDI(s)
	if err != nil {
		return "", err
	}
	return PitchFromMIDI(midi)
}

func parseMIDI(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty name: %w", ErrInvalidPitch)
	}
	offset, ok := letterOffsets[strings.ToUpper(s[:1])[0]]
	if !ok {
		return 0, fmt.Errorf("%q: %w", s, ErrInvalidPitch)
	}
	rest := s[1:]
	switch {
	case strings.HasPrefix(rest, "#"):
		offset, rest = offset+1, rest[1:]
	case strings.HasPrefix(rest, "♯"):
		offset, rest = offset+1, strings.TrimPrefix(rest, "♯")
	case strings.HasPrefix(rest, "b"):
		offset, rest = offset-1, rest[1:]
	case strings.HasPrefix(rest, "♭"):
		offset, rest = offset-1, strings.TrimPrefix(rest, "♭")
	}
	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("%q: bad octave: %w", s, ErrInvalidPitch)
	}
	midi := (octave+1)*semitonesPerOctave + offset
	if midi < 0 || midi > maxMIDI {
		return 0, fmt.Errorf("%q out of range: %w", s, ErrInvalidPitch)
	}
	return midi, nil
}

// MIDI returns the MIDI number of p, or -1 when p is not a valid name.
func (p Pitch) MIDI() int {
	n, err := parseMIDI(string(p))
	if err != nil {
		return -1
	}
	return n
}

// Valid reports whether p is already in canonical form.
func (p Pitch) Valid() bool {
	c, err := ParsePitch(string(p))
	return err == nil && c == p
}

func (p Pitch) String() string { return string(p) }

// UnmarshalJSON accepts either a pitch name or a MIDI integer. Names are
// canonicalised; unparseable names are kept verbatim so that validation can
// report them with their position.
func (p *Pitch) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		if c, perr := ParsePitch(name); perr == nil {
			*p = c
		} else {
			*p = Pitch(name)
		}
		return nil
	}
	var midi int
	if err := json.Unmarshal(b, &midi); err != nil {
		return fmt.Errorf("pitch must be a name or midi number: %w", ErrInvalidPitch)
	}
	c, err := PitchFromMIDI(midi)
	if err != nil {
		return err
	}
	*p = c
	return nil
}
