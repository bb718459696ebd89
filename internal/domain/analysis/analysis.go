// Package analysis defines the inputs produced by the sheet-music and audio
// analyzers and the small derivations the engine applies to them.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/masterofmagic999/mugic/internal/domain/music"
)

// RhythmEvent is one notated duration from the score.
type RhythmEvent struct {
	Time     float64 `json:"time"`
	Duration float64 `json:"duration"`
	Type     string  `json:"type,omitempty"` // e.g. "quarter", "eighth"
}

// SheetMusicAnalysis is the reference extracted from a score.
type SheetMusicAnalysis struct {
	Notes         []music.Note  `json:"notes"`
	Rhythms       []RhythmEvent `json:"rhythms,omitempty"`
	Tempo         float64       `json:"tempo"`
	TimeSignature string        `json:"time_signature,omitempty"`
	KeySignature  string        `json:"key_signature,omitempty"`
}

// Rhythm summarises performed onsets.
type Rhythm struct {
	InterOnsetIntervals []float64 `json:"inter_onset_intervals"`
	MeanIOI             float64   `json:"mean_ioi,omitempty"`
	StdIOI              float64   `json:"std_ioi"`
	Consistency         float64   `json:"consistency,omitempty"`
}

// AudioAnalysis is what a transcriber extracted from a recording.
type AudioAnalysis struct {
	Notes    []music.Note          `json:"notes"`
	Tempo    float64               `json:"tempo"`
	Rhythm   Rhythm                `json:"rhythm"`
	Dynamics []music.DynamicSample `json:"dynamics,omitempty"`
}

// Validate checks the reference notes and tempo.
func (s SheetMusicAnalysis) Validate() error {
	if err := music.ValidateNotes("expected", s.Notes); err != nil {
		return err
	}
	return music.ValidateTempo("expected", s.Tempo)
}

// Validate checks every note, tempo and loudness sample.
func (a AudioAnalysis) Validate() error {
	if err := music.ValidateNotes("performed", a.Notes); err != nil {
		return err
	}
	if err := music.ValidateTempo("performed", a.Tempo); err != nil {
		return err
	}
	for i, ioi := range a.Rhythm.InterOnsetIntervals {
		if ioi < 0 || math.IsNaN(ioi) || math.IsInf(ioi, 0) {
			return &music.ValidationError{Sequence: "rhythm", Index: i, Field: "inter_onset_interval", Reason: "must be a non-negative number"}
		}
	}
	return music.ValidateDynamics(a.Dynamics)
}

// SheetMusicAnalyzer extracts a reference from a score document.
type SheetMusicAnalyzer interface {
	AnalyzeSheet(ctx context.Context, r io.Reader) (SheetMusicAnalysis, error)
}

// AudioAnalyzer extracts performed notes from a recording.
type AudioAnalyzer interface {
	AnalyzeAudio(ctx context.Context, r io.Reader) (AudioAnalysis, error)
}

// JSONSheetAnalyzer reads an analysis that was already extracted by an
// external OMR tool and serialised as JSON.
type JSONSheetAnalyzer struct{}

// AnalyzeSheet implements SheetMusicAnalyzer.
func (JSONSheetAnalyzer) AnalyzeSheet(ctx context.Context, r io.Reader) (SheetMusicAnalysis, error) {
	var s SheetMusicAnalysis
	if err := decode(ctx, r, &s); err != nil {
		return SheetMusicAnalysis{}, fmt.Errorf("decode sheet analysis: %w", err)
	}
	return s, nil
}

// JSONAudioAnalyzer reads a transcription that was already extracted by an
// external tool and serialised as JSON. Missing tempo and rhythm fields are
// derived from the notes.
type JSONAudioAnalyzer struct{}

// AnalyzeAudio implements AudioAnalyzer.
func (JSONAudioAnalyzer) AnalyzeAudio(ctx context.Context, r io.Reader) (AudioAnalysis, error) {
	var a AudioAnalysis
	if err := decode(ctx, r, &a); err != nil {
		return AudioAnalysis{}, fmt.Errorf("decode audio analysis: %w", err)
	}
	return Complete(a), nil
}

func decode(ctx context.Context, r io.Reader, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// Complete fills in the tempo and rhythm statistics of a that the
// transcriber left empty, deriving them from the performed notes.
func Complete(a AudioAnalysis) AudioAnalysis {
	onsets := Onsets(a.Notes)
	if a.Tempo == 0 && len(onsets) > 1 {
		a.Tempo = TempoFromOnsets(onsets)
	}
	if len(a.Rhythm.InterOnsetIntervals) == 0 && a.Rhythm.StdIOI == 0 {
		a.Rhythm = RhythmFromOnsets(onsets)
	}
	return a
}
