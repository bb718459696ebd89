package music

import "strings"

// DefaultInstrument is assumed when a session names none.
const DefaultInstrument = "piano"

// Instrument is one entry of the supported catalogue.
type Instrument struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Instruments is the fixed catalogue, grouped by category.
var Instruments = []Instrument{
	{"piano", "Piano", "keyboard"},

	{"flute", "Flute", "woodwind"},
	{"piccolo", "Piccolo", "woodwind"},
	{"clarinet", "Clarinet", "woodwind"},
	{"bass_clarinet", "Bass Clarinet", "woodwind"},
	{"oboe", "Oboe", "woodwind"},
	{"bassoon", "Bassoon", "woodwind"},
	{"saxophone_soprano", "Soprano Saxophone", "woodwind"},
	{"saxophone_alto", "Alto Saxophone", "woodwind"},
	{"saxophone_tenor", "Tenor Saxophone", "woodwind"},
	{"saxophone_baritone", "Baritone Saxophone", "woodwind"},

	{"trumpet", "Trumpet", "brass"},
	{"cornet", "Cornet", "brass"},
	{"french_horn", "French Horn", "brass"},
	{"trombone", "Trombone", "brass"},
	{"euphonium", "Euphonium", "brass"},
	{"tuba", "Tuba", "brass"},

	{"xylophone", "Xylophone", "percussion"},
	{"marimba", "Marimba", "percussion"},
	{"vibraphone", "Vibraphone", "percussion"},
	{"glockenspiel", "Glockenspiel", "percussion"},
	{"timpani", "Timpani", "percussion"},
}

// NormalizeInstrument returns the catalogue id for s, DefaultInstrument for
// an empty s, and false when s is not in the catalogue.
func NormalizeInstrument(s string) (string, bool) {
	id := strings.ToLower(strings.TrimSpace(s))
	if id == "" {
		return DefaultInstrument, true
	}
	for _, in := range Instruments {
		if in.ID == id {
			return id, true
		}
	}
	return "", false
}
