package recommend

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Generative defaults.
const (
	DefaultTimeout       = 8 * time.Second
	DefaultMinLineLength = 11
	minUsableLines       = 2
	maxGeneratedLines    = 3
)

// SystemPrompt frames the generative backend.
const SystemPrompt = "You are an experienced music teacher. Give short, concrete, encouraging practice advice. Answer with one recommendation per line and no preamble."

// TextGenerator is a text completion backend.
type TextGenerator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
	Name() string
}

// GenerativeSource asks a TextGenerator for advice phrased from the facts.
type GenerativeSource struct {
	gen       TextGenerator
	timeout   time.Duration
	minLength int
}

// GenerativeOption configures a GenerativeSource.
type GenerativeOption func(*GenerativeSource)

// WithTimeout bounds each backend call.
func WithTimeout(d time.Duration) GenerativeOption {
	return func(g *GenerativeSource) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithMinLineLength sets the shortest line, in characters, that counts as
// usable advice.
func WithMinLineLength(n int) GenerativeOption {
	return func(g *GenerativeSource) {
		if n > 0 {
			g.minLength = n
		}
	}
}

// NewGenerativeSource wraps gen.
func NewGenerativeSource(gen TextGenerator, opts ...GenerativeOption) *GenerativeSource {
	g := &GenerativeSource{gen: gen, timeout: DefaultTimeout, minLength: DefaultMinLineLength}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name implements Source.
func (g *GenerativeSource) Name() string { return g.gen.Name() }

// Recommend implements Source. It returns ErrBackendUnavailable when the
// backend fails or times out, and ErrInsufficientOutput when fewer than two
// usable lines come back.
func (g *GenerativeSource) Recommend(ctx context.Context, f Facts) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	text, err := g.gen.Generate(ctx, SystemPrompt, Prompt(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", g.gen.Name(), ErrBackendUnavailable, err)
	}

	lines := UsableLines(text, g.minLength, maxGeneratedLines)
	if len(lines) < minUsableLines {
		return nil, fmt.Errorf("%s: got %d lines: %w", g.gen.Name(), len(lines), ErrInsufficientOutput)
	}
	return lines, nil
}

// Prompt renders the facts into the request sent to the backend.
func Prompt(f Facts) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- Overall score: %d/100\n", f.Overall)
	fmt.Fprintf(&b, "- Pitch accuracy: %d/100 (%d/%d notes correct)\n",
		f.Pitch.Score, f.Pitch.Detail.CorrectNotes, f.Pitch.Detail.TotalNotes)
	if names := namePitches(f.Pitch.Detail.MispitchedNotes); names != "" {
		fmt.Fprintf(&b, "- Notes played wrong or missed: %s\n", names)
	}
	fmt.Fprintf(&b, "- Rhythm score: %d/100 (consistency: %s)\n",
		f.Rhythm.Score, f.Rhythm.Detail.RhythmConsistency)
	fmt.Fprintf(&b, "- Tempo: played at %s BPM, expected %s BPM\n",
		bpm(f.Tempo.Detail.ActualBPM), bpm(f.Tempo.Detail.ExpectedBPM))
	if f.Dynamics != nil {
		fmt.Fprintf(&b, "- Dynamics variety: %s\n", f.Dynamics.Detail.Variety)
	}
	return "As a music teacher, provide specific practice advice for a student who:\n" +
		b.String() +
		"\nGive 2-3 specific, actionable recommendations:"
}

// UsableLines splits generated text into advice lines, strips list
// markers, drops lines shorter than minLength characters and keeps at most
// limit lines.
func UsableLines(text string, minLength, limit int) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = stripMarker(strings.TrimSpace(line))
		if utf8.RuneCountInString(line) < minLength {
			continue
		}
		out = append(out, line)
		if len(out) == limit {
			break
		}
	}
	return out
}

func stripMarker(line string) string {
	line = strings.TrimLeft(line, "-*•# ")
	// "1." / "2)" numbering
	i := strings.IndexFunc(line, func(r rune) bool { return !unicode.IsDigit(r) })
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		line = line[i+1:]
	}
	return strings.TrimSpace(line)
}
