package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/masterofmagic999/mugic/internal/domain/music"
	"github.com/masterofmagic999/mugic/internal/practicesim"
)

// Default configuration constants.
const (
	defaultPieces     = 5
	defaultAttempts   = 4
	defaultNotes      = 32
	defaultDuplicates = 3
	defaultTimeout    = 30 * time.Second
	defaultPoll       = 100 * time.Millisecond
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		pieces     = flag.Int("pieces", defaultPieces, "Number of pieces to create")
		attempts   = flag.Int("attempts", defaultAttempts, "Practice attempts per piece")
		notes      = flag.Int("notes", defaultNotes, "Notes per generated piece")
		duplicates = flag.Int("duplicates", defaultDuplicates, "Resubmit every Nth attempt with the same key (0 disables)")
		workers    = flag.Int("workers", runtime.NumCPU(), "Number of concurrent submitters")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		poll       = flag.Duration("poll", defaultPoll, "Job polling interval")
		seed       = flag.Uint64("seed", 1, "Generator seed")
		instrument = flag.String("instrument", music.DefaultInstrument, "Instrument sent with every attempt")
		output     = flag.String("output", "", "Write a JSON report of every attempt")
		logFormat  = flag.String("log-format", "text", "Log format, text or json")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		practicesim.ShowHelp()
		return
	}

	if err := practicesim.SetupLogging(*logFormat, *verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &practicesim.Config{
		BaseURL:    *baseURL,
		Pieces:     *pieces,
		Attempts:   *attempts,
		NotesPer:   *notes,
		Duplicates: *duplicates,
		Workers:    *workers,
		Timeout:    *timeout,
		Poll:       *poll,
		Seed:       *seed,
		Instrument: *instrument,
		OutputFile: *output,
		Verbose:    *verbose,
	}

	if _, _, err := practicesim.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1) //nolint:gocritic // exitAfterDefer
	}
}
