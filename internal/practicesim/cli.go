package practicesim

import (
	"fmt"
	"os"

	"github.com/masterofmagic999/mugic/pkg/logger"
)

// SetupLogging initializes the global logger.
func SetupLogging(format string, verbose bool) error {
	if err := logger.Init(logger.WithFormat(format)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		return logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Practice Session Simulator
==========================

Creates reference pieces on a running service, submits simulated practice
attempts that improve over time and verifies the stored sessions.

Usage:
  go run ./cmd/practice-sim [options]

Options:
  -url string        Base URL of the service (default "http://localhost:9080")
  -pieces int        Number of pieces to create (default 5)
  -attempts int      Practice attempts per piece (default 4)
  -notes int         Notes per generated piece (default 32)
  -duplicates int    Resubmit every Nth attempt with the same key (default 3, 0 disables)
  -workers int       Number of concurrent submitters (default CPU cores)
  -timeout duration  HTTP request timeout (default 30s)
  -poll duration     Job polling interval (default 100ms)
  -seed uint         Generator seed (default 1)
  -instrument string Instrument sent with every attempt (default "piano")
  -output string     Write a JSON report of every attempt
  -log-format string Log format, text or json (default "text")
  -verbose           Enable verbose logging
  -help              Show this help message

Examples:
  go run ./cmd/practice-sim -pieces 20 -attempts 10
  go run ./cmd/practice-sim -url http://localhost:8080 -output report.json
`)
}
