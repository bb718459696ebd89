package service

import "errors"

var (
	// ErrNotStarted is returned when jobs are submitted before Start.
	ErrNotStarted = errors.New("service not started")
	// ErrUnknownInstrument is returned for instruments outside the catalogue.
	ErrUnknownInstrument = errors.New("unknown instrument")
	// ErrJobNotFound is returned by GetJob for unknown ids.
	ErrJobNotFound = errors.New("job not found")
)
