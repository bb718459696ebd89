package recommend

import "errors"

// Sentinel kinds for recommendation errors. They never leave the Engine;
// the Engine falls back to templates instead.
var (
	ErrBackendUnavailable = errors.New("recommendation backend unavailable")
	ErrInsufficientOutput = errors.New("recommendation backend returned too few usable lines")
)
