package music

import (
	"errors"
	"fmt"
)

// Sentinel kinds for music input errors.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidPitch = errors.New("invalid pitch")
)

// ValidationError describes a malformed note, tempo or dynamic sample.
// It matches ErrInvalidInput under errors.Is.
type ValidationError struct {
	Sequence string // e.g. "expected", "performed", "dynamics"
	Index    int    // position in the sequence, -1 for scalar fields
	Field    string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid %s: %s %s", e.Sequence, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s[%d]: %s %s", e.Sequence, e.Index, e.Field, e.Reason)
}

// Is reports whether target is ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}
