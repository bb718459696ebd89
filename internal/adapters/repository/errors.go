package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound      = errors.New("session not found")
	ErrPieceNotFound = errors.New("piece not found")
	ErrInvalidPiece  = errors.New("invalid piece")
	ErrUnknownDriver = errors.New("unknown store driver")
)
