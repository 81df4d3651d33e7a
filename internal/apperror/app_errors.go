package apperror

import "errors"

var (
	ErrTooManyPlayers   = errors.New("too many players")
	ErrGameIsNotStarted = errors.New("game is not started")
	ErrCellOccupied     = errors.New("cell is already occupied")
	ErrCellOutOfRange   = errors.New("cell is out of range")
	ErrMarkMismatch     = errors.New("move mark does not match the sender")
	ErrNotSeated        = errors.New("connection has no seat in the session")
	ErrFraming          = errors.New("malformed frame")
	ErrMalformedMove    = errors.New("malformed move")
)

// IsFatal - reports whether the error must end the offending connection.
// Rejected moves (occupied cell, waiting session, foreign or unseated sender) are silently ignored.
func IsFatal(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrCellOccupied),
		errors.Is(err, ErrGameIsNotStarted),
		errors.Is(err, ErrMarkMismatch),
		errors.Is(err, ErrNotSeated):
		return false
	default:
		return true
	}
}
