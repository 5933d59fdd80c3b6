package hexgame

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidMove      = errors.New("invalid move")
	ErrTileOccupied     = errors.New("tile occupied")
	ErrNoUnit           = errors.New("no unit at position")
	ErrOutOfBounds      = errors.New("position out of bounds")
	ErrNotCandidate     = errors.New("destination is not a legal candidate")
	ErrNoMovesLeft      = errors.New("no moves left")
	ErrImpassable       = errors.New("terrain not traversable by unit")
	ErrLockHeld         = errors.New("animation lock held")
	ErrMissingTerrain   = errors.New("missing terrain data")
	ErrSameCivilization = errors.New("attacker and defender belong to the same civilization")
	ErrOutOfRange       = errors.New("target out of range")
	ErrUnknownKind      = errors.New("unknown unit kind")
	ErrUnknownTerrain   = errors.New("unknown terrain kind")
	ErrUnknownCiv       = errors.New("unknown civilization")
	ErrInconsistent     = errors.New("store index inconsistent")

	ErrTurnInProgress = errors.New("ai turn already in progress")
	ErrNotPlayerTurn  = errors.New("not the player's turn")
	ErrNotAITurn      = errors.New("ai turn has not been requested")
	ErrGameOver       = errors.New("game is over")
)

// PositionError attaches the offending position to an error.
type PositionError struct {
	Pos Position
	Err error
}

func (e *PositionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Pos, e.Err)
}

func (e *PositionError) Unwrap() error { return e.Err }

// MoveError describes why a move was rejected. It matches ErrInvalidMove and
// the specific reason with errors.Is.
type MoveError struct {
	From   Position
	To     Position
	Reason error
}

func (e *MoveError) Error() string {
	return fmt.Sprintf("invalid move %s -> %s: %v", e.From, e.To, e.Reason)
}

func (e *MoveError) Unwrap() []error { return []error{ErrInvalidMove, e.Reason} }
