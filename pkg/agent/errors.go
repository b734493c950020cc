package agent

import "errors"

var (
	// ErrEmptyCharacter is returned when a turn is attempted without a
	// character identity to role-play.
	ErrEmptyCharacter = errors.New("character name must not be empty")

	// ErrTurnInFlight is returned when a second turn is attempted on a
	// thread that already has one executing. Turns on the same thread are
	// serialized by rejection, never interleaved.
	ErrTurnInFlight = errors.New("turn already in flight for thread")

	// ErrGenerationFailed marks a fatal provider failure in reflect or
	// generate. The turn is aborted and the prior checkpoint is untouched.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrCheckpointSave marks a persistence failure at the end of a turn.
	ErrCheckpointSave = errors.New("checkpoint save failed")
)
