package race

import "errors"

// Errors reported back to the connection that attempted the operation.
// Their text is sent verbatim in the "error" event.
var (
	ErrRoomNotFound     = errors.New("Room not found")
	ErrRaceInProgress   = errors.New("Game already in progress")
	ErrRoomIDsExhausted = errors.New("Could not allocate a room id")
)
