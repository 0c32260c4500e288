package domain

import "errors"

// Error taxonomy for coordinator operations. The HTTP layer maps these to
// status codes; the core only ever returns the kind.
var (
	ErrSessionActive   = errors.New("session already active for channel")
	ErrSessionNotFound = errors.New("no session for channel")
	ErrNotAuthorized   = errors.New("not authorized")
	ErrSlotTaken       = errors.New("player slot already taken")
	ErrSessionFull     = errors.New("no free player slots")
	ErrAlreadyJoined   = errors.New("user already joined session")
	ErrNotAPlayer      = errors.New("user does not hold a player slot")
	ErrNotASpectator   = errors.New("user is not a spectator")
	ErrSessionPaused   = errors.New("session is paused")
	ErrSessionEnded    = errors.New("session has ended")
	ErrEmptySlot       = errors.New("save slot is empty")
	ErrInvalidPayload  = errors.New("invalid payload")
	ErrInvalidTarget   = errors.New("unknown target kind")
	ErrDisabled        = errors.New("co-play is disabled")
)
