package apperror

import "errors"

var (
	ErrRoomAlreadyExists = errors.New("room already exists")
	ErrRoomNotFound      = errors.New("room does not exist")
	ErrRoomFull          = errors.New("room is full")
	ErrInvalidChoice     = errors.New("invalid room or choice")
	ErrNotReady          = errors.New("both choices are required to resolve a round")

	ErrAlreadyInRoom    = errors.New("player is already in another room")
	ErrNotInRoom        = errors.New("player is not in this room")
	ErrRoundNotActive   = errors.New("round is not accepting choices")
	ErrRoundNotResolved = errors.New("round is not resolved yet")

	ErrInvalidPayload = errors.New("invalid payload")
	ErrUnknownAction  = errors.New("unknown action")
)

// Codes sent to clients in error events.
const (
	CodeAlreadyExists    = "already_exists"
	CodeNotFound         = "not_found"
	CodeFull             = "full"
	CodeInvalidChoice    = "invalid_choice"
	CodeAlreadyInRoom    = "already_in_room"
	CodeNotInRoom        = "not_in_room"
	CodeRoundNotActive   = "round_not_active"
	CodeRoundNotResolved = "round_not_resolved"
	CodeInvalidPayload   = "invalid_payload"
	CodeUnknownAction    = "unknown_action"
	CodeInternal         = "internal"
)

// Code maps an application error to the short code sent to clients.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrRoomAlreadyExists):
		return CodeAlreadyExists
	case errors.Is(err, ErrRoomNotFound):
		return CodeNotFound
	case errors.Is(err, ErrRoomFull):
		return CodeFull
	case errors.Is(err, ErrInvalidChoice):
		return CodeInvalidChoice
	case errors.Is(err, ErrAlreadyInRoom):
		return CodeAlreadyInRoom
	case errors.Is(err, ErrNotInRoom):
		return CodeNotInRoom
	case errors.Is(err, ErrRoundNotActive):
		return CodeRoundNotActive
	case errors.Is(err, ErrRoundNotResolved):
		return CodeRoundNotResolved
	case errors.Is(err, ErrInvalidPayload):
		return CodeInvalidPayload
	case errors.Is(err, ErrUnknownAction):
		return CodeUnknownAction
	default:
		return CodeInternal
	}
}
