package websocket

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/rps-backend/internal/apperror"
	"github.com/rocketscienceinc/rps-backend/internal/entity"
)

const internalErrorMessage = "internal error"

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Payload is the inbound payload. Room-only actions may send the room id as a bare JSON string.
type Payload struct {
	RoomID string `json:"roomID"`
	Choice string `json:"choice"`
}

func (that *Payload) UnmarshalJSON(data []byte) error {
	var roomID string
	if err := json.Unmarshal(data, &roomID); err == nil {
		that.RoomID = roomID
		return nil
	}

	type plain Payload

	if err := json.Unmarshal(data, (*plain)(that)); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return nil
}

type createRequest struct {
	RoomID string `validate:"omitempty,max=64,printascii"`
}

type roomRequest struct {
	RoomID string `validate:"required,max=64,printascii"`
}

func decodeMessage(data []byte) (*Message, *Payload, error) {
	var message Message
	if err := json.Unmarshal(data, &message); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", apperror.ErrInvalidPayload, err)
	}

	payload := &Payload{}

	raw := bytes.TrimSpace(message.Payload)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return &message, payload, nil
	}

	if err := json.Unmarshal(raw, payload); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", apperror.ErrInvalidPayload, err)
	}

	return &message, payload, nil
}

// encodeEvent - wraps event into the outbound envelope.
func encodeEvent(event entity.Event) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", event.Name(), err)
	}

	data, err := json.Marshal(Message{Action: event.Name(), Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s message: %w", event.Name(), err)
	}

	return data, nil
}

func errorEvent(err error) entity.Error {
	code := apperror.Code(err)
	if code == apperror.CodeInternal {
		return entity.Error{Message: internalErrorMessage, Code: code}
	}

	return entity.Error{Message: err.Error(), Code: code}
}
