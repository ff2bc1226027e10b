package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/rps-backend/internal/apperror"
	"github.com/rocketscienceinc/rps-backend/internal/entity"
)

func TestDecodeMessage(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		action  string
		payload Payload
	}{
		{
			name:    "Object payload",
			data:    `{"action":"submitChoice","payload":{"roomID":"r1","choice":"rock"}}`,
			action:  "submitChoice",
			payload: Payload{RoomID: "r1", Choice: "rock"},
		},
		{
			name:    "Bare room id",
			data:    `{"action":"joinRoom","payload":"r1"}`,
			action:  "joinRoom",
			payload: Payload{RoomID: "r1"},
		},
		{
			name:   "No payload",
			data:   `{"action":"createRoom"}`,
			action: "createRoom",
		},
		{
			name:   "Null payload",
			data:   `{"action":"createRoom","payload":null}`,
			action: "createRoom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			message, payload, err := decodeMessage([]byte(tt.data))

			require.NoError(t, err)
			assert.Equal(t, tt.action, message.Action)
			assert.Equal(t, tt.payload, *payload)
		})
	}

	t.Run("Malformed input is an invalid payload", func(t *testing.T) {
		for _, data := range []string{`{`, `{"action":"joinRoom","payload":42}`} {
			_, _, err := decodeMessage([]byte(data))
			require.ErrorIs(t, err, apperror.ErrInvalidPayload, data)
		}
	})
}

func TestEncodeEvent(t *testing.T) {
	// Given: a startGame event
	event := entity.StartGame{PlayerNumber: 2, RoomID: "r1"}

	// When: it is encoded
	data, err := encodeEvent(event)
	require.NoError(t, err)

	// Then: the event name is the action and the fields are the payload
	assert.JSONEq(t, `{"action":"startGame","payload":{"playerNumber":2,"roomID":"r1"}}`, string(data))
}

func TestErrorEvent(t *testing.T) {
	t.Run("Client errors keep their message", func(t *testing.T) {
		event := errorEvent(fmt.Errorf("failed to join room: %w", apperror.ErrRoomFull))

		assert.Equal(t, apperror.CodeFull, event.Code)
		assert.Contains(t, event.Message, apperror.ErrRoomFull.Error())
	})

	t.Run("Internal errors are masked", func(t *testing.T) {
		event := errorEvent(errors.New("connection refused"))

		assert.Equal(t, entity.Error{Message: internalErrorMessage, Code: apperror.CodeInternal}, event)
	})
}

func TestPayload_UnmarshalJSON(t *testing.T) {
	var payload Payload

	require.NoError(t, json.Unmarshal([]byte(`"abc"`), &payload))
	assert.Equal(t, "abc", payload.RoomID)
}
