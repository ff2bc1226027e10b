package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/rps-backend/internal/entity"
	"github.com/rocketscienceinc/rps-backend/internal/repository"
	"github.com/rocketscienceinc/rps-backend/internal/rps"
	"github.com/rocketscienceinc/rps-backend/testing/suite"
)

type mockRounds struct {
	mock.Mock
}

func (that *mockRounds) ListByRoomID(ctx context.Context, roomID string, limit int64) ([]*entity.RoundRecord, error) {
	args := that.Called(ctx, roomID, limit)

	records, _ := args.Get(0).([]*entity.RoundRecord)

	return records, args.Error(1)
}

type countConns int

func (that countConns) Count() int { return int(that) }

func newRouter(t *testing.T, rounds roundLister) (*gin.Engine, *repository.RoomStore) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	store := repository.NewRoomStore()
	logger := suite.NewLogger()

	return NewRouter(logger, NewHandlers(logger, store, countConns(3), rounds)), store
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, path, nil))

	return recorder
}

func TestPing(t *testing.T) {
	router, _ := newRouter(t, nil)

	response := get(router, "/ping")

	assert.Equal(t, http.StatusOK, response.Code)
	assert.Equal(t, "pong", response.Body.String())
}

func TestStats(t *testing.T) {
	// Given: one room with one player
	router, store := newRouter(t, nil)
	_, err := store.CreateRoom("r1", "a")
	require.NoError(t, err)

	// When: stats are requested
	response := get(router, "/rooms")

	// Then: counts are reported
	assert.Equal(t, http.StatusOK, response.Code)
	assert.JSONEq(t, `{"rooms":1,"players":1,"connections":3}`, response.Body.String())
}

func TestRoom(t *testing.T) {
	t.Run("Existing room", func(t *testing.T) {
		router, store := newRouter(t, nil)
		_, err := store.CreateRoom("r1", "a")
		require.NoError(t, err)

		response := get(router, "/rooms/r1")
		require.Equal(t, http.StatusOK, response.Code)

		var view entity.RoomView
		require.NoError(t, json.Unmarshal(response.Body.Bytes(), &view))
		assert.Equal(t, "r1", view.ID)
		assert.Equal(t, entity.PhaseWaitingForPlayer, view.Phase)
		require.Len(t, view.Players, 1)
		assert.Equal(t, 1, view.Players[0].PlayerNumber)
	})

	t.Run("Missing room", func(t *testing.T) {
		router, _ := newRouter(t, nil)

		response := get(router, "/rooms/nope")

		assert.Equal(t, http.StatusNotFound, response.Code)
	})
}

func TestRounds(t *testing.T) {
	t.Run("Recorded rounds with a limit", func(t *testing.T) {
		// Given: a stored round
		record := &entity.RoundRecord{
			RoundOutcome: entity.RoundOutcome{
				RoomID: "r1",
				Round:  1,
				Results: [2]entity.PlayerResult{
					{Conn: "a", PlayerNumber: 1, MyChoice: rps.Rock, OpponentChoice: rps.Scissor, Result: rps.Win, MyScore: 1},
					{Conn: "b", PlayerNumber: 2, MyChoice: rps.Scissor, OpponentChoice: rps.Rock, Result: rps.Lose, OpponentScore: 1},
				},
			},
			ResolvedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		}
		rounds := &mockRounds{}
		rounds.On("ListByRoomID", mock.Anything, "r1", int64(5)).Return([]*entity.RoundRecord{record}, nil).Once()
		router, _ := newRouter(t, rounds)

		// When: they are requested
		response := get(router, "/rooms/r1/rounds?limit=5")

		// Then: they are returned as stored
		require.Equal(t, http.StatusOK, response.Code)

		var body roundsResponse
		require.NoError(t, json.Unmarshal(response.Body.Bytes(), &body))
		assert.Equal(t, "r1", body.RoomID)
		require.Len(t, body.Rounds, 1)
		assert.Equal(t, record, body.Rounds[0])
		rounds.AssertExpectations(t)
	})

	t.Run("Bad limit", func(t *testing.T) {
		router, _ := newRouter(t, &mockRounds{})

		response := get(router, "/rooms/r1/rounds?limit=zero")

		assert.Equal(t, http.StatusBadRequest, response.Code)
	})

	t.Run("Storage failure", func(t *testing.T) {
		rounds := &mockRounds{}
		rounds.On("ListByRoomID", mock.Anything, "r1", int64(0)).Return(nil, errors.New("redis down")).Once()
		router, _ := newRouter(t, rounds)

		response := get(router, "/rooms/r1/rounds")

		assert.Equal(t, http.StatusInternalServerError, response.Code)
	})

	t.Run("History disabled", func(t *testing.T) {
		router, _ := newRouter(t, nil)

		response := get(router, "/rooms/r1/rounds")

		assert.Equal(t, http.StatusServiceUnavailable, response.Code)
	})
}
