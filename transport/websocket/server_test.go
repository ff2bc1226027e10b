package websocket

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/rps-backend/internal/apperror"
	"github.com/rocketscienceinc/rps-backend/internal/entity"
	"github.com/rocketscienceinc/rps-backend/internal/registry"
	"github.com/rocketscienceinc/rps-backend/internal/repository"
	"github.com/rocketscienceinc/rps-backend/internal/usecase"
	"github.com/rocketscienceinc/rps-backend/testing/suite"
)

const readTimeout = 2 * time.Second

type testClient struct {
	t    *testing.T
	conn *websocket.Conn
	id   entity.ConnID
}

func newTestServer(t *testing.T) string {
	t.Helper()

	logger := suite.NewLogger()
	conns := registry.New()
	dispatcher := NewDispatcher(logger, conns)
	coordinator := usecase.NewCoordinator(logger, repository.NewRoomStore(), usecase.WithConnections(conns))
	t.Cleanup(coordinator.Close)

	server := New(logger, coordinator, conns, dispatcher, Limits{})

	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)
	t.Cleanup(conns.CloseAll)

	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *testClient {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
	})

	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	client := &testClient{t: t, conn: conn}

	var connected entity.Connected
	client.expect(entity.EventConnected, &connected)
	require.NotEmpty(t, connected.ConnectionID)
	client.id = connected.ConnectionID

	return client
}

func (that *testClient) send(action string, payload any) {
	that.t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(that.t, err)

	that.sendRaw(Message{Action: action, Payload: raw})
}

func (that *testClient) sendRaw(message any) {
	that.t.Helper()

	require.NoError(that.t, that.conn.WriteJSON(message))
}

// expect reads the next message, checks its action and decodes its payload into dst.
func (that *testClient) expect(action string, dst any) {
	that.t.Helper()

	require.NoError(that.t, that.conn.SetReadDeadline(time.Now().Add(readTimeout)))

	var message Message
	require.NoError(that.t, that.conn.ReadJSON(&message))
	require.Equal(that.t, action, message.Action, "payload: %s", message.Payload)

	if dst != nil {
		require.NoError(that.t, json.Unmarshal(message.Payload, dst))
	}
}

func (that *testClient) expectError(code string) {
	that.t.Helper()

	var event entity.Error
	that.expect(entity.EventError, &event)
	assert.Equal(that.t, code, event.Code)
	assert.NotEmpty(that.t, event.Message)
}

// startGame puts a and b into room r1 and drains the start events.
func startGame(a, b *testClient) {
	a.t.Helper()

	a.send("createRoom", map[string]string{"roomID": "r1"})
	a.expect(entity.EventPlayerSearching, nil)

	b.send("joinRoom", "r1")
	b.expect(entity.EventPlayerSearching, nil)
	b.expect(entity.EventPlayersConnected, nil)
	b.expect(entity.EventStartGame, nil)
	a.expect(entity.EventPlayersConnected, nil)
	a.expect(entity.EventStartGame, nil)
}

func TestServer_Game(t *testing.T) {
	t.Run("Two players meet and play a round", func(t *testing.T) {
		url := newTestServer(t)
		a := dial(t, url)
		b := dial(t, url)

		// When: A creates r1
		a.send("createRoom", map[string]string{"roomID": "r1"})

		// Then: A is player 1
		var searching entity.PlayerSearching
		a.expect(entity.EventPlayerSearching, &searching)
		assert.Equal(t, entity.PlayerSearching{PlayerNumber: 1, RoomID: "r1"}, searching)

		// When: B joins with a bare room id
		b.send("joinRoom", "r1")

		// Then: B is player 2 and both start
		b.expect(entity.EventPlayerSearching, &searching)
		assert.Equal(t, 2, searching.PlayerNumber)

		var connected entity.PlayersConnected
		b.expect(entity.EventPlayersConnected, &connected)
		assert.Equal(t, []entity.ConnID{a.id, b.id}, connected.Players)

		var start entity.StartGame
		b.expect(entity.EventStartGame, &start)
		assert.Equal(t, entity.StartGame{PlayerNumber: 2, RoomID: "r1"}, start)

		a.expect(entity.EventPlayersConnected, &connected)
		a.expect(entity.EventStartGame, &start)
		assert.Equal(t, entity.StartGame{PlayerNumber: 1, RoomID: "r1"}, start)

		// When: A plays rock and B plays scissor
		a.send("submitChoice", map[string]string{"roomID": "r1", "choice": "rock"})
		b.send("submitChoice", map[string]string{"roomID": "r1", "choice": "scissor"})

		// Then: each gets its own view of the result
		var result entity.GameResult
		a.expect(entity.EventGameResult, &result)
		assert.Equal(t, "WIN", string(result.Result))
		assert.Equal(t, 1, result.MyScore)
		assert.Equal(t, 0, result.OpponentScore)

		b.expect(entity.EventGameResult, &result)
		assert.Equal(t, "LOSE", string(result.Result))
		assert.Equal(t, "rock", string(result.OpponentChoice))
		assert.Equal(t, 0, result.MyScore)
		assert.Equal(t, 1, result.OpponentScore)
	})

	t.Run("Rematch through the legacy alias", func(t *testing.T) {
		url := newTestServer(t)
		a := dial(t, url)
		b := dial(t, url)
		startGame(a, b)

		a.send("submitChoice", map[string]string{"roomID": "r1", "choice": "paper"})
		b.send("submitChoice", map[string]string{"roomID": "r1", "choice": "paper"})
		a.expect(entity.EventGameResult, nil)
		b.expect(entity.EventGameResult, nil)

		// When: A asks for a rematch with the old action name
		a.send("playerClicked", "r1")

		// Then: both hear A is ready and B is awaited
		for _, client := range []*testClient{a, b} {
			var ready entity.PlayerReady
			client.expect(entity.EventPlayerReady, &ready)
			assert.Equal(t, a.id, ready.PlayerID)

			var waiting entity.WaitingForOpponent
			client.expect(entity.EventWaitingForOpponent, &waiting)
			assert.Equal(t, []entity.ConnID{b.id}, waiting.WaitingFor)
		}

		// When: B agrees
		b.send("playAgain", map[string]string{"roomID": "r1"})

		// Then: a new round starts
		for _, client := range []*testClient{a, b} {
			client.expect(entity.EventPlayerReady, nil)
			client.expect(entity.EventStartGame, nil)
		}
	})

	t.Run("Dropped connection leaves the room", func(t *testing.T) {
		url := newTestServer(t)
		a := dial(t, url)
		b := dial(t, url)
		startGame(a, b)

		// When: B's connection goes away
		require.NoError(t, b.conn.Close())

		// Then: A is told it is alone
		var left entity.PlayerLeft
		a.expect(entity.EventPlayerLeft, &left)
		assert.Equal(t, entity.PlayerLeft{RoomID: "r1", Remaining: 1}, left)
	})
}

func TestServer_Errors(t *testing.T) {
	url := newTestServer(t)
	a := dial(t, url)

	t.Run("Unknown action", func(t *testing.T) {
		a.send("dance", map[string]string{"roomID": "r1"})
		a.expectError(apperror.CodeUnknownAction)
	})

	t.Run("Undecodable frame", func(t *testing.T) {
		require.NoError(t, a.conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
		a.expectError(apperror.CodeInvalidPayload)
	})

	t.Run("Missing room id", func(t *testing.T) {
		a.sendRaw(map[string]string{"action": "joinRoom"})
		a.expectError(apperror.CodeInvalidPayload)
	})

	t.Run("Room id that is too long", func(t *testing.T) {
		a.send("createRoom", map[string]string{"roomID": strings.Repeat("r", 65)})
		a.expectError(apperror.CodeInvalidPayload)
	})

	t.Run("Join a missing room", func(t *testing.T) {
		a.send("joinRoom", "nope")
		a.expectError(apperror.CodeNotFound)
	})

	t.Run("Create a taken room", func(t *testing.T) {
		b := dial(t, url)

		a.send("createRoom", "taken")
		a.expect(entity.EventPlayerSearching, nil)

		b.send("createRoom", "taken")
		b.expectError(apperror.CodeAlreadyExists)
	})

	t.Run("Invalid choice", func(t *testing.T) {
		a.send("submitChoice", map[string]string{"roomID": "taken", "choice": "lizard"})
		a.expectError(apperror.CodeInvalidChoice)
	})
}
