package entity

import "github.com/rocketscienceinc/rps-backend/internal/rps"

// Outbound event names.
const (
	EventConnected          = "connected"
	EventPlayerSearching    = "playerSearching"
	EventPlayersConnected   = "playersConnected"
	EventStartGame          = "startGame"
	EventGameResult         = "gameResult"
	EventPlayerReady        = "playerReady"
	EventWaitingForOpponent = "waitingForOpponent"
	EventPlayerLeft         = "playerLeft"
	EventGameReset          = "gameReset"
	EventError              = "error"
)

// Event is an outbound message addressed to one connection.
type Event interface {
	Name() string
}

// Delivery pairs an event with its recipient.
type Delivery struct {
	To    ConnID
	Event Event
}

type Connected struct {
	ConnectionID ConnID `json:"connectionID"`
}

func (Connected) Name() string { return EventConnected }

type PlayerSearching struct {
	PlayerNumber int    `json:"playerNumber"`
	RoomID       string `json:"roomID"`
}

func (PlayerSearching) Name() string { return EventPlayerSearching }

type PlayersConnected struct {
	RoomID  string   `json:"roomID"`
	Players []ConnID `json:"players"`
}

func (PlayersConnected) Name() string { return EventPlayersConnected }

type StartGame struct {
	PlayerNumber int    `json:"playerNumber"`
	RoomID       string `json:"roomID"`
}

func (StartGame) Name() string { return EventStartGame }

type GameResult struct {
	MyChoice       rps.Choice  `json:"myChoice"`
	OpponentChoice rps.Choice  `json:"opponentChoice"`
	Result         rps.Outcome `json:"result"`
	MyScore        int         `json:"myScore"`
	OpponentScore  int         `json:"opponentScore"`
	RoomID         string      `json:"roomID"`
}

func (GameResult) Name() string { return EventGameResult }

type PlayerReady struct {
	PlayerID     ConnID `json:"playerId"`
	PlayerNumber int    `json:"playerNumber"`
	RoomID       string `json:"roomID"`
}

func (PlayerReady) Name() string { return EventPlayerReady }

type WaitingForOpponent struct {
	RoomID     string   `json:"roomID"`
	WaitingFor []ConnID `json:"waitingFor"`
}

func (WaitingForOpponent) Name() string { return EventWaitingForOpponent }

type PlayerLeft struct {
	RoomID    string `json:"roomID"`
	Remaining int    `json:"remaining"`
}

func (PlayerLeft) Name() string { return EventPlayerLeft }

type GameReset struct {
	RoomID  string `json:"roomID"`
	Message string `json:"message"`
}

func (GameReset) Name() string { return EventGameReset }

type Error struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (Error) Name() string { return EventError }

// ToRoom addresses the same event to every listed connection.
func ToRoom(recipients []ConnID, event Event) []Delivery {
	deliveries := make([]Delivery, 0, len(recipients))
	for _, conn := range recipients {
		deliveries = append(deliveries, Delivery{To: conn, Event: event})
	}

	return deliveries
}
