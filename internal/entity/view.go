package entity

import (
	"time"

	"github.com/rocketscienceinc/rps-backend/internal/rps"
)

type RoomView struct {
	ID      string       `json:"id"`
	Phase   Phase        `json:"phase"`
	Round   int          `json:"round"`
	Players []PlayerView `json:"players"`
}

type PlayerView struct {
	ID           ConnID `json:"id"`
	PlayerNumber int    `json:"playerNumber"`
	Score        int    `json:"score"`
	HasChosen    bool   `json:"hasChosen"`
	Ready        bool   `json:"ready"`
}

// PlayerNumberOf returns conn's player number in the snapshot, or 0.
func (that RoomView) PlayerNumberOf(conn ConnID) int {
	for _, player := range that.Players {
		if player.ID == conn {
			return player.PlayerNumber
		}
	}

	return 0
}

// PlayerIDs returns the occupants in slot order.
func (that RoomView) PlayerIDs() []ConnID {
	ids := make([]ConnID, 0, len(that.Players))
	for _, player := range that.Players {
		ids = append(ids, player.ID)
	}

	return ids
}

// PlayerResult is one player's side of a resolved round.
type PlayerResult struct {
	Conn           ConnID      `json:"id"`
	PlayerNumber   int         `json:"playerNumber"`
	MyChoice       rps.Choice  `json:"myChoice"`
	OpponentChoice rps.Choice  `json:"opponentChoice"`
	Result         rps.Outcome `json:"result"`
	MyScore        int         `json:"myScore"`
	OpponentScore  int         `json:"opponentScore"`
}

type RoundOutcome struct {
	RoomID  string                   `json:"roomID"`
	Round   int                      `json:"round"`
	Results [MaxPlayers]PlayerResult `json:"results"`
}

// RoomStatus is what is left of a room after a player is removed.
type RoomStatus struct {
	Deleted   bool
	Remaining int
}

// RoundRecord is a resolved round as kept in the round history.
type RoundRecord struct {
	RoundOutcome
	ResolvedAt time.Time `json:"resolvedAt"`
}
