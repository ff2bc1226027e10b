package entity

import (
	"fmt"

	"github.com/rocketscienceinc/rps-backend/internal/apperror"
	"github.com/rocketscienceinc/rps-backend/internal/rps"
)

// ConnID is the opaque handle of one live client connection.
type ConnID string

type Phase string

const (
	PhaseWaitingForPlayer Phase = "waiting_for_player"
	PhaseActive           Phase = "active"
	PhaseChoicesPending   Phase = "choices_pending"
	PhaseRoundResolved    Phase = "round_resolved"
)

// MaxPlayers is the number of slots in a room.
const MaxPlayers = 2

// Room holds the state of one match. A slot index plus one is the player number; an empty
// ConnID marks a free slot.
type Room struct {
	ID      string
	Slots   [MaxPlayers]ConnID
	Choices map[ConnID]rps.Choice
	Scores  map[ConnID]int
	Ready   map[ConnID]struct{}
	Phase   Phase
	Round   int
}

// NewRoom - creates a room with creator in slot 1.
func NewRoom(id string, creator ConnID) *Room {
	room := &Room{
		ID:      id,
		Choices: make(map[ConnID]rps.Choice, MaxPlayers),
		Scores:  make(map[ConnID]int, MaxPlayers),
		Ready:   make(map[ConnID]struct{}, MaxPlayers),
		Phase:   PhaseWaitingForPlayer,
	}

	room.Slots[0] = creator
	room.Scores[creator] = 0

	return room
}

// PlayerNumber returns 1 or 2 for an occupant and 0 otherwise.
func (that *Room) PlayerNumber(conn ConnID) int {
	if conn == "" {
		return 0
	}

	for i, slot := range that.Slots {
		if slot == conn {
			return i + 1
		}
	}

	return 0
}

// Players returns the occupants in slot order.
func (that *Room) Players() []ConnID {
	players := make([]ConnID, 0, MaxPlayers)
	for _, slot := range that.Slots {
		if slot != "" {
			players = append(players, slot)
		}
	}

	return players
}

func (that *Room) PlayerCount() int {
	return len(that.Players())
}

func (that *Room) IsFull() bool {
	return that.PlayerCount() == MaxPlayers
}

func (that *Room) IsEmpty() bool {
	return that.PlayerCount() == 0
}

// Opponent returns the other occupant of conn's room, if any.
func (that *Room) Opponent(conn ConnID) (ConnID, bool) {
	for _, slot := range that.Slots {
		if slot != "" && slot != conn {
			return slot, true
		}
	}

	return "", false
}

// Join - places conn in the lowest free slot. An occupant gets its existing slot back.
// started reports that the join filled the room and a round began.
func (that *Room) Join(conn ConnID) (int, bool, error) {
	if number := that.PlayerNumber(conn); number > 0 {
		return number, false, nil
	}

	for i, slot := range that.Slots {
		if slot != "" {
			continue
		}

		that.Slots[i] = conn
		that.Scores[conn] = 0

		if !that.IsFull() {
			that.Phase = PhaseWaitingForPlayer
			return i + 1, false, nil
		}

		that.startRound()

		return i + 1, true, nil
	}

	return 0, false, fmt.Errorf("%w: %s", apperror.ErrRoomFull, that.ID)
}

// RecordChoice - stores conn's choice for the current round, overwriting an earlier one.
// It reports whether both players have now chosen.
func (that *Room) RecordChoice(conn ConnID, choice rps.Choice) (bool, error) {
	if !choice.Valid() {
		return false, fmt.Errorf("%w: %q", apperror.ErrInvalidChoice, choice)
	}

	if that.PlayerNumber(conn) == 0 {
		return false, fmt.Errorf("%w: not a player of room %s", apperror.ErrInvalidChoice, that.ID)
	}

	if that.Phase != PhaseActive && that.Phase != PhaseChoicesPending {
		return false, fmt.Errorf("%w: room %s is %s", apperror.ErrRoundNotActive, that.ID, that.Phase)
	}

	that.Choices[conn] = choice
	that.Phase = PhaseChoicesPending

	return len(that.Choices) == MaxPlayers, nil
}

// Resolve - settles the round once both choices are present. A win adds one point, a loss or
// a draw adds nothing. The room is left untouched on error.
func (that *Room) Resolve() (*RoundOutcome, error) {
	if !that.IsFull() || len(that.Choices) != MaxPlayers {
		return nil, fmt.Errorf("%w: room %s has %d choices", apperror.ErrNotReady, that.ID, len(that.Choices))
	}

	first, second := that.Slots[0], that.Slots[1]

	firstChoice, ok := that.Choices[first]
	if !ok {
		return nil, fmt.Errorf("%w: player 1 of room %s has not chosen", apperror.ErrNotReady, that.ID)
	}

	secondChoice, ok := that.Choices[second]
	if !ok {
		return nil, fmt.Errorf("%w: player 2 of room %s has not chosen", apperror.ErrNotReady, that.ID)
	}

	firstResult := rps.Resolve(firstChoice, secondChoice)
	secondResult := rps.Resolve(secondChoice, firstChoice)

	if firstResult == rps.Win {
		that.Scores[first]++
	}

	if secondResult == rps.Win {
		that.Scores[second]++
	}

	outcome := &RoundOutcome{
		RoomID: that.ID,
		Round:  that.Round,
		Results: [MaxPlayers]PlayerResult{
			{
				Conn:           first,
				PlayerNumber:   1,
				MyChoice:       firstChoice,
				OpponentChoice: secondChoice,
				Result:         firstResult,
				MyScore:        that.Scores[first],
				OpponentScore:  that.Scores[second],
			},
			{
				Conn:           second,
				PlayerNumber:   2,
				MyChoice:       secondChoice,
				OpponentChoice: firstChoice,
				Result:         secondResult,
				MyScore:        that.Scores[second],
				OpponentScore:  that.Scores[first],
			},
		},
	}

	clear(that.Choices)
	that.Phase = PhaseRoundResolved

	return outcome, nil
}

// MarkReady - records a rematch request. When both players are ready the next round starts
// and true is returned.
func (that *Room) MarkReady(conn ConnID) (bool, error) {
	if that.PlayerNumber(conn) == 0 {
		return false, fmt.Errorf("%w: %s", apperror.ErrNotInRoom, that.ID)
	}

	if that.Phase != PhaseRoundResolved {
		return false, fmt.Errorf("%w: room %s is %s", apperror.ErrRoundNotResolved, that.ID, that.Phase)
	}

	that.Ready[conn] = struct{}{}

	if !that.IsFull() || len(that.Ready) < MaxPlayers {
		return false, nil
	}

	that.startRound()

	return true, nil
}

// WaitingFor returns the occupants that have not asked for a rematch yet.
func (that *Room) WaitingFor() []ConnID {
	waiting := make([]ConnID, 0, MaxPlayers)
	for _, conn := range that.Players() {
		if _, ok := that.Ready[conn]; !ok {
			waiting = append(waiting, conn)
		}
	}

	return waiting
}

// ResetPendingChoices - drops the choices of an unfinished round and starts it over.
func (that *Room) ResetPendingChoices() bool {
	if that.Phase != PhaseChoicesPending || !that.IsFull() {
		return false
	}

	that.startRound()

	return true
}

// Remove - frees conn's slot and forgets its choice, score and readiness. The survivor moves
// up to slot 1, so the next joiner is always player 2. It returns the number of occupants
// left.
func (that *Room) Remove(conn ConnID) (int, error) {
	number := that.PlayerNumber(conn)
	if number == 0 {
		return 0, fmt.Errorf("%w: %s", apperror.ErrNotInRoom, that.ID)
	}

	that.Slots[number-1] = ""
	if that.Slots[0] == "" {
		that.Slots[0], that.Slots[1] = that.Slots[1], ""
	}
	delete(that.Choices, conn)
	delete(that.Scores, conn)
	delete(that.Ready, conn)

	remaining := that.PlayerCount()
	if remaining > 0 {
		that.Phase = PhaseWaitingForPlayer
	}

	return remaining, nil
}

// View - returns a snapshot that does not reveal pending choices.
func (that *Room) View() RoomView {
	view := RoomView{
		ID:      that.ID,
		Phase:   that.Phase,
		Round:   that.Round,
		Players: make([]PlayerView, 0, MaxPlayers),
	}

	for i, slot := range that.Slots {
		if slot == "" {
			continue
		}

		_, chosen := that.Choices[slot]
		_, ready := that.Ready[slot]

		view.Players = append(view.Players, PlayerView{
			ID:           slot,
			PlayerNumber: i + 1,
			Score:        that.Scores[slot],
			HasChosen:    chosen,
			Ready:        ready,
		})
	}

	return view
}

func (that *Room) startRound() {
	clear(that.Choices)
	clear(that.Ready)
	that.Phase = PhaseActive
	that.Round++
}
