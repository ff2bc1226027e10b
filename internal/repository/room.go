package repository

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rocketscienceinc/rps-backend/internal/apperror"
	"github.com/rocketscienceinc/rps-backend/internal/entity"
	"github.com/rocketscienceinc/rps-backend/internal/rps"
)

// JoinResult describes a successful join.
type JoinResult struct {
	Room         entity.RoomView
	PlayerNumber int
	Started      bool
}

// ReadyResult describes a rematch request.
type ReadyResult struct {
	Room      entity.RoomView
	BothReady bool
}

// RemoveResult describes what is left of a room after a player is removed.
type RemoveResult struct {
	Status entity.RoomStatus
	Room   entity.RoomView
}

type Stats struct {
	Rooms   int `json:"rooms"`
	Players int `json:"players"`
}

type roomEntry struct {
	mu      sync.Mutex
	room    *entity.Room
	deleted atomic.Bool
}

// RoomStore owns every room of the process. Operations on one room are serialized by the
// room's own mutex; the room map and the membership index are guarded by the store mutex.
// Lock order is always room, then store.
type RoomStore struct {
	mu      sync.RWMutex
	rooms   map[string]*roomEntry
	members map[entity.ConnID]string
}

func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms:   make(map[string]*roomEntry),
		members: make(map[entity.ConnID]string),
	}
}

// CreateRoom - inserts a new room with requester as player 1. An existing room is never
// touched.
func (that *RoomStore) CreateRoom(id string, requester entity.ConnID) (entity.RoomView, error) {
	return that.CreateRoomWith(id, requester, nil)
}

// CreateRoomWith - like CreateRoom, but runs prepare while still holding the new room's lock,
// so no join or round on the room can happen before prepare returns.
func (that *RoomStore) CreateRoomWith(id string, requester entity.ConnID, prepare func(view entity.RoomView)) (entity.RoomView, error) {
	entry, err := that.insert(id, requester)
	if err != nil {
		return entity.RoomView{}, err
	}
	defer entry.mu.Unlock()

	view := entry.room.View()

	if prepare != nil {
		prepare(view)
	}

	return view, nil
}

// insert publishes a new entry for id and returns it locked.
func (that *RoomStore) insert(id string, requester entity.ConnID) (*roomEntry, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if current, ok := that.members[requester]; ok {
		return nil, fmt.Errorf("%w: %s", apperror.ErrAlreadyInRoom, current)
	}

	if existing, ok := that.rooms[id]; ok && !existing.deleted.Load() {
		return nil, fmt.Errorf("%w: %s", apperror.ErrRoomAlreadyExists, id)
	}

	entry := &roomEntry{room: entity.NewRoom(id, requester)}

	// nobody can see entry yet, so locking it under the store lock cannot deadlock
	entry.mu.Lock()

	that.rooms[id] = entry
	that.members[requester] = id

	return entry, nil
}

// JoinRoom - seats requester in room id. A current occupant gets its slot back.
func (that *RoomStore) JoinRoom(id string, requester entity.ConnID) (JoinResult, error) {
	var result JoinResult

	err := that.withEntry(id, func(entry *roomEntry) error {
		that.mu.Lock()
		defer that.mu.Unlock()

		if current, ok := that.members[requester]; ok && current != id {
			return fmt.Errorf("%w: %s", apperror.ErrAlreadyInRoom, current)
		}

		number, started, err := entry.room.Join(requester)
		if err != nil {
			return err
		}

		that.members[requester] = id

		result = JoinResult{
			Room:         entry.room.View(),
			PlayerNumber: number,
			Started:      started,
		}

		return nil
	})
	if err != nil {
		return JoinResult{}, err
	}

	return result, nil
}

// RecordChoice - stores conn's choice and reports whether both players have chosen.
func (that *RoomStore) RecordChoice(id string, conn entity.ConnID, choice rps.Choice) (bool, error) {
	var both bool

	err := that.Do(id, func(room *entity.Room) error {
		var err error
		both, err = room.RecordChoice(conn, choice)
		return err
	})

	return both, err
}

// ResolveRound - settles a round whose choices are both present.
func (that *RoomStore) ResolveRound(id string) (*entity.RoundOutcome, error) {
	var outcome *entity.RoundOutcome

	err := that.Do(id, func(room *entity.Room) error {
		var err error
		outcome, err = room.Resolve()
		return err
	})
	if err != nil {
		return nil, err
	}

	return outcome, nil
}

// MarkReady - records conn's rematch request.
func (that *RoomStore) MarkReady(id string, conn entity.ConnID) (ReadyResult, error) {
	var result ReadyResult

	err := that.Do(id, func(room *entity.Room) error {
		both, err := room.MarkReady(conn)
		if err != nil {
			return err
		}

		result = ReadyResult{Room: room.View(), BothReady: both}

		return nil
	})
	if err != nil {
		return ReadyResult{}, err
	}

	return result, nil
}

// RemovePlayer - takes conn out of room id and deletes the room once it is empty.
func (that *RoomStore) RemovePlayer(id string, conn entity.ConnID) (RemoveResult, error) {
	var result RemoveResult

	err := that.withEntry(id, func(entry *roomEntry) error {
		remaining, err := entry.room.Remove(conn)
		if err != nil {
			return err
		}

		that.mu.Lock()
		defer that.mu.Unlock()

		if that.members[conn] == id {
			delete(that.members, conn)
		}

		if remaining == 0 {
			entry.deleted.Store(true)
			if that.rooms[id] == entry {
				delete(that.rooms, id)
			}
		}

		result = RemoveResult{
			Status: entity.RoomStatus{Deleted: remaining == 0, Remaining: remaining},
			Room:   entry.room.View(),
		}

		return nil
	})
	if err != nil {
		return RemoveResult{}, err
	}

	return result, nil
}

// Do - runs fn on room id while holding the room's lock. fn must not add or remove players;
// use JoinRoom and RemovePlayer for that.
func (that *RoomStore) Do(id string, fn func(room *entity.Room) error) error {
	return that.withEntry(id, func(entry *roomEntry) error {
		return fn(entry.room)
	})
}

// Get - returns a snapshot of room id.
func (that *RoomStore) Get(id string) (entity.RoomView, error) {
	var view entity.RoomView

	err := that.Do(id, func(room *entity.Room) error {
		view = room.View()
		return nil
	})
	if err != nil {
		return entity.RoomView{}, err
	}

	return view, nil
}

// RoomOf - returns the room conn currently occupies.
func (that *RoomStore) RoomOf(conn entity.ConnID) (string, bool) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	id, ok := that.members[conn]

	return id, ok
}

func (that *RoomStore) Stats() Stats {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return Stats{
		Rooms:   len(that.rooms),
		Players: len(that.members),
	}
}

// withEntry locks the live entry for id. An entry deleted while we waited for its lock is
// looked up again, so callers never act on a removed room.
func (that *RoomStore) withEntry(id string, fn func(entry *roomEntry) error) error {
	for {
		that.mu.RLock()
		entry, ok := that.rooms[id]
		that.mu.RUnlock()

		if !ok {
			return fmt.Errorf("%w: %s", apperror.ErrRoomNotFound, id)
		}

		entry.mu.Lock()
		if entry.deleted.Load() {
			entry.mu.Unlock()
			continue
		}

		err := fn(entry)
		entry.mu.Unlock()

		return err
	}
}
