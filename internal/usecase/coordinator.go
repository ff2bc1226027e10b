package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/rps-backend/internal/apperror"
	"github.com/rocketscienceinc/rps-backend/internal/entity"
	"github.com/rocketscienceinc/rps-backend/internal/pkg"
	"github.com/rocketscienceinc/rps-backend/internal/repository"
	"github.com/rocketscienceinc/rps-backend/internal/rps"
)

const (
	maxRoomIDAttempts = 5
	gameResetMessage  = "Game has been reset"
)

type roomStore interface {
	CreateRoomWith(id string, requester entity.ConnID, prepare func(view entity.RoomView)) (entity.RoomView, error)
	JoinRoom(id string, requester entity.ConnID) (repository.JoinResult, error)
	MarkReady(id string, conn entity.ConnID) (repository.ReadyResult, error)
	RemovePlayer(id string, conn entity.ConnID) (repository.RemoveResult, error)
	Do(id string, fn func(room *entity.Room) error) error
	RoomOf(conn entity.ConnID) (string, bool)
}

type roundRecorder interface {
	Append(ctx context.Context, record *entity.RoundRecord) error
	DeleteByRoomID(ctx context.Context, roomID string) error
}

type connections interface {
	IsLive(id entity.ConnID) bool
}

// emitter delivers events that are not a direct reply to a client action.
type emitter interface {
	Deliver(deliveries []entity.Delivery)
}

type Option func(*Coordinator)

// WithRoundTimeout - resets a round whose second choice does not arrive within timeout.
func WithRoundTimeout(timeout time.Duration, out emitter) Option {
	return func(that *Coordinator) {
		that.roundTimeout = timeout
		that.emitter = out
	}
}

// WithRecorder - keeps resolved rounds in recorder.
func WithRecorder(recorder roundRecorder) Option {
	return func(that *Coordinator) {
		that.recorder = recorder
	}
}

// WithConnections - drops deliveries addressed to connections that are no longer live.
func WithConnections(conns connections) Option {
	return func(that *Coordinator) {
		that.conns = conns
	}
}

// Coordinator drives the room state machine. Every handler applies its transition inside the
// room's critical section and returns the events to emit; nothing is sent while a room is
// locked.
type Coordinator struct {
	logger *slog.Logger
	rooms  roomStore

	recorder roundRecorder
	conns    connections
	emitter  emitter
	now      func() time.Time

	roundTimeout time.Duration
	timersMu     sync.Mutex
	timers       map[string]*roundTimer
}

// roundTimer is the pending reset of one round of one room instance. A room id can be reused
// after the room is deleted, so the room pointer is part of the identity.
type roundTimer struct {
	timer *time.Timer
	room  *entity.Room
	round int
}

func NewCoordinator(logger *slog.Logger, rooms roomStore, opts ...Option) *Coordinator {
	coordinator := &Coordinator{
		logger:   logger.With("component", "coordinator"),
		rooms:    rooms,
		recorder: nopRecorder{},
		now:      time.Now,
		timers:   make(map[string]*roundTimer),
	}

	for _, opt := range opts {
		opt(coordinator)
	}

	return coordinator
}

// CreateRoom - opens room roomID with conn as player 1. An empty roomID gets a generated code.
func (that *Coordinator) CreateRoom(ctx context.Context, conn entity.ConnID, roomID string) ([]entity.Delivery, error) {
	log := that.logger.With("method", "CreateRoom", "connID", conn)

	// history left by an earlier room with the same id goes before anyone can join
	clearHistory := func(view entity.RoomView) {
		if err := that.recorder.DeleteByRoomID(ctx, view.ID); err != nil {
			log.Warn("failed to clear round history", "roomID", view.ID, "error", err)
		}
	}

	view, err := that.createRoom(conn, roomID, clearHistory)
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	log.Info("room created", "roomID", view.ID)

	return that.live([]entity.Delivery{
		{To: conn, Event: entity.PlayerSearching{PlayerNumber: view.PlayerNumberOf(conn), RoomID: view.ID}},
	}), nil
}

func (that *Coordinator) createRoom(conn entity.ConnID, roomID string, prepare func(entity.RoomView)) (entity.RoomView, error) {
	if roomID != "" {
		return that.rooms.CreateRoomWith(roomID, conn, prepare)
	}

	for range maxRoomIDAttempts {
		generated, err := pkg.GenerateRoomID()
		if err != nil {
			return entity.RoomView{}, err
		}

		view, err := that.rooms.CreateRoomWith(generated, conn, prepare)
		if errors.Is(err, apperror.ErrRoomAlreadyExists) {
			continue
		}

		return view, err
	}

	return entity.RoomView{}, fmt.Errorf("%w: no free room code", apperror.ErrRoomAlreadyExists)
}

// JoinRoom - seats conn in roomID. When the room fills, both players are told to start.
func (that *Coordinator) JoinRoom(_ context.Context, conn entity.ConnID, roomID string) ([]entity.Delivery, error) {
	log := that.logger.With("method", "JoinRoom", "connID", conn, "roomID", roomID)

	result, err := that.rooms.JoinRoom(roomID, conn)
	if err != nil {
		return nil, fmt.Errorf("failed to join room: %w", err)
	}

	deliveries := []entity.Delivery{
		{To: conn, Event: entity.PlayerSearching{PlayerNumber: result.PlayerNumber, RoomID: roomID}},
	}

	if !result.Started {
		log.Info("player rejoined", "playerNumber", result.PlayerNumber)
		return that.live(deliveries), nil
	}

	players := result.Room.PlayerIDs()
	deliveries = append(deliveries, entity.ToRoom(players, entity.PlayersConnected{RoomID: roomID, Players: players})...)
	deliveries = append(deliveries, startGame(result.Room)...)

	log.Info("game started", "round", result.Room.Round)

	return that.live(deliveries), nil
}

// SubmitChoice - records conn's choice. The second choice of a round resolves it in the same
// critical section and each player gets its own result.
func (that *Coordinator) SubmitChoice(ctx context.Context, conn entity.ConnID, roomID, rawChoice string) ([]entity.Delivery, error) {
	log := that.logger.With("method", "SubmitChoice", "connID", conn, "roomID", roomID)

	choice, err := rps.ParseChoice(rawChoice)
	if err != nil {
		return nil, fmt.Errorf("failed to submit choice: %w", err)
	}

	var (
		outcome *entity.RoundOutcome
		round   int
	)

	err = that.rooms.Do(roomID, func(room *entity.Room) error {
		previous, hadPrevious := room.Choices[conn]
		phase := room.Phase

		both, recordErr := room.RecordChoice(conn, choice)
		if recordErr != nil {
			return recordErr
		}

		round = room.Round

		if !both {
			if phase == entity.PhaseActive {
				that.scheduleReset(room)
			}

			return nil
		}

		resolved, resolveErr := room.Resolve()
		if resolveErr != nil {
			// undo the choice so the room stays as it was before this event
			if hadPrevious {
				room.Choices[conn] = previous
			} else {
				delete(room.Choices, conn)
			}
			room.Phase = phase

			return resolveErr
		}

		outcome = resolved
		that.cancelReset(room)

		return nil
	})
	if errors.Is(err, apperror.ErrNotReady) {
		log.Error("round resolution invariant violated", "error", err)
		return nil, fmt.Errorf("failed to resolve round: %w", err)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to submit choice: %w", err)
	}

	if outcome == nil {
		log.Debug("choice recorded", "round", round)

		return nil, nil
	}

	that.record(ctx, outcome)

	log.Info("round resolved", "round", outcome.Round,
		"player1", outcome.Results[0].Result, "player2", outcome.Results[1].Result)

	deliveries := make([]entity.Delivery, 0, entity.MaxPlayers)
	for _, result := range outcome.Results {
		deliveries = append(deliveries, entity.Delivery{
			To: result.Conn,
			Event: entity.GameResult{
				MyChoice:       result.MyChoice,
				OpponentChoice: result.OpponentChoice,
				Result:         result.Result,
				MyScore:        result.MyScore,
				OpponentScore:  result.OpponentScore,
				RoomID:         roomID,
			},
		})
	}

	return that.live(deliveries), nil
}

// PlayAgain - records conn's rematch request and starts the next round once both players
// asked for it.
func (that *Coordinator) PlayAgain(_ context.Context, conn entity.ConnID, roomID string) ([]entity.Delivery, error) {
	log := that.logger.With("method", "PlayAgain", "connID", conn, "roomID", roomID)

	result, err := that.rooms.MarkReady(roomID, conn)
	if err != nil {
		return nil, fmt.Errorf("failed to mark ready: %w", err)
	}

	players := result.Room.PlayerIDs()

	deliveries := entity.ToRoom(players, entity.PlayerReady{
		PlayerID:     conn,
		PlayerNumber: result.Room.PlayerNumberOf(conn),
		RoomID:       roomID,
	})

	if !result.BothReady {
		waitingFor := make([]entity.ConnID, 0, entity.MaxPlayers)
		for _, player := range result.Room.Players {
			if !player.Ready {
				waitingFor = append(waitingFor, player.ID)
			}
		}

		deliveries = append(deliveries, entity.ToRoom(players, entity.WaitingForOpponent{
			RoomID:     roomID,
			WaitingFor: waitingFor,
		})...)

		return that.live(deliveries), nil
	}

	deliveries = append(deliveries, startGame(result.Room)...)

	log.Info("next round started", "round", result.Room.Round)

	return that.live(deliveries), nil
}

// ExitGame - takes conn out of roomID.
func (that *Coordinator) ExitGame(_ context.Context, conn entity.ConnID, roomID string) ([]entity.Delivery, error) {
	deliveries, err := that.leave(conn, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to exit game: %w", err)
	}

	return deliveries, nil
}

// Disconnect - takes a closed connection out of whatever room it occupied.
func (that *Coordinator) Disconnect(_ context.Context, conn entity.ConnID) []entity.Delivery {
	log := that.logger.With("method", "Disconnect", "connID", conn)

	roomID, ok := that.rooms.RoomOf(conn)
	if !ok {
		return nil
	}

	deliveries, err := that.leave(conn, roomID)
	if err != nil {
		log.Warn("failed to remove disconnected player", "roomID", roomID, "error", err)
		return nil
	}

	return deliveries
}

// Close - stops pending round timers.
func (that *Coordinator) Close() {
	that.timersMu.Lock()
	defer that.timersMu.Unlock()

	for roomID, pending := range that.timers {
		pending.timer.Stop()
		delete(that.timers, roomID)
	}
}

func (that *Coordinator) leave(conn entity.ConnID, roomID string) ([]entity.Delivery, error) {
	log := that.logger.With("method", "leave", "connID", conn, "roomID", roomID)

	result, err := that.rooms.RemovePlayer(roomID, conn)
	if err != nil {
		return nil, err
	}

	if result.Status.Deleted {
		log.Info("room deleted, last player left")

		return nil, nil
	}

	log.Info("player left", "remaining", result.Status.Remaining)

	return that.live(entity.ToRoom(result.Room.PlayerIDs(), entity.PlayerLeft{
		RoomID:    roomID,
		Remaining: result.Status.Remaining,
	})), nil
}

func (that *Coordinator) record(ctx context.Context, outcome *entity.RoundOutcome) {
	record := &entity.RoundRecord{
		RoundOutcome: *outcome,
		ResolvedAt:   that.now().UTC(),
	}

	if err := that.recorder.Append(ctx, record); err != nil {
		that.logger.Warn("failed to record round", "roomID", outcome.RoomID, "round", outcome.Round, "error", err)
	}
}

// scheduleReset arms the reset of room's current round. Callers hold the room lock.
func (that *Coordinator) scheduleReset(room *entity.Room) {
	if that.roundTimeout <= 0 || that.emitter == nil {
		return
	}

	pending := &roundTimer{room: room, round: room.Round}

	that.timersMu.Lock()
	defer that.timersMu.Unlock()

	if current, ok := that.timers[room.ID]; ok {
		current.timer.Stop()
	}

	pending.timer = time.AfterFunc(that.roundTimeout, func() {
		that.resetRound(pending)
	})
	that.timers[room.ID] = pending
}

// cancelReset stops the reset of room's current round. Callers hold the room lock.
func (that *Coordinator) cancelReset(room *entity.Room) {
	that.timersMu.Lock()
	defer that.timersMu.Unlock()

	current, ok := that.timers[room.ID]
	if !ok || current.room != room || current.round != room.Round {
		return
	}

	current.timer.Stop()
	delete(that.timers, room.ID)
}

// resetRound clears the pending choices of pending's round if that room is still waiting on it.
func (that *Coordinator) resetRound(pending *roundTimer) {
	roomID := pending.room.ID
	log := that.logger.With("method", "resetRound", "roomID", roomID, "round", pending.round)

	that.timersMu.Lock()
	if that.timers[roomID] == pending {
		delete(that.timers, roomID)
	}
	that.timersMu.Unlock()

	var players []entity.ConnID

	err := that.rooms.Do(roomID, func(room *entity.Room) error {
		if room != pending.room || room.Round != pending.round || !room.ResetPendingChoices() {
			return nil
		}

		players = room.Players()

		return nil
	})
	if err != nil {
		log.Debug("round timer fired for a closed room", "error", err)
		return
	}

	if players == nil {
		return
	}

	log.Info("round timed out, pending choices cleared")

	that.emitter.Deliver(that.live(entity.ToRoom(players, entity.GameReset{
		RoomID:  roomID,
		Message: gameResetMessage,
	})))
}

// live drops deliveries to connections that already went away.
func (that *Coordinator) live(deliveries []entity.Delivery) []entity.Delivery {
	if that.conns == nil {
		return deliveries
	}

	alive := deliveries[:0]
	for _, delivery := range deliveries {
		if that.conns.IsLive(delivery.To) {
			alive = append(alive, delivery)
		}
	}

	return alive
}

func startGame(room entity.RoomView) []entity.Delivery {
	deliveries := make([]entity.Delivery, 0, len(room.Players))
	for _, player := range room.Players {
		deliveries = append(deliveries, entity.Delivery{
			To:    player.ID,
			Event: entity.StartGame{PlayerNumber: player.PlayerNumber, RoomID: room.ID},
		})
	}

	return deliveries
}

type nopRecorder struct{}

func (nopRecorder) Append(context.Context, *entity.RoundRecord) error { return nil }

func (nopRecorder) DeleteByRoomID(context.Context, string) error { return nil }
