package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rocketscienceinc/rps-backend/internal/apperror"
	"github.com/rocketscienceinc/rps-backend/internal/entity"
	"github.com/rocketscienceinc/rps-backend/internal/repository"
)

type roomReader interface {
	Get(id string) (entity.RoomView, error)
	Stats() repository.Stats
}

type roundLister interface {
	ListByRoomID(ctx context.Context, roomID string, limit int64) ([]*entity.RoundRecord, error)
}

type connCounter interface {
	Count() int
}

type statsResponse struct {
	repository.Stats
	Connections int `json:"connections"`
}

type roundsResponse struct {
	RoomID string                `json:"roomID"`
	Rounds []*entity.RoundRecord `json:"rounds"`
}

type Handlers struct {
	logger *slog.Logger
	rooms  roomReader
	conns  connCounter
	rounds roundLister
}

// NewHandlers - rounds may be nil when round history is disabled.
func NewHandlers(logger *slog.Logger, rooms roomReader, conns connCounter, rounds roundLister) *Handlers {
	return &Handlers{
		logger: logger.With("component", "rest"),
		rooms:  rooms,
		conns:  conns,
		rounds: rounds,
	}
}

func (that *Handlers) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, statsResponse{
		Stats:       that.rooms.Stats(),
		Connections: that.conns.Count(),
	})
}

func (that *Handlers) Room(c *gin.Context) {
	room, err := that.rooms.Get(c.Param("id"))
	if errors.Is(err, apperror.ErrRoomNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	if err != nil {
		that.logger.Error("failed to get room", "roomID", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, room)
}

func (that *Handlers) Rounds(c *gin.Context) {
	log := that.logger.With("method", "Rounds", "roomID", c.Param("id"))

	if that.rounds == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "round history is disabled"})
		return
	}

	var limit int64
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}

		limit = parsed
	}

	rounds, err := that.rounds.ListByRoomID(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		log.Error("failed to list rounds", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, roundsResponse{RoomID: c.Param("id"), Rounds: rounds})
}
