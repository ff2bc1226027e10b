package websocket

import (
	"context"
	"fmt"

	"github.com/rocketscienceinc/rps-backend/internal/apperror"
	"github.com/rocketscienceinc/rps-backend/internal/entity"
)

func (that *Server) handleCreateRoom(ctx context.Context, conn entity.ConnID, payload *Payload) ([]entity.Delivery, error) {
	if err := that.validate.Struct(createRequest{RoomID: payload.RoomID}); err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrInvalidPayload, err)
	}

	return that.coordinator.CreateRoom(ctx, conn, payload.RoomID)
}

func (that *Server) handleJoinRoom(ctx context.Context, conn entity.ConnID, payload *Payload) ([]entity.Delivery, error) {
	if err := that.validateRoom(payload); err != nil {
		return nil, err
	}

	return that.coordinator.JoinRoom(ctx, conn, payload.RoomID)
}

func (that *Server) handleSubmitChoice(ctx context.Context, conn entity.ConnID, payload *Payload) ([]entity.Delivery, error) {
	if err := that.validateRoom(payload); err != nil {
		return nil, err
	}

	return that.coordinator.SubmitChoice(ctx, conn, payload.RoomID, payload.Choice)
}

func (that *Server) handlePlayAgain(ctx context.Context, conn entity.ConnID, payload *Payload) ([]entity.Delivery, error) {
	if err := that.validateRoom(payload); err != nil {
		return nil, err
	}

	return that.coordinator.PlayAgain(ctx, conn, payload.RoomID)
}

func (that *Server) handleExitGame(ctx context.Context, conn entity.ConnID, payload *Payload) ([]entity.Delivery, error) {
	if err := that.validateRoom(payload); err != nil {
		return nil, err
	}

	return that.coordinator.ExitGame(ctx, conn, payload.RoomID)
}

func (that *Server) validateRoom(payload *Payload) error {
	if err := that.validate.Struct(roomRequest{RoomID: payload.RoomID}); err != nil {
		return fmt.Errorf("%w: %w", apperror.ErrInvalidPayload, err)
	}

	return nil
}
