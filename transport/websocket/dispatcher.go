package websocket

import (
	"log/slog"

	"github.com/rocketscienceinc/rps-backend/internal/entity"
)

type sender interface {
	Send(id entity.ConnID, data []byte) bool
}

// Dispatcher encodes deliveries and hands each one to the addressed connection.
type Dispatcher struct {
	logger *slog.Logger
	conns  sender
}

func NewDispatcher(logger *slog.Logger, conns sender) *Dispatcher {
	return &Dispatcher{
		logger: logger.With("component", "dispatcher"),
		conns:  conns,
	}
}

// Deliver - sends every delivery in order. Recipients that went away are skipped.
func (that *Dispatcher) Deliver(deliveries []entity.Delivery) {
	log := that.logger.With("method", "Deliver")

	for _, delivery := range deliveries {
		data, err := encodeEvent(delivery.Event)
		if err != nil {
			log.Error("failed to encode event", "event", delivery.Event.Name(), "error", err)
			continue
		}

		if !that.conns.Send(delivery.To, data) {
			log.Debug("event dropped", "event", delivery.Event.Name(), "connID", delivery.To)
		}
	}
}
