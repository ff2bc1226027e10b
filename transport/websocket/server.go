package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/rps-backend/internal/apperror"
	"github.com/rocketscienceinc/rps-backend/internal/entity"
	"github.com/rocketscienceinc/rps-backend/internal/pkg"
	"github.com/rocketscienceinc/rps-backend/internal/registry"
)

const (
	defaultSendBuffer     = 256
	defaultMaxMessageSize = 4096
	shutdownTimeout       = 5 * time.Second
)

type coordinator interface {
	CreateRoom(ctx context.Context, conn entity.ConnID, roomID string) ([]entity.Delivery, error)
	JoinRoom(ctx context.Context, conn entity.ConnID, roomID string) ([]entity.Delivery, error)
	SubmitChoice(ctx context.Context, conn entity.ConnID, roomID, rawChoice string) ([]entity.Delivery, error)
	PlayAgain(ctx context.Context, conn entity.ConnID, roomID string) ([]entity.Delivery, error)
	ExitGame(ctx context.Context, conn entity.ConnID, roomID string) ([]entity.Delivery, error)
	Disconnect(ctx context.Context, conn entity.ConnID) []entity.Delivery
}

type connRegistry interface {
	Register(conn registry.Conn)
	Unregister(id entity.ConnID) bool
	CloseAll()
}

type deliverer interface {
	Deliver(deliveries []entity.Delivery)
}

type handler func(ctx context.Context, conn entity.ConnID, payload *Payload) ([]entity.Delivery, error)

// Limits bounds what a single client may hold in memory.
type Limits struct {
	SendBuffer     int
	MaxMessageSize int64
}

type Server struct {
	logger      *slog.Logger
	coordinator coordinator
	conns       connRegistry
	out         deliverer
	limits      Limits

	upgrader websocket.Upgrader
	validate *validator.Validate
	handlers map[string]handler
}

func New(logger *slog.Logger, coordinator coordinator, conns connRegistry, out deliverer, limits Limits) *Server {
	if limits.SendBuffer <= 0 {
		limits.SendBuffer = defaultSendBuffer
	}

	if limits.MaxMessageSize <= 0 {
		limits.MaxMessageSize = defaultMaxMessageSize
	}

	server := &Server{
		logger:      logger.With("component", "websocket"),
		coordinator: coordinator,
		conns:       conns,
		out:         out,
		limits:      limits,

		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
		validate: validator.New(validator.WithRequiredStructEnabled()),
		handlers: make(map[string]handler),
	}

	server.handlers["createRoom"] = server.handleCreateRoom
	server.handlers["joinRoom"] = server.handleJoinRoom
	server.handlers["submitChoice"] = server.handleSubmitChoice
	server.handlers["playAgain"] = server.handlePlayAgain
	server.handlers["playerClicked"] = server.handlePlayAgain
	server.handlers["exitGame"] = server.handleExitGame

	return server
}

// Handler - returns the HTTP handler serving the /ws endpoint.
func (that *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", that.serveWS)

	return mux
}

// Start - starts WebSocket server and stops it when ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	log := that.logger.With("method", "Start")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to shut down server", "error", err)
		}

		// hijacked connections are not closed by Shutdown
		that.conns.CloseAll()
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// serveWS - upgrades the connection to WebSocket and serves it until it closes.
func (that *Server) serveWS(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "serveWS")

	conn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Warn("failed to upgrade connection", "error", err)
		return
	}

	ctx := context.WithoutCancel(req.Context())

	client := newClient(that.logger, pkg.NewConnID(), conn, that.limits.SendBuffer)
	that.conns.Register(client)

	go client.writePump()

	log.Info("WebSocket connection established", "connID", client.ID())

	that.out.Deliver([]entity.Delivery{
		{To: client.ID(), Event: entity.Connected{ConnectionID: client.ID()}},
	})

	client.readPump(ctx, that.limits.MaxMessageSize, func(ctx context.Context, data []byte) {
		that.handleMessage(ctx, client.ID(), data)
	})

	that.disconnect(ctx, client)
}

// handleMessage - runs one inbound message and sends the resulting events. A rejected message
// is answered with an error event to its sender only.
func (that *Server) handleMessage(ctx context.Context, conn entity.ConnID, data []byte) {
	log := that.logger.With("method", "handleMessage", "connID", conn)

	deliveries, err := that.process(ctx, conn, data)
	if err != nil {
		log.Info("message rejected", "error", err)
		deliveries = []entity.Delivery{{To: conn, Event: errorEvent(err)}}
	}

	that.out.Deliver(deliveries)
}

func (that *Server) process(ctx context.Context, conn entity.ConnID, data []byte) ([]entity.Delivery, error) {
	message, payload, err := decodeMessage(data)
	if err != nil {
		return nil, err
	}

	handle, ok := that.handlers[message.Action]
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperror.ErrUnknownAction, message.Action)
	}

	return handle(ctx, conn, payload)
}

func (that *Server) disconnect(ctx context.Context, client *Client) {
	log := that.logger.With("method", "disconnect", "connID", client.ID())

	deliveries := that.coordinator.Disconnect(ctx, client.ID())

	that.conns.Unregister(client.ID())
	client.Close()

	that.out.Deliver(deliveries)

	log.Info("WebSocket connection closed")
}
