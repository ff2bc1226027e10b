package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/rocketscienceinc/rps-backend/internal/config"
	"github.com/rocketscienceinc/rps-backend/internal/registry"
	"github.com/rocketscienceinc/rps-backend/internal/repository"
	"github.com/rocketscienceinc/rps-backend/internal/repository/storage"
	"github.com/rocketscienceinc/rps-backend/internal/usecase"
	"github.com/rocketscienceinc/rps-backend/transport/rest"
	"github.com/rocketscienceinc/rps-backend/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application until ctx is done, a signal arrives or a server fails.
func RunApp(ctx context.Context, logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rooms := repository.NewRoomStore()
	conns := registry.New()
	dispatcher := websocket.NewDispatcher(logger, conns)

	opts := []usecase.Option{
		usecase.WithConnections(conns),
		usecase.WithRoundTimeout(conf.RoundTimeout, dispatcher),
	}

	var history repository.RoundRepository

	if conf.Redis.Enabled {
		redisStorage, err := connectRedis(ctx, conf)
		if err != nil {
			return err
		}

		defer func() {
			if err = redisStorage.Close(); err != nil {
				log.Error("could not close redis storage", "error", err)
			}
		}()

		history = repository.NewRoundRepository(redisStorage.Connection, conf.HistoryLimit, conf.HistoryTTL)
		opts = append(opts, usecase.WithRecorder(history))

		log.Info("round history enabled", "addr", conf.Redis.GetRedisAddr())
	}

	coordinator := usecase.NewCoordinator(logger, rooms, opts...)
	defer coordinator.Close()

	wsServer := websocket.New(logger, coordinator, conns, dispatcher, websocket.Limits{
		SendBuffer:     conf.WebSocket.SendBuffer,
		MaxMessageSize: conf.WebSocket.MaxMessageSize,
	})

	gin.SetMode(gin.ReleaseMode)
	router := rest.NewRouter(logger, rest.NewHandlers(logger, rooms, conns, history))

	group, groupCtx := errgroup.WithContext(ctx)

	// run HTTP server
	group.Go(func() error {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)

		if err := rest.Start(groupCtx, logger, conf.HTTPPort, router); err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}

		return nil
	})

	// run Websocket server
	group.Go(func() error {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)

		if err := wsServer.Start(groupCtx, conf.SocketPort); err != nil {
			return fmt.Errorf("WebSocket server error: %w", err)
		}

		return nil
	})

	if err := group.Wait(); err != nil {
		return err
	}

	log.Info("Application context canceled, shut down")

	return nil
}

func connectRedis(ctx context.Context, conf *config.Config) (*storage.RedisStorage, error) {
	redisAddrString := conf.Redis.GetRedisAddr()
	if conf.Redis.Host == "" || conf.Redis.Port == "" {
		return nil, ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString)
	if err != nil {
		return nil, fmt.Errorf("could not connect to redis storage: %w", err)
	}

	return redisStorage, nil
}
