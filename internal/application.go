package application

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/rocketscienceinc/tictactoe-relay/internal/config"
	"github.com/rocketscienceinc/tictactoe-relay/internal/metrics"
	"github.com/rocketscienceinc/tictactoe-relay/internal/relay"
	"github.com/rocketscienceinc/tictactoe-relay/internal/session"
	"github.com/rocketscienceinc/tictactoe-relay/internal/transport/redis"
	"github.com/rocketscienceinc/tictactoe-relay/transport/rest"
	"github.com/rocketscienceinc/tictactoe-relay/transport/tcp"
	"github.com/rocketscienceinc/tictactoe-relay/transport/websocket"
)

// RunApp - runs the application until SIGINT/SIGTERM or a listener fails.
func RunApp(ctx context.Context, logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	options := []session.Option{session.WithMetrics(metrics.New(registry))}

	if conf.Redis.Enabled() {
		publisher, err := redis.New(ctx, logger, conf.Redis.GetRedisAddr(), conf.Redis.Channel)
		if err != nil {
			return fmt.Errorf("could not connect to redis event feed: %w", err)
		}

		defer func() {
			if err = publisher.Close(); err != nil {
				log.Error("could not close redis publisher", "error", err)
			}
		}()

		options = append(options, session.WithPublisher(publisher))
		log.Info("publishing session events", "redis", conf.Redis.GetRedisAddr(), "channel", conf.Redis.Channel)
	}

	gameSession := session.New(logger, options...)
	handler := relay.NewHandler(logger, gameSession)

	group, ctx := errgroup.WithContext(ctx)

	// run relay listener
	group.Go(func() error {
		tcpServer := tcp.New(logger, handler, conf.Relay.MaxPayload, conf.Relay.WriteTimeout)
		if err := tcpServer.Start(ctx, conf.Relay.GetAddr()); err != nil {
			return fmt.Errorf("relay server error: %w", err)
		}
		return nil
	})

	// run WebSocket listener
	if conf.WebSocketPort != "" {
		group.Go(func() error {
			log.Info("Starting WebSocket server", "port", conf.WebSocketPort)
			wsServer := websocket.New(logger, handler, conf.Relay.MaxPayload, conf.Relay.WriteTimeout)
			if err := wsServer.Start(ctx, ":"+conf.WebSocketPort); err != nil {
				return fmt.Errorf("WebSocket server error: %w", err)
			}
			return nil
		})
	}

	// run HTTP server
	if conf.HTTPPort != "" {
		group.Go(func() error {
			log.Info("Starting HTTP server", "port", conf.HTTPPort)
			mux := rest.NewMux(rest.NewHandlers(logger, gameSession), registry)
			if err := rest.Start(ctx, conf.HTTPPort, mux); err != nil {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})
	}

	group.Go(func() error {
		<-ctx.Done()
		log.Info("Application context canceled, shutting down")
		gameSession.CloseAll()
		return nil
	})

	return group.Wait()
}
