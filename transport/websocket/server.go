package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-relay/internal/relay"
)

const Path = "/ws"

type handler interface {
	Serve(ctx context.Context, conn relay.Conn)
}

type Server struct {
	logger       *slog.Logger
	handler      handler
	maxPayload   int
	writeTimeout time.Duration
	upgrader     websocket.Upgrader

	mu       sync.Mutex
	draining bool
	wg       sync.WaitGroup
}

func New(logger *slog.Logger, handler handler, maxPayload int, writeTimeout time.Duration) *Server {
	return &Server{
		logger:       logger.With("component", "websocket"),
		handler:      handler,
		maxPayload:   maxPayload,
		writeTimeout: writeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
	}
}

// Start - starts WebSocket server.
func (that *Server) Start(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	return that.Serve(ctx, ln)
}

// Serve - serves upgrades on ln until ctx is canceled.
func (that *Server) Serve(ctx context.Context, ln net.Listener) error {
	log := that.logger.With("method", "Serve", "addr", ln.Addr().String())

	mux := http.NewServeMux()
	mux.HandleFunc(Path, func(w http.ResponseWriter, r *http.Request) {
		that.upgradeToWebSocket(ctx, w, r)
	})

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to shut down websocket server", "error", err)
		}
	})
	defer stop()

	log.Info("websocket relay listening", "path", Path)

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	that.mu.Lock()
	that.draining = true
	that.mu.Unlock()

	that.wg.Wait()

	return nil
}

// track - registers an upgrade with the drain group; false once Serve is draining.
func (that *Server) track() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.draining {
		return false
	}

	that.wg.Add(1)
	return true
}

// upgradeToWebSocket - upgrades the request and hands the connection to the relay.
func (that *Server) upgradeToWebSocket(ctx context.Context, writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "upgradeToWebSocket")

	if !that.track() {
		http.Error(writer, "server is shutting down", http.StatusServiceUnavailable)
		return
	}
	defer that.wg.Done()

	ws, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	conn := newConn(ws, that.maxPayload, that.writeTimeout)
	log.Debug("WebSocket connection established", "conn_id", conn.ID(), "remote_addr", conn.RemoteAddr())

	that.handler.Serve(ctx, conn)
}
