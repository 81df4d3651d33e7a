package tcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-relay/internal/entity"
	"github.com/rocketscienceinc/tictactoe-relay/internal/relay"
)

const maxAcceptDelay = time.Second

type handler interface {
	Admit(conn relay.Conn) (entity.Mark, bool)
	Run(ctx context.Context, conn relay.Conn, mark entity.Mark)
}

type Server struct {
	logger       *slog.Logger
	handler      handler
	maxPayload   int
	writeTimeout time.Duration

	wg sync.WaitGroup
}

func New(logger *slog.Logger, handler handler, maxPayload int, writeTimeout time.Duration) *Server {
	return &Server{
		logger:       logger.With("component", "tcp"),
		handler:      handler,
		maxPayload:   maxPayload,
		writeTimeout: writeTimeout,
	}
}

// Start - listens on addr and serves until ctx is canceled.
func (that *Server) Start(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	return that.Serve(ctx, ln)
}

// Serve - accepts connections from ln, one goroutine each, until ctx is canceled or
// Accept fails for good. Either way it returns once every connection handler has finished.
func (that *Server) Serve(ctx context.Context, ln net.Listener) error {
	log := that.logger.With("method", "Serve", "addr", ln.Addr().String())

	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})
	defer stop()

	log.Info("relay listening")

	var tempDelay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				that.wg.Wait()
				log.Info("relay listener stopped")
				return nil
			}

			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				if tempDelay == 0 {
					tempDelay = 5 * time.Millisecond
				} else {
					tempDelay *= 2
				}
				tempDelay = min(tempDelay, maxAcceptDelay)

				log.Warn("accept error, retrying", "error", err, "delay", tempDelay)
				time.Sleep(tempDelay)
				continue
			}

			that.wg.Wait()
			return fmt.Errorf("failed to accept connection: %w", err)
		}
		tempDelay = 0

		tcpConn := newConn(conn, that.maxPayload, that.writeTimeout)
		log.Debug("connection accepted", "conn_id", tcpConn.ID(), "remote_addr", tcpConn.RemoteAddr())

		mark, ok := that.handler.Admit(tcpConn)
		if !ok {
			continue
		}

		that.wg.Add(1)
		go func() {
			defer that.wg.Done()
			that.handler.Run(ctx, tcpConn, mark)
		}()
	}
}
