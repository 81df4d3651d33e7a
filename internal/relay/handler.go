package relay

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-relay/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-relay/internal/entity"
	"github.com/rocketscienceinc/tictactoe-relay/internal/protocol"
	"github.com/rocketscienceinc/tictactoe-relay/internal/session"
)

// Disconnect reasons, also used as metric labels.
const (
	ReasonRequest   = "request"
	ReasonTransport = "transport"
	ReasonFraming   = "framing"
	ReasonProtocol  = "protocol"
	ReasonShutdown  = "shutdown"
)

// Conn is a transport connection that yields one payload per call.
type Conn interface {
	session.Peer
	ReadPayload() (string, error)
}

type registry interface {
	Join(peer session.Peer) (entity.Mark, error)
	ApplyMove(sender session.Peer, move protocol.Move) error
	Leave(peer session.Peer, reason string)
}

// Handler runs the read loop of every accepted connection against one session.
type Handler struct {
	logger  *slog.Logger
	session registry
}

func NewHandler(logger *slog.Logger, session registry) *Handler {
	return &Handler{
		logger:  logger.With("component", "relay"),
		session: session,
	}
}

// Serve - admits the connection and, when seated, runs its read loop.
func (that *Handler) Serve(ctx context.Context, conn Conn) {
	mark, ok := that.Admit(conn)
	if !ok {
		return
	}

	that.Run(ctx, conn, mark)
}

// Admit - seats the connection. A rejected connection is told TOO_MANY_PLAYERS and closed.
// Listeners call it from the accept loop so seats follow arrival order.
func (that *Handler) Admit(conn Conn) (entity.Mark, bool) {
	log := that.logger.With("method", "Admit", "conn_id", conn.ID(), "remote_addr", conn.RemoteAddr())

	mark, err := that.session.Join(conn)
	if err == nil {
		return mark, true
	}

	if errors.Is(err, apperror.ErrTooManyPlayers) {
		if sendErr := conn.Send(protocol.TooManyPlayers); sendErr != nil {
			log.Debug("failed to send rejection", "error", sendErr)
		}
	} else {
		log.Error("failed to join session", "error", err)
	}

	_ = conn.Close()

	return entity.EmptyCell, false
}

// Run - processes frames from a seated connection until it disconnects, then frees the seat.
// It always closes the connection before returning.
func (that *Handler) Run(ctx context.Context, conn Conn, mark entity.Mark) {
	log := that.logger.With("method", "Run", "conn_id", conn.ID(), "remote_addr", conn.RemoteAddr(), "mark", mark)

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})

	reason := that.readLoop(log, conn, mark)
	if !stop() && ctx.Err() != nil {
		reason = ReasonShutdown
	}

	that.session.Leave(conn, reason)
	_ = conn.Close()

	log.Info("connection closed", "reason", reason)
}

// readLoop - returns the reason the connection has to go.
func (that *Handler) readLoop(log *slog.Logger, conn Conn, mark entity.Mark) string {
	for {
		payload, err := conn.ReadPayload()
		switch {
		case errors.Is(err, protocol.ErrEmptyHeader):
			continue
		case errors.Is(err, apperror.ErrFraming):
			log.Warn("framing error", "error", err)
			return ReasonFraming
		case err != nil:
			log.Debug("read failed", "error", err)
			return ReasonTransport
		}

		if payload == protocol.DisconnectRequest {
			log.Info("player requested disconnect")
			return ReasonRequest
		}

		move, err := protocol.ParseMove(payload, mark)
		if err == nil {
			err = that.session.ApplyMove(conn, move)
		}

		if apperror.IsFatal(err) {
			log.Warn("protocol error, closing connection", "payload", payload, "error", err)
			return ReasonProtocol
		}

		if err != nil {
			log.Debug("move ignored", "payload", payload, "error", err)
		}
	}
}
