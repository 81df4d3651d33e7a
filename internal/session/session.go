package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-relay/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-relay/internal/entity"
	"github.com/rocketscienceinc/tictactoe-relay/internal/metrics"
	"github.com/rocketscienceinc/tictactoe-relay/internal/protocol"
)

const (
	PhaseWaiting = "waiting"
	PhaseActive  = "active"
)

// Peer is a live connection as seen by the session.
type Peer interface {
	ID() string
	RemoteAddr() string
	// Send writes one payload. It must not block indefinitely.
	Send(payload string) error
	Close() error
}

type publisher interface {
	Publish(event entity.Event)
}

// State is a point-in-time copy of the session.
type State struct {
	Phase   string        `json:"phase"`
	Board   entity.Board  `json:"board"`
	Turn    entity.Mark   `json:"turn"`
	Players []entity.Seat `json:"players"`
}

// Session owns the board and both seats. Every read and write happens under mu,
// including the broadcasts a change causes, so clients see changes in the order they were applied.
type Session struct {
	logger    *slog.Logger
	metrics   *metrics.Relay
	publisher publisher

	mu    sync.Mutex
	game  *entity.Game
	seats [len(entity.Marks)]Peer
}

type Option func(*Session)

func WithPublisher(p publisher) Option {
	return func(that *Session) {
		that.publisher = p
	}
}

func WithMetrics(m *metrics.Relay) Option {
	return func(that *Session) {
		that.metrics = m
	}
}

func New(logger *slog.Logger, options ...Option) *Session {
	that := &Session{
		logger:    logger.With("component", "session"),
		metrics:   metrics.Discard(),
		publisher: nopPublisher{},
		game:      entity.NewGame(),
	}

	for _, option := range options {
		option(that)
	}

	return that
}

// Join - seats the peer on the first free mark and sends it its role.
// Returns ErrTooManyPlayers without touching the session when both seats are taken.
func (that *Session) Join(peer Peer) (entity.Mark, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	log := that.logger.With("method", "Join", "conn_id", peer.ID())

	slot := -1
	for i, seated := range that.seats {
		if seated == nil {
			slot = i
			break
		}
	}

	if slot < 0 {
		that.metrics.ConnectionsRejected.Inc()
		that.publish(entity.Event{Type: entity.EventRejected})
		log.Warn("rejecting connection, session is full", "remote_addr", peer.RemoteAddr())
		return entity.EmptyCell, apperror.ErrTooManyPlayers
	}

	mark := entity.Marks[slot]
	that.seats[slot] = peer
	that.metrics.PlayersConnected.Inc()

	log.Info("player joined", "mark", mark, "remote_addr", peer.RemoteAddr())

	that.sendTo(peer, protocol.RoleAssignment(mark))
	that.publish(entity.Event{Type: entity.EventJoined, Mark: mark})

	return mark, nil
}

// ApplyMove - places the sender's mark and broadcasts the result. Rejected moves
// (foreign mark, occupied cell, waiting session) return their error and change nothing.
// A decided game is announced, then the board is cleared and RESET_BOARD is broadcast.
func (that *Session) ApplyMove(sender Peer, move protocol.Move) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	slot := that.slotOf(sender)
	if slot < 0 {
		return apperror.ErrNotSeated
	}

	mark := entity.Marks[slot]
	if move.Mark != mark {
		that.metrics.Moves.WithLabelValues("ignored").Inc()
		return fmt.Errorf("%w: seat %s sent %s", apperror.ErrMarkMismatch, mark, move.Mark)
	}

	if _, err := entity.CellIndex(move.Row, move.Col); err != nil {
		return err
	}

	if that.phase() != PhaseActive {
		that.metrics.Moves.WithLabelValues("ignored").Inc()
		return apperror.ErrGameIsNotStarted
	}

	outcome, err := that.game.MakeMove(mark, move.Row, move.Col)
	if err != nil {
		if errors.Is(err, apperror.ErrCellOccupied) {
			that.metrics.Moves.WithLabelValues("ignored").Inc()
		}
		return err
	}

	that.metrics.Moves.WithLabelValues("applied").Inc()

	row, col := move.Row, move.Col
	that.broadcast(protocol.MoveApplied(move))
	that.publish(entity.Event{Type: entity.EventMove, Mark: mark, Row: &row, Col: &col})

	switch outcome {
	case entity.OutcomeWin:
		that.logger.Info("game won", "mark", mark)
		that.metrics.GamesDecided.WithLabelValues(outcome.String()).Inc()
		that.broadcast(protocol.Winner(mark))
		that.publish(entity.Event{Type: entity.EventWinner, Mark: mark})
		that.resetAndAnnounce()
	case entity.OutcomeDraw:
		that.logger.Info("game drawn")
		that.metrics.GamesDecided.WithLabelValues(outcome.String()).Inc()
		that.broadcast(protocol.Draw)
		that.publish(entity.Event{Type: entity.EventDraw})
		that.resetAndAnnounce()
	case entity.OutcomeOngoing:
	}

	return nil
}

// Leave - frees the peer's seat, tells the other player and clears the board.
// Calling it for a peer that is not seated is a no-op.
func (that *Session) Leave(peer Peer, reason string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	slot := that.slotOf(peer)
	if slot < 0 {
		return
	}

	mark := entity.Marks[slot]
	that.seats[slot] = nil
	that.metrics.PlayersConnected.Dec()
	that.metrics.Disconnects.WithLabelValues(reason).Inc()

	that.logger.Info("player left", "mark", mark, "conn_id", peer.ID(), "reason", reason)

	that.notifyPeerDisconnect(mark)
	that.publish(entity.Event{Type: entity.EventLeft, Mark: mark, Reason: reason})

	that.game.Reset()
	that.publish(entity.Event{Type: entity.EventReset})
}

// Snapshot - copies the current state.
func (that *Session) Snapshot() State {
	that.mu.Lock()
	defer that.mu.Unlock()

	state := State{
		Phase:   that.phase(),
		Board:   that.game.Board,
		Turn:    that.game.Turn,
		Players: make([]entity.Seat, 0, len(that.seats)),
	}

	for i, peer := range that.seats {
		if peer == nil {
			continue
		}
		state.Players = append(state.Players, entity.Seat{
			ConnID:     peer.ID(),
			Mark:       entity.Marks[i],
			RemoteAddr: peer.RemoteAddr(),
		})
	}

	return state
}

// CloseAll - closes every seated connection. Their handlers run Leave as they exit.
func (that *Session) CloseAll() {
	that.mu.Lock()
	defer that.mu.Unlock()

	for _, peer := range that.seats {
		if peer == nil {
			continue
		}
		if err := peer.Close(); err != nil {
			that.logger.Debug("failed to close connection", "conn_id", peer.ID(), "error", err)
		}
	}
}

func (that *Session) resetAndAnnounce() {
	that.game.Reset()
	that.broadcast(protocol.ResetBoard)
	that.publish(entity.Event{Type: entity.EventReset})
}

// notifyPeerDisconnect - sends DISCONNECT to every seat not held by leaving.
func (that *Session) notifyPeerDisconnect(leaving entity.Mark) {
	for i, peer := range that.seats {
		if peer == nil || entity.Marks[i] == leaving {
			continue
		}
		that.sendTo(peer, protocol.PeerDisconnected)
	}
}

// broadcast - sends the payload to every seat; one failing send does not skip the other.
func (that *Session) broadcast(payload string) {
	for _, peer := range that.seats {
		if peer == nil {
			continue
		}
		that.sendTo(peer, payload)
	}
}

// sendTo - a failed send is terminal: the transport is closed and the peer's read loop
// will observe it and leave.
func (that *Session) sendTo(peer Peer, payload string) {
	if err := peer.Send(payload); err != nil {
		that.logger.Warn("failed to send, closing connection", "conn_id", peer.ID(), "payload", payload, "error", err)
		_ = peer.Close()
	}
}

func (that *Session) publish(event entity.Event) {
	event.Board = that.game.Board
	event.At = time.Now().UTC()
	that.publisher.Publish(event)
}

func (that *Session) slotOf(peer Peer) int {
	for i, seated := range that.seats {
		if seated != nil && seated == peer {
			return i
		}
	}
	return -1
}

func (that *Session) phase() string {
	for _, peer := range that.seats {
		if peer == nil {
			return PhaseWaiting
		}
	}
	return PhaseActive
}

type nopPublisher struct{}

func (nopPublisher) Publish(entity.Event) {}
