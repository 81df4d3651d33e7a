package relay

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-relay/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-relay/internal/entity"
	"github.com/rocketscienceinc/tictactoe-relay/internal/protocol"
	"github.com/rocketscienceinc/tictactoe-relay/internal/session"
)

type read struct {
	payload string
	err     error
}

// scriptedConn replays reads pushed with feed and returns io.EOF once closed.
type scriptedConn struct {
	id    string
	reads chan read

	mu        sync.Mutex
	sent      []string
	closed    bool
	closeOnce sync.Once
	done      chan struct{}
}

func newConn(id string) *scriptedConn {
	return &scriptedConn{
		id:    id,
		reads: make(chan read, 16),
		done:  make(chan struct{}),
	}
}

func (that *scriptedConn) ID() string         { return that.id }
func (that *scriptedConn) RemoteAddr() string { return "test/" + that.id }

func (that *scriptedConn) Send(payload string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return net.ErrClosed
	}
	that.sent = append(that.sent, payload)
	return nil
}

func (that *scriptedConn) Close() error {
	that.closeOnce.Do(func() {
		that.mu.Lock()
		that.closed = true
		that.mu.Unlock()
		close(that.done)
	})
	return nil
}

func (that *scriptedConn) ReadPayload() (string, error) {
	select {
	case r := <-that.reads:
		return r.payload, r.err
	case <-that.done:
		return "", io.EOF
	}
}

func (that *scriptedConn) feed(payload string) {
	that.reads <- read{payload: payload}
}

func (that *scriptedConn) fail(err error) {
	that.reads <- read{err: err}
}

func (that *scriptedConn) received() []string {
	that.mu.Lock()
	defer that.mu.Unlock()

	return append([]string(nil), that.sent...)
}

func (that *scriptedConn) isClosed() bool {
	select {
	case <-that.done:
		return true
	default:
		return false
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// run - admits conn and starts its read loop; the returned channel closes when Run returns.
func run(ctx context.Context, t *testing.T, h *Handler, conn *scriptedConn) <-chan struct{} {
	t.Helper()

	mark, ok := h.Admit(conn)
	require.True(t, ok)

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		h.Run(ctx, conn, mark)
	}()

	return finished
}

func waitClosed(t *testing.T, finished <-chan struct{}) {
	t.Helper()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not return")
	}
}

func TestHandler_Admit(t *testing.T) {
	// Given: a session with both seats taken
	s := session.New(discardLogger())
	h := NewHandler(discardLogger(), s)

	_, ok := h.Admit(newConn("x"))
	require.True(t, ok)
	_, ok = h.Admit(newConn("o"))
	require.True(t, ok)

	// When: a third connection arrives
	third := newConn("3")
	mark, ok := h.Admit(third)

	// Then: it is told TOO_MANY_PLAYERS and closed
	assert.False(t, ok)
	assert.Equal(t, entity.EmptyCell, mark)
	assert.Equal(t, []string{protocol.TooManyPlayers}, third.received())
	assert.True(t, third.isClosed())
	assert.Len(t, s.Snapshot().Players, 2)
}

func TestHandler_Run(t *testing.T) {
	t.Run("Moves reach both players and a win resets the board", func(t *testing.T) {
		ctx := context.Background()
		s := session.New(discardLogger())
		h := NewHandler(discardLogger(), s)
		x, o := newConn("x"), newConn("o")

		xDone := run(ctx, t, h, x)
		oDone := run(ctx, t, h, o)

		// When: X fills the top row
		x.feed("X:0:0")
		x.feed("X:0:1")
		x.feed("X:0:2")

		// Then: both see the full sequence
		want := []string{"O", "MOVE:X:0:0", "MOVE:X:0:1", "MOVE:X:0:2", "WINNER:X", "RESET_BOARD"}
		assert.Eventually(t, func() bool {
			return assert.ObjectsAreEqual(want, o.received())
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, entity.Board{}, s.Snapshot().Board)

		x.feed(protocol.DisconnectRequest)
		waitClosed(t, xDone)
		o.feed(protocol.DisconnectRequest)
		waitClosed(t, oDone)
	})

	t.Run("Disconnect request frees the seat and notifies the peer", func(t *testing.T) {
		ctx := context.Background()
		s := session.New(discardLogger())
		h := NewHandler(discardLogger(), s)
		x, o := newConn("x"), newConn("o")

		xDone := run(ctx, t, h, x)
		oDone := run(ctx, t, h, o)

		x.feed("X:1:1")
		x.feed(protocol.DisconnectRequest)
		waitClosed(t, xDone)

		assert.True(t, x.isClosed())
		assert.Equal(t, []string{"O", "MOVE:X:1:1", protocol.PeerDisconnected}, o.received())

		state := s.Snapshot()
		assert.Equal(t, entity.Board{}, state.Board)
		assert.Equal(t, session.PhaseWaiting, state.Phase)

		o.feed(protocol.DisconnectRequest)
		waitClosed(t, oDone)
	})

	t.Run("Fatal payloads close the connection", func(t *testing.T) {
		for _, payload := range []string{"X:3:0", "X:-1:2", "X:a:b", "X:0", "X:1:1:1"} {
			t.Run(payload, func(t *testing.T) {
				s := session.New(discardLogger())
				h := NewHandler(discardLogger(), s)
				x, o := newConn("x"), newConn("o")

				xDone := run(context.Background(), t, h, x)
				oDone := run(context.Background(), t, h, o)

				x.feed(payload)
				waitClosed(t, xDone)

				assert.True(t, x.isClosed())
				assert.Equal(t, []string{"O", protocol.PeerDisconnected}, o.received())

				o.feed(protocol.DisconnectRequest)
				waitClosed(t, oDone)
			})
		}
	})

	t.Run("Ignored moves keep the connection open", func(t *testing.T) {
		s := session.New(discardLogger())
		h := NewHandler(discardLogger(), s)
		x := newConn("x")

		xDone := run(context.Background(), t, h, x)

		// Given: X alone at the table
		// When: X moves anyway, then sends payloads that do not carry its mark
		x.feed("X:0:0")
		x.feed("O:0:0")
		x.feed("hello")
		x.fail(protocol.ErrEmptyHeader)

		// Then: nothing is broadcast and X is still seated
		assert.Never(t, x.isClosed, 50*time.Millisecond, 5*time.Millisecond)
		assert.Equal(t, []string{"X"}, x.received())

		x.feed(protocol.DisconnectRequest)
		waitClosed(t, xDone)
	})

	t.Run("Framing and transport errors end the loop", func(t *testing.T) {
		for _, err := range []error{
			fmt.Errorf("%w: bad header", apperror.ErrFraming),
			io.ErrUnexpectedEOF,
		} {
			s := session.New(discardLogger())
			h := NewHandler(discardLogger(), s)
			x := newConn("x")

			xDone := run(context.Background(), t, h, x)
			x.fail(err)
			waitClosed(t, xDone)

			assert.True(t, x.isClosed())
			assert.Empty(t, s.Snapshot().Players)
		}
	})

	t.Run("Canceled context closes the connection", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		s := session.New(discardLogger())
		h := NewHandler(discardLogger(), s)
		x := newConn("x")

		xDone := run(ctx, t, h, x)
		cancel()
		waitClosed(t, xDone)

		assert.True(t, x.isClosed())
		assert.Empty(t, s.Snapshot().Players)
	})
}
