package websocket

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-relay/internal/apperror"
)

// Conn carries one relay payload per WebSocket message; the WebSocket framing
// replaces the 64-byte length header.
type Conn struct {
	id           string
	ws           *websocket.Conn
	writeTimeout time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func newConn(ws *websocket.Conn, maxPayload int, writeTimeout time.Duration) *Conn {
	ws.SetReadLimit(int64(maxPayload))

	return &Conn{
		id:           uuid.NewString(),
		ws:           ws,
		writeTimeout: writeTimeout,
	}
}

func (that *Conn) ID() string {
	return that.id
}

func (that *Conn) RemoteAddr() string {
	return that.ws.RemoteAddr().String()
}

// ReadPayload - blocks until the next data message arrives.
func (that *Conn) ReadPayload() (string, error) {
	_, data, err := that.ws.ReadMessage()
	if err != nil {
		if errors.Is(err, websocket.ErrReadLimit) {
			return "", fmt.Errorf("%w: %w", apperror.ErrFraming, err)
		}
		return "", fmt.Errorf("failed to read message: %w", err)
	}

	return string(data), nil
}

// Send - writes one text message under the write deadline; goroutine safe.
func (that *Conn) Send(payload string) error {
	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	if that.writeTimeout > 0 {
		if err := that.ws.SetWriteDeadline(time.Now().Add(that.writeTimeout)); err != nil {
			return fmt.Errorf("failed to set write deadline: %w", err)
		}
	}

	if err := that.ws.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

func (that *Conn) Close() error {
	that.closeOnce.Do(func() {
		that.closeErr = that.ws.Close()
	})

	return that.closeErr
}
