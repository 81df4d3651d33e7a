package tcp

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-relay/internal/protocol"
)

// Conn is a relay connection over a raw TCP stream using the 64-byte length header.
type Conn struct {
	id           string
	conn         net.Conn
	reader       *protocol.Reader
	writeTimeout time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func newConn(conn net.Conn, maxPayload int, writeTimeout time.Duration) *Conn {
	return &Conn{
		id:           uuid.NewString(),
		conn:         conn,
		reader:       protocol.NewReader(bufio.NewReader(conn), maxPayload),
		writeTimeout: writeTimeout,
	}
}

func (that *Conn) ID() string {
	return that.id
}

func (that *Conn) RemoteAddr() string {
	return that.conn.RemoteAddr().String()
}

// ReadPayload - blocks until one full frame has arrived.
func (that *Conn) ReadPayload() (string, error) {
	return that.reader.ReadFrame()
}

// Send - writes one frame under the write deadline; goroutine safe.
func (that *Conn) Send(payload string) error {
	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	if that.writeTimeout > 0 {
		if err := that.conn.SetWriteDeadline(time.Now().Add(that.writeTimeout)); err != nil {
			return fmt.Errorf("failed to set write deadline: %w", err)
		}
	}

	return protocol.WriteFrame(that.conn, payload)
}

func (that *Conn) Close() error {
	that.closeOnce.Do(func() {
		that.closeErr = that.conn.Close()
	})

	return that.closeErr
}
