// Package client speaks the relay's length-prefixed protocol over TCP.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-relay/internal/entity"
	"github.com/rocketscienceinc/tictactoe-relay/internal/protocol"
)

var (
	ErrTooManyPlayers  = errors.New("relay rejected the connection: too many players")
	ErrUnexpectedGreet = errors.New("unexpected first message from relay")
)

type Client struct {
	conn   net.Conn
	reader *protocol.Reader
	role   entity.Mark

	writeMu sync.Mutex
}

// Dial - connects and waits for the role assignment.
func Dial(ctx context.Context, addr string) (*Client, error) {
	var dialer net.Dialer

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial relay: %w", err)
	}

	that := &Client{
		conn:   conn,
		reader: protocol.NewReader(bufio.NewReader(conn), protocol.DefaultMaxPayload),
	}

	msg, err := that.Next(ctx)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	switch msg.Kind {
	case protocol.KindRole:
		that.role = msg.Mark
	case protocol.KindTooManyPlayers:
		_ = conn.Close()
		return nil, ErrTooManyPlayers
	default:
		_ = conn.Close()
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedGreet, msg.Kind)
	}

	return that, nil
}

// Role - the mark assigned by the relay.
func (that *Client) Role() entity.Mark {
	return that.role
}

// Next - waits for the next server message or until ctx is done.
func (that *Client) Next(ctx context.Context) (protocol.ServerMessage, error) {
	payload, err := that.NextRaw(ctx)
	if err != nil {
		return protocol.ServerMessage{}, err
	}

	return protocol.ParseServerMessage(payload)
}

// NextRaw - like Next, without decoding the payload.
func (that *Client) NextRaw(ctx context.Context) (string, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}

	if err := that.conn.SetReadDeadline(deadline); err != nil {
		return "", fmt.Errorf("failed to set read deadline: %w", err)
	}

	payload, err := that.reader.ReadFrame()
	if err != nil {
		return "", fmt.Errorf("failed to read from relay: %w", err)
	}

	return payload, nil
}

// Move - asks the relay to place this client's mark.
func (that *Client) Move(row, col int) error {
	return that.Send(protocol.MoveRequest(that.role, row, col))
}

// Send - writes a raw payload.
func (that *Client) Send(payload string) error {
	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	return protocol.WriteFrame(that.conn, payload)
}

// Disconnect - sends the disconnect request and closes the connection.
func (that *Client) Disconnect() error {
	if err := that.Send(protocol.DisconnectRequest); err != nil {
		_ = that.conn.Close()
		return err
	}

	return that.Close()
}

func (that *Client) Close() error {
	return that.conn.Close()
}
