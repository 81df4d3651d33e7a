package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rocketscienceinc/tictactoe-relay/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-relay/internal/entity"
)

// Payloads exchanged with clients.
const (
	TooManyPlayers   = "TOO_MANY_PLAYERS"
	Draw             = "DRAW"
	ResetBoard       = "RESET_BOARD"
	PeerDisconnected = "DISCONNECT"

	DisconnectRequest = "D"

	movePrefix   = "MOVE"
	winnerPrefix = "WINNER"
	separator    = ":"
)

// Move is a client request to place a mark.
type Move struct {
	Mark entity.Mark
	Row  int
	Col  int
}

// RoleAssignment - the payload telling a client which mark it plays.
func RoleAssignment(mark entity.Mark) string {
	return string(mark)
}

// MoveApplied - the payload echoed to both players after a move.
func MoveApplied(move Move) string {
	return strings.Join([]string{movePrefix, string(move.Mark), strconv.Itoa(move.Row), strconv.Itoa(move.Col)}, separator)
}

func Winner(mark entity.Mark) string {
	return winnerPrefix + separator + string(mark)
}

// MoveRequest - the payload a client sends to place its mark.
func MoveRequest(mark entity.Mark, row, col int) string {
	return strings.Join([]string{string(mark), strconv.Itoa(row), strconv.Itoa(col)}, separator)
}

// ParseMove - decodes "<mark>:<row>:<col>" sent by the holder of sender.
// A foreign mark is reported as ErrMarkMismatch before the coordinates are looked at.
func ParseMove(payload string, sender entity.Mark) (Move, error) {
	parts := strings.Split(payload, separator)

	if entity.Mark(parts[0]) != sender {
		return Move{}, fmt.Errorf("%w: got %q, seat %q", apperror.ErrMarkMismatch, parts[0], sender)
	}

	if len(parts) != 3 {
		return Move{}, fmt.Errorf("%w: %q", apperror.ErrMalformedMove, payload)
	}

	row, err := strconv.Atoi(parts[1])
	if err != nil {
		return Move{}, fmt.Errorf("%w: row %q", apperror.ErrMalformedMove, parts[1])
	}

	col, err := strconv.Atoi(parts[2])
	if err != nil {
		return Move{}, fmt.Errorf("%w: col %q", apperror.ErrMalformedMove, parts[2])
	}

	return Move{Mark: sender, Row: row, Col: col}, nil
}

// ServerMessage is a decoded server payload, used by clients.
type ServerMessage struct {
	Kind string
	Mark entity.Mark
	Row  int
	Col  int
}

const (
	KindRole             = "role"
	KindTooManyPlayers   = "too_many_players"
	KindMove             = "move"
	KindWinner           = "winner"
	KindDraw             = "draw"
	KindReset            = "reset"
	KindPeerDisconnected = "peer_disconnected"
)

// ParseServerMessage - decodes any payload the relay sends.
func ParseServerMessage(payload string) (ServerMessage, error) {
	switch payload {
	case string(entity.PlayerX), string(entity.PlayerO):
		return ServerMessage{Kind: KindRole, Mark: entity.Mark(payload)}, nil
	case TooManyPlayers:
		return ServerMessage{Kind: KindTooManyPlayers}, nil
	case Draw:
		return ServerMessage{Kind: KindDraw}, nil
	case ResetBoard:
		return ServerMessage{Kind: KindReset}, nil
	case PeerDisconnected:
		return ServerMessage{Kind: KindPeerDisconnected}, nil
	}

	parts := strings.Split(payload, separator)
	if len(parts) < 2 || !entity.Mark(parts[1]).IsValid() {
		return ServerMessage{}, fmt.Errorf("%w: unknown server payload %q", apperror.ErrFraming, payload)
	}

	mark := entity.Mark(parts[1])

	switch {
	case parts[0] == winnerPrefix && len(parts) == 2:
		return ServerMessage{Kind: KindWinner, Mark: mark}, nil
	case parts[0] == movePrefix && len(parts) == 4:
		row, rowErr := strconv.Atoi(parts[2])
		col, colErr := strconv.Atoi(parts[3])
		if rowErr != nil || colErr != nil {
			break
		}
		return ServerMessage{Kind: KindMove, Mark: mark, Row: row, Col: col}, nil
	}

	return ServerMessage{}, fmt.Errorf("%w: unknown server payload %q", apperror.ErrFraming, payload)
}
