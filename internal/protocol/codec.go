package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/rocketscienceinc/tictactoe-relay/internal/apperror"
)

const (
	// HeaderSize is the fixed width of the ASCII length prefix.
	HeaderSize = 64
	// DefaultMaxPayload caps a single payload read from the wire.
	DefaultMaxPayload = 4096
)

var ErrEmptyHeader = errors.New("empty frame header")

// Encode - prefixes the payload with its decimal length, left-aligned and space-padded to HeaderSize.
func Encode(payload string) ([]byte, error) {
	length := strconv.Itoa(len(payload))
	if len(length) > HeaderSize {
		return nil, fmt.Errorf("%w: payload of %d bytes does not fit the header", apperror.ErrFraming, len(payload))
	}

	frame := make([]byte, HeaderSize, HeaderSize+len(payload))
	copy(frame, length)
	for i := len(length); i < HeaderSize; i++ {
		frame[i] = ' '
	}

	return append(frame, payload...), nil
}

// DecodeHeader - parses the length carried by a header.
func DecodeHeader(header []byte) (int, error) {
	text := bytes.TrimSpace(header)
	if len(text) == 0 {
		return 0, ErrEmptyHeader
	}

	length, err := strconv.Atoi(string(text))
	if err != nil {
		return 0, fmt.Errorf("%w: header %q: %v", apperror.ErrFraming, text, err)
	}

	if length < 0 {
		return 0, fmt.Errorf("%w: negative length %d", apperror.ErrFraming, length)
	}

	return length, nil
}

// Reader reads frames off a stream.
type Reader struct {
	r          io.Reader
	maxPayload int
}

func NewReader(r io.Reader, maxPayload int) *Reader {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayload
	}

	return &Reader{r: r, maxPayload: maxPayload}
}

// ReadFrame - reads one header and its payload. A header that is exactly the disconnect
// request is returned as that payload without reading a body.
func (that *Reader) ReadFrame() (string, error) {
	var header [HeaderSize]byte

	if n, err := io.ReadFull(that.r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			if string(bytes.TrimSpace(header[:n])) == DisconnectRequest {
				return DisconnectRequest, nil
			}
			return "", fmt.Errorf("%w: truncated header: %w", apperror.ErrFraming, err)
		}
		return "", fmt.Errorf("failed to read header: %w", err)
	}

	if string(bytes.TrimSpace(header[:])) == DisconnectRequest {
		return DisconnectRequest, nil
	}

	length, err := DecodeHeader(header[:])
	if err != nil {
		return "", err
	}

	if length > that.maxPayload {
		return "", fmt.Errorf("%w: payload of %d bytes exceeds limit %d", apperror.ErrFraming, length, that.maxPayload)
	}

	payload := make([]byte, length)
	if _, err = io.ReadFull(that.r, payload); err != nil {
		return "", fmt.Errorf("%w: truncated payload: %w", apperror.ErrFraming, err)
	}

	return string(payload), nil
}

// WriteFrame - encodes the payload and writes it in a single call.
func WriteFrame(w io.Writer, payload string) error {
	frame, err := Encode(payload)
	if err != nil {
		return err
	}

	if _, err = w.Write(frame); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	return nil
}
