package protocol

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-relay/internal/apperror"
)

func TestEncode(t *testing.T) {
	// When: a short payload is encoded
	frame, err := Encode("X:0:1")
	require.NoError(t, err)

	// Then: the header is the left-aligned length padded to 64 bytes
	require.Len(t, frame, HeaderSize+5)
	assert.Equal(t, "5"+strings.Repeat(" ", HeaderSize-1), string(frame[:HeaderSize]))
	assert.Equal(t, "X:0:1", string(frame[HeaderSize:]))
}

func TestReadFrame_RoundTrip(t *testing.T) {
	sizes := []int{0, 1, 9, 10, 63, 64, 65, 999, 1000, DefaultMaxPayload}

	for _, size := range sizes {
		// Given: a payload of the given size with multibyte characters mixed in
		payload := strings.Repeat("a", size)
		if size >= 3 {
			payload = "é" + payload[2:]
		}

		var buf bytes.Buffer
		require.NoError(t, WriteFrame(&buf, payload))

		// When: the frame is read back
		got, err := NewReader(&buf, DefaultMaxPayload).ReadFrame()

		// Then: the payload bytes are reproduced exactly
		require.NoError(t, err, "size %d", size)
		assert.Equal(t, payload, got, "size %d", size)
	}
}

func TestReadFrame_Sequence(t *testing.T) {
	var buf bytes.Buffer
	for _, p := range []string{"X", "MOVE:X:0:0", "", "WINNER:X"} {
		require.NoError(t, WriteFrame(&buf, p))
	}

	reader := NewReader(&buf, 0)
	for _, want := range []string{"X", "MOVE:X:0:0", "", "WINNER:X"} {
		got, err := reader.ReadFrame()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := reader.ReadFrame()
	require.ErrorIs(t, err, io.EOF)
}

func TestReadFrame_Errors(t *testing.T) {
	pad := func(s string) string { return s + strings.Repeat(" ", HeaderSize-len(s)) }

	t.Run("Non numeric header", func(t *testing.T) {
		_, err := NewReader(strings.NewReader(pad("abc")), 0).ReadFrame()
		require.ErrorIs(t, err, apperror.ErrFraming)
	})

	t.Run("Negative length", func(t *testing.T) {
		_, err := NewReader(strings.NewReader(pad("-4")), 0).ReadFrame()
		require.ErrorIs(t, err, apperror.ErrFraming)
	})

	t.Run("Truncated header", func(t *testing.T) {
		_, err := NewReader(strings.NewReader("12  "), 0).ReadFrame()
		require.ErrorIs(t, err, apperror.ErrFraming)
	})

	t.Run("Truncated payload", func(t *testing.T) {
		_, err := NewReader(strings.NewReader(pad("10")+"X:0"), 0).ReadFrame()
		require.ErrorIs(t, err, apperror.ErrFraming)
	})

	t.Run("Payload over the limit", func(t *testing.T) {
		_, err := NewReader(strings.NewReader(pad("100")+strings.Repeat("a", 100)), 10).ReadFrame()
		require.ErrorIs(t, err, apperror.ErrFraming)
	})

	t.Run("Blank header", func(t *testing.T) {
		_, err := NewReader(strings.NewReader(pad("")), 0).ReadFrame()
		require.ErrorIs(t, err, ErrEmptyHeader)
	})
}

func TestReadFrame_BareDisconnect(t *testing.T) {
	t.Run("Padded header", func(t *testing.T) {
		header := DisconnectRequest + strings.Repeat(" ", HeaderSize-1)

		got, err := NewReader(strings.NewReader(header), 0).ReadFrame()

		require.NoError(t, err)
		assert.Equal(t, DisconnectRequest, got)
	})

	t.Run("Single byte then close", func(t *testing.T) {
		got, err := NewReader(strings.NewReader(DisconnectRequest), 0).ReadFrame()

		require.NoError(t, err)
		assert.Equal(t, DisconnectRequest, got)
	})

	t.Run("Short padded header then close", func(t *testing.T) {
		got, err := NewReader(strings.NewReader(DisconnectRequest+"  "), 0).ReadFrame()

		require.NoError(t, err)
		assert.Equal(t, DisconnectRequest, got)
	})

	t.Run("Other short header then close", func(t *testing.T) {
		_, err := NewReader(strings.NewReader("12"), 0).ReadFrame()

		require.ErrorIs(t, err, apperror.ErrFraming)
	})

	t.Run("Framed request", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteFrame(&buf, DisconnectRequest))

		got, err := NewReader(&buf, 0).ReadFrame()

		require.NoError(t, err)
		assert.Equal(t, DisconnectRequest, got)
	})
}

func TestDecodeHeader(t *testing.T) {
	length, err := DecodeHeader([]byte("  42  "))
	require.NoError(t, err)
	assert.Equal(t, 42, length)
}
