package wire

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFrame_Header(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteText(buf, "hi"))
	assert.Equal(t, []byte{0x00, 0x02, 'h', 'i'}, buf.Bytes())

	buf.Reset()
	require.NoError(t, WriteFrame(buf, make([]byte, 0x0102)))
	assert.Equal(t, []byte{0x01, 0x02}, buf.Bytes()[:HeaderSize])
	assert.Len(t, buf.Bytes(), HeaderSize+0x0102)
}

func TestWriteFrame_TooLarge(t *testing.T) {
	buf := &bytes.Buffer{}
	err := WriteFrame(buf, make([]byte, MaxPayload+1))
	require.ErrorIs(t, err, ErrFrameTooLarge)
	assert.Zero(t, buf.Len(), "nothing must be written for oversized payload")

	require.NoError(t, WriteFrame(buf, make([]byte, MaxPayload)))
}

func TestReadText_Sequence(t *testing.T) {
	buf := &bytes.Buffer{}
	texts := []string{"Alice", "", "Hello, 世界", strings.Repeat("x", 1000)}
	for _, s := range texts {
		require.NoError(t, WriteText(buf, s))
	}
	for _, expected := range texts {
		actual, err := ReadText(buf)
		require.NoError(t, err)
		assert.Equal(t, expected, actual)
	}
	_, err := ReadText(buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadFrame_Truncated(test *testing.T) {
	cases := []struct {
		name     string
		data     []byte
		expected error
	}{
		{"empty stream", []byte{}, io.EOF},
		{"half header", []byte{0x00}, io.ErrUnexpectedEOF},
		{"short payload", []byte{0x00, 0x03, 'a', 'b'}, io.ErrUnexpectedEOF},
		{"missing payload", []byte{0x00, 0x01}, io.ErrUnexpectedEOF},
	}
	for _, c := range cases {
		test.Run(c.name, func(t *testing.T) {
			_, err := ReadFrame(bytes.NewReader(c.data))
			assert.True(t, errors.Is(err, c.expected), "expected %v, got %v", c.expected, err)
		})
	}
}

func TestReadText_InvalidUTF8(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteFrame(buf, []byte{226, 140})) // truncated "⌘"
	_, err := ReadText(buf)
	assert.ErrorIs(t, err, ErrInvalidText)
}
