// Package wire implements the framing used between chat server and its clients:
// every frame is a 2-byte big-endian length followed by that many bytes of UTF-8 text.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf8"
)

const (
	// HeaderSize - size in bytes of frame length prefix.
	HeaderSize = 2
	// MaxPayload - max number of payload bytes a single frame can carry.
	MaxPayload = math.MaxUint16
)

var (
	// ErrFrameTooLarge - payload does not fit into a single frame.
	ErrFrameTooLarge = errors.New("wire: frame payload too large")
	// ErrInvalidText - frame payload is not valid UTF-8.
	ErrInvalidText = errors.New("wire: frame payload is not valid UTF-8")
)

// WriteFrame - writes payload as a single frame with one Write call,
// so concurrent writers guarded by the same lock never interleave headers.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxPayload {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}
	frame := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint16(frame, uint16(len(payload)))
	copy(frame[HeaderSize:], payload)
	_, err := w.Write(frame)
	return err
}

// ReadFrame - reads next frame and returns its payload.
// Returns io.EOF only if the stream ended cleanly between frames.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	payload := make([]byte, binary.BigEndian.Uint16(header[:]))
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return payload, nil
}

// WriteText - writes s as a single frame.
func WriteText(w io.Writer, s string) error {
	return WriteFrame(w, []byte(s))
}

// ReadText - reads next frame and decodes it as UTF-8 text.
func ReadText(r io.Reader) (string, error) {
	payload, err := ReadFrame(r)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(payload) {
		return "", ErrInvalidText
	}
	return string(payload), nil
}
