package comm

import (
	"errors"
	"fmt"
)

var (
	// ErrUnexpectedEOF indicates the payload ends in the middle of a field.
	ErrUnexpectedEOF = errors.New("unexpected end of payload")
	// ErrVarintOverflow indicates a varint doesn't fit the target width.
	ErrVarintOverflow = errors.New("varint overflow")
	// ErrStringTooLong indicates a string exceeds its bounded capacity.
	ErrStringTooLong = errors.New("string too long")
	// ErrInvalidString indicates a string is not valid UTF-8.
	ErrInvalidString = errors.New("invalid utf-8 string")
	// ErrTrailingBytes indicates extra bytes after a decoded payload.
	ErrTrailingBytes = errors.New("trailing bytes after payload")
	// ErrMalformedFrame indicates the COBS encoding is broken.
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrFrameTooLarge indicates the encoded frame doesn't fit the buffer.
	ErrFrameTooLarge = errors.New("frame too large")
)

// DecodeError wraps an error happened when decoding a frame.
type DecodeError struct {
	Stage string
	Err   error
}

// Error implements error.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}
