package comm

import (
	"fmt"
	"io"
)

// MaxFrameSize is the frame buffer size used by producers.
const MaxFrameSize = 1024

// Payload is the content carried by a frame.
type Payload interface {
	EncodePayload(*Encoder) error
	DecodePayload(*Decoder) error
}

// EncodeFrame serializes p into buf as a COBS frame including the terminator.
// It fails with ErrFrameTooLarge instead of truncating.
func EncodeFrame(p Payload, buf []byte) ([]byte, error) {
	var enc Encoder
	if err := p.EncodePayload(&enc); err != nil {
		return nil, err
	}
	if need := CobsMaxEncodedLen(enc.Len()) + 1; need > len(buf) {
		return nil, fmt.Errorf("%w: need %d bytes, buffer has %d", ErrFrameTooLarge, need, len(buf))
	}
	frame := CobsEncode(buf[:0], enc.Bytes())
	return append(frame, 0), nil
}

// AppendFrame appends the frame of p to dst.
func AppendFrame(dst []byte, p Payload) ([]byte, error) {
	var enc Encoder
	if err := p.EncodePayload(&enc); err != nil {
		return dst, err
	}
	return append(CobsEncode(dst, enc.Bytes()), 0), nil
}

// DecodeFrame decodes a frame into p. The terminator is optional.
func DecodeFrame(frame []byte, p Payload) error {
	if l := len(frame); l > 0 && frame[l-1] == 0 {
		frame = frame[:l-1]
	}
	raw, err := CobsDecode(make([]byte, 0, len(frame)), frame)
	if err != nil {
		return &DecodeError{Stage: "cobs", Err: err}
	}
	dec := NewDecoder(raw)
	if err = p.DecodePayload(dec); err == nil {
		err = dec.Finish()
	}
	if err != nil {
		return &DecodeError{Stage: "payload", Err: err}
	}
	return nil
}

// FrameWriter writes payloads as frames.
type FrameWriter struct {
	Writer io.Writer

	buf [MaxFrameSize]byte
}

// NewFrameWriter creates a FrameWriter.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{Writer: w}
}

// WriteFrame encodes and writes one frame.
func (w *FrameWriter) WriteFrame(p Payload) (int, error) {
	frame, err := EncodeFrame(p, w.buf[:])
	if err != nil {
		return 0, err
	}
	return w.Writer.Write(frame)
}
