package comm

import (
	"encoding/binary"
	"unicode/utf8"
)

// Encoder serializes payload fields into bytes.
type Encoder struct {
	buf []byte
}

// Uvarint appends an unsigned integer as LEB128 varint.
func (e *Encoder) Uvarint(v uint64) *Encoder {
	e.buf = binary.AppendUvarint(e.buf, v)
	return e
}

// Varint appends a signed integer zigzag encoded.
func (e *Encoder) Varint(v int64) *Encoder {
	e.buf = binary.AppendVarint(e.buf, v)
	return e
}

// String appends a length prefixed string.
func (e *Encoder) String(s string) *Encoder {
	e.buf = binary.AppendUvarint(e.buf, uint64(len(s)))
	e.buf = append(e.buf, s...)
	return e
}

// Bytes returns the encoded bytes.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Len returns the number of encoded bytes.
func (e *Encoder) Len() int {
	return len(e.buf)
}

// Reset clears encoded bytes and keeps the buffer.
func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
}

// Decoder deserializes payload fields from bytes.
type Decoder struct {
	data []byte
	off  int
}

// NewDecoder creates a Decoder.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

// Uvarint reads a varint which must fit in bits.
func (d *Decoder) Uvarint(bits uint) (uint64, error) {
	var v uint64
	for shift := uint(0); ; shift += 7 {
		if d.off >= len(d.data) {
			return 0, ErrUnexpectedEOF
		}
		if shift >= bits || shift >= 64 {
			return 0, ErrVarintOverflow
		}
		b := d.data[d.off]
		d.off++
		v |= uint64(b&0x7f) << shift
		if b < 0x80 {
			if bits < 64 && v>>bits != 0 {
				return 0, ErrVarintOverflow
			}
			return v, nil
		}
	}
}

// Varint reads a zigzag encoded varint which must fit in bits.
func (d *Decoder) Varint(bits uint) (int64, error) {
	u, err := d.Uvarint(bits)
	if err != nil {
		return 0, err
	}
	return int64(u>>1) ^ -int64(u&1), nil
}

// Uint16 reads an uint16.
func (d *Decoder) Uint16() (uint16, error) {
	v, err := d.Uvarint(16)
	return uint16(v), err
}

// Uint32 reads an uint32.
func (d *Decoder) Uint32() (uint32, error) {
	v, err := d.Uvarint(32)
	return uint32(v), err
}

// Int16 reads an int16.
func (d *Decoder) Int16() (int16, error) {
	v, err := d.Varint(16)
	return int16(v), err
}

// String reads a length prefixed string of at most max bytes.
func (d *Decoder) String(max int) (string, error) {
	l, err := d.Uvarint(32)
	if err != nil {
		return "", err
	}
	if l > uint64(max) {
		return "", ErrStringTooLong
	}
	if uint64(len(d.data)-d.off) < l {
		return "", ErrUnexpectedEOF
	}
	s := d.data[d.off : d.off+int(l)]
	if !utf8.Valid(s) {
		return "", ErrInvalidString
	}
	d.off += int(l)
	return string(s), nil
}

// Remaining returns the number of bytes not consumed.
func (d *Decoder) Remaining() int {
	return len(d.data) - d.off
}

// Finish checks all bytes are consumed.
func (d *Decoder) Finish() error {
	if d.off != len(d.data) {
		return ErrTrailingBytes
	}
	return nil
}
