package comm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func seqBytes(from byte, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = from + byte(i%255)
		if b[i] == 0 {
			b[i] = 1
		}
	}
	return b
}

func TestCobsEncode(t *testing.T) {
	run254 := seqBytes(1, 254)
	testCases := []struct {
		name   string
		in     []byte
		expect []byte
	}{
		{"empty", []byte{}, []byte{0x01}},
		{"single zero", []byte{0}, []byte{0x01, 0x01}},
		{"two zeros", []byte{0, 0}, []byte{0x01, 0x01, 0x01}},
		{"mixed", []byte{0x11, 0x22, 0x00, 0x33}, []byte{0x03, 0x11, 0x22, 0x02, 0x33}},
		{"no zero", []byte{0x11, 0x22, 0x33, 0x44}, []byte{0x05, 0x11, 0x22, 0x33, 0x44}},
		{"trailing zero", []byte{0x11, 0x00}, []byte{0x02, 0x11, 0x01}},
		{"254 non-zero", run254, append([]byte{0xff}, run254...)},
		{"255 non-zero", append(append([]byte{}, run254...), 0x42),
			append(append([]byte{0xff}, run254...), 0x02, 0x42)},
		{"254 non-zero and zero", append(append([]byte{}, run254...), 0),
			append(append([]byte{0xff}, run254...), 0x01, 0x01)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := CobsEncode(nil, tc.in)
			require.Equal(t, tc.expect, out)
			require.Equal(t, -1, bytes.IndexByte(out, 0))
			require.True(t, len(out) <= CobsMaxEncodedLen(len(tc.in)))
			decoded, err := CobsDecode(nil, out)
			require.NoError(t, err)
			require.Equal(t, tc.in, append([]byte{}, decoded...))
		})
	}
}

func TestCobsRoundTripLong(t *testing.T) {
	for _, n := range []int{253, 254, 255, 508, 509, 600, 1000} {
		in := seqBytes(7, n)
		for i := 0; i < n; i += 97 {
			in[i] = 0
		}
		out := CobsEncode(nil, in)
		require.Equal(t, -1, bytes.IndexByte(out, 0), "n=%d", n)
		decoded, err := CobsDecode(nil, out)
		require.NoError(t, err, "n=%d", n)
		require.Equal(t, in, decoded, "n=%d", n)
	}
}

func TestCobsDecodeMalformed(t *testing.T) {
	testCases := []struct {
		name string
		in   []byte
	}{
		{"zero code", []byte{0x00, 0x11}},
		{"block overrun", []byte{0x05, 0x11, 0x22}},
		{"zero inside block", []byte{0x03, 0x11, 0x00}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CobsDecode(nil, tc.in)
			require.Equal(t, ErrMalformedFrame, err)
		})
	}
}
