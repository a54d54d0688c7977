package comm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAccumulatorFeed(t *testing.T) {
	rec := &testRecord{Name: "radiator_in", B: 3950, T: 25, R: 10000, Value: 9876}
	frame := mustFrame(t, rec)

	t.Run("whole frame", func(t *testing.T) {
		acc := NewAccumulator(64)
		var out testRecord
		res := acc.Feed(frame, &out)
		require.Equal(t, FeedSuccess, res.Status)
		require.Empty(t, res.Remaining)
		require.Equal(t, *rec, out)
		require.Zero(t, acc.Buffered())
	})

	t.Run("split frame", func(t *testing.T) {
		acc := NewAccumulator(64)
		var out testRecord
		res := acc.Feed(frame[:5], &out)
		require.Equal(t, FeedConsumed, res.Status)
		require.Equal(t, 5, acc.Buffered())
		res = acc.Feed(frame[5:], &out)
		require.Equal(t, FeedSuccess, res.Status)
		require.Equal(t, *rec, out)
	})

	t.Run("remaining after frame", func(t *testing.T) {
		acc := NewAccumulator(64)
		var out testRecord
		stream := append(append([]byte{}, frame...), frame[:3]...)
		res := acc.Feed(stream, &out)
		require.Equal(t, FeedSuccess, res.Status)
		require.Equal(t, frame[:3], res.Remaining)
	})

	t.Run("skip empty frames", func(t *testing.T) {
		acc := NewAccumulator(64)
		var out testRecord
		res := acc.Feed(append([]byte{0, 0, 0}, frame...), &out)
		require.Equal(t, FeedSuccess, res.Status)
		require.Equal(t, *rec, out)
		res = acc.Feed([]byte{0, 0}, &out)
		require.Equal(t, FeedConsumed, res.Status)
	})

	t.Run("deser error", func(t *testing.T) {
		acc := NewAccumulator(64)
		var out testRecord
		res := acc.Feed(append([]byte{0x03, 0x11, 0x22, 0x00}, frame...), &out)
		require.Equal(t, FeedDeserError, res.Status)
		require.Error(t, res.Err)
		require.Equal(t, frame, res.Remaining)
		res = acc.Feed(res.Remaining, &out)
		require.Equal(t, FeedSuccess, res.Status)
		require.Equal(t, *rec, out)
	})
}

func TestAccumulatorOverFull(t *testing.T) {
	rec := &testRecord{Name: "radiator_in", B: 3950, T: 25, R: 10000, Value: 9876}
	frame := mustFrame(t, rec)

	t.Run("capacity without terminator", func(t *testing.T) {
		acc := NewAccumulator(32)
		var out testRecord
		res := acc.Feed(bytes.Repeat([]byte{0x55}, 32), &out)
		require.Equal(t, FeedOverFull, res.Status)
		require.Empty(t, res.Remaining)
		require.Zero(t, acc.Buffered())
		res = acc.Feed(frame, &out)
		require.Equal(t, FeedSuccess, res.Status)
		require.Equal(t, *rec, out)
	})

	t.Run("accumulated across chunks", func(t *testing.T) {
		acc := NewAccumulator(32)
		var out testRecord
		require.Equal(t, FeedConsumed, acc.Feed(bytes.Repeat([]byte{0x55}, 20), &out).Status)
		require.Equal(t, FeedOverFull, acc.Feed(bytes.Repeat([]byte{0x55}, 12), &out).Status)
		res := acc.Feed(frame, &out)
		require.Equal(t, FeedSuccess, res.Status)
	})

	t.Run("terminated frame too large", func(t *testing.T) {
		acc := NewAccumulator(32)
		var out testRecord
		stream := append(bytes.Repeat([]byte{0x55}, 40), 0)
		stream = append(stream, frame...)
		res := acc.Feed(stream, &out)
		require.Equal(t, FeedOverFull, res.Status)
		require.Equal(t, frame, res.Remaining)
		res = acc.Feed(res.Remaining, &out)
		require.Equal(t, FeedSuccess, res.Status)
		require.Equal(t, *rec, out)
	})

	t.Run("largest frame fits", func(t *testing.T) {
		acc := NewAccumulator(len(frame))
		var out testRecord
		res := acc.Feed(frame, &out)
		require.Equal(t, FeedSuccess, res.Status)
	})
}

func TestFeedStatusString(t *testing.T) {
	require.Equal(t, "consumed", FeedConsumed.String())
	require.Equal(t, "overfull", FeedOverFull.String())
	require.Equal(t, "deser-error", FeedDeserError.String())
	require.Equal(t, "success", FeedSuccess.String())
	require.Equal(t, "unknown", FeedStatus(42).String())
}
