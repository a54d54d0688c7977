package comm

import "bytes"

// DefaultAccumulatorSize is the default capacity of an Accumulator.
const DefaultAccumulatorSize = 512

// FeedStatus indicates the outcome of one Feed.
type FeedStatus int

const (
	// FeedConsumed means all bytes are buffered, no frame completed.
	FeedConsumed FeedStatus = iota
	// FeedOverFull means the buffer filled up before a terminator arrived.
	// Buffered bytes are dropped.
	FeedOverFull
	// FeedDeserError means a complete frame failed to decode and is dropped.
	FeedDeserError
	// FeedSuccess means a frame is decoded into the payload.
	FeedSuccess
)

func (s FeedStatus) String() string {
	switch s {
	case FeedConsumed:
		return "consumed"
	case FeedOverFull:
		return "overfull"
	case FeedDeserError:
		return "deser-error"
	case FeedSuccess:
		return "success"
	}
	return "unknown"
}

// FeedResult is the result of one Feed.
type FeedResult struct {
	Status FeedStatus
	// Remaining are the bytes after the processed frame,
	// to be fed again.
	Remaining []byte
	// Err is set with FeedDeserError.
	Err error
}

// Accumulator reassembles frames from chunks of bytes.
type Accumulator struct {
	buf []byte
	idx int
}

// NewAccumulator creates an Accumulator with the capacity.
func NewAccumulator(size int) *Accumulator {
	if size <= 0 {
		size = DefaultAccumulatorSize
	}
	return &Accumulator{buf: make([]byte, size)}
}

// Cap returns the capacity.
func (a *Accumulator) Cap() int {
	return len(a.buf)
}

// Buffered returns the number of bytes of the partial frame.
func (a *Accumulator) Buffered() int {
	return a.idx
}

// Reset drops the partial frame.
func (a *Accumulator) Reset() {
	a.idx = 0
}

// Feed consumes bytes up to and including the first terminator in window.
// A frame with its terminator must fit in the capacity. When the buffer fills
// up without a terminator, the rest of the window is dropped as well.
// Empty frames (consecutive terminators) are skipped.
func (a *Accumulator) Feed(window []byte, p Payload) FeedResult {
	for len(window) > 0 {
		n := bytes.IndexByte(window, 0)
		if n < 0 {
			if a.idx+len(window) >= len(a.buf) {
				a.idx = 0
				return FeedResult{Status: FeedOverFull}
			}
			a.idx += copy(a.buf[a.idx:], window)
			return FeedResult{Status: FeedConsumed}
		}
		take, rest := window[:n], window[n+1:]
		if a.idx+len(take) >= len(a.buf) {
			a.idx = 0
			return FeedResult{Status: FeedOverFull, Remaining: rest}
		}
		a.idx += copy(a.buf[a.idx:], take)
		frame := a.buf[:a.idx]
		a.idx = 0
		if len(frame) == 0 {
			window = rest
			continue
		}
		if err := DecodeFrame(frame, p); err != nil {
			return FeedResult{Status: FeedDeserError, Remaining: rest, Err: err}
		}
		return FeedResult{Status: FeedSuccess, Remaining: rest}
	}
	return FeedResult{Status: FeedConsumed}
}
