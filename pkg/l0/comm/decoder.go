package comm

import (
	"github.com/golang/glog"
)

// FrameHandler is called when a frame is decoded.
type FrameHandler interface {
	HandleFrame(Payload)
}

// HandleFrameFunc is func type of FrameHandler.
type HandleFrameFunc func(Payload)

// HandleFrame implements FrameHandler.
func (f HandleFrameFunc) HandleFrame(p Payload) {
	f(p)
}

// FaultNotifier is called when bytes are dropped.
type FaultNotifier interface {
	FrameFault(FeedResult)
}

// FrameFaultFunc is func type of FaultNotifier.
type FrameFaultFunc func(FeedResult)

// FrameFault implements FaultNotifier.
func (f FrameFaultFunc) FrameFault(r FeedResult) {
	f(r)
}

// StreamDecoder decodes frames from an unbounded stream delivered in chunks.
// A frame may span multiple chunks, and a chunk may contain multiple frames.
type StreamDecoder struct {
	NewPayload func() Payload
	Handler    FrameHandler
	Notifier   FaultNotifier

	acc *Accumulator
}

// NewStreamDecoder creates a StreamDecoder with the default capacity.
func NewStreamDecoder(newPayload func() Payload) *StreamDecoder {
	return NewStreamDecoderSize(newPayload, DefaultAccumulatorSize)
}

// NewStreamDecoderSize creates a StreamDecoder with the capacity.
func NewStreamDecoderSize(newPayload func() Payload, size int) *StreamDecoder {
	return &StreamDecoder{
		NewPayload: newPayload,
		acc:        NewAccumulator(size),
	}
}

// Buffered returns the number of bytes of the pending partial frame.
func (d *StreamDecoder) Buffered() int {
	return d.acc.Buffered()
}

// Reset drops the pending partial frame, e.g. when the stream is reopened.
func (d *StreamDecoder) Reset() {
	d.acc.Reset()
}

// Feed processes a chunk and returns the number of decoded frames.
// Decoded payloads are passed to Handler in stream order.
func (d *StreamDecoder) Feed(chunk []byte) (decoded int) {
	window := chunk
	for len(window) > 0 {
		p := d.NewPayload()
		res := d.acc.Feed(window, p)
		switch res.Status {
		case FeedConsumed:
			return
		case FeedSuccess:
			decoded++
			if h := d.Handler; h != nil {
				h.HandleFrame(p)
			}
		case FeedOverFull:
			glog.V(2).Infof("frame buffer overflow, %d bytes dropped", d.acc.Cap())
			d.notify(res)
		case FeedDeserError:
			glog.V(2).Infof("drop frame: %v", res.Err)
			d.notify(res)
		}
		window = res.Remaining
	}
	return
}

func (d *StreamDecoder) notify(res FeedResult) {
	if n := d.Notifier; n != nil {
		n.FrameFault(res)
	}
}
