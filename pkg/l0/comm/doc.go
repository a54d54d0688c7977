// Package comm provides L0 protocol support.
package comm

// L0 protocol is communicated between the sensing firmware (L0) and the
// host controller and focuses on robustness of data transferring so that
// the communication recovers from errors over a byte stream (e.g. serial port).
//
// A payload is serialized with a compact varint encoding (unsigned integers
// as LEB128, signed integers zigzag encoded, strings length prefixed), then
// COBS encoded so the only zero byte on the wire is the frame terminator.
// A receiver that loses track of the stream always resumes at the next zero.
//
// There's no checksum. Corrupted frames usually fail to deserialize and
// are dropped; the producer sends a fresh frame every cycle anyway.
//
// Producer: L0 firmware
// Consumer: host controller
