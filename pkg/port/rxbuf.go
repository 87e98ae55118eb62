// Package port provides the command input transports: an in-memory
// pipe, a termios serial port, a websocket bridge, and an MQTT bridge.
// Each transport's asynchronous receiver feeds an RxBuffer; the main
// control cycle consumes from it.
package port

import "sync/atomic"

// RxBuffer is a single-producer/single-consumer byte ring. The write
// side is only reachable from a transport's receive goroutine (the
// interrupt-context equivalent) and the read side only from the main
// control cycle. Len gives an atomic snapshot, so a consumer can take
// the length once and read exactly that many bytes while the producer
// keeps appending (the length-then-copy contract).
type RxBuffer struct {
	buf     []byte
	mask    uint64
	head    atomic.Uint64 // producer write position
	tail    atomic.Uint64 // consumer read position
	dropped atomic.Uint64
}

// NewRxBuffer creates a buffer of at least size bytes (rounded up to a
// power of two).
func NewRxBuffer(size int) *RxBuffer {
	n := 1
	for n < size {
		n <<= 1
	}
	return &RxBuffer{buf: make([]byte, n), mask: uint64(n - 1)}
}

// Put appends one byte. Producer side only. Returns false when the
// buffer is full; the byte is dropped and counted rather than blocking
// the receiver.
func (r *RxBuffer) Put(b byte) bool {
	head := r.head.Load()
	if head-r.tail.Load() >= uint64(len(r.buf)) {
		r.dropped.Add(1)
		return false
	}
	r.buf[head&r.mask] = b
	r.head.Store(head + 1)
	return true
}

// PutBytes appends a slice, returning how many bytes were accepted.
func (r *RxBuffer) PutBytes(p []byte) int {
	for i, b := range p {
		if !r.Put(b) {
			return i
		}
	}
	return len(p)
}

// Len returns the number of unread bytes. Safe from either side.
func (r *RxBuffer) Len() int {
	return int(r.head.Load() - r.tail.Load())
}

// ReadByte removes and returns the oldest byte. Consumer side only.
func (r *RxBuffer) ReadByte() (byte, bool) {
	tail := r.tail.Load()
	if r.head.Load() == tail {
		return 0, false
	}
	b := r.buf[tail&r.mask]
	r.tail.Store(tail + 1)
	return b, true
}

// Dropped returns the number of bytes discarded due to overflow.
func (r *RxBuffer) Dropped() uint64 {
	return r.dropped.Load()
}
