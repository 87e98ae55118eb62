package queue

import "marlin-go-migration/pkg/protocol"

// FirmwarePort marks entries that did not arrive on an input port
// (firmware injection, offline media); no response is routed for them.
const FirmwarePort = -1

// CommandEntry is one pending command in the ring buffer.
type CommandEntry struct {
	// Text is the command, already stripped of framing and comments.
	Text string

	// SkipAck suppresses the acknowledgment response after dispatch
	// (firmware-injected and media-replayed commands).
	SkipAck bool

	// Port is the originating input port, or FirmwarePort.
	Port int

	// LineNumber is the host line number the command arrived with, or
	// protocol.NoLineNumber.
	LineNumber int64
}

// RingBuffer is a fixed-capacity circular FIFO of pending commands.
// Entries between the read index (inclusive) and write index
// (exclusive, circularly) are valid; length disambiguates full from
// empty when the indexes coincide.
type RingBuffer struct {
	commands []CommandEntry
	length   int
	indexR   int
	indexW   int
}

// NewRingBuffer creates a ring buffer holding up to size commands.
func NewRingBuffer(size int) *RingBuffer {
	if size < 1 {
		size = 1
	}
	return &RingBuffer{commands: make([]CommandEntry, size)}
}

// Capacity returns the fixed buffer size.
func (r *RingBuffer) Capacity() int { return len(r.commands) }

// Len returns the number of pending commands.
func (r *RingBuffer) Len() int { return r.length }

// Free returns the number of open slots.
func (r *RingBuffer) Free() int { return len(r.commands) - r.length }

// Occupied reports whether any command is pending.
func (r *RingBuffer) Occupied() bool { return r.length != 0 }

// Empty reports whether no command is pending.
func (r *RingBuffer) Empty() bool { return r.length == 0 }

// Full reports whether admitting a burst of n more commands would
// exceed capacity. Callers admitting multi-command injections pre-check
// with the burst size before committing any of them.
func (r *RingBuffer) Full(n int) bool {
	return r.length > len(r.commands)-n
}

// Enqueue copies a command into the slot at the write index. It returns
// false, without mutation, when the buffer is full.
func (r *RingBuffer) Enqueue(text string, skipAck bool, port int, lineNumber int64) bool {
	if r.length >= len(r.commands) {
		return false
	}
	r.commands[r.indexW] = CommandEntry{
		Text:       text,
		SkipAck:    skipAck,
		Port:       port,
		LineNumber: lineNumber,
	}
	r.indexW = r.advance(r.indexW)
	r.length++
	return true
}

// Peek returns the oldest pending entry without removing it. The
// returned copy stays valid after AdvanceRead reuses the slot.
// Undefined (zero entry) when empty.
func (r *RingBuffer) Peek() CommandEntry {
	return r.commands[r.indexR]
}

// AdvanceRead removes the oldest entry. The vacated slot is logically
// discarded and reusable. No-op when empty.
func (r *RingBuffer) AdvanceRead() {
	if r.length == 0 {
		return
	}
	r.commands[r.indexR] = CommandEntry{LineNumber: protocol.NoLineNumber}
	r.indexR = r.advance(r.indexR)
	r.length--
}

// Clear discards all pending commands.
func (r *RingBuffer) Clear() {
	r.length = 0
	r.indexR = 0
	r.indexW = 0
	for i := range r.commands {
		r.commands[i] = CommandEntry{LineNumber: protocol.NoLineNumber}
	}
}

func (r *RingBuffer) advance(p int) int {
	p++
	if p >= len(r.commands) {
		p = 0
	}
	return p
}
