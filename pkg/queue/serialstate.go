package queue

import (
	"strings"

	"marlin-go-migration/pkg/errors"
)

// parseMode tracks where a port's byte stream is within a line.
type parseMode int

const (
	modeIdle parseMode = iota
	modeAccumulating
	modeInComment
	modeOverflowed
)

const commentDelimiter = ';'

// SerialState assembles one port's byte stream into complete command
// lines and tracks the host's line-number sequence for that port.
//
// Not reentrant: a SerialState is owned by the intake orchestrator and
// fed only from the main control cycle, one port at a time.
type SerialState struct {
	port    int
	lastN   int64
	buf     []byte
	mode    parseMode
	maxSize int
}

// NewSerialState creates line-assembly state for one port. maxSize
// bounds the accumulation buffer (the maximum command length).
func NewSerialState(port, maxSize int) *SerialState {
	if maxSize < 1 {
		maxSize = 1
	}
	return &SerialState{
		port:    port,
		buf:     make([]byte, 0, maxSize),
		maxSize: maxSize,
	}
}

// LastLineNumber returns the last accepted host line number.
func (s *SerialState) LastLineNumber() int64 { return s.lastN }

// SetLineNumber resets the expected sequence; the next valid numbered
// line must carry n+1.
func (s *SerialState) SetLineNumber(n int64) { s.lastN = n }

// Feed consumes one byte. When a terminator completes a line, done is
// true and line holds the accumulated text (comments excluded; possibly
// empty for blank or comment-only lines). A non-nil error reports an
// input fault: the assembler keeps consuming and discarding until the
// terminator, so one corrupted line cannot desynchronize the framing.
func (s *SerialState) Feed(b byte) (line string, done bool, err error) {
	if b == '\n' || b == '\r' {
		return s.endOfLine()
	}

	switch s.mode {
	case modeInComment, modeOverflowed:
		// Drain to terminator.
		return "", false, nil

	case modeIdle:
		if b == ' ' || b == '\t' {
			return "", false, nil
		}
		if b == commentDelimiter {
			s.mode = modeInComment
			return "", false, nil
		}
		s.mode = modeAccumulating
		fallthrough

	case modeAccumulating:
		if b == commentDelimiter {
			s.mode = modeInComment
			return "", false, nil
		}
		if len(s.buf) >= s.maxSize {
			s.mode = modeOverflowed
			return "", false, errors.LineTooLongError(s.port, s.maxSize)
		}
		s.buf = append(s.buf, b)
	}
	return "", false, nil
}

// endOfLine finishes the current line and returns the assembler to
// Idle.
func (s *SerialState) endOfLine() (string, bool, error) {
	mode := s.mode
	text := strings.TrimSpace(string(s.buf))
	s.buf = s.buf[:0]
	s.mode = modeIdle

	if mode == modeOverflowed {
		// The fault was already reported when the overflow happened.
		return "", false, nil
	}
	if mode == modeIdle && text == "" {
		// Blank line, nothing to emit.
		return "", false, nil
	}
	return text, true, nil
}
