// Package protocol implements the line-oriented host protocol framing:
// optional N<line number> prefixes, trailing *<checksum> validation
// fields, and the ok/resend responses the firmware sends back.
package protocol

import (
	"strconv"
	"strings"
)

// NoLineNumber marks a frame that carried no N field.
const NoLineNumber int64 = -1

// Frame is one command line split into its protocol fields.
type Frame struct {
	// LineNumber is the value of the leading N field, or NoLineNumber.
	LineNumber int64

	// Command is the command text with the N and checksum fields removed.
	Command string

	// HasChecksum reports whether a trailing *<checksum> field was present.
	HasChecksum bool

	// Checksum is the value claimed on the wire (valid when HasChecksum).
	Checksum uint8

	// Computed is the checksum of the received bytes preceding '*'.
	Computed uint8
}

// Checksum computes the XOR-of-bytes line checksum used by the
// firmware's serial protocol.
func Checksum(s string) uint8 {
	var cs uint8
	for i := 0; i < len(s); i++ {
		cs ^= s[i]
	}
	return cs
}

// ParseFrame splits a complete command line into its protocol fields.
// Parsing is lenient: a malformed N or checksum field is left in the
// command text rather than rejected here; sequencing and checksum
// validation is the caller's job since it needs per-port state.
func ParseFrame(line string) Frame {
	f := Frame{LineNumber: NoLineNumber}
	work := line

	// Trailing checksum field: last '*' followed by only digits.
	if idx := strings.LastIndexByte(work, '*'); idx >= 0 {
		digits := strings.TrimSpace(work[idx+1:])
		if v, err := strconv.ParseUint(digits, 10, 8); err == nil && digits != "" {
			f.HasChecksum = true
			f.Checksum = uint8(v)
			f.Computed = Checksum(work[:idx])
			work = work[:idx]
		}
	}

	// Leading line number field.
	work = strings.TrimSpace(work)
	if len(work) >= 2 && (work[0] == 'N' || work[0] == 'n') && isDigit(work[1]) {
		end := 1
		for end < len(work) && isDigit(work[end]) {
			end++
		}
		if n, err := strconv.ParseInt(work[1:end], 10, 64); err == nil {
			f.LineNumber = n
			work = work[end:]
		}
	}

	f.Command = strings.TrimSpace(work)
	return f
}

// ParseLineNumberReset recognizes the reserved command that resets a
// port's expected line number (M110). The new value comes from the
// leading N field when present ("N42 M110*cs") or from an N argument
// ("M110 N42"). The second return is false when cmd is not a reset.
func ParseLineNumberReset(f Frame) (int64, bool) {
	fields := strings.Fields(f.Command)
	if len(fields) == 0 || !strings.EqualFold(fields[0], "M110") {
		return 0, false
	}
	for _, arg := range fields[1:] {
		if len(arg) >= 2 && (arg[0] == 'N' || arg[0] == 'n') {
			if n, err := strconv.ParseInt(arg[1:], 10, 64); err == nil {
				return n, true
			}
		}
	}
	if f.LineNumber != NoLineNumber {
		return f.LineNumber, true
	}
	return 0, false
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
