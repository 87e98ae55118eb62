package protocol

import (
	"strconv"
	"strings"
)

// Response strings match the firmware's serial output so existing host
// software (print servers, slicers) can drive the resend cycle.

// FormatOk builds the flow-controlled acknowledgment. lineNumber is the
// just-completed line (omitted when NoLineNumber); plannerFree and
// bufferFree are the advanced-ok capacity counters (omitted when
// negative).
func FormatOk(lineNumber int64, plannerFree, bufferFree int) string {
	var sb strings.Builder
	sb.WriteString("ok")
	if lineNumber != NoLineNumber {
		sb.WriteString(" N")
		sb.WriteString(strconv.FormatInt(lineNumber, 10))
	}
	if plannerFree >= 0 {
		sb.WriteString(" P")
		sb.WriteString(strconv.Itoa(plannerFree))
	}
	if bufferFree >= 0 {
		sb.WriteString(" B")
		sb.WriteString(strconv.Itoa(bufferFree))
	}
	return sb.String()
}

// FormatResend builds the retransmission request naming the next
// expected line number.
func FormatResend(expected int64) string {
	return "Resend: " + strconv.FormatInt(expected, 10)
}

// FormatError builds the host-visible error line that precedes a resend
// request.
func FormatError(msg string) string {
	return "Error:" + msg
}
