package protocol

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecksum(t *testing.T) {
	// XOR of all bytes, as the firmware computes it.
	assert.Equal(t, uint8(0), Checksum(""))
	assert.Equal(t, uint8('A'), Checksum("A"))
	assert.Equal(t, uint8('A'^'B'^'C'), Checksum("ABC"))
}

func TestParseFrame(t *testing.T) {
	tests := []struct {
		line    string
		number  int64
		command string
		hasCS   bool
	}{
		{"G28", NoLineNumber, "G28", false},
		{"N1 G28", 1, "G28", false},
		{"N12 G1 X10 Y5", 12, "G1 X10 Y5", false},
		{fmt.Sprintf("N3 M105*%d", Checksum("N3 M105")), 3, "M105", true},
		{"  G1 X0  ", NoLineNumber, "G1 X0", false},
		// '*' not followed by digits is command text, not a checksum.
		{"M118 2*3=6", NoLineNumber, "M118 2*3=6", false},
		// Lowercase n accepted.
		{"n7 G4 P0", 7, "G4 P0", false},
		// N without digits stays in the command text.
		{"NOP", NoLineNumber, "NOP", false},
	}

	for _, tt := range tests {
		f := ParseFrame(tt.line)
		assert.Equal(t, tt.number, f.LineNumber, "line %q", tt.line)
		assert.Equal(t, tt.command, f.Command, "line %q", tt.line)
		assert.Equal(t, tt.hasCS, f.HasChecksum, "line %q", tt.line)
	}
}

func TestParseFrameChecksumValues(t *testing.T) {
	raw := "N101 G1 X25.3 F1000"
	line := fmt.Sprintf("%s*%d", raw, Checksum(raw))

	f := ParseFrame(line)
	assert.True(t, f.HasChecksum)
	assert.Equal(t, Checksum(raw), f.Checksum)
	assert.Equal(t, f.Checksum, f.Computed)
}

func TestParseFrameCorruptChecksum(t *testing.T) {
	f := ParseFrame("N5 G1 X1*99")
	assert.True(t, f.HasChecksum)
	assert.NotEqual(t, f.Checksum, f.Computed)
}

func TestParseLineNumberReset(t *testing.T) {
	tests := []struct {
		line  string
		value int64
		ok    bool
	}{
		{"N42 M110", 42, true},
		{"M110 N100", 100, true},
		{"N5 M110 N200", 200, true}, // explicit argument wins
		{"M110", 0, false},          // no value to reset to
		{"M117 hello", 0, false},
		{"G28", 0, false},
	}

	for _, tt := range tests {
		n, ok := ParseLineNumberReset(ParseFrame(tt.line))
		assert.Equal(t, tt.ok, ok, "line %q", tt.line)
		if ok {
			assert.Equal(t, tt.value, n, "line %q", tt.line)
		}
	}
}

func TestFormatResponses(t *testing.T) {
	assert.Equal(t, "ok", FormatOk(NoLineNumber, -1, -1))
	assert.Equal(t, "ok N3 P16 B4", FormatOk(3, 16, 4))
	assert.Equal(t, "ok P16 B4", FormatOk(NoLineNumber, 16, 4))
	assert.Equal(t, "Resend: 3", FormatResend(3))
	assert.Equal(t, "Error:checksum mismatch, Last Line: 2",
		FormatError("checksum mismatch, Last Line: 2"))
}
