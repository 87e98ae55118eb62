package config

import (
	"testing"

	"marlin-go-migration/pkg/errors"
)

const sampleConfig = `
# host configuration
[intake]
buffer_size: 8
max_command_size = 128
require_checksum: yes

[serial printer]
device: /dev/ttyUSB0
baud: 250000

[serial aux]
device: /dev/ttyACM0   ; second board

[web]
listen: :8080

[media]
job_file: /var/spool/jobs/benchy.gcode
auto_start: true
`

func TestParseSectionsAndOptions(t *testing.T) {
	c, err := Parse(sampleConfig)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !c.HasSection("intake") || !c.HasSection("serial printer") {
		t.Fatalf("sections = %v", c.SectionNames())
	}

	s := c.Section("intake")
	if v, _ := s.GetInt("buffer_size", 4); v != 8 {
		t.Fatalf("buffer_size = %d", v)
	}
	if v, _ := s.GetInt("max_command_size", 96); v != 128 {
		t.Fatalf("max_command_size = %d", v)
	}
	if v, _ := s.GetBool("require_checksum", false); !v {
		t.Fatal("require_checksum not parsed")
	}
	// Absent options fall back.
	if v, _ := s.GetInt("cycle_hz", 1000); v != 1000 {
		t.Fatalf("cycle_hz fallback = %d", v)
	}
}

func TestParseStripsInlineComments(t *testing.T) {
	c, err := Parse(sampleConfig)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v := c.Section("serial aux").Get("device", ""); v != "/dev/ttyACM0" {
		t.Fatalf("device = %q", v)
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse("key: value\n"); err == nil {
		t.Fatal("option outside section accepted")
	}
	if _, err := Parse("[]\n"); err == nil {
		t.Fatal("empty section header accepted")
	}
	if _, err := Parse("[a]\nnot an option\n"); err == nil {
		t.Fatal("malformed option accepted")
	}
}

func TestTypedValueErrors(t *testing.T) {
	c, _ := Parse("[intake]\nbuffer_size: lots\nrequire_checksum: maybe\n")
	s := c.Section("intake")

	if _, err := s.GetInt("buffer_size", 4); !errors.Is(err, errors.ErrConfigValidation) {
		t.Fatalf("bad int: %v", err)
	}
	if _, err := s.GetBool("require_checksum", false); !errors.Is(err, errors.ErrConfigValidation) {
		t.Fatalf("bad bool: %v", err)
	}
	if _, err := s.GetRequired("device"); !errors.Is(err, errors.ErrConfigOption) {
		t.Fatalf("missing required: %v", err)
	}
}

func TestBuildHostConfig(t *testing.T) {
	hc, err := ParseHost(sampleConfig)
	if err != nil {
		t.Fatalf("parse host: %v", err)
	}
	if hc.Intake.BufSize != 8 || hc.Intake.MaxCommandSize != 128 || !hc.Intake.RequireChecksum {
		t.Fatalf("intake = %+v", hc.Intake)
	}
	if len(hc.Serial) != 2 {
		t.Fatalf("serial ports = %+v", hc.Serial)
	}
	if hc.Serial[0].Device != "/dev/ttyUSB0" || hc.Serial[0].BaudRate != 250000 {
		t.Fatalf("serial[0] = %+v", hc.Serial[0])
	}
	if hc.Serial[1].BaudRate != 115200 {
		t.Fatalf("serial[1] baud fallback = %d", hc.Serial[1].BaudRate)
	}
	if !hc.Web.Enabled || hc.Web.Listen != ":8080" {
		t.Fatalf("web = %+v", hc.Web)
	}
	if hc.MQTT.Enabled {
		t.Fatal("mqtt enabled without section")
	}
	if hc.Media.JobFile == "" || !hc.Media.AutoStart {
		t.Fatalf("media = %+v", hc.Media)
	}
}

func TestHostConfigValidation(t *testing.T) {
	if _, err := ParseHost("[intake]\nbuffer_size: 0\n"); !errors.Is(err, errors.ErrConfigValidation) {
		t.Fatalf("zero buffer accepted: %v", err)
	}
	if _, err := ParseHost("[serial]\nbaud: 115200\n"); !errors.Is(err, errors.ErrConfigOption) {
		t.Fatalf("serial without device accepted: %v", err)
	}
	if _, err := ParseHost("[mqtt]\nclient_id: host\n"); !errors.Is(err, errors.ErrConfigOption) {
		t.Fatalf("mqtt without broker accepted: %v", err)
	}
}

func TestHostConfigDefaults(t *testing.T) {
	hc, err := ParseHost("")
	if err != nil {
		t.Fatalf("parse empty: %v", err)
	}
	if hc.Intake.BufSize != 4 || hc.Intake.MaxCommandSize != 96 {
		t.Fatalf("intake defaults = %+v", hc.Intake)
	}
	if hc.CycleHz != 1000 {
		t.Fatalf("cycle_hz default = %d", hc.CycleHz)
	}
	if hc.Web.Enabled || hc.MQTT.Enabled {
		t.Fatal("optional transports enabled by default")
	}
}
