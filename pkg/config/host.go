package config

import (
	"strings"

	"marlin-go-migration/pkg/errors"
)

// IntakeConfig configures the command intake queue.
type IntakeConfig struct {
	BufSize           int
	MaxCommandSize    int
	RuntimeInjectSize int
	RequireChecksum   bool
}

// SerialPortConfig configures one serial command port.
type SerialPortConfig struct {
	Device   string
	BaudRate int
	RxSize   int
}

// WebConfig configures the HTTP listener carrying the websocket
// command port and the metrics endpoint.
type WebConfig struct {
	Enabled bool
	Listen  string
}

// MQTTPortConfig configures the MQTT command port.
type MQTTPortConfig struct {
	Enabled       bool
	Broker        string
	ClientID      string
	CommandTopic  string
	ResponseTopic string
}

// MediaConfig configures offline-media playback.
type MediaConfig struct {
	JobFile   string
	AutoStart bool
}

// HostConfig is the validated top-level host configuration.
type HostConfig struct {
	Intake IntakeConfig
	Serial []SerialPortConfig
	Web    WebConfig
	MQTT   MQTTPortConfig
	Media  MediaConfig

	CycleHz int
}

// LoadHost reads and validates a host configuration file.
func LoadHost(path string) (*HostConfig, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	return buildHost(c)
}

// ParseHost builds a host configuration from a string, mainly for tests.
func ParseHost(text string) (*HostConfig, error) {
	c, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return buildHost(c)
}

func buildHost(c *Config) (*HostConfig, error) {
	hc := &HostConfig{}
	var err error

	intake := c.Section("intake")
	if hc.Intake.BufSize, err = intake.GetInt("buffer_size", 4); err != nil {
		return nil, err
	}
	if hc.Intake.BufSize < 1 {
		return nil, errors.ConfigValidationError("intake", "buffer_size", "must be at least 1")
	}
	if hc.Intake.MaxCommandSize, err = intake.GetInt("max_command_size", 96); err != nil {
		return nil, err
	}
	if hc.Intake.MaxCommandSize < 8 {
		return nil, errors.ConfigValidationError("intake", "max_command_size", "must be at least 8")
	}
	if hc.Intake.RuntimeInjectSize, err = intake.GetInt("runtime_inject_size", 64); err != nil {
		return nil, err
	}
	if hc.Intake.RequireChecksum, err = intake.GetBool("require_checksum", false); err != nil {
		return nil, err
	}
	if hc.CycleHz, err = intake.GetInt("cycle_hz", 1000); err != nil {
		return nil, err
	}
	if hc.CycleHz < 1 {
		return nil, errors.ConfigValidationError("intake", "cycle_hz", "must be at least 1")
	}

	// Each [serial NAME] section declares one serial command port.
	for _, name := range c.SectionNames() {
		lower := strings.ToLower(name)
		if lower != "serial" && !strings.HasPrefix(lower, "serial ") {
			continue
		}
		s := c.Section(name)
		sc := SerialPortConfig{}
		if sc.Device, err = s.GetRequired("device"); err != nil {
			return nil, err
		}
		if sc.BaudRate, err = s.GetInt("baud", 115200); err != nil {
			return nil, err
		}
		if sc.RxSize, err = s.GetInt("rx_buffer_size", 0); err != nil {
			return nil, err
		}
		hc.Serial = append(hc.Serial, sc)
	}

	web := c.Section("web")
	hc.Web.Enabled = c.HasSection("web")
	hc.Web.Listen = web.Get("listen", ":7125")

	mq := c.Section("mqtt")
	hc.MQTT.Enabled = c.HasSection("mqtt")
	if hc.MQTT.Enabled {
		if hc.MQTT.Broker, err = mq.GetRequired("broker"); err != nil {
			return nil, err
		}
	}
	hc.MQTT.ClientID = mq.Get("client_id", "marlin-host")
	hc.MQTT.CommandTopic = mq.Get("command_topic", "marlin/cmd")
	hc.MQTT.ResponseTopic = mq.Get("response_topic", "marlin/msg")

	md := c.Section("media")
	hc.Media.JobFile = md.Get("job_file", "")
	if hc.Media.AutoStart, err = md.GetBool("auto_start", false); err != nil {
		return nil, err
	}

	return hc, nil
}
