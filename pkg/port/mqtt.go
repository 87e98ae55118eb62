package port

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"marlin-go-migration/pkg/log"
)

// MQTTConfig holds the broker connection and topic layout for an MQTT
// command port.
type MQTTConfig struct {
	// Broker URL (e.g., tcp://localhost:1883)
	Broker string

	// ClientID for the broker session (default: marlin-host)
	ClientID string

	// CommandTopic carries inbound command lines (default: marlin/cmd)
	CommandTopic string

	// ResponseTopic carries protocol responses (default: marlin/msg)
	ResponseTopic string

	// ConnectTimeout (default: 10 seconds)
	ConnectTimeout time.Duration
}

// MQTTPort feeds command lines published on a broker topic into the
// intake and publishes the protocol responses on a companion topic.
type MQTTPort struct {
	name   string
	cfg    MQTTConfig
	client mqtt.Client
	rx     *RxBuffer
	logger *log.Logger
}

// OpenMQTT connects to the broker and subscribes to the command topic.
func OpenMQTT(cfg MQTTConfig) (*MQTTPort, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("port: mqtt broker URL required")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "marlin-host"
	}
	if cfg.CommandTopic == "" {
		cfg.CommandTopic = "marlin/cmd"
	}
	if cfg.ResponseTopic == "" {
		cfg.ResponseTopic = "marlin/msg"
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	p := &MQTTPort{
		name:   "mqtt:" + cfg.CommandTopic,
		cfg:    cfg,
		rx:     NewRxBuffer(DefaultRxSize),
		logger: log.GetLogger("mqttport"),
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(cfg.ConnectTimeout)
	p.client = mqtt.NewClient(opts)

	token := p.client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) || token.Error() != nil {
		return nil, fmt.Errorf("port: mqtt connect %s: %w", cfg.Broker, tokenErr(token))
	}

	sub := p.client.Subscribe(cfg.CommandTopic, 1, p.handleMessage)
	if !sub.WaitTimeout(cfg.ConnectTimeout) || sub.Error() != nil {
		p.client.Disconnect(0)
		return nil, fmt.Errorf("port: mqtt subscribe %s: %w", cfg.CommandTopic, tokenErr(sub))
	}

	p.logger.Info("subscribed to %s on %s", cfg.CommandTopic, cfg.Broker)
	return p, nil
}

// handleMessage is the single producer feeding the receive buffer.
func (p *MQTTPort) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	data := msg.Payload()
	if len(data) == 0 || data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	if p.rx.PutBytes(data) < len(data) {
		p.logger.Warn("mqtt receive buffer overflow (%d bytes dropped total)",
			p.rx.Dropped())
	}
}

// Name implements the intake Port interface.
func (p *MQTTPort) Name() string { return p.name }

// BytesAvailable implements the intake Port interface.
func (p *MQTTPort) BytesAvailable() int { return p.rx.Len() }

// ReadByte implements the intake Port interface.
func (p *MQTTPort) ReadByte() (byte, bool) { return p.rx.ReadByte() }

// WriteResponse implements the intake Port interface.
func (p *MQTTPort) WriteResponse(line string) error {
	token := p.client.Publish(p.cfg.ResponseTopic, 1, false, []byte(line))
	token.Wait()
	return token.Error()
}

// Close disconnects from the broker.
func (p *MQTTPort) Close() {
	p.client.Unsubscribe(p.cfg.CommandTopic)
	p.client.Disconnect(250)
}

func tokenErr(t mqtt.Token) error {
	if err := t.Error(); err != nil {
		return err
	}
	return fmt.Errorf("timed out")
}
