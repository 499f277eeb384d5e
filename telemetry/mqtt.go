package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	qos           = byte(1)
	queueSize     = 256
	pubTimeout    = 10 * time.Second
	telemetryLeaf = "telemetry"
	commandsLeaf  = "commands"
)

type MQTTConfig struct {
	BrokerURL   string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// TelemetryTopic is the topic a device publishes readings on.
func TelemetryTopic(prefix, serial string) string {
	return fmt.Sprintf("%s/devices/%s/%s", prefix, serial, telemetryLeaf)
}

// CommandTopic is the topic a device listens for commands on.
func CommandTopic(prefix, serial string) string {
	return fmt.Sprintf("%s/devices/%s/%s", prefix, serial, commandsLeaf)
}

// SerialFromTopic extracts the serial from <prefix>/devices/<serial>/telemetry.
func SerialFromTopic(prefix, topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, prefix+"/devices/")
	if !ok {
		return "", false
	}
	serial, leaf, ok := strings.Cut(rest, "/")
	if !ok || leaf != telemetryLeaf || serial == "" {
		return "", false
	}
	return serial, true
}

type message struct {
	topic   string
	payload []byte
}

// MQTT bridges the broker to the ingest pipeline and publishes device
// commands.
type MQTT struct {
	client   pahomqtt.Client
	prefix   string
	ingestor *Ingestor
	queue    chan message
}

func NewMQTT(cfg MQTTConfig, ingestor *Ingestor) (*MQTT, error) {
	if cfg.BrokerURL == "" {
		return nil, errors.New("broker URL is required")
	}
	m := &MQTT{prefix: cfg.TopicPrefix, ingestor: ingestor, queue: make(chan message, queueSize)}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetConnectTimeout(30 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		slog.Warn("mqtt connection lost", "err", err)
	})
	// Subscriptions do not survive a clean-session reconnect.
	opts.SetOnConnectHandler(func(c pahomqtt.Client) {
		slog.Info("mqtt connected", "broker", cfg.BrokerURL)
		m.subscribe(c)
	})

	m.client = pahomqtt.NewClient(opts)
	token := m.client.Connect()
	if !token.WaitTimeout(opts.ConnectTimeout) {
		return nil, errors.New("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return m, nil
}

func (m *MQTT) subscribe(c pahomqtt.Client) {
	topic := TelemetryTopic(m.prefix, "+")
	token := c.Subscribe(topic, qos, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		select {
		case m.queue <- message{topic: msg.Topic(), payload: msg.Payload()}:
		default:
			slog.Warn("mqtt queue full, dropping reading", "topic", msg.Topic())
		}
	})
	token.Wait()
	if err := token.Error(); err != nil {
		slog.Error("mqtt subscribe", "topic", topic, "err", err)
	}
}

// Run drains the telemetry queue until ctx is cancelled.
func (m *MQTT) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-m.queue:
			m.handle(ctx, msg)
		}
	}
}

func (m *MQTT) handle(ctx context.Context, msg message) {
	serial, ok := SerialFromTopic(m.prefix, msg.topic)
	if !ok {
		slog.Debug("ignore mqtt topic", "topic", msg.topic)
		return
	}
	var p models.ReadingPayload
	if err := json.Unmarshal(msg.payload, &p); err != nil {
		slog.Warn("bad telemetry payload", "serial", serial, "err", err)
		return
	}
	if _, err := m.ingestor.IngestSerial(ctx, serial, p); err != nil {
		slog.Warn("ingest telemetry", "serial", serial, "err", err)
	}
}

// PublishCommand sends cmd to the device's command topic.
func (m *MQTT) PublishCommand(ctx context.Context, serial string, cmd models.DeviceCommand) error {
	body, err := json.Marshal(map[string]interface{}{
		"action":           cmd.Action,
		"duration_minutes": cmd.DurationMinutes,
		"issued_at":        time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	token := m.client.Publish(CommandTopic(m.prefix, serial), qos, false, body)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(pubTimeout):
		return errors.New("mqtt publish timeout")
	}
	return token.Error()
}

func (m *MQTT) Close() {
	m.client.Disconnect(250)
}
