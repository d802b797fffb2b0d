package emitter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/e7canasta/motion-sensor/internal/config"
	"github.com/e7canasta/motion-sensor/internal/types"
)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 2 * time.Second

	// Grace period for in-flight messages on disconnect, in ms.
	disconnectGrace = 250
)

var errNotConnected = errors.New("mqtt not connected")

// MQTTEmitter is the outbound half of the MQTT plane: motion events on
// the events topic, health reports on the health topic. The control
// subscription rides on the same client.
type MQTTEmitter struct {
	cfg    *config.Config
	Client mqtt.Client // shared with the control-plane subscriber

	mu        sync.RWMutex
	connected bool
	published map[string]uint64 // per-topic delivery counts
	errors    uint64
}

// NewMQTTEmitter builds an emitter bound to the configured broker.
// No network traffic happens until Connect.
func NewMQTTEmitter(cfg *config.Config) *MQTTEmitter {
	return &MQTTEmitter{
		cfg:       cfg,
		published: make(map[string]uint64),
	}
}

// Connect dials the broker and blocks until the session is up or the
// attempt times out. Reconnection afterwards is the client's job.
func (e *MQTTEmitter) Connect(ctx context.Context) error {
	e.Client = mqtt.NewClient(e.clientOptions())

	slog.Info("dialing mqtt broker", "broker", e.cfg.MQTT.Broker)

	token := e.Client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("mqtt connect timed out after %s", connectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	e.setConnected(true)
	return nil
}

func (e *MQTTEmitter) clientOptions() *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().
		AddBroker("tcp://" + e.cfg.MQTT.Broker).
		SetClientID(e.cfg.InstanceID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second).
		SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(mqtt.Client) {
		e.setConnected(true)
		slog.Info("mqtt session up",
			"broker", e.cfg.MQTT.Broker,
			"client_id", e.cfg.InstanceID)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		e.setConnected(false)
		slog.Warn("mqtt session lost, client will retry",
			"error", err,
			"broker", e.cfg.MQTT.Broker)
	}

	return opts
}

// PublishEvent sends a motion event to the events topic.
func (e *MQTTEmitter) PublishEvent(ev *types.MotionEvent) error {
	payload, err := ev.ToJSON()
	if err != nil {
		return e.fail(fmt.Errorf("marshal motion event: %w", err))
	}

	topic := e.cfg.MQTT.Topics.Events
	if err := e.publish(topic, e.qosFor("events"), payload); err != nil {
		return err
	}

	slog.Debug("motion event published",
		"topic", topic,
		"seq", ev.Seq,
		"energy", ev.Energy,
	)
	return nil
}

// PublishHealth sends a pre-marshalled health report.
func (e *MQTTEmitter) PublishHealth(payload []byte) error {
	return e.publish(e.cfg.MQTT.Topics.Health, e.qosFor("health"), payload)
}

// publish delivers one message, settling within publishTimeout. Both
// outcomes feed the counters.
func (e *MQTTEmitter) publish(topic string, qos byte, payload []byte) error {
	if !e.isConnected() {
		return e.fail(errNotConnected)
	}

	token := e.Client.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return e.fail(fmt.Errorf("publish to %s timed out", topic))
	}
	if err := token.Error(); err != nil {
		return e.fail(fmt.Errorf("publish to %s: %w", topic, err))
	}

	e.mu.Lock()
	e.published[topic]++
	e.mu.Unlock()
	return nil
}

// fail counts an error and hands it back to the caller.
func (e *MQTTEmitter) fail(err error) error {
	e.mu.Lock()
	e.errors++
	e.mu.Unlock()
	return err
}

// Disconnect flushes in-flight messages and drops the session.
func (e *MQTTEmitter) Disconnect() error {
	if e.Client != nil && e.Client.IsConnected() {
		e.Client.Disconnect(disconnectGrace)
		slog.Info("mqtt connection closed")
	}
	e.setConnected(false)
	return nil
}

// Stats returns a copy of the emitter counters.
func (e *MQTTEmitter) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	published := make(map[string]uint64, len(e.published))
	for topic, n := range e.published {
		published[topic] = n
	}
	return Stats{
		Connected: e.connected,
		Published: published,
		Errors:    e.errors,
	}
}

// Stats describes the emitter's delivery state.
type Stats struct {
	Connected bool
	Published map[string]uint64
	Errors    uint64
}

func (e *MQTTEmitter) setConnected(up bool) {
	e.mu.Lock()
	e.connected = up
	e.mu.Unlock()
}

func (e *MQTTEmitter) isConnected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.connected
}

// qosFor maps a message kind to its configured QoS, defaulting to 0.
func (e *MQTTEmitter) qosFor(kind string) byte {
	if qos, ok := e.cfg.MQTT.QoS[kind]; ok {
		return qos
	}
	return 0
}
