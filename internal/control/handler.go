package control

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/e7canasta/motion-sensor/internal/config"
)

const commandQueueCapacity = 10

// Command represents a control plane command
type Command struct {
	Command string                 `json:"command"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// Response represents a command response, published on the health topic
type Response struct {
	CommandAck string                 `json:"command_ack"`
	Status     string                 `json:"status"`
	Data       map[string]interface{} `json:"data,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Timestamp  string                 `json:"timestamp"`
}

// Success builds a success response for cmd.
func Success(cmd string, data map[string]interface{}) Response {
	return Response{CommandAck: cmd, Status: "success", Data: data}
}

// Failure builds an error response for cmd.
func Failure(cmd string, format string, args ...interface{}) Response {
	return Response{CommandAck: cmd, Status: "error", Error: fmt.Sprintf(format, args...)}
}

// IntParam extracts an integer parameter. JSON numbers arrive as
// float64; values with a fractional part are rejected.
func (c Command) IntParam(name string) (int, bool) {
	raw, ok := c.Params[name]
	if !ok {
		return 0, false
	}
	f, ok := raw.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// Handler subscribes to the control topic and hands parsed commands to
// the pipeline loop. Commands are buffered here, never executed: delay
// changes must not race frame processing, so the loop owns execution
// and reports outcomes through Respond.
type Handler struct {
	cfg      *config.Config
	client   mqtt.Client
	commands chan Command

	mu       sync.RWMutex
	received uint64
	dropped  uint64
}

// NewHandler creates a control plane handler. The client may be nil for
// headless operation; Respond then drops acks with a debug log.
func NewHandler(cfg *config.Config, client mqtt.Client) *Handler {
	return &Handler{
		cfg:      cfg,
		client:   client,
		commands: make(chan Command, commandQueueCapacity),
	}
}

// Start subscribes to the control topic.
func (h *Handler) Start(ctx context.Context) error {
	topic := h.cfg.MQTT.Topics.Control

	token := h.client.Subscribe(topic, h.cfg.MQTT.QoS["control"], h.onMessage)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("control subscription timed out")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("control subscribe: %w", err)
	}

	slog.Info("control plane listening", "topic", topic)
	return nil
}

// Stop unsubscribes and closes the command queue.
func (h *Handler) Stop() error {
	if h.client != nil && h.client.IsConnected() {
		h.client.Unsubscribe(h.cfg.MQTT.Topics.Control).Wait()
	}

	close(h.commands)

	slog.Info("control plane stopped")
	return nil
}

// Commands returns the queue the pipeline loop consumes.
func (h *Handler) Commands() <-chan Command {
	return h.commands
}

// Stats returns how many commands were received and dropped.
func (h *Handler) Stats() (received, dropped uint64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.received, h.dropped
}

// onMessage parses one wire message and enqueues it for the loop.
func (h *Handler) onMessage(_ mqtt.Client, msg mqtt.Message) {
	var cmd Command
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		slog.Error("unparseable control message", "error", err)
		h.Respond(Failure("unknown", "invalid JSON"))
		return
	}

	h.mu.Lock()
	h.received++
	h.mu.Unlock()

	select {
	case h.commands <- cmd:
		slog.Info("control command queued", "command", cmd.Command)
	default:
		h.mu.Lock()
		h.dropped++
		h.mu.Unlock()
		slog.Warn("control queue full, command dropped", "command", cmd.Command)
	}
}

// Respond publishes a command ack on the health topic.
func (h *Handler) Respond(resp Response) {
	resp.Timestamp = time.Now().UTC().Format(time.RFC3339)

	payload, err := json.Marshal(resp)
	if err != nil {
		slog.Error("marshal command ack", "error", err)
		return
	}

	if h.client == nil {
		slog.Debug("headless mode, ack dropped", "command_ack", resp.CommandAck)
		return
	}

	token := h.client.Publish(h.cfg.MQTT.Topics.Health, h.cfg.MQTT.QoS["health"], false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		slog.Error("command ack timed out", "command_ack", resp.CommandAck)
		return
	}
	if err := token.Error(); err != nil {
		slog.Error("command ack failed", "error", err)
		return
	}

	slog.Debug("command ack sent", "command_ack", resp.CommandAck, "status", resp.Status)
}
