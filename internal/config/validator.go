package config

import (
	"fmt"
	"regexp"

	"github.com/e7canasta/motion-sensor/motion"
)

var instanceIDPattern = regexp.MustCompile(`^[a-z0-9\-]+$`)

// Validate checks the configuration and fills derived defaults.
func Validate(cfg *Config) error {
	if cfg.InstanceID == "" {
		return fmt.Errorf("instance_id is required")
	}
	if !instanceIDPattern.MatchString(cfg.InstanceID) {
		return fmt.Errorf("instance_id must match pattern [a-z0-9-]+")
	}

	if cfg.ShutdownTimeoutS <= 0 {
		cfg.ShutdownTimeoutS = 5
	}

	// Stream
	if cfg.Stream.Source == "" {
		cfg.Stream.Source = "mock"
	}
	switch cfg.Stream.Source {
	case "mock":
	case "replay":
		if cfg.Stream.ReplayPath == "" {
			return fmt.Errorf("stream.replay_path is required for the replay source")
		}
	default:
		return fmt.Errorf("stream.source must be 'mock' or 'replay', got %q", cfg.Stream.Source)
	}
	if cfg.Stream.Width <= 0 {
		return fmt.Errorf("stream.width must be > 0")
	}
	if cfg.Stream.Height <= 0 {
		return fmt.Errorf("stream.height must be > 0")
	}
	if cfg.Stream.FPS < 0 {
		return fmt.Errorf("stream.fps must be >= 0 (0 measures the rate during warm-up)")
	}
	if cfg.Stream.WarmupDurationS <= 0 {
		cfg.Stream.WarmupDurationS = 5
	}

	// Motion tuning
	if cfg.Motion.DelayFrames != nil && *cfg.Motion.DelayFrames < 0 {
		return fmt.Errorf("motion.delay_frames must be >= 0")
	}
	if cfg.Motion.DelaySeconds != nil {
		if s := *cfg.Motion.DelaySeconds; s < 0 || s > motion.MaxDelaySeconds {
			return fmt.Errorf("motion.delay_seconds must be in [0, %v]", motion.MaxDelaySeconds)
		}
	}
	if cfg.Motion.BlendAlpha <= 0 || cfg.Motion.BlendAlpha > 1 {
		return fmt.Errorf("motion.blend_alpha must be in (0, 1]")
	}
	if cfg.Motion.DiffThreshold < 0 || cfg.Motion.DiffThreshold > 255 {
		return fmt.Errorf("motion.diff_threshold must be in [0, 255]")
	}
	if cfg.Motion.MaxDelayFrames < 0 {
		return fmt.Errorf("motion.max_delay_frames must be >= 0 (0 derives it from the frame rate)")
	}

	// Emit
	if cfg.Emit.MinEnergy < 0 || cfg.Emit.MinEnergy > 1 {
		return fmt.Errorf("emit.min_energy must be in [0, 1]")
	}
	if cfg.Emit.StatsIntervalS <= 0 {
		cfg.Emit.StatsIntervalS = 10
	}

	// MQTT: broker is optional, topic and QoS defaults are not.
	if cfg.MQTT.Topics.Control == "" {
		cfg.MQTT.Topics.Control = fmt.Sprintf("motion/control/%s", cfg.InstanceID)
	}
	if cfg.MQTT.Topics.Events == "" {
		cfg.MQTT.Topics.Events = fmt.Sprintf("motion/events/%s", cfg.InstanceID)
	}
	if cfg.MQTT.Topics.Health == "" {
		cfg.MQTT.Topics.Health = fmt.Sprintf("motion/health/%s", cfg.InstanceID)
	}
	if cfg.MQTT.QoS == nil {
		cfg.MQTT.QoS = map[string]byte{
			"control": 1,
			"events":  0,
			"health":  0,
		}
	}

	return nil
}
