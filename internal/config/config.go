package config

import (
	"fmt"
	"math"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/e7canasta/motion-sensor/motion"
	"gopkg.in/yaml.v3"
)

// Config represents the complete motion sensor configuration. Values
// resolve in three layers: built-in defaults, then the YAML file, then
// MOTION_* environment overrides.
type Config struct {
	InstanceID       string       `yaml:"instance_id" env:"MOTION_INSTANCE_ID"`
	ShutdownTimeoutS int          `yaml:"shutdown_timeout_s" env:"MOTION_SHUTDOWN_TIMEOUT_S"` // graceful shutdown timeout in seconds (default: 5)
	Stream           StreamConfig `yaml:"stream"`
	Motion           MotionConfig `yaml:"motion"`
	Emit             EmitConfig   `yaml:"emit"`
	MQTT             MQTTConfig   `yaml:"mqtt"`
}

// StreamConfig contains frame source settings
type StreamConfig struct {
	Source          string `yaml:"source" env:"MOTION_STREAM_SOURCE"` // mock, replay
	Width           int    `yaml:"width" env:"MOTION_STREAM_WIDTH"`
	Height          int    `yaml:"height" env:"MOTION_STREAM_HEIGHT"`
	FPS             int    `yaml:"fps" env:"MOTION_STREAM_FPS"`                           // 0 = measure during warm-up
	WarmupDurationS int    `yaml:"warmup_duration_s" env:"MOTION_STREAM_WARMUP_DURATION_S"` // warm-up duration in seconds
	ReplayPath      string `yaml:"replay_path" env:"MOTION_STREAM_REPLAY_PATH"`
	ReplayLoop      bool   `yaml:"replay_loop" env:"MOTION_STREAM_REPLAY_LOOP"`
}

// MotionConfig contains extraction tuning. DelayFrames and DelaySeconds
// are pointers because "not set" and "zero" mean different things: an
// explicit frame count wins over a seconds value, which wins over the
// stock default.
type MotionConfig struct {
	DelayFrames    *int     `yaml:"delay_frames" env:"MOTION_DELAY_FRAMES"`
	DelaySeconds   *float64 `yaml:"delay_seconds" env:"MOTION_DELAY_SECONDS"`
	BlendAlpha     float64  `yaml:"blend_alpha" env:"MOTION_BLEND_ALPHA"`
	DiffThreshold  int      `yaml:"diff_threshold" env:"MOTION_DIFF_THRESHOLD"`
	MaxDelayFrames int      `yaml:"max_delay_frames" env:"MOTION_MAX_DELAY_FRAMES"` // 0 = fps * 10
}

// EmitConfig controls event publishing
type EmitConfig struct {
	MinEnergy      float64 `yaml:"min_energy" env:"MOTION_EMIT_MIN_ENERGY"` // publish events at or above this energy
	StatsIntervalS int     `yaml:"stats_interval_s" env:"MOTION_EMIT_STATS_INTERVAL_S"`
}

// MQTTConfig contains MQTT broker settings. An empty broker runs the
// sensor headless: no control plane, no event publishing.
type MQTTConfig struct {
	Broker string          `yaml:"broker" env:"MOTION_MQTT_BROKER"`
	Topics MQTTTopics      `yaml:"topics"`
	QoS    map[string]byte `yaml:"qos"`
}

// MQTTTopics contains topic templates
type MQTTTopics struct {
	Control string `yaml:"control" env:"MOTION_MQTT_TOPIC_CONTROL"`
	Events  string `yaml:"events" env:"MOTION_MQTT_TOPIC_EVENTS"`
	Health  string `yaml:"health" env:"MOTION_MQTT_TOPIC_HEALTH"`
}

// Default returns the built-in configuration the sensor ships with.
func Default() *Config {
	return &Config{
		InstanceID:       "motion-sensor-01",
		ShutdownTimeoutS: 5,
		Stream: StreamConfig{
			Source:          "mock",
			Width:           640,
			Height:          480,
			FPS:             motion.DefaultFPS,
			WarmupDurationS: 5,
			ReplayLoop:      true,
		},
		Motion: MotionConfig{
			BlendAlpha:    motion.DefaultBlendAlpha,
			DiffThreshold: motion.DefaultDiffThreshold,
		},
		Emit: EmitConfig{
			StatsIntervalS: 10,
		},
	}
}

// Load builds the effective configuration. A missing file is not an
// error: the sensor then runs on defaults plus environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
		// Defaults only, overrides below still apply.
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment overrides: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// InitialDelayFrames resolves the startup delay once the frame rate is
// known: an explicit frame count wins over a seconds value, which wins
// over the stock default.
func (m MotionConfig) InitialDelayFrames(fps int) int {
	if m.DelayFrames != nil {
		return *m.DelayFrames
	}
	if m.DelaySeconds != nil {
		frames := int(math.Round(*m.DelaySeconds * float64(fps)))
		if frames < 0 {
			frames = 0
		}
		return frames
	}
	return motion.DefaultDelayFrames
}
