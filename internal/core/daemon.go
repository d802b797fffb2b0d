package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/e7canasta/motion-sensor/internal/config"
	"github.com/e7canasta/motion-sensor/internal/control"
	"github.com/e7canasta/motion-sensor/internal/emitter"
	"github.com/e7canasta/motion-sensor/internal/stream"
	"github.com/e7canasta/motion-sensor/motion"
)

// Daemon is the main service orchestrator
type Daemon struct {
	cfg *config.Config

	// Core components
	source    stream.Source
	extractor *motion.Extractor
	delay     *control.DelayManager
	emitter   *emitter.MQTTEmitter
	handler   *control.Handler

	// Lifecycle management
	started   time.Time
	mu        sync.RWMutex
	wg        sync.WaitGroup
	isRunning bool
	isPaused  bool
	cancelRun context.CancelFunc // for the shutdown command and end of input

	fps int

	// Pipeline-owned snapshots for health surfaces. The extractor has
	// no locking, so HealthCheck never touches it directly.
	lastStats  motion.ExtractorStats
	lastEnergy float64
}

// NewDaemon creates a daemon instance from a validated configuration.
func NewDaemon(cfg *config.Config) (*Daemon, error) {
	d := &Daemon{cfg: cfg}

	src, err := newSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream source: %w", err)
	}
	d.source = src

	if cfg.MQTT.Broker != "" {
		d.emitter = emitter.NewMQTTEmitter(cfg)
	} else {
		slog.Info("no mqtt broker configured, running headless")
	}

	return d, nil
}

// newSource builds the configured frame source.
func newSource(cfg *config.Config) (stream.Source, error) {
	switch cfg.Stream.Source {
	case "replay":
		return stream.NewReplayStream(stream.ReplayConfig{
			Path:   cfg.Stream.ReplayPath,
			Width:  cfg.Stream.Width,
			Height: cfg.Stream.Height,
			FPS:    cfg.Stream.FPS,
			Loop:   cfg.Stream.ReplayLoop,
		})
	default:
		return stream.NewMockStream(cfg.Stream.Width, cfg.Stream.Height, cfg.Stream.FPS, "mock"), nil
	}
}

// Run starts the service and blocks until the context is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	d.mu.Lock()
	if d.isRunning {
		d.mu.Unlock()
		return fmt.Errorf("service is already running")
	}
	d.isRunning = true
	d.started = time.Now()
	d.mu.Unlock()

	// Cancellable so the MQTT shutdown command can unwind the service.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	d.mu.Lock()
	d.cancelRun = cancel
	d.mu.Unlock()

	slog.Info("motion sensor starting", "instance_id", d.cfg.InstanceID)

	if err := d.source.Start(ctx); err != nil {
		return fmt.Errorf("failed to start stream: %w", err)
	}

	// The extractor sizes its window from the frame rate. When none is
	// configured, measure the source before processing starts.
	fps := d.cfg.Stream.FPS
	if fps <= 0 {
		warmup := time.Duration(d.cfg.Stream.WarmupDurationS) * time.Second
		stats, err := stream.MeasureFPS(ctx, d.source.Frames(), warmup)
		if err != nil {
			slog.Warn("stream warm-up failed, falling back to default rate",
				"error", err,
				"fallback_fps", stream.DefaultFPS,
			)
		}
		fps = stream.ResolveFPS(stats, stream.DefaultFPS)
		slog.Info("stream rate resolved", "fps", fps)
	}
	d.fps = fps

	initial := d.cfg.Motion.InitialDelayFrames(fps)
	d.delay = control.NewDelayManager(fps, initial, 0, d.cfg.Motion.MaxDelayFrames)

	ext, err := motion.New(motion.Config{
		FPS:           fps,
		BlendAlpha:    d.cfg.Motion.BlendAlpha,
		DiffThreshold: uint8(d.cfg.Motion.DiffThreshold),
	})
	if err != nil {
		return fmt.Errorf("failed to create extractor: %w", err)
	}
	// Size the window by frame count directly: a round trip through
	// seconds can land one frame short on inexact divisions.
	ext.SetDelayFrames(d.delay.Frames())
	d.extractor = ext
	d.refreshDelayGauges()

	if d.emitter != nil {
		if err := d.emitter.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect mqtt: %w", err)
		}

		d.handler = control.NewHandler(d.cfg, d.emitter.Client)
		if err := d.handler.Start(ctx); err != nil {
			return fmt.Errorf("failed to start control plane: %w", err)
		}
	}

	d.wg.Add(1)
	go d.runPipeline(ctx)

	slog.Info("motion sensor running",
		"source", d.cfg.Stream.Source,
		"fps", fps,
		"delay", d.delay.DisplayText(),
		"mqtt", d.emitter != nil,
	)

	<-ctx.Done()

	slog.Info("motion sensor run loop exiting")
	return nil
}

// Shutdown performs graceful shutdown of all components
func (d *Daemon) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.isRunning {
		d.mu.Unlock()
		return nil
	}
	d.mu.Unlock()

	slog.Info("shutting down motion sensor")

	// Order matters: stop the source first so the pipeline drains, then
	// the control plane, then wait for the loop before dropping MQTT so
	// final acks still go out.
	if d.source != nil {
		slog.Info("stopping stream")
		if err := d.source.Stop(); err != nil {
			slog.Error("failed to stop stream", "error", err)
		}
	}

	if d.handler != nil {
		slog.Info("stopping control handler")
		if err := d.handler.Stop(); err != nil {
			slog.Error("failed to stop control handler", "error", err)
		}
	}

	slog.Info("waiting for pipeline to finish")
	d.wg.Wait()

	if d.emitter != nil {
		if err := d.emitter.Disconnect(); err != nil {
			slog.Error("failed to disconnect mqtt", "error", err)
		}
	}

	d.mu.Lock()
	uptime := time.Since(d.started)
	d.isRunning = false
	d.mu.Unlock()

	slog.Info("motion sensor shutdown complete", "uptime", uptime)
	return nil
}

// requestShutdown cancels the run context, unwinding Run.
func (d *Daemon) requestShutdown() {
	d.mu.RLock()
	cancel := d.cancelRun
	d.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}

// ShutdownTimeout returns the configured graceful shutdown timeout.
func (d *Daemon) ShutdownTimeout() time.Duration {
	timeout := time.Duration(d.cfg.ShutdownTimeoutS) * time.Second
	if timeout == 0 {
		return 5 * time.Second
	}
	return timeout
}
