package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/e7canasta/motion-sensor/internal/config"
	"github.com/e7canasta/motion-sensor/internal/control"
	"github.com/e7canasta/motion-sensor/internal/types"
	"github.com/e7canasta/motion-sensor/motion"
)

// newTestDaemon wires a daemon the way Run would, minus the goroutines
// and MQTT, so commands can be applied directly against a live
// extractor. fps 10 keeps the derived delay ceiling at 100 frames.
func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()

	cfg := config.Default()
	cfg.Stream.Width = 32
	cfg.Stream.Height = 24
	cfg.Stream.FPS = 10
	require.NoError(t, config.Validate(cfg))

	d, err := NewDaemon(cfg)
	require.NoError(t, err)

	d.fps = cfg.Stream.FPS
	d.delay = control.NewDelayManager(d.fps, cfg.Motion.InitialDelayFrames(d.fps), 0, cfg.Motion.MaxDelayFrames)

	ext, err := motion.New(motion.Config{
		FPS:           d.fps,
		BlendAlpha:    cfg.Motion.BlendAlpha,
		DiffThreshold: uint8(cfg.Motion.DiffThreshold),
	})
	require.NoError(t, err)
	ext.SetDelayFrames(d.delay.Frames())
	d.extractor = ext

	d.isRunning = true
	d.started = time.Now()
	return d
}

// testFrame builds a uniform frame matching the daemon's configured
// geometry.
func testFrame(d *Daemon, seq uint64, v uint8) types.Frame {
	w, h := d.cfg.Stream.Width, d.cfg.Stream.Height
	data := make([]byte, w*h*motion.Channels)
	for i := range data {
		data[i] = v
	}
	return types.Frame{
		Seq:          seq,
		Timestamp:    time.Now(),
		Width:        w,
		Height:       h,
		Data:         data,
		SourceStream: "test",
		TraceID:      "trace-test",
	}
}

func TestApplyCommandGetStatus(t *testing.T) {
	d := newTestDaemon(t)

	resp := d.applyCommand(control.Command{Command: "get_status"})

	require.Equal(t, "success", resp.Status)
	assert.Equal(t, "get_status", resp.CommandAck)
	assert.Equal(t, d.cfg.InstanceID, resp.Data["instance_id"])

	ext, ok := resp.Data["extractor"].(map[string]interface{})
	require.True(t, ok, "status payload missing extractor section")
	assert.Equal(t, motion.DefaultDelayFrames, ext["delay_frames"])
	assert.Equal(t, motion.DefaultDelayFrames+1, ext["capacity"])
	assert.Equal(t, "Delay: 5 frames (0.5s)", ext["delay_display"])

	_, ok = resp.Data["stream"].(map[string]interface{})
	assert.True(t, ok, "status payload missing stream section")
}

func TestApplyCommandSetDelayFrames(t *testing.T) {
	d := newTestDaemon(t)

	resp := d.applyCommand(control.Command{
		Command: "set_delay_frames",
		Params:  map[string]interface{}{"frames": float64(2)},
	})

	require.Equal(t, "success", resp.Status)
	assert.Equal(t, 2, d.delay.Frames())
	assert.Equal(t, 2, d.extractor.DelayFrames())
	assert.Equal(t, 2, resp.Data["delay_frames"])
	assert.Equal(t, 3, resp.Data["capacity"])
	assert.NotContains(t, resp.Data, "clamped")
}

func TestApplyCommandSetDelayFramesClamped(t *testing.T) {
	d := newTestDaemon(t)

	resp := d.applyCommand(control.Command{
		Command: "set_delay_frames",
		Params:  map[string]interface{}{"frames": float64(5000)},
	})

	require.Equal(t, "success", resp.Status)
	assert.Equal(t, 100, d.delay.Frames())
	assert.Equal(t, 100, d.extractor.DelayFrames())
	assert.Equal(t, true, resp.Data["clamped"])
}

func TestApplyCommandSetDelayFramesBadParam(t *testing.T) {
	d := newTestDaemon(t)

	for _, params := range []map[string]interface{}{
		nil,
		{"frames": "three"},
		{"frames": 2.5},
	} {
		resp := d.applyCommand(control.Command{Command: "set_delay_frames", Params: params})
		assert.Equal(t, "error", resp.Status, "params %v should be rejected", params)
	}

	assert.Equal(t, motion.DefaultDelayFrames, d.delay.Frames(), "rejected commands must not touch the delay")
}

func TestApplyCommandAdjustDelay(t *testing.T) {
	d := newTestDaemon(t)

	resp := d.applyCommand(control.Command{
		Command: "adjust_delay",
		Params:  map[string]interface{}{"delta": float64(-2)},
	})
	require.Equal(t, "success", resp.Status)
	assert.Equal(t, 3, d.delay.Frames())
	assert.Equal(t, 3, d.extractor.DelayFrames())
	assert.NotContains(t, resp.Data, "clamped")

	// Past the floor: the applied value clamps to zero and says so.
	resp = d.applyCommand(control.Command{
		Command: "adjust_delay",
		Params:  map[string]interface{}{"delta": float64(-50)},
	})
	require.Equal(t, "success", resp.Status)
	assert.Equal(t, 0, d.delay.Frames())
	assert.Equal(t, true, resp.Data["clamped"])
}

func TestApplyCommandResetBuffer(t *testing.T) {
	d := newTestDaemon(t)

	for seq := uint64(0); seq < 4; seq++ {
		d.processFrame(testFrame(d, seq, uint8(40+seq*10)))
	}
	require.Equal(t, 4, d.extractor.Stats().Buffered)

	resp := d.applyCommand(control.Command{Command: "reset_buffer"})

	require.Equal(t, "success", resp.Status)
	assert.Equal(t, 0, d.extractor.Stats().Buffered)
	assert.Equal(t, motion.DefaultDelayFrames, d.extractor.DelayFrames(), "reset must not change the window size")
}

func TestApplyCommandPauseResume(t *testing.T) {
	d := newTestDaemon(t)

	resp := d.applyCommand(control.Command{Command: "pause"})
	require.Equal(t, "success", resp.Status)
	assert.Equal(t, true, resp.Data["paused"])

	// Paused ingestion drops frames on the floor.
	d.processFrame(testFrame(d, 1, 90))
	assert.Equal(t, uint64(0), d.extractor.Stats().FramesAdded)

	resp = d.applyCommand(control.Command{Command: "pause"})
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Error, "already paused")

	resp = d.applyCommand(control.Command{Command: "resume"})
	require.Equal(t, "success", resp.Status)
	assert.Equal(t, false, resp.Data["paused"])

	d.processFrame(testFrame(d, 2, 90))
	assert.Equal(t, uint64(1), d.extractor.Stats().FramesAdded)

	resp = d.applyCommand(control.Command{Command: "resume"})
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Error, "not paused")
}

func TestApplyCommandShutdown(t *testing.T) {
	d := newTestDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.cancelRun = cancel

	resp := d.applyCommand(control.Command{Command: "shutdown"})

	require.Equal(t, "success", resp.Status)
	assert.Equal(t, true, resp.Data["shutdown_initiated"])

	select {
	case <-ctx.Done():
	default:
		t.Fatal("shutdown command did not cancel the run context")
	}
}

func TestApplyCommandUnknown(t *testing.T) {
	d := newTestDaemon(t)

	resp := d.applyCommand(control.Command{Command: "flip_table"})

	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Error, "unknown command")
}

func TestProcessFrameRejectsMismatchedGeometry(t *testing.T) {
	d := newTestDaemon(t)

	d.processFrame(testFrame(d, 0, 50))

	bad := types.Frame{
		Seq:    1,
		Width:  8,
		Height: 8,
		Data:   make([]byte, 8*8*motion.Channels),
	}
	d.processFrame(bad)

	stats := d.extractor.Stats()
	assert.Equal(t, uint64(1), stats.FramesAdded)
	assert.Equal(t, uint64(1), stats.FramesRejected)
}

func TestProcessFrameUpdatesHealthSnapshot(t *testing.T) {
	d := newTestDaemon(t)

	// Two identical frames make the window eligible while keeping the
	// composite neutral.
	d.processFrame(testFrame(d, 0, 50))
	d.processFrame(testFrame(d, 1, 50))

	h := d.HealthCheck()
	assert.Equal(t, uint64(2), h.FramesAdded)
	assert.Equal(t, 2, h.Buffered)
	assert.Equal(t, motion.DefaultDelayFrames+1, h.Capacity)
	assert.Equal(t, 0.0, h.LastEnergy)

	// Mock source never started, so the stream reads as down.
	assert.Equal(t, "degraded", h.Status)
}

// TestDaemonRunAndShutdown drives the real lifecycle headless: mock
// source, no broker, cancel after frames flow.
func TestDaemonRunAndShutdown(t *testing.T) {
	cfg := config.Default()
	cfg.Stream.Width = 32
	cfg.Stream.Height = 24
	cfg.Stream.FPS = 50
	cfg.Emit.StatsIntervalS = 1
	require.NoError(t, config.Validate(cfg))

	d, err := NewDaemon(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- d.Run(ctx) }()

	require.Eventually(t, func() bool {
		return d.HealthCheck().FramesAdded >= 5
	}, 5*time.Second, 20*time.Millisecond, "pipeline never processed frames")

	cancel()
	select {
	case err := <-runErr:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after cancel")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	require.NoError(t, d.Shutdown(shutdownCtx))

	assert.Equal(t, "unhealthy", d.HealthCheck().Status)
	assert.GreaterOrEqual(t, d.extractor.Stats().FramesAdded, uint64(5))
}
