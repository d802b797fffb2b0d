package core

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/e7canasta/motion-sensor/internal/control"
	"github.com/e7canasta/motion-sensor/internal/metrics"
)

// applyCommand executes a control command and builds its ack. It runs
// on the pipeline goroutine, which keeps every extractor mutation
// serialized with frame processing.
func (d *Daemon) applyCommand(cmd control.Command) control.Response {
	switch cmd.Command {
	case "get_status":
		return control.Success(cmd.Command, d.statusData())

	case "set_delay_frames":
		frames, ok := cmd.IntParam("frames")
		if !ok {
			return control.Failure(cmd.Command, "missing or invalid 'frames' parameter (expected integer)")
		}
		applied := d.delay.Set(frames)
		d.extractor.SetDelayFrames(applied)
		d.refreshDelayGauges()
		return control.Success(cmd.Command, d.delayData(frames != applied))

	case "adjust_delay":
		delta, ok := cmd.IntParam("delta")
		if !ok {
			return control.Failure(cmd.Command, "missing or invalid 'delta' parameter (expected integer)")
		}
		requested := d.delay.Frames() + delta
		applied := d.delay.Adjust(delta)
		d.extractor.SetDelayFrames(applied)
		d.refreshDelayGauges()
		return control.Success(cmd.Command, d.delayData(requested != applied))

	case "reset_buffer":
		d.extractor.Reset()
		d.refreshDelayGauges()
		return control.Success(cmd.Command, map[string]interface{}{
			"buffered": 0,
			"message":  "delay window cleared",
		})

	case "pause":
		if err := d.pause(); err != nil {
			return control.Failure(cmd.Command, "%s", err)
		}
		return control.Success(cmd.Command, map[string]interface{}{"paused": true})

	case "resume":
		if err := d.resume(); err != nil {
			return control.Failure(cmd.Command, "%s", err)
		}
		return control.Success(cmd.Command, map[string]interface{}{"paused": false})

	case "shutdown":
		slog.Warn("shutdown command received via control plane")
		// Cancellation is only observed on the next loop pass, so the
		// ack below still goes out before the service unwinds.
		d.requestShutdown()
		return control.Success(cmd.Command, map[string]interface{}{
			"shutdown_initiated": true,
			"message":            "graceful shutdown in progress",
		})

	default:
		return control.Failure(cmd.Command, "unknown command: %s", cmd.Command)
	}
}

// delayData reports the delay state applied by a command.
func (d *Daemon) delayData(clamped bool) map[string]interface{} {
	stats := d.extractor.Stats()
	data := map[string]interface{}{
		"delay_frames":  d.delay.Frames(),
		"delay_seconds": d.delay.DelaySeconds(),
		"capacity":      stats.Capacity,
		"buffered":      stats.Buffered,
		"display":       d.delay.DisplayText(),
	}
	if clamped {
		data["clamped"] = true
	}
	return data
}

// statusData builds the detailed get_status payload.
func (d *Daemon) statusData() map[string]interface{} {
	streamStats := d.source.Stats()
	extStats := d.extractor.Stats()

	d.mu.RLock()
	status := map[string]interface{}{
		"instance_id": d.cfg.InstanceID,
		"uptime_s":    time.Since(d.started).Seconds(),
		"running":     d.isRunning,
		"paused":      d.isPaused,
		"energy":      d.lastEnergy,
	}
	d.mu.RUnlock()

	status["stream"] = map[string]interface{}{
		"source":      streamStats.SourceStream,
		"connected":   streamStats.IsConnected,
		"resolution":  streamStats.Resolution,
		"fps_target":  streamStats.FPSTarget,
		"fps_real":    streamStats.FPSReal,
		"frame_count": streamStats.FrameCount,
		"dropped":     streamStats.FramesDropped,
		"drop_rate":   streamStats.DropRate,
	}

	minDelay, maxDelay := d.delay.Bounds()
	status["extractor"] = map[string]interface{}{
		"delay_frames":    extStats.DelayFrames,
		"delay_seconds":   extStats.DelaySeconds,
		"delay_display":   d.delay.DisplayText(),
		"delay_min":       minDelay,
		"delay_max":       maxDelay,
		"capacity":        extStats.Capacity,
		"buffered":        extStats.Buffered,
		"frames_added":    extStats.FramesAdded,
		"frames_rejected": extStats.FramesRejected,
		"frames_evicted":  extStats.FramesEvicted,
		"extractions":     extStats.Extractions,
		"warmup_results":  extStats.EmptyResults,
		"blend_alpha":     extStats.BlendAlpha,
		"diff_threshold":  extStats.DiffThreshold,
	}

	if d.emitter != nil {
		emitterStats := d.emitter.Stats()
		status["emitter"] = map[string]interface{}{
			"connected": emitterStats.Connected,
			"published": emitterStats.Published,
			"errors":    emitterStats.Errors,
		}
	}

	status["config"] = map[string]interface{}{
		"fps":        d.fps,
		"min_energy": d.cfg.Emit.MinEnergy,
		"mqtt": map[string]interface{}{
			"broker":        d.cfg.MQTT.Broker,
			"control_topic": d.cfg.MQTT.Topics.Control,
			"events_topic":  d.cfg.MQTT.Topics.Events,
		},
	}

	return status
}

// refreshDelayGauges mirrors the window geometry into Prometheus.
func (d *Daemon) refreshDelayGauges() {
	stats := d.extractor.Stats()
	metrics.DelayFrames.Set(float64(stats.DelayFrames))
	metrics.BufferCapacity.Set(float64(stats.Capacity))
	metrics.BufferOccupancy.Set(float64(stats.Buffered))
}

// pause stops frame ingestion; buffered frames freeze in place.
func (d *Daemon) pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.isPaused {
		return fmt.Errorf("already paused")
	}

	d.isPaused = true
	return nil
}

// resume restarts frame ingestion after a pause.
func (d *Daemon) resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.isPaused {
		return fmt.Errorf("not paused")
	}

	d.isPaused = false
	return nil
}

// isPausedCheck returns whether ingestion is paused
func (d *Daemon) isPausedCheck() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.isPaused
}
