package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/e7canasta/motion-sensor/internal/control"
	"github.com/e7canasta/motion-sensor/internal/metrics"
	"github.com/e7canasta/motion-sensor/internal/types"
	"github.com/e7canasta/motion-sensor/motion"
)

// highDropRateAlert flags a stats interval where the source dropped
// most of what it produced.
const highDropRateAlert = 0.8

// runPipeline is the single goroutine that owns the extractor. Frames,
// control commands and stats ticks are serialized here, so a delay
// resize never races frame processing.
func (d *Daemon) runPipeline(ctx context.Context) {
	defer d.wg.Done()

	slog.Info("pipeline started",
		"delay_frames", d.delay.Frames(),
		"capacity", d.extractor.Stats().Capacity,
	)

	statsInterval := time.Duration(d.cfg.Emit.StatsIntervalS) * time.Second
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	var commands <-chan control.Command
	if d.handler != nil {
		commands = d.handler.Commands()
	}

	var lastEmitted, lastDropped uint64

	for {
		select {
		case <-ctx.Done():
			slog.Info("pipeline stopping", "frames_added", d.extractor.Stats().FramesAdded)
			return

		case cmd, ok := <-commands:
			if !ok {
				commands = nil
				continue
			}
			resp := d.applyCommand(cmd)
			d.handler.Respond(resp)

		case f, ok := <-d.source.Frames():
			if !ok {
				// End of input (replay without loop). Unwind the whole
				// service rather than idle on a dead source.
				slog.Info("stream ended, stopping service",
					"frames_added", d.extractor.Stats().FramesAdded)
				d.requestShutdown()
				return
			}
			d.processFrame(f)

		case <-ticker.C:
			lastEmitted, lastDropped = d.logStats(lastEmitted, lastDropped)
		}
	}
}

// processFrame drives one AddFrame then ExtractMotion cycle.
func (d *Daemon) processFrame(f types.Frame) {
	if d.isPausedCheck() {
		return
	}

	// The extractor copies on ingest, so the source buffer is wrapped,
	// not cloned.
	in := &motion.Frame{Width: f.Width, Height: f.Height, Pix: f.Data}

	if err := d.extractor.AddFrame(in); err != nil {
		metrics.FramesRejected.Inc()
		slog.Warn("frame rejected",
			"seq", f.Seq,
			"trace_id", f.TraceID,
			"error", err,
		)
		return
	}
	metrics.FramesIngested.Inc()

	start := time.Now()
	out := d.extractor.ExtractMotion()
	metrics.ExtractionDuration.Observe(time.Since(start).Seconds())

	if out == nil {
		// Window not full yet.
		metrics.ExtractionsTotal.WithLabelValues("warmup").Inc()
		return
	}
	metrics.ExtractionsTotal.WithLabelValues("ok").Inc()

	energy, changed := scoreMotion(out)
	metrics.MotionEnergy.Set(energy)

	d.mu.Lock()
	d.lastEnergy = energy
	d.lastStats = d.extractor.Stats()
	d.mu.Unlock()

	if d.emitter == nil || energy < d.cfg.Emit.MinEnergy {
		return
	}

	ev := &types.MotionEvent{
		InstanceID:      d.cfg.InstanceID,
		Seq:             f.Seq,
		TraceID:         f.TraceID,
		Energy:          energy,
		ChangedFraction: changed,
		DelayFrames:     d.delay.Frames(),
		DelaySeconds:    d.delay.DelaySeconds(),
		Width:           out.Width,
		Height:          out.Height,
	}
	ev.Stamp(f.Timestamp)

	if err := d.emitter.PublishEvent(ev); err != nil {
		slog.Error("failed to publish motion event", "seq", f.Seq, "error", err)
		return
	}
	metrics.EventsPublished.Inc()
}

// logStats emits the periodic pipeline log line, refreshes gauges and
// publishes the health report. Returns the emitted/dropped marks for
// the next interval's delta alerting.
func (d *Daemon) logStats(prevEmitted, prevDropped uint64) (uint64, uint64) {
	streamStats := d.source.Stats()
	extStats := d.extractor.Stats()

	d.mu.Lock()
	d.lastStats = extStats
	energy := d.lastEnergy
	d.mu.Unlock()

	metrics.BufferOccupancy.Set(float64(extStats.Buffered))
	metrics.BufferCapacity.Set(float64(extStats.Capacity))
	metrics.DelayFrames.Set(float64(extStats.DelayFrames))
	if diff := streamStats.FramesDropped - prevDropped; diff > 0 {
		metrics.StreamFramesDropped.Add(float64(diff))
	}

	slog.Debug("pipeline stats",
		"frames_added", extStats.FramesAdded,
		"frames_rejected", extStats.FramesRejected,
		"extractions", extStats.Extractions,
		"buffered", extStats.Buffered,
		"capacity", extStats.Capacity,
		"delay_frames", extStats.DelayFrames,
		"energy", energy,
		"stream_fps_real", float64(int(streamStats.FPSReal*100))/100,
		"stream_dropped", streamStats.FramesDropped,
	)

	// An interval where the source dropped most of its output means the
	// pipeline is badly behind.
	deltaEmitted := streamStats.FrameCount - prevEmitted
	deltaDropped := streamStats.FramesDropped - prevDropped
	if total := deltaEmitted + deltaDropped; total > 0 {
		if rate := float64(deltaDropped) / float64(total); rate > highDropRateAlert {
			slog.Warn("stream dropping frames",
				"interval_drop_rate", fmt.Sprintf("%.0f%%", rate*100),
				"dropped", deltaDropped,
			)
		}
	}

	if d.emitter != nil {
		if payload, err := json.Marshal(d.HealthCheck()); err == nil {
			if err := d.emitter.PublishHealth(payload); err != nil {
				slog.Debug("health publish skipped", "error", err)
			}
		}
	}

	return streamStats.FrameCount, streamStats.FramesDropped
}
