package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/e7canasta/motion-sensor/internal/types"
)

// fpsStabilityThreshold: a measured rate counts as stable when the
// stddev of instantaneous FPS stays under 15% of the mean.
const fpsStabilityThreshold = 0.15

// WarmupStats contains statistics from the stream warm-up phase
type WarmupStats struct {
	FramesReceived int
	Duration       time.Duration
	FPSMean        float64
	FPSStdDev      float64
	FPSMin         float64
	FPSMax         float64
	IsStable       bool
}

// MeasureFPS consumes frames for the given duration and measures the
// real delivery rate. Frames seen here are discarded, not processed.
func MeasureFPS(ctx context.Context, frames <-chan types.Frame, duration time.Duration) (*WarmupStats, error) {
	slog.Info("measuring stream rate",
		"duration", duration,
		"reason", "size the delay window from the real FPS",
	)

	deadline := time.NewTimer(duration)
	defer deadline.Stop()

	start := time.Now()
	arrivals := make([]time.Time, 0, 256)

collect:
	for {
		select {
		case <-ctx.Done():
			break collect
		case <-deadline.C:
			break collect
		case f, ok := <-frames:
			if !ok {
				return nil, errors.New("stream closed during warm-up")
			}
			arrivals = append(arrivals, f.Timestamp)
		}
	}

	if len(arrivals) < 2 {
		return nil, fmt.Errorf("not enough frames during warm-up (got %d)", len(arrivals))
	}

	stats := CalculateFPSStats(arrivals, time.Since(start))

	slog.Info("stream warm-up complete",
		"frames", stats.FramesReceived,
		"fps_mean", fmt.Sprintf("%.2f", stats.FPSMean),
		"fps_spread", fmt.Sprintf("%.1f-%.1f", stats.FPSMin, stats.FPSMax),
		"stable", stats.IsStable,
	)
	if !stats.IsStable {
		slog.Warn("stream rate is unstable, the delay window may be mis-sized",
			"fps_stddev", fmt.Sprintf("%.2f", stats.FPSStdDev),
		)
	}

	return stats, nil
}

// CalculateFPSStats summarizes a series of frame arrival times. The
// mean rate uses the whole measurement window; min, max and the
// deviation come from instantaneous per-interval rates, measured
// against that mean.
func CalculateFPSStats(frameTimes []time.Time, totalDuration time.Duration) *WarmupStats {
	stats := &WarmupStats{
		FramesReceived: len(frameTimes),
		Duration:       totalDuration,
		FPSMean:        float64(len(frameTimes)) / totalDuration.Seconds(),
	}

	rates := instantRates(frameTimes)
	if len(rates) == 0 {
		return stats
	}

	stats.FPSMin, stats.FPSMax = rates[0], rates[0]
	var devSq float64
	for _, r := range rates {
		stats.FPSMin = math.Min(stats.FPSMin, r)
		stats.FPSMax = math.Max(stats.FPSMax, r)
		d := r - stats.FPSMean
		devSq += d * d
	}
	stats.FPSStdDev = math.Sqrt(devSq / float64(len(rates)))
	stats.IsStable = stats.FPSStdDev < stats.FPSMean*fpsStabilityThreshold

	return stats
}

// instantRates converts arrival times to per-interval rates. Intervals
// of zero length carry no cadence information and are skipped.
func instantRates(frameTimes []time.Time) []float64 {
	rates := make([]float64, 0, len(frameTimes))
	for i := 1; i < len(frameTimes); i++ {
		if gap := frameTimes[i].Sub(frameTimes[i-1]).Seconds(); gap > 0 {
			rates = append(rates, 1/gap)
		}
	}
	return rates
}

// ResolveFPS turns a warm-up measurement into the integer rate the
// pipeline runs at. Unstable or missing measurements fall back.
func ResolveFPS(stats *WarmupStats, fallback int) int {
	if fallback <= 0 {
		fallback = DefaultFPS
	}
	if stats == nil || !stats.IsStable || stats.FPSMean <= 0 {
		return fallback
	}
	fps := int(math.Round(stats.FPSMean))
	if fps < 1 {
		fps = 1
	}
	return fps
}
