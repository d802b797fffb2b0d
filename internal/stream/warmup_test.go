package stream

import (
	"context"
	"testing"
	"time"

	"github.com/e7canasta/motion-sensor/internal/types"
)

// generateFrameTimes builds n timestamps spaced by the given intervals,
// cycling through them.
func generateFrameTimes(n int, intervals ...time.Duration) []time.Time {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	times := make([]time.Time, 0, n)
	t := base
	for i := 0; i < n; i++ {
		times = append(times, t)
		t = t.Add(intervals[i%len(intervals)])
	}
	return times
}

func TestCalculateFPSStats_UniformCadence(t *testing.T) {
	// 11 frames at exactly 100ms spacing over a 1.1s window.
	frameTimes := generateFrameTimes(11, 100*time.Millisecond)
	stats := CalculateFPSStats(frameTimes, 1100*time.Millisecond)

	if stats.FramesReceived != 11 {
		t.Errorf("FramesReceived = %d, want 11", stats.FramesReceived)
	}
	if diff := stats.FPSMean - 10.0; diff > 0.001 || diff < -0.001 {
		t.Errorf("FPSMean = %.4f, want 10.0", stats.FPSMean)
	}
	if stats.FPSStdDev > 0.001 {
		t.Errorf("FPSStdDev = %.4f, want ~0 for uniform cadence", stats.FPSStdDev)
	}
	if stats.FPSMin != stats.FPSMax {
		t.Errorf("uniform cadence should give FPSMin == FPSMax, got %.2f / %.2f",
			stats.FPSMin, stats.FPSMax)
	}
	if !stats.IsStable {
		t.Error("uniform cadence should be stable")
	}
}

func TestCalculateFPSStats_AlternatingCadence(t *testing.T) {
	// Intervals alternate 50ms/150ms: instantaneous FPS swings between
	// 20 and 6.67, far beyond the stability threshold.
	frameTimes := generateFrameTimes(20, 50*time.Millisecond, 150*time.Millisecond)
	stats := CalculateFPSStats(frameTimes, 2*time.Second)

	if stats.IsStable {
		t.Errorf("alternating cadence should be unstable (stddev %.2f, mean %.2f)",
			stats.FPSStdDev, stats.FPSMean)
	}
	if stats.FPSMax <= stats.FPSMin {
		t.Errorf("expected spread in instantaneous FPS, got min=%.2f max=%.2f",
			stats.FPSMin, stats.FPSMax)
	}
}

func TestCalculateFPSStats_DegenerateInput(t *testing.T) {
	t.Run("single frame", func(t *testing.T) {
		stats := CalculateFPSStats(generateFrameTimes(1, time.Second), time.Second)
		if stats.IsStable {
			t.Error("one frame can never be stable")
		}
	})

	t.Run("identical timestamps", func(t *testing.T) {
		base := time.Now()
		stats := CalculateFPSStats([]time.Time{base, base, base}, time.Second)
		if stats.IsStable {
			t.Error("zero intervals carry no cadence information")
		}
		if stats.FramesReceived != 3 {
			t.Errorf("FramesReceived = %d, want 3", stats.FramesReceived)
		}
	})
}

func TestResolveFPS(t *testing.T) {
	tests := []struct {
		name     string
		stats    *WarmupStats
		fallback int
		want     int
	}{
		{"nil stats", nil, 25, 25},
		{"nil stats default fallback", nil, 0, DefaultFPS},
		{"unstable", &WarmupStats{FPSMean: 29.7, IsStable: false}, 30, 30},
		{"stable rounds up", &WarmupStats{FPSMean: 29.7, IsStable: true}, 30, 30},
		{"stable rounds down", &WarmupStats{FPSMean: 15.2, IsStable: true}, 30, 15},
		{"stable but tiny clamps to one", &WarmupStats{FPSMean: 0.3, IsStable: true}, 30, 1},
		{"stable but zero mean", &WarmupStats{FPSMean: 0, IsStable: true}, 30, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveFPS(tt.stats, tt.fallback); got != tt.want {
				t.Errorf("ResolveFPS() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeasureFPS_CollectsFrames(t *testing.T) {
	frames := make(chan types.Frame, 16)
	base := time.Now()
	for i := 0; i < 8; i++ {
		frames <- types.Frame{
			Seq:       uint64(i),
			Timestamp: base.Add(time.Duration(i) * 25 * time.Millisecond),
		}
	}

	stats, err := MeasureFPS(context.Background(), frames, 80*time.Millisecond)
	if err != nil {
		t.Fatalf("MeasureFPS() error = %v", err)
	}
	if stats.FramesReceived != 8 {
		t.Errorf("FramesReceived = %d, want 8", stats.FramesReceived)
	}
	if stats.FPSMean <= 0 {
		t.Errorf("FPSMean = %.2f, want > 0", stats.FPSMean)
	}
}

func TestMeasureFPS_NotEnoughFrames(t *testing.T) {
	frames := make(chan types.Frame, 1)
	if _, err := MeasureFPS(context.Background(), frames, 30*time.Millisecond); err == nil {
		t.Error("expected error when no frames arrive during warm-up")
	}
}

func TestMeasureFPS_ClosedStream(t *testing.T) {
	frames := make(chan types.Frame)
	close(frames)
	if _, err := MeasureFPS(context.Background(), frames, 50*time.Millisecond); err == nil {
		t.Error("expected error when the stream closes mid warm-up")
	}
}
