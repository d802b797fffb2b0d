package control

import "fmt"

// DelayManager owns the operator-facing delay state: the current frame
// count, its bounds, and the human-readable rendering. It is driven by
// the pipeline loop and is not safe for concurrent use.
type DelayManager struct {
	fps    int
	min    int
	max    int
	frames int
}

// NewDelayManager builds a manager for a stream at the given rate. A
// maxDelay of 0 derives the bound from the rate, ten seconds of frames.
func NewDelayManager(fps, initial, minDelay, maxDelay int) *DelayManager {
	if fps < 1 {
		fps = 1
	}
	if minDelay < 0 {
		minDelay = 0
	}
	if maxDelay <= 0 {
		maxDelay = fps * 10
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	d := &DelayManager{fps: fps, min: minDelay, max: maxDelay}
	d.frames = d.clamp(initial)
	return d
}

// Set moves the delay to the requested frame count, clamped to the
// bounds, and returns the value actually applied.
func (d *DelayManager) Set(frames int) int {
	d.frames = d.clamp(frames)
	return d.frames
}

// Adjust moves the delay by delta frames, clamped to the bounds, and
// returns the value actually applied.
func (d *DelayManager) Adjust(delta int) int {
	return d.Set(d.frames + delta)
}

// Frames returns the current delay in frames.
func (d *DelayManager) Frames() int {
	return d.frames
}

// DelaySeconds returns the current delay converted to seconds.
func (d *DelayManager) DelaySeconds() float64 {
	return float64(d.frames) / float64(d.fps)
}

// Bounds returns the allowed delay range in frames.
func (d *DelayManager) Bounds() (min, max int) {
	return d.min, d.max
}

// DisplayText renders the delay for operator-facing surfaces.
func (d *DelayManager) DisplayText() string {
	return fmt.Sprintf("Delay: %d frames (%.1fs)", d.frames, d.DelaySeconds())
}

func (d *DelayManager) clamp(frames int) int {
	if frames < d.min {
		return d.min
	}
	if frames > d.max {
		return d.max
	}
	return frames
}
