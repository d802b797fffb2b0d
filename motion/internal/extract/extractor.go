package extract

import (
	"errors"
	"fmt"
	"math"
)

// Validation bounds and stock tuning values for Config.
const (
	// MaxDelaySeconds caps the configurable delay window.
	MaxDelaySeconds = 10.0

	DefaultFPS           = 30
	DefaultBlendAlpha    = 0.5
	DefaultDiffThreshold = 25
	DefaultDelayFrames   = 5
)

// Sentinel errors. Returned errors wrap these with the offending values;
// match with errors.Is.
var (
	// ErrInvalidParameter reports a construction parameter outside its
	// documented range.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrInvalidFrame reports a nil, empty, or mis-sized input frame.
	ErrInvalidFrame = errors.New("invalid frame")
)

// Config carries the construction parameters of an Extractor.
type Config struct {
	// DelaySeconds is the time offset between the compared frames, in
	// [0, MaxDelaySeconds]. The frame window holds
	// floor(DelaySeconds*FPS)+1 frames, never fewer than one.
	DelaySeconds float64
	// FPS is the frame rate of the feeding stream, >= 1. Sources that
	// cannot report a rate must normalize it before construction.
	FPS int
	// BlendAlpha scales how strongly motion highlights are layered onto
	// the neutral backdrop, in (0, 1].
	BlendAlpha float64
	// DiffThreshold is the gray-difference cut-off above which a pixel
	// counts as changed. Zero is a legal, hair-trigger setting;
	// DefaultConfig uses DefaultDiffThreshold.
	DiffThreshold uint8
}

// DefaultConfig returns the stock tuning: five frames of delay at 30 fps,
// half-strength highlights, threshold 25.
func DefaultConfig() Config {
	return Config{
		DelaySeconds:  float64(DefaultDelayFrames) / float64(DefaultFPS),
		FPS:           DefaultFPS,
		BlendAlpha:    DefaultBlendAlpha,
		DiffThreshold: DefaultDiffThreshold,
	}
}

// Validate checks cfg against the ranges documented on Config.
func (c Config) Validate() error {
	if c.DelaySeconds < 0 || c.DelaySeconds > MaxDelaySeconds {
		return fmt.Errorf("delay_seconds %.3f out of range [0, %.0f]: %w",
			c.DelaySeconds, MaxDelaySeconds, ErrInvalidParameter)
	}
	if c.BlendAlpha <= 0 || c.BlendAlpha > 1 {
		return fmt.Errorf("blend_alpha %.3f out of range (0, 1]: %w",
			c.BlendAlpha, ErrInvalidParameter)
	}
	if c.FPS < 1 {
		return fmt.Errorf("fps %d must be >= 1: %w", c.FPS, ErrInvalidParameter)
	}
	return nil
}

// ExtractorStats is a point-in-time snapshot of an Extractor.
//
// Counter conservation: FramesAdded == Buffered + FramesEvicted holds after
// any AddFrame sequence (Reset and shrinking SetDelayFrames move live frames
// to FramesEvicted), and Extractions == EmptyResults + produced frames.
type ExtractorStats struct {
	FramesAdded    uint64
	FramesRejected uint64
	FramesEvicted  uint64
	Extractions    uint64
	EmptyResults   uint64

	Buffered    int
	Capacity    int
	DelayFrames int

	DelaySeconds  float64
	BlendAlpha    float64
	DiffThreshold uint8
}

// Extractor turns a live frame stream into a motion-only signal by
// compositing each frame against one buffered DelayFrames() earlier:
// static content renders as mid-gray, changed regions as the raw pixel
// difference scaled by BlendAlpha.
//
// It is built for single-threaded sequential use, one AddFrame →
// ExtractMotion pipeline driven by one loop, and has no internal locking.
// Hosts with concurrent collaborators must serialize calls, e.g. by
// processing delay updates as messages in the ingest loop.
type Extractor struct {
	cfg  Config
	ring *frameRing
	lut  [256]uint8 // round(i*BlendAlpha) per highlight magnitude

	framesAdded    uint64
	framesRejected uint64
	framesEvicted  uint64
	extractions    uint64
	emptyResults   uint64
}

// New creates an Extractor with an empty frame window of capacity
// floor(cfg.DelaySeconds*cfg.FPS)+1.
func New(cfg Config) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	capacity := int(math.Floor(cfg.DelaySeconds*float64(cfg.FPS))) + 1
	if capacity < 1 {
		capacity = 1
	}
	return &Extractor{
		cfg:  cfg,
		ring: newFrameRing(capacity),
		lut:  blendLUT(cfg.BlendAlpha),
	}, nil
}

// AddFrame stores an owned copy of f at the tail of the window, evicting
// the oldest frame first when the window is full. The caller keeps
// ownership of f and may reuse its buffer immediately after the call.
//
// A rejected frame leaves the window untouched; the session continues.
func (e *Extractor) AddFrame(f *Frame) error {
	if f.Empty() {
		e.framesRejected++
		return fmt.Errorf("frame must be non-nil with positive extent: %w", ErrInvalidFrame)
	}
	if last := e.ring.newest(); last != nil && (last.Width != f.Width || last.Height != f.Height) {
		e.framesRejected++
		return fmt.Errorf("frame %dx%d does not match buffered %dx%d: %w",
			f.Width, f.Height, last.Width, last.Height, ErrInvalidFrame)
	}
	if e.ring.push(f.Clone()) {
		e.framesEvicted++
	}
	e.framesAdded++
	return nil
}

// ExtractMotion composites the newest buffered frame against the oldest
// one and returns the motion frame, or nil while fewer than two frames are
// buffered. The window is never modified: repeated calls between AddFrame
// calls return equal results. The returned frame is owned by the caller.
func (e *Extractor) ExtractMotion() *Frame {
	e.extractions++
	if e.ring.len() < 2 {
		e.emptyResults++
		return nil
	}
	current := e.ring.newest()
	delayed := e.ring.oldest()
	out := NewFrame(current.Width, current.Height)
	extractPixels(out, current, delayed, e.cfg.DiffThreshold, &e.lut)
	return out
}

// Reset drops every buffered frame. Configuration, including the window
// capacity, is untouched.
func (e *Extractor) Reset() {
	e.framesEvicted += uint64(e.ring.clear())
}

// SetDelayFrames resizes the window to hold n+1 frames, keeping the
// buffered frames in arrival order; when shrinking, the oldest surplus is
// dropped so only the most recent n+1 frames survive. DelaySeconds is
// recomputed as n/FPS. Negative n is treated as 0, and setting the current
// delay is a no-op. Callers clamp n to their own range, typically
// [0, FPS*10].
func (e *Extractor) SetDelayFrames(n int) {
	if n < 0 {
		n = 0
	}
	if n+1 == e.ring.cap() {
		return
	}
	e.framesEvicted += uint64(e.ring.resize(n + 1))
	e.cfg.DelaySeconds = float64(n) / float64(e.cfg.FPS)
}

// DelayFrames returns the current delay expressed in frames: the window
// capacity minus one.
func (e *Extractor) DelayFrames() int {
	return e.ring.cap() - 1
}

// Stats returns a snapshot of the extractor's counters and configuration.
func (e *Extractor) Stats() ExtractorStats {
	return ExtractorStats{
		FramesAdded:    e.framesAdded,
		FramesRejected: e.framesRejected,
		FramesEvicted:  e.framesEvicted,
		Extractions:    e.extractions,
		EmptyResults:   e.emptyResults,
		Buffered:       e.ring.len(),
		Capacity:       e.ring.cap(),
		DelayFrames:    e.ring.cap() - 1,
		DelaySeconds:   e.cfg.DelaySeconds,
		BlendAlpha:     e.cfg.BlendAlpha,
		DiffThreshold:  e.cfg.DiffThreshold,
	}
}
