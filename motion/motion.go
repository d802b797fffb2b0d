package motion

import (
	"github.com/e7canasta/motion-sensor/motion/internal/extract"
)

// Frame is re-exported from the internal package to avoid import cycles.
// See internal/extract/frame.go for full documentation.
type Frame = extract.Frame

// Config is re-exported from the internal package to avoid import cycles.
// See internal/extract/extractor.go for full documentation.
type Config = extract.Config

// ExtractorStats is re-exported from the internal package to avoid import
// cycles. See internal/extract/extractor.go for full documentation.
type ExtractorStats = extract.ExtractorStats

// Extractor buffers frames in a delay window and renders the difference
// between the newest and oldest buffered frame.
//
// Lifecycle: New() → AddFrame()/ExtractMotion() → optional SetDelayFrames()
// or Reset() at any point. An Extractor is not safe for concurrent use;
// hosts that share one across goroutines serialize access themselves.
//
// Implementation is in internal/extract (hidden from clients).
type Extractor = extract.Extractor

// Channels is the number of interleaved samples per pixel (RGB).
const Channels = extract.Channels

// Tuning bounds and defaults.
const (
	MaxDelaySeconds      = extract.MaxDelaySeconds
	DefaultFPS           = extract.DefaultFPS
	DefaultBlendAlpha    = extract.DefaultBlendAlpha
	DefaultDiffThreshold = extract.DefaultDiffThreshold
	DefaultDelayFrames   = extract.DefaultDelayFrames
)

// Sentinel errors returned by New and AddFrame. Wrapped values carry the
// offending parameter, so match with errors.Is.
var (
	ErrInvalidParameter = extract.ErrInvalidParameter
	ErrInvalidFrame     = extract.ErrInvalidFrame
)

// New builds an Extractor from cfg. The window capacity is derived from
// DelaySeconds and FPS at construction time; it fails with
// ErrInvalidParameter if cfg is out of range.
func New(cfg Config) (*Extractor, error) {
	return extract.New(cfg)
}

// DefaultConfig returns the tuning used when a host has no opinion:
// a five-frame delay at 30 FPS with half-strength highlights.
func DefaultConfig() Config {
	return extract.DefaultConfig()
}

// NewFrame allocates a zeroed frame with the given extent.
func NewFrame(width, height int) *Frame {
	return extract.NewFrame(width, height)
}
