package stream

import (
	"context"

	"github.com/e7canasta/motion-sensor/internal/types"
)

const (
	// DefaultFPS is used when a source is configured without a rate.
	DefaultFPS = 30

	// frameChanCapacity bounds the delivery channel. When the consumer
	// falls behind, new frames are dropped rather than queued so the
	// pipeline always sees recent frames.
	frameChanCapacity = 10
)

// Source is a provider of video frames. Implementations own a delivery
// channel that stays open until Stop (or end of input) and must never
// block on a slow consumer.
type Source interface {
	// Start begins producing frames
	Start(ctx context.Context) error
	// Frames returns the delivery channel
	Frames() <-chan types.Frame
	// Stop halts production and closes the delivery channel
	Stop() error
	// Stats returns delivery statistics
	Stats() types.StreamStats
}

// dropRate converts delivered/dropped counters to a 0-100 percentage.
func dropRate(delivered, dropped uint64) float64 {
	total := delivered + dropped
	if total == 0 {
		return 0
	}
	return float64(dropped) / float64(total) * 100.0
}
