// Package motion extracts visual motion by comparing frames across a time window.
//
// # Overview
//
// Extractor implements frame-delay differencing for video streams: every incoming
// frame is buffered in a fixed-capacity FIFO window, and extraction compares the
// newest frame against the oldest one. The key design principle is:
//
//	"Static scenes disappear. Only change survives."
//
// Pixels that did not change between the two frames land on neutral mid-gray,
// while changed pixels are brightened in proportion to how much they moved.
//
// # Basic Usage
//
// Create an extractor, feed frames, read results:
//
//	ext, err := motion.New(motion.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for frame := range source {
//	    if err := ext.AddFrame(frame); err != nil {
//	        continue
//	    }
//	    if out := ext.ExtractMotion(); out != nil {
//	        render(out)
//	    }
//	}
//
// # Warm-Up Semantics
//
// ExtractMotion() returns nil until the window holds at least two frames:
//
//	out := ext.ExtractMotion()  // nil during warm-up, never an error
//
// A nil result is ordinary flow control, not a failure. Hosts skip the tick
// and keep feeding.
//
// # Runtime Tuning
//
// The delay window can be resized while frames are flowing:
//
//	ext.SetDelayFrames(90)  // keeps the most recent frames
//	n := ext.DelayFrames()  // current window span in frames
//
// Shrinking discards the oldest frames first; the freshest content always
// survives a resize.
//
// # Observability
//
// Stats provide a consistent snapshot of the window and its counters:
//
//	stats := ext.Stats()
//	fmt.Printf("Buffered: %d/%d, Added: %d, Evicted: %d\n",
//	    stats.Buffered, stats.Capacity, stats.FramesAdded, stats.FramesEvicted)
//
// Every frame ever accepted is either still buffered or counted as evicted.
//
// # Ownership
//
// AddFrame copies the frame before buffering, so callers may reuse their
// pixel buffers immediately. ExtractMotion returns a freshly allocated frame
// owned by the caller.
//
// # Example
//
// See examples/basic/ for a complete working example feeding synthetic frames
// through an extractor and printing motion energy per tick.
package motion
