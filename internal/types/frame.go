package types

import "time"

// Frame is one video frame moving through the pipeline.
type Frame struct {
	// Seq increments monotonically per source.
	Seq uint64
	// Timestamp is the capture (or synthesis) time.
	Timestamp time.Time
	Width     int
	Height    int
	// Data holds packed row-major RGB24, len = Width*Height*3.
	Data []byte
	// SourceStream names the producing source ("mock", "replay").
	SourceStream string
	// TraceID follows the frame through logs and emitted events.
	TraceID string
}

// FrameMeta is the loggable subset of a frame, pixel payload stripped.
type FrameMeta struct {
	Seq          uint64
	Timestamp    time.Time
	Width        int
	Height       int
	Format       string // "RGB24"
	SourceStream string
}

// Meta strips the pixel payload for logging and tracing.
func (f *Frame) Meta() FrameMeta {
	return FrameMeta{
		Seq:          f.Seq,
		Timestamp:    f.Timestamp,
		Width:        f.Width,
		Height:       f.Height,
		Format:       "RGB24",
		SourceStream: f.SourceStream,
	}
}

// StreamStats is the common counter set every frame source exposes.
type StreamStats struct {
	// FrameCount is the total delivered downstream
	FrameCount uint64
	// FramesDropped is the number of frames discarded because the
	// consumer was not keeping up (drop, never queue)
	FramesDropped uint64
	// DropRate is the percentage of generated frames dropped (0-100)
	DropRate float64
	// FPSTarget is the configured frame rate
	FPSTarget int
	// FPSReal is the measured delivery rate since Start
	FPSReal float64
	// SourceStream identifies the stream (mock, replay)
	SourceStream string
	// Resolution as "WIDTHxHEIGHT"
	Resolution string
	// IsConnected reports whether the source is currently producing
	IsConnected bool
}
