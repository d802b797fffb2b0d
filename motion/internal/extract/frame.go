package extract

// Channels is the number of color channels in a Frame. Frames are packed
// 8-bit RGB; there is no alpha plane.
const Channels = 3

// Frame is a single video frame: a packed, row-major grid of 8-bit RGB
// samples. The pixel at (x, y) starts at Pix[(y*Width+x)*Channels].
//
// Frames handed to an Extractor are copied on ingest, so the caller may
// reuse its buffer immediately. Frames returned by ExtractMotion are owned
// by the caller; treat them as one-shot snapshots and Clone() anything that
// must outlive the next pipeline step.
type Frame struct {
	// Width in pixels.
	Width int
	// Height in pixels.
	Height int
	// Pix holds the samples in R, G, B order, len = Width*Height*Channels.
	Pix []uint8
}

// NewFrame allocates a zeroed frame of the given dimensions.
func NewFrame(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*Channels),
	}
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	c := &Frame{Width: f.Width, Height: f.Height, Pix: make([]uint8, len(f.Pix))}
	copy(c.Pix, f.Pix)
	return c
}

// Empty reports whether the frame is nil, has zero spatial extent, or has a
// pixel buffer that does not match its dimensions.
func (f *Frame) Empty() bool {
	return f == nil || f.Width <= 0 || f.Height <= 0 ||
		len(f.Pix) != f.Width*f.Height*Channels
}

// PixOffset returns the index of the first element of Pix that corresponds
// to the pixel at (x, y).
func (f *Frame) PixOffset(x, y int) int {
	return (y*f.Width + x) * Channels
}

// RGBAt returns the channel samples of the pixel at (x, y).
func (f *Frame) RGBAt(x, y int) (r, g, b uint8) {
	i := f.PixOffset(x, y)
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// SetRGB sets the pixel at (x, y).
func (f *Frame) SetRGB(x, y int, r, g, b uint8) {
	i := f.PixOffset(x, y)
	f.Pix[i], f.Pix[i+1], f.Pix[i+2] = r, g, b
}
