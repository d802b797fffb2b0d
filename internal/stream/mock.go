package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/e7canasta/motion-sensor/internal/types"
	"github.com/google/uuid"
)

// Pattern values for generated frames. The block is bright enough
// against the backdrop to register as motion after thresholding.
const (
	mockBackgroundGray = 0x60 // 96
	mockBlockGray      = 0xC8 // 200
)

// MockStream generates synthetic frames: a bright block sweeping
// horizontally across a flat gray background. Useful for development
// without a camera and for exercising the pipeline in tests.
type MockStream struct {
	width, height int
	fps           int
	source        string

	framesCh chan types.Frame
	stopCh   chan struct{}
	wg       sync.WaitGroup

	mu      sync.RWMutex
	seq     uint64
	emitted uint64
	dropped uint64
	running bool
	since   time.Time
}

// NewMockStream creates a mock stream provider. An fps of 0 or less
// falls back to DefaultFPS, an empty source label to "mock".
func NewMockStream(width, height, fps int, source string) *MockStream {
	if fps <= 0 {
		fps = DefaultFPS
	}
	if source == "" {
		source = "mock"
	}
	return &MockStream{
		width:    width,
		height:   height,
		fps:      fps,
		source:   source,
		framesCh: make(chan types.Frame, frameChanCapacity),
		stopCh:   make(chan struct{}),
	}
}

// Start launches the generator goroutine.
func (m *MockStream) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("stream already running")
	}
	m.running = true
	m.since = time.Now()
	m.mu.Unlock()

	slog.Info("synthetic stream starting",
		"resolution", fmt.Sprintf("%dx%d", m.width, m.height),
		"fps", m.fps,
		"source", m.source,
	)

	m.wg.Add(1)
	go m.generate(ctx)
	return nil
}

// Frames returns the delivery channel.
func (m *MockStream) Frames() <-chan types.Frame {
	return m.framesCh
}

// Stop halts generation and closes the delivery channel. Calling Stop
// on a stopped stream is a no-op.
func (m *MockStream) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	m.mu.Unlock()

	close(m.stopCh)
	m.wg.Wait()
	close(m.framesCh)

	slog.Info("synthetic stream stopped",
		"emitted", m.emitted,
		"dropped", m.dropped,
		"ran_for", time.Since(m.since),
	)
	return nil
}

// Stats returns delivery statistics.
func (m *MockStream) Stats() types.StreamStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rate float64
	if m.running && m.emitted > 0 {
		if elapsed := time.Since(m.since).Seconds(); elapsed > 0 {
			rate = float64(m.emitted) / elapsed
		}
	}

	return types.StreamStats{
		FrameCount:    m.emitted,
		FramesDropped: m.dropped,
		DropRate:      dropRate(m.emitted, m.dropped),
		FPSTarget:     m.fps,
		FPSReal:       rate,
		SourceStream:  m.source,
		Resolution:    fmt.Sprintf("%dx%d", m.width, m.height),
		IsConnected:   m.running,
	}
}

// generate ticks at the target rate and paints one frame per tick.
// Delivery never blocks: a full channel means the frame is dropped.
func (m *MockStream) generate(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(time.Second / time.Duration(m.fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.mu.Lock()
			seq := m.seq
			m.seq++
			m.mu.Unlock()

			select {
			case m.framesCh <- m.paint(seq):
				m.mu.Lock()
				m.emitted++
				m.mu.Unlock()
			default:
				m.mu.Lock()
				m.dropped++
				m.mu.Unlock()
			}
		}
	}
}

// paint renders the pattern for the given sequence number. The block
// advances two pixels per frame and wraps, so consecutive frames always
// differ.
func (m *MockStream) paint(seq uint64) types.Frame {
	data := make([]byte, m.width*m.height*3)
	for i := range data {
		data[i] = mockBackgroundGray
	}

	blockW := max(m.width/8, 1)
	blockH := max(m.height/8, 1)

	x0 := 0
	if span := m.width - blockW; span > 0 {
		x0 = int(seq*2) % span
	}
	y0 := (m.height - blockH) / 2

	for y := y0; y < y0+blockH && y < m.height; y++ {
		row := (y*m.width + x0) * 3
		for i := 0; i < blockW*3; i++ {
			data[row+i] = mockBlockGray
		}
	}

	return types.Frame{
		Seq:          seq,
		Timestamp:    time.Now(),
		Width:        m.width,
		Height:       m.height,
		Data:         data,
		SourceStream: m.source,
		TraceID:      uuid.New().String(),
	}
}
