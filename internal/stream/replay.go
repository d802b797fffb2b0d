package stream

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/e7canasta/motion-sensor/internal/types"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// ReplayConfig describes a raw capture to play back.
type ReplayConfig struct {
	// Path to a file of concatenated RGB24 frames, no header
	Path string
	// Width and Height of every frame in the file
	Width  int
	Height int
	// FPS is the playback rate (0 falls back to DefaultFPS)
	FPS int
	// Loop restarts playback at end of file instead of stopping
	Loop bool
	// Source label attached to emitted frames, defaults to "replay"
	Source string
	// FS defaults to the OS filesystem
	FS afero.Fs
}

// ReplayStream replays a raw RGB24 capture file at a fixed rate. Each
// emitted frame carries a fresh copy of the pixel data, so consumers
// may hold frames across loop boundaries.
type ReplayStream struct {
	cfg       ReplayConfig
	frameSize int

	framesCh  chan types.Frame
	stopCh    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	mu            sync.RWMutex
	seq           uint64
	framesEmitted uint64
	framesDropped uint64
	loops         uint64
	isRunning     bool
	startTime     time.Time
}

// NewReplayStream validates the capture file and prepares a stream over
// it. The file length must be a positive multiple of width*height*3.
func NewReplayStream(cfg ReplayConfig) (*ReplayStream, error) {
	if cfg.FS == nil {
		cfg.FS = afero.NewOsFs()
	}
	if cfg.FPS <= 0 {
		cfg.FPS = DefaultFPS
	}
	if cfg.Source == "" {
		cfg.Source = "replay"
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid replay dimensions %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("replay path is required")
	}

	frameSize := cfg.Width * cfg.Height * 3

	info, err := cfg.FS.Stat(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat replay file: %w", err)
	}
	if info.Size() == 0 || info.Size()%int64(frameSize) != 0 {
		return nil, fmt.Errorf("replay file %s: size %d is not a multiple of frame size %d",
			cfg.Path, info.Size(), frameSize)
	}

	return &ReplayStream{
		cfg:       cfg,
		frameSize: frameSize,
		framesCh:  make(chan types.Frame, frameChanCapacity),
		stopCh:    make(chan struct{}),
	}, nil
}

// Start begins playback
func (r *ReplayStream) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.isRunning {
		r.mu.Unlock()
		return fmt.Errorf("stream already running")
	}
	r.isRunning = true
	r.startTime = time.Now()
	r.mu.Unlock()

	data, err := afero.ReadFile(r.cfg.FS, r.cfg.Path)
	if err != nil {
		r.mu.Lock()
		r.isRunning = false
		r.mu.Unlock()
		return fmt.Errorf("failed to read replay file: %w", err)
	}

	frameCount := len(data) / r.frameSize
	slog.Info("replay stream starting",
		"path", r.cfg.Path,
		"frames", frameCount,
		"width", r.cfg.Width,
		"height", r.cfg.Height,
		"fps", r.cfg.FPS,
		"loop", r.cfg.Loop,
	)

	r.wg.Add(1)
	go r.playback(ctx, data, frameCount)

	return nil
}

// Frames returns the frames channel
func (r *ReplayStream) Frames() <-chan types.Frame {
	return r.framesCh
}

// Stop halts playback. Safe to call after the file has run out.
func (r *ReplayStream) Stop() error {
	r.mu.Lock()
	if !r.isRunning && r.framesEmitted == 0 {
		r.mu.Unlock()
		return nil
	}
	alreadyStopped := !r.isRunning
	r.isRunning = false
	r.mu.Unlock()

	if !alreadyStopped {
		close(r.stopCh)
	}
	r.wg.Wait()
	r.closeFrames()

	slog.Info("replay stream stopped",
		"frames_emitted", r.framesEmitted,
		"loops", r.loops,
		"duration", time.Since(r.startTime),
	)

	return nil
}

// Stats returns stream statistics
func (r *ReplayStream) Stats() types.StreamStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var fpsReal float64
	if r.framesEmitted > 0 {
		elapsed := time.Since(r.startTime).Seconds()
		if elapsed > 0 {
			fpsReal = float64(r.framesEmitted) / elapsed
		}
	}

	return types.StreamStats{
		FrameCount:    r.framesEmitted,
		FramesDropped: r.framesDropped,
		DropRate:      dropRate(r.framesEmitted, r.framesDropped),
		FPSTarget:     r.cfg.FPS,
		FPSReal:       fpsReal,
		SourceStream:  r.cfg.Source,
		Resolution:    fmt.Sprintf("%dx%d", r.cfg.Width, r.cfg.Height),
		IsConnected:   r.isRunning,
	}
}

func (r *ReplayStream) closeFrames() {
	r.closeOnce.Do(func() {
		close(r.framesCh)
	})
}

// playback emits frames at the configured rate. Without Loop the channel
// closes after the last frame so consumers observe end of input.
func (r *ReplayStream) playback(ctx context.Context, data []byte, frameCount int) {
	defer r.wg.Done()

	ticker := time.NewTicker(time.Second / time.Duration(r.cfg.FPS))
	defer ticker.Stop()

	idx := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			frame := r.frameAt(data, idx)
			select {
			case r.framesCh <- frame:
				r.mu.Lock()
				r.framesEmitted++
				r.mu.Unlock()
			default:
				r.mu.Lock()
				r.framesDropped++
				r.mu.Unlock()
			}

			idx++
			if idx < frameCount {
				continue
			}
			if !r.cfg.Loop {
				slog.Info("replay finished", "frames_emitted", r.framesEmitted)
				r.mu.Lock()
				r.isRunning = false
				r.mu.Unlock()
				r.closeFrames()
				return
			}
			idx = 0
			r.mu.Lock()
			r.loops++
			loops := r.loops
			r.mu.Unlock()
			slog.Debug("replay looped", "loop", loops)
		}
	}
}

func (r *ReplayStream) frameAt(data []byte, idx int) types.Frame {
	r.mu.Lock()
	seq := r.seq
	r.seq++
	r.mu.Unlock()

	pix := make([]byte, r.frameSize)
	copy(pix, data[idx*r.frameSize:(idx+1)*r.frameSize])

	return types.Frame{
		Seq:          seq,
		Timestamp:    time.Now(),
		Width:        r.cfg.Width,
		Height:       r.cfg.Height,
		Data:         pix,
		SourceStream: r.cfg.Source,
		TraceID:      uuid.New().String(),
	}
}
