package audio

import (
	"sync"
	"time"

	"github.com/tomw/ptt/pkg/logger"
)

// Default bound on how long Stop waits for a concurrent Start to finish
// opening the device stream before tearing down anyway.
const defaultStreamOpenWait = 2 * time.Second

// Recorder manages a single audio-capture stream and accumulates the blocks
// it delivers. It is safe to Start and Stop from different goroutines while
// the capture callback runs on the device's own goroutine.
//
// Usage:
//
//	rec := NewRecorder(host, cfg, onChunk, log)
//	if err := rec.Start(); err != nil { ... }
//	samples := rec.Stop() // flat 16-bit mono samples, capture order
type Recorder struct {
	host    Host
	cfg     StreamConfig
	onChunk Callback // optional per-chunk observer, runs on the capture goroutine
	logger  *logger.Logger

	// streamOpenWait bounds the Stop-side wait for an in-flight Start.
	streamOpenWait time.Duration

	mu     sync.Mutex
	active bool
	frames [][]int16
	stream Stream
	ready  chan struct{} // closed once this session's stream is open (or failed)
}

// NewRecorder creates a recorder. onChunk may be nil; when set it is invoked
// with a copy of each captured block, and anything it does wrong (including
// panics) is swallowed so the capture goroutine is never disturbed.
func NewRecorder(host Host, cfg StreamConfig, onChunk Callback, log *logger.Logger) *Recorder {
	return &Recorder{
		host:           host,
		cfg:            cfg,
		onChunk:        onChunk,
		logger:         log.Named("recorder"),
		streamOpenWait: defaultStreamOpenWait,
	}
}

// Active reports whether a capture session is currently running
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Start begins a new capture session. Any session still active is stopped
// first and its buffer discarded. Safe to call from a goroutine other than
// the one that will call Stop.
//
// Returns an error wrapping ErrDeviceUnavailable or ErrInvalidConfig when
// the stream cannot be opened.
func (r *Recorder) Start() error {
	r.Stop() // last writer wins; the previous session's buffer is dropped

	r.mu.Lock()
	r.frames = nil
	r.active = true
	ready := make(chan struct{})
	r.ready = ready
	r.mu.Unlock()

	// Device open happens outside the lock: it may block on the driver and
	// the capture callback needs the lock as soon as delivery starts.
	stream, err := r.host.OpenInputStream(r.cfg, r.capture)
	if err == nil {
		if startErr := stream.Start(); startErr != nil {
			_ = stream.Close()
			err = startErr
		}
	}
	if err != nil {
		r.mu.Lock()
		r.active = false
		if r.ready == ready {
			r.ready = nil
		}
		r.mu.Unlock()
		close(ready)
		return err
	}

	r.mu.Lock()
	if !r.active || r.ready != ready {
		// A Stop raced us between flag set and stream open. The session is
		// already over; release the stream rather than leak it.
		r.mu.Unlock()
		close(ready)
		if closeErr := stream.Close(); closeErr != nil {
			r.logger.Warn("Failed to close superseded stream", logger.Error(closeErr))
		}
		return nil
	}
	r.stream = stream
	r.mu.Unlock()
	close(ready)

	r.logger.Debug("Capture stream started",
		logger.Int("sample_rate", r.cfg.SampleRate),
		logger.Int("block_size", r.cfg.BlockSize))
	return nil
}

// Stop ends the current session and returns every sample captured since the
// matching Start, flattened in delivery order. Returns an empty slice when
// nothing was captured, including when no Start preceded it; repeated calls
// return empty. It never blocks longer than the stream-open wait bound.
func (r *Recorder) Stop() []int16 {
	r.mu.Lock()
	r.active = false
	ready := r.ready
	r.ready = nil
	r.mu.Unlock()

	if ready != nil {
		// A Start issued from another goroutine may still be opening the
		// stream; give it a bounded window so we do not tear down mid-open.
		select {
		case <-ready:
		case <-time.After(r.streamOpenWait):
			r.logger.Warn("Timed out waiting for stream open, proceeding with teardown")
		}
	}

	r.mu.Lock()
	stream := r.stream
	r.stream = nil
	frames := r.frames
	r.frames = nil
	r.mu.Unlock()

	if stream != nil {
		if err := stream.Close(); err != nil {
			r.logger.Warn("Failed to close capture stream", logger.Error(err))
		}
	}

	// Flattening happens here, off the capture goroutine.
	total := 0
	for _, f := range frames {
		total += len(f)
	}
	out := make([]int16, 0, total)
	for _, f := range frames {
		out = append(out, f...)
	}
	return out
}

// capture runs on the device's capture goroutine. The critical section is
// only the active check plus the append; the observer runs outside it on an
// independent copy.
func (r *Recorder) capture(block []int16) {
	chunk := make([]int16, len(block))
	copy(chunk, block)

	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return
	}
	r.frames = append(r.frames, chunk)
	r.mu.Unlock()

	if r.onChunk != nil {
		obs := make([]int16, len(chunk))
		copy(obs, chunk)
		r.observe(obs)
	}
}

// observe invokes the per-chunk observer, swallowing panics so a misbehaving
// observer cannot crash the capture goroutine.
func (r *Recorder) observe(chunk []int16) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("Chunk observer panicked", logger.Any("panic", rec))
		}
	}()
	r.onChunk(chunk)
}
