package controller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomw/ptt/internal/transcription"
	"github.com/tomw/ptt/pkg/logger"
)

// State is the push-to-talk lifecycle state
type State int32

const (
	StateIdle State = iota
	StateRecording
	StateTranscribing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateTranscribing:
		return "transcribing"
	default:
		return "unknown"
	}
}

// Recorder is the capture session the controller drives
type Recorder interface {
	Start() error
	Stop() []int16
}

// Config represents the controller configuration
type Config struct {
	SampleRate     int
	Language       string
	ReleaseTimeout time.Duration // no-signal window treated as trigger release
	MinDuration    time.Duration // recordings shorter than this are discarded
}

// Controller runs the Idle -> Recording -> Transcribing -> Idle cycle driven
// by an external trigger source. Exactly one recording/transcription cycle is
// in flight at a time; trigger signals outside Idle/Recording are ignored.
type Controller struct {
	rec    Recorder
	engine transcription.Engine
	events Events
	config Config
	logger *logger.Logger

	state atomic.Int32
	wg    sync.WaitGroup
}

// New creates a new controller
func New(rec Recorder, engine transcription.Engine, events Events, config Config, log *logger.Logger) *Controller {
	if events == nil {
		events = NopEvents{}
	}
	return &Controller{
		rec:    rec,
		engine: engine,
		events: events,
		config: config,
		logger: log.Named("controller"),
	}
}

// State returns the current lifecycle state
func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
}

// Run consumes trigger signals until the context is cancelled or the source
// closes its channel. On exit any active recording is stopped so the device
// stream is released, and an in-flight transcription is awaited.
func (c *Controller) Run(ctx context.Context, src Source) error {
	signals, err := src.Signals(ctx)
	if err != nil {
		return err
	}
	defer c.shutdown()

	// The release timer fires when an engaged-poll source stops renewing its
	// signal; an explicit Released signal short-circuits it.
	var release *time.Timer
	var releaseC <-chan time.Time
	stopRelease := func() {
		if release != nil {
			if !release.Stop() {
				select {
				case <-release.C:
				default:
				}
			}
			release = nil
			releaseC = nil
		}
	}
	defer stopRelease()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case sig, ok := <-signals:
			if !ok {
				return nil
			}
			switch sig {
			case SignalEngaged:
				if c.State() == StateIdle {
					c.beginRecording()
				}
				if c.State() == StateRecording {
					if release == nil {
						release = time.NewTimer(c.config.ReleaseTimeout)
						releaseC = release.C
					} else {
						if !release.Stop() {
							select {
							case <-release.C:
							default:
							}
						}
						release.Reset(c.config.ReleaseTimeout)
					}
				}
			case SignalReleased:
				if c.State() == StateRecording {
					stopRelease()
					c.finishRecording()
				}
			}

		case <-releaseC:
			release = nil
			releaseC = nil
			if c.State() == StateRecording {
				c.finishRecording()
			}
		}
	}
}

// beginRecording transitions Idle -> Recording. A device failure leaves the
// controller in Idle.
func (c *Controller) beginRecording() {
	if err := c.rec.Start(); err != nil {
		c.logger.Error("Failed to start recording", logger.Error(err))
		c.events.RecordingError(err)
		return
	}
	c.setState(StateRecording)
	c.events.RecordingStarted()
	c.logger.Debug("Recording started")
}

// finishRecording transitions Recording -> Transcribing (or straight back to
// Idle for a too-short take). Transcription runs on a worker goroutine so the
// trigger loop is never blocked.
func (c *Controller) finishRecording() {
	samples := c.rec.Stop()
	duration := sampleDuration(len(samples), c.config.SampleRate)
	c.events.RecordingStopped(duration)
	c.logger.Debug("Recording stopped", logger.Duration("duration", duration))

	if duration < c.config.MinDuration {
		c.setState(StateIdle)
		c.events.RecordingTooShort(duration)
		return
	}

	c.setState(StateTranscribing)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		// Transcription is never cancelled mid-flight; the engine enforces
		// its own request timeout.
		text, err := c.engine.Transcribe(context.Background(), samples, c.config.Language)
		if err != nil {
			c.logger.Error("Transcription failed", logger.Error(err))
			c.events.TranscriptionError(err)
		} else {
			c.events.TranscriptionResult(text, duration)
		}
		c.setState(StateIdle)
	}()
}

// shutdown releases the device stream if a recording is active and waits for
// any in-flight transcription to complete.
func (c *Controller) shutdown() {
	if c.State() == StateRecording {
		_ = c.rec.Stop()
		c.setState(StateIdle)
		c.logger.Info("Recording stopped during shutdown")
	}
	c.wg.Wait()
}

func sampleDuration(samples, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}
