package controller

import (
	"context"
	"time"
)

// Signal is a logical trigger event
type Signal int

const (
	// SignalEngaged means the trigger key/button is held. Poll-based sources
	// renew it while the trigger stays engaged.
	SignalEngaged Signal = iota
	// SignalReleased means the trigger was explicitly let go
	SignalReleased
)

// Source delivers trigger signals. The channel is closed when the source is
// exhausted (e.g. the user quit).
type Source interface {
	Signals(ctx context.Context) (<-chan Signal, error)
}

// Events receives controller lifecycle outcomes. Implementations must not
// block: they are invoked from the trigger loop and the transcription worker.
type Events interface {
	RecordingStarted()
	RecordingStopped(duration time.Duration)
	RecordingTooShort(duration time.Duration)
	RecordingError(err error)
	TranscriptionResult(text string, duration time.Duration)
	TranscriptionError(err error)
}

// NopEvents discards all events
type NopEvents struct{}

func (NopEvents) RecordingStarted()                         {}
func (NopEvents) RecordingStopped(time.Duration)            {}
func (NopEvents) RecordingTooShort(time.Duration)           {}
func (NopEvents) RecordingError(error)                      {}
func (NopEvents) TranscriptionResult(string, time.Duration) {}
func (NopEvents) TranscriptionError(error)                  {}

// Multi fans controller events out to several listeners in order
func Multi(listeners ...Events) Events {
	return multiEvents(listeners)
}

type multiEvents []Events

func (m multiEvents) RecordingStarted() {
	for _, e := range m {
		e.RecordingStarted()
	}
}

func (m multiEvents) RecordingStopped(d time.Duration) {
	for _, e := range m {
		e.RecordingStopped(d)
	}
}

func (m multiEvents) RecordingTooShort(d time.Duration) {
	for _, e := range m {
		e.RecordingTooShort(d)
	}
}

func (m multiEvents) RecordingError(err error) {
	for _, e := range m {
		e.RecordingError(err)
	}
}

func (m multiEvents) TranscriptionResult(text string, d time.Duration) {
	for _, e := range m {
		e.TranscriptionResult(text, d)
	}
}

func (m multiEvents) TranscriptionError(err error) {
	for _, e := range m {
		e.TranscriptionError(err)
	}
}
