package history

import (
	"time"

	"github.com/tomw/ptt/pkg/logger"
)

// EventSink records successful transcriptions into a Store. It implements
// the controller's Events interface; everything except results is ignored.
type EventSink struct {
	store  *Store
	logger *logger.Logger
}

// NewEventSink creates an event listener backed by the given store
func NewEventSink(store *Store, log *logger.Logger) *EventSink {
	return &EventSink{
		store:  store,
		logger: log.Named("history"),
	}
}

func (s *EventSink) RecordingStarted()               {}
func (s *EventSink) RecordingStopped(time.Duration)  {}
func (s *EventSink) RecordingTooShort(time.Duration) {}
func (s *EventSink) RecordingError(error)            {}
func (s *EventSink) TranscriptionError(error)        {}

func (s *EventSink) TranscriptionResult(text string, duration time.Duration) {
	if text == "" {
		return
	}
	if _, err := s.store.Insert(text, duration); err != nil {
		s.logger.Error("Failed to record transcript", logger.Error(err))
	}
}
