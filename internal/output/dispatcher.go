package output

import (
	"fmt"
	"time"

	"github.com/tomw/ptt/pkg/logger"
)

// Dispatcher routes controller outcomes to the configured sinks and the
// desktop notifier. It implements the controller's Events interface.
type Dispatcher struct {
	sinks    []Sink
	notifier *Notifier
	logger   *logger.Logger
}

// NewDispatcher creates a dispatcher over the given sinks. notifier may be
// nil to disable desktop notifications.
func NewDispatcher(sinks []Sink, notifier *Notifier, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		sinks:    sinks,
		notifier: notifier,
		logger:   log.Named("output"),
	}
}

func (d *Dispatcher) RecordingStarted() {}

func (d *Dispatcher) RecordingStopped(duration time.Duration) {}

func (d *Dispatcher) RecordingTooShort(duration time.Duration) {
	d.logger.Info("Recording too short, discarded",
		logger.Duration("duration", duration))
}

func (d *Dispatcher) RecordingError(err error) {
	d.notifier.Notify("Recording failed: " + err.Error())
}

// TranscriptionResult fans the recognized text out to every sink. Sink
// failures are logged and isolated so one broken destination does not lose
// the text for the others.
func (d *Dispatcher) TranscriptionResult(text string, duration time.Duration) {
	if text == "" {
		d.logger.Info("No speech recognized")
		d.notifier.Notify("No speech recognized")
		return
	}

	for _, sink := range d.sinks {
		if err := sink.Write(text); err != nil {
			d.logger.Error("Sink failed",
				logger.String("sink", sink.Name()),
				logger.Error(err))
		}
	}
	d.notifier.Notify(fmt.Sprintf("Recognized %d characters", len(text)))
}

func (d *Dispatcher) TranscriptionError(err error) {
	d.notifier.Notify("Transcription failed: " + err.Error())
}
