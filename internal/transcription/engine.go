package transcription

import (
	"context"
	"fmt"

	"github.com/tomw/ptt/pkg/logger"
)

// Engine converts one complete recorded utterance to text. Implementations
// receive flat 16-bit signed mono samples at the configured sample rate and
// return UTF-8 text, possibly empty when no speech was recognized.
type Engine interface {
	Transcribe(ctx context.Context, samples []int16, language string) (string, error)
}

// Config represents the configuration for the transcription service
type Config struct {
	Backend        string // "openai" or "http"
	APIKey         string
	Model          string
	Endpoint       string // http backend only
	SampleRate     int
	TimeoutSeconds int
	MaxRetries     int // http backend only
	RetryBackoffMs int // http backend, doubled per attempt
}

// Error reports a transcription failure with a human-readable reason
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transcription failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("transcription failed: %s", e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an engine for the configured backend
func New(cfg Config, log *logger.Logger) (Engine, error) {
	switch cfg.Backend {
	case "openai":
		return NewOpenAIEngine(cfg, log), nil
	case "http":
		return NewHTTPEngine(cfg, log)
	default:
		return nil, fmt.Errorf("unknown transcription backend: %s", cfg.Backend)
	}
}
