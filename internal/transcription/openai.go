package transcription

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/tomw/ptt/internal/audio"
	"github.com/tomw/ptt/pkg/logger"
)

// OpenAIEngine transcribes utterances through the OpenAI audio transcription
// API (whisper-compatible models).
type OpenAIEngine struct {
	client     openai.Client
	model      string
	sampleRate int
	logger     *logger.Logger
}

// NewOpenAIEngine creates a new OpenAI transcription engine
func NewOpenAIEngine(cfg Config, log *logger.Logger) *OpenAIEngine {
	if cfg.APIKey == "" {
		log.Warn("OpenAI API key is empty - transcription requests will fail")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.TimeoutSeconds > 0 {
		opts = append(opts, option.WithRequestTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second))
	}

	return &OpenAIEngine{
		client:     openai.NewClient(opts...),
		model:      cfg.Model,
		sampleRate: cfg.SampleRate,
		logger:     log.Named("openai-engine"),
	}
}

// Transcribe uploads the utterance as a WAV file and returns the recognized
// text. An empty sample buffer short-circuits to an empty result.
func (e *OpenAIEngine) Transcribe(ctx context.Context, samples []int16, language string) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}

	wavData := audio.EncodeWAV(samples, e.sampleRate, 1)

	params := openai.AudioTranscriptionNewParams{
		Model: openai.AudioModel(e.model),
		File:  openai.File(bytes.NewReader(wavData), "audio.wav", "audio/wav"),
	}
	if language != "" {
		params.Language = openai.String(language)
	}

	start := time.Now()
	resp, err := e.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", &Error{Reason: "openai request failed", Err: err}
	}

	e.logger.Debug("Transcription completed",
		logger.Int("samples", len(samples)),
		logger.Duration("elapsed", time.Since(start)))
	return strings.TrimSpace(resp.Text), nil
}
