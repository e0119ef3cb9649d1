package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/http2"

	"github.com/tomw/ptt/internal/audio"
	"github.com/tomw/ptt/pkg/logger"
)

// HTTPEngine uploads utterances to a whisper-compatible HTTP endpoint as
// multipart WAV and retries transient failures with exponential backoff.
type HTTPEngine struct {
	endpoint   string
	model      string
	sampleRate int
	maxRetries int
	backoff    time.Duration
	httpClient *http.Client
	logger     *logger.Logger
}

// NewHTTPEngine creates an engine for a custom ASR endpoint
func NewHTTPEngine(cfg Config, log *logger.Logger) (*HTTPEngine, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("http transcription backend requires an endpoint")
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, fmt.Errorf("failed to configure http2 transport: %w", err)
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	return &HTTPEngine{
		endpoint:   cfg.Endpoint,
		model:      cfg.Model,
		sampleRate: cfg.SampleRate,
		maxRetries: maxRetries,
		backoff:    time.Duration(cfg.RetryBackoffMs) * time.Millisecond,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		logger: log.Named("http-engine"),
	}, nil
}

// transcriptionResponse is the whisper-compatible response shape
type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads the utterance and returns the recognized text
func (e *HTTPEngine) Transcribe(ctx context.Context, samples []int16, language string) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}

	wavData := audio.EncodeWAV(samples, e.sampleRate, 1)

	var lastErr error
	backoff := e.backoff
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		text, err := e.upload(ctx, wavData, language)
		if err == nil {
			return text, nil
		}
		lastErr = err
		e.logger.Warn("Upload attempt failed",
			logger.Int("attempt", attempt),
			logger.Error(err))

		if attempt == e.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return "", &Error{Reason: "upload cancelled", Err: ctx.Err()}
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return "", &Error{
		Reason: fmt.Sprintf("exceeded %d upload attempts", e.maxRetries),
		Err:    lastErr,
	}
}

func (e *HTTPEngine) upload(ctx context.Context, wavData []byte, language string) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(wavData); err != nil {
		return "", fmt.Errorf("failed to write form file: %w", err)
	}
	if e.model != "" {
		_ = writer.WriteField("model", e.model)
	}
	if language != "" {
		_ = writer.WriteField("language", language)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed transcriptionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return strings.TrimSpace(parsed.Text), nil
}
