package audio

import (
	"errors"
)

// Sentinel errors for stream creation failures. Host implementations wrap
// these so callers can classify failures with errors.Is.
var (
	// ErrDeviceUnavailable indicates no matching input device exists or the
	// device could not be opened
	ErrDeviceUnavailable = errors.New("input device unavailable")
	// ErrInvalidConfig indicates an unsupported sample rate/channel/format
	// combination
	ErrInvalidConfig = errors.New("unsupported stream configuration")
)

// StreamConfig describes how the microphone should be captured
type StreamConfig struct {
	Device     string // device name or numeric index; empty = default input
	SampleRate int    // Hz
	Channels   int    // mono capture only
	BlockSize  int    // frames delivered per callback invocation
}

// Callback receives one block of 16-bit samples. It is invoked on the
// device's own capture goroutine; implementations must be fast and must not
// block.
type Callback func(block []int16)

// Stream is an open capture stream
type Stream interface {
	// Start begins delivery of capture callbacks
	Start() error
	// Close stops delivery and releases the device
	Close() error
}

// Host opens capture streams. The production implementation is PortAudio;
// tests substitute a fake.
type Host interface {
	OpenInputStream(cfg StreamConfig, cb Callback) (Stream, error)
}

// Device describes an available audio input device
type Device struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}
