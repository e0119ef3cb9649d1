package audio

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gordonklaus/portaudio"

	"github.com/tomw/ptt/pkg/logger"
)

// PortAudioHost opens capture streams through PortAudio. Initialize is
// process-wide, so create one host per process and Terminate it on exit.
type PortAudioHost struct {
	logger *logger.Logger
}

// NewPortAudioHost initializes PortAudio
func NewPortAudioHost(log *logger.Logger) (*PortAudioHost, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init failed: %w", err)
	}
	return &PortAudioHost{logger: log.Named("portaudio")}, nil
}

// Terminate releases PortAudio. No streams may be open when called.
func (h *PortAudioHost) Terminate() {
	if err := portaudio.Terminate(); err != nil {
		h.logger.Warn("PortAudio terminate failed", logger.Error(err))
	}
}

// Devices lists the available input devices
func (h *PortAudioHost) Devices() ([]Device, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	defaultIn, _ := portaudio.DefaultInputDevice()

	var devices []Device
	for i, info := range infos {
		if info.MaxInputChannels < 1 {
			continue
		}
		devices = append(devices, Device{
			Index:     i,
			Name:      info.Name,
			IsDefault: defaultIn != nil && info.Name == defaultIn.Name,
		})
	}
	return devices, nil
}

// OpenInputStream opens a capture stream on the selected device. The block
// callback receives int16 samples straight from the PortAudio capture
// goroutine.
func (h *PortAudioHost) OpenInputStream(cfg StreamConfig, cb Callback) (Stream, error) {
	if cfg.SampleRate <= 0 || cfg.Channels != 1 || cfg.BlockSize <= 0 {
		return nil, fmt.Errorf("%w: sample_rate=%d channels=%d block_size=%d",
			ErrInvalidConfig, cfg.SampleRate, cfg.Channels, cfg.BlockSize)
	}

	dev, err := h.inputDevice(cfg.Device)
	if err != nil {
		return nil, err
	}

	params := portaudio.LowLatencyParameters(dev, nil)
	params.Input.Channels = cfg.Channels
	params.SampleRate = float64(cfg.SampleRate)
	params.FramesPerBuffer = cfg.BlockSize

	if err := portaudio.IsFormatSupported(params, func(in []int16) {}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	stream, err := portaudio.OpenStream(params, func(in []int16) { cb(in) })
	if err != nil {
		return nil, fmt.Errorf("%w: open stream failed: %v", ErrDeviceUnavailable, err)
	}

	h.logger.Debug("Opened input stream",
		logger.String("device", dev.Name),
		logger.Int("sample_rate", cfg.SampleRate))
	return &portAudioStream{stream: stream}, nil
}

// inputDevice resolves a device selector to a PortAudio device. An empty
// selector means the default input; otherwise it is tried as a numeric index
// first, then as a case-insensitive name substring.
func (h *PortAudioHost) inputDevice(selector string) (*portaudio.DeviceInfo, error) {
	if selector == "" {
		dev, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("%w: no default input device: %v", ErrDeviceUnavailable, err)
		}
		return dev, nil
	}

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to enumerate devices: %v", ErrDeviceUnavailable, err)
	}

	if idx, convErr := strconv.Atoi(selector); convErr == nil {
		if idx < 0 || idx >= len(infos) || infos[idx].MaxInputChannels < 1 {
			return nil, fmt.Errorf("%w: no input device at index %d", ErrDeviceUnavailable, idx)
		}
		return infos[idx], nil
	}

	needle := strings.ToLower(selector)
	for _, info := range infos {
		if info.MaxInputChannels >= 1 && strings.Contains(strings.ToLower(info.Name), needle) {
			return info, nil
		}
	}
	return nil, fmt.Errorf("%w: no input device matching %q", ErrDeviceUnavailable, selector)
}

type portAudioStream struct {
	stream *portaudio.Stream
}

func (s *portAudioStream) Start() error {
	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("%w: start stream failed: %v", ErrDeviceUnavailable, err)
	}
	return nil
}

func (s *portAudioStream) Close() error {
	// Stop drains in-flight callbacks before Close releases the device.
	if err := s.stream.Stop(); err != nil {
		_ = s.stream.Close()
		return err
	}
	return s.stream.Close()
}
