package input

import (
	"context"
	"fmt"
	"os"
	"unicode"

	"golang.org/x/term"

	"github.com/tomw/ptt/internal/controller"
	"github.com/tomw/ptt/pkg/logger"
)

const ctrlC = 0x03

// TerminalSource reads trigger keypresses from a terminal in raw mode.
// Holding the trigger key delivers a stream of Engaged signals at the OS
// key-repeat rate; the controller's release timeout turns the end of that
// stream into a release. Ctrl+C closes the signal channel.
type TerminalSource struct {
	key    byte
	in     *os.File
	logger *logger.Logger
}

// NewTerminalSource creates a trigger source for the given key read from
// stdin
func NewTerminalSource(key byte, log *logger.Logger) *TerminalSource {
	return &TerminalSource{
		key:    key,
		in:     os.Stdin,
		logger: log.Named("terminal"),
	}
}

// Signals puts the terminal in raw mode and streams trigger signals. The
// terminal state is restored when the reader goroutine exits.
func (s *TerminalSource) Signals(ctx context.Context) (<-chan controller.Signal, error) {
	fd := int(s.in.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("stdin is not a terminal")
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("failed to enter raw mode: %w", err)
	}

	signals := make(chan controller.Signal, 16)
	go func() {
		defer close(signals)
		defer func() {
			if err := term.Restore(fd, oldState); err != nil {
				s.logger.Warn("Failed to restore terminal state", logger.Error(err))
			}
		}()

		buf := make([]byte, 64)
		for {
			if ctx.Err() != nil {
				return
			}
			n, err := s.in.Read(buf)
			if err != nil {
				return
			}
			for _, b := range buf[:n] {
				if b == ctrlC {
					return
				}
				if s.matches(b) {
					select {
					case signals <- controller.SignalEngaged:
					default:
						// Consumer is behind; the signal only renews the
						// release window, dropping one is harmless.
					}
				}
			}
		}
	}()
	return signals, nil
}

func (s *TerminalSource) matches(b byte) bool {
	if b == s.key {
		return true
	}
	return unicode.ToLower(rune(b)) == unicode.ToLower(rune(s.key))
}
