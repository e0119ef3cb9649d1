package output

import (
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"

	"github.com/tomw/ptt/pkg/logger"
)

// pasteSettle is how long the focused application gets to consume the
// clipboard before the previous contents are restored.
const pasteSettle = 150 * time.Millisecond

// TypeSink injects recognized text into the focused window. On Wayland it
// shells out to wtype, which types the text directly. Everywhere else it
// stages the text on the clipboard, synthesizes a paste shortcut and then
// restores the previous clipboard contents.
type TypeSink struct {
	logger *logger.Logger
}

// NewTypeSink creates a sink that types text into the focused window
func NewTypeSink(log *logger.Logger) *TypeSink {
	return &TypeSink{logger: log.Named("typer")}
}

func (s *TypeSink) Name() string { return "type" }

func (s *TypeSink) Write(text string) error {
	if path, err := exec.LookPath("wtype"); err == nil {
		return s.typeWithWtype(path, text)
	}
	return s.typeWithPaste(text)
}

func (s *TypeSink) typeWithWtype(path, text string) error {
	cmd := exec.Command(path, "--", text)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("wtype failed: %w (%s)", err, string(out))
	}
	return nil
}

func (s *TypeSink) typeWithPaste(text string) error {
	previous, err := clipboard.ReadAll()
	if err != nil {
		// An unreadable clipboard (empty selection, no manager) is not fatal,
		// it just means there is nothing to restore.
		s.logger.Debug("Could not read clipboard before paste", logger.Error(err))
		previous = ""
	}

	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("failed to stage text on clipboard: %w", err)
	}

	if err := sendPasteShortcut(); err != nil {
		return fmt.Errorf("failed to send paste shortcut: %w", err)
	}

	time.Sleep(pasteSettle)
	if err := clipboard.WriteAll(previous); err != nil {
		s.logger.Warn("Failed to restore clipboard contents", logger.Error(err))
	}
	return nil
}

// sendPasteShortcut presses Ctrl+V (Cmd+V on macOS) in the focused window
func sendPasteShortcut() error {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return err
	}
	// The uinput device needs a moment to register on Linux
	if runtime.GOOS == "linux" {
		time.Sleep(2 * time.Second)
	}

	kb.SetKeys(keybd_event.VK_V)
	if runtime.GOOS == "darwin" {
		kb.HasSuper(true)
	} else {
		kb.HasCTRL(true)
	}
	return kb.Launching()
}
