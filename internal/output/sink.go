package output

import (
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
)

// Sink delivers recognized text to one destination. Sinks are independent: a
// failing sink must not affect the others.
type Sink interface {
	Name() string
	Write(text string) error
}

// PrintSink writes recognized text to a writer, one utterance per line.
// Pointing it at stdout makes the tool usable in shell pipelines.
type PrintSink struct {
	w io.Writer
}

// NewPrintSink creates a sink writing to the given writer
func NewPrintSink(w io.Writer) *PrintSink {
	return &PrintSink{w: w}
}

func (s *PrintSink) Name() string { return "print" }

func (s *PrintSink) Write(text string) error {
	_, err := fmt.Fprintln(s.w, text)
	return err
}

// FileSink appends recognized text to a transcript file
type FileSink struct {
	path string
}

// NewFileSink creates a sink appending to the given path
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) Write(text string) error {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open transcript file: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, text); err != nil {
		return fmt.Errorf("failed to append transcript: %w", err)
	}
	return nil
}

// ClipboardSink replaces the system clipboard with the recognized text
type ClipboardSink struct{}

// NewClipboardSink creates a clipboard sink
func NewClipboardSink() *ClipboardSink {
	return &ClipboardSink{}
}

func (s *ClipboardSink) Name() string { return "clipboard" }

func (s *ClipboardSink) Write(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	return nil
}
