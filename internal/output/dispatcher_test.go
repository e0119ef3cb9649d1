package output

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tomw/ptt/pkg/logger"
)

type failingSink struct {
	calls int
}

func (s *failingSink) Name() string { return "failing" }

func (s *failingSink) Write(text string) error {
	s.calls++
	return errors.New("sink broken")
}

type memorySink struct {
	texts []string
}

func (s *memorySink) Name() string { return "memory" }

func (s *memorySink) Write(text string) error {
	s.texts = append(s.texts, text)
	return nil
}

func TestDispatcherFansOutToAllSinks(t *testing.T) {
	a := &memorySink{}
	b := &memorySink{}
	d := NewDispatcher([]Sink{a, b}, nil, logger.Nop())

	d.TranscriptionResult("hello", time.Second)

	if len(a.texts) != 1 || a.texts[0] != "hello" {
		t.Fatalf("first sink missed text: %v", a.texts)
	}
	if len(b.texts) != 1 || b.texts[0] != "hello" {
		t.Fatalf("second sink missed text: %v", b.texts)
	}
}

func TestDispatcherIsolatesSinkFailures(t *testing.T) {
	broken := &failingSink{}
	working := &memorySink{}
	d := NewDispatcher([]Sink{broken, working}, nil, logger.Nop())

	d.TranscriptionResult("still delivered", time.Second)

	if broken.calls != 1 {
		t.Fatalf("broken sink not invoked")
	}
	if len(working.texts) != 1 || working.texts[0] != "still delivered" {
		t.Fatalf("working sink lost the text after a sibling failed: %v", working.texts)
	}
}

func TestDispatcherSkipsSinksOnEmptyText(t *testing.T) {
	sink := &memorySink{}
	d := NewDispatcher([]Sink{sink}, nil, logger.Nop())

	d.TranscriptionResult("", time.Second)

	if len(sink.texts) != 0 {
		t.Fatalf("sinks must not receive empty text, got %v", sink.texts)
	}
}

func TestPrintSinkWritesLine(t *testing.T) {
	var buf bytes.Buffer
	sink := NewPrintSink(&buf)

	if err := sink.Write("dictated text"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if got := buf.String(); got != "dictated text\n" {
		t.Fatalf("expected line with newline, got %q", got)
	}
}

func TestFileSinkAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.txt")
	sink := NewFileSink(path)

	if err := sink.Write("first"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := sink.Write("second"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 || lines[0] != "first" || lines[1] != "second" {
		t.Fatalf("unexpected file contents: %q", string(data))
	}
}

func TestNilNotifierIsSafe(t *testing.T) {
	var n *Notifier
	n.Notify("no receiver") // must not panic
}
