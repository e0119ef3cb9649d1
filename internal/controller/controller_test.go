package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomw/ptt/pkg/logger"
)

// fakeRecorder returns canned samples and counts lifecycle calls
type fakeRecorder struct {
	mu       sync.Mutex
	samples  []int16
	startErr error
	starts   int
	stops    int
}

func (r *fakeRecorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startErr != nil {
		return r.startErr
	}
	r.starts++
	return nil
}

func (r *fakeRecorder) Stop() []int16 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops++
	return r.samples
}

func (r *fakeRecorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts, r.stops
}

// fakeEngine records transcription calls
type fakeEngine struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
}

func (e *fakeEngine) Transcribe(ctx context.Context, samples []int16, language string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	return e.text, e.err
}

func (e *fakeEngine) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// recordingEvents captures event callbacks for assertions
type recordingEvents struct {
	mu        sync.Mutex
	started   int
	stopped   int
	tooShort  int
	recErrors []error
	results   []string
	errors    []error
}

func (e *recordingEvents) RecordingStarted() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.started++
}

func (e *recordingEvents) RecordingStopped(time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped++
}

func (e *recordingEvents) RecordingTooShort(time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tooShort++
}

func (e *recordingEvents) RecordingError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recErrors = append(e.recErrors, err)
}

func (e *recordingEvents) TranscriptionResult(text string, _ time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.results = append(e.results, text)
}

func (e *recordingEvents) TranscriptionError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errors = append(e.errors, err)
}

func (e *recordingEvents) snapshot() (started, stopped, tooShort int, results []string, errs []error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.started, e.stopped, e.tooShort, append([]string(nil), e.results...), append([]error(nil), e.errors...)
}

// chanSource feeds a test-controlled signal channel to the controller
type chanSource struct {
	ch chan Signal
}

func (s *chanSource) Signals(ctx context.Context) (<-chan Signal, error) {
	return s.ch, nil
}

func testConfig() Config {
	return Config{
		SampleRate:     16000,
		Language:       "pl",
		ReleaseTimeout: 40 * time.Millisecond,
		MinDuration:    100 * time.Millisecond,
	}
}

func runController(t *testing.T, ctrl *Controller, src Source) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = ctrl.Run(ctx, src)
	}()
	return func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("controller did not shut down")
		}
	}
}

func waitForState(t *testing.T, ctrl *Controller, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ctrl.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("controller never reached state %s (currently %s)", want, ctrl.State())
}

func TestControllerFullCycle(t *testing.T) {
	// 3 blocks of 1024 samples is 3072 samples, 0.192s at 16kHz.
	rec := &fakeRecorder{samples: make([]int16, 3072)}
	engine := &fakeEngine{text: "test"}
	events := &recordingEvents{}
	src := &chanSource{ch: make(chan Signal, 8)}
	ctrl := New(rec, engine, events, testConfig(), logger.Nop())

	stop := runController(t, ctrl, src)
	defer stop()

	src.ch <- SignalEngaged
	waitForState(t, ctrl, StateRecording)
	src.ch <- SignalReleased
	waitForState(t, ctrl, StateIdle)

	started, stopped, _, results, errs := events.snapshot()
	if started != 1 || stopped != 1 {
		t.Fatalf("expected one start/stop, got %d/%d", started, stopped)
	}
	if len(errs) != 0 {
		t.Fatalf("unexpected transcription errors: %v", errs)
	}
	if len(results) != 1 || results[0] != "test" {
		t.Fatalf("expected single result %q, got %v", "test", results)
	}
	if engine.callCount() != 1 {
		t.Fatalf("expected one engine call, got %d", engine.callCount())
	}
}

func TestControllerReleaseTimeout(t *testing.T) {
	rec := &fakeRecorder{samples: make([]int16, 3072)}
	engine := &fakeEngine{text: "timed out"}
	events := &recordingEvents{}
	src := &chanSource{ch: make(chan Signal, 8)}
	ctrl := New(rec, engine, events, testConfig(), logger.Nop())

	stop := runController(t, ctrl, src)
	defer stop()

	// One engaged signal, never released: the release timer must finish the
	// recording on its own.
	src.ch <- SignalEngaged
	waitForState(t, ctrl, StateRecording)
	waitForState(t, ctrl, StateIdle)

	_, _, _, results, _ := events.snapshot()
	if len(results) != 1 || results[0] != "timed out" {
		t.Fatalf("expected timeout-driven result, got %v", results)
	}
}

func TestControllerRenewalKeepsRecording(t *testing.T) {
	rec := &fakeRecorder{samples: make([]int16, 3072)}
	engine := &fakeEngine{text: "x"}
	events := &recordingEvents{}
	src := &chanSource{ch: make(chan Signal, 64)}
	ctrl := New(rec, engine, events, testConfig(), logger.Nop())

	stop := runController(t, ctrl, src)
	defer stop()

	src.ch <- SignalEngaged
	waitForState(t, ctrl, StateRecording)

	// Keep renewing well past the release timeout.
	for i := 0; i < 8; i++ {
		time.Sleep(10 * time.Millisecond)
		src.ch <- SignalEngaged
	}
	if ctrl.State() != StateRecording {
		t.Fatalf("expected recording to continue while renewed, state is %s", ctrl.State())
	}

	src.ch <- SignalReleased
	waitForState(t, ctrl, StateIdle)

	starts, stops := rec.counts()
	if starts != 1 {
		t.Fatalf("expected a single recorder start across renewals, got %d", starts)
	}
	if stops != 1 {
		t.Fatalf("expected a single recorder stop, got %d", stops)
	}
}

func TestControllerTooShortDiscarded(t *testing.T) {
	// 800 samples is 0.05s at 16kHz, below the 100ms minimum.
	rec := &fakeRecorder{samples: make([]int16, 800)}
	engine := &fakeEngine{text: "should not run"}
	events := &recordingEvents{}
	src := &chanSource{ch: make(chan Signal, 8)}
	ctrl := New(rec, engine, events, testConfig(), logger.Nop())

	stop := runController(t, ctrl, src)
	defer stop()

	src.ch <- SignalEngaged
	waitForState(t, ctrl, StateRecording)
	src.ch <- SignalReleased
	waitForState(t, ctrl, StateIdle)

	_, _, tooShort, results, _ := events.snapshot()
	if tooShort != 1 {
		t.Fatalf("expected one too-short event, got %d", tooShort)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results for a too-short take, got %v", results)
	}
	if engine.callCount() != 0 {
		t.Fatalf("engine must not be called for a too-short take")
	}
}

func TestControllerRecorderStartFailure(t *testing.T) {
	rec := &fakeRecorder{startErr: errors.New("no device")}
	engine := &fakeEngine{}
	events := &recordingEvents{}
	src := &chanSource{ch: make(chan Signal, 8)}
	ctrl := New(rec, engine, events, testConfig(), logger.Nop())

	stop := runController(t, ctrl, src)
	defer stop()

	src.ch <- SignalEngaged

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		events.mu.Lock()
		n := len(events.recErrors)
		events.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	events.mu.Lock()
	defer events.mu.Unlock()
	if len(events.recErrors) != 1 {
		t.Fatalf("expected one recording error, got %d", len(events.recErrors))
	}
	if ctrl.State() != StateIdle {
		t.Fatalf("expected controller to stay idle after start failure")
	}
}

func TestControllerTranscriptionError(t *testing.T) {
	rec := &fakeRecorder{samples: make([]int16, 3072)}
	engine := &fakeEngine{err: errors.New("backend down")}
	events := &recordingEvents{}
	src := &chanSource{ch: make(chan Signal, 8)}
	ctrl := New(rec, engine, events, testConfig(), logger.Nop())

	stop := runController(t, ctrl, src)
	defer stop()

	src.ch <- SignalEngaged
	waitForState(t, ctrl, StateRecording)
	src.ch <- SignalReleased
	waitForState(t, ctrl, StateIdle)

	_, _, _, results, errs := events.snapshot()
	if len(results) != 0 {
		t.Fatalf("expected no results, got %v", results)
	}
	if len(errs) != 1 {
		t.Fatalf("expected one transcription error, got %d", len(errs))
	}
}

func TestControllerSourceCloseStopsRecording(t *testing.T) {
	rec := &fakeRecorder{samples: make([]int16, 3072)}
	engine := &fakeEngine{text: "x"}
	src := &chanSource{ch: make(chan Signal, 8)}
	ctrl := New(rec, engine, nil, testConfig(), logger.Nop())

	done := make(chan error, 1)
	go func() {
		done <- ctrl.Run(context.Background(), src)
	}()

	src.ch <- SignalEngaged
	waitForState(t, ctrl, StateRecording)
	close(src.ch)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean exit, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after source closed")
	}

	_, stops := rec.counts()
	if stops < 1 {
		t.Fatalf("expected recorder stopped during shutdown")
	}
}

// capturingEngine keeps the samples and language it was handed
type capturingEngine struct {
	mu       sync.Mutex
	samples  []int16
	language string
}

func (e *capturingEngine) Transcribe(ctx context.Context, samples []int16, language string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.samples = append([]int16(nil), samples...)
	e.language = language
	return "test", nil
}

type durationEvents struct {
	NopEvents
	mu       sync.Mutex
	duration time.Duration
	results  int
}

func (e *durationEvents) TranscriptionResult(_ string, d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.duration = d
	e.results++
}

func TestControllerEndToEnd(t *testing.T) {
	// Three 1024-sample blocks of value 100 captured at 16kHz.
	samples := make([]int16, 3072)
	for i := range samples {
		samples[i] = 100
	}
	rec := &fakeRecorder{samples: samples}
	engine := &capturingEngine{}
	events := &durationEvents{}
	src := &chanSource{ch: make(chan Signal, 8)}
	ctrl := New(rec, engine, events, testConfig(), logger.Nop())

	stop := runController(t, ctrl, src)
	defer stop()

	src.ch <- SignalEngaged
	waitForState(t, ctrl, StateRecording)
	src.ch <- SignalReleased
	waitForState(t, ctrl, StateIdle)

	engine.mu.Lock()
	got := engine.samples
	lang := engine.language
	engine.mu.Unlock()
	if len(got) != 3072 {
		t.Fatalf("expected engine to receive 3072 samples, got %d", len(got))
	}
	for i, s := range got {
		if s != 100 {
			t.Fatalf("sample %d: expected 100, got %d", i, s)
		}
	}
	if lang != "pl" {
		t.Fatalf("expected language hint pl, got %q", lang)
	}

	events.mu.Lock()
	defer events.mu.Unlock()
	if events.results != 1 {
		t.Fatalf("expected exactly one result, got %d", events.results)
	}
	if want := 192 * time.Millisecond; events.duration != want {
		t.Fatalf("expected duration %v, got %v", want, events.duration)
	}
}

func TestSampleDuration(t *testing.T) {
	if d := sampleDuration(16000, 16000); d != time.Second {
		t.Fatalf("expected 1s, got %v", d)
	}
	if d := sampleDuration(3072, 16000); d != 192*time.Millisecond {
		t.Fatalf("expected 192ms, got %v", d)
	}
	if d := sampleDuration(100, 0); d != 0 {
		t.Fatalf("expected 0 for invalid rate, got %v", d)
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateIdle:         "idle",
		StateRecording:    "recording",
		StateTranscribing: "transcribing",
		State(99):         "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Fatalf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}

func TestMultiFansOut(t *testing.T) {
	a := &recordingEvents{}
	b := &recordingEvents{}
	m := Multi(a, b)

	m.RecordingStarted()
	m.TranscriptionResult("hello", time.Second)
	m.TranscriptionError(errors.New("x"))

	for _, e := range []*recordingEvents{a, b} {
		started, _, _, results, errs := e.snapshot()
		if started != 1 || len(results) != 1 || len(errs) != 1 {
			t.Fatalf("listener missed events: started=%d results=%v errs=%v", started, results, errs)
		}
	}
}
