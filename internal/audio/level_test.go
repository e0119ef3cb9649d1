package audio

import (
	"testing"
)

func TestRMSLevelSilence(t *testing.T) {
	if level := RMSLevel(make([]int16, 1024)); level != 0.0 {
		t.Fatalf("expected 0.0 for silence, got %f", level)
	}
}

func TestRMSLevelEmptyChunk(t *testing.T) {
	if level := RMSLevel(nil); level != 0.0 {
		t.Fatalf("expected 0.0 for empty chunk, got %f", level)
	}
}

func TestRMSLevelFullScale(t *testing.T) {
	chunk := make([]int16, 1024)
	for i := range chunk {
		if i%2 == 0 {
			chunk[i] = 32767
		} else {
			chunk[i] = -32768
		}
	}
	level := RMSLevel(chunk)
	if level < 0.99 || level > 1.0 {
		t.Fatalf("expected full-scale square wave near 1.0, got %f", level)
	}
}

func TestRMSLevelNeverExceedsOne(t *testing.T) {
	chunk := make([]int16, 64)
	for i := range chunk {
		chunk[i] = -32768
	}
	if level := RMSLevel(chunk); level > 1.0 {
		t.Fatalf("expected level clamped to 1.0, got %f", level)
	}
}

func TestRMSLevelMonotonicInAmplitude(t *testing.T) {
	quiet := make([]int16, 256)
	loud := make([]int16, 256)
	for i := range quiet {
		quiet[i] = 100
		loud[i] = 10000
	}
	if RMSLevel(quiet) >= RMSLevel(loud) {
		t.Fatalf("expected louder chunk to read higher")
	}
}

func TestLevelCellRoundTrip(t *testing.T) {
	var cell LevelCell
	if cell.Load() != 0.0 {
		t.Fatalf("expected zero value to read 0.0")
	}
	cell.Set(0.42)
	if got := cell.Load(); got != 0.42 {
		t.Fatalf("expected 0.42, got %f", got)
	}
	cell.Reset()
	if cell.Load() != 0.0 {
		t.Fatalf("expected 0.0 after Reset, got %f", cell.Load())
	}
}
