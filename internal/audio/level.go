package audio

import (
	"math"
	"sync/atomic"
)

// RMSLevel returns the root-mean-square amplitude of a 16-bit chunk,
// normalized to [0, 1]. An empty chunk reads as silence.
func RMSLevel(chunk []int16) float64 {
	if len(chunk) == 0 {
		return 0.0
	}
	var sum float64
	for _, s := range chunk {
		v := float64(s)
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(len(chunk)))
	return math.Min(rms/32768.0, 1.0)
}

// LevelCell is a single-slot holder for the most recent level reading. The
// capture-side observer writes into it without blocking and UI consumers
// read it at their own pace; stale readings are simply overwritten.
type LevelCell struct {
	bits atomic.Uint64
}

// Set stores a level reading
func (c *LevelCell) Set(level float64) {
	c.bits.Store(math.Float64bits(level))
}

// Load returns the most recent level reading
func (c *LevelCell) Load() float64 {
	return math.Float64frombits(c.bits.Load())
}

// Reset clears the cell back to silence
func (c *LevelCell) Reset() {
	c.bits.Store(0)
}
