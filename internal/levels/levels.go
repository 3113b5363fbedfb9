// Package levels computes signal levels and keeps a rolling history of them
// for visualisation.
package levels

import (
	"math"
	"sync"
)

// DefaultCapacity is the number of levels kept by a Tracker.
const DefaultCapacity = 20

// clipThreshold is the absolute sample value treated as clipping.
const clipThreshold = 0.999

// Level holds a computed signal level.
type Level struct {
	Value    float64 `json:"level"`    // 0-100
	Clipping bool    `json:"clipping"` // true if clipping is detected
}

// Calculate returns the level of normalised float samples across all channels.
// RMS is converted to dBFS and scaled so -60 dBFS maps to 0 and -10 dBFS to 100;
// a clipping frame reads at least 95.
func Calculate(channels [][]float32) Level {
	var sum float64
	var count int
	clipping := false

	for _, ch := range channels {
		for _, s := range ch {
			v := float64(s)
			sum += v * v
			if math.Abs(v) >= clipThreshold {
				clipping = true
			}
		}
		count += len(ch)
	}

	if count == 0 {
		return Level{}
	}

	rms := math.Sqrt(sum / float64(count))
	if rms == 0 {
		return Level{}
	}

	db := 20 * math.Log10(rms)
	scaled := (db + 60) * (100.0 / 50.0)
	if clipping {
		scaled = math.Max(scaled, 95)
	}

	return Level{Value: clamp(scaled), Clipping: clipping}
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

// Tracker keeps the most recent levels in FIFO order. It is safe for
// concurrent use; the lock is held only for the append or copy.
type Tracker struct {
	mu       sync.Mutex
	values   []float64
	capacity int
}

// NewTracker creates a tracker holding up to capacity levels.
func NewTracker(capacity int) *Tracker {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Tracker{
		values:   make([]float64, 0, capacity),
		capacity: capacity,
	}
}

// Record appends a level, evicting the oldest when the tracker is full.
func (t *Tracker) Record(level float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.values) == t.capacity {
		copy(t.values, t.values[1:])
		t.values[len(t.values)-1] = level
		return
	}
	t.values = append(t.values, level)
}

// Snapshot returns the retained levels, oldest first.
func (t *Tracker) Snapshot() []float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]float64(nil), t.values...)
}

// Latest returns the most recent level and whether one exists.
func (t *Tracker) Latest() (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.values) == 0 {
		return 0, false
	}
	return t.values[len(t.values)-1], true
}

// Capacity returns the maximum number of retained levels.
func (t *Tracker) Capacity() int {
	return t.capacity
}
