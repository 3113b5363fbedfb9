// Package classifier detects environmental sounds in mono audio.
package classifier

import (
	"context"
	"sort"
)

// Detection is one classified sound.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Classifier labels a mono audio buffer. Detections are ordered best first
// and failures yield an empty result.
type Classifier interface {
	Classify(ctx context.Context, mono []float32, sampleRate int) []Detection
}

// Func adapts a function to the Classifier interface.
type Func func(ctx context.Context, mono []float32, sampleRate int) []Detection

// Classify calls f.
func (f Func) Classify(ctx context.Context, mono []float32, sampleRate int) []Detection {
	return f(ctx, mono, sampleRate)
}

// Nop never detects anything. It is used when no model is configured.
type Nop struct{}

// Classify returns nil.
func (Nop) Classify(context.Context, []float32, int) []Detection { return nil }

// rank sorts detections best first, drops those below threshold and keeps at most topK.
func rank(detections []Detection, threshold float64, topK int) []Detection {
	out := detections[:0]
	for _, d := range detections {
		if d.Confidence >= threshold && d.Label != "" {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}
