package direction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fill(v float32, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestEstimate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		channels   [][]float32
		direction  string
		angle      float64
		confidence float64
	}{
		{"balanced is center", [][]float32{fill(0.3, 512), fill(0.3, 512)}, Center, 0, 0},
		{"inside dead zone is center", [][]float32{fill(0.105, 512), fill(0.1, 512)}, Center, 0, 0.1},
		{"twice as loud on left", [][]float32{fill(0.4, 512), fill(0.2, 512)}, Left, 225, 1},
		{"slightly louder on left", [][]float32{fill(0.12, 512), fill(0.1, 512)}, Left, 261, 0.4},
		{"twice as loud on right", [][]float32{fill(0.2, 512), fill(0.4, 512)}, Right, 45, 1},
		{"far louder on left clamps angle", [][]float32{fill(0.9, 512), fill(0.01, 512)}, Left, 180, 1},
		{"silent left is hard right", [][]float32{fill(0, 512), fill(0.5, 512)}, Right, 0, 1},
		{"mono is unknown", [][]float32{fill(0.5, 512)}, Unknown, 0, 0},
		{"no channels is unknown", nil, Unknown, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Estimate(tt.channels)
			assert.Equal(t, tt.direction, got.Direction)
			assert.InDelta(t, tt.angle, got.Angle, 1e-3)
			assert.InDelta(t, tt.confidence, got.Confidence, 1e-3)
		})
	}
}

func TestEstimateSignIndependent(t *testing.T) {
	t.Parallel()

	pos := Estimate([][]float32{fill(0.4, 64), fill(0.2, 64)})
	neg := Estimate([][]float32{fill(-0.4, 64), fill(-0.2, 64)})
	assert.Equal(t, pos, neg)
}

func TestEstimateBalancedReadsCenter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		left, right float32
	}{
		{"silence", 0, 0},
		{"tiny equal", 1e-12, 1e-12},
		{"tiny unequal within epsilon", 1e-12, 3e-12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Estimate([][]float32{fill(tt.left, 1600), fill(tt.right, 1600)})
			assert.Equal(t, Result{Direction: Center}, got)
		})
	}
}
