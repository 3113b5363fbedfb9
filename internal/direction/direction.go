// Package direction estimates where a sound came from using the energy
// balance between the two channels of a stereo frame.
//
// The estimate is a heuristic, not a physical model. With ratio = L/(R+ε):
//
//	ratio > 1.1  left,   angle = 270 - min(90, (ratio-1)*45)
//	ratio < 0.9  right,  angle = 90 - min(90, (1/ratio-1)*45)
//	otherwise    center, angle = 0
//
// and confidence = min(1, |1-ratio|*2). The 0.9/1.1 thresholds form a dead
// zone around balanced stereo and are asymmetric on purpose.
package direction

import "math"

// Direction labels.
const (
	Left    = "left"
	Right   = "right"
	Center  = "center"
	Unknown = "unknown"
)

// Angles used for synthetic events, matching the estimator's extremes.
const (
	AngleLeft   = 270.0
	AngleRight  = 90.0
	AngleCenter = 0.0
)

const (
	epsilon        = 1e-10
	leftThreshold  = 1.1
	rightThreshold = 0.9
	degreesPerUnit = 45.0
	maxOffset      = 90.0
)

// Result is the outcome of one estimate.
type Result struct {
	Angle      float64 `json:"angle"`
	Direction  string  `json:"direction"`
	Confidence float64 `json:"confidence"`
}

// Estimate computes the direction of a frame given as per-channel samples.
// Only the first two channels are used. Fewer than two channels yield
// Unknown with zero angle and confidence. Balanced channels, silence
// included, read as Center.
func Estimate(channels [][]float32) Result {
	if len(channels) < 2 {
		return Result{Direction: Unknown}
	}

	left := meanAbs(channels[0])
	right := meanAbs(channels[1])
	if math.Abs(left-right) <= epsilon {
		return Result{Direction: Center}
	}
	ratio := left / (right + epsilon)

	res := Result{Confidence: math.Min(1.0, math.Abs(1-ratio)*2)}
	switch {
	case ratio > leftThreshold:
		res.Direction = Left
		res.Angle = 270 - math.Min(maxOffset, (ratio-1)*degreesPerUnit)
	case ratio < rightThreshold:
		res.Direction = Right
		if ratio == 0 {
			res.Angle = 90 - maxOffset
		} else {
			res.Angle = 90 - math.Min(maxOffset, (1/ratio-1)*degreesPerUnit)
		}
	default:
		res.Direction = Center
		res.Angle = 0
	}
	return res
}

func meanAbs(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += math.Abs(float64(s))
	}
	return sum / float64(len(samples))
}
