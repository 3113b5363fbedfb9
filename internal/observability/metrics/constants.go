package metrics

// Outcome label values shared by every recorder.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Histogram bucket layouts.
const (
	BucketStart1ms  = 0.001
	BucketStart10ms = 0.01
	BucketStart64B  = 64.0
	BucketStart100B = 100.0

	BucketFactor2  = 2
	BucketFactor10 = 10

	BucketCount6  = 6
	BucketCount10 = 10
	BucketCount12 = 12
)
