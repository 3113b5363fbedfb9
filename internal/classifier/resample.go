package classifier

// resample converts audio from originalRate to targetRate using cubic interpolation.
func resample(audio []float32, originalRate, targetRate int) []float32 {
	if originalRate == targetRate || originalRate <= 0 || len(audio) == 0 {
		return audio
	}

	ratio := float64(targetRate) / float64(originalRate)
	newLength := int(float64(len(audio)) * ratio)
	out := make([]float32, newLength)

	at := func(i int) float32 {
		switch {
		case i < 0:
			return audio[0]
		case i >= len(audio):
			return audio[len(audio)-1]
		}
		return audio[i]
	}

	for i := range out {
		pos := float64(i) / ratio
		index := int(pos)
		frac := float32(pos - float64(index))

		y0, y1, y2, y3 := at(index-1), at(index), at(index+1), at(index+2)
		mu2 := frac * frac
		a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
		a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
		a2 := -0.5*y0 + 0.5*y2

		out[i] = a0*frac*mu2 + a1*mu2 + a2*frac + y1
	}
	return out
}
