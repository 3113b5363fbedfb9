package audio

import (
	"encoding/binary"
	"time"
)

// Frame is one fixed-duration chunk of audio. It is owned by one pipeline
// iteration and never retained beyond it.
type Frame struct {
	Channels   [][]float32 // per-channel samples normalised to [-1, 1]
	SampleRate int
	Timestamp  time.Time

	// Synthetic is set by DemoSource instead of real samples.
	Synthetic *SyntheticEvent
}

// SyntheticEvent describes what a demo frame "contains".
type SyntheticEvent struct {
	Level  float64          // signal level 0-100 reported for the frame
	Speech *SyntheticSpeech // nil when no speech was drawn
	Sound  *SyntheticSound  // nil when no sound was drawn
}

// SyntheticSpeech is a fabricated transcription with a preset emotion.
type SyntheticSpeech struct {
	Text              string
	Confidence        float64
	Emotion           string
	EmotionConfidence float64
}

// SyntheticSound is a fabricated environmental sound event.
type SyntheticSound struct {
	Label      string
	Category   string
	Direction  string
	Angle      float64
	Distance   string
	Confidence float64
}

// NumChannels returns the channel count of the frame.
func (f *Frame) NumChannels() int {
	return len(f.Channels)
}

// IsSynthetic reports whether the frame came from the demo generator.
func (f *Frame) IsSynthetic() bool {
	return f.Synthetic != nil
}

// Duration returns the playback length of the frame.
func (f *Frame) Duration() time.Duration {
	if f.SampleRate <= 0 || len(f.Channels) == 0 {
		return 0
	}
	return time.Duration(len(f.Channels[0])) * time.Second / time.Duration(f.SampleRate)
}

// Mono returns the average of all channels.
func (f *Frame) Mono() []float32 {
	switch len(f.Channels) {
	case 0:
		return nil
	case 1:
		return f.Channels[0]
	}

	n := len(f.Channels[0])
	out := make([]float32, n)
	scale := 1 / float32(len(f.Channels))
	for _, ch := range f.Channels {
		for i := 0; i < n && i < len(ch); i++ {
			out[i] += ch[i] * scale
		}
	}
	return out
}

// DeinterleaveS16 converts interleaved 16-bit little-endian PCM into per-channel float samples.
func DeinterleaveS16(pcm []byte, channels int) [][]float32 {
	if channels < 1 {
		channels = 1
	}
	frames := len(pcm) / (2 * channels)
	out := make([][]float32, channels)
	for c := range out {
		out[c] = make([]float32, frames)
	}
	for i := range frames {
		for c := range channels {
			off := (i*channels + c) * 2
			sample := int16(binary.LittleEndian.Uint16(pcm[off : off+2]))
			out[c][i] = float32(sample) / 32768.0
		}
	}
	return out
}

// EncodeS16 converts float samples to 16-bit little-endian PCM.
func EncodeS16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := s * 32767
		switch {
		case v > 32767:
			v = 32767
		case v < -32768:
			v = -32768
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v)))
	}
	return out
}
