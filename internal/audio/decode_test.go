package audio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestWAV(t *testing.T, rate, channels int, data []int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: rate, NumChannels: channels},
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

func TestDecodeFileWAVStereo(t *testing.T) {
	t.Parallel()

	data := make([]int, 0, 2000)
	for range 1000 {
		data = append(data, 16384, -8192)
	}
	path := writeTestWAV(t, 8000, 2, data)

	frame, err := DecodeFile(path)
	require.NoError(t, err)
	require.Equal(t, 2, frame.NumChannels())
	assert.Equal(t, 8000, frame.SampleRate)
	assert.Len(t, frame.Channels[0], 1000)
	assert.InDelta(t, 0.5, frame.Channels[0][10], 0.001)
	assert.InDelta(t, -0.25, frame.Channels[1][10], 0.001)
}

func TestDecodeFileWAVMono(t *testing.T) {
	t.Parallel()

	path := writeTestWAV(t, 16000, 1, make([]int, 1600))

	frame, err := DecodeFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, frame.NumChannels())
	assert.Len(t, frame.Mono(), 1600)
}

func TestDecodeRejectsUnknownData(t *testing.T) {
	t.Parallel()

	_, err := Decode(strings.NewReader("this is not audio at all"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Decode(strings.NewReader("ab"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDecodeFileMissing(t *testing.T) {
	t.Parallel()

	_, err := DecodeFile(filepath.Join(t.TempDir(), "missing.wav"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupportedFormat)
}
