package audio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/tphakala/flac"

	"github.com/echolens-ai/echolens/internal/errors"
)

// MaxDecodeDuration caps how much audio DecodeFile and Decode return.
const MaxDecodeDuration = 60 * time.Second

// DecodeFile decodes a WAV or FLAC file into a single frame.
func DecodeFile(path string) (Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return Frame{}, errors.New(fmt.Errorf("open audio file: %w", err)).
			Component(ComponentAudio).
			Category(errors.CategoryFileIO).
			Context("file", filepath.Base(path)).
			Build()
	}
	defer file.Close()

	return Decode(file)
}

// Decode decodes WAV or FLAC data into a single frame. The format is
// detected from the stream header.
func Decode(r io.ReadSeeker) (Frame, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		return Frame{}, unsupported("file too short", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return Frame{}, unsupported("rewind failed", err)
	}

	switch string(header) {
	case "RIFF":
		return decodeWAV(r)
	case "fLaC":
		return decodeFLAC(r)
	default:
		return Frame{}, unsupported(fmt.Sprintf("unknown header %q", header), nil)
	}
}

func unsupported(reason string, cause error) error {
	err := fmt.Errorf("%w: %s", ErrUnsupportedFormat, reason)
	if cause != nil {
		err = fmt.Errorf("%w: %s: %w", ErrUnsupportedFormat, reason, cause)
	}
	return errors.New(err).
		Component(ComponentAudio).
		Category(errors.CategoryAudioDecode).
		Build()
}

func getAudioDivisor(bitDepth int) (float32, error) {
	switch bitDepth {
	case 16:
		return 32768.0, nil
	case 24:
		return 8388608.0, nil
	case 32:
		return 2147483648.0, nil
	default:
		return 0, fmt.Errorf("unsupported audio bit depth: %d", bitDepth)
	}
}

func decodeWAV(r io.ReadSeeker) (Frame, error) {
	decoder := wav.NewDecoder(r)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return Frame{}, unsupported("invalid WAV file", nil)
	}

	channels := int(decoder.NumChans)
	sampleRate := int(decoder.SampleRate)
	if channels < 1 || channels > 2 {
		return Frame{}, unsupported(fmt.Sprintf("unsupported number of channels: %d", channels), nil)
	}
	if sampleRate <= 0 {
		return Frame{}, unsupported("invalid sample rate", nil)
	}
	divisor, err := getAudioDivisor(int(decoder.BitDepth))
	if err != nil {
		return Frame{}, unsupported(err.Error(), nil)
	}

	limit := maxSamples(sampleRate) * channels
	buf := &audio.IntBuffer{
		Data:   make([]int, 16384*channels),
		Format: &audio.Format{SampleRate: sampleRate, NumChannels: channels},
	}

	out := make([][]float32, channels)
	read := 0
	for read < limit {
		n, err := decoder.PCMBuffer(buf)
		if err != nil {
			return Frame{}, unsupported("read PCM data", err)
		}
		if n == 0 {
			break
		}
		n = min(n, limit-read)
		for i := 0; i < n; i++ {
			ch := (read + i) % channels
			out[ch] = append(out[ch], float32(buf.Data[i])/divisor)
		}
		read += n
	}

	if read == 0 {
		return Frame{}, unsupported("no audio data", nil)
	}
	return Frame{Channels: equalize(out), SampleRate: sampleRate, Timestamp: time.Now()}, nil
}

func decodeFLAC(r io.Reader) (Frame, error) {
	decoder, err := flac.NewDecoder(bufio.NewReader(r))
	if err != nil {
		return Frame{}, unsupported("invalid FLAC stream", err)
	}

	channels := decoder.NChannels
	bitDepth := decoder.BitsPerSample
	if channels < 1 || channels > 2 {
		return Frame{}, unsupported(fmt.Sprintf("unsupported number of channels: %d", channels), nil)
	}
	divisor, err := getAudioDivisor(bitDepth)
	if err != nil {
		return Frame{}, unsupported(err.Error(), nil)
	}

	bytesPer := bitDepth / 8
	limit := maxSamples(decoder.SampleRate)
	out := make([][]float32, channels)

	for len(out[0]) < limit {
		data, err := decoder.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Frame{}, unsupported("decode FLAC frame", err)
		}

		for i := 0; i+bytesPer*channels <= len(data) && len(out[0]) < limit; i += bytesPer * channels {
			for ch := range channels {
				off := i + ch*bytesPer
				var sample int32
				switch bitDepth {
				case 16:
					sample = int32(int16(binary.LittleEndian.Uint16(data[off:])))
				case 24:
					sample = int32(data[off]) | int32(data[off+1])<<8 | int32(int8(data[off+2]))<<16
				case 32:
					sample = int32(binary.LittleEndian.Uint32(data[off:]))
				}
				out[ch] = append(out[ch], float32(sample)/divisor)
			}
		}
	}

	if len(out[0]) == 0 {
		return Frame{}, unsupported("no audio data", nil)
	}
	return Frame{Channels: out, SampleRate: decoder.SampleRate, Timestamp: time.Now()}, nil
}

func maxSamples(sampleRate int) int {
	return int(int64(sampleRate) * int64(MaxDecodeDuration) / int64(time.Second))
}

// equalize truncates channels to the shortest one.
func equalize(channels [][]float32) [][]float32 {
	n := len(channels[0])
	for _, ch := range channels[1:] {
		n = min(n, len(ch))
	}
	for i := range channels {
		channels[i] = channels[i][:n]
	}
	return channels
}
