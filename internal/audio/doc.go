// Package audio provides the audio sources of the pipeline.
//
// A Source produces fixed-duration frames:
//   - LiveSource captures from a sound card through miniaudio (malgo). The
//     device callback writes PCM into a bounded ring buffer and NextFrame
//     waits, for at most the given timeout, until a full frame is available.
//   - DemoSource fabricates synthetic speech and sound events with
//     independent Bernoulli draws instead of real samples.
//
// NextFrame never blocks indefinitely: it returns ErrNoFrame when no frame
// arrived within the timeout, which callers treat as "no new audio this tick".
//
// DecodeFile turns uploaded WAV or FLAC files into frames for offline analysis.
package audio
