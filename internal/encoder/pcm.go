// ABOUTME: PCM passthrough encoder producing interleaved little-endian int16
// ABOUTME: The WAV stream header is built separately by the orchestrator
package encoder

import (
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/netcast-project/netcast-go/internal/audio"
)

// PCMEncoder emits the resampled signal as raw 16-bit little-endian frames.
type PCMEncoder struct {
	logger     *slog.Logger
	sampleRate int
	channels   int
	ready      bool
	dataBytes  uint64

	floatBuf []float32
	pcmBuf   []int16
}

func (e *PCMEncoder) SetOutputFormat(sampleRate, channels, bitrate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("%w: %d", ErrUnsupportedRate, sampleRate)
	}
	if channels < 1 || channels > 2 {
		return fmt.Errorf("%w: %d", ErrInvalidChannels, channels)
	}

	e.sampleRate = sampleRate
	e.channels = channels
	e.dataBytes = 0
	e.ready = true

	e.logger.Info("pcm encoder initialized", "rate", sampleRate, "channels", channels)
	return nil
}

func (e *PCMEncoder) Encode(dst []byte, src []byte, frames int, f audio.Format) (int, error) {
	if !e.ready {
		return 0, ErrNotInitialized
	}
	if frames <= 0 {
		return 0, nil
	}

	e.floatBuf = audio.NormalizeToFloat(e.floatBuf, src, frames, f)

	var outFrames int
	e.pcmBuf, outFrames = audio.ResampleAndMix(e.pcmBuf, e.floatBuf,
		frames, f.Channels, f.Rate, e.sampleRate, e.channels)

	n := outFrames * e.channels * 2
	if n > len(dst) {
		return 0, fmt.Errorf("%w: need %d, have %d", ErrShortOutputBuffer, n, len(dst))
	}

	for i, s := range e.pcmBuf[:outFrames*e.channels] {
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(s))
	}

	e.dataBytes += uint64(n)
	return n, nil
}

// Flush is a no-op: PCM holds no codec state between calls.
func (e *PCMEncoder) Flush(dst []byte) int {
	return 0
}

func (e *PCMEncoder) Uninit() {
	if e.ready {
		e.logger.Info("pcm encoder uninitialized", "total_bytes", e.dataBytes)
	}
	e.ready = false
}

func (e *PCMEncoder) MimeType() string { return "audio/wav" }
func (e *PCMEncoder) Name() string     { return "PCM" }

// RecommendedBufferSize scales linearly with the requested frame count.
func (e *PCMEncoder) RecommendedBufferSize(frames int) int {
	channels := e.channels
	if channels == 0 {
		channels = 2
	}
	return frames * channels * 2
}
