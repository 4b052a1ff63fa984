// ABOUTME: 440 Hz sine generator used when no real source is configured
// ABOUTME: Produces 16-bit stereo at 44.1 kHz at half volume
package source

import (
	"encoding/binary"
	"math"

	"github.com/netcast-project/netcast-go/internal/audio"
)

const (
	toneRate     = 44100
	toneChannels = 2
	toneVolume   = 0.5
)

// ToneSource generates a continuous sine tone.
type ToneSource struct {
	frequency   float64
	sampleIndex uint64
}

func NewToneSource() *ToneSource {
	return &ToneSource{frequency: 440.0}
}

func (s *ToneSource) Read(p []byte) (int, error) {
	f := s.Format()
	frames := len(p) / f.BytesPerFrame()

	for i := 0; i < frames; i++ {
		t := float64(s.sampleIndex+uint64(i)) / toneRate
		v := int16(math.Sin(2*math.Pi*s.frequency*t) * 32767.0 * toneVolume)
		for c := 0; c < toneChannels; c++ {
			off := (i*toneChannels + c) * 2
			binary.LittleEndian.PutUint16(p[off:], uint16(v))
		}
	}
	s.sampleIndex += uint64(frames)

	return frames * f.BytesPerFrame(), nil
}

func (s *ToneSource) Format() audio.Format {
	return audio.Format{Encoding: audio.FormatInt16, Rate: toneRate, Channels: toneChannels}
}

func (s *ToneSource) Name() string { return "test tone" }
func (s *ToneSource) Close() error { return nil }
