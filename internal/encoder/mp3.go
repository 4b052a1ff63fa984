// ABOUTME: MP3 encoder built on the pure-Go shine codec
// ABOUTME: Carry-over buffers decouple codec pass sizes from the call contract
package encoder

import (
	"bytes"
	"fmt"
	"log/slog"

	shine "github.com/braheezy/shine-mp3/pkg/mp3"

	"github.com/netcast-project/netcast-go/internal/audio"
)

// mp3SampleRates is the set of rates the codec accepts (MPEG-1, MPEG-2 and
// MPEG-2.5 layer III).
var mp3SampleRates = map[int]bool{
	8000:  true,
	11025: true,
	12000: true,
	16000: true,
	22050: true,
	24000: true,
	32000: true,
	44100: true,
	48000: true,
}

// mp3FramesPerPass returns the codec granularity: MPEG-1 rates encode 1152
// frames per pass, the low-rate MPEG-2/2.5 modes 576.
func mp3FramesPerPass(rate int) int {
	if rate >= 32000 {
		return 1152
	}
	return 576
}

// mp3BitrateIndex maps a bitrate to its frame-header index for the MPEG
// version the sample rate selects, or -1 when the version has no such
// bitrate. The ladders mirror the codec's frame header table.
func mp3BitrateIndex(bitrate, rate int) int {
	var ladder [16]int
	switch {
	case rate >= 32000: // MPEG-1
		ladder = [16]int{-1, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, -1}
	case rate >= 16000: // MPEG-2
		ladder = [16]int{-1, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, -1}
	default: // MPEG-2.5
		ladder = [16]int{-1, 8, 16, 24, 32, 40, 48, 56, 64, -1, -1, -1, -1, -1, -1, -1}
	}
	for i, b := range ladder {
		if b == bitrate {
			return i
		}
	}
	return -1
}

// MP3Encoder wraps shine. The codec consumes fixed-size passes and emits
// bytes at its own cadence, so input samples short of a pass wait in carry
// and encoded bytes beyond the caller's destination wait in out.
type MP3Encoder struct {
	logger  *slog.Logger
	quality int

	enc         *shine.Encoder
	sampleRate  int
	channels    int
	bitrate     int
	passSamples int

	floatBuf []float32
	pcmBuf   []int16
	carry    []int16
	out      bytes.Buffer
}

func (e *MP3Encoder) SetOutputFormat(sampleRate, channels, bitrate int) error {
	if !mp3SampleRates[sampleRate] {
		return fmt.Errorf("%w: %d", ErrUnsupportedRate, sampleRate)
	}
	if channels < 1 || channels > 2 {
		return fmt.Errorf("%w: %d", ErrInvalidChannels, channels)
	}
	if bitrate < 32 || bitrate > 320 {
		return fmt.Errorf("%w: %d", ErrBitrateOutOfRange, bitrate)
	}
	bitrateIndex := mp3BitrateIndex(bitrate, sampleRate)
	if bitrateIndex < 0 || shine.CheckConfig(sampleRate, bitrate) < 0 {
		return fmt.Errorf("%w: %d kbps not valid at %d Hz", ErrBitrateOutOfRange, bitrate, sampleRate)
	}

	e.enc = shine.NewEncoder(sampleRate, channels)

	// NewEncoder bakes the slot timing for its default 128 kbps; redo that
	// derivation for the configured bitrate or every frame header would
	// still say 128.
	m := &e.enc.Mpeg
	m.Bitrate = int64(bitrate)
	m.BitrateIndex = int64(bitrateIndex)
	avgSlotsPerFrame := (float64(m.GranulesPerFrame) * shine.GRANULE_SIZE / float64(sampleRate)) *
		(float64(bitrate) * 1000 / float64(m.BitsPerSlot))
	m.WholeSlotsPerFrame = int64(avgSlotsPerFrame)
	m.FracSlotsPerFrame = avgSlotsPerFrame - float64(m.WholeSlotsPerFrame)
	m.Slot_lag = -m.FracSlotsPerFrame
	if m.FracSlotsPerFrame == 0 {
		m.Padding = 0
	}

	e.sampleRate = sampleRate
	e.channels = channels
	e.bitrate = bitrate
	e.passSamples = mp3FramesPerPass(sampleRate) * channels
	e.carry = e.carry[:0]
	e.out.Reset()

	e.logger.Info("mp3 encoder initialized",
		"rate", sampleRate, "channels", channels, "bitrate", bitrate, "quality", e.quality)
	return nil
}

func (e *MP3Encoder) Encode(dst []byte, src []byte, frames int, f audio.Format) (int, error) {
	if e.enc == nil {
		return 0, ErrNotInitialized
	}
	if frames > 0 {
		e.floatBuf = audio.NormalizeToFloat(e.floatBuf, src, frames, f)

		var outFrames int
		e.pcmBuf, outFrames = audio.ResampleAndMix(e.pcmBuf, e.floatBuf,
			frames, f.Channels, f.Rate, e.sampleRate, e.channels)

		e.carry = append(e.carry, e.pcmBuf[:outFrames*e.channels]...)
		e.encodePasses()
	}

	return e.drain(dst), nil
}

// encodePasses feeds every complete pass from carry into the codec,
// retaining the partial remainder for the next call.
func (e *MP3Encoder) encodePasses() {
	for len(e.carry) >= e.passSamples {
		if err := e.enc.Write(&e.out, e.carry[:e.passSamples]); err != nil {
			// Per-buffer failure: drop the pass and keep the stream alive.
			e.logger.Error("mp3 encode failed", "error", err)
		}
		n := copy(e.carry, e.carry[e.passSamples:])
		e.carry = e.carry[:n]
	}
}

// drain moves as many carried bytes as fit into dst.
func (e *MP3Encoder) drain(dst []byte) int {
	if e.out.Len() == 0 || len(dst) == 0 {
		return 0
	}
	n := e.out.Len()
	if n > len(dst) {
		n = len(dst)
	}
	copy(dst, e.out.Next(n))
	return n
}

// Flush pads the final partial pass with silence, encodes it, and drains the
// byte carry-over. Callers loop until it returns 0.
func (e *MP3Encoder) Flush(dst []byte) int {
	if e.enc == nil {
		return 0
	}

	if len(e.carry) > 0 {
		for len(e.carry) < e.passSamples {
			e.carry = append(e.carry, 0)
		}
		e.encodePasses()
	}

	return e.drain(dst)
}

func (e *MP3Encoder) Uninit() {
	if e.enc != nil {
		e.logger.Info("mp3 encoder uninitialized")
	}
	e.enc = nil
	e.carry = e.carry[:0]
	e.out.Reset()
}

func (e *MP3Encoder) MimeType() string { return "audio/mpeg" }
func (e *MP3Encoder) Name() string     { return "MP3" }

// RecommendedBufferSize mirrors the classic worst-case mp3 bound of
// 1.25x the sample count plus 7200 bytes of codec slack.
func (e *MP3Encoder) RecommendedBufferSize(frames int) int {
	return frames*5/4 + 7200
}
