// ABOUTME: Tests for the PCM passthrough encoder
// ABOUTME: Checks byte order, buffer sizing and lifecycle errors
package encoder

import (
	"encoding/binary"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/netcast-project/netcast-go/internal/audio"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// rawInt16 packs interleaved int16 samples as a little-endian byte buffer.
func rawInt16(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

func sineInt16(frames, channels int, freq, rate float64) []int16 {
	out := make([]int16, frames*channels)
	for i := 0; i < frames; i++ {
		s := int16(math.Sin(2*math.Pi*freq*float64(i)/rate) * 16000)
		for c := 0; c < channels; c++ {
			out[i*channels+c] = s
		}
	}
	return out
}

func TestPCMEncodeRequiresInit(t *testing.T) {
	enc, err := New(CodecPCM, 0, discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	f := audio.Format{Encoding: audio.FormatInt16, Rate: 44100, Channels: 2}
	if _, err := enc.Encode(make([]byte, 64), make([]byte, 16), 4, f); err == nil {
		t.Fatal("expected error before SetOutputFormat")
	}
}

func TestPCMEncodePassthrough(t *testing.T) {
	enc, err := New(CodecPCM, 0, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := enc.SetOutputFormat(44100, 2, 0); err != nil {
		t.Fatal(err)
	}

	const frames = 128
	samples := sineInt16(frames, 2, 440, 44100)
	src := rawInt16(samples)
	f := audio.Format{Encoding: audio.FormatInt16, Rate: 44100, Channels: 2}

	dst := make([]byte, enc.RecommendedBufferSize(frames))
	n, err := enc.Encode(dst, src, frames, f)
	if err != nil {
		t.Fatal(err)
	}
	if n != frames*2*2 {
		t.Fatalf("encoded %d bytes, want %d", n, frames*2*2)
	}

	// Same rate and channel count: output equals input modulo quantization.
	for i := 0; i < frames*2; i++ {
		got := int16(binary.LittleEndian.Uint16(dst[i*2:]))
		if diff := int(got) - int(samples[i]); diff < -2 || diff > 2 {
			t.Fatalf("sample %d: got %d, want %d", i, got, samples[i])
		}
	}
}

func TestPCMEncodeResamplesToStreamFormat(t *testing.T) {
	enc, err := New(CodecPCM, 0, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := enc.SetOutputFormat(48000, 2, 0); err != nil {
		t.Fatal(err)
	}

	const frames = 441
	src := rawInt16(sineInt16(frames, 1, 440, 44100))
	f := audio.Format{Encoding: audio.FormatInt16, Rate: 44100, Channels: 1}

	wantFrames := frames * 48000 / 44100
	dst := make([]byte, enc.RecommendedBufferSize(wantFrames+1))
	n, err := enc.Encode(dst, src, frames, f)
	if err != nil {
		t.Fatal(err)
	}
	if n != wantFrames*2*2 {
		t.Fatalf("encoded %d bytes, want %d", n, wantFrames*2*2)
	}
}

func TestPCMEncodeShortDestination(t *testing.T) {
	enc, err := New(CodecPCM, 0, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := enc.SetOutputFormat(44100, 2, 0); err != nil {
		t.Fatal(err)
	}

	const frames = 64
	src := rawInt16(sineInt16(frames, 2, 440, 44100))
	f := audio.Format{Encoding: audio.FormatInt16, Rate: 44100, Channels: 2}

	n, err := enc.Encode(make([]byte, 10), src, frames, f)
	if err == nil {
		t.Fatal("expected short-buffer error")
	}
	if n != 0 {
		t.Fatalf("short encode produced %d bytes, want 0", n)
	}
}

func TestPCMFlushIsEmpty(t *testing.T) {
	enc, err := New(CodecPCM, 0, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := enc.SetOutputFormat(44100, 2, 0); err != nil {
		t.Fatal(err)
	}
	if n := enc.Flush(make([]byte, 1024)); n != 0 {
		t.Fatalf("flush returned %d bytes, want 0", n)
	}
}

func TestPCMMetadata(t *testing.T) {
	enc, _ := New(CodecPCM, 0, discardLogger())
	if enc.MimeType() != "audio/wav" {
		t.Errorf("mime type: got %q", enc.MimeType())
	}
	if enc.Name() != "PCM" {
		t.Errorf("name: got %q", enc.Name())
	}
	if err := enc.SetOutputFormat(44100, 2, 0); err != nil {
		t.Fatal(err)
	}
	if got := enc.RecommendedBufferSize(1000); got != 1000*2*2 {
		t.Errorf("recommended size: got %d, want %d", got, 1000*2*2)
	}
	if enc.RecommendedBufferSize(2000) != 2*enc.RecommendedBufferSize(1000) {
		t.Error("recommended size is not linear in the frame count")
	}
}

func TestPCMRejectsBadFormat(t *testing.T) {
	enc, _ := New(CodecPCM, 0, discardLogger())
	if err := enc.SetOutputFormat(0, 2, 0); err == nil {
		t.Error("expected error for zero sample rate")
	}
	if err := enc.SetOutputFormat(44100, 3, 0); err == nil {
		t.Error("expected error for 3 channels")
	}
}
