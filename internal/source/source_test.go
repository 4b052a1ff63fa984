// ABOUTME: Tests for the demo sources and the delivery pump
// ABOUTME: Uses an in-memory sink to observe delivered buffers
package source

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/netcast-project/netcast-go/internal/audio"
)

type captureSink struct {
	mu      sync.Mutex
	buffers [][]byte
	frames  int
	format  audio.Format
}

func (c *captureSink) HandleBuffer(src []byte, frames int, f audio.Format) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := make([]byte, len(src))
	copy(b, src)
	c.buffers = append(c.buffers, b)
	c.frames += frames
	c.format = f
}

func (c *captureSink) totalFrames() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

func TestToneSourceFillsWholeFrames(t *testing.T) {
	s := NewToneSource()
	f := s.Format()
	if f.Rate != 44100 || f.Channels != 2 || f.Encoding != audio.FormatInt16 {
		t.Fatalf("format = %+v", f)
	}

	buf := make([]byte, 1024*f.BytesPerFrame())
	n, err := s.Read(buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(buf) {
		t.Fatalf("read %d bytes, want %d", n, len(buf))
	}

	// Half-volume tone never exceeds half scale.
	for i := 0; i < n; i += 2 {
		v := int16(binary.LittleEndian.Uint16(buf[i:]))
		if v > 16384 || v < -16384 {
			t.Fatalf("sample %d out of half-scale range", v)
		}
	}

	// Left and right carry the same signal.
	for i := 0; i < 100; i++ {
		l := binary.LittleEndian.Uint16(buf[i*4:])
		r := binary.LittleEndian.Uint16(buf[i*4+2:])
		if l != r {
			t.Fatalf("frame %d: l=%d r=%d", i, l, r)
		}
	}
}

func TestToneSourceIsContinuous(t *testing.T) {
	s := NewToneSource()
	f := s.Format()

	one := make([]byte, 256*f.BytesPerFrame())
	s.Read(one)
	two := make([]byte, 256*f.BytesPerFrame())
	s.Read(two)

	// A second read continues the phase rather than restarting the wave.
	if bytes.Equal(one, two) {
		t.Fatal("second read repeated the first; sample index not advancing")
	}
}

func TestReaderSourceTruncatesToFrames(t *testing.T) {
	f := audio.Format{Encoding: audio.FormatInt16, Rate: 44100, Channels: 2}
	raw := make([]byte, 10) // two full frames plus a split sample
	src := NewReaderSource(bytes.NewReader(raw), f, "stdin")

	buf := make([]byte, 16)
	n, err := src.Read(buf)
	if err != io.EOF {
		t.Fatalf("err = %v, want EOF", err)
	}
	if n != 8 {
		t.Fatalf("n = %d, want 8 (whole frames only)", n)
	}
}

func TestPumpDeliversAndStops(t *testing.T) {
	sink := &captureSink{}
	src := NewToneSource()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Pump(ctx, src, sink, 441, slog.New(slog.NewTextHandler(io.Discard, nil)))
	}()

	deadline := time.Now().Add(5 * time.Second)
	for sink.totalFrames() < 441*3 {
		if time.Now().After(deadline) {
			t.Fatal("pump never delivered three chunks")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("pump returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pump did not stop on cancel")
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.format.Rate != 44100 || sink.format.Channels != 2 {
		t.Errorf("delivered format = %+v", sink.format)
	}
	if len(sink.buffers[0]) != 441*4 {
		t.Errorf("chunk size = %d, want %d", len(sink.buffers[0]), 441*4)
	}
}

func TestPumpEndsOnEOF(t *testing.T) {
	f := audio.Format{Encoding: audio.FormatInt16, Rate: 44100, Channels: 1}
	raw := make([]byte, 441*2*4) // four chunks of mono s16le
	src := NewReaderSource(bytes.NewReader(raw), f, "mem")
	sink := &captureSink{}

	err := Pump(context.Background(), src, sink, 441, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("pump returned %v", err)
	}
	if got := sink.totalFrames(); got != 441*4 {
		t.Fatalf("delivered %d frames, want %d", got, 441*4)
	}
}
