// ABOUTME: Tests for the streaming WAV header layout
// ABOUTME: Verifies the byte positions media players depend on
package audio

import (
	"encoding/binary"
	"testing"
)

func TestWAVHeaderLayout(t *testing.T) {
	h := NewWAVHeader(44100, 2)

	if len(h) != WAVHeaderSize {
		t.Fatalf("header size: got %d, want %d", len(h), WAVHeaderSize)
	}
	if string(h[0:4]) != "RIFF" || string(h[8:12]) != "WAVE" {
		t.Fatalf("bad RIFF/WAVE tags: %q %q", h[0:4], h[8:12])
	}
	if string(h[12:16]) != "fmt " || string(h[36:40]) != "data" {
		t.Fatalf("bad chunk tags: %q %q", h[12:16], h[36:40])
	}

	if got := binary.LittleEndian.Uint32(h[4:8]); got != 0xFFFFFFF7 {
		t.Errorf("RIFF size: got %#x, want 0xFFFFFFF7", got)
	}
	if got := binary.LittleEndian.Uint32(h[16:20]); got != 16 {
		t.Errorf("fmt chunk size: got %d, want 16", got)
	}
	if got := binary.LittleEndian.Uint16(h[20:22]); got != 1 {
		t.Errorf("format tag: got %d, want 1 (PCM)", got)
	}
	if got := binary.LittleEndian.Uint16(h[22:24]); got != 2 {
		t.Errorf("channels (bytes 22-23): got %d, want 2", got)
	}
	if got := binary.LittleEndian.Uint32(h[24:28]); got != 44100 {
		t.Errorf("sample rate (bytes 24-27): got %d, want 44100", got)
	}
	if got := binary.LittleEndian.Uint32(h[28:32]); got != 44100*2*2 {
		t.Errorf("byte rate: got %d, want %d", got, 44100*2*2)
	}
	if got := binary.LittleEndian.Uint16(h[32:34]); got != 4 {
		t.Errorf("block align: got %d, want 4", got)
	}
	if got := binary.LittleEndian.Uint16(h[34:36]); got != 16 {
		t.Errorf("bits per sample: got %d, want 16", got)
	}
	if got := binary.LittleEndian.Uint32(h[40:44]); got != 0xFFFFFFF7-36 {
		t.Errorf("data size: got %#x, want %#x", got, uint32(0xFFFFFFF7-36))
	}
}

func TestWAVHeaderMono(t *testing.T) {
	h := NewWAVHeader(22050, 1)

	if got := binary.LittleEndian.Uint16(h[22:24]); got != 1 {
		t.Errorf("channels: got %d, want 1", got)
	}
	if got := binary.LittleEndian.Uint32(h[24:28]); got != 22050 {
		t.Errorf("sample rate: got %d, want 22050", got)
	}
	if got := binary.LittleEndian.Uint32(h[28:32]); got != 22050*2 {
		t.Errorf("byte rate: got %d, want %d", got, 22050*2)
	}
	if got := binary.LittleEndian.Uint16(h[32:34]); got != 2 {
		t.Errorf("block align: got %d, want 2", got)
	}
}
