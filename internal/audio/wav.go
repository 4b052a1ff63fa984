// ABOUTME: Streaming WAV header for live PCM output
// ABOUTME: Declares the maximum RIFF size since the true length is unknown
package audio

import "encoding/binary"

// WAVHeaderSize is the fixed size of the streaming header in bytes.
const WAVHeaderSize = 44

// riffMaxSize is the declared chunk size for an endless stream: the RIFF
// field counts everything after itself, so the cap is 0xFFFFFFFF minus the
// 8 bytes of tag and length.
const riffMaxSize = 0xFFFFFFFF - 8

// NewWAVHeader builds the 44-byte little-endian header sent to each PCM
// client before any audio bytes: PCM format tag 1, 16 bits per sample, and
// oversized placeholder lengths for both the RIFF and data chunks.
func NewWAVHeader(sampleRate, channels int) []byte {
	h := make([]byte, WAVHeaderSize)

	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], riffMaxSize)
	copy(h[8:12], "WAVE")

	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16)
	binary.LittleEndian.PutUint16(h[20:22], 1)
	binary.LittleEndian.PutUint16(h[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(h[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(h[28:32], uint32(sampleRate*channels*2))
	binary.LittleEndian.PutUint16(h[32:34], uint16(channels*2))
	binary.LittleEndian.PutUint16(h[34:36], 16)

	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], riffMaxSize-36)

	return h
}
