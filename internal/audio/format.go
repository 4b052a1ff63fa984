// ABOUTME: Native sample format descriptions and normalization to float32
// ABOUTME: Unknown formats degrade to silence instead of failing the stream
package audio

import (
	"encoding/binary"
	"math"
)

// SampleFormat identifies the encoding of raw samples delivered by the
// host audio pipeline. Buffers are interleaved, little-endian.
type SampleFormat uint32

const (
	FormatUnknown SampleFormat = iota
	FormatFloat32
	FormatInt32
	FormatInt16
	FormatInt8
	FormatUint8
)

// String returns a short name for the sample format.
func (f SampleFormat) String() string {
	switch f {
	case FormatFloat32:
		return "float32"
	case FormatInt32:
		return "int32"
	case FormatInt16:
		return "int16"
	case FormatInt8:
		return "int8"
	case FormatUint8:
		return "uint8"
	default:
		return "unknown"
	}
}

// BytesPerSample returns the storage size of one sample, or 0 for unknown.
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case FormatFloat32, FormatInt32:
		return 4
	case FormatInt16:
		return 2
	case FormatInt8, FormatUint8:
		return 1
	default:
		return 0
	}
}

// Format describes one raw audio buffer: sample encoding, channel layout
// and frame rate as declared by the producer.
type Format struct {
	Encoding SampleFormat
	Rate     int
	Channels int
}

// BytesPerFrame returns the size of one interleaved frame.
func (f Format) BytesPerFrame() int {
	return f.Encoding.BytesPerSample() * f.Channels
}

// FrameCount returns how many complete frames fit in size bytes.
func (f Format) FrameCount(size int) int {
	bpf := f.BytesPerFrame()
	if bpf == 0 {
		return 0
	}
	return size / bpf
}

// NormalizeToFloat converts frames*f.Channels raw samples from src into
// float32 values in [-1, 1], appending into dst (which is reused when large
// enough). Full-scale divisors: 2^31 for int32, 2^15 for int16, 2^7 for the
// 8-bit formats, with uint8 centered at 128. An unknown encoding yields an
// all-zero buffer so downstream stays silent rather than crashing.
func NormalizeToFloat(dst []float32, src []byte, frames int, f Format) []float32 {
	n := frames * f.Channels
	if cap(dst) < n {
		dst = make([]float32, n)
	}
	dst = dst[:n]

	switch f.Encoding {
	case FormatFloat32:
		for i := 0; i < n; i++ {
			s := math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
			if s > 1 {
				s = 1
			} else if s < -1 {
				s = -1
			}
			dst[i] = s
		}
	case FormatInt32:
		for i := 0; i < n; i++ {
			s := int32(binary.LittleEndian.Uint32(src[i*4:]))
			dst[i] = float32(float64(s) / 2147483648.0)
		}
	case FormatInt16:
		for i := 0; i < n; i++ {
			s := int16(binary.LittleEndian.Uint16(src[i*2:]))
			dst[i] = float32(s) / 32768.0
		}
	case FormatInt8:
		for i := 0; i < n; i++ {
			dst[i] = float32(int8(src[i])) / 128.0
		}
	case FormatUint8:
		for i := 0; i < n; i++ {
			dst[i] = float32(int(src[i])-128) / 128.0
		}
	default:
		for i := range dst {
			dst[i] = 0
		}
	}

	return dst
}
