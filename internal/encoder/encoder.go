// ABOUTME: Codec abstraction producing encoded chunks from raw audio buffers
// ABOUTME: Closed variant set: PCM passthrough and MP3
package encoder

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/netcast-project/netcast-go/internal/audio"
)

// Codec selects one of the built-in encoder variants.
type Codec int

const (
	CodecPCM Codec = iota
	CodecMP3
)

// String returns the configuration name of the codec.
func (c Codec) String() string {
	switch c {
	case CodecPCM:
		return "pcm"
	case CodecMP3:
		return "mp3"
	default:
		return "unknown"
	}
}

// ParseCodec maps a configuration string to a Codec.
func ParseCodec(s string) (Codec, error) {
	switch s {
	case "pcm", "wav", "":
		return CodecPCM, nil
	case "mp3":
		return CodecMP3, nil
	default:
		return CodecPCM, fmt.Errorf("%w: %q", ErrUnknownCodec, s)
	}
}

var (
	ErrUnknownCodec      = errors.New("unknown codec")
	ErrNotInitialized    = errors.New("encoder not initialized")
	ErrUnsupportedRate   = errors.New("unsupported sample rate")
	ErrInvalidChannels   = errors.New("channel count must be 1 or 2")
	ErrBitrateOutOfRange = errors.New("bitrate must be between 32 and 320 kbps")
	ErrShortOutputBuffer = errors.New("output buffer too small for encoded chunk")
)

// Encoder converts raw audio buffers into an encoded byte stream. Encode
// normalizes and resamples the native input to the configured output format
// before compression. Implementations are not safe for concurrent use; the
// orchestrator serializes all calls under its encoder lock.
type Encoder interface {
	// SetOutputFormat (re)initializes the codec for the given stream format.
	// On error the encoder stays unusable until the next successful call.
	SetOutputFormat(sampleRate, channels, bitrate int) error

	// Encode converts frames of raw audio in the declared native format and
	// writes encoded bytes into dst, returning the byte count. A codec that
	// holds back input (minimum-chunk constraints) may return 0 without
	// error; bytes it produced beyond len(dst) are carried over to the next
	// call.
	Encode(dst []byte, src []byte, frames int, f audio.Format) (int, error)

	// Flush drains codec-held state into dst, returning the byte count.
	// Callers loop until it returns 0.
	Flush(dst []byte) int

	// Uninit releases codec state. The encoder may be reinitialized with
	// SetOutputFormat afterwards.
	Uninit()

	// MimeType returns the content type served to stream clients.
	MimeType() string

	// Name returns the human-readable codec name.
	Name() string

	// RecommendedBufferSize returns the output buffer size needed to encode
	// the given number of frames in one call.
	RecommendedBufferSize(frames int) int
}

// New creates the encoder variant for codec. The MP3 quality knob (0-9,
// lower is better) is validated and recorded but the pure-Go codec uses a
// fixed psychoacoustic model.
func New(codec Codec, quality int, logger *slog.Logger) (Encoder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch codec {
	case CodecPCM:
		return &PCMEncoder{logger: logger}, nil
	case CodecMP3:
		if quality < 0 || quality > 9 {
			return nil, fmt.Errorf("mp3 quality %d out of range 0-9", quality)
		}
		return &MP3Encoder{logger: logger, quality: quality}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCodec, codec)
	}
}
