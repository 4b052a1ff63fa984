// ABOUTME: PCM producers standing in for a host media pipeline
// ABOUTME: Defines the Source interface and the paced delivery pump
package source

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/netcast-project/netcast-go/internal/audio"
)

// Source yields raw audio bytes in a fixed native format.
type Source interface {
	// Read fills p with raw sample data and returns the byte count.
	Read(p []byte) (int, error)
	Format() audio.Format
	Name() string
	Close() error
}

// Sink consumes raw audio buffers, normally the orchestrator.
type Sink interface {
	HandleBuffer(src []byte, frames int, f audio.Format)
}

// Pump reads chunkFrames-sized buffers from src and delivers them to sink at
// real-time pace until ctx is canceled or the source ends.
func Pump(ctx context.Context, src Source, sink Sink, chunkFrames int, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	f := src.Format()
	buf := make([]byte, chunkFrames*f.BytesPerFrame())

	interval := time.Duration(chunkFrames) * time.Second / time.Duration(f.Rate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("source pump started",
		"source", src.Name(), "rate", f.Rate, "channels", f.Channels,
		"chunk_frames", chunkFrames)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		n, err := src.Read(buf)
		if n > 0 {
			sink.HandleBuffer(buf[:n], f.FrameCount(n), f)
		}
		if err != nil {
			if err == io.EOF {
				logger.Info("source ended", "source", src.Name())
				return nil
			}
			return err
		}
	}
}

// ReaderSource adapts an io.Reader carrying raw samples in a declared
// format, typically s16le on stdin.
type ReaderSource struct {
	r      io.Reader
	format audio.Format
	name   string
}

func NewReaderSource(r io.Reader, f audio.Format, name string) *ReaderSource {
	return &ReaderSource{r: r, format: f, name: name}
}

// Read fills p as far as the underlying reader allows, truncating to whole
// frames so a short read never splits a sample.
func (s *ReaderSource) Read(p []byte) (int, error) {
	n, err := io.ReadFull(s.r, p)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	frameBytes := s.format.BytesPerFrame()
	n -= n % frameBytes
	return n, err
}

func (s *ReaderSource) Format() audio.Format { return s.format }
func (s *ReaderSource) Name() string         { return s.name }

func (s *ReaderSource) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
