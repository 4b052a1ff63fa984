// ABOUTME: Orchestrator wiring raw audio buffers through encode and broadcast
// ABOUTME: Serializes encoder access and manages output-format transitions
package node

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/netcast-project/netcast-go/internal/audio"
	"github.com/netcast-project/netcast-go/internal/encoder"
	"github.com/netcast-project/netcast-go/internal/server"
)

// inputRates is the set of native sample rates accepted from the host
// pipeline. Buffers in any other rate are dropped as per-buffer errors.
var inputRates = map[int]bool{
	8000:  true,
	11025: true,
	16000: true,
	22050: true,
	24000: true,
	32000: true,
	44100: true,
	48000: true,
	88200: true,
	96000: true,
}

// outputRates is the allowlist for the configured stream rate.
var outputRates = map[int]bool{
	11025: true,
	22050: true,
	44100: true,
	48000: true,
}

// StreamConfig is the output side of the pipeline: what every connected
// client receives.
type StreamConfig struct {
	Name       string
	Codec      encoder.Codec
	SampleRate int
	Channels   int
	Bitrate    int
	Quality    int
}

func (c StreamConfig) validate() error {
	if !outputRates[c.SampleRate] {
		return fmt.Errorf("%w: %d", encoder.ErrUnsupportedRate, c.SampleRate)
	}
	if c.Channels < 1 || c.Channels > 2 {
		return fmt.Errorf("%w: %d", encoder.ErrInvalidChannels, c.Channels)
	}
	if c.Codec == encoder.CodecMP3 && (c.Bitrate < 32 || c.Bitrate > 320) {
		return fmt.Errorf("%w: %d", encoder.ErrBitrateOutOfRange, c.Bitrate)
	}
	return nil
}

// Broadcaster is the server-side surface the orchestrator drives.
type Broadcaster interface {
	BroadcastData(chunk []byte)
	ClearClientBuffers()
	SetStreamHeader(header []byte)
	SetStreamInfo(info server.StreamInfo)
}

// Node owns the encoder and feeds the broadcast server. HandleBuffer and
// SetStreamConfig serialize on the encoder lock so a format change can never
// interleave with an encode.
type Node struct {
	logger *slog.Logger
	srv    Broadcaster

	mu      sync.Mutex
	enc     encoder.Encoder
	cfg     StreamConfig
	out     []byte
	dropped uint64
}

// New builds a node with an initialized encoder and configures the server's
// stream metadata. The server is not started here.
func New(cfg StreamConfig, srv Broadcaster, logger *slog.Logger) (*Node, error) {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Node{logger: logger, srv: srv}
	if err := n.applyConfigLocked(cfg); err != nil {
		return nil, err
	}
	return n, nil
}

// applyConfigLocked validates cfg, builds and initializes the encoder, and
// pushes metadata and header to the server. Caller holds mu (or owns n
// exclusively during construction).
func (n *Node) applyConfigLocked(cfg StreamConfig) error {
	if err := cfg.validate(); err != nil {
		return err
	}

	enc, err := encoder.New(cfg.Codec, cfg.Quality, n.logger)
	if err != nil {
		return fmt.Errorf("create encoder: %w", err)
	}
	if err := enc.SetOutputFormat(cfg.SampleRate, cfg.Channels, cfg.Bitrate); err != nil {
		return fmt.Errorf("init %s encoder: %w", enc.Name(), err)
	}

	n.enc = enc
	n.cfg = cfg

	if cfg.Codec == encoder.CodecPCM {
		n.srv.SetStreamHeader(audio.NewWAVHeader(cfg.SampleRate, cfg.Channels))
	} else {
		n.srv.SetStreamHeader(nil)
	}
	n.srv.SetStreamInfo(server.StreamInfo{
		Name:       cfg.Name,
		MimeType:   enc.MimeType(),
		CodecName:  enc.Name(),
		SampleRate: cfg.SampleRate,
		Channels:   cfg.Channels,
		Bitrate:    cfg.Bitrate,
	})

	n.logger.Info("stream configured",
		"codec", enc.Name(), "rate", cfg.SampleRate, "channels", cfg.Channels,
		"bitrate", cfg.Bitrate)
	return nil
}

// Config returns the active stream configuration.
func (n *Node) Config() StreamConfig {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cfg
}

// HandleBuffer encodes one raw audio buffer and broadcasts the result.
// Encode failures and unsupported input rates drop the buffer and keep the
// stream alive.
func (n *Node) HandleBuffer(src []byte, frames int, f audio.Format) {
	if frames <= 0 {
		return
	}
	if !inputRates[f.Rate] {
		n.mu.Lock()
		n.dropped++
		dropped := n.dropped
		n.mu.Unlock()
		n.logger.Warn("dropping buffer with unsupported rate", "rate", f.Rate, "dropped", dropped)
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	need := n.enc.RecommendedBufferSize(frames * n.cfg.SampleRate / f.Rate)
	n.growOutput(need)
	written, err := n.enc.Encode(n.out, src, frames, f)
	if err != nil {
		n.logger.Error("encode failed, dropping buffer", "error", err)
		return
	}
	if written > 0 {
		n.srv.BroadcastData(n.out[:written])
	}
}

// SetStreamConfig switches the output format. The old encoder is flushed and
// its tail broadcast in the old format, then client buffers are cleared so
// no stale bytes cross the format boundary, then the new encoder takes over.
// On validation or init failure the previous configuration stays active.
func (n *Node) SetStreamConfig(cfg StreamConfig) error {
	if err := cfg.validate(); err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if cfg == n.cfg {
		return nil
	}

	n.growOutput(n.enc.RecommendedBufferSize(4096))
	for {
		tail := n.enc.Flush(n.out)
		if tail == 0 {
			break
		}
		n.srv.BroadcastData(n.out[:tail])
	}
	n.enc.Uninit()

	if err := n.applyConfigLocked(cfg); err != nil {
		// Roll back to the previous encoder so the stream keeps going.
		if rbErr := n.applyConfigLocked(n.cfg); rbErr != nil {
			n.logger.Error("rollback after failed format change", "error", rbErr)
		}
		return err
	}

	n.srv.ClearClientBuffers()
	return nil
}

// Shutdown flushes and releases the encoder. The final tail is broadcast so
// connected clients hear the stream out.
func (n *Node) Shutdown() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.growOutput(n.enc.RecommendedBufferSize(4096))
	for {
		tail := n.enc.Flush(n.out)
		if tail == 0 {
			break
		}
		n.srv.BroadcastData(n.out[:tail])
	}
	n.enc.Uninit()
	n.logger.Info("node shut down", "dropped_buffers", n.dropped)
}

// growOutput keeps the scratch output buffer grow-only.
func (n *Node) growOutput(size int) {
	if cap(n.out) < size {
		n.out = make([]byte, size)
	}
	n.out = n.out[:cap(n.out)]
}
