// ABOUTME: Entry point for the NetCast streaming server
// ABOUTME: Parses flags over the TOML config and wires the pipeline together
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/netcast-project/netcast-go/internal/audio"
	"github.com/netcast-project/netcast-go/internal/config"
	"github.com/netcast-project/netcast-go/internal/discovery"
	"github.com/netcast-project/netcast-go/internal/encoder"
	"github.com/netcast-project/netcast-go/internal/events"
	"github.com/netcast-project/netcast-go/internal/metrics"
	"github.com/netcast-project/netcast-go/internal/node"
	"github.com/netcast-project/netcast-go/internal/server"
	"github.com/netcast-project/netcast-go/internal/source"
	"github.com/netcast-project/netcast-go/web"
)

var (
	configPath  = flag.String("config", "netcast.toml", "Path to TOML config file")
	port        = flag.Int("port", 0, "HTTP stream port (overrides config)")
	codecName   = flag.String("codec", "", "Stream codec: pcm or mp3 (overrides config)")
	bitrate     = flag.Int("bitrate", 0, "MP3 bitrate in kbps (overrides config)")
	sampleRate  = flag.Int("rate", 0, "Output sample rate (overrides config)")
	channels    = flag.Int("channels", 0, "Output channels, 1 or 2 (overrides config)")
	streamName  = flag.String("name", "", "Stream name (overrides config)")
	audioFile   = flag.String("audio", "", "MP3 file to stream. Default: 440 Hz test tone")
	stdinSource = flag.Bool("stdin", false, "Read raw s16le audio from stdin at the output rate")
	logFile     = flag.String("log-file", "", "Also log to this file")
	debug       = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	applyFlags(&cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closeLog, err := buildLogger(cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	codec, err := encoder.ParseCodec(cfg.Codec)
	if err != nil {
		return err
	}

	bus := events.New()
	defer bus.Subscribe(func(e events.ClientConnectedEvent) {
		logger.Info("listener joined", "addr", e.Addr, "user_agent", e.UserAgent)
	})()
	defer bus.Subscribe(func(e events.ServerStartedEvent) {
		logger.Info("stream available", "url", e.StreamURL)
	})()

	var mx *metrics.Metrics
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.MetricsPort != 0 {
		mx = metrics.New(nil)
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsPort, logger); err != nil {
				logger.Error("metrics listener failed", "error", err)
			}
		}()
	}

	srv := server.New(server.Config{
		Port:                  cfg.Port,
		MaxClients:            cfg.MaxClients,
		SendBufferSeconds:     cfg.SendBufferSeconds,
		BackpressureThreshold: cfg.BackpressureThreshold,
		MaxFailedSends:        cfg.MaxFailedSends,
	}, web.Assets{}, events.NewBusListener(bus), mx, logger)

	n, err := node.New(node.StreamConfig{
		Name:       cfg.Name,
		Codec:      codec,
		SampleRate: cfg.SampleRate,
		Channels:   cfg.Channels,
		Bitrate:    cfg.Bitrate,
		Quality:    cfg.Quality,
	}, srv, logger)
	if err != nil {
		return err
	}

	if err := srv.Start(); err != nil {
		return err
	}
	defer srv.Stop()
	defer n.Shutdown()

	if cfg.MDNS {
		mgr := discovery.NewManager(discovery.Config{
			Name:  cfg.Name,
			Port:  cfg.Port,
			Codec: cfg.Codec,
		}, logger)
		if err := mgr.Advertise(); err != nil {
			logger.Warn("mdns advertisement failed", "error", err)
		} else {
			defer mgr.Stop()
		}
	}

	src, err := buildSource(cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutting down", "signal", sig.String())
		cancel()
	}()

	// Deliver roughly 10 ms chunks at the source's native rate.
	chunkFrames := src.Format().Rate / 100
	err = source.Pump(ctx, src, n, chunkFrames, logger)
	if err == context.Canceled {
		return nil
	}
	return err
}

func applyFlags(cfg *config.Config) {
	if *port != 0 {
		cfg.Port = *port
	}
	if *codecName != "" {
		cfg.Codec = *codecName
	}
	if *bitrate != 0 {
		cfg.Bitrate = *bitrate
	}
	if *sampleRate != 0 {
		cfg.SampleRate = *sampleRate
	}
	if *channels != 0 {
		cfg.Channels = *channels
	}
	if *streamName != "" {
		cfg.Name = *streamName
	}
	if *logFile != "" {
		cfg.LogFile = *logFile
	}
}

// buildLogger writes to stdout, and to the configured log file as well when
// one is set.
func buildLogger(path string) (*slog.Logger, func(), error) {
	var w io.Writer = os.Stdout
	closeLog := func() {}

	if path != "" {
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, f)
		closeLog = func() { f.Close() }
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), closeLog, nil
}

func buildSource(cfg config.Config) (source.Source, error) {
	switch {
	case *stdinSource:
		f := audio.Format{
			Encoding: audio.FormatInt16,
			Rate:     cfg.SampleRate,
			Channels: cfg.Channels,
		}
		return source.NewReaderSource(os.Stdin, f, "stdin"), nil
	case *audioFile != "":
		return source.NewMP3FileSource(*audioFile)
	default:
		return source.NewToneSource(), nil
	}
}
