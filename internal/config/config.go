// ABOUTME: Stream and server configuration with TOML loading and validation
// ABOUTME: Defaults mirror a plain 44.1 kHz stereo PCM stream on port 8000
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full runtime configuration. Zero values are replaced by
// defaults in Load and New; Validate enforces the codec input ranges.
type Config struct {
	Port       int    `toml:"port"`
	Codec      string `toml:"codec"`
	Bitrate    int    `toml:"bitrate"`
	Quality    int    `toml:"quality"`
	SampleRate int    `toml:"sample_rate"`
	Channels   int    `toml:"channels"`
	MaxClients int    `toml:"max_clients"`
	Name       string `toml:"name"`

	SendBufferSeconds     float64 `toml:"send_buffer_seconds"`
	BackpressureThreshold float64 `toml:"backpressure_threshold"`
	MaxFailedSends        int     `toml:"max_failed_sends"`

	MDNS        bool   `toml:"mdns"`
	MetricsPort int    `toml:"metrics_port"`
	LogFile     string `toml:"log_file"`
}

// New returns the default configuration.
func New() Config {
	return Config{
		Port:                  8000,
		Codec:                 "pcm",
		Bitrate:               128,
		Quality:               5,
		SampleRate:            44100,
		Channels:              2,
		MaxClients:            10,
		Name:                  "NetCast Audio Stream",
		SendBufferSeconds:     1.0,
		BackpressureThreshold: 0.9,
		MaxFailedSends:        10,
	}
}

// Load reads a TOML file over the defaults. A missing path returns the
// defaults unchanged; a present but unreadable or invalid file is an error.
func Load(path string) (Config, error) {
	cfg := New()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

var validRates = map[int]bool{11025: true, 22050: true, 44100: true, 48000: true}

// Validate checks every field against its allowed range.
func (c Config) Validate() error {
	if c.Port < 1024 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range 1024-65535", c.Port)
	}
	switch c.Codec {
	case "pcm", "mp3":
	default:
		return fmt.Errorf("codec %q must be pcm or mp3", c.Codec)
	}
	if c.Codec == "mp3" {
		if c.Bitrate < 32 || c.Bitrate > 320 {
			return fmt.Errorf("bitrate %d out of range 32-320", c.Bitrate)
		}
		if c.Quality < 0 || c.Quality > 9 {
			return fmt.Errorf("quality %d out of range 0-9", c.Quality)
		}
	}
	if !validRates[c.SampleRate] {
		return fmt.Errorf("sample_rate %d not one of 11025, 22050, 44100, 48000", c.SampleRate)
	}
	if c.Channels < 1 || c.Channels > 2 {
		return fmt.Errorf("channels %d must be 1 or 2", c.Channels)
	}
	if c.MaxClients < 1 {
		return fmt.Errorf("max_clients %d must be positive", c.MaxClients)
	}
	if c.SendBufferSeconds <= 0 || c.SendBufferSeconds > 10 {
		return fmt.Errorf("send_buffer_seconds %g out of range (0, 10]", c.SendBufferSeconds)
	}
	if c.BackpressureThreshold <= 0 || c.BackpressureThreshold > 1 {
		return fmt.Errorf("backpressure_threshold %g out of range (0, 1]", c.BackpressureThreshold)
	}
	if c.MaxFailedSends < 1 {
		return fmt.Errorf("max_failed_sends %d must be positive", c.MaxFailedSends)
	}
	if c.MetricsPort != 0 && (c.MetricsPort < 1024 || c.MetricsPort > 65535) {
		return fmt.Errorf("metrics_port %d out of range 1024-65535", c.MetricsPort)
	}
	return nil
}
