// ABOUTME: Tests for configuration defaults, TOML loading and validation
// ABOUTME: Uses testify for the table-driven range checks
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := New()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "pcm", cfg.Codec)
	assert.Equal(t, 44100, cfg.SampleRate)
	assert.Equal(t, 2, cfg.Channels)
	assert.Equal(t, 10, cfg.MaxClients)
	assert.Equal(t, 128, cfg.Bitrate)
	assert.InDelta(t, 0.9, cfg.BackpressureThreshold, 1e-9)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, New(), cfg)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, New(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netcast.toml")
	content := `
port = 9000
codec = "mp3"
bitrate = 192
sample_rate = 48000
channels = 1
name = "basement radio"
mdns = true
metrics_port = 9100
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "mp3", cfg.Codec)
	assert.Equal(t, 192, cfg.Bitrate)
	assert.Equal(t, 48000, cfg.SampleRate)
	assert.Equal(t, 1, cfg.Channels)
	assert.Equal(t, "basement radio", cfg.Name)
	assert.True(t, cfg.MDNS)
	assert.Equal(t, 9100, cfg.MetricsPort)

	// Untouched fields keep their defaults.
	assert.Equal(t, 10, cfg.MaxClients)
	assert.Equal(t, 5, cfg.Quality)
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("port = [not toml"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateRanges(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port too low", func(c *Config) { c.Port = 80 }},
		{"port too high", func(c *Config) { c.Port = 70000 }},
		{"unknown codec", func(c *Config) { c.Codec = "ogg" }},
		{"bitrate low", func(c *Config) { c.Codec = "mp3"; c.Bitrate = 16 }},
		{"bitrate high", func(c *Config) { c.Codec = "mp3"; c.Bitrate = 512 }},
		{"quality high", func(c *Config) { c.Codec = "mp3"; c.Quality = 11 }},
		{"bad sample rate", func(c *Config) { c.SampleRate = 8000 }},
		{"zero channels", func(c *Config) { c.Channels = 0 }},
		{"three channels", func(c *Config) { c.Channels = 3 }},
		{"zero max clients", func(c *Config) { c.MaxClients = 0 }},
		{"zero send buffer", func(c *Config) { c.SendBufferSeconds = 0 }},
		{"threshold above one", func(c *Config) { c.BackpressureThreshold = 1.5 }},
		{"zero failed sends", func(c *Config) { c.MaxFailedSends = 0 }},
		{"metrics port low", func(c *Config) { c.MetricsPort = 80 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := New()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidatePCMIgnoresBitrate(t *testing.T) {
	cfg := New()
	cfg.Codec = "pcm"
	cfg.Bitrate = 9999
	assert.NoError(t, cfg.Validate())
}
