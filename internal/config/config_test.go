package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gateway.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 11400, cfg.PortRangeStart)
	assert.Equal(t, 11499, cfg.PortRangeEnd)
	assert.Equal(t, "ollama", cfg.Runtime.Binary)
	assert.Equal(t, "openchat", cfg.Runtime.DefaultModel)
	assert.Equal(t, "poll", cfg.Provision.SettleMode)
	assert.Equal(t, "8M", cfg.BodyLimit)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
port_range_start = 12000
port_range_end = 12010

[runtime]
binary = "/usr/local/bin/ollama"
run_timeout = "90s"

[provision]
settle_mode = "delay"
settle_delay = "5s"

[extract]
clean_html = true
max_html_chars = 5000
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12000, cfg.PortRangeStart)
	assert.Equal(t, "/usr/local/bin/ollama", cfg.Runtime.Binary)
	assert.Equal(t, 90*time.Second, cfg.Runtime.RunTimeout)
	assert.Equal(t, "delay", cfg.Provision.SettleMode)
	assert.True(t, cfg.Extract.CleanHTML)
	assert.Equal(t, 5000, cfg.Extract.MaxHTMLChars)
	// untouched values keep their defaults
	assert.Equal(t, "openchat", cfg.Runtime.DefaultModel)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestOverlay_FlagsWinOverFile(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	Default().BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--runtime-binary", "/opt/ollama", "--run-timeout", "2m"}))

	cfg, err := Load(writeConfig(t, "[runtime]\nbinary = \"from-file\"\ndefault_model = \"llama3\"\n"))
	require.NoError(t, err)
	require.NoError(t, cfg.Overlay(fs))

	assert.Equal(t, "/opt/ollama", cfg.Runtime.Binary)
	assert.Equal(t, 2*time.Minute, cfg.Runtime.RunTimeout)
	assert.Equal(t, "llama3", cfg.Runtime.DefaultModel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"inverted range", func(c *Config) { c.PortRangeStart, c.PortRangeEnd = 11499, 11400 }},
		{"port too high", func(c *Config) { c.PortRangeEnd = 70000 }},
		{"no binary", func(c *Config) { c.Runtime.Binary = "" }},
		{"zero runs", func(c *Config) { c.Runtime.MaxConcurrentRuns = 0 }},
		{"bad settle mode", func(c *Config) { c.Provision.SettleMode = "sleep" }},
		{"bad body limit", func(c *Config) { c.BodyLimit = "lots" }},
		{"empty body limit", func(c *Config) { c.BodyLimit = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
