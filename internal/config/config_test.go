package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/star/framerot/internal/eop"
	"github.com/star/framerot/internal/timescale"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))

const sampleTOML = `
http_addr = ":9090"
log_level = "debug"
trust_proxy = true

[auth]
enabled = true
tokens = ["0123456789abcdef"]

[eop]
cache_dir = "/var/lib/framerot"
max_files = 3
files = ["/data/finals.all.csv"]
fetch = true
fetch_interval = "6h"
lookup = "tt"

[series]
workers = 4
max_points = 500
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func newFlags(cfg *Config) *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs, cfg)
	return fs
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, timescale.UTC, cfg.Lookup())
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
	assert.Equal(t, eop.DefaultIAU2000AURL, cfg.URL(eop.ModelIAU2000A))
}

func TestLoadFile(t *testing.T) {
	cfg := DefaultConfig()
	fs := newFlags(&cfg)
	require.NoError(t, fs.Parse(nil))

	require.NoError(t, Load(&cfg, writeFile(t, sampleTOML), fs, testLogger))

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.True(t, cfg.TrustProxy)
	assert.True(t, cfg.AuthEnabled)
	assert.Equal(t, []string{"0123456789abcdef"}, cfg.AuthTokens)
	assert.Equal(t, "/var/lib/framerot", cfg.EOPCacheDir)
	assert.Equal(t, 3, cfg.EOPMaxFiles)
	assert.Equal(t, []string{"/data/finals.all.csv"}, cfg.EOPFiles)
	assert.True(t, cfg.EOPFetch)
	assert.Equal(t, 6*time.Hour, cfg.EOPFetchInterval)
	assert.Equal(t, timescale.TT, cfg.Lookup())
	assert.Equal(t, 4, cfg.SeriesWorkers)
	assert.Equal(t, 500, cfg.SeriesMaxPoints)

	// Untouched keys keep their defaults.
	assert.Equal(t, eop.DefaultIAU1980URL, cfg.EOPIAU1980URL)
	assert.Equal(t, DefaultConfig().PublicPaths, cfg.PublicPaths)
}

func TestPrecedence(t *testing.T) {
	t.Setenv("FRAMEROT_HTTP_ADDR", ":7070")
	t.Setenv("FRAMEROT_SERIES_WORKERS", "2")
	t.Setenv("FRAMEROT_EOP_MAX_FILES", "9")

	cfg := DefaultConfig()
	fs := newFlags(&cfg)
	require.NoError(t, fs.Parse([]string{"--eop-max-files=7"}))

	require.NoError(t, Load(&cfg, writeFile(t, sampleTOML), fs, testLogger))

	assert.Equal(t, ":7070", cfg.HTTPAddr, "env overrides file")
	assert.Equal(t, 2, cfg.SeriesWorkers, "env overrides file")
	assert.Equal(t, 7, cfg.EOPMaxFiles, "flag overrides env and file")
}

func TestEnvInvalidValuesKeepDefaults(t *testing.T) {
	t.Setenv("FRAMEROT_SERIES_WORKERS", "lots")
	t.Setenv("FRAMEROT_EOP_FETCH", "maybe")
	t.Setenv("FRAMEROT_EOP_FETCH_INTERVAL", "daily")
	t.Setenv("FRAMEROT_AUTH_TOKENS", " tokentoken1 , ,tokentoken2")

	cfg := DefaultConfig()
	want := cfg.SeriesWorkers
	ApplyEnv(&cfg, nil, testLogger)

	assert.Equal(t, want, cfg.SeriesWorkers)
	assert.False(t, cfg.EOPFetch)
	assert.Equal(t, 24*time.Hour, cfg.EOPFetchInterval)
	assert.Equal(t, []string{"tokentoken1", "tokentoken2"}, cfg.AuthTokens)
}

func TestMissingFileIsSkipped(t *testing.T) {
	cfg := DefaultConfig()
	fs := newFlags(&cfg)
	require.NoError(t, fs.Parse(nil))
	require.NoError(t, Load(&cfg, filepath.Join(t.TempDir(), "absent.toml"), fs, testLogger))
	assert.Equal(t, ":8080", cfg.HTTPAddr)
}

func TestLoadFileErrors(t *testing.T) {
	cfg := DefaultConfig()
	fs := newFlags(&cfg)
	require.NoError(t, fs.Parse(nil))

	err := Load(&cfg, writeFile(t, "http_addr = [unterminated"), fs, testLogger)
	assert.Error(t, err)

	cfg = DefaultConfig()
	fs = newFlags(&cfg)
	require.NoError(t, fs.Parse(nil))
	err = Load(&cfg, writeFile(t, "[eop]\nfetch_interval = \"soon\"\n"), fs, testLogger)
	assert.ErrorContains(t, err, "eop-fetch-interval")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"upper case level", func(c *Config) { c.LogLevel = "WARN" }, true},
		{"bad level", func(c *Config) { c.LogLevel = "verbose" }, false},
		{"empty addr", func(c *Config) { c.HTTPAddr = "" }, false},
		{"auth without tokens", func(c *Config) { c.AuthEnabled = true }, false},
		{"short token", func(c *Config) { c.AuthEnabled = true; c.AuthTokens = []string{"abc"} }, false},
		{"relative public path", func(c *Config) { c.PublicPaths = []string{"healthz"} }, false},
		{"zero workers", func(c *Config) { c.SeriesWorkers = 0 }, false},
		{"fetch interval too short", func(c *Config) { c.EOPFetchInterval = time.Second }, false},
		{"bad url", func(c *Config) { c.EOPIAU1980URL = "not a url" }, false},
		{"bad lookup", func(c *Config) { c.EOPLookup = "tai" }, false},
		{"TT lookup", func(c *Config) { c.EOPLookup = "TT" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestLogValueMasksTokens(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AuthTokens = []string{"supersecrettoken"}
	v := cfg.LogValue()
	assert.NotContains(t, v.String(), "supersecrettoken")
}
