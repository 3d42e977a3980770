// Package config loads service configuration. Values are layered in the
// order defaults, TOML file, FRAMEROT_* environment variables and command
// line flags; an explicitly set flag always wins.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/star/framerot/internal/eop"
	"github.com/star/framerot/internal/timescale"
)

// validate is shared; building a validator is expensive.
var validate = validator.New()

// Config holds the service configuration.
type Config struct {
	HTTPAddr   string `validate:"required"`
	LogLevel   string `validate:"oneof=debug info warn error"`
	TrustProxy bool

	AuthEnabled bool
	AuthTokens  []string `validate:"dive,min=8"`
	PublicPaths []string `validate:"dive,startswith=/"`

	EOPCacheDir      string        `validate:"required"`
	EOPMaxFiles      int           `validate:"min=1,max=100"`
	EOPFiles         []string      `validate:"dive,required"`
	EOPFetch         bool
	EOPFetchInterval time.Duration `validate:"min=1m"`
	EOPIAU1980URL    string        `validate:"required,url"`
	EOPIAU2000AURL   string        `validate:"required,url"`
	EOPLookup        string        `validate:"oneof=utc tt"`

	SeriesWorkers   int `validate:"min=1,max=256"`
	SeriesMaxPoints int `validate:"min=1,max=1000000"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:         ":8080",
		LogLevel:         "info",
		PublicPaths:      []string{"/healthz", "/readyz", "/metrics", "/api/v1/frames", "/api/v1/eop/metadata"},
		EOPCacheDir:      "/tmp/framerot/eop",
		EOPMaxFiles:      5,
		EOPFetchInterval: 24 * time.Hour,
		EOPIAU1980URL:    eop.DefaultIAU1980URL,
		EOPIAU2000AURL:   eop.DefaultIAU2000AURL,
		EOPLookup:        "utc",
		SeriesWorkers:    runtime.NumCPU(),
		SeriesMaxPoints:  10000,
	}
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	c.LogLevel = strings.ToLower(c.LogLevel)
	c.EOPLookup = strings.ToLower(c.EOPLookup)

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if c.AuthEnabled && len(c.AuthTokens) == 0 {
		return errors.New("at least one auth token is required when auth is enabled")
	}
	return nil
}

// Lookup returns the time scale used for EOP lookups.
func (c Config) Lookup() timescale.Scale {
	if c.EOPLookup == "tt" {
		return timescale.TT
	}
	return timescale.UTC
}

// SlogLevel maps LogLevel to a slog level.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// URL returns the fetch URL for an EOP model.
func (c Config) URL(m eop.Model) string {
	if m == eop.ModelIAU2000A {
		return c.EOPIAU2000AURL
	}
	return c.EOPIAU1980URL
}

// LogValue masks the auth tokens.
func (c Config) LogValue() slog.Value {
	tokens := make([]string, len(c.AuthTokens))
	for i := range tokens {
		tokens[i] = "*****"
	}
	return slog.GroupValue(
		slog.String("http_addr", c.HTTPAddr),
		slog.String("log_level", c.LogLevel),
		slog.Bool("trust_proxy", c.TrustProxy),
		slog.Bool("auth_enabled", c.AuthEnabled),
		slog.Any("auth_tokens", tokens),
		slog.Any("public_paths", c.PublicPaths),
		slog.String("eop_cache_dir", c.EOPCacheDir),
		slog.Int("eop_max_files", c.EOPMaxFiles),
		slog.Any("eop_files", c.EOPFiles),
		slog.Bool("eop_fetch", c.EOPFetch),
		slog.Float64("eop_fetch_interval_seconds", c.EOPFetchInterval.Seconds()),
		slog.String("eop_lookup", c.EOPLookup),
		slog.Int("series_workers", c.SeriesWorkers),
		slog.Int("series_max_points", c.SeriesMaxPoints),
	)
}

// configSetter applies values unless the corresponding flag was set.
type configSetter struct {
	changed map[string]bool
	logger  *slog.Logger
}

func newConfigSetter(changed map[string]bool, logger *slog.Logger) *configSetter {
	return &configSetter{changed: changed, logger: logger}
}

func (s *configSetter) skip(flag string, empty bool) bool {
	return empty || s.changed[flag]
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if s.skip(flag, value == "") {
		return
	}
	*dst = value
}

func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if s.skip(flag, len(value) == 0) {
		return
	}
	*dst = value
}

func (s *configSetter) setInt(flag string, value int, dst *int) {
	if s.skip(flag, value <= 0) {
		return
	}
	*dst = value
}

func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if s.skip(flag, value == nil) {
		return
	}
	*dst = *value
}

func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if s.skip(flag, value == "") {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}
