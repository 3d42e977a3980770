package config

import (
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config with TOML-friendly types. Durations are strings
// and booleans are pointers so that an absent key leaves the default.
type FileConfig struct {
	HTTPAddr   string `toml:"http_addr"`
	LogLevel   string `toml:"log_level"`
	TrustProxy *bool  `toml:"trust_proxy"`

	Auth struct {
		Enabled     *bool    `toml:"enabled"`
		Tokens      []string `toml:"tokens"`
		PublicPaths []string `toml:"public_paths"`
	} `toml:"auth"`

	EOP struct {
		CacheDir      string   `toml:"cache_dir"`
		MaxFiles      int      `toml:"max_files"`
		Files         []string `toml:"files"`
		Fetch         *bool    `toml:"fetch"`
		FetchInterval string   `toml:"fetch_interval"`
		IAU1980URL    string   `toml:"iau1980_url"`
		IAU2000AURL   string   `toml:"iau2000a_url"`
		Lookup        string   `toml:"lookup"`
	} `toml:"eop"`

	Series struct {
		Workers   int `toml:"workers"`
		MaxPoints int `toml:"max_points"`
	} `toml:"series"`
}

// DefaultPath returns ~/.framerot/config.toml, or "" without a home directory.
func DefaultPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".framerot", "config.toml")
	}
	return ""
}

// FileExists reports whether p exists.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// LoadFile reads and parses a TOML config file.
func LoadFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, fmt.Errorf("parse %s: %w", path, err)
	}
	return fc, nil
}

// ApplyFile copies the values set in fc onto cfg, skipping changed flags.
func ApplyFile(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed, nil)

	s.setString("addr", fc.HTTPAddr, &cfg.HTTPAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setBool("trust-proxy", fc.TrustProxy, &cfg.TrustProxy)

	s.setBool("auth-enabled", fc.Auth.Enabled, &cfg.AuthEnabled)
	s.setStrings("auth-token", fc.Auth.Tokens, &cfg.AuthTokens)
	s.setStrings("public-path", fc.Auth.PublicPaths, &cfg.PublicPaths)

	s.setString("eop-cache-dir", fc.EOP.CacheDir, &cfg.EOPCacheDir)
	s.setInt("eop-max-files", fc.EOP.MaxFiles, &cfg.EOPMaxFiles)
	s.setStrings("eop-file", fc.EOP.Files, &cfg.EOPFiles)
	s.setBool("eop-fetch", fc.EOP.Fetch, &cfg.EOPFetch)
	if err := s.setDuration("eop-fetch-interval", fc.EOP.FetchInterval, &cfg.EOPFetchInterval); err != nil {
		return err
	}
	s.setString("eop-iau1980-url", fc.EOP.IAU1980URL, &cfg.EOPIAU1980URL)
	s.setString("eop-iau2000a-url", fc.EOP.IAU2000AURL, &cfg.EOPIAU2000AURL)
	s.setString("eop-lookup", fc.EOP.Lookup, &cfg.EOPLookup)

	s.setInt("series-workers", fc.Series.Workers, &cfg.SeriesWorkers)
	s.setInt("series-max-points", fc.Series.MaxPoints, &cfg.SeriesMaxPoints)
	return nil
}
