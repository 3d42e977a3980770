package config

import (
	"log/slog"

	"github.com/spf13/pflag"
)

// BindFlags registers the service flags on fs, writing into cfg. The current
// values of cfg are the flag defaults.
func BindFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	fs.BoolVar(&cfg.TrustProxy, "trust-proxy", cfg.TrustProxy, "trust X-Forwarded-For and X-Real-IP")

	fs.BoolVar(&cfg.AuthEnabled, "auth-enabled", cfg.AuthEnabled, "require a bearer token on non-public paths")
	fs.StringSliceVar(&cfg.AuthTokens, "auth-token", cfg.AuthTokens, "accepted bearer token (repeatable)")
	fs.StringSliceVar(&cfg.PublicPaths, "public-path", cfg.PublicPaths, "path served without auth (repeatable)")

	fs.StringVar(&cfg.EOPCacheDir, "eop-cache-dir", cfg.EOPCacheDir, "directory for fetched EOP files")
	fs.IntVar(&cfg.EOPMaxFiles, "eop-max-files", cfg.EOPMaxFiles, "cached EOP files kept per model")
	fs.StringSliceVar(&cfg.EOPFiles, "eop-file", cfg.EOPFiles, "local EOP CSV to load and watch (repeatable)")
	fs.BoolVar(&cfg.EOPFetch, "eop-fetch", cfg.EOPFetch, "periodically download EOP data")
	fs.DurationVar(&cfg.EOPFetchInterval, "eop-fetch-interval", cfg.EOPFetchInterval, "EOP download interval")
	fs.StringVar(&cfg.EOPIAU1980URL, "eop-iau1980-url", cfg.EOPIAU1980URL, "IAU-1980 EOP source URL")
	fs.StringVar(&cfg.EOPIAU2000AURL, "eop-iau2000a-url", cfg.EOPIAU2000AURL, "IAU-2000A EOP source URL")
	fs.StringVar(&cfg.EOPLookup, "eop-lookup", cfg.EOPLookup, "time scale of EOP lookups (utc, tt)")

	fs.IntVar(&cfg.SeriesWorkers, "series-workers", cfg.SeriesWorkers, "goroutines per rotation series")
	fs.IntVar(&cfg.SeriesMaxPoints, "series-max-points", cfg.SeriesMaxPoints, "largest accepted series")
}

// Changed returns the names of the flags set on the command line.
func Changed(fs *pflag.FlagSet) map[string]bool {
	changed := map[string]bool{}
	fs.Visit(func(f *pflag.Flag) { changed[f.Name] = true })
	return changed
}

// Load layers the config file at path (skipped when empty or missing) and
// the environment under the flags already parsed into cfg, then validates.
func Load(cfg *Config, path string, fs *pflag.FlagSet, logger *slog.Logger) error {
	changed := Changed(fs)
	if path != "" && FileExists(path) {
		fc, err := LoadFile(path)
		if err != nil {
			return err
		}
		if err := ApplyFile(cfg, fc, changed); err != nil {
			return err
		}
		logger.Info("loaded config file", "path", path)
	}
	ApplyEnv(cfg, changed, logger)
	return cfg.Validate()
}
