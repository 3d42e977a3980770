package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnv applies FRAMEROT_* environment variables, skipping changed flags.
// Malformed values are logged and ignored, keeping the previous value.
func ApplyEnv(cfg *Config, changed map[string]bool, logger *slog.Logger) {
	s := newConfigSetter(changed, logger)

	s.setString("addr", os.Getenv("FRAMEROT_HTTP_ADDR"), &cfg.HTTPAddr)
	s.setString("log-level", os.Getenv("FRAMEROT_LOG_LEVEL"), &cfg.LogLevel)
	s.envBool("trust-proxy", "FRAMEROT_TRUST_PROXY", &cfg.TrustProxy)

	s.envBool("auth-enabled", "FRAMEROT_AUTH_ENABLED", &cfg.AuthEnabled)
	s.setStrings("auth-token", splitList(os.Getenv("FRAMEROT_AUTH_TOKENS")), &cfg.AuthTokens)
	s.setStrings("public-path", splitList(os.Getenv("FRAMEROT_PUBLIC_PATHS")), &cfg.PublicPaths)

	s.setString("eop-cache-dir", os.Getenv("FRAMEROT_EOP_CACHE_DIR"), &cfg.EOPCacheDir)
	s.envInt("eop-max-files", "FRAMEROT_EOP_MAX_FILES", &cfg.EOPMaxFiles)
	s.setStrings("eop-file", splitList(os.Getenv("FRAMEROT_EOP_FILES")), &cfg.EOPFiles)
	s.envBool("eop-fetch", "FRAMEROT_EOP_FETCH", &cfg.EOPFetch)
	s.envDuration("eop-fetch-interval", "FRAMEROT_EOP_FETCH_INTERVAL", &cfg.EOPFetchInterval)
	s.setString("eop-iau1980-url", os.Getenv("FRAMEROT_EOP_IAU1980_URL"), &cfg.EOPIAU1980URL)
	s.setString("eop-iau2000a-url", os.Getenv("FRAMEROT_EOP_IAU2000A_URL"), &cfg.EOPIAU2000AURL)
	s.setString("eop-lookup", os.Getenv("FRAMEROT_EOP_LOOKUP"), &cfg.EOPLookup)

	s.envInt("series-workers", "FRAMEROT_SERIES_WORKERS", &cfg.SeriesWorkers)
	s.envInt("series-max-points", "FRAMEROT_SERIES_MAX_POINTS", &cfg.SeriesMaxPoints)
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s *configSetter) envInt(flag, key string, dst *int) {
	v := os.Getenv(key)
	if s.skip(flag, v == "") {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		s.logger.Warn("invalid "+key+" value, using default", "value", v, "default", *dst)
		return
	}
	*dst = n
}

func (s *configSetter) envBool(flag, key string, dst *bool) {
	v := os.Getenv(key)
	if s.skip(flag, v == "") {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		s.logger.Warn("invalid "+key+" value, using default", "value", v, "default", *dst)
		return
	}
	*dst = b
}

func (s *configSetter) envDuration(flag, key string, dst *time.Duration) {
	v := os.Getenv(key)
	if s.skip(flag, v == "") {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		s.logger.Warn("invalid "+key+" value, using default", "value", v, "default", dst.String())
		return
	}
	*dst = d
}
