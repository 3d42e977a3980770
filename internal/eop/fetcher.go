package eop

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	// DefaultIAU1980URL serves IERS finals data with dPsi/dEps.
	DefaultIAU1980URL = "https://datacenter.iers.org/data/csv/finals.all.csv"
	// DefaultIAU2000AURL serves IERS finals data with dX/dY.
	DefaultIAU2000AURL = "https://datacenter.iers.org/data/csv/finals2000A.all.csv"

	maxBodyBytes = 50 << 20
)

// DefaultURL returns the IERS product for the given model.
func DefaultURL(m Model) string {
	if m == ModelIAU2000A {
		return DefaultIAU2000AURL
	}
	return DefaultIAU1980URL
}

// Fetcher retrieves raw EOP files from a remote source.
type Fetcher struct {
	sourceURL  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFetcher creates a Fetcher for the given source URL.
func NewFetcher(sourceURL string, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		sourceURL: sourceURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

// SourceURL returns the configured source URL.
func (f *Fetcher) SourceURL() string {
	return f.sourceURL
}

// Fetch performs an HTTP GET and returns the body. Bodies larger than 50 MB
// are rejected.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching EOP data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, f.sourceURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("response from %s exceeds %d byte limit", f.sourceURL, maxBodyBytes)
	}

	f.logger.Info("fetched EOP data", "url", f.sourceURL, "bytes", len(body), "duration_ms", time.Since(start).Milliseconds())
	return body, nil
}
