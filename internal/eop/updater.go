package eop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/star/framerot/internal/metrics"
	"github.com/star/framerot/internal/timescale"
)

// install stores d and publishes its size and coverage.
func install(store *Store, d Data, source string, at time.Time, logger *slog.Logger) {
	store.SetModel(d, source, at)
	first, last := d.Coverage()
	metrics.SetEOPTable(d.Model().String(), d.Len(), last-timescale.MJDOffset)
	logger.Info("EOP data loaded",
		"source", source,
		"model", d.Model().String(),
		"records", d.Len(),
		"first_mjd", first-timescale.MJDOffset,
		"last_mjd", last-timescale.MJDOffset,
	)
}

// Updater keeps a Store current from remote IERS products, caching every
// download so that a restart can serve data before the first fetch.
type Updater struct {
	store    *Store
	cache    *Cache
	fetchers map[Model]*Fetcher
	logger   *slog.Logger
}

// NewUpdater creates an Updater for the models present in urls.
func NewUpdater(store *Store, cache *Cache, urls map[Model]string, logger *slog.Logger) *Updater {
	fetchers := make(map[Model]*Fetcher, len(urls))
	for m, u := range urls {
		fetchers[m] = NewFetcher(u, logger)
	}
	return &Updater{
		store:    store,
		cache:    cache,
		fetchers: fetchers,
		logger:   logger,
	}
}

// models returns the configured models in a stable order.
func (u *Updater) models() []Model {
	var out []Model
	for _, m := range []Model{ModelIAU1980, ModelIAU2000A} {
		if _, ok := u.fetchers[m]; ok {
			out = append(out, m)
		}
	}
	return out
}

// LoadCache installs the newest cached file of each configured model and
// returns how many were loaded. Missing or unreadable files are logged.
func (u *Updater) LoadCache() int {
	loaded := 0
	for _, m := range u.models() {
		raw, ts, err := u.cache.LoadLatest(m)
		if err != nil {
			u.logger.Info("no cached EOP data", "model", m.String(), "error", err)
			continue
		}
		d, err := LoadBytes(raw, u.logger)
		if err == nil && d.Model() != m {
			err = fmt.Errorf("cached %s file holds %s data", m, d.Model())
		}
		metrics.IncEOPReload("cache", err == nil)
		if err != nil {
			u.logger.Warn("failed to load cached EOP data", "model", m.String(), "error", err)
			continue
		}
		install(u.store, d, "cache:"+u.cache.Dir(), ts, u.logger)
		loaded++
	}
	return loaded
}

// Refresh downloads, caches and installs the table for m.
func (u *Updater) Refresh(ctx context.Context, m Model) (Data, error) {
	f, ok := u.fetchers[m]
	if !ok {
		return nil, fmt.Errorf("no source configured for %s", m)
	}

	d, raw, err := u.fetch(ctx, f, m)
	metrics.IncEOPReload("fetch", err == nil)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if path, err := u.cache.Write(m, raw, now); err != nil {
		u.logger.Warn("failed to cache EOP data", "model", m.String(), "error", err)
	} else {
		u.logger.Debug("cached EOP data", "model", m.String(), "path", path)
	}
	install(u.store, d, f.SourceURL(), now, u.logger)
	return d, nil
}

func (u *Updater) fetch(ctx context.Context, f *Fetcher, m Model) (Data, []byte, error) {
	raw, err := f.Fetch(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching %s EOP data: %w", m, err)
	}
	d, err := LoadBytes(raw, u.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("loading %s EOP data from %s: %w", m, f.SourceURL(), err)
	}
	if d.Model() != m {
		return nil, nil, fmt.Errorf("%s source %s served %s data", m, f.SourceURL(), d.Model())
	}
	return d, raw, nil
}

// RefreshAll refreshes every configured model. A failed model keeps its
// previous data; the errors are joined.
func (u *Updater) RefreshAll(ctx context.Context) error {
	var errs []error
	for _, m := range u.models() {
		if _, err := u.Refresh(ctx, m); err != nil {
			u.logger.Warn("EOP refresh failed, keeping previous data", "model", m.String(), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run refreshes models that are missing or older than interval, then
// refreshes all of them every interval. Blocks until ctx is cancelled.
func (u *Updater) Run(ctx context.Context, interval time.Duration) {
	for _, m := range u.models() {
		age := u.store.AgeSeconds(m)
		if age >= 0 && age < interval.Seconds() {
			continue
		}
		if _, err := u.Refresh(ctx, m); err != nil {
			u.logger.Warn("initial EOP refresh failed", "model", m.String(), "error", err)
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			u.logger.Info("EOP updater stopped")
			return
		case <-ticker.C:
			u.RefreshAll(ctx)
		}
	}
}
