package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/star/framerot/internal/eop"
	"github.com/star/framerot/internal/frames"
	"github.com/star/framerot/internal/timescale"
)

// selectEOP resolves the "eop" parameter for a conversion between from
// and to. "auto" (the default) picks a loaded table of a family both frames
// share, preferring IAU-1980 as the dispatcher does. It falls back to no data
// only while the store is empty; once any table is loaded, a pair none of
// them serves is unavailable. "none" forces the approximation. A named model
// must be loaded.
func selectEOP(store *eop.Store, mode string, from, to frames.Frame) (eop.Data, error) {
	switch strings.ToLower(mode) {
	case "", "auto":
		if store == nil || store.Get() == nil {
			return nil, nil
		}
		common := from.Families() & to.Families()
		if common&frames.FK5 != 0 {
			if d := store.ForModel(eop.ModelIAU1980); d != nil {
				return d, nil
			}
		}
		if common&frames.IAU2006 != 0 {
			if d := store.ForModel(eop.ModelIAU2000A); d != nil {
				return d, nil
			}
		}
		if common == 0 {
			// The dispatcher reports the mismatch.
			return nil, nil
		}
		return nil, errEOPUnavailable
	case "none":
		return nil, nil
	}

	m, err := eop.ParseModel(strings.ToLower(mode))
	if err != nil {
		return nil, badRequest("invalid eop %q, want auto, none, iau1980 or iau2000a", mode)
	}
	if store == nil {
		return nil, errEOPUnavailable
	}
	d := store.ForModel(m)
	if d == nil {
		return nil, errEOPUnavailable
	}
	return d, nil
}

func modelName(d eop.Data) string {
	if d == nil {
		return "none"
	}
	return d.Model().String()
}

type eopModelJSON struct {
	Model      string     `json:"model"`
	Loaded     bool       `json:"loaded"`
	Records    int        `json:"records,omitempty"`
	FirstMJD   float64    `json:"first_mjd,omitempty"`
	LastMJD    float64    `json:"last_mjd,omitempty"`
	Source     string     `json:"source,omitempty"`
	LoadedAt   *time.Time `json:"loaded_at,omitempty"`
	AgeSeconds float64    `json:"age_seconds,omitempty"`
}

func eopMetadataHandler(store *eop.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds := store.Get()
		var models []eopModelJSON
		for _, m := range []eop.Model{eop.ModelIAU1980, eop.ModelIAU2000A} {
			entry := eopModelJSON{Model: m.String()}
			if d := ds.ForModel(m); d != nil {
				first, last := d.Coverage()
				entry.Loaded = true
				entry.Records = d.Len()
				entry.FirstMJD = first - timescale.MJDOffset
				entry.LastMJD = last - timescale.MJDOffset
				entry.Source = ds.Sources[m]
				at := ds.LoadedAt[m]
				entry.LoadedAt = &at
				entry.AgeSeconds = store.AgeSeconds(m)
			}
			models = append(models, entry)
		}
		writeJSON(w, http.StatusOK, map[string]any{"models": models})
	}
}

func eopFetchHandler(logger *slog.Logger, refresh func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 45*time.Second)
		defer cancel()

		if err := refresh(ctx); err != nil {
			logger.Warn("manual EOP refresh failed", "component", "api", "error", err)
			writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error(), "code": "eop_fetch_failed"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
