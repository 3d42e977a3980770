package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/star/framerot/internal/api"
	"github.com/star/framerot/internal/auth"
	"github.com/star/framerot/internal/config"
	"github.com/star/framerot/internal/eop"
	"github.com/star/framerot/internal/frames"
	"github.com/star/framerot/internal/metrics"
)

func newServeCmd() *cobra.Command {
	cfg := config.DefaultConfig()
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP rotation service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfgPath
			if path == "" {
				path = config.DefaultPath()
			}
			logger := newLogger(os.Stdout, cfg.SlogLevel())
			if err := config.Load(&cfg, path, cmd.Flags(), logger); err != nil {
				return err
			}
			logger = newLogger(os.Stdout, cfg.SlogLevel())
			logger.Info("configuration", "config", cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "", "config file (default $HOME/.framerot/config.toml)")
	config.BindFlags(cmd.Flags(), &cfg)
	return cmd
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	store := eop.NewStore()
	updater := eop.NewUpdater(store, eop.NewCache(cfg.EOPCacheDir, cfg.EOPMaxFiles), map[eop.Model]string{
		eop.ModelIAU1980:  cfg.URL(eop.ModelIAU1980),
		eop.ModelIAU2000A: cfg.URL(eop.ModelIAU2000A),
	}, logger)

	if n := updater.LoadCache(); n == 0 {
		logger.Info("no cached EOP data, starting without EOP data until a fetch or file load")
	}

	if len(cfg.EOPFiles) > 0 {
		w := eop.NewWatcher(cfg.EOPFiles, store, logger, nil)
		go func() {
			if err := w.Run(ctx); err != nil {
				logger.Error("EOP file watcher stopped", "error", err)
			}
		}()
	}
	if cfg.EOPFetch {
		go updater.Run(ctx, cfg.EOPFetchInterval)
	}

	// Background goroutine to update the EOP age gauges.
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				for _, m := range []eop.Model{eop.ModelIAU1980, eop.ModelIAU2000A} {
					if age := store.AgeSeconds(m); age >= 0 {
						metrics.SetEOPAge(m.String(), age)
					}
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	expectData := cfg.EOPFetch || len(cfg.EOPFiles) > 0
	srv := api.NewServer(cfg.HTTPAddr, logger, api.Deps{
		Store:      store,
		Series:     frames.NewSeriesRunner(cfg.SeriesWorkers, logger),
		Lookup:     cfg.Lookup(),
		MaxPoints:  cfg.SeriesMaxPoints,
		TrustProxy: cfg.TrustProxy,
		Auth: auth.Config{
			Enabled:     cfg.AuthEnabled,
			Tokens:      cfg.AuthTokens,
			PublicPaths: cfg.PublicPaths,
		},
		Ready: func() error {
			if expectData && store.Get() == nil {
				return errors.New("no EOP data loaded")
			}
			return nil
		},
		Refresh: updater.RefreshAll,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.HTTPAddr, "auth_enabled", cfg.AuthEnabled, "eop_fetch_enabled", cfg.EOPFetch)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
