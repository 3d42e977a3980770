package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/star/framerot/internal/config"
	"github.com/star/framerot/internal/eop"
	"github.com/star/framerot/internal/timescale"
)

func newEOPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eop",
		Short: "Manage Earth Orientation Parameter data",
	}
	cmd.AddCommand(newEOPFetchCmd(), newEOPInspectCmd())
	return cmd
}

func newEOPFetchCmd() *cobra.Command {
	cfg := config.DefaultConfig()
	var models []string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download IERS finals data into the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd.ErrOrStderr(), slog.LevelInfo)
			urls := map[eop.Model]string{}
			for _, s := range models {
				m, err := eop.ParseModel(s)
				if err != nil {
					return err
				}
				urls[m] = cfg.URL(m)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			u := eop.NewUpdater(eop.NewStore(), eop.NewCache(cfg.EOPCacheDir, cfg.EOPMaxFiles), urls, logger)
			for _, m := range []eop.Model{eop.ModelIAU1980, eop.ModelIAU2000A} {
				if _, ok := urls[m]; !ok {
					continue
				}
				d, err := u.Refresh(ctx, m)
				if err != nil {
					return err
				}
				printCoverage(cmd.OutOrStdout(), d)
			}
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringSliceVar(&models, "model", []string{"iau1980", "iau2000a"}, "models to fetch")
	fs.DurationVar(&timeout, "timeout", 2*time.Minute, "overall download timeout")
	fs.StringVar(&cfg.EOPCacheDir, "eop-cache-dir", cfg.EOPCacheDir, "directory for fetched EOP files")
	fs.IntVar(&cfg.EOPMaxFiles, "eop-max-files", cfg.EOPMaxFiles, "cached EOP files kept per model")
	fs.StringVar(&cfg.EOPIAU1980URL, "eop-iau1980-url", cfg.EOPIAU1980URL, "IAU-1980 EOP source URL")
	fs.StringVar(&cfg.EOPIAU2000AURL, "eop-iau2000a-url", cfg.EOPIAU2000AURL, "IAU-2000A EOP source URL")
	return cmd
}

func newEOPInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE...",
		Short: "Print the model and coverage of IERS finals CSV files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd.ErrOrStderr(), slog.LevelWarn)
			for _, path := range args {
				d, err := eop.LoadFile(path, logger)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ", path)
				printCoverage(cmd.OutOrStdout(), d)
			}
			return nil
		},
	}
}

func printCoverage(out io.Writer, d eop.Data) {
	first, last := d.Coverage()
	fmt.Fprintf(out, "%s: %d records, MJD %.1f to %.1f (%s to %s)\n",
		d.Model(), d.Len(),
		first-timescale.MJDOffset, last-timescale.MJDOffset,
		timescale.Time(first).Format(time.DateOnly), timescale.Time(last).Format(time.DateOnly),
	)
}
