package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/star/framerot/internal/config"
	"github.com/star/framerot/internal/eop"
	"github.com/star/framerot/internal/frames"
	"github.com/star/framerot/internal/rotation"
	"github.com/star/framerot/internal/timescale"
)

type rotateOptions struct {
	from, to string
	at       string
	jd       float64
	repr     string
	eopFile  string
	eopMode  string
	cacheDir string
	lookup   string
}

func newRotateCmd() *cobra.Command {
	opts := rotateOptions{
		eopMode:  "auto",
		cacheDir: config.DefaultConfig().EOPCacheDir,
		lookup:   "utc",
	}

	cmd := &cobra.Command{
		Use:   "rotate",
		Short: "Print the rotation between two frames at an epoch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd.ErrOrStderr(), slog.LevelWarn)
			return runRotate(cmd.OutOrStdout(), opts, cmd.Flags().Changed("jd"), logger)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&opts.from, "from", "", "source frame")
	fs.StringVar(&opts.to, "to", "", "target frame")
	fs.StringVar(&opts.at, "time", "", "epoch as RFC 3339 UTC (default now)")
	fs.Float64Var(&opts.jd, "jd", 0, "epoch as a UTC Julian Date")
	fs.StringVar(&opts.repr, "repr", "matrix", "output representation (matrix, quaternion)")
	fs.StringVar(&opts.eopFile, "eop-file", "", "IERS finals CSV to use")
	fs.StringVar(&opts.eopMode, "eop", opts.eopMode, "EOP selection (auto, none, iau1980, iau2000a)")
	fs.StringVar(&opts.cacheDir, "eop-cache-dir", opts.cacheDir, "cache searched when no --eop-file is given")
	fs.StringVar(&opts.lookup, "eop-lookup", opts.lookup, "time scale of EOP lookups (utc, tt)")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	cmd.MarkFlagsMutuallyExclusive("time", "jd")
	return cmd
}

func runRotate(out io.Writer, opts rotateOptions, haveJD bool, logger *slog.Logger) error {
	from, err := frames.ParseFrame(opts.from)
	if err != nil {
		return err
	}
	to, err := frames.ParseFrame(opts.to)
	if err != nil {
		return err
	}
	rep, err := rotation.ParseRepresentation(opts.repr)
	if err != nil {
		return err
	}

	jd := opts.jd
	if !haveJD {
		t := time.Now().UTC()
		if opts.at != "" {
			if t, err = time.Parse(time.RFC3339Nano, opts.at); err != nil {
				return fmt.Errorf("invalid --time: %w", err)
			}
		}
		jd = timescale.JulianDate(t.UTC())
	}

	var lookup []frames.Option
	switch strings.ToLower(opts.lookup) {
	case "utc":
	case "tt":
		lookup = append(lookup, frames.WithEOPLookup(timescale.TT))
	default:
		return fmt.Errorf("invalid --eop-lookup %q", opts.lookup)
	}

	data, err := rotateData(opts, from, to, logger)
	if err != nil {
		return err
	}

	route, err := frames.Plan(from, to, data)
	if err != nil {
		return err
	}
	v, err := frames.Rotate(rep, from, to, jd, data, lookup...)
	if err != nil {
		return err
	}

	model := "none"
	if data != nil {
		model = data.Model().String()
	}
	fmt.Fprintf(out, "%s -> %s at JD %.8f UTC (%s)\n", from, to, jd, timescale.Time(jd).Format(time.RFC3339))
	fmt.Fprintf(out, "family: %s  eop: %s\n", route.Family, model)
	fmt.Fprintf(out, "route:  %s\n", strings.Join(route.Steps, ", "))
	printValue(out, v)
	return nil
}

// rotateData picks the EOP data for the conversion: an explicit file, or
// the cached table of a model the pair supports.
func rotateData(opts rotateOptions, from, to frames.Frame, logger *slog.Logger) (eop.Data, error) {
	mode := strings.ToLower(opts.eopMode)
	if mode == "none" {
		return nil, nil
	}
	if opts.eopFile != "" {
		return eop.LoadFile(opts.eopFile, logger)
	}

	candidates := []eop.Model{eop.ModelIAU1980, eop.ModelIAU2000A}
	if mode != "auto" {
		m, err := eop.ParseModel(mode)
		if err != nil {
			return nil, err
		}
		candidates = []eop.Model{m}
	}

	store := eop.NewStore()
	urls := make(map[eop.Model]string, len(candidates))
	for _, m := range candidates {
		urls[m] = eop.DefaultURL(m)
	}
	eop.NewUpdater(store, eop.NewCache(opts.cacheDir, 1), urls, logger).LoadCache()

	for _, m := range candidates {
		d := store.ForModel(m)
		if d == nil {
			continue
		}
		if _, err := frames.Plan(from, to, d); err == nil {
			return d, nil
		}
	}
	if mode != "auto" {
		return nil, fmt.Errorf("no cached %s data in %s; run 'framerot eop fetch' first", mode, opts.cacheDir)
	}
	return nil, nil
}

func printValue(out io.Writer, v rotation.Value) {
	switch r := v.(type) {
	case rotation.DCM:
		for _, row := range r.Rows() {
			fmt.Fprintf(out, "  [% .15f % .15f % .15f]\n", row[0], row[1], row[2])
		}
	case rotation.Quat:
		q0, q1, q2, q3 := r.Components()
		fmt.Fprintf(out, "  q = [% .15f % .15f % .15f % .15f]\n", q0, q1, q2, q3)
	}
}
