package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
)

var longHelp = strings.TrimSpace(`
Rotate vectors and attitudes between Earth-fixed and inertial reference frames.

Frames: ITRF, PEF, TIRS, MOD, TOD, GCRF, J2000, TEME, CIRS. Conversions use the
FK5 (IAU-76/FK5) or IAU-2006 (CIO based) models, driven by IERS Earth
Orientation Parameters when available.
`)

var exampleUsage = strings.TrimSpace(`
  framerot serve --config $HOME/.framerot/config.toml
  framerot rotate --from ITRF --to GCRF --time 1986-06-19T21:35:00Z --eop-file finals.all.csv
  framerot eop fetch --model iau2000a
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "framerot",
		Short:         "ECEF/ECI frame rotation service",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newRotateCmd(), newEOPCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
