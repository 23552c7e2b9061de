// Command report renders the grade statistics as a standalone HTML page.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/gradebook/internal/config"
	"github.com/JonMunkholm/gradebook/internal/core"
	"github.com/JonMunkholm/gradebook/internal/logging"
	"github.com/JonMunkholm/gradebook/internal/report"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const defaultOutput = "reports/report.html"

type reportOptions struct {
	sourceDir string
	cacheDir  string
	output    string
	noCache   bool
}

func main() {
	if err := godotenv.Overload(); err == nil {
		slog.Debug("loaded .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	os.Exit(execute(newRootCmd(cfg), os.Stderr))
}

// execute runs cmd and reports a failure on stderr as the mapped user
// message. It returns the process exit code.
func execute(cmd *cobra.Command, stderr io.Writer) int {
	if err := cmd.Execute(); err != nil {
		slog.Error("report failed", "error", err)
		fmt.Fprintln(stderr, core.FormatUserError(err))
		return 1
	}
	return 0
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	opts := reportOptions{
		sourceDir: cfg.Data.SourceDir,
		cacheDir:  cfg.Data.CacheDir,
		output:    defaultOutput,
	}

	cmd := &cobra.Command{
		Use:           "report",
		Short:         "Generate an HTML report of student performance",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := runReport(cmd.Context(), opts, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "report written to", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.sourceDir, "source-dir", opts.sourceDir, "Directory holding the grade files")
	cmd.Flags().StringVar(&opts.cacheDir, "cache-dir", opts.cacheDir, "Cache directory")
	cmd.Flags().StringVarP(&opts.output, "output", "o", opts.output, "Report output path")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "Recompute from the source instead of the cache")

	return cmd
}

// runReport loads the newest source and writes the report to opts.output.
// A missing source produces the no-data page.
func runReport(ctx context.Context, opts reportOptions, now time.Time) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	loader := core.NewLoader(core.LoaderConfig{SourceDir: opts.sourceDir, CacheDir: opts.cacheDir})

	t, err := loader.Load(ctx, "", !opts.noCache)
	switch {
	case errors.Is(err, core.ErrNotFound):
		slog.Warn("no grade data found, writing empty report", "source_dir", opts.sourceDir)
		t = &core.Table{}
	case err != nil:
		return "", fmt.Errorf("load grades: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(opts.output), 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	r := report.Build(t, now)
	err = core.WriteFileAtomic(opts.output, func(w io.Writer) error {
		return report.Render(ctx, w, r)
	})
	if err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	slog.Info("report generated", "path", opts.output, "records", t.Len())
	return opts.output, nil
}
