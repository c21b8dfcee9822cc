package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/vertextoedge/pagemirror/internal/adapter/filesystem"
	"github.com/vertextoedge/pagemirror/internal/adapter/httpclient"
	"github.com/vertextoedge/pagemirror/internal/adapter/sqlite"
	"github.com/vertextoedge/pagemirror/internal/config"
	"github.com/vertextoedge/pagemirror/internal/domain"
	"github.com/vertextoedge/pagemirror/internal/logger"
	"github.com/vertextoedge/pagemirror/internal/service/fetcher"
	"github.com/vertextoedge/pagemirror/internal/service/maintenance"
	"github.com/vertextoedge/pagemirror/internal/service/mirror"
)

// flagBindings maps config keys to CLI flags
var flagBindings = map[string]string{
	"mirror.output_root":         "output",
	"mirror.worker_count":        "workers",
	"mirror.request_timeout":     "timeout",
	"mirror.user_agent":          "user-agent",
	"mirror.skip_existing":       "skip-existing",
	"mirror.run_timeout":         "run-timeout",
	"mirror.requests_per_second": "rps",
	"mirror.max_asset_size_mb":   "max-asset-size-mb",
	"manifest.enabled":           "manifest",
	"manifest.path":              "manifest-path",
	"logging.level":              "log-level",
	"logging.format":             "log-format",
}

type rootOptions struct {
	v          *viper.Viper
	configPath string
	jsonOutput bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{v: config.New()}

	cmd := &cobra.Command{
		Use:   "pagemirror <url>",
		Short: "pagemirror - save a web page and its static assets locally",
		Long: `pagemirror fetches a single page, saves it as index.html and downloads every
stylesheet, script, image, font, video and audio file it references into
per-category directories under the output root.

Assets that fail are reported in the summary; only a page that cannot be
fetched makes the command fail.`,
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMirror(cmd, opts, args[0])
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to a YAML configuration file")
	flags.StringP("log-level", "l", "info", "log level (debug|info|warn|error)")
	flags.String("log-format", "text", "log format (json|text)")
	flags.Bool("manifest", true, "record runs in the SQLite manifest")
	flags.String("manifest-path", "", "manifest database path (default <output>/"+config.ManifestFileName+")")

	local := cmd.Flags()
	local.StringP("output", "o", "scraped_files", "output root directory")
	local.IntP("workers", "w", 8, "number of parallel downloads")
	local.Duration("timeout", 0, "per-request timeout (default 10s)")
	local.String("user-agent", "", "User-Agent header (default desktop Chrome)")
	local.Bool("skip-existing", false, "do not re-download assets whose file already exists")
	local.Duration("run-timeout", 0, "abort assets not started after this long (0 = no limit)")
	local.Float64("rps", 0, "maximum requests per second (0 = unlimited)")
	local.Int("max-asset-size-mb", 0, "fail assets larger than this (0 = unlimited)")
	local.BoolVar(&opts.jsonOutput, "json", false, "print the full report as JSON")

	cmd.AddCommand(newHistoryCmd(opts))
	return cmd
}

// loadConfig binds the flags that were set on cmd and loads the configuration
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	for key, name := range flagBindings {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		// Unset flags must not mask file or environment values
		if !f.Changed {
			continue
		}
		if err := opts.v.BindPFlag(key, f); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	cfg, err := config.Load(opts.v, opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

func runMirror(cmd *cobra.Command, opts *rootOptions, targetURL string) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	defer logger.Sync()

	zapLogger := logger.GetZapLogger()
	zapLogger.Debug("starting pagemirror",
		zap.String("version", version),
		zap.String("config", opts.configPath),
	)

	client := httpclient.New(&httpclient.Config{
		Timeout:           cfg.Mirror.GetRequestTimeout(),
		UserAgent:         cfg.Mirror.GetUserAgent(),
		RequestsPerSecond: cfg.Mirror.RequestsPerSecond,
		MaxPageBytes:      httpclient.DefaultConfig().MaxPageBytes,
		MaxConnsPerHost:   cfg.Mirror.WorkerCount,
	})

	fsManager := filesystem.NewManagerWithFs(afero.NewOsFs(), cfg.Mirror.GetBufferSize())

	var manifest mirror.Manifest
	if cfg.Manifest.Enabled {
		dbPath := cfg.Manifest.GetPath(cfg.Mirror.OutputRoot)
		store, err := sqlite.Open(dbPath)
		if err != nil {
			// The manifest is an audit log; mirror without it
			zapLogger.Warn("failed to open manifest", zap.Error(err), zap.String("path", dbPath))
		} else {
			defer store.Close()
			manifest = store
		}
	}

	svc := mirror.New(&mirror.Config{
		OutputRoot: cfg.Mirror.OutputRoot,
		Fetcher: &fetcher.Config{
			WorkerCount:   cfg.Mirror.WorkerCount,
			SkipExisting:  cfg.Mirror.SkipExisting,
			MaxAssetBytes: cfg.Mirror.GetMaxAssetBytes(),
		},
		Maintenance: &maintenance.Config{
			TempFileMaxAge:  cfg.Maintenance.GetTempFileMaxAge(),
			StaleRunTimeout: cfg.Maintenance.GetStaleRunTimeout(),
		},
		RunTimeout:       cfg.Mirror.GetRunTimeout(),
		ProgressInterval: cfg.Mirror.GetProgressInterval(),
	}, client, fsManager, manifest, zapLogger)

	report, err := svc.Run(cmd.Context(), targetURL)
	if err != nil {
		if domain.IsFetchError(err) {
			return fmt.Errorf("failed to fetch page: %w", err)
		}
		return fmt.Errorf("mirror failed: %w", err)
	}

	if opts.jsonOutput {
		return writeJSON(cmd.OutOrStdout(), report.View())
	}
	printReport(cmd.OutOrStdout(), report)
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printReport writes the human readable summary
func printReport(w io.Writer, report *mirror.Report) {
	s := report.Summary
	fmt.Fprintf(w, "Mirrored %s into %s\n", report.TargetURL, report.OutputRoot)
	fmt.Fprintf(w, "  assets:  %d\n", s.Total())
	fmt.Fprintf(w, "  saved:   %d (%s)\n", s.Saved, humanize.Bytes(uint64(s.Bytes)))
	fmt.Fprintf(w, "  skipped: %d\n", s.Skipped)
	fmt.Fprintf(w, "  failed:  %d\n", s.Failed)
	fmt.Fprintf(w, "  took:    %s\n", report.Duration.Round(time.Millisecond))

	failures := report.Failures()
	if len(failures) == 0 {
		return
	}
	fmt.Fprintln(w, "Failed assets:")
	for _, r := range failures {
		fmt.Fprintf(w, "  [%s] %s: %s\n", r.Reference.Category, r.Reference.URL, r.ErrorString())
	}
}
