// Package main provides the cuatrace CLI for browsing and replaying agent execution traces.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"cuatrace/internal/config"
	"cuatrace/internal/format"
	"cuatrace/internal/logging"
	"cuatrace/internal/model"
	"cuatrace/internal/site"
	"cuatrace/internal/store"
	"cuatrace/internal/tui"
	"cuatrace/internal/view"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var version = "dev"

// app carries the resolved settings shared by every subcommand.
type app struct {
	cfgFile string
	cfg     config.Config
	// dataFs overrides the data filesystem; tests use it to avoid the OS.
	dataFs afero.Fs
}

// flagKeys maps CLI flag names to configuration keys.
var flagKeys = map[string]string{
	"data-dir":          "data_dir",
	"base-path":         "base_path",
	"manifest":          "manifest",
	"concurrency":       "concurrency",
	"log-level":         "log_level",
	"log-format":        "log_format",
	"autoplay":          "autoplay",
	"autoplay-interval": "autoplay_interval",
	"settle-duration":   "settle_duration",
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&app{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "cuatrace: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "cuatrace",
		Short:         "Browse, replay, and publish recorded agent execution traces",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.resolve(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: .cuatrace.yaml in the working or home directory)")
	flags.String("data-dir", "", "directory holding trace files (default: bundled samples; env: CUATRACE_DATA_DIR)")
	flags.String("base-path", "", "URL prefix applied to relative asset paths")
	flags.String("manifest", "", "manifest file name inside the data directory (default: manifest.yaml)")
	flags.Int("concurrency", 0, "maximum trace files read in parallel (default: 4)")
	flags.String("log-level", "", "log level: debug, info, warn, or error")
	flags.String("log-format", "", "log format: text or json")

	rootCmd.AddCommand(newListCmd(a))
	rootCmd.AddCommand(newViewCmd(a))
	rootCmd.AddCommand(newPlayCmd(a))
	rootCmd.AddCommand(newExportCmd(a))
	rootCmd.AddCommand(newValidateCmd(a))
	return rootCmd
}

// resolve merges config file, environment, and changed flags into a.cfg.
func (a *app) resolve(cmd *cobra.Command) error {
	v, err := config.New(a.cfgFile)
	if err != nil {
		return err
	}
	if err := bindFlags(v, cmd.Flags()); err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	logging.Setup(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	return nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind --%s: %w", name, err)
		}
	}
	return nil
}

// data returns the filesystem trace files and assets are read from.
func (a *app) data() afero.Fs {
	if a.dataFs != nil {
		return a.dataFs
	}
	if a.cfg.DataDir == "" {
		return store.Bundled()
	}
	return afero.NewBasePathFs(afero.NewOsFs(), a.cfg.DataDir)
}

func (a *app) load(ctx context.Context) (store.LoadResult, error) {
	fsys := a.data()
	manifest, found, err := store.ManifestOrRange(fsys, a.cfg.Manifest)
	if err != nil {
		return store.LoadResult{}, err
	}
	if !found {
		slog.Debug("no manifest, probing default range",
			"first", store.DefaultFirstID, "last", store.DefaultLastID)
	}
	return store.Load(ctx, fsys, store.Options{
		Manifest:    manifest,
		BasePath:    a.cfg.BasePath,
		Concurrency: a.cfg.Concurrency,
	})
}

func (a *app) loadOne(ctx context.Context, arg string) (model.Trace, error) {
	id, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return model.Trace{}, fmt.Errorf("invalid trace id %q", arg)
	}
	res, err := a.load(ctx)
	if err != nil {
		return model.Trace{}, err
	}
	return store.Find(res.Traces, id)
}

func newListCmd(a *app) *cobra.Command {
	var (
		formatFlag string
		noHeader   bool
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available traces",
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := a.load(cmd.Context())
			if err != nil {
				return err
			}

			errs := cmd.ErrOrStderr()
			for _, warn := range result.Warnings {
				fmt.Fprintf(errs, "warning: %v\n", warn) //nolint:errcheck
			}
			if verbose && len(result.Missing) > 0 {
				ids := make([]string, 0, len(result.Missing))
				for _, id := range result.Missing {
					ids = append(ids, strconv.Itoa(id))
				}
				fmt.Fprintf(errs, "missing: %s\n", strings.Join(ids, ", ")) //nolint:errcheck
			}

			return format.WriteSummaries(cmd.OutOrStdout(), format.Summarize(result.Traces), !noHeader, formatFlag)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&formatFlag, "format", "table", "output format: table, plain, json, or jsonl")
	flags.BoolVar(&noHeader, "no-header", false, "omit header row for table and plain output")
	flags.BoolVarP(&verbose, "verbose", "v", false, "also report candidate ids that had no trace file")

	return cmd
}

func newViewCmd(a *app) *cobra.Command {
	var (
		formatFlag   string
		wrap         int
		maxSteps     int
		at           float64
		forceColor   bool
		forceNoColor bool
	)

	cmd := &cobra.Command{
		Use:   "view <trace-id>",
		Short: "Render a trace timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if forceColor && forceNoColor {
				return errors.New("--color and --no-color cannot be used together")
			}

			tr, err := a.loadOne(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			opts := view.Options{
				Trace:        tr,
				Format:       formatFlag,
				Wrap:         wrap,
				MaxSteps:     maxSteps,
				ForceColor:   forceColor,
				ForceNoColor: forceNoColor,
				Out:          cmd.OutOrStdout(),
			}
			if cmd.Flags().Changed("at") {
				opts.At = &at
			}
			opts.OutFile, _ = opts.Out.(*os.File)
			return view.Run(opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&formatFlag, "format", "text", "output format: text, cards, or json")
	flags.IntVar(&wrap, "wrap", 0, "wrap thought and action bodies at the given column width")
	flags.IntVar(&maxSteps, "max", 0, "show only the last N steps (0 means no limit)")
	flags.Float64Var(&at, "at", 0, "mark the step active at this playback position in seconds")
	flags.BoolVar(&forceColor, "color", false, "force-enable ANSI colors even when stdout is not a TTY")
	flags.BoolVar(&forceNoColor, "no-color", false, "disable ANSI colors regardless of terminal detection")

	return cmd
}

func newPlayCmd(a *app) *cobra.Command {
	var startPlaying bool

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Replay traces in an interactive terminal carousel",
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			for _, warn := range result.Warnings {
				slog.Warn("trace skipped", "error", warn)
			}
			if len(result.Traces) == 0 {
				return errors.New("no traces to play")
			}
			return tui.Run(cmd.Context(), tui.Options{
				Traces:           result.Traces,
				Autoplay:         a.cfg.Autoplay,
				AutoplayInterval: a.cfg.AutoplayInterval,
				SettleDuration:   a.cfg.SettleDuration,
				Assets:           a.data(),
				BasePath:         a.cfg.BasePath,
				StartPlaying:     startPlaying,
			})
		},
	}

	flags := cmd.Flags()
	flags.Bool("autoplay", true, "advance to the next trace when idle")
	flags.Duration("autoplay-interval", 0, "idle time before autoplay advances (default: 10s)")
	flags.Duration("settle-duration", 0, "transition time between traces (default: 300ms)")
	flags.BoolVar(&startPlaying, "play", false, "start playing the first trace immediately")

	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var (
		outDir string
		title  string
		watch  bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a static web page replaying the traces",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			build := func(ctx context.Context) error {
				result, err := a.load(ctx)
				if err != nil {
					return err
				}
				for _, warn := range result.Warnings {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", warn) //nolint:errcheck
				}
				res, err := site.Export(ctx, afero.NewOsFs(), result.Traces, site.Options{
					OutDir:           outDir,
					BasePath:         a.cfg.BasePath,
					Assets:           a.data(),
					Title:            title,
					Autoplay:         a.cfg.Autoplay,
					AutoplayInterval: a.cfg.AutoplayInterval,
					SettleDuration:   a.cfg.SettleDuration,
				})
				if err != nil {
					return err
				}
				for _, missing := range res.Missing {
					fmt.Fprintf(cmd.ErrOrStderr(), "asset unavailable: %s\n", missing) //nolint:errcheck
				}
				fmt.Fprintf(out, "exported %d traces to %s (%d assets)\n", len(result.Traces), outDir, res.Copied) //nolint:errcheck
				return nil
			}

			if err := build(ctx); err != nil {
				return err
			}
			if !watch {
				return nil
			}
			if a.cfg.DataDir == "" {
				return errors.New("--watch requires --data-dir")
			}

			fmt.Fprintf(out, "watching %s\n", absOrSelf(a.cfg.DataDir)) //nolint:errcheck
			return site.Watch(ctx, a.cfg.DataDir, site.WatchOptions{Exclude: []string{outDir}},
				func(ctx context.Context, changed []string) error {
					slog.Info("rebuilding", "changed", len(changed))
					if err := build(ctx); err != nil {
						// Keep watching after a failed rebuild.
						slog.Error("export failed", "error", err)
					}
					return nil
				})
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&outDir, "out", "o", "dist", "output directory")
	flags.StringVar(&title, "title", "", "page title")
	flags.BoolVarP(&watch, "watch", "w", false, "rebuild when the data directory changes")
	flags.Bool("autoplay", true, "start the exported carousel with autoplay on")
	flags.Duration("autoplay-interval", 0, "idle time before autoplay advances (default: 10s)")

	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [trace-id...]",
		Short: "Check traces for empty timelines, bad ranges, and overlaps",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.load(cmd.Context())
			if err != nil {
				return err
			}

			traces := result.Traces
			if len(args) > 0 {
				traces = traces[:0:0]
				for _, arg := range args {
					id, err := strconv.Atoi(arg)
					if err != nil {
						return fmt.Errorf("invalid trace id %q", arg)
					}
					tr, err := store.Find(result.Traces, id)
					if err != nil {
						return err
					}
					traces = append(traces, tr)
				}
			}

			out := cmd.OutOrStdout()
			problems := len(result.Warnings)
			for _, warn := range result.Warnings {
				fmt.Fprintf(out, "error: %v\n", warn) //nolint:errcheck
			}
			for _, tr := range traces {
				issues := model.Validate(tr.Data)
				if len(issues) == 0 {
					fmt.Fprintf(out, "trace %d: ok\n", tr.ID) //nolint:errcheck
					continue
				}
				problems += len(issues)
				for _, issue := range issues {
					fmt.Fprintf(out, "trace %d: %s\n", tr.ID, issue) //nolint:errcheck
				}
			}
			if problems > 0 {
				return fmt.Errorf("%d problem(s) found", problems)
			}
			return nil
		},
	}
	return cmd
}

func absOrSelf(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
