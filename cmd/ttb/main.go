// Command ttb builds k-in-a-row tablebases and answers probes against them.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kinarow/egtb/internal/config"
	"github.com/kinarow/egtb/internal/logx"
	"github.com/kinarow/egtb/internal/tablebase"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := newApp()
	if err := a.root().ExecuteContext(ctx); err != nil {
		stop()
		a.logger.Fatal().Err(err).Msg("ttb")
	}
}

// app carries the resolved configuration shared by every subcommand.
type app struct {
	cfg    config.Config
	logger zerolog.Logger

	configPath string
	dims       string
	runLength  int
	dir        string
	workers    int
	logLevel   string
}

func newApp() *app {
	logger, _ := logx.NewLogger("info")
	return &app{logger: logger}
}

func (a *app) root() *cobra.Command {
	root := &cobra.Command{
		Use:           "ttb",
		Short:         "k-in-a-row endgame tablebases",
		Long:          "Generate, probe, verify and archive perfect-play tablebases for k-in-a-row on N-dimensional boards.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.resolve(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "YAML config file")
	f.StringVar(&a.dims, "dims", "", "board shape, e.g. 3x3 or 4x4x4")
	f.IntVar(&a.runLength, "run", 0, "marks in a row needed to win")
	f.StringVar(&a.dir, "dir", "", "tablebase directory")
	f.IntVar(&a.workers, "workers", 0, "parallel classifiers")
	f.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		a.generateCmd(),
		a.probeCmd(),
		a.verifyCmd(),
		a.archiveCmd(),
		a.extractCmd(),
		a.serveCmd(),
	)
	return root
}

// resolve layers defaults, the config file, the environment and finally
// any flags the user actually set.
func (a *app) resolve(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	f := cmd.Flags()
	if f.Changed("dims") {
		dims, err := config.ParseDims(a.dims)
		if err != nil {
			return err
		}
		cfg.Dims = dims
	}
	if f.Changed("run") {
		cfg.RunLength = a.runLength
	}
	if f.Changed("dir") {
		cfg.Dir = a.dir
	}
	if f.Changed("workers") {
		cfg.Workers = a.workers
	}
	if f.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logx.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) tablebase() tablebase.Config {
	return a.cfg.Tablebase(a.logger)
}

// manifest loads the manifest for the configured shape. A missing manifest
// is tolerated with a warning so loose tables can still be probed.
func (a *app) manifest(required bool) (*tablebase.Manifest, error) {
	m, err := tablebase.LoadManifest(a.cfg.Dir, a.cfg.Dims, a.cfg.RunLength)
	if err == nil {
		return m, nil
	}
	if required || !os.IsNotExist(err) {
		return nil, err
	}
	a.logger.Warn().Str("dir", a.cfg.Dir).Msg("no manifest found, skipping digest checks")
	return &tablebase.Manifest{Dims: a.cfg.Dims, RunLength: a.cfg.RunLength}, nil
}
