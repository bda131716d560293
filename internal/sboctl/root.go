// Package sboctl implements the sboctl command: inspect how callables are
// placed and exercise the allocation backends.
package sboctl

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pavanmanishd/callable/internal/config"
)

// Execute runs the sboctl command tree with args.
func Execute(ctx context.Context, args []string) error {
	root := buildRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func buildRootCmd() *cobra.Command {
	var (
		cfgPath string
		cfg     = config.Defaults()
		log     = zap.NewNop()
	)
	root := &cobra.Command{
		Use:           "sboctl",
		Short:         "Inspect inline storage of type-erased callables",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (.yaml, .toml or .json)")
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cfgPath != "" {
			loaded, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			cfg = overrideFromFlags(cmd, loaded, cfg)
		}
		l, err := newLogger(cfg.LogLevel)
		if err != nil {
			return err
		}
		log = l
		return nil
	}
	root.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		_ = log.Sync()
	}

	root.AddCommand(
		newLayoutCmd(),
		newBenchCmd(&cfg, func() *zap.Logger { return log }),
	)
	return root
}

// overrideFromFlags returns file with every field whose flag was set on
// the command line taken from flagged.
func overrideFromFlags(cmd *cobra.Command, file, flagged config.Config) config.Config {
	changed := cmd.Flags().Changed
	if changed("log-level") {
		file.LogLevel = flagged.LogLevel
	}
	if changed("backend") {
		file.Backend = flagged.Backend
	}
	if changed("chunk-size") {
		file.ChunkSize = flagged.ChunkSize
	}
	if changed("max-bytes") {
		file.MaxBytes = flagged.MaxBytes
	}
	if changed("iterations") {
		file.Iterations = flagged.Iterations
	}
	return file
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = lvl
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}
