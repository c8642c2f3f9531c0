package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dyne/tabexport/internal/config"
	"github.com/dyne/tabexport/internal/export"
	"github.com/dyne/tabexport/internal/inspect"
	"github.com/dyne/tabexport/internal/log"
	"github.com/spf13/cobra"
)

type globalOptions struct {
	Verbose bool
	Config  string
	DBPath  string
	Tables  []string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootOpts := &globalOptions{}
	root := &cobra.Command{
		Use:           "tabexport",
		Short:         "Export SQLite tables to JSON documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolVar(&rootOpts.Verbose, "verbose", false, "enable debug logging")
	root.PersistentFlags().StringVar(&rootOpts.Config, "config", "", "configuration file (YAML)")
	root.PersistentFlags().StringVar(&rootOpts.DBPath, "db", config.DefaultDatabase, "SQLite database file")
	root.PersistentFlags().StringSliceVar(&rootOpts.Tables, "table", nil, "table to export (repeatable, default users,prices)")

	root.AddCommand(exportCmd(rootOpts))
	root.AddCommand(inspectCmd(rootOpts))
	return root
}

// loadConfig applies the config file over the defaults, then any flag the
// operator set explicitly.
func loadConfig(cmd *cobra.Command, rootOpts *globalOptions) (*config.Config, error) {
	cfg, err := config.Load(rootOpts.Config)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Database = rootOpts.DBPath
	}
	if flags.Changed("table") {
		cfg.Tables = rootOpts.Tables
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, rootOpts *globalOptions) *log.Logger {
	level := log.LevelInfo
	if rootOpts.Verbose {
		level = log.LevelDebug
	}
	return log.New(level, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

func exportCmd(rootOpts *globalOptions) *cobra.Command {
	var outDir string
	var format string
	var indent int
	var metricsFile string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export each table to exported_<table>.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, rootOpts)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("out-dir") {
				cfg.OutDir = outDir
			}
			if flags.Changed("format") {
				cfg.Format = format
			}
			if flags.Changed("indent") {
				cfg.Indent = indent
			}
			if flags.Changed("metrics-file") {
				cfg.MetricsFile = metricsFile
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			opts := export.Options{
				DBPath:      cfg.Database,
				OutDir:      cfg.OutDir,
				Tables:      cfg.Tables,
				Format:      cfg.Format,
				Indent:      cfg.Indent,
				BusyTimeout: time.Duration(cfg.BusyTimeoutMS) * time.Millisecond,
				MetricsFile: cfg.MetricsFile,
				Logger:      newLogger(cmd, rootOpts),
			}
			_, err = export.Run(cmd.Context(), opts)
			return err
		},
	}
	cmd.Flags().StringVar(&outDir, "out-dir", config.DefaultOutDir, "directory for exported files")
	cmd.Flags().StringVar(&format, "format", config.DefaultFormat, "output format (json|xlsx)")
	cmd.Flags().IntVar(&indent, "indent", config.DefaultIndent, "JSON indentation in spaces, 0 for compact")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics for the run to this file")
	return cmd
}

func inspectCmd(rootOpts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "List tables with row counts and columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, rootOpts)
			if err != nil {
				return err
			}
			return inspect.Run(cmd.Context(), inspect.Options{
				DBPath:      cfg.Database,
				BusyTimeout: time.Duration(cfg.BusyTimeoutMS) * time.Millisecond,
				Tables:      cfg.Tables,
				Out:         cmd.OutOrStdout(),
				Logger:      newLogger(cmd, rootOpts),
			})
		},
	}
	return cmd
}
