// Package cli implements the pbreflect command line.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/anoideaopen/pbreflect/core/logger"
	"github.com/anoideaopen/pbreflect/core/registry"
	"github.com/anoideaopen/pbreflect/core/telemetry"
	"github.com/anoideaopen/pbreflect/internal/config"
	"github.com/anoideaopen/pbreflect/internal/source"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var ErrNotFound = errors.New("nothing at path")

// app is the state shared by all commands of one invocation.
type app struct {
	v          *viper.Viper
	configPath string

	cfg      *config.Config
	log      *logrus.Logger
	shutdown telemetry.ShutdownFunc
}

// NewRootCommand creates the pbreflect command tree.
func NewRootCommand() *cobra.Command {
	a := &app{v: config.New()}

	rootCmd := &cobra.Command{
		Use:   "pbreflect",
		Short: "Inspect protobuf message and service types",
		Long: `pbreflect recovers the fields of message types and the methods of service
types from protobufjs static modules or compiled descriptor sets.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.close(cmd.Context())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ./pbreflect.yaml)")
	flags.String("source", "", "schema source: a static module (.js) or a descriptor set")
	flags.String("format", config.FormatTable, "output format: table, json or yaml")
	flags.String("log-level", "warning", "log level")

	_ = a.v.BindPFlag(config.KeySource, flags.Lookup("source"))
	_ = a.v.BindPFlag(config.KeyFormat, flags.Lookup("format"))
	_ = a.v.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))

	rootCmd.AddCommand(
		newNSCommand(a),
		newMessageCommand(a),
		newServiceCommand(a),
		newDumpCommand(a),
		newServeCommand(a),
		newVersionCommand(a),
	)

	return rootCmd
}

// Execute runs the root command and reports a failure on stderr.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}

func (a *app) init(ctx context.Context) error {
	cfg, err := config.Load(a.v, a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger.SetLevel(cfg.LogLevel)
	a.log = logger.Logger()

	a.shutdown, err = telemetry.InstallTraceProvider(ctx, cfg.Telemetry.Endpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		return fmt.Errorf("installing trace provider: %w", err)
	}

	return nil
}

func (a *app) close(ctx context.Context) error {
	if a.shutdown == nil {
		return nil
	}
	if err := a.shutdown(ctx); err != nil {
		return fmt.Errorf("flushing traces: %w", err)
	}
	return nil
}

// registry loads the configured schema source.
func (a *app) registry(ctx context.Context) (*registry.Namespace, error) {
	if err := a.cfg.RequireSource(); err != nil {
		return nil, err
	}

	root, err := source.Load(ctx, a.cfg.Source)
	if err != nil {
		return nil, err
	}

	a.log.WithField("source", a.cfg.Source).Debug("schema loaded")

	return root, nil
}
