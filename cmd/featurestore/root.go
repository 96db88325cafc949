package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/featurestore/pkg/config"
	"github.com/ajitpratap0/featurestore/pkg/featurestore"
	"github.com/ajitpratap0/featurestore/pkg/json"
	"github.com/ajitpratap0/featurestore/pkg/logger"
	"github.com/ajitpratap0/featurestore/pkg/observability"
)

const envPrefix = "FEATURESTORE"

// app holds what every command shares once flags are resolved.
type app struct {
	v      *viper.Viper
	stdout io.Writer
	cfg    *config.Config
	logger *zap.Logger
	client *featurestore.Client

	shutdown observability.ShutdownFunc
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{v: viper.New(), stdout: stdout}

	root := &cobra.Command{
		Use:   "featurestore",
		Short: "Feature store - versioned, time-partitioned feature groups on S3",
		Long: `featurestore creates feature groups, appends daily partitions to them and
queries them through the catalog.

Flags may also be set through FEATURESTORE_* environment variables,
e.g. FEATURESTORE_LOG_LEVEL=debug.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to YAML configuration file")
	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().String("dispatch", "", "Orchestrator dispatch mode (lambda, local)")

	root.AddCommand(
		a.createCommand(),
		a.appendCommand(),
		a.registerCommand(),
		a.registerTableCommand(),
		a.dumpCommand(),
		a.statusCommand(),
		a.readCommand(),
		a.versionsCommand(),
		versionCommand(stdout),
	)

	root.SetOut(stdout)
	root.SetErr(stderr)
	return root
}

// bindFlags resolves flags from the command line first, then the
// environment.
func (a *app) bindFlags(flags *pflag.FlagSet) error {
	if err := a.v.BindPFlags(flags); err != nil {
		return err
	}
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	return nil
}

// loadConfig reads the configuration file and applies flag overrides.
func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(a.v.GetString("config"))
	if err != nil {
		return nil, err
	}
	if level := a.v.GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if mode := a.v.GetString("dispatch"); mode != "" {
		cfg.Dispatch.Mode = mode
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setup is the PersistentPreRunE of every command talking to AWS.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := a.bindFlags(cmd.Flags()); err != nil {
		return err
	}
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg

	if a.logger, err = logger.New(cfg.Logging); err != nil {
		return err
	}
	if a.shutdown, err = observability.Initialize(cfg.Tracing, version, cmd.ErrOrStderr()); err != nil {
		return err
	}

	a.client, err = featurestore.NewFromConfig(cmd.Context(), cfg, a.logger)
	return err
}

func (a *app) teardown(cmd *cobra.Command, _ []string) error {
	if a.shutdown != nil {
		if err := a.shutdown(context.Background()); err != nil {
			a.logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return nil
}

// command builds a subcommand wired to the client.
func (a *app) command(use, short string, args cobra.PositionalArgs, run func(cmd *cobra.Command, args []string) error) *cobra.Command {
	return &cobra.Command{
		Use:                use,
		Short:              short,
		Args:               args,
		PersistentPreRunE:  a.setup,
		RunE:               run,
		PersistentPostRunE: a.teardown,
	}
}

// print writes v as indented JSON.
func (a *app) print(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.stdout, string(data))
	return err
}

// outcome turns a boundary result into the command's exit status. The
// failure itself has already been logged.
func outcome(ok bool, op string) error {
	if !ok {
		return fmt.Errorf("%s failed, see log for details", op)
	}
	return nil
}
