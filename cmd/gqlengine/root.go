package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tidwall/pretty"
	"go.uber.org/zap"

	config "github.com/hanpama/gqlengine/internal/config"
	demo "github.com/hanpama/gqlengine/internal/demo"
	eventbus "github.com/hanpama/gqlengine/internal/eventbus"
	executor "github.com/hanpama/gqlengine/internal/executor"
	logging "github.com/hanpama/gqlengine/internal/logging"
	otel "github.com/hanpama/gqlengine/internal/otel"
)

// app holds the state shared by every subcommand of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string

	cfg      config.Config
	log      *zap.Logger
	teardown []func(context.Context) error
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{v: config.New(), log: zap.NewNop()}

	cmd := &cobra.Command{
		Use:   "gqlengine",
		Short: "Execute GraphQL queries and mutations against an in-process schema",
		Long: `gqlengine runs GraphQL documents against the built-in demo schema
(users, posts and an authenticated createPost mutation) and prints the
result as JSON.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "Config file (YAML)")
	pf.String("log-level", "", "Log level (debug, info, warn, error)")
	pf.String("log-format", "", "Log format (console or json)")
	pf.Bool("color", false, "Colorize JSON output")
	pf.String("otel-endpoint", "", "OTLP gRPC collector endpoint; tracing is off when empty")
	pf.Bool("frozen-defaults", false, "Compute demo field defaults once at startup")
	pf.Int("concurrency", 0, "Max concurrent async resolvers per batch (0 = unlimited)")

	if err := bindFlags(a.v, pf, map[string]string{
		"log.level":             "log-level",
		"log.format":            "log-format",
		"output.color":          "color",
		"tracing.endpoint":      "otel-endpoint",
		"demo.frozen_defaults":  "frozen-defaults",
		"execution.concurrency": "concurrency",
	}); err != nil {
		panic(err)
	}

	cmd.AddCommand(newQueryCmd(a), newDemoCmd(a), newSchemaCmd(a))
	return cmd, a
}

// execute runs cmd and releases what setup acquired, including when the
// command fails.
func (a *app) execute(cmd *cobra.Command) (err error) {
	defer func() {
		if serr := a.shutdown(context.Background()); err == nil {
			err = serr
		}
	}()
	return cmd.Execute()
}

// bindFlags makes each flag override the config key it is mapped from.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) error {
	for key, name := range keys {
		f := fs.Lookup(name)
		if f == nil {
			return fmt.Errorf("no flag named %q", name)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	log, err := logging.NewWithWriter(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.log = log

	bus := eventbus.New()
	eventbus.Use(bus)
	unsubscribe := logging.Subscribe(bus, log)
	a.teardown = append(a.teardown, func(context.Context) error {
		unsubscribe()
		eventbus.Use(nil)
		return nil
	})

	stopTracing, err := otel.Setup(cmd.Context(), cfg.Tracing, bus)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	a.teardown = append(a.teardown, stopTracing)
	return nil
}

func (a *app) shutdown(ctx context.Context) error {
	var first error
	for i := len(a.teardown) - 1; i >= 0; i-- {
		if err := a.teardown[i](ctx); err != nil && first == nil {
			first = err
		}
	}
	a.teardown = nil
	_ = a.log.Sync()
	return first
}

func (a *app) demoOptions() []demo.Option {
	opts := []demo.Option{
		demo.WithLogger(a.log),
		demo.WithConcurrency(a.cfg.Execution.Concurrency),
	}
	if a.cfg.Demo.FrozenDefaults {
		opts = append(opts, demo.WithFrozenDefaults())
	}
	return opts
}

func (a *app) executor() (*executor.Executor, error) {
	exec, err := demo.NewExecutor(a.demoOptions()...)
	if err != nil {
		return nil, fmt.Errorf("building demo schema: %w", err)
	}
	return exec, nil
}

// writeResult prints result as compact JSON when compact is set or pretty
// output is disabled, and as indented JSON otherwise.
func (a *app) writeResult(w io.Writer, result *executor.ExecutionResult, compact bool) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	if !compact && a.cfg.Output.Pretty {
		data = pretty.Pretty(data)
		if a.cfg.Output.Color {
			data = pretty.Color(data, nil)
		}
		_, err = w.Write(data)
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
