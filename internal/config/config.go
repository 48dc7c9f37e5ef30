// Package config loads gqlengine settings from defaults, an optional YAML
// file, GQLENGINE_* environment variables and bound command-line flags.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes environment overrides, e.g. GQLENGINE_LOG_LEVEL.
const EnvPrefix = "GQLENGINE"

type Config struct {
	Log       Log       `mapstructure:"log"`
	Output    Output    `mapstructure:"output"`
	Tracing   Tracing   `mapstructure:"tracing"`
	Demo      Demo      `mapstructure:"demo"`
	Execution Execution `mapstructure:"execution"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// Output controls how results are printed.
type Output struct {
	Pretty bool `mapstructure:"pretty"`
	Color  bool `mapstructure:"color"`
}

// Tracing is disabled when Endpoint is empty.
type Tracing struct {
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

type Demo struct {
	FrozenDefaults bool `mapstructure:"frozen_defaults"`
}

type Execution struct {
	Concurrency int `mapstructure:"concurrency"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Log:     Log{Level: "info", Format: "console"},
		Output:  Output{Pretty: true},
		Tracing: Tracing{ServiceName: "gqlengine"},
	}
}

// New returns a viper instance primed with defaults and environment lookup.
func New() *viper.Viper {
	v := viper.New()
	d := Default()
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("output.pretty", d.Output.Pretty)
	v.SetDefault("output.color", d.Output.Color)
	v.SetDefault("tracing.endpoint", d.Tracing.Endpoint)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("demo.frozen_defaults", d.Demo.FrozenDefaults)
	v.SetDefault("execution.concurrency", d.Execution.Concurrency)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads file into v when file is set and decodes the merged settings.
func Load(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the rest of the program cannot use.
func (c Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	if c.Execution.Concurrency < 0 {
		return fmt.Errorf("execution.concurrency: must not be negative, got %d", c.Execution.Concurrency)
	}
	return nil
}
