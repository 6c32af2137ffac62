// Package config loads pbreflect settings from a YAML file, PBREFLECT_*
// environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/anoideaopen/pbreflect/core/stringsx"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	envPrefix  = "PBREFLECT"
	configName = "pbreflect"
)

// Keys shared with command line flags.
const (
	KeySource               = "source"
	KeyFormat               = "format"
	KeyLogLevel             = "log_level"
	KeyServerAddr           = "server.addr"
	KeyServerWatch          = "server.watch"
	KeyTelemetryEndpoint    = "telemetry.endpoint"
	KeyTelemetryServiceName = "telemetry.service_name"
)

const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

var (
	ErrUnknownFormat   = errors.New("unknown output format")
	ErrUnknownLogLevel = errors.New("unknown log level")
	ErrServerAddrEmpty = errors.New("'server.addr' is empty")
	ErrSourceEmpty     = errors.New("'source' is empty")
)

type Config struct {
	Source    string          `mapstructure:"source"`
	Format    string          `mapstructure:"format"`
	LogLevel  string          `mapstructure:"log_level"`
	Server    ServerConfig    `mapstructure:"server"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Addr  string `mapstructure:"addr"`
	Watch bool   `mapstructure:"watch"`
}

type TelemetryConfig struct {
	// Endpoint is the OTLP/HTTP collector address. Empty disables export.
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

// New returns a viper instance with defaults and environment binding set up.
// Flags may be bound to it before Load.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault(KeySource, "")
	v.SetDefault(KeyFormat, FormatTable)
	v.SetDefault(KeyLogLevel, logrus.WarnLevel.String())
	v.SetDefault(KeyServerAddr, ":8080")
	v.SetDefault(KeyServerWatch, true)
	v.SetDefault(KeyTelemetryEndpoint, "")
	v.SetDefault(KeyTelemetryServiceName, "pbreflect")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the config file and returns validated settings. An explicit path
// must exist; otherwise pbreflect.yaml is looked up in the working directory
// and may be absent.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks option values. An empty source is allowed here; commands
// that need one call RequireSource.
func (c *Config) Validate() error {
	if !stringsx.OneOf(c.Format, FormatTable, FormatJSON, FormatYAML) {
		return fmt.Errorf("%w: '%s'", ErrUnknownFormat, c.Format)
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: '%s'", ErrUnknownLogLevel, c.LogLevel)
	}

	if c.Server.Addr == "" {
		return ErrServerAddrEmpty
	}

	return nil
}

// RequireSource returns ErrSourceEmpty when no schema source is configured.
func (c *Config) RequireSource() error {
	if c.Source == "" {
		return ErrSourceEmpty
	}
	return nil
}
