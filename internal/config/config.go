// Package config holds the process-wide settings of the ui5omit CLI.
//
// Values resolve flag first, then UI5OMIT_* environment variables, then a
// .ui5omit.yaml file found in the working directory or in
// $HOME/.config/ui5omit. Task options are not part of this layer; they come
// from ui5.yaml or an options file through [LoadProject] and [LoadTaskOptions].
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"

	LogFormatText = "text"
	LogFormatJSON = "json"
)

// DefaultTaskName is the customTasks entry read from ui5.yaml when --task is
// not given.
const DefaultTaskName = "ui5-task-omit"

// Keys shared by flags, env vars and the config file.
const (
	keyLogLevel  = "log-level"
	keyLogFormat = "log-format"
	keyNoColor   = "no-color"
	keyQuiet     = "quiet"
	keyTask      = "task"
)

const (
	envPrefix      = "UI5OMIT"
	fileBaseName   = ".ui5omit"
	userConfigPath = ".config/ui5omit"
)

var (
	logLevels  = []string{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError}
	logFormats = []string{LogFormatText, LogFormatJSON}
)

// Config is the resolved CLI configuration.
type Config struct {
	LogLevel  string `mapstructure:"log-level" json:"logLevel"`
	LogFormat string `mapstructure:"log-format" json:"logFormat"`
	NoColor   bool   `mapstructure:"no-color" json:"noColor"`

	// Quiet forces the effective log level to error.
	Quiet bool `mapstructure:"quiet" json:"quiet"`

	// Task names the customTasks entry whose configuration block is used.
	// A -self-contained suffix selects the self-contained variant.
	Task string `mapstructure:"task" json:"task"`

	// ConfigFile is the file viper actually read, empty when none was found.
	ConfigFile string `mapstructure:"-" json:"-"`
}

func Default() *Config {
	return &Config{
		LogLevel:  LogLevelInfo,
		LogFormat: LogFormatText,
		Task:      DefaultTaskName,
	}
}

// Validate rejects unknown log levels and formats and an empty task name.
func (c *Config) Validate() error {
	if !slices.Contains(logLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level %q: want one of %s", c.LogLevel, strings.Join(logLevels, ", "))
	}

	if !slices.Contains(logFormats, c.LogFormat) {
		return fmt.Errorf("invalid log format %q: want one of %s", c.LogFormat, strings.Join(logFormats, ", "))
	}

	if strings.TrimSpace(c.Task) == "" {
		return errors.New("task name must not be empty")
	}

	return nil
}

// EffectiveLogLevel is LogLevel, or error when Quiet is set.
func (c *Config) EffectiveLogLevel() string {
	if c.Quiet {
		return LogLevelError
	}

	return c.LogLevel
}

// Load resolves a Config for cmd. An explicit configFile must exist; without
// one the usual locations are searched and a miss is not an error. Every call
// builds its own viper instance.
func Load(cmd *cobra.Command, configFile string) (*Config, error) {
	v := viper.New()

	for key, value := range Default().settings() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := readFile(v, configFile); err != nil {
		return nil, err
	}

	if cmd != nil {
		if err := bindCommandFlags(v, cmd); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) settings() map[string]any {
	return map[string]any{
		keyLogLevel:  c.LogLevel,
		keyLogFormat: c.LogFormat,
		keyNoColor:   c.NoColor,
		keyQuiet:     c.Quiet,
		keyTask:      c.Task,
	}
}

func readFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %q: %w", configFile, err)
		}

		return nil
	}

	v.SetConfigName(fileBaseName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, filepath.FromSlash(userConfigPath)))
	}

	err := v.ReadInConfig()

	var notFound viper.ConfigFileNotFoundError
	if err == nil || errors.As(err, &notFound) {
		return nil
	}

	return fmt.Errorf("parsing config file: %w", err)
}

// bindCommandFlags binds cmd's local flags and the persistent flags of cmd
// and each of its parents.
func bindCommandFlags(v *viper.Viper, cmd *cobra.Command) error {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags of %q: %w", cmd.Name(), err)
	}

	for c := cmd; c != nil; c = c.Parent() {
		if err := v.BindPFlags(c.PersistentFlags()); err != nil {
			return fmt.Errorf("binding persistent flags of %q: %w", c.Name(), err)
		}
	}

	return nil
}

type ctxKey struct{}

func NewContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ctxKey{}, cfg)
}

// FromContext returns the Config stored by [NewContext], or [Default].
func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(ctxKey{}).(*Config)
	if !ok {
		return Default()
	}

	return cfg
}
