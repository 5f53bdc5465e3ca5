// Package config resolves run settings from defaults, an optional YAML file
// ($HOME/.clickload.yaml), CLICKLOAD_* environment variables and flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"clickload/internal/runner"
)

var ErrInvalid = errors.New("invalid configuration")

const EnvPrefix = "CLICKLOAD"

// Config keys match the flag names so flags can be bound directly.
type Config struct {
	Host         string        `mapstructure:"host"`
	Profiles     []string      `mapstructure:"profile"`
	Users        int           `mapstructure:"users"`
	SpawnRate    float64       `mapstructure:"spawn-rate"`
	RunTime      time.Duration `mapstructure:"run-time"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Headless     bool          `mapstructure:"headless"`
	Out          string        `mapstructure:"out"`
	ProfilesFile string        `mapstructure:"profiles-file"`
	MetricsAddr  string        `mapstructure:"metrics-addr"`
	History      bool          `mapstructure:"history"`
	HistoryPath  string        `mapstructure:"history-path"`
	FailOnError  bool          `mapstructure:"fail-on-error"`
	LogLevel     string        `mapstructure:"log-level"`
	LogFormat    string        `mapstructure:"log-format"`
	LogFile      string        `mapstructure:"log-file"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("host", "http://localhost:8080")
	v.SetDefault("profile", []string{})
	v.SetDefault("users", 10)
	v.SetDefault("spawn-rate", 1.0)
	v.SetDefault("run-time", time.Minute)
	v.SetDefault("timeout", 10*time.Second)
	v.SetDefault("headless", false)
	v.SetDefault("out", "")
	v.SetDefault("profiles-file", "")
	v.SetDefault("metrics-addr", "")
	v.SetDefault("history", true)
	v.SetDefault("history-path", "")
	v.SetDefault("fail-on-error", false)
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "console")
	v.SetDefault("log-file", "")
}

// Load reads file, or $HOME/.clickload.yaml when file is empty, and the
// environment into v. A missing default file is not an error.
func Load(v *viper.Viper, file string) (Config, error) {
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
		v.SetConfigType("yaml")
		v.SetConfigName(".clickload")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	u, err := url.Parse(c.Host)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: host %q must be an http(s) URL", ErrInvalid, c.Host)
	}
	if c.Users <= 0 {
		return fmt.Errorf("%w: users must be positive, got %d", ErrInvalid, c.Users)
	}
	if c.SpawnRate < 0 {
		return fmt.Errorf("%w: spawn-rate must not be negative", ErrInvalid)
	}
	if c.RunTime < 0 {
		return fmt.Errorf("%w: run-time must not be negative", ErrInvalid)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalid)
	}
	return nil
}

// Runner returns the part of c the runner needs.
func (c Config) Runner() runner.Config {
	return runner.Config{
		Host:      strings.TrimRight(c.Host, "/"),
		Profiles:  c.Profiles,
		Users:     c.Users,
		SpawnRate: c.SpawnRate,
		RunTime:   c.RunTime,
		Timeout:   c.Timeout,
		OutPrefix: c.Out,
	}
}
