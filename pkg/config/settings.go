// Package config loads run settings with viper and resolves the service
// environment once per run.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vertti/validate-infra/pkg/logger"
)

// EnvPrefix prefixes environment overrides, e.g. VALIDATE_INFRA_TCP_TIMEOUT.
const EnvPrefix = "VALIDATE_INFRA"

// Settings controls a run. It is immutable once loaded.
type Settings struct {
	Verbose        bool          `mapstructure:"verbose"`
	Parallel       bool          `mapstructure:"parallel"`
	RunTimeout     time.Duration `mapstructure:"run_timeout"`
	TCPTimeout     time.Duration `mapstructure:"tcp_timeout"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	ConsumeTimeout time.Duration `mapstructure:"consume_timeout"`
	LogLevel       string        `mapstructure:"log_level"`
	Required       []string      `mapstructure:"required"`
	VPCCIDR        string        `mapstructure:"vpc_cidr"`
	Network        bool          `mapstructure:"network"`
}

// flagKeys maps CLI flag names to setting keys.
var flagKeys = map[string]string{
	"verbose":   "verbose",
	"parallel":  "parallel",
	"timeout":   "run_timeout",
	"log-level": "log_level",
	"required":  "required",
	"network":   "network",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("verbose", false)
	v.SetDefault("parallel", false)
	v.SetDefault("run_timeout", 5*time.Minute)
	v.SetDefault("tcp_timeout", 5*time.Second)
	v.SetDefault("connect_timeout", 10*time.Second)
	v.SetDefault("consume_timeout", 15*time.Second)
	v.SetDefault("log_level", "warn")
	v.SetDefault("required", []string{"DATABASE_URL", "REDIS_URL"})
	v.SetDefault("vpc_cidr", "10.0.0.0/8")
	v.SetDefault("network", false)
}

// Load reads defaults, the optional YAML file at path, VALIDATE_INFRA_*
// environment overrides and any changed flags, in increasing precedence.
func Load(path string, flags *pflag.FlagSet) (Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("read config failed: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return Settings{}, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("unmarshal config failed: %w", err)
	}
	s.Required = cleanList(s.Required)

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate rejects settings that would make a run unbounded or unusable.
func (s Settings) Validate() error {
	for name, d := range map[string]time.Duration{
		"run_timeout":     s.RunTimeout,
		"tcp_timeout":     s.TCPTimeout,
		"connect_timeout": s.ConnectTimeout,
		"consume_timeout": s.ConsumeTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if _, err := logger.ParseLevel(s.LogLevel); err != nil {
		return err
	}
	if s.VPCCIDR == "" {
		return fmt.Errorf("vpc_cidr is required")
	}
	return nil
}

func cleanList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
