// Package config loads service configuration from file, environment
// and defaults, in that order of precedence (file and env override
// defaults, env overrides file).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// envPrefix namespaces environment overrides: IMAGEFORGE_LISTEN etc.
const envPrefix = "IMAGEFORGE"

// Config is the full service configuration
type Config struct {
	Listen         string        `mapstructure:"listen" yaml:"listen"`
	LogLevel       string        `mapstructure:"log_level" yaml:"log_level"`
	LogJSON        bool          `mapstructure:"log_json" yaml:"log_json"`
	Sampling       bool          `mapstructure:"sampling" yaml:"sampling"`
	SampleInterval time.Duration `mapstructure:"sample_interval" yaml:"sample_interval"`
	EngineSeed     int64         `mapstructure:"engine_seed" yaml:"engine_seed"`
	EngineDelay    time.Duration `mapstructure:"engine_delay" yaml:"engine_delay"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Listen:         ":8090",
		LogLevel:       "info",
		LogJSON:        false,
		Sampling:       true,
		SampleInterval: time.Second,
		EngineSeed:     0,
		EngineDelay:    30 * time.Millisecond,
	}
}

// Load reads configuration. path may be empty, in which case the
// default search path ($HOME/.imageforge/config.yaml) is used and a
// missing file is not an error.
func Load(path string) (Config, error) {
	v := viper.New()
	defaults := Default()
	v.SetDefault("listen", defaults.Listen)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_json", defaults.LogJSON)
	v.SetDefault("sampling", defaults.Sampling)
	v.SetDefault("sample_interval", defaults.SampleInterval)
	v.SetDefault("engine_seed", defaults.EngineSeed)
	v.SetDefault("engine_delay", defaults.EngineDelay)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".imageforge"))
			v.SetConfigName("config")
			v.SetConfigType("yaml")
			// A missing default config file is fine
			if err := v.ReadInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
					return Config{}, fmt.Errorf("failed to read config file: %w", err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Write renders the configuration as YAML at path, creating parent
// directories as needed.
func Write(cfg Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
