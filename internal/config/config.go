// Package config provides configuration management for socialpatch.
//
// Configuration is resolved from, highest priority first:
// 1. Command-line flags registered with RegisterFlags
// 2. Environment variables (SOCIALPATCH_ prefix, e.g. SOCIALPATCH_PATCH_DIR)
// 3. .socialpatch.yaml (optional; ./ or $HOME/.config/socialpatch, or --config)
// 4. Default values
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	apperrors "socialpatch.io/socialpatch/internal/pkg/errors"
)

const (
	// EnvPrefix is prepended to every environment variable name.
	EnvPrefix = "SOCIALPATCH"
	// ConfigName is the config file base name searched in ./ and $HOME/.config/socialpatch.
	ConfigName = ".socialpatch"
)

// Config is the root configuration structure.
type Config struct {
	Patch  PatchConfig  `mapstructure:"patch"`
	Log    LogConfig    `mapstructure:"log"`
	Worker WorkerConfig `mapstructure:"worker"`
}

// PatchConfig selects the files and the rule applied to them.
type PatchConfig struct {
	Dir     string   `mapstructure:"dir"`
	Pattern string   `mapstructure:"pattern"`
	Exclude []string `mapstructure:"exclude"`

	Languages []string `mapstructure:"languages"`
	Value     string   `mapstructure:"value"`
	Length    int      `mapstructure:"length"`
	Index     int      `mapstructure:"index"`

	DryRun bool   `mapstructure:"dry_run"`
	Report string `mapstructure:"report"` // YAML run report path, empty to skip
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// WorkerConfig contains worker pool settings.
type WorkerConfig struct {
	PoolSize int `mapstructure:"pool_size"`
}

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"dir":         "patch.dir",
	"pattern":     "patch.pattern",
	"dry-run":     "patch.dry_run",
	"report":      "patch.report",
	"log-level":   "log.level",
	"log-format":  "log.format",
	"concurrency": "worker.pool_size",
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a .socialpatch.yaml config file")
	fs.String("dir", ".", "directory holding the localization files")
	fs.String("pattern", "*.json", "glob matched against file names in --dir")
	fs.Bool("dry-run", false, "report what would change without writing files")
	fs.String("report", "", "write a YAML run report to this path")
	fs.String("log-level", "warn", "log level: debug, info, warn, error")
	fs.String("log-format", "console", "log format: console or json")
	fs.Int("concurrency", 1, "number of files processed in parallel")
}

// Load reads configuration from flags, environment, config file and defaults.
// flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// With a config type set, viper also accepts the bare name. The dot keeps
	// the search from ever matching the socialpatch binary itself.
	v.SetConfigName(ConfigName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/socialpatch")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if flags != nil {
		if f := flags.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
		}
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %q: %w", name, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file is optional, use defaults, env vars and flags
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the settings that belong to the command itself. The
// pattern and the rule are checked by patcher.New.
func (c *Config) Validate() error {
	switch c.Log.Format {
	case "json", "console":
	default:
		return apperrors.ConfigInvalid(fmt.Sprintf("log.format must be json or console, got %q", c.Log.Format))
	}
	if c.Worker.PoolSize < 1 {
		return apperrors.ConfigInvalid("worker.pool_size must be at least 1")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Patch
	v.SetDefault("patch.dir", ".")
	v.SetDefault("patch.pattern", "*.json")
	v.SetDefault("patch.exclude", []string{})
	v.SetDefault("patch.languages", []string{"ru", "zh", "fr", "de", "hi", "ko", "he", "sw", "pt", "es", "it"})
	v.SetDefault("patch.value", "Twitter")
	v.SetDefault("patch.length", 3)
	v.SetDefault("patch.index", 2)
	v.SetDefault("patch.dry_run", false)
	v.SetDefault("patch.report", "")

	// Log
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")

	// Worker pool
	v.SetDefault("worker.pool_size", 1)
}
