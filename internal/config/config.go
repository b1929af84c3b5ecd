// Package config loads and validates the layered framework configuration.
//
// Resolution order, lowest to highest precedence: built-in defaults, the
// base config file (config.yaml), the environment overlay
// (config.<env>.yaml), then VERITY_* environment variables. CLI flags bind
// on top through viper in the cmd package.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/verity-cli/internal/verr"
)

// EnvPrefix is the prefix for environment variable overrides,
// e.g. VERITY_BROWSER_HEADLESS=false.
const EnvPrefix = "VERITY"

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Network  NetworkConfig  `mapstructure:"network" yaml:"network"`
	Retry    RetryConfig    `mapstructure:"retry" yaml:"retry"`
	Session  SessionConfig  `mapstructure:"session" yaml:"session"`
	Runner   RunnerConfig   `mapstructure:"runner" yaml:"runner"`
	Report   ReportConfig   `mapstructure:"report" yaml:"report"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`

	// Environment is the overlay name the config was resolved with.
	Environment string `mapstructure:"-" yaml:"-"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
	Fatal string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the browser instances under test.
type BrowserConfig struct {
	// Type selects the browser binary family: chromium, chrome, or edge.
	Type            string         `mapstructure:"type" yaml:"type"`
	Headless        bool           `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	DebuggingPort   int            `mapstructure:"debugging_port" yaml:"debugging_port"`
	Args            []string       `mapstructure:"args" yaml:"args"`
	Viewport        map[string]int `mapstructure:"viewport" yaml:"viewport"`
}

// NetworkConfig tunes the per-call timeout budgets passed to chromedp.
type NetworkConfig struct {
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ActionTimeout     time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	PostLoadWait      time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
}

// RetryConfig configures the exponential backoff helper.
type RetryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay" yaml:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
	Jitter       bool          `mapstructure:"jitter" yaml:"jitter"`
}

// SessionConfig configures the on-disk session store.
type SessionConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// RunnerConfig configures suite execution.
type RunnerConfig struct {
	Parallel    int    `mapstructure:"parallel" yaml:"parallel"`
	Retries     int    `mapstructure:"retries" yaml:"retries"`
	Markers     string `mapstructure:"markers" yaml:"markers"`
	StartPerSec int    `mapstructure:"start_per_sec" yaml:"start_per_sec"`
}

// ReportConfig configures report rendering.
type ReportConfig struct {
	Dir     string   `mapstructure:"dir" yaml:"dir"`
	Formats []string `mapstructure:"formats" yaml:"formats"`
}

// DatabaseConfig holds the optional results database connection string.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

var validBrowsers = map[string]bool{"chromium": true, "chrome": true, "edge": true}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "verity")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.type", "chromium")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.debugging_port", 0)

	// -- Network --
	v.SetDefault("network.navigation_timeout", "60s")
	v.SetDefault("network.action_timeout", "15s")
	v.SetDefault("network.post_load_wait", "500ms")

	// -- Retry --
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_delay", "250ms")
	v.SetDefault("retry.max_delay", "10s")
	v.SetDefault("retry.jitter", false)

	// -- Session --
	v.SetDefault("session.dir", "")

	// -- Runner --
	v.SetDefault("runner.parallel", 1)
	v.SetDefault("runner.retries", 0)
	v.SetDefault("runner.markers", "")
	v.SetDefault("runner.start_per_sec", 4)

	// -- Report --
	v.SetDefault("report.dir", "reports")
	v.SetDefault("report.formats", []string{"json"})
}

// Load resolves the layered configuration. env selects the overlay file
// (config.<env>.yaml); explicitFile, when non-empty, replaces the base file
// entirely. A missing base or overlay file is not an error.
func Load(v *viper.Viper, env, explicitFile string) (*Config, error) {
	SetDefaults(v)

	if explicitFile != "" {
		v.SetConfigFile(explicitFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !isNotExist(err) {
			return nil, verr.Config("reading base config file", err)
		}
	}

	// Deep-merge the environment overlay on top of the base. Viper's
	// MergeInConfig overlays key by key, so nested sections survive a
	// partial override.
	if env != "" {
		overlay := fmt.Sprintf("config.%s.yaml", env)
		if explicitFile != "" {
			overlay = filepath.Join(filepath.Dir(explicitFile), overlay)
		}
		v.SetConfigFile(overlay)
		if err := v.MergeInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !isNotExist(err) {
				return nil, verr.Config("merging environment overlay", err).With("overlay", overlay)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, verr.Config("unmarshaling config", err)
	}
	cfg.Environment = env

	if cfg.Session.Dir == "" {
		home, err := homedir.Dir()
		if err != nil {
			return nil, verr.Config("resolving home directory for session store", err)
		}
		cfg.Session.Dir = filepath.Join(home, ".verity", "sessions")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func isNotExist(err error) bool {
	// viper reports a missing explicit config file as a *fs.PathError, not
	// as ConfigFileNotFoundError.
	return errors.Is(err, fs.ErrNotExist)
}

// Validate checks the configuration for sane values.
func (c *Config) Validate() error {
	if !validBrowsers[c.Browser.Type] {
		return verr.New(verr.KindConfig, "unknown browser type").With("type", c.Browser.Type)
	}
	if c.Retry.MaxAttempts < 1 {
		return verr.New(verr.KindConfig, "retry.max_attempts must be at least 1")
	}
	if c.Retry.InitialDelay < 0 || c.Retry.MaxDelay < 0 {
		return verr.New(verr.KindConfig, "retry delays must be non-negative")
	}
	if c.Runner.Parallel < 1 {
		return verr.New(verr.KindConfig, "runner.parallel must be at least 1")
	}
	if c.Runner.Retries < 0 {
		return verr.New(verr.KindConfig, "runner.retries must be non-negative")
	}
	for _, f := range c.Report.Formats {
		switch f {
		case "html", "json", "markdown", "junit":
		default:
			return verr.New(verr.KindConfig, "unsupported report format").With("format", f)
		}
	}
	return nil
}

// Lookup resolves a dotted-path key against the viper instance the config
// was loaded from. The second return reports whether the key is set.
func Lookup(v *viper.Viper, path string) (any, bool) {
	if !v.IsSet(path) {
		return nil, false
	}
	return v.Get(path), true
}
