// Package config loads and validates this service's configuration: how
// many browsers and pages to run, restart/warmup policy, and the browser
// launch flags those pools are built from.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lindholm/pdfcapture/browser"
	"github.com/lindholm/pdfcapture/env"
	"github.com/lindholm/pdfcapture/page"
)

// PoolSizeAuto tells Config to size the browser pool off available RAM
// instead of a fixed count, the same "auto" sentinel the teacher's chrome
// pool config uses.
const PoolSizeAuto = "auto"

// Config is this service's full runtime configuration, loaded from a YAML
// file and then overridden field-by-field from the environment, following
// the same "file sets the baseline, env overrides for container/CI" split
// the rest of the corpus uses.
type Config struct {
	PoolSize           string        `yaml:"pool_size"`
	MaxPagesPerBrowser int           `yaml:"max_pages_per_browser"`
	ExecutablePath     string        `yaml:"executable_path"`
	Headless           bool          `yaml:"headless"`
	NoSandbox          bool          `yaml:"no_sandbox"`
	DisableDevShmUsage bool          `yaml:"disable_dev_shm_usage"`
	WindowWidth        int           `yaml:"window_width"`
	WindowHeight       int           `yaml:"window_height"`
	LaunchTimeout      time.Duration `yaml:"launch_timeout"`
	ResponseTimeout    time.Duration `yaml:"response_timeout"`

	WarmupURL         string        `yaml:"warmup_url"`
	RestartAfterCount int           `yaml:"restart_after_count"`
	RestartAfterTime  time.Duration `yaml:"restart_after_time"`

	DefaultJsTimeout      time.Duration `yaml:"default_js_timeout"`
	DefaultJsPollInterval time.Duration `yaml:"default_js_poll_interval"`
	DefaultReadinessFlag  string        `yaml:"default_readiness_flag"`

	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

// Default returns the baseline configuration every field in a loaded YAML
// file or the environment is applied on top of.
func Default() Config {
	return Config{
		PoolSize:              PoolSizeAuto,
		MaxPagesPerBrowser:    10,
		Headless:              true,
		WindowWidth:           1024,
		WindowHeight:          768,
		LaunchTimeout:         30 * time.Second,
		ResponseTimeout:       30 * time.Second,
		RestartAfterCount:     200,
		RestartAfterTime:      60 * time.Minute,
		DefaultJsTimeout:      3 * time.Second,
		DefaultJsPollInterval: 25 * time.Millisecond,
		DefaultReadinessFlag:  "reportIsReady",
		LogLevel:              "info",
	}
}

// Load reads path as YAML on top of Default(), then applies environment
// overrides via env.* helpers (PDFCAPTURE_* variables), then validates.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec
		if err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides(lookup env.LookupFunc) {
	c.PoolSize = env.String(lookup, "PDFCAPTURE_POOL_SIZE", c.PoolSize)
	c.MaxPagesPerBrowser = env.Int(lookup, "PDFCAPTURE_MAX_PAGES_PER_BROWSER", c.MaxPagesPerBrowser)
	c.ExecutablePath = env.String(lookup, "PDFCAPTURE_EXECUTABLE_PATH", c.ExecutablePath)
	c.Headless = env.Bool(lookup, "PDFCAPTURE_HEADLESS", c.Headless)
	c.NoSandbox = env.Bool(lookup, "PDFCAPTURE_NO_SANDBOX", c.NoSandbox)
	c.DisableDevShmUsage = env.Bool(lookup, "PDFCAPTURE_DISABLE_DEV_SHM_USAGE", c.DisableDevShmUsage)
	c.WindowWidth = env.Int(lookup, "PDFCAPTURE_WINDOW_WIDTH", c.WindowWidth)
	c.WindowHeight = env.Int(lookup, "PDFCAPTURE_WINDOW_HEIGHT", c.WindowHeight)
	c.LaunchTimeout = env.Duration(lookup, "PDFCAPTURE_LAUNCH_TIMEOUT", c.LaunchTimeout)
	c.ResponseTimeout = env.Duration(lookup, "PDFCAPTURE_RESPONSE_TIMEOUT", c.ResponseTimeout)
	c.WarmupURL = env.String(lookup, "PDFCAPTURE_WARMUP_URL", c.WarmupURL)
	c.RestartAfterCount = env.Int(lookup, "PDFCAPTURE_RESTART_AFTER_COUNT", c.RestartAfterCount)
	c.RestartAfterTime = env.Duration(lookup, "PDFCAPTURE_RESTART_AFTER_TIME", c.RestartAfterTime)
	c.LogLevel = env.String(lookup, "PDFCAPTURE_LOG_LEVEL", c.LogLevel)
	c.LogFile = env.String(lookup, "PDFCAPTURE_LOG_FILE", c.LogFile)
}

// Validate checks the configuration is self-consistent before it is used
// to launch anything.
func (c Config) Validate() error {
	if c.PoolSize != PoolSizeAuto {
		if _, err := parsePositiveInt(c.PoolSize); err != nil {
			return fmt.Errorf("config: pool_size must be %q or a positive integer: %w", PoolSizeAuto, err)
		}
	}
	if c.MaxPagesPerBrowser < 1 {
		return fmt.Errorf("config: max_pages_per_browser must be >= 1")
	}
	if c.LaunchTimeout <= 0 {
		return fmt.Errorf("config: launch_timeout must be positive")
	}
	if c.ResponseTimeout <= 0 {
		return fmt.Errorf("config: response_timeout must be positive")
	}
	return nil
}

func parsePositiveInt(s string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("%q is not positive", s)
	}
	return n, nil
}

// BrowserPoolConfig resolves this Config into a browser.PoolConfig,
// computing the browser count from available RAM when PoolSize is "auto".
func (c Config) BrowserPoolConfig() browser.PoolConfig {
	return browser.PoolConfig{
		Size: c.resolvedPoolSize(),
		LaunchOpts: browser.LaunchOptions{
			ExecutablePath:     c.ExecutablePath,
			Headless:           c.Headless,
			NoSandbox:          c.NoSandbox,
			DisableDevShmUsage: c.DisableDevShmUsage,
			WindowWidth:        c.WindowWidth,
			WindowHeight:       c.WindowHeight,
			Timeout:            c.LaunchTimeout,
			ResponseTimeout:    c.ResponseTimeout,
		},
		RestartAfterCount: c.RestartAfterCount,
		RestartAfterAge:   c.RestartAfterTime,
		WarmupURL:         c.WarmupURL,
	}
}

func (c Config) resolvedPoolSize() int {
	if c.PoolSize == PoolSizeAuto {
		return AutoPoolSize()
	}
	n, err := parsePositiveInt(c.PoolSize)
	if err != nil {
		return AutoPoolSize()
	}
	return n
}

// DefaultJsSettings returns the JsSettings a caller gets when it doesn't
// specify its own readiness poll timing.
func (c Config) DefaultJsSettings() page.JsSettings {
	return page.JsSettings{
		ReadinessFlagName: c.DefaultReadinessFlag,
		CompletionTimeout: c.DefaultJsTimeout,
		PollInterval:      c.DefaultJsPollInterval,
	}
}
