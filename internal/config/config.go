package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides (PAGEMIRROR_MIRROR_WORKER_COUNT, ...)
const EnvPrefix = "PAGEMIRROR"

// DefaultUserAgent is sent on every request unless overridden
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ManifestFileName is the default manifest database name under the output root
const ManifestFileName = ".pagemirror.db"

// Config represents the entire application configuration
type Config struct {
	Mirror      MirrorConfig      `mapstructure:"mirror"`
	Manifest    ManifestConfig    `mapstructure:"manifest"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// MirrorConfig contains discovery and download settings
type MirrorConfig struct {
	OutputRoot        string  `mapstructure:"output_root"`
	WorkerCount       int     `mapstructure:"worker_count"`
	RequestTimeout    string  `mapstructure:"request_timeout"`
	UserAgent         string  `mapstructure:"user_agent"`
	SkipExisting      bool    `mapstructure:"skip_existing"`
	RunTimeout        string  `mapstructure:"run_timeout"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	MaxAssetSizeMB    int     `mapstructure:"max_asset_size_mb"`
	BufferSizeKB      int     `mapstructure:"buffer_size_kb"`
	ProgressInterval  string  `mapstructure:"progress_interval"`
}

// ManifestConfig contains run manifest settings
type ManifestConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// MaintenanceConfig contains cleanup settings for interrupted runs
type MaintenanceConfig struct {
	TempFileMaxAge  string `mapstructure:"temp_file_max_age"`
	StaleRunTimeout string `mapstructure:"stale_run_timeout"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers every default on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("mirror.output_root", "scraped_files")
	v.SetDefault("mirror.worker_count", 8)
	v.SetDefault("mirror.request_timeout", "10s")
	v.SetDefault("mirror.user_agent", DefaultUserAgent)
	v.SetDefault("mirror.skip_existing", false)
	v.SetDefault("mirror.run_timeout", "0s")
	v.SetDefault("mirror.requests_per_second", 0.0)
	v.SetDefault("mirror.max_asset_size_mb", 0)
	v.SetDefault("mirror.buffer_size_kb", 256)
	v.SetDefault("mirror.progress_interval", "2s")
	v.SetDefault("manifest.enabled", true)
	v.SetDefault("manifest.path", "")
	v.SetDefault("maintenance.temp_file_max_age", "1h")
	v.SetDefault("maintenance.stale_run_timeout", "24h")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// New returns a viper instance with defaults and environment overrides applied
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load loads configuration from the specified file path.
// An empty path uses defaults, environment and whatever flags are bound on v.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	if v == nil {
		v = New()
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")

		// Read config file
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Mirror.OutputRoot == "" {
		return fmt.Errorf("mirror.output_root is required")
	}
	if c.Mirror.WorkerCount < 1 || c.Mirror.WorkerCount > 64 {
		return fmt.Errorf("mirror.worker_count must be between 1 and 64")
	}
	if c.Mirror.RequestsPerSecond < 0 {
		return fmt.Errorf("mirror.requests_per_second must not be negative")
	}
	if c.Mirror.MaxAssetSizeMB < 0 {
		return fmt.Errorf("mirror.max_asset_size_mb must not be negative")
	}

	durations := map[string]string{
		"mirror.request_timeout":   c.Mirror.RequestTimeout,
		"mirror.run_timeout":       c.Mirror.RunTimeout,
		"mirror.progress_interval": c.Mirror.ProgressInterval,

		"maintenance.temp_file_max_age": c.Maintenance.TempFileMaxAge,
		"maintenance.stale_run_timeout": c.Maintenance.StaleRunTimeout,
	}
	for key, value := range durations {
		if value == "" {
			continue
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		if d < 0 {
			return fmt.Errorf("invalid %s: must not be negative", key)
		}
	}

	// Validate logging config
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
		// Valid formats
	default:
		return fmt.Errorf("invalid logging.format: %s", c.Logging.Format)
	}

	return nil
}

// GetRequestTimeout returns the per-request timeout as time.Duration
func (c *MirrorConfig) GetRequestTimeout() time.Duration {
	d, _ := time.ParseDuration(c.RequestTimeout)
	if d == 0 {
		return 10 * time.Second
	}
	return d
}

// GetRunTimeout returns the whole-run timeout; zero means none
func (c *MirrorConfig) GetRunTimeout() time.Duration {
	d, _ := time.ParseDuration(c.RunTimeout)
	return d
}

// GetProgressInterval returns the progress log interval as time.Duration
func (c *MirrorConfig) GetProgressInterval() time.Duration {
	d, _ := time.ParseDuration(c.ProgressInterval)
	if d == 0 {
		return 2 * time.Second
	}
	return d
}

// GetBufferSize returns the copy buffer size in bytes
func (c *MirrorConfig) GetBufferSize() int {
	if c.BufferSizeKB <= 0 {
		return 256 * 1024 // 256KB default
	}
	return c.BufferSizeKB * 1024
}

// GetMaxAssetBytes returns the per-asset size cap in bytes; zero means unlimited
func (c *MirrorConfig) GetMaxAssetBytes() int64 {
	if c.MaxAssetSizeMB <= 0 {
		return 0
	}
	return int64(c.MaxAssetSizeMB) * 1024 * 1024
}

// GetUserAgent returns the configured user agent or the default one
func (c *MirrorConfig) GetUserAgent() string {
	if c.UserAgent == "" {
		return DefaultUserAgent
	}
	return c.UserAgent
}

// GetPath returns the manifest database path, defaulting to a file under outputRoot
func (c *ManifestConfig) GetPath(outputRoot string) string {
	if c.Path != "" {
		return c.Path
	}
	return filepath.Join(outputRoot, ManifestFileName)
}

// GetTempFileMaxAge returns the age after which temp files are removed
func (c *MaintenanceConfig) GetTempFileMaxAge() time.Duration {
	d, _ := time.ParseDuration(c.TempFileMaxAge)
	if d == 0 {
		return time.Hour
	}
	return d
}

// GetStaleRunTimeout returns when a running run is considered interrupted
func (c *MaintenanceConfig) GetStaleRunTimeout() time.Duration {
	d, _ := time.ParseDuration(c.StaleRunTimeout)
	if d == 0 {
		return 24 * time.Hour
	}
	return d
}
