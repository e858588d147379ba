package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the complete ferry configuration.
//
// It captures everything a run needs:
//   - Logging configuration
//   - Iterator-wide settings (file quota)
//   - Source definitions, each with its filesystem, staking strategy,
//     disposal policy and destinations
//
// Configuration sources (in order of precedence):
//  1. Environment variables (FERRY_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values (lowest priority)
//
// Filesystem Configuration Pattern:
// Each backend defines its own option set. A FilesystemConfig contains
// type-specific sections (s3, sftp, local) and only the section matching
// the selected type is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Iterator contains run-wide settings
	Iterator IteratorConfig `mapstructure:"iterator"`

	// Sources defines the locations files are claimed from
	Sources []SourceConfig `mapstructure:"sources" validate:"dive"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// IteratorConfig contains run-wide settings.
type IteratorConfig struct {
	// MaxFiles caps stake attempts across all sources; <= 0 is unbounded
	MaxFiles int `mapstructure:"max_files"`
}

// SourceConfig defines a single source: where files come from and what
// happens to them.
type SourceConfig struct {
	// Filesystem specifies the backend files are claimed from
	Filesystem FilesystemConfig `mapstructure:"filesystem" validate:"required"`

	// Path is the folder listed for candidate files
	Path string `mapstructure:"path"`

	// Strategy selects the staking strategy
	// Valid values: ignore, rename, property (empty defaults to ignore)
	Strategy string `mapstructure:"strategy" validate:"omitempty,oneof=ignore rename property"`

	// Recursive lists the folder tree instead of the single folder
	Recursive bool `mapstructure:"recursive"`

	// DeleteOnSuccess removes the remote file after successful processing
	DeleteOnSuccess bool `mapstructure:"delete_on_success"`

	// DeleteOnFailure removes the remote file after failed processing
	DeleteOnFailure bool `mapstructure:"delete_on_failure"`

	// SuccessDestinations receive successfully processed files
	SuccessDestinations []DestinationConfig `mapstructure:"success_destinations" validate:"dive"`

	// FailureDestinations receive files whose processing failed
	FailureDestinations []DestinationConfig `mapstructure:"failure_destinations" validate:"dive"`
}

// DestinationConfig defines a delivery target and its policy.
type DestinationConfig struct {
	// Filesystem specifies the backend files are delivered to
	Filesystem FilesystemConfig `mapstructure:"filesystem" validate:"required"`

	// TimestampFolder places deliveries under a per-run timestamp folder
	TimestampFolder bool `mapstructure:"timestamp_folder"`

	// WriteRunlog delivers the run's log here after the run completes
	WriteRunlog bool `mapstructure:"write_runlog"`

	// AllowOverwrite permits replacing existing files at the target
	AllowOverwrite bool `mapstructure:"allow_overwrite"`
}

// FilesystemConfig specifies a filesystem backend.
//
// The Type field determines which backend is used. Only the corresponding
// type-specific section is read.
type FilesystemConfig struct {
	// Type specifies which backend to use
	// Valid values: s3, sftp, local
	Type string `mapstructure:"type" validate:"required,oneof=s3 sftp local"`

	// S3 contains S3-specific options
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3"`

	// Sftp contains SFTP-specific options
	// Only used when Type = "sftp"
	Sftp map[string]any `mapstructure:"sftp"`

	// Local contains local-filesystem options
	// Only used when Type = "local"
	Local map[string]any `mapstructure:"local"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (FERRY_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the FERRY_ prefix with underscores.
	// Example: FERRY_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("FERRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		// A missing config file is acceptable: defaults plus environment
		// variables may be a complete configuration.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "ferry")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "ferry")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
