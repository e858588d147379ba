package config

import "strings"

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Called after loading configuration from file and environment variables to
// fill in any missing values.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Backend-specific defaults are handled by the backend constructors
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)

	// MaxFiles defaults to 0 (unbounded)

	for i := range cfg.Sources {
		applySourceDefaults(&cfg.Sources[i])
	}
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applySourceDefaults sets source defaults.
func applySourceDefaults(cfg *SourceConfig) {
	if cfg.Strategy == "" {
		cfg.Strategy = "ignore"
	}
	cfg.Strategy = strings.ToLower(cfg.Strategy)

	applyFilesystemDefaults(&cfg.Filesystem)

	for i := range cfg.SuccessDestinations {
		applyFilesystemDefaults(&cfg.SuccessDestinations[i].Filesystem)
	}
	for i := range cfg.FailureDestinations {
		applyFilesystemDefaults(&cfg.FailureDestinations[i].Filesystem)
	}
}

// applyFilesystemDefaults initializes option maps so factories never see nil.
func applyFilesystemDefaults(cfg *FilesystemConfig) {
	cfg.Type = strings.ToLower(cfg.Type)

	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}
	if cfg.Sftp == nil {
		cfg.Sftp = make(map[string]any)
	}
	if cfg.Local == nil {
		cfg.Local = make(map[string]any)
	}
}
