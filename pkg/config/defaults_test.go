package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaultsLogging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
}

func TestApplyDefaultsNormalizesLevel(t *testing.T) {
	cfg := &Config{Logging: LoggingConfig{Level: "warn"}}
	ApplyDefaults(cfg)

	assert.Equal(t, "WARN", cfg.Logging.Level)
}

func TestApplyDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging:  LoggingConfig{Level: "ERROR", Format: "json", Output: "stderr"},
		Iterator: IteratorConfig{MaxFiles: 7},
	}
	ApplyDefaults(cfg)

	assert.Equal(t, "ERROR", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "stderr", cfg.Logging.Output)
	assert.Equal(t, 7, cfg.Iterator.MaxFiles)
}

func TestApplyDefaultsSource(t *testing.T) {
	cfg := &Config{
		Sources: []SourceConfig{
			{
				Strategy:   "RENAME",
				Filesystem: FilesystemConfig{Type: "S3"},
				SuccessDestinations: []DestinationConfig{
					{Filesystem: FilesystemConfig{Type: "local"}},
				},
			},
			{},
		},
	}
	ApplyDefaults(cfg)

	assert.Equal(t, "rename", cfg.Sources[0].Strategy)
	assert.Equal(t, "s3", cfg.Sources[0].Filesystem.Type)
	assert.NotNil(t, cfg.Sources[0].Filesystem.S3)
	assert.NotNil(t, cfg.Sources[0].SuccessDestinations[0].Filesystem.Local)

	assert.Equal(t, "ignore", cfg.Sources[1].Strategy, "empty strategy defaults to ignore")
}
