package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfigFile(t, `
logging:
  level: debug
  format: json
  output: stderr
iterator:
  max_files: 25
sources:
  - path: incoming
    strategy: rename
    recursive: true
    delete_on_success: true
    filesystem:
      type: sftp
      sftp:
        address: files.example.com
        username: ferry
        password: secret
    success_destinations:
      - timestamp_folder: true
        write_runlog: true
        filesystem:
          type: s3
          s3:
            region: ap-southeast-2
            bucket: processed
    failure_destinations:
      - allow_overwrite: true
        filesystem:
          type: local
          local:
            path: /var/spool/ferry/failed
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 25, cfg.Iterator.MaxFiles)

	require.Len(t, cfg.Sources, 1)
	src := cfg.Sources[0]
	assert.Equal(t, "incoming", src.Path)
	assert.Equal(t, "rename", src.Strategy)
	assert.True(t, src.Recursive)
	assert.True(t, src.DeleteOnSuccess)
	assert.Equal(t, "sftp", src.Filesystem.Type)
	assert.Equal(t, "files.example.com", src.Filesystem.Sftp["address"])

	require.Len(t, src.SuccessDestinations, 1)
	assert.True(t, src.SuccessDestinations[0].TimestampFolder)
	assert.True(t, src.SuccessDestinations[0].WriteRunlog)
	assert.Equal(t, "s3", src.SuccessDestinations[0].Filesystem.Type)

	require.Len(t, src.FailureDestinations, 1)
	assert.True(t, src.FailureDestinations[0].AllowOverwrite)
	assert.Equal(t, "local", src.FailureDestinations[0].Filesystem.Type)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
sources:
  - path: incoming
    filesystem:
      type: local
      local:
        path: /tmp/ferry-in
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, 0, cfg.Iterator.MaxFiles)
	assert.Equal(t, "ignore", cfg.Sources[0].Strategy)
}

func TestLoadRejectsInvalidStrategy(t *testing.T) {
	path := writeConfigFile(t, `
sources:
  - path: incoming
    strategy: steal
    filesystem:
      type: local
      local:
        path: /tmp/ferry-in
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadRejectsMissingSources(t *testing.T) {
	path := writeConfigFile(t, `
logging:
  level: info
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one source")
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("FERRY_LOGGING_LEVEL", "ERROR")

	path := writeConfigFile(t, `
logging:
  level: debug
sources:
  - path: incoming
    filesystem:
      type: local
      local:
        path: /tmp/ferry-in
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ERROR", cfg.Logging.Level)
}
