// Package testing provides a reusable conformance suite for Filesystem
// implementations. It tests the interface contract, not implementation
// details, so the same suite runs against the local and memory backends
// (and against S3/SFTP in integration environments).
package testing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/eonx-com/ferry/pkg/filesystem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Suite is a conformance test suite for filesystem.Filesystem.
type Suite struct {
	// NewFilesystem creates a fresh, empty filesystem for each test.
	NewFilesystem func(t *testing.T) filesystem.Filesystem
}

// Run executes all conformance tests.
func (s *Suite) Run(t *testing.T) {
	t.Run("UploadDownload", s.testUploadDownload)
	t.Run("UploadNoOverwrite", s.testUploadNoOverwrite)
	t.Run("Exists", s.testExists)
	t.Run("DeleteIdempotent", s.testDeleteIdempotent)
	t.Run("List", s.testList)
	t.Run("ListRecursive", s.testListRecursive)
	t.Run("Rename", s.testRename)
	t.Run("RenameMissing", s.testRenameMissing)
	t.Run("SanitizeIdempotent", s.testSanitizeIdempotent)
}

// seed uploads content at path via the public interface.
func seed(t *testing.T, fs filesystem.Filesystem, path, content string) {
	t.Helper()

	local := filepath.Join(t.TempDir(), "seed")
	require.NoError(t, os.WriteFile(local, []byte(content), 0644))
	require.NoError(t, fs.Upload(context.Background(), local, path, true))
}

func (s *Suite) testUploadDownload(t *testing.T) {
	fs := s.NewFilesystem(t)
	ctx := context.Background()

	seed(t, fs, "incoming/report.csv", "a,b,c")

	local := filepath.Join(t.TempDir(), "out", "report.csv")
	require.NoError(t, fs.Download(ctx, "incoming/report.csv", local))

	data, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, "a,b,c", string(data))
}

func (s *Suite) testUploadNoOverwrite(t *testing.T) {
	fs := s.NewFilesystem(t)

	seed(t, fs, "report.csv", "original")

	local := filepath.Join(t.TempDir(), "new")
	require.NoError(t, os.WriteFile(local, []byte("replacement"), 0644))

	err := fs.Upload(context.Background(), local, "report.csv", false)
	assert.ErrorIs(t, err, filesystem.ErrAlreadyExists)

	// Overwrite allowed succeeds.
	assert.NoError(t, fs.Upload(context.Background(), local, "report.csv", true))
}

func (s *Suite) testExists(t *testing.T) {
	fs := s.NewFilesystem(t)
	ctx := context.Background()

	exists, err := fs.Exists(ctx, "missing.txt")
	require.NoError(t, err)
	assert.False(t, exists)

	seed(t, fs, "present.txt", "x")

	exists, err = fs.Exists(ctx, "present.txt")
	require.NoError(t, err)
	assert.True(t, exists)
}

func (s *Suite) testDeleteIdempotent(t *testing.T) {
	fs := s.NewFilesystem(t)
	ctx := context.Background()

	seed(t, fs, "victim.txt", "x")

	require.NoError(t, fs.Delete(ctx, "victim.txt"))

	exists, err := fs.Exists(ctx, "victim.txt")
	require.NoError(t, err)
	assert.False(t, exists)

	// Deleting again is a no-op, never an error.
	assert.NoError(t, fs.Delete(ctx, "victim.txt"))
}

func (s *Suite) testList(t *testing.T) {
	fs := s.NewFilesystem(t)
	ctx := context.Background()

	seed(t, fs, "incoming/a.csv", "a")
	seed(t, fs, "incoming/b.csv", "b")
	seed(t, fs, "incoming/sub/c.csv", "c")
	seed(t, fs, "other/d.csv", "d")

	files, err := fs.List(ctx, "incoming", false)
	require.NoError(t, err)
	assert.Len(t, files, 2)
	assert.Contains(t, files, fs.SanitizePath("incoming/a.csv"))
	assert.Contains(t, files, fs.SanitizePath("incoming/b.csv"))
}

func (s *Suite) testListRecursive(t *testing.T) {
	fs := s.NewFilesystem(t)
	ctx := context.Background()

	seed(t, fs, "incoming/a.csv", "a")
	seed(t, fs, "incoming/sub/deep/c.csv", "c")

	files, err := fs.List(ctx, "incoming", true)
	require.NoError(t, err)
	assert.Len(t, files, 2)
	assert.Contains(t, files, fs.SanitizePath("incoming/sub/deep/c.csv"))
}

func (s *Suite) testRename(t *testing.T) {
	fs := s.NewFilesystem(t)
	ctx := context.Background()

	seed(t, fs, "incoming/a.csv", "payload")

	require.NoError(t, fs.Rename(ctx, "incoming/a.csv", "incoming/a.csv.claimed"))

	exists, err := fs.Exists(ctx, "incoming/a.csv")
	require.NoError(t, err)
	assert.False(t, exists, "original must be gone after rename")

	exists, err = fs.Exists(ctx, "incoming/a.csv.claimed")
	require.NoError(t, err)
	assert.True(t, exists, "renamed file must exist")
}

func (s *Suite) testRenameMissing(t *testing.T) {
	fs := s.NewFilesystem(t)

	err := fs.Rename(context.Background(), "no/such/file.txt", "elsewhere.txt")
	assert.True(t, errors.Is(err, filesystem.ErrNotFound), "expected ErrNotFound, got %v", err)
}

func (s *Suite) testSanitizeIdempotent(t *testing.T) {
	fs := s.NewFilesystem(t)

	for _, p := range []string{"", "/", "//a//b", "a/b.txt", " /x//y.csv "} {
		once := fs.SanitizePath(p)
		assert.Equal(t, once, fs.SanitizePath(once), "input %q", p)
	}
}
