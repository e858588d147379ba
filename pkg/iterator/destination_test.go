package iterator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eonx-com/ferry/pkg/filesystem"
	"github.com/eonx-com/ferry/pkg/filesystem/memory"
)

func stageLocalFile(t *testing.T, content string) string {
	t.Helper()
	local := filepath.Join(t.TempDir(), "staged")
	require.NoError(t, os.WriteFile(local, []byte(content), 0o600))
	return local
}

func TestDeliver(t *testing.T) {
	fs := memory.New()
	dest := &Destination{FS: fs}
	local := stageLocalFile(t, "hello")

	err := dest.Deliver(context.Background(), local, "incoming/a.csv", time.Now())
	require.NoError(t, err)

	data, ok := fs.Get("incoming/a.csv")
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), data)
}

func TestDeliverTimestampFolder(t *testing.T) {
	fs := memory.New()
	dest := &Destination{FS: fs, TimestampFolder: true}
	local := stageLocalFile(t, "hello")

	stamp := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	err := dest.Deliver(context.Background(), local, "incoming/a.csv", stamp)
	require.NoError(t, err)

	_, ok := fs.Get("2026-03-14T09:26:53Z/incoming/a.csv")
	assert.True(t, ok, "file should land under the iteration-start timestamp folder")
}

func TestDeliverSameRunSharesFolder(t *testing.T) {
	fs := memory.New()
	dest := &Destination{FS: fs, TimestampFolder: true}
	stamp := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	for _, name := range []string{"incoming/a.csv", "incoming/b.csv"} {
		local := stageLocalFile(t, name)
		require.NoError(t, dest.Deliver(context.Background(), local, name, stamp))
	}

	files, err := fs.List(context.Background(), "2026-03-14T09:26:53Z", true)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestDeliverRefusesOverwrite(t *testing.T) {
	fs := memory.New()
	fs.Put("incoming/a.csv", []byte("existing"))

	dest := &Destination{FS: fs}
	local := stageLocalFile(t, "new")

	err := dest.Deliver(context.Background(), local, "incoming/a.csv", time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, filesystem.ErrAlreadyExists)

	data, _ := fs.Get("incoming/a.csv")
	assert.Equal(t, []byte("existing"), data, "existing file must be preserved")
}

func TestDeliverOverwriteAllowed(t *testing.T) {
	fs := memory.New()
	fs.Put("incoming/a.csv", []byte("existing"))

	dest := &Destination{FS: fs, AllowOverwrite: true}
	local := stageLocalFile(t, "new")

	err := dest.Deliver(context.Background(), local, "incoming/a.csv", time.Now())
	require.NoError(t, err)

	data, _ := fs.Get("incoming/a.csv")
	assert.Equal(t, []byte("new"), data)
}
