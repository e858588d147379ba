package sftp

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/eonx-com/ferry/pkg/filesystem"
)

func TestNewValidatesConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing address", Config{Username: "ferry", Password: "secret"}},
		{"missing username", Config{Address: "files.example.com", Password: "secret"}},
		{"missing credentials", Config{Address: "files.example.com", Username: "ferry"}},
		{"validation without fingerprint", Config{
			Address:         "files.example.com",
			Username:        "ferry",
			Password:        "secret",
			ValidateHostKey: true,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			require.Error(t, err)
		})
	}
}

func TestNewDefaultsPort(t *testing.T) {
	fs, err := New(Config{Address: "files.example.com", Username: "ferry", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, 22, fs.cfg.Port)
}

func TestOperationsRequireConnection(t *testing.T) {
	fs, err := New(Config{Address: "files.example.com", Username: "ferry", Password: "secret"})
	require.NoError(t, err)

	ctx := context.Background()

	_, err = fs.List(ctx, "incoming", false)
	assert.ErrorIs(t, err, filesystem.ErrNotConnected)

	_, err = fs.Exists(ctx, "incoming/a.csv")
	assert.ErrorIs(t, err, filesystem.ErrNotConnected)

	err = fs.Rename(ctx, "incoming/a.csv", "incoming/b.csv")
	assert.ErrorIs(t, err, filesystem.ErrNotConnected)
}

func TestCloseWithoutConnect(t *testing.T) {
	fs, err := New(Config{Address: "files.example.com", Username: "ferry", Password: "secret"})
	require.NoError(t, err)

	assert.NoError(t, fs.Close())
	assert.NoError(t, fs.Close())
}

func TestFullPath(t *testing.T) {
	tests := []struct {
		name     string
		basePath string
		in       string
		want     string
	}{
		{"no base", "", "/incoming/a.csv", "/incoming/a.csv"},
		{"root base", "/", "/incoming/a.csv", "/incoming/a.csv"},
		{"base prepended", "/upload", "incoming/a.csv", "/upload/incoming/a.csv"},
		{"base with absolute path", "/upload", "/incoming/a.csv", "/upload/incoming/a.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, err := New(Config{
				Address:  "files.example.com",
				Username: "ferry",
				Password: "secret",
				BasePath: tt.basePath,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, fs.fullPath(tt.in))
		})
	}
}

func TestRelPathRoundTrip(t *testing.T) {
	fs, err := New(Config{
		Address:  "files.example.com",
		Username: "ferry",
		Password: "secret",
		BasePath: "/upload",
	})
	require.NoError(t, err)

	full := fs.fullPath("incoming/a.csv")
	assert.Equal(t, "incoming/a.csv", fs.relPath(full))
}

func TestHostKeyCallback(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	hostKey, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)

	newFs := func(fingerprint string) *Filesystem {
		fs, err := New(Config{
			Address:            "files.example.com",
			Username:           "ferry",
			Password:           "secret",
			ValidateHostKey:    true,
			HostKeyFingerprint: fingerprint,
		})
		require.NoError(t, err)
		return fs
	}

	t.Run("accepts matching fingerprint", func(t *testing.T) {
		fs := newFs(ssh.FingerprintSHA256(hostKey))
		assert.NoError(t, fs.hostKeyCallback()("files.example.com:22", nil, hostKey))
	})

	t.Run("rejects mismatched fingerprint", func(t *testing.T) {
		fs := newFs("SHA256:somethingelse")
		assert.Error(t, fs.hostKeyCallback()("files.example.com:22", nil, hostKey))
	})
}

func TestKind(t *testing.T) {
	fs, err := New(Config{Address: "files.example.com", Username: "ferry", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, filesystem.KindSftp, fs.Kind())
}
