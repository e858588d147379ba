package s3

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectKey(t *testing.T) {
	tests := []struct {
		name     string
		basePath string
		path     string
		want     string
	}{
		{"no base path", "", "incoming/a.csv", "incoming/a.csv"},
		{"base path prepended", "feeds/acme", "incoming/a.csv", "feeds/acme/incoming/a.csv"},
		{"leading slash stripped", "feeds", "/a.csv", "feeds/a.csv"},
		{"empty path yields base", "feeds", "", "feeds"},
		{"repeated slashes collapsed", "feeds", "in//sub//a.csv", "feeds/in/sub/a.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := &Filesystem{basePath: tt.basePath}
			assert.Equal(t, tt.want, fs.objectKey(tt.path))
		})
	}
}

func TestRelPath(t *testing.T) {
	fs := &Filesystem{basePath: "feeds/acme"}

	assert.Equal(t, "incoming/a.csv", fs.relPath("feeds/acme/incoming/a.csv"))
	// Keys outside the base path pass through untouched.
	assert.Equal(t, "elsewhere/b.csv", fs.relPath("elsewhere/b.csv"))

	fs = &Filesystem{}
	assert.Equal(t, "incoming/a.csv", fs.relPath("incoming/a.csv"))
}

// Round trip: a listed key resolved back to an object key must be stable,
// otherwise staking would act on the wrong object.
func TestKeyRoundTrip(t *testing.T) {
	fs := &Filesystem{basePath: "feeds/acme"}

	key := "feeds/acme/incoming/sub/a.csv"
	assert.Equal(t, key, fs.objectKey(fs.relPath(key)))
}
