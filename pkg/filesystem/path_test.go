package filesystem

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeObjectPath(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "incoming/file.csv", "incoming/file.csv"},
		{"leading slash stripped", "/incoming/file.csv", "incoming/file.csv"},
		{"multiple leading slashes stripped", "///incoming/file.csv", "incoming/file.csv"},
		{"repeated slashes collapsed", "incoming//sub///file.csv", "incoming/sub/file.csv"},
		{"whitespace trimmed", "  incoming/file.csv ", "incoming/file.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeObjectPath(tt.in))
		})
	}
}

func TestSanitizeAbsolutePath(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"leading slash kept", "/upload/file.csv", "/upload/file.csv"},
		{"repeated slashes collapsed", "/upload//sub///file.csv", "/upload/sub/file.csv"},
		{"relative unchanged", "upload/file.csv", "upload/file.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeAbsolutePath(tt.in))
		})
	}
}

// Sanitization must be idempotent so staged paths survive repeated
// normalization on their way through source, stake, and destination.
func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{
		"", "/", "//a//b/", "a//b", "  /x//y  ", "incoming/file.csv",
	}

	for _, in := range inputs {
		once := SanitizeObjectPath(in)
		assert.Equal(t, once, SanitizeObjectPath(once), "object path %q", in)

		once = SanitizeAbsolutePath(in)
		assert.Equal(t, once, SanitizeAbsolutePath(once), "absolute path %q", in)
	}
}
