package filesystem

import "strings"

// Path sanitization rules shared by all backends. The rule must match across
// backends so a file listed from a source routes to a predictable name at a
// destination: repeated slashes collapse to one, surrounding whitespace is
// trimmed, and object-store paths additionally lose any leading slash (a
// leading slash on S3 creates an object under an unnamed root folder).
//
// Both functions are idempotent: sanitizing an already-sanitized path
// returns it unchanged.

// SanitizeObjectPath normalizes a path for object-store style backends.
func SanitizeObjectPath(path string) string {
	path = collapseSlashes(path)
	return strings.TrimLeft(path, "/")
}

// SanitizeAbsolutePath normalizes a path for backends with a rooted
// namespace (SFTP, local disk), keeping any leading slash intact.
func SanitizeAbsolutePath(path string) string {
	return collapseSlashes(path)
}

func collapseSlashes(path string) string {
	path = strings.TrimSpace(path)
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	return path
}
