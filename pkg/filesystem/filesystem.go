// Package filesystem defines the capability boundary between the staking
// iteration engine and the physical storage backends it moves files across.
//
// A Filesystem exposes a small set of primitive operations (list, exists,
// delete, download, upload, rename) against one backend. Implementations
// live in the sub-packages s3, sftp, local, and memory; the engine in
// pkg/iterator is written purely against this interface.
//
// Optional capabilities (object tagging, explicit connections) are modelled
// as separate interfaces that backends implement when the underlying
// protocol supports them. Callers discover capabilities with a type
// assertion rather than a backend switch.
package filesystem

import "context"

// Kind identifies the backend behind a Filesystem.
type Kind string

const (
	// KindObjectStore is S3 or any S3-compatible object store.
	KindObjectStore Kind = "s3"

	// KindSftp is an SFTP server.
	KindSftp Kind = "sftp"

	// KindLocal is the local disk.
	KindLocal Kind = "local"

	// KindMemory is the in-memory backend used in tests.
	KindMemory Kind = "memory"
)

// Filesystem is the primitive operation surface of one storage backend.
//
// All paths are relative to the backend's configured base path and are
// sanitized by the implementation before use. Implementations must be safe
// for use from multiple goroutines unless documented otherwise.
type Filesystem interface {
	// Kind returns the backend kind.
	Kind() Kind

	// List returns the paths of all files under path. When recursive is
	// false, files in subdirectories are excluded. Returned paths are
	// relative to the base path and can be passed back into any other
	// operation. A backend failure is fatal for the caller's listing pass.
	List(ctx context.Context, path string, recursive bool) ([]string, error)

	// Exists reports whether a file exists at path. A missing file is not
	// an error.
	Exists(ctx context.Context, path string) (bool, error)

	// Delete removes the file at path. Deleting a file that does not exist
	// is a no-op, not an error.
	Delete(ctx context.Context, path string) error

	// Download copies the remote file at remotePath to localPath on the
	// local disk, creating parent directories as needed.
	Download(ctx context.Context, remotePath, localPath string) error

	// Upload copies the local file at localPath to remotePath. When
	// allowOverwrite is false and a file already exists at remotePath,
	// Upload fails with ErrAlreadyExists.
	Upload(ctx context.Context, localPath, remotePath string, allowOverwrite bool) error

	// Rename atomically moves the file at oldPath to newPath. Renaming a
	// file that does not exist fails with ErrNotFound.
	Rename(ctx context.Context, oldPath, newPath string) error

	// SanitizePath normalizes a path for this backend. Sanitization is
	// idempotent.
	SanitizePath(path string) string
}

// Tagger is implemented by backends that can attach key/value metadata to
// individual files (e.g. S3 object tags). The property staking strategy
// requires this capability.
type Tagger interface {
	// WriteTag sets the tag key to value on the file at path, preserving
	// any other tags already present.
	WriteTag(ctx context.Context, path, key, value string) error

	// ReadTag returns the value of the tag key on the file at path, or an
	// empty string if the tag is not set.
	ReadTag(ctx context.Context, path, key string) (string, error)
}

// Connector is implemented by backends with an underlying long-lived
// connection (SFTP). The owner of the Filesystem is responsible for calling
// Close when done.
type Connector interface {
	// Connect opens the backend connection.
	Connect(ctx context.Context) error

	// Close releases the backend connection. Close is idempotent.
	Close() error
}
