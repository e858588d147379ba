package filesystem

import "errors"

// Sentinel errors returned by Filesystem implementations. Callers branch on
// these with errors.Is; everything else is an infrastructure failure.
var (
	// ErrNotFound indicates the requested file does not exist.
	ErrNotFound = errors.New("file not found")

	// ErrAlreadyExists indicates the target file exists and overwriting
	// was not allowed.
	ErrAlreadyExists = errors.New("file already exists")

	// ErrNotSupported indicates the backend does not support the requested
	// operation (e.g. tags on SFTP).
	ErrNotSupported = errors.New("operation not supported by this filesystem")

	// ErrNotConnected indicates an operation was attempted on a backend
	// whose connection has not been opened.
	ErrNotConnected = errors.New("filesystem is not connected")
)
