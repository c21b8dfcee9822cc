package port

import (
	"io"
	"time"
)

// FileSystem defines the interface for writing mirrored files
type FileSystem interface {
	// EnsureDir creates dir and its parents; safe to call concurrently and repeatedly
	EnsureDir(dir string) error

	// FileExists checks if a file exists at path
	FileExists(path string) bool

	// WriteFile streams reader into path via a temp file and rename.
	// A positive maxBytes aborts the write with domain.ErrAssetTooLarge once exceeded.
	// Returns: bytes written, error
	WriteFile(path string, reader io.Reader, maxBytes int64) (int64, error)

	// ReadFile returns the content of path
	ReadFile(path string) ([]byte, error)

	// DeleteFile removes a file; missing files are not an error
	DeleteFile(path string) error

	// ListTempFiles returns the unfinished temp files in dir last modified
	// more than olderThan ago. A missing dir yields no files.
	ListTempFiles(dir string, olderThan time.Duration) ([]string, error)
}
