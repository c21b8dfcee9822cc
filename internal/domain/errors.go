package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Common domain errors
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnknownCategory = errors.New("unknown asset category")
	ErrInvalidURL      = errors.New("invalid url")

	// Asset download errors
	ErrAssetTooLarge = errors.New("asset exceeds maximum size")
	ErrEmptyFilename = errors.New("cannot derive file name from url")
)

// FetchError reports that the root document could not be retrieved.
// It is the only failure that aborts a mirror run.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

// Error returns the error message
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s failed", e.URL)
}

// Unwrap returns the underlying error
func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError
func NewFetchError(rawURL string, err error) *FetchError {
	code, _ := GetStatusCode(err)
	return &FetchError{URL: rawURL, StatusCode: code, Err: err}
}

// IsFetchError returns true if err is or wraps a FetchError
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// StatusError represents a non-success HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
}

// Error returns the error message
func (e *StatusError) Error() string {
	text := http.StatusText(e.StatusCode)
	if text == "" {
		return fmt.Sprintf("unexpected status %d for %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("unexpected status %d (%s) for %s", e.StatusCode, text, e.URL)
}

// NewStatusError creates a new StatusError
func NewStatusError(rawURL string, code int) *StatusError {
	return &StatusError{URL: rawURL, StatusCode: code}
}

// GetStatusCode returns the HTTP status carried by err, if any
func GetStatusCode(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode, true
	}
	return 0, false
}

// WriteError represents a local filesystem failure while saving an asset.
type WriteError struct {
	Path string
	Err  error
}

// Error returns the error message
func (e *WriteError) Error() string {
	if e.Err != nil {
		return "write " + e.Path + ": " + e.Err.Error()
	}
	return "write " + e.Path + " failed"
}

// Unwrap returns the underlying error
func (e *WriteError) Unwrap() error {
	return e.Err
}

// NewWriteError creates a new WriteError
func NewWriteError(path string, err error) *WriteError {
	return &WriteError{Path: path, Err: err}
}

// IsWriteError returns true if err is or wraps a WriteError
func IsWriteError(err error) bool {
	var we *WriteError
	return errors.As(err, &we)
}
