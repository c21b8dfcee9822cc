package filesystem

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/vertextoedge/pagemirror/internal/domain"
	"github.com/vertextoedge/pagemirror/internal/port"
)

const defaultBufferSize = 256 * 1024

// tempSuffix marks files still being written
const tempSuffix = ".downloading"

// Manager handles local filesystem operations for a mirror
type Manager struct {
	fs         afero.Fs
	bufferSize int
}

// Ensure Manager implements port.FileSystem
var _ port.FileSystem = (*Manager)(nil)

// NewManagerWithFs creates a manager on top of any afero filesystem with a custom copy buffer size
func NewManagerWithFs(fs afero.Fs, bufferSize int) *Manager {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Manager{
		fs:         fs,
		bufferSize: bufferSize,
	}
}

// EnsureDir ensures a directory exists
func (m *Manager) EnsureDir(dir string) error {
	if err := m.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create dir %s: %w", dir, err)
	}
	return nil
}

// FileExists checks if a file exists
func (m *Manager) FileExists(path string) bool {
	info, err := m.fs.Stat(path)
	return err == nil && !info.IsDir()
}

// ReadFile returns the content of a file
func (m *Manager) ReadFile(path string) ([]byte, error) {
	return afero.ReadFile(m.fs, path)
}

// DeleteFile removes a file
func (m *Manager) DeleteFile(path string) error {
	if err := m.fs.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// WriteFile writes reader to path through a temp file in the same directory
func (m *Manager) WriteFile(path string, reader io.Reader, maxBytes int64) (int64, error) {
	dir := filepath.Dir(path)
	if err := m.EnsureDir(dir); err != nil {
		return 0, err
	}

	f, err := afero.TempFile(m.fs, dir, "."+filepath.Base(path)+".*"+tempSuffix)
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := f.Name()

	written, err := m.copy(f, reader, maxBytes)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close file: %w", closeErr)
	}
	if err != nil {
		m.fs.Remove(tempPath)
		return 0, err
	}

	if err := m.fs.Rename(tempPath, path); err != nil {
		m.fs.Remove(tempPath)
		return 0, fmt.Errorf("failed to rename temp file: %w", err)
	}

	return written, nil
}

func (m *Manager) copy(dst io.Writer, src io.Reader, maxBytes int64) (int64, error) {
	if maxBytes > 0 {
		// Read one byte past the limit to detect oversized bodies
		src = io.LimitReader(src, maxBytes+1)
	}

	buf := make([]byte, m.bufferSize)
	written, err := io.CopyBuffer(dst, src, buf)
	if err != nil {
		return written, fmt.Errorf("failed to write file: %w", err)
	}
	if maxBytes > 0 && written > maxBytes {
		return written, fmt.Errorf("%w (limit %d bytes)", domain.ErrAssetTooLarge, maxBytes)
	}
	return written, nil
}

// IsTempFile reports whether name is an unfinished download
func IsTempFile(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, tempSuffix)
}

// ListTempFiles returns temp files in dir older than olderThan
func (m *Manager) ListTempFiles(dir string, olderThan time.Duration) ([]string, error) {
	infos, err := afero.ReadDir(m.fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read dir %s: %w", dir, err)
	}

	cutoff := time.Now().Add(-olderThan)
	var paths []string
	for _, info := range infos {
		if info.IsDir() || !IsTempFile(info.Name()) {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		paths = append(paths, filepath.Join(dir, info.Name()))
	}
	return paths, nil
}
