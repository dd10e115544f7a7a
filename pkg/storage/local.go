package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sdejongh/treesync/internal/platform"
	"github.com/sdejongh/treesync/pkg/models"
)

// Local is a filesystem-based storage backend
type Local struct {
	rootPath string
}

// NewLocal creates a new local filesystem backend
func NewLocal(rootPath string) (*Local, error) {
	absPath, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access path: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", absPath)
	}

	return &Local{rootPath: absPath}, nil
}

// Root returns the absolute root path
func (l *Local) Root() string {
	return l.rootPath
}

// resolve maps a key to a native path, refusing keys that leave the root
func (l *Local) resolve(key string) (string, error) {
	full := platform.Resolve(l.rootPath, platform.NormalizeKey(key))
	if !platform.IsNested(l.rootPath, full) {
		return "", fmt.Errorf("key %q escapes root %s", key, l.rootPath)
	}
	return full, nil
}

// Read opens a file for reading
func (l *Local) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := l.resolve(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Write streams reader into a temporary file next to the target and renames
// it into place, so a failed copy never leaves a truncated destination.
func (l *Local) Write(ctx context.Context, key string, reader io.Reader, size int64, metadata *models.FileDescriptor) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	fullPath, err := l.resolve(key)
	if err != nil {
		return 0, err
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(fullPath)+".treesync-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmp, reader)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return written, fmt.Errorf("failed to write file: %w", err)
	}
	if size >= 0 && written != size {
		return written, fmt.Errorf("incomplete write: expected %d bytes, wrote %d", size, written)
	}

	if metadata != nil {
		if metadata.Permissions != 0 {
			if err := os.Chmod(tmpPath, os.FileMode(metadata.Permissions)); err != nil {
				return written, fmt.Errorf("failed to set permissions: %w", err)
			}
		}
		if !metadata.ModTime.IsZero() {
			if err := os.Chtimes(tmpPath, metadata.ModTime, metadata.ModTime); err != nil {
				return written, fmt.Errorf("failed to set modification time: %w", err)
			}
		}
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		return written, fmt.Errorf("failed to replace file: %w", err)
	}
	committed = true
	return written, nil
}

// Delete removes a single file. Directories are refused.
func (l *Local) Delete(ctx context.Context, key string) error {
	fullPath, err := l.resolve(key)
	if err != nil {
		return err
	}

	info, err := os.Lstat(fullPath)
	if err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("failed to delete: %s is a directory", key)
	}
	if err := os.Remove(fullPath); err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}
	return nil
}

// Exists checks if a file or directory exists
func (l *Local) Exists(ctx context.Context, key string) (bool, error) {
	fullPath, err := l.resolve(key)
	if err != nil {
		return false, err
	}

	_, err = os.Lstat(fullPath)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check existence: %w", err)
}

// Stat returns file metadata
func (l *Local) Stat(ctx context.Context, key string) (*models.FileDescriptor, error) {
	fullPath, err := l.resolve(key)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	return &models.FileDescriptor{
		Path:        fullPath,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		Permissions: uint32(info.Mode().Perm()),
	}, nil
}

// MkdirAll creates a directory and all necessary parents
func (l *Local) MkdirAll(ctx context.Context, key string) error {
	fullPath, err := l.resolve(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(fullPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

// Close releases resources (no-op for local filesystem)
func (l *Local) Close() error {
	return nil
}
