// Package storage gives root-relative access to a directory tree.
package storage

import (
	"context"
	"io"

	"github.com/sdejongh/treesync/pkg/models"
)

// Backend defines the storage operations the sync engine needs.
// Paths are forward-slash keys relative to the backend root.
type Backend interface {
	// Root returns the absolute root of the tree
	Root() string

	// Read opens a file for reading
	Read(ctx context.Context, key string) (io.ReadCloser, error)

	// Write creates or overwrites a file with the given content and returns
	// the number of bytes written. If metadata is provided, the modification
	// time and permissions are preserved.
	Write(ctx context.Context, key string, reader io.Reader, size int64, metadata *models.FileDescriptor) (int64, error)

	// Delete removes a single file
	Delete(ctx context.Context, key string) error

	// Exists checks if a file or directory exists
	Exists(ctx context.Context, key string) (bool, error)

	// Stat returns file metadata
	Stat(ctx context.Context, key string) (*models.FileDescriptor, error)

	// MkdirAll creates a directory and all necessary parents
	MkdirAll(ctx context.Context, key string) error

	// Close releases any resources held by the backend
	Close() error
}
