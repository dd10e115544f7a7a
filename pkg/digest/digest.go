// Package digest computes streamed file digests with a selectable algorithm.
package digest

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sdejongh/treesync/pkg/models"
)

// DefaultBufferSize is the chunk size used when none is configured (64KB)
const DefaultBufferSize = 64 * 1024

// Digest is the raw output of an algorithm, big-endian for CRCs
type Digest []byte

// String returns the lower-case hex form
func (d Digest) String() string {
	return hex.EncodeToString(d)
}

// Equal reports whether both digests are present and byte-equal
func (d Digest) Equal(other Digest) bool {
	if d == nil || other == nil {
		return false
	}
	return bytes.Equal(d, other)
}

// ReaderWrapper wraps a file reader before it is digested (e.g., for rate limiting)
type ReaderWrapper func(io.ReadCloser) io.ReadCloser

// Hasher digests files with one algorithm, reusing read buffers across calls.
// A Hasher is safe for concurrent use.
type Hasher struct {
	algorithm     Algorithm
	bufferSize    int
	bufferPool    *sync.Pool
	readerWrapper ReaderWrapper
}

// NewHasher creates a hasher. Buffers smaller than 4KB are raised to 4KB.
func NewHasher(alg Algorithm, bufferSize int) (*Hasher, error) {
	if _, err := alg.New(); err != nil {
		return nil, err
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if bufferSize < 4096 {
		bufferSize = 4096
	}
	return &Hasher{
		algorithm:  alg,
		bufferSize: bufferSize,
		bufferPool: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, bufferSize)
				return &buf
			},
		},
	}, nil
}

// Algorithm returns the configured algorithm
func (h *Hasher) Algorithm() Algorithm {
	return h.algorithm
}

// SetReaderWrapper sets a wrapper applied to every opened file
func (h *Hasher) SetReaderWrapper(wrapper ReaderWrapper) {
	h.readerWrapper = wrapper
}

// File digests the file at path. Cancellation is only checked before the
// file is opened; a started file is always read to the end.
func (h *Hasher) File(ctx context.Context, path string) (Digest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rc io.ReadCloser
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", models.ErrHashFailure, path, err)
	}
	rc = f
	if h.readerWrapper != nil {
		rc = h.readerWrapper(rc)
	}
	defer rc.Close()

	d, err := h.Reader(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", models.ErrHashFailure, path, err)
	}
	return d, nil
}

// Reader digests everything read from r in fixed-size chunks
func (h *Hasher) Reader(r io.Reader) (Digest, error) {
	hasher, err := h.algorithm.New()
	if err != nil {
		return nil, err
	}

	bufPtr := h.bufferPool.Get().(*[]byte)
	defer h.bufferPool.Put(bufPtr)
	buf := *bufPtr

	for {
		n, err := r.Read(buf)
		if n > 0 {
			hasher.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	return Digest(hasher.Sum(nil)), nil
}

// File digests one file with a throwaway hasher using the default buffer size
func File(ctx context.Context, path string, alg Algorithm) (Digest, error) {
	h, err := NewHasher(alg, DefaultBufferSize)
	if err != nil {
		return nil, err
	}
	return h.File(ctx, path)
}

// Reader digests a stream with a throwaway hasher
func Reader(r io.Reader, alg Algorithm, bufSize int) (Digest, error) {
	h, err := NewHasher(alg, bufSize)
	if err != nil {
		return nil, err
	}
	return h.Reader(r)
}
