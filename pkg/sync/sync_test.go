package sync

import (
	"context"
	"os"
	"path/filepath"
	stdsync "sync"
	"testing"
	"time"

	"github.com/sdejongh/treesync/pkg/index"
	"github.com/sdejongh/treesync/pkg/models"
	"github.com/sdejongh/treesync/pkg/ratelimit"
	"github.com/sdejongh/treesync/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func writeFile(t *testing.T, root, rel, content string, mod time.Time) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func readFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func exists(root, rel string) bool {
	_, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
	return err == nil
}

func buildIndex(t *testing.T, src, dst string) *index.Index {
	t.Helper()
	idx, err := (&index.Builder{}).Build(context.Background(), src, dst)
	require.NoError(t, err)
	return idx
}

func newTestSyncer(t *testing.T, src, dst string, opts Options) *Syncer {
	t.Helper()
	source, err := storage.NewLocal(src)
	require.NoError(t, err)
	dest, err := storage.NewLocal(dst)
	require.NoError(t, err)
	if opts.Workers == 0 {
		opts.Workers = 4
	}
	return NewSyncer(source, dest, opts)
}

func TestCopyUpdated(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeFile(t, src, "new.txt", "new", base)
	writeFile(t, src, "deep/nested/file.txt", "nested", base)
	writeFile(t, src, "stale.txt", "fresh", base.Add(time.Hour))
	writeFile(t, dst, "stale.txt", "old", base)
	writeFile(t, src, "older.txt", "src", base)
	writeFile(t, dst, "older.txt", "dst newer", base.Add(time.Hour))
	writeFile(t, src, "same.txt", "aaa", base.Add(300*time.Millisecond))
	writeFile(t, dst, "same.txt", "bbb", base.Add(700*time.Millisecond))
	writeFile(t, dst, "orphan.txt", "o", base)

	s := newTestSyncer(t, src, dst, Options{})
	result, err := s.CopyUpdated(context.Background(), buildIndex(t, src, dst))
	require.NoError(t, err)

	assert.Equal(t, 3, result.Copied)
	assert.Equal(t, 0, result.Deleted)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, int64(len("new")+len("nested")+len("fresh")), result.BytesTransferred)

	assert.Equal(t, "new", readFile(t, dst, "new.txt"))
	assert.Equal(t, "nested", readFile(t, dst, "deep/nested/file.txt"))
	assert.Equal(t, "fresh", readFile(t, dst, "stale.txt"))
	assert.Equal(t, "dst newer", readFile(t, dst, "older.txt"))
	assert.Equal(t, "bbb", readFile(t, dst, "same.txt"), "same second is not newer")
	assert.True(t, exists(dst, "orphan.txt"))

	info, err := os.Stat(filepath.Join(dst, "stale.txt"))
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(base.Add(time.Hour)), "modification time must be preserved")
}

func TestCopyUpdated_Idempotent(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeFile(t, src, "a.txt", "a", base)
	writeFile(t, src, "b/c.txt", "c", base.Add(1500*time.Millisecond))
	writeFile(t, dst, "a.txt", "old", base.Add(-time.Minute))

	s := newTestSyncer(t, src, dst, Options{})
	first, err := s.CopyUpdated(context.Background(), buildIndex(t, src, dst))
	require.NoError(t, err)
	assert.Equal(t, 2, first.Count())

	second, err := s.CopyUpdated(context.Background(), buildIndex(t, src, dst))
	require.NoError(t, err)
	assert.Equal(t, 0, second.Count())
}

func TestRemoveOrphaned(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeFile(t, src, "keep.txt", "k", base)
	writeFile(t, dst, "keep.txt", "k", base)
	writeFile(t, dst, "orphan.txt", "o", base)
	writeFile(t, dst, "dir/orphan2.txt", "o", base)

	s := newTestSyncer(t, src, dst, Options{})
	result, err := s.RemoveOrphaned(context.Background(), buildIndex(t, src, dst))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Deleted)
	assert.Equal(t, 2, result.Count())
	assert.False(t, exists(dst, "orphan.txt"))
	assert.False(t, exists(dst, "dir/orphan2.txt"))
	assert.True(t, exists(dst, "keep.txt"))
}

func TestSync_Scenario(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeFile(t, dst, "a.txt", "Y", base)
	writeFile(t, dst, "b.txt", "B", base)
	writeFile(t, src, "a.txt", "X", base.Add(time.Minute))

	idx, err := (&index.Builder{HashEnabled: true}).Build(context.Background(), src, dst)
	require.NoError(t, err)
	require.Equal(t, 2, idx.Len())

	s := newTestSyncer(t, src, dst, Options{})
	result, err := s.Sync(context.Background(), idx)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Count())
	assert.Equal(t, 1, result.Copied)
	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, "X", readFile(t, dst, "a.txt"))
	assert.False(t, exists(dst, "b.txt"))
}

func TestSync_NeverCopiesAndDeletesSamePath(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	for _, name := range []string{"a", "b", "c"} {
		writeFile(t, src, name+".txt", name, base)
	}
	for _, name := range []string{"x", "y"} {
		writeFile(t, dst, name+".txt", name, base)
	}

	var mu stdsync.Mutex
	seen := map[string]int{}
	progress := func(u models.ProgressUpdate) {
		if u.Type == models.ProgressCopyFile {
			mu.Lock()
			seen[u.FilePath]++
			mu.Unlock()
		}
	}

	s := newTestSyncer(t, src, dst, Options{Progress: progress})
	result, err := s.Sync(context.Background(), buildIndex(t, src, dst))
	require.NoError(t, err)

	assert.Equal(t, 3, result.Copied)
	assert.Equal(t, 2, result.Deleted)
	assert.Len(t, seen, 5)
	for key, n := range seen {
		assert.Equal(t, 1, n, "%s handled more than once", key)
	}
	for _, name := range []string{"a", "b", "c"} {
		assert.True(t, exists(dst, name+".txt"))
	}
}

func TestSync_CopyFailureIsSkipped(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeFile(t, src, "vanishing.txt", "v", base)
	writeFile(t, src, "ok.txt", "ok", base)
	writeFile(t, dst, "orphan.txt", "o", base)

	idx := buildIndex(t, src, dst)
	require.NoError(t, os.Remove(filepath.Join(src, "vanishing.txt")))

	s := newTestSyncer(t, src, dst, Options{})
	result, err := s.Sync(context.Background(), idx)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Copied)
	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "vanishing.txt", result.Errors[0].FilePath)
	assert.ErrorIs(t, result.Errors[0].Err, models.ErrCopyFailure)
	assert.ErrorIs(t, result.Errors[0].Err, os.ErrNotExist)
	assert.Equal(t, models.StatusPartial, result.Status())
	assert.Equal(t, "ok", readFile(t, dst, "ok.txt"))
}

func TestRemoveOrphaned_DeleteFailureIsSkipped(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeFile(t, dst, "gone.txt", "g", base)
	writeFile(t, dst, "orphan.txt", "o", base)

	idx := buildIndex(t, src, dst)
	require.NoError(t, os.Remove(filepath.Join(dst, "gone.txt")))

	s := newTestSyncer(t, src, dst, Options{})
	result, err := s.RemoveOrphaned(context.Background(), idx)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Errors, 1)
	assert.ErrorIs(t, result.Errors[0].Err, models.ErrDeleteFailure)
	assert.Equal(t, models.ActionDelete, result.Errors[0].Operation)
}

func TestSync_DryRun(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeFile(t, src, "new.txt", "new", base)
	writeFile(t, dst, "orphan.txt", "o", base)

	s := newTestSyncer(t, src, dst, Options{DryRun: true})
	result, err := s.Sync(context.Background(), buildIndex(t, src, dst))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Copied)
	assert.Equal(t, 1, result.Deleted)
	assert.False(t, exists(dst, "new.txt"))
	assert.True(t, exists(dst, "orphan.txt"))
}

func TestTwoWay(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeFile(t, src, "src-only.txt", "s", base)
	writeFile(t, dst, "dst-only.txt", "d", base)
	writeFile(t, src, "src-newer.txt", "src wins", base.Add(time.Hour))
	writeFile(t, dst, "src-newer.txt", "old", base)
	writeFile(t, src, "dst-newer.txt", "old", base)
	writeFile(t, dst, "dst-newer.txt", "dst wins", base.Add(time.Hour))
	writeFile(t, src, "equal.txt", "one", base)
	writeFile(t, dst, "equal.txt", "two", base)

	s := newTestSyncer(t, src, dst, Options{})
	result, err := s.TwoWay(context.Background(), buildIndex(t, src, dst))
	require.NoError(t, err)

	assert.Equal(t, 4, result.Copied)
	assert.Equal(t, 0, result.Deleted)

	assert.Equal(t, "s", readFile(t, dst, "src-only.txt"))
	assert.Equal(t, "d", readFile(t, src, "dst-only.txt"))
	assert.Equal(t, "src wins", readFile(t, dst, "src-newer.txt"))
	assert.Equal(t, "dst wins", readFile(t, src, "dst-newer.txt"))
	assert.Equal(t, "one", readFile(t, src, "equal.txt"))
	assert.Equal(t, "two", readFile(t, dst, "equal.txt"))

	again, err := s.TwoWay(context.Background(), buildIndex(t, src, dst))
	require.NoError(t, err)
	assert.Equal(t, 0, again.Count())
}

func TestSync_Cancelled(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeFile(t, src, "a.txt", "a", base)
	idx := buildIndex(t, src, dst)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newTestSyncer(t, src, dst, Options{})
	result, err := s.Sync(ctx, idx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, result.Count())
	assert.False(t, exists(dst, "a.txt"))
}

func TestCopy_WithLimiterAndProgress(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	big := make([]byte, 300*1024)
	for i := range big {
		big[i] = byte(i)
	}
	require.NoError(t, os.WriteFile(filepath.Join(src, "big.bin"), big, 0644))

	var mu stdsync.Mutex
	var start models.ProgressUpdate
	var copiedBytes int64
	progress := func(u models.ProgressUpdate) {
		mu.Lock()
		defer mu.Unlock()
		switch u.Type {
		case models.ProgressCopyStart:
			start = u
		case models.ProgressCopyBytes:
			copiedBytes += u.Bytes
		}
	}

	s := newTestSyncer(t, src, dst, Options{Limiter: ratelimit.NewLimiter(64 * 1024 * 1024), Progress: progress})
	result, err := s.CopyUpdated(context.Background(), buildIndex(t, src, dst))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Copied)
	assert.Equal(t, int64(len(big)), result.BytesTransferred)
	assert.Equal(t, 1, start.TotalFiles)
	assert.Equal(t, int64(len(big)), start.TotalBytes)
	assert.Equal(t, int64(len(big)), copiedBytes)

	data, err := os.ReadFile(filepath.Join(dst, "big.bin"))
	require.NoError(t, err)
	assert.Equal(t, big, data)
}
