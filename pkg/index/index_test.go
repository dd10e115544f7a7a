package index

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/sdejongh/treesync/pkg/catalog"
	"github.com/sdejongh/treesync/pkg/digest"
	"github.com/sdejongh/treesync/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func keys(idx *Index) []string {
	out := make([]string, 0, idx.Len())
	for _, r := range idx.Records {
		out = append(out, r.RelativePath)
	}
	sort.Strings(out)
	return out
}

func TestBuild_DisjointTrees(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeTree(t, src, map[string]string{"a.txt": "a", "sub/b.txt": "b"})
	writeTree(t, dst, map[string]string{"c.txt": "c", "other/d.txt": "d", "e.txt": "e"})

	idx, err := (&Builder{}).Build(context.Background(), src, dst)
	require.NoError(t, err)

	assert.Equal(t, 5, idx.Len())
	for _, r := range idx.Records {
		assert.True(t, r.HasSource() != r.HasDestination(), "record %s must have exactly one side", r.RelativePath)
	}
	assert.NotEqual(t, "", idx.ID.String())
	assert.False(t, idx.CompletedAt.Before(idx.StartedAt))
}

func TestBuild_MergeOrder(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeTree(t, src, map[string]string{"a.txt": "a", "dir/shared.txt": "s"})
	writeTree(t, dst, map[string]string{"dir/shared.txt": "s", "orphan.txt": "o"})

	idx, err := (&Builder{}).Build(context.Background(), src, dst)
	require.NoError(t, err)
	require.Equal(t, 3, idx.Len())

	// Destination-only records come after every source record
	last := idx.Records[2]
	assert.Equal(t, "orphan.txt", last.RelativePath)
	assert.False(t, last.HasSource())

	shared, ok := idx.Lookup("dir/shared.txt")
	require.True(t, ok)
	assert.True(t, shared.HasSource())
	assert.True(t, shared.HasDestination())
	assert.Equal(t, filepath.Join(src, "dir", "shared.txt"), shared.Source.Path)
	assert.Equal(t, filepath.Join(dst, "dir", "shared.txt"), shared.Destination.Path)

	_, ok = idx.Lookup("missing.txt")
	assert.False(t, ok)
}

func TestBuild_Digests(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeTree(t, src, map[string]string{"same.txt": "identical", "diff.txt": "aaaa", "only.txt": "x"})
	writeTree(t, dst, map[string]string{"same.txt": "identical", "diff.txt": "aaab"})

	idx, err := (&Builder{HashEnabled: true, Algorithm: digest.SHA256, Workers: 3}).Build(context.Background(), src, dst)
	require.NoError(t, err)
	assert.Equal(t, digest.SHA256, idx.Algorithm)
	assert.Empty(t, idx.Warnings)

	same, _ := idx.Lookup("same.txt")
	assert.True(t, same.SourceDigest.Equal(same.DestinationDigest))

	diff, _ := idx.Lookup("diff.txt")
	require.NotNil(t, diff.SourceDigest)
	require.NotNil(t, diff.DestinationDigest)
	assert.False(t, diff.SourceDigest.Equal(diff.DestinationDigest))

	only, _ := idx.Lookup("only.txt")
	assert.NotNil(t, only.SourceDigest)
	assert.Nil(t, only.DestinationDigest)
}

func TestBuild_NoDigestsWithoutHashing(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeTree(t, src, map[string]string{"a.txt": "a"})
	writeTree(t, dst, map[string]string{"a.txt": "a"})

	idx, err := (&Builder{Algorithm: digest.MD5}).Build(context.Background(), src, dst)
	require.NoError(t, err)

	rec, _ := idx.Lookup("a.txt")
	assert.Nil(t, rec.SourceDigest)
	assert.Nil(t, rec.DestinationDigest)
	assert.Equal(t, digest.Algorithm(""), idx.Algorithm)
}

func TestBuild_InvalidRoot(t *testing.T) {
	existing := t.TempDir()
	file := filepath.Join(existing, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	tests := []struct {
		name string
		src  string
		dst  string
		side models.Side
	}{
		{"MissingSource", filepath.Join(existing, "nope"), existing, models.SideSource},
		{"MissingDest", existing, filepath.Join(existing, "nope"), models.SideDest},
		{"SourceIsFile", file, existing, models.SideSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := (&Builder{}).Build(context.Background(), tt.src, tt.dst)
			assert.Nil(t, idx)
			require.ErrorIs(t, err, models.ErrInvalidRoot)

			var rootErr *models.RootError
			require.ErrorAs(t, err, &rootErr)
			assert.Equal(t, tt.side, rootErr.Side)
		})
	}
}

// failingReader fails every read
type failingReader struct{ io.ReadCloser }

func (f failingReader) Read(p []byte) (int, error) {
	return 0, errors.New("device error")
}

func TestBuild_HashFailureBecomesWarning(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeTree(t, src, map[string]string{"bad.txt": "x", "good.txt": "y"})
	writeTree(t, dst, map[string]string{"bad.txt": "x", "good.txt": "y"})

	b := &Builder{
		HashEnabled: true,
		ReaderWrapper: func(rc io.ReadCloser) io.ReadCloser {
			if f, ok := rc.(*os.File); ok && strings.Contains(f.Name(), "bad") {
				return failingReader{rc}
			}
			return rc
		},
	}
	idx, err := b.Build(context.Background(), src, dst)
	require.NoError(t, err)

	bad, _ := idx.Lookup("bad.txt")
	assert.Nil(t, bad.SourceDigest)
	assert.Nil(t, bad.DestinationDigest)

	good, _ := idx.Lookup("good.txt")
	assert.True(t, good.SourceDigest.Equal(good.DestinationDigest))

	require.Len(t, idx.Warnings, 2)
	for _, w := range idx.Warnings {
		assert.Equal(t, models.WarningHash, w.Kind)
		assert.ErrorIs(t, w.Err, models.ErrHashFailure)
	}
}

func TestBuild_UnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	src, dst := t.TempDir(), t.TempDir()
	writeTree(t, src, map[string]string{"secret.txt": "s"})
	require.NoError(t, os.Chmod(filepath.Join(src, "secret.txt"), 0000))

	idx, err := (&Builder{HashEnabled: true}).Build(context.Background(), src, dst)
	require.NoError(t, err)

	rec, _ := idx.Lookup("secret.txt")
	assert.Nil(t, rec.SourceDigest)
	require.Len(t, idx.Warnings, 1)
	assert.Equal(t, models.SideSource, idx.Warnings[0].Side)
	assert.ErrorIs(t, idx.Warnings[0].Err, os.ErrPermission)
}

func TestBuild_EnumerationWarningsCarrySide(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	src, dst := t.TempDir(), t.TempDir()
	writeTree(t, dst, map[string]string{"locked/a.txt": "a", "b.txt": "b"})
	locked := filepath.Join(dst, "locked")
	require.NoError(t, os.Chmod(locked, 0000))
	t.Cleanup(func() { os.Chmod(locked, 0755) })

	idx, err := (&Builder{}).Build(context.Background(), src, dst)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.txt"}, keys(idx))
	require.Len(t, idx.Warnings, 1)
	assert.Equal(t, models.SideDest, idx.Warnings[0].Side)
	assert.Equal(t, models.WarningEnumeration, idx.Warnings[0].Kind)
}

func TestBuild_Filters(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeTree(t, src, map[string]string{"a.txt": "a", "a.tmp": "t", "cache/x.txt": "x"})
	writeTree(t, dst, map[string]string{"b.tmp": "t", "cache/y.txt": "y", "c.txt": "c"})

	cat, err := catalog.New(catalog.Filters{ExcludeFiles: []string{"*.tmp"}, ExcludeDirs: []string{"cache"}}, nil)
	require.NoError(t, err)

	idx, err := (&Builder{Catalog: cat}).Build(context.Background(), src, dst)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "c.txt"}, keys(idx))
}

func TestBuild_RebuildKeepsRecordSet(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	files := map[string]string{}
	for _, name := range []string{"a", "b", "c", "d/e", "d/f", "g/h/i"} {
		files[name+".txt"] = name
	}
	writeTree(t, src, files)
	writeTree(t, dst, map[string]string{"z.txt": "z", "d/e.txt": "other"})

	b := &Builder{HashEnabled: true, Workers: 4}
	first, err := b.Build(context.Background(), src, dst)
	require.NoError(t, err)
	second, err := b.Build(context.Background(), src, dst)
	require.NoError(t, err)

	assert.Equal(t, keys(first), keys(second))
	assert.NotEqual(t, first.ID, second.ID)
}

func TestBuild_Progress(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeTree(t, src, map[string]string{"a.txt": "aaa", "b.txt": "bb"})
	writeTree(t, dst, map[string]string{"a.txt": "aaa"})

	var mu sync.Mutex
	var start models.ProgressUpdate
	hashed := 0
	done := 0
	b := &Builder{
		HashEnabled: true,
		Progress: func(u models.ProgressUpdate) {
			mu.Lock()
			defer mu.Unlock()
			switch u.Type {
			case models.ProgressHashStart:
				start = u
			case models.ProgressHashFile:
				hashed++
			case models.ProgressDone:
				done++
			}
		},
	}
	_, err := b.Build(context.Background(), src, dst)
	require.NoError(t, err)

	assert.Equal(t, 3, start.TotalFiles)
	assert.Equal(t, int64(8), start.TotalBytes)
	assert.Equal(t, 3, hashed)
	assert.Equal(t, 1, done)
}

func TestBuild_Cancelled(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeTree(t, src, map[string]string{"a.txt": "a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Builder{HashEnabled: true}).Build(ctx, src, dst)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecordPaths(t *testing.T) {
	rec := &Record{RelativePath: "dir/sub/file.txt"}
	dir, name := rec.DisplayPath()
	assert.Equal(t, "dir/sub", dir)
	assert.Equal(t, "file.txt", name)
	assert.Equal(t, filepath.Join("/root", "dir", "sub", "file.txt"), rec.ResolvePath("/root"))

	top := &Record{RelativePath: "top.txt"}
	dir, name = top.DisplayPath()
	assert.Equal(t, "", dir)
	assert.Equal(t, "top.txt", name)
}
