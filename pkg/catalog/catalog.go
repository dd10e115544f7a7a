// Package catalog enumerates the regular files of a directory tree.
package catalog

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/sabhiram/go-gitignore"
	"github.com/sdejongh/treesync/internal/platform"
	"github.com/sdejongh/treesync/pkg/logging"
	"github.com/sdejongh/treesync/pkg/models"
)

// Catalog walks a tree with a fixed set of filters. The same Catalog is used
// for both sides of a comparison so the trees are filtered identically.
type Catalog struct {
	include      []string
	excludeFiles []string
	excludeDirs  []string
	ignore       *gitignore.GitIgnore
	logger       logging.Logger
}

// New compiles filters into a catalog
func New(filters Filters, logger logging.Logger) (*Catalog, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNullLogger()
	}

	c := &Catalog{
		include:      foldAll(filters.Include),
		excludeFiles: foldAll(filters.ExcludeFiles),
		excludeDirs:  foldAll(filters.ExcludeDirs),
		logger:       logger,
	}
	if len(filters.IgnoreLines) > 0 {
		c.ignore = gitignore.CompileIgnoreLines(filters.IgnoreLines...)
	}
	return c, nil
}

func foldAll(patterns []string) []string {
	out := make([]string, len(patterns))
	for i, p := range patterns {
		out[i] = platform.FoldName(p)
	}
	return out
}

// matchAny reports whether name matches one of the folded patterns
func matchAny(patterns []string, name string) bool {
	name = platform.FoldName(name)
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

func (c *Catalog) keepDir(rel, name string) bool {
	if matchAny(c.excludeDirs, name) {
		return false
	}
	return c.ignore == nil || !c.ignore.MatchesPath(rel+"/")
}

func (c *Catalog) keepFile(rel, name string) bool {
	if len(c.include) > 0 && !matchAny(c.include, name) {
		return false
	}
	if matchAny(c.excludeFiles, name) {
		return false
	}
	return c.ignore == nil || !c.ignore.MatchesPath(rel)
}

// walker carries the state of one enumeration
type walker struct {
	*Catalog
	root     string
	files    []models.FileDescriptor
	warnings []models.Warning
}

// Enumerate lists every regular file under root that passes the filters.
//
// Subdirectories are visited before the files of the directory holding
// them. Symlinks and other non-regular entries are skipped. A directory that
// cannot be listed contributes no files and yields an enumeration warning
// (the caller sets Side). The only error returned is context cancellation.
func (c *Catalog) Enumerate(ctx context.Context, root string) ([]models.FileDescriptor, []models.Warning, error) {
	w := &walker{Catalog: c, root: root}
	if err := w.walk(ctx, root); err != nil {
		return nil, nil, err
	}
	return w.files, w.warnings, nil
}

func (w *walker) warn(ctx context.Context, path string, err error) {
	w.warnings = append(w.warnings, models.NewWarning(
		models.WarningEnumeration, "", path,
		fmt.Errorf("%w: %w", models.ErrEnumerationFailure, err),
	))
	w.logger.Warn(ctx, "skipping unreadable entry", logging.Fields{
		"path":  path,
		"error": err.Error(),
	})
}

func (w *walker) relative(path string) string {
	rel, err := platform.RelativeKey(w.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return rel
}

func (w *walker) walk(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		w.warn(ctx, dir, err)
		return nil
	}

	var files []fs.DirEntry
	for _, entry := range entries {
		switch {
		case entry.Type()&fs.ModeSymlink != 0:
			continue
		case entry.IsDir():
			path := filepath.Join(dir, entry.Name())
			if !w.keepDir(w.relative(path), entry.Name()) {
				continue
			}
			if err := w.walk(ctx, path); err != nil {
				return err
			}
		case entry.Type().IsRegular():
			files = append(files, entry)
		}
	}

	for _, entry := range files {
		path := filepath.Join(dir, entry.Name())
		if !w.keepFile(w.relative(path), entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			w.warn(ctx, path, err)
			continue
		}
		w.files = append(w.files, models.FileDescriptor{
			Path:        path,
			Size:        info.Size(),
			ModTime:     info.ModTime(),
			Permissions: uint32(info.Mode().Perm()),
		})
	}
	return nil
}
