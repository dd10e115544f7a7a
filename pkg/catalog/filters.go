package catalog

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sdejongh/treesync/pkg/models"
)

// Filters select which files and directories are enumerated.
//
// Include, ExcludeFiles and ExcludeDirs are globs matched against a single
// entry name (not the full path) with *, ? and [...] classes. Matching is
// case-insensitive on Windows and macOS and case-sensitive elsewhere, see
// platform.CaseSensitiveNames.
//
// IgnoreLines use gitignore syntax and are matched against the path
// relative to the tree root.
type Filters struct {
	// Include lists file globs to keep; empty keeps every file
	Include []string
	// ExcludeFiles lists file globs to drop
	ExcludeFiles []string
	// ExcludeDirs lists directory globs whose subtree is not visited
	ExcludeDirs []string
	// IgnoreLines are gitignore rules applied to relative paths
	IgnoreLines []string
}

// ParsePatterns splits a ';' or ',' separated list into globs.
// Blank entries are dropped and whitespace around each glob is trimmed.
func ParsePatterns(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == ',' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate rejects malformed glob patterns
func (f Filters) Validate() error {
	groups := []struct {
		field    string
		patterns []string
	}{
		{"include", f.Include},
		{"exclude_files", f.ExcludeFiles},
		{"exclude_dirs", f.ExcludeDirs},
	}
	for _, g := range groups {
		for _, p := range g.patterns {
			if !doublestar.ValidatePattern(p) {
				return &models.ValidationError{Field: g.field, Message: fmt.Sprintf("invalid glob pattern %q", p)}
			}
		}
	}
	return nil
}

// LoadIgnoreFile reads gitignore rules from path. A missing file yields no
// rules and no error.
func LoadIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open ignore file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ignore file: %w", err)
	}
	return lines, nil
}
