package platform

import (
	"fmt"
	"path"
	"path/filepath"
	"runtime"
	"strings"
)

// CaseSensitiveNames reports whether file-name globs match case-sensitively.
// Windows and macOS filesystems are case-insensitive by default, so names are
// folded to lower case there before matching.
var CaseSensitiveNames = runtime.GOOS != "windows" && runtime.GOOS != "darwin"

// FoldName prepares a file name or glob for matching on this platform
func FoldName(name string) string {
	if CaseSensitiveNames {
		return name
	}
	return strings.ToLower(name)
}

// NormalizePath normalizes a root path for the current platform
func NormalizePath(p string) string {
	normalized := filepath.Clean(p)

	// On Windows, ensure UNC paths are preserved
	if runtime.GOOS == "windows" {
		if strings.HasPrefix(p, `\\`) && !strings.HasPrefix(normalized, `\\`) {
			normalized = `\\` + normalized
		}
	}

	return normalized
}

// IsUNCPath checks if a path is a UNC path (Windows network share)
func IsUNCPath(p string) bool {
	if runtime.GOOS != "windows" {
		return false
	}
	return strings.HasPrefix(p, `\\`) || strings.HasPrefix(p, "//")
}

// RelativeKey returns the forward-slash path of target below root.
// It is the join key between source and destination trees.
func RelativeKey(root, target string) (string, error) {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside root %s", target, root)
	}
	return NormalizeKey(rel), nil
}

// NormalizeKey converts a relative path to the canonical key form
func NormalizeKey(rel string) string {
	key := path.Clean(filepath.ToSlash(rel))
	return strings.TrimPrefix(key, "./")
}

// Resolve joins a relative key onto a root using native separators
func Resolve(root, key string) string {
	return filepath.Join(root, filepath.FromSlash(key))
}

// SplitKey splits a relative key into its directory and file name.
// Files at the root have an empty directory.
func SplitKey(key string) (dir, file string) {
	dir, file = path.Split(key)
	return strings.TrimSuffix(dir, "/"), file
}

// IsNested reports whether child equals parent or lives below it
func IsNested(parent, child string) bool {
	if parent == child {
		return true
	}
	return strings.HasPrefix(child, strings.TrimSuffix(parent, string(filepath.Separator))+string(filepath.Separator))
}

// ValidatePath checks if a path is valid for the current platform
func ValidatePath(p string) error {
	if p == "" {
		return &PathError{Path: p, Message: "path is empty"}
	}

	if runtime.GOOS == "windows" {
		// Drive letters carry a colon, so only the part after the volume is checked
		rest := strings.TrimPrefix(p, filepath.VolumeName(p))
		for _, char := range []string{"<", ">", ":", "\"", "|", "?", "*"} {
			if strings.Contains(rest, char) {
				return &PathError{Path: p, Message: "path contains invalid character: " + char}
			}
		}
	}

	return nil
}

// PathError represents a path validation error
type PathError struct {
	Path    string
	Message string
}

func (e *PathError) Error() string {
	return "invalid path '" + e.Path + "': " + e.Message
}
