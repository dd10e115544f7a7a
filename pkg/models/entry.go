package models

import (
	"time"
)

// FileDescriptor describes a regular file found during enumeration.
// Descriptors are produced by the catalog and never mutated afterwards.
type FileDescriptor struct {
	// Path is the absolute path on the filesystem
	Path string

	// Size in bytes
	Size int64

	// ModTime is the last modification time
	ModTime time.Time

	// Permissions are the file mode bits
	Permissions uint32
}

// Side identifies one of the two compared trees
type Side string

const (
	// SideSource is the tree files are copied from
	SideSource Side = "source"
	// SideDest is the tree files are copied to
	SideDest Side = "dest"
)

// Action represents what was done with a file
type Action string

const (
	// ActionCopy copies a file that is missing on the target side
	ActionCopy Action = "copy"
	// ActionUpdate overwrites a stale file on the target side
	ActionUpdate Action = "update"
	// ActionDelete deletes an orphaned destination file
	ActionDelete Action = "delete"
	// ActionSkip leaves the file untouched
	ActionSkip Action = "skip"
)
