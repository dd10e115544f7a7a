package models

import (
	"time"
)

// SyncMode defines what a sync run is allowed to change
type SyncMode string

const (
	// ModeCompare only builds and reports the comparison
	ModeCompare SyncMode = "compare"
	// ModeUpdate copies missing and stale files to the destination
	ModeUpdate SyncMode = "update"
	// ModeMirror updates the destination and removes orphaned files
	ModeMirror SyncMode = "mirror"
	// ModeTwoWay copies the newer side in both directions, deleting nothing
	ModeTwoWay SyncMode = "twoway"
)

// ParseSyncMode validates a mode name
func ParseSyncMode(s string) (SyncMode, error) {
	switch SyncMode(s) {
	case ModeCompare, ModeUpdate, ModeMirror, ModeTwoWay:
		return SyncMode(s), nil
	}
	return "", &ValidationError{Field: "mode", Message: "must be one of compare, update, mirror, twoway (got " + s + ")"}
}

// Operation represents one compare or sync request
type Operation struct {
	ID             string
	SourcePath     string
	DestPath       string
	Mode           SyncMode
	HashEnabled    bool
	Algorithm      string
	Include        []string
	ExcludeFiles   []string
	ExcludeDirs    []string
	IgnoreFile     string
	DryRun         bool
	MaxWorkers     int
	BandwidthLimit int64 // bytes per second, 0 = unlimited
	BufferSize     int
	CreatedAt      time.Time
}

// Validate checks if the operation configuration is valid
func (op *Operation) Validate() error {
	if op.SourcePath == "" {
		return &ValidationError{Field: "SourcePath", Message: "source path is required"}
	}
	if op.DestPath == "" {
		return &ValidationError{Field: "DestPath", Message: "destination path is required"}
	}
	if _, err := ParseSyncMode(string(op.Mode)); err != nil {
		return err
	}
	if op.MaxWorkers < 1 {
		return &ValidationError{Field: "MaxWorkers", Message: "max workers must be at least 1"}
	}
	if op.BufferSize < 1024 {
		return &ValidationError{Field: "BufferSize", Message: "buffer size must be at least 1024 bytes"}
	}
	if op.BandwidthLimit < 0 {
		return &ValidationError{Field: "BandwidthLimit", Message: "bandwidth limit cannot be negative"}
	}
	return nil
}
