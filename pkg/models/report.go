package models

import (
	"time"
)

// SyncError represents a per-file failure during sync
type SyncError struct {
	FilePath  string
	Operation Action
	Err       error
	Timestamp time.Time
}

// Error returns the failure text
func (e SyncError) Error() string {
	if e.Err == nil {
		return string(e.Operation) + " " + e.FilePath
	}
	return string(e.Operation) + " " + e.FilePath + ": " + e.Err.Error()
}

// SyncResult counts the outcome of one batch operation.
// Per-file failures increment Skipped and are listed in Errors.
type SyncResult struct {
	Copied           int
	Deleted          int
	Skipped          int
	BytesTransferred int64
	Errors           []SyncError
}

// Count returns the number of files affected by the operation
func (r SyncResult) Count() int {
	return r.Copied + r.Deleted
}

// Add merges another result into r
func (r *SyncResult) Add(other SyncResult) {
	r.Copied += other.Copied
	r.Deleted += other.Deleted
	r.Skipped += other.Skipped
	r.BytesTransferred += other.BytesTransferred
	r.Errors = append(r.Errors, other.Errors...)
}

// Status derives the overall status from the counters
func (r SyncResult) Status() SyncStatus {
	if len(r.Errors) == 0 {
		return StatusSuccess
	}
	if r.Count() == 0 {
		return StatusFailed
	}
	return StatusPartial
}

// SyncReport represents the results of a sync operation
type SyncReport struct {
	OperationID string
	SourcePath  string
	DestPath    string
	Mode        SyncMode
	DryRun      bool

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	Result   SyncResult
	Warnings []Warning
	Status   SyncStatus
}

// SyncStatus represents the overall result
type SyncStatus string

const (
	// StatusSuccess indicates all operations completed successfully
	StatusSuccess SyncStatus = "success"
	// StatusPartial indicates some operations failed
	StatusPartial SyncStatus = "partial"
	// StatusFailed indicates the sync operation failed
	StatusFailed SyncStatus = "failed"
	// StatusCancelled indicates the operation was cancelled
	StatusCancelled SyncStatus = "cancelled"
)

// ExitCode returns the appropriate exit code for the sync status
func (s SyncStatus) ExitCode() int {
	switch s {
	case StatusSuccess:
		return 0
	case StatusPartial:
		return 1
	case StatusFailed:
		return 2
	case StatusCancelled:
		return 3
	default:
		return 2
	}
}
