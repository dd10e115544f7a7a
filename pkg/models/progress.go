package models

// ProgressType identifies a progress notification
type ProgressType string

const (
	// ProgressHashStart announces the number of files to digest
	ProgressHashStart ProgressType = "hash_start"
	// ProgressHashFile reports one digested file
	ProgressHashFile ProgressType = "hash_file"
	// ProgressCopyStart announces the number of files to transfer
	ProgressCopyStart ProgressType = "copy_start"
	// ProgressCopyBytes reports bytes written for the current file
	ProgressCopyBytes ProgressType = "copy_bytes"
	// ProgressCopyFile reports one finished (or failed) transfer
	ProgressCopyFile ProgressType = "copy_file"
	// ProgressDone closes the current phase
	ProgressDone ProgressType = "done"
)

// ProgressUpdate represents a progress notification during compare or sync
type ProgressUpdate struct {
	Type       ProgressType
	FilePath   string
	Bytes      int64 // file size for hash_file, bytes since the previous update for copy_bytes
	TotalFiles int
	TotalBytes int64
	Err        error
}

// ProgressFunc receives progress updates. Implementations must be safe for
// concurrent use: hashing and copy workers report from their own goroutines.
type ProgressFunc func(update ProgressUpdate)
