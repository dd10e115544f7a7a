package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/sync/errgroup"

	"github.com/sdejongh/treesync/pkg/logging"
	"github.com/sdejongh/treesync/pkg/models"
	"github.com/sdejongh/treesync/pkg/ratelimit"
	"github.com/sdejongh/treesync/pkg/storage"
)

// Progress reporting thresholds
const (
	progressReportInterval = 50 * time.Millisecond // Minimum time between progress reports
	progressReportBytes    = 64 * 1024             // Minimum bytes between reports (64KB)
)

// progressReader wraps an io.Reader and reports bytes read since the last report
type progressReader struct {
	reader         io.Reader
	read           int64
	lastReported   int64
	lastReportTime time.Time
	onProgress     func(delta int64)
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.read += int64(n)
	}
	if pr.onProgress != nil && pr.read > pr.lastReported {
		if pr.read-pr.lastReported >= progressReportBytes ||
			time.Since(pr.lastReportTime) >= progressReportInterval ||
			err != nil {
			pr.onProgress(pr.read - pr.lastReported)
			pr.lastReported = pr.read
			pr.lastReportTime = time.Now()
		}
	}
	return n, err
}

// job is one file operation between two backends
type job struct {
	key    string
	action models.Action
	from   storage.Backend // nil for deletes
	to     storage.Backend
	meta   *models.FileDescriptor // descriptor of the file being copied or deleted
}

func (j job) isDelete() bool {
	return j.action == models.ActionDelete
}

// runJobs executes jobs on a bounded pool. Per-file failures are recorded in
// the result; only cancellation stops the batch, and it is checked before
// each file starts. Successfully copied keys are added to copied when set.
func (s *Syncer) runJobs(ctx context.Context, jobs []job, copied mapset.Set[string]) (models.SyncResult, error) {
	var result models.SyncResult
	if len(jobs) == 0 {
		return result, ctx.Err()
	}

	var totalBytes int64
	for _, j := range jobs {
		if !j.isDelete() {
			totalBytes += j.meta.Size
		}
	}
	s.report(models.ProgressUpdate{Type: models.ProgressCopyStart, TotalFiles: len(jobs), TotalBytes: totalBytes})
	defer s.report(models.ProgressUpdate{Type: models.ProgressDone})

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, j := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			n, err := s.execute(gctx, j)
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}

			mu.Lock()
			if err != nil {
				result.Skipped++
				result.Errors = append(result.Errors, models.SyncError{
					FilePath:  j.key,
					Operation: j.action,
					Err:       err,
					Timestamp: time.Now(),
				})
			} else {
				if j.isDelete() {
					result.Deleted++
				} else {
					result.Copied++
					result.BytesTransferred += n
				}
			}
			mu.Unlock()

			if err != nil {
				s.logger.Error(gctx, "file operation failed", err, logging.Fields{
					"path":   j.key,
					"action": string(j.action),
					"target": j.to.Root(),
				})
			} else {
				if copied != nil && !j.isDelete() {
					copied.Add(j.key)
				}
				s.logger.Debug(gctx, "file operation done", logging.Fields{
					"path":    j.key,
					"action":  string(j.action),
					"target":  j.to.Root(),
					"dry_run": s.dryRun,
				})
			}
			s.report(models.ProgressUpdate{Type: models.ProgressCopyFile, FilePath: j.key, Err: err})
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return result, err
}

func (s *Syncer) execute(ctx context.Context, j job) (int64, error) {
	if j.isDelete() {
		return 0, s.deleteFile(ctx, j)
	}
	return s.copyFile(ctx, j)
}

// copyFile streams one file, preserving its modification time and permissions
func (s *Syncer) copyFile(ctx context.Context, j job) (int64, error) {
	if s.dryRun {
		return j.meta.Size, nil
	}

	rc, err := j.from.Read(ctx, j.key)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to read source: %w", models.ErrCopyFailure, err)
	}
	rc = ratelimit.NewReadCloser(ctx, rc, s.limiter)
	defer rc.Close()

	reader := &progressReader{
		reader:         rc,
		lastReportTime: time.Now(),
		onProgress: func(delta int64) {
			s.report(models.ProgressUpdate{Type: models.ProgressCopyBytes, FilePath: j.key, Bytes: delta})
		},
	}

	n, err := j.to.Write(ctx, j.key, reader, j.meta.Size, j.meta)
	if err != nil {
		return n, fmt.Errorf("%w: %w", models.ErrCopyFailure, err)
	}
	return n, nil
}

// deleteFile removes one file and confirms it is gone
func (s *Syncer) deleteFile(ctx context.Context, j job) error {
	if s.dryRun {
		return nil
	}

	if err := j.to.Delete(ctx, j.key); err != nil {
		return fmt.Errorf("%w: %w", models.ErrDeleteFailure, err)
	}
	exists, err := j.to.Exists(ctx, j.key)
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrDeleteFailure, err)
	}
	if exists {
		return fmt.Errorf("%w: %s still exists after delete", models.ErrDeleteFailure, j.key)
	}
	return nil
}

// isCancellation reports whether err comes from the context
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
