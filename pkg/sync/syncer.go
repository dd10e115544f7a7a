package sync

import (
	"context"
	"runtime"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dustin/go-humanize"

	"github.com/sdejongh/treesync/pkg/index"
	"github.com/sdejongh/treesync/pkg/logging"
	"github.com/sdejongh/treesync/pkg/models"
	"github.com/sdejongh/treesync/pkg/ratelimit"
	"github.com/sdejongh/treesync/pkg/storage"
)

// Options configures a Syncer
type Options struct {
	// DryRun counts what would change without touching either tree
	DryRun bool
	// Workers bounds concurrent file operations (default: number of CPUs)
	Workers int
	// Limiter caps copy bandwidth; nil means unlimited
	Limiter  *ratelimit.Limiter
	Logger   logging.Logger
	Progress models.ProgressFunc
}

// Syncer applies an index to a source and destination backend
type Syncer struct {
	source   storage.Backend
	dest     storage.Backend
	dryRun   bool
	workers  int
	limiter  *ratelimit.Limiter
	logger   logging.Logger
	progress models.ProgressFunc
}

// NewSyncer creates a syncer between two backends
func NewSyncer(source, dest storage.Backend, opts Options) *Syncer {
	workers := opts.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Syncer{
		source:   source,
		dest:     dest,
		dryRun:   opts.DryRun,
		workers:  workers,
		limiter:  opts.Limiter,
		logger:   logger,
		progress: opts.Progress,
	}
}

func (s *Syncer) report(update models.ProgressUpdate) {
	if s.progress != nil {
		s.progress(update)
	}
}

// newer reports whether a is later than b at whole second precision
func newer(a, b time.Time) bool {
	return a.Truncate(time.Second).After(b.Truncate(time.Second))
}

// CopyUpdated copies every source file that is missing from the destination
// or newer than its destination counterpart.
func (s *Syncer) CopyUpdated(ctx context.Context, idx *index.Index) (models.SyncResult, error) {
	return s.copyUpdated(ctx, idx, nil)
}

func (s *Syncer) copyUpdated(ctx context.Context, idx *index.Index, copied mapset.Set[string]) (models.SyncResult, error) {
	var jobs []job
	for _, rec := range idx.Records {
		switch {
		case rec.Source == nil:
			continue
		case rec.Destination == nil:
			jobs = append(jobs, job{key: rec.RelativePath, action: models.ActionCopy, from: s.source, to: s.dest, meta: rec.Source})
		case newer(rec.Source.ModTime, rec.Destination.ModTime):
			jobs = append(jobs, job{key: rec.RelativePath, action: models.ActionUpdate, from: s.source, to: s.dest, meta: rec.Source})
		}
	}

	result, err := s.runJobs(ctx, jobs, copied)
	s.summarize(ctx, "copy updated", result)
	return result, err
}

// RemoveOrphaned deletes every destination file without a source counterpart.
// A deletion only counts once the file is confirmed gone.
func (s *Syncer) RemoveOrphaned(ctx context.Context, idx *index.Index) (models.SyncResult, error) {
	return s.removeOrphaned(ctx, idx, nil)
}

func (s *Syncer) removeOrphaned(ctx context.Context, idx *index.Index, copied mapset.Set[string]) (models.SyncResult, error) {
	var jobs []job
	for _, rec := range idx.Records {
		if rec.Source != nil || rec.Destination == nil {
			continue
		}
		if copied != nil && copied.Contains(rec.RelativePath) {
			continue
		}
		jobs = append(jobs, job{key: rec.RelativePath, action: models.ActionDelete, to: s.dest, meta: rec.Destination})
	}

	result, err := s.runJobs(ctx, jobs, nil)
	s.summarize(ctx, "remove orphaned", result)
	return result, err
}

// Sync copies updated files, then removes orphaned ones. Copying always runs
// first and a path copied in this call is never deleted by it.
func (s *Syncer) Sync(ctx context.Context, idx *index.Index) (models.SyncResult, error) {
	copied := mapset.NewSet[string]()

	result, err := s.copyUpdated(ctx, idx, copied)
	if err != nil {
		return result, err
	}

	removed, err := s.removeOrphaned(ctx, idx, copied)
	result.Add(removed)
	return result, err
}

// TwoWay copies in both directions: one-sided files go to the other tree and
// for files on both sides the newer one wins. Nothing is deleted.
func (s *Syncer) TwoWay(ctx context.Context, idx *index.Index) (models.SyncResult, error) {
	var jobs []job
	for _, rec := range idx.Records {
		key := rec.RelativePath
		switch {
		case rec.Destination == nil:
			jobs = append(jobs, job{key: key, action: models.ActionCopy, from: s.source, to: s.dest, meta: rec.Source})
		case rec.Source == nil:
			jobs = append(jobs, job{key: key, action: models.ActionCopy, from: s.dest, to: s.source, meta: rec.Destination})
		case newer(rec.Source.ModTime, rec.Destination.ModTime):
			jobs = append(jobs, job{key: key, action: models.ActionUpdate, from: s.source, to: s.dest, meta: rec.Source})
		case newer(rec.Destination.ModTime, rec.Source.ModTime):
			jobs = append(jobs, job{key: key, action: models.ActionUpdate, from: s.dest, to: s.source, meta: rec.Destination})
		}
	}

	result, err := s.runJobs(ctx, jobs, nil)
	s.summarize(ctx, "two-way", result)
	return result, err
}

func (s *Syncer) summarize(ctx context.Context, phase string, result models.SyncResult) {
	fields := logging.Fields{
		"phase":       phase,
		"copied":      result.Copied,
		"deleted":     result.Deleted,
		"skipped":     result.Skipped,
		"transferred": humanize.Bytes(uint64(result.BytesTransferred)),
		"dry_run":     s.dryRun,
	}
	if result.Skipped > 0 {
		s.logger.Warn(ctx, "phase finished with failures", fields)
		return
	}
	s.logger.Info(ctx, "phase finished", fields)
}
