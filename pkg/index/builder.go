package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sdejongh/treesync/internal/platform"
	"github.com/sdejongh/treesync/pkg/catalog"
	"github.com/sdejongh/treesync/pkg/digest"
	"github.com/sdejongh/treesync/pkg/logging"
	"github.com/sdejongh/treesync/pkg/models"
)

// Builder builds comparison indexes
type Builder struct {
	// Catalog enumerates both trees with the same filters
	Catalog *catalog.Catalog

	// HashEnabled computes a digest for every file on both sides
	HashEnabled bool
	Algorithm   digest.Algorithm

	// Workers bounds concurrent digests (default: number of CPUs)
	Workers int
	// BufferSize is the read chunk size for digests
	BufferSize int

	// ReaderWrapper optionally wraps files opened for digesting
	ReaderWrapper digest.ReaderWrapper

	Logger   logging.Logger
	Progress models.ProgressFunc
}

// Build validates both roots, enumerates them concurrently, merges the two
// listings by relative path and back-fills digests when hashing is enabled.
//
// An unusable root fails with *models.RootError before anything is listed.
// Unreadable directories and files become warnings on the index. The only
// other error is context cancellation.
func (b *Builder) Build(ctx context.Context, sourceRoot, destRoot string) (*Index, error) {
	logger := b.Logger
	if logger == nil {
		logger = logging.NewNullLogger()
	}

	sourceRoot = platform.NormalizePath(sourceRoot)
	destRoot = platform.NormalizePath(destRoot)
	if err := validateRoot(models.SideSource, sourceRoot); err != nil {
		return nil, err
	}
	if err := validateRoot(models.SideDest, destRoot); err != nil {
		return nil, err
	}

	cat := b.Catalog
	if cat == nil {
		var err error
		if cat, err = catalog.New(catalog.Filters{}, logger); err != nil {
			return nil, err
		}
	}

	idx := &Index{
		ID:          uuid.New(),
		SourceRoot:  sourceRoot,
		DestRoot:    destRoot,
		HashEnabled: b.HashEnabled,
		StartedAt:   time.Now(),
	}
	if b.HashEnabled {
		idx.Algorithm = b.Algorithm
		if idx.Algorithm == "" {
			idx.Algorithm = digest.DefaultAlgorithm
		}
	}

	var srcFiles, dstFiles []models.FileDescriptor
	var srcWarnings, dstWarnings []models.Warning
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		srcFiles, srcWarnings, err = cat.Enumerate(gctx, sourceRoot)
		return err
	})
	g.Go(func() error {
		var err error
		dstFiles, dstWarnings, err = cat.Enumerate(gctx, destRoot)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("enumeration cancelled: %w", err)
	}

	idx.Warnings = append(idx.Warnings, stamp(srcWarnings, models.SideSource)...)
	idx.Warnings = append(idx.Warnings, stamp(dstWarnings, models.SideDest)...)

	b.merge(ctx, idx, srcFiles, dstFiles, logger)

	if b.HashEnabled {
		if err := b.digestAll(ctx, idx, logger); err != nil {
			return nil, err
		}
	}

	idx.CompletedAt = time.Now()
	logger.Info(ctx, "index built", logging.Fields{
		"records":      idx.Len(),
		"source_files": len(srcFiles),
		"dest_files":   len(dstFiles),
		"source_bytes": humanize.Bytes(uint64(totalSize(srcFiles))),
		"warnings":     len(idx.Warnings),
		"duration":     idx.Duration().Round(time.Millisecond).String(),
	})
	return idx, nil
}

func validateRoot(side models.Side, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return &models.RootError{Side: side, Path: root, Err: err}
	}
	if !info.IsDir() {
		return &models.RootError{Side: side, Path: root}
	}
	return nil
}

func stamp(warnings []models.Warning, side models.Side) []models.Warning {
	for i := range warnings {
		warnings[i].Side = side
	}
	return warnings
}

func totalSize(files []models.FileDescriptor) int64 {
	var n int64
	for _, f := range files {
		n += f.Size
	}
	return n
}

// merge inserts source records, then attaches or appends destination files.
// It runs on a single goroutine so every relative path maps to one record.
func (b *Builder) merge(ctx context.Context, idx *Index, srcFiles, dstFiles []models.FileDescriptor, logger logging.Logger) {
	idx.byPath = make(map[string]*Record, len(srcFiles)+len(dstFiles))
	idx.Records = make([]*Record, 0, len(srcFiles))

	add := func(side models.Side, root string, f models.FileDescriptor) {
		key, err := platform.RelativeKey(root, f.Path)
		if err != nil {
			idx.Warnings = append(idx.Warnings, models.NewWarning(models.WarningEnumeration, side, f.Path,
				fmt.Errorf("%w: %w", models.ErrEnumerationFailure, err)))
			logger.Warn(ctx, "skipping file outside root", logging.Fields{"path": f.Path, "side": string(side)})
			return
		}
		fd := f
		rec, ok := idx.byPath[key]
		if !ok {
			rec = &Record{RelativePath: key}
			idx.byPath[key] = rec
			idx.Records = append(idx.Records, rec)
		}
		if side == models.SideSource {
			rec.Source = &fd
		} else {
			rec.Destination = &fd
		}
	}

	for _, f := range srcFiles {
		add(models.SideSource, idx.SourceRoot, f)
	}
	for _, f := range dstFiles {
		add(models.SideDest, idx.DestRoot, f)
	}
}

// digestJob is one side of one record
type digestJob struct {
	rec  *Record
	side models.Side
}

// digestAll fills in digests on a bounded pool. Each job writes only its own
// record side, so records need no locking; warnings are merged under mu.
func (b *Builder) digestAll(ctx context.Context, idx *Index, logger logging.Logger) error {
	hasher, err := digest.NewHasher(idx.Algorithm, b.BufferSize)
	if err != nil {
		return err
	}
	if b.ReaderWrapper != nil {
		hasher.SetReaderWrapper(b.ReaderWrapper)
	}

	var jobs []digestJob
	var totalBytes int64
	for _, rec := range idx.Records {
		for _, side := range []models.Side{models.SideSource, models.SideDest} {
			if fd := rec.descriptor(side); fd != nil {
				jobs = append(jobs, digestJob{rec: rec, side: side})
				totalBytes += fd.Size
			}
		}
	}

	b.report(models.ProgressUpdate{Type: models.ProgressHashStart, TotalFiles: len(jobs), TotalBytes: totalBytes})
	defer b.report(models.ProgressUpdate{Type: models.ProgressDone})

	workers := b.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fd := job.rec.descriptor(job.side)
			d, err := hasher.File(gctx, fd.Path)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				mu.Lock()
				idx.Warnings = append(idx.Warnings, models.NewWarning(models.WarningHash, job.side, fd.Path, err))
				mu.Unlock()
				logger.Warn(gctx, "cannot digest file", logging.Fields{
					"path":  fd.Path,
					"side":  string(job.side),
					"error": err.Error(),
				})
			} else {
				job.rec.setDigest(job.side, d)
			}
			b.report(models.ProgressUpdate{Type: models.ProgressHashFile, FilePath: job.rec.RelativePath, Bytes: fd.Size, Err: err})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("hashing cancelled: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("hashing cancelled: %w", err)
	}
	return nil
}

func (b *Builder) report(update models.ProgressUpdate) {
	if b.Progress != nil {
		b.Progress(update)
	}
}
