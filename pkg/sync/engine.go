// Package sync reconciles a destination tree with a source tree.
package sync

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/sdejongh/treesync/pkg/catalog"
	"github.com/sdejongh/treesync/pkg/diff"
	"github.com/sdejongh/treesync/pkg/digest"
	"github.com/sdejongh/treesync/pkg/index"
	"github.com/sdejongh/treesync/pkg/logging"
	"github.com/sdejongh/treesync/pkg/models"
	"github.com/sdejongh/treesync/pkg/ratelimit"
	"github.com/sdejongh/treesync/pkg/storage"
)

// EngineConfig holds the settings shared by every request to an Engine
type EngineConfig struct {
	Algorithm  digest.Algorithm
	Workers    int
	BufferSize int
	// IgnoreFile is a gitignore-style file name, resolved against the source root
	IgnoreFile     string
	DryRun         bool
	BandwidthLimit int64
	Logger         logging.Logger
	Progress       models.ProgressFunc
}

// Engine orchestrates comparison and synchronization of two trees
type Engine struct {
	config  EngineConfig
	limiter *ratelimit.Limiter
	logger  logging.Logger
}

// NewEngine creates a new sync engine
func NewEngine(config EngineConfig) *Engine {
	logger := config.Logger
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	if config.Algorithm == "" {
		config.Algorithm = digest.DefaultAlgorithm
	}
	return &Engine{
		config:  config,
		limiter: ratelimit.NewLimiter(config.BandwidthLimit),
		logger:  logger,
	}
}

// CompareTrees builds the comparison index of two roots. The glob arguments
// are ';' or ',' separated lists; an empty targetGlob keeps every file.
func (e *Engine) CompareTrees(ctx context.Context, sourceRoot, destRoot string, hashEnabled bool, targetGlob, excludeFileGlob, excludeDirGlob string) (*index.Index, error) {
	return e.BuildIndex(ctx, &models.Operation{
		SourcePath:   sourceRoot,
		DestPath:     destRoot,
		HashEnabled:  hashEnabled,
		Include:      catalog.ParsePatterns(targetGlob),
		ExcludeFiles: catalog.ParsePatterns(excludeFileGlob),
		ExcludeDirs:  catalog.ParsePatterns(excludeDirGlob),
		IgnoreFile:   e.config.IgnoreFile,
	})
}

// FilterDifferences returns the records of idx, or only the differing ones
func (e *Engine) FilterDifferences(idx *index.Index, differencesOnly, hashEnabled bool) []*index.Record {
	return diff.Filter(idx.Records, diff.StrategyFor(differencesOnly), diff.MethodFor(hashEnabled))
}

// BuildIndex builds the index described by op
func (e *Engine) BuildIndex(ctx context.Context, op *models.Operation) (*index.Index, error) {
	filters := catalog.Filters{
		Include:      op.Include,
		ExcludeFiles: op.ExcludeFiles,
		ExcludeDirs:  op.ExcludeDirs,
	}

	ignoreFile := op.IgnoreFile
	if ignoreFile != "" {
		if !filepath.IsAbs(ignoreFile) {
			ignoreFile = filepath.Join(op.SourcePath, ignoreFile)
		}
		lines, err := catalog.LoadIgnoreFile(ignoreFile)
		if err != nil {
			return nil, err
		}
		if len(lines) > 0 {
			e.logger.Info(ctx, "loaded ignore file", logging.Fields{"path": ignoreFile, "rules": len(lines)})
		}
		filters.IgnoreLines = lines
	}

	cat, err := catalog.New(filters, e.logger)
	if err != nil {
		return nil, err
	}

	alg := e.config.Algorithm
	if op.Algorithm != "" {
		if alg, err = digest.ParseAlgorithm(op.Algorithm); err != nil {
			return nil, err
		}
	}

	workers := e.config.Workers
	if op.MaxWorkers > 0 {
		workers = op.MaxWorkers
	}
	bufferSize := e.config.BufferSize
	if op.BufferSize > 0 {
		bufferSize = op.BufferSize
	}

	builder := &index.Builder{
		Catalog:     cat,
		HashEnabled: op.HashEnabled,
		Algorithm:   alg,
		Workers:     workers,
		BufferSize:  bufferSize,
		Logger:      e.logger,
		Progress:    e.config.Progress,
	}
	if limiter := e.limiterFor(op); limiter != nil {
		builder.ReaderWrapper = func(rc io.ReadCloser) io.ReadCloser {
			return ratelimit.NewReadCloser(ctx, rc, limiter)
		}
	}

	idx, err := builder.Build(ctx, op.SourcePath, op.DestPath)
	if err != nil {
		return nil, err
	}
	for _, w := range idx.Warnings {
		e.logger.Warn(ctx, "entry skipped", logging.Fields{
			"kind":  string(w.Kind),
			"side":  string(w.Side),
			"path":  w.Path,
			"error": w.Message(),
		})
	}
	return idx, nil
}

func (e *Engine) limiterFor(op *models.Operation) *ratelimit.Limiter {
	if op.BandwidthLimit > 0 {
		return ratelimit.NewLimiter(op.BandwidthLimit)
	}
	return e.limiter
}

// syncer opens backends on the index source and on destRoot (the index
// destination when empty)
func (e *Engine) syncer(idx *index.Index, destRoot string, op *models.Operation) (*Syncer, error) {
	if destRoot == "" {
		destRoot = idx.DestRoot
	}
	source, err := storage.NewLocal(idx.SourceRoot)
	if err != nil {
		return nil, &models.RootError{Side: models.SideSource, Path: idx.SourceRoot, Err: err}
	}
	dest, err := storage.NewLocal(destRoot)
	if err != nil {
		return nil, &models.RootError{Side: models.SideDest, Path: destRoot, Err: err}
	}

	opts := Options{
		DryRun:   e.config.DryRun,
		Workers:  e.config.Workers,
		Limiter:  e.limiter,
		Logger:   e.logger,
		Progress: e.config.Progress,
	}
	if op != nil {
		opts.DryRun = op.DryRun
		if op.MaxWorkers > 0 {
			opts.Workers = op.MaxWorkers
		}
		opts.Limiter = e.limiterFor(op)
	}
	return NewSyncer(source, dest, opts), nil
}

// CopyUpdated copies missing and newer source files to destRoot
func (e *Engine) CopyUpdated(ctx context.Context, idx *index.Index, destRoot string) (models.SyncResult, error) {
	s, err := e.syncer(idx, destRoot, nil)
	if err != nil {
		return models.SyncResult{}, err
	}
	return s.CopyUpdated(ctx, idx)
}

// RemoveOrphaned deletes destination-only files below destRoot
func (e *Engine) RemoveOrphaned(ctx context.Context, idx *index.Index, destRoot string) (models.SyncResult, error) {
	s, err := e.syncer(idx, destRoot, nil)
	if err != nil {
		return models.SyncResult{}, err
	}
	return s.RemoveOrphaned(ctx, idx)
}

// Sync runs CopyUpdated followed by RemoveOrphaned
func (e *Engine) Sync(ctx context.Context, idx *index.Index, destRoot string) (models.SyncResult, error) {
	s, err := e.syncer(idx, destRoot, nil)
	if err != nil {
		return models.SyncResult{}, err
	}
	return s.Sync(ctx, idx)
}

// TwoWay copies the newer side of every record in both directions
func (e *Engine) TwoWay(ctx context.Context, idx *index.Index) (models.SyncResult, error) {
	s, err := e.syncer(idx, "", nil)
	if err != nil {
		return models.SyncResult{}, err
	}
	return s.TwoWay(ctx, idx)
}

// Run builds the index for op and applies its mode. ModeCompare only builds
// the index. The returned report is complete even on cancellation.
func (e *Engine) Run(ctx context.Context, op *models.Operation) (*models.SyncReport, *index.Index, error) {
	if err := op.Validate(); err != nil {
		return nil, nil, err
	}
	if op.ID == "" {
		op.ID = uuid.NewString()
	}

	report := &models.SyncReport{
		OperationID: op.ID,
		SourcePath:  op.SourcePath,
		DestPath:    op.DestPath,
		Mode:        op.Mode,
		DryRun:      op.DryRun,
		StartTime:   time.Now(),
	}
	finish := func(err error) {
		report.EndTime = time.Now()
		report.Duration = report.EndTime.Sub(report.StartTime)
		switch {
		case err != nil && isCancellation(err):
			report.Status = models.StatusCancelled
		case err != nil:
			report.Status = models.StatusFailed
		default:
			report.Status = report.Result.Status()
		}
	}

	logger := e.logger.WithFields(logging.Fields{"operation": op.ID, "mode": string(op.Mode)})
	logger.Info(ctx, "operation started", logging.Fields{
		"source":  op.SourcePath,
		"dest":    op.DestPath,
		"hash":    op.HashEnabled,
		"dry_run": op.DryRun,
	})

	idx, err := e.BuildIndex(ctx, op)
	if err != nil {
		finish(err)
		return report, nil, fmt.Errorf("failed to build index: %w", err)
	}
	report.Warnings = idx.Warnings

	var result models.SyncResult
	if op.Mode != models.ModeCompare {
		s, serr := e.syncer(idx, "", op)
		if serr != nil {
			finish(serr)
			return report, idx, serr
		}
		switch op.Mode {
		case models.ModeUpdate:
			result, err = s.CopyUpdated(ctx, idx)
		case models.ModeMirror:
			result, err = s.Sync(ctx, idx)
		case models.ModeTwoWay:
			result, err = s.TwoWay(ctx, idx)
		}
	}
	report.Result = result
	finish(err)

	logger.Info(ctx, "operation finished", logging.Fields{
		"status":   string(report.Status),
		"count":    result.Count(),
		"skipped":  result.Skipped,
		"duration": report.Duration.Round(time.Millisecond).String(),
	})
	return report, idx, err
}
