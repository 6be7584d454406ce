package batch

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/imgscan/internal/imageenc"
	"github.com/lehigh-university-libraries/imgscan/internal/models"
	"github.com/lehigh-university-libraries/imgscan/internal/naming"
	"github.com/lehigh-university-libraries/imgscan/internal/providers"
	"github.com/lehigh-university-libraries/imgscan/internal/renamer"
)

// Walker yields the images of one run.
type Walker interface {
	Files() iter.Seq[models.ImageFile]
}

// Option customizes a run.
type Option func(*runner)

// WithObserver registers a callback that receives every FileResult.
// Calls are serialized.
func WithObserver(fn func(FileResult)) Option {
	return func(r *runner) {
		r.tally.observer = fn
	}
}

// WithLoader replaces the image loader. The default re-encodes to JPEG.
func WithLoader(fn func(path string) ([]byte, error)) Option {
	return func(r *runner) {
		if fn != nil {
			r.load = fn
		}
	}
}

// WithLogger sets the run logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

type runner struct {
	cfg       RunConfig
	describer providers.Describer
	renamer   *renamer.Renamer
	load      func(path string) ([]byte, error)
	logger    *slog.Logger
	tally     tally

	// resolve and rename happen one file at a time so conflict checks see
	// every earlier decision
	finishMu sync.Mutex
}

// Run processes every file the walker yields and returns the counts. A
// failing file never stops the run; only an invalid config or a cancelled
// context is returned as an error.
func Run(ctx context.Context, cfg RunConfig, walker Walker, describer providers.Describer, opts ...Option) (Summary, error) {
	if err := cfg.Validate(); err != nil {
		return Summary{}, err
	}

	r := &runner{
		cfg:       cfg,
		describer: describer,
		load:      imageenc.LoadJPEG,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.renamer = renamer.New(renamer.WithLogger(r.logger))

	if cfg.SkipProcessed && !cfg.Scheme.SupportsDetection() {
		r.logger.Warn("Skip-processed is not supported with this naming scheme, every file will be described", "scheme", cfg.Scheme)
	}

	workers := cfg.workers()
	r.logger.Debug("Starting run", "dir", cfg.TargetDir, "scheme", cfg.Scheme, "dry_run", cfg.DryRun, "concurrency", workers)

	if workers == 1 {
		for file := range walker.Files() {
			if ctx.Err() != nil {
				break
			}
			r.tally.record(r.process(ctx, file))
		}
		return r.tally.snapshot(), ctx.Err()
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, workers)
	for file := range walker.Files() {
		if ctx.Err() != nil {
			break
		}
		select {
		case semaphore <- struct{}{}: // Acquire
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(file models.ImageFile) {
			defer wg.Done()
			defer func() { <-semaphore }() // Release
			r.tally.record(r.process(ctx, file))
		}(file)
	}
	wg.Wait()

	return r.tally.snapshot(), ctx.Err()
}

func (r *runner) process(ctx context.Context, file models.ImageFile) (result FileResult) {
	start := time.Now()
	result.File = file
	logger := r.logger.With("file", file.Path)

	defer func() {
		result.Duration = time.Since(start)
	}()

	if r.cfg.DetectionEnabled() && naming.IsAlreadyProcessed(file.Stem, r.cfg.Prefix, r.cfg.Scheme) {
		logger.Debug("Skipping already processed file")
		result.State = StateSkipped
		return result
	}

	image, err := r.load(file.Path)
	if err != nil {
		logger.Warn("Skipping unsupported or corrupt image", "error", err)
		result.State = StateUnsupported
		result.Err = err
		return result
	}

	description, err := r.describer.Describe(ctx, image, r.cfg.Describe)
	if err != nil {
		logger.Error("Failed to describe image", "error", err)
		result.State = StateFailed
		result.Err = err
		return result
	}
	logger.Debug("Received description", "description", description)

	r.finishMu.Lock()
	defer r.finishMu.Unlock()

	keyword, err := naming.Sanitize(description, r.cfg.MaxKeywordLength)
	if err != nil {
		logger.Error("Failed to derive keyword", "description", description, "error", err)
		result.State = StateFailed
		result.Err = err
		return result
	}
	result.Keyword = keyword

	candidate := naming.Resolve(file.Stem, file.Ext, r.cfg.Prefix, keyword, r.cfg.Scheme)
	outcome, err := r.renamer.Rename(file.Dir, file, candidate, r.cfg.DryRun)
	if err != nil {
		logger.Error("Failed to rename file", "candidate", candidate, "error", err)
		result.State = StateFailed
		result.Err = fmt.Errorf("failed to rename %s: %w", file.Name, err)
		return result
	}

	result.State = StateDone
	result.Outcome = outcome
	logger.Debug("Processed image", "outcome", outcome.Kind, "new_name", filepath.Base(outcome.To))
	return result
}
