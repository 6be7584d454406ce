package scanner

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/lehigh-university-libraries/imgscan/internal/models"
)

// SupportedExtensions lists the image formats sent to the describer.
var SupportedExtensions = []string{"png", "jpg", "jpeg", "webp", "gif"}

// IsSupported checks whether a filename has a supported image extension
func IsSupported(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	switch ext {
	case "png", "jpg", "jpeg", "webp", "gif":
		return true
	default:
		return false
	}
}

var errNotDirectory = errors.New("not a directory")

// WalkError is a fatal problem with the scan root.
type WalkError struct {
	Root string
	Err  error
}

func (e *WalkError) Error() string {
	return fmt.Sprintf("target directory not found or invalid: %s: %v", e.Root, e.Err)
}

func (e *WalkError) Unwrap() error {
	return e.Err
}

// Options configures a Walker.
type Options struct {
	// Exclude holds doublestar patterns matched against slash-separated,
	// root-relative paths. A matching directory is not descended into.
	Exclude []string
	Logger  *slog.Logger
}

// Stats counts what the walker saw besides the images it yielded.
type Stats struct {
	Images      int
	Bytes       int64
	Hidden      int
	Unsupported int
	Excluded    int
	Unreadable  int
}

// Walker yields the supported images under a root directory. Hidden files
// and directories are skipped. A Walker can be iterated once.
type Walker struct {
	root     string
	exclude  []string
	logger   *slog.Logger
	stats    Stats
	consumed bool
}

// New validates root and returns a Walker for it.
func New(root string, opts Options) (*Walker, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, &WalkError{Root: root, Err: err}
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, &WalkError{Root: abs, Err: err}
	}
	if !info.IsDir() {
		return nil, &WalkError{Root: abs, Err: errNotDirectory}
	}

	dir, err := os.Open(abs)
	if err != nil {
		return nil, &WalkError{Root: abs, Err: err}
	}
	_, err = dir.Readdirnames(1)
	dir.Close()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, &WalkError{Root: abs, Err: err}
	}

	for _, pattern := range opts.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Walker{
		root:    abs,
		exclude: opts.Exclude,
		logger:  logger,
	}, nil
}

// Root returns the absolute scan root.
func (w *Walker) Root() string {
	return w.root
}

// Stats returns the counters gathered so far.
func (w *Walker) Stats() Stats {
	return w.stats
}

// Files lazily yields supported images, recursing into subdirectories.
// Each directory is listed before its entries are yielded, so renaming a
// yielded file does not make it show up again.
func (w *Walker) Files() iter.Seq[models.ImageFile] {
	return func(yield func(models.ImageFile) bool) {
		if w.consumed {
			return
		}
		w.consumed = true

		err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				w.logger.Warn("Unable to read path", "path", path, "error", err)
				w.stats.Unreadable++
				return nil
			}
			if path == w.root {
				return nil
			}

			if strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				w.stats.Hidden++
				return nil
			}

			if w.excluded(path) {
				w.stats.Excluded++
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}
			if !IsSupported(d.Name()) {
				w.stats.Unsupported++
				return nil
			}

			info, err := d.Info()
			if err != nil {
				w.logger.Warn("Unable to stat file", "path", path, "error", err)
				w.stats.Unreadable++
				return nil
			}

			w.stats.Images++
			w.stats.Bytes += info.Size()
			if !yield(models.NewImageFile(path, info.Size())) {
				return filepath.SkipAll
			}
			return nil
		})
		if err != nil {
			w.logger.Error("Directory walk stopped", "root", w.root, "error", err)
		}
	}
}

func (w *Walker) excluded(path string) bool {
	if len(w.exclude) == 0 {
		return false
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range w.exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// List is a pre-collected set of images. It lets callers count files up
// front (for a progress bar) and still hand the orchestrator a walker.
type List []models.ImageFile

// Collect drains seq into a List.
func Collect(seq iter.Seq[models.ImageFile]) List {
	var files List
	for f := range seq {
		files = append(files, f)
	}
	return files
}

// Files yields the listed images in order.
func (l List) Files() iter.Seq[models.ImageFile] {
	return func(yield func(models.ImageFile) bool) {
		for _, f := range l {
			if !yield(f) {
				return
			}
		}
	}
}
