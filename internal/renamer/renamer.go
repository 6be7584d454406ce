package renamer

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lehigh-university-libraries/imgscan/internal/models"
)

// DefaultMaxAttempts bounds the disambiguator search: the candidate itself,
// then _2 through _1000.
const DefaultMaxAttempts = 1000

// OutcomeKind describes what a Rename call did.
type OutcomeKind int

const (
	// NoOp means the file already has the candidate name.
	NoOp OutcomeKind = iota
	// Renamed means the file was moved to To.
	Renamed
	// WouldRename means a dry run chose To without touching the disk.
	WouldRename
)

func (k OutcomeKind) String() string {
	switch k {
	case NoOp:
		return "unchanged"
	case Renamed:
		return "renamed"
	case WouldRename:
		return "would_rename"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome is the result of a successful Rename call.
type Outcome struct {
	Kind OutcomeKind
	From string
	To   string
}

// ConflictExhaustedError is returned when no free name was found.
type ConflictExhaustedError struct {
	Candidate string
	Attempts  int
}

func (e *ConflictExhaustedError) Error() string {
	return fmt.Sprintf("no free filename for %q after %d attempts", e.Candidate, e.Attempts)
}

// ErrInvalidCandidate is returned when the candidate is not a plain filename.
var ErrInvalidCandidate = errors.New("candidate is not a plain filename")

var errTargetExists = errors.New("rename target exists")

// Renamer moves files to collision-free names. It never overwrites an
// existing file. Names handed out during a run are remembered, so dry runs
// and concurrent callers sharing a Renamer never receive the same target
// twice. A dry run also remembers the sources it would have moved away, so
// their names count as free exactly as they would after a real rename. It
// does not lock the directory against other processes.
type Renamer struct {
	mu          sync.Mutex
	claims      map[string]string   // target path -> source path
	vacated     map[string]struct{} // sources a dry run would have moved
	maxAttempts int
	logger      *slog.Logger
}

// Option customizes a Renamer.
type Option func(*Renamer)

// WithMaxAttempts overrides DefaultMaxAttempts.
func WithMaxAttempts(attempts int) Option {
	return func(r *Renamer) {
		if attempts > 0 {
			r.maxAttempts = attempts
		}
	}
}

// WithLogger sets the logger used for collision diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renamer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New returns a Renamer with an empty claim set.
func New(opts ...Option) *Renamer {
	r := &Renamer{
		claims:      make(map[string]string),
		vacated:     make(map[string]struct{}),
		maxAttempts: DefaultMaxAttempts,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rename moves original to dir/candidate, appending _2, _3, ... before the
// extension while the name is taken by another file.
func (r *Renamer) Rename(dir string, original models.ImageFile, candidate string, dryRun bool) (Outcome, error) {
	if candidate == "" || candidate == "." || candidate == ".." ||
		strings.ContainsAny(candidate, `/\`) || filepath.Base(candidate) != candidate {
		return Outcome{}, fmt.Errorf("%w: %q", ErrInvalidCandidate, candidate)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	source := filepath.Clean(original.Path)
	ext := filepath.Ext(candidate)
	stem := strings.TrimSuffix(candidate, ext)

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		name := candidate
		if attempt > 1 {
			name = fmt.Sprintf("%s_%d%s", stem, attempt, ext)
		}
		target := filepath.Join(dir, name)

		if target == source {
			return Outcome{Kind: NoOp, From: source, To: target}, nil
		}

		taken, sameFile, err := r.taken(target, source)
		if err != nil {
			return Outcome{}, err
		}
		if taken {
			r.logger.Debug("Rename target taken", "target", target, "source", source)
			continue
		}

		if dryRun {
			r.claims[target] = source
			r.vacated[source] = struct{}{}
			return Outcome{Kind: WouldRename, From: source, To: target}, nil
		}

		if sameFile {
			// Case-only rename on a case-insensitive filesystem.
			err = os.Rename(source, target)
		} else {
			err = moveNoClobber(source, target)
		}
		if errors.Is(err, errTargetExists) {
			continue
		}
		if err != nil {
			return Outcome{}, fmt.Errorf("failed to rename %s to %s: %w", source, target, err)
		}

		r.claims[target] = source
		return Outcome{Kind: Renamed, From: source, To: target}, nil
	}

	return Outcome{}, &ConflictExhaustedError{Candidate: candidate, Attempts: r.maxAttempts}
}

// taken reports whether target belongs to a file other than source, either on
// disk or by an earlier claim in this run.
func (r *Renamer) taken(target, source string) (taken bool, sameFile bool, err error) {
	if owner, ok := r.claims[target]; ok && owner != source {
		return true, false, nil
	}
	if _, ok := r.vacated[target]; ok {
		return false, false, nil
	}

	targetInfo, err := os.Lstat(target)
	if errors.Is(err, fs.ErrNotExist) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("failed to stat %s: %w", target, err)
	}

	sourceInfo, err := os.Lstat(source)
	if err == nil && os.SameFile(targetInfo, sourceInfo) {
		return false, true, nil
	}
	return true, false, nil
}

// moveNoClobber renames from to to, failing with errTargetExists instead of
// replacing an existing file. A hard link claims the new name atomically.
func moveNoClobber(from, to string) error {
	err := os.Link(from, to)
	if err == nil {
		if err := os.Remove(from); err != nil {
			_ = os.Remove(to)
			return err
		}
		return nil
	}
	if errors.Is(err, fs.ErrExist) {
		return errTargetExists
	}

	// Filesystems without hard links (FAT, some network shares).
	if _, statErr := os.Lstat(to); statErr == nil {
		return errTargetExists
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return statErr
	}
	return os.Rename(from, to)
}
