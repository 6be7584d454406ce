package batch

import (
	"sync"
	"time"

	"github.com/lehigh-university-libraries/imgscan/internal/models"
	"github.com/lehigh-university-libraries/imgscan/internal/naming"
	"github.com/lehigh-university-libraries/imgscan/internal/renamer"
)

// State is the terminal state of one file.
type State string

const (
	StateSkipped     State = "skipped"
	StateUnsupported State = "unsupported"
	StateFailed      State = "failed"
	StateDone        State = "done"
)

// FileResult is what happened to one file.
type FileResult struct {
	File     models.ImageFile
	State    State
	Outcome  renamer.Outcome
	Keyword  naming.Keyword
	Err      error
	Duration time.Duration
}

// Reason is a short human readable explanation of the result.
func (r FileResult) Reason() string {
	switch r.State {
	case StateSkipped:
		return "already processed"
	case StateUnsupported, StateFailed:
		if r.Err != nil {
			return r.Err.Error()
		}
		return string(r.State)
	default:
		return r.Outcome.Kind.String()
	}
}

// Summary counts file results for one run.
type Summary struct {
	Processed          int `json:"processed" yaml:"processed"`
	SkippedProcessed   int `json:"skipped_processed" yaml:"skipped_processed"`
	SkippedUnsupported int `json:"skipped_unsupported" yaml:"skipped_unsupported"`
	Failed             int `json:"failed" yaml:"failed"`
	Renamed            int `json:"renamed" yaml:"renamed"`
	WouldRename        int `json:"would_rename" yaml:"would_rename"`
	Unchanged          int `json:"unchanged" yaml:"unchanged"`
}

// Add counts one result. Processed counts every file the walker yielded.
func (s *Summary) Add(r FileResult) {
	s.Processed++
	switch r.State {
	case StateSkipped:
		s.SkippedProcessed++
	case StateUnsupported:
		s.SkippedUnsupported++
	case StateFailed:
		s.Failed++
	case StateDone:
		switch r.Outcome.Kind {
		case renamer.Renamed:
			s.Renamed++
		case renamer.WouldRename:
			s.WouldRename++
		default:
			s.Unchanged++
		}
	}
}

// tally guards the shared Summary and serializes observer callbacks.
type tally struct {
	mu       sync.Mutex
	summary  Summary
	observer func(FileResult)
}

func (t *tally) record(r FileResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.summary.Add(r)
	if t.observer != nil {
		t.observer(r)
	}
}

func (t *tally) snapshot() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.summary
}
