package report

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/imgscan/internal/batch"
	"github.com/lehigh-university-libraries/imgscan/internal/renamer"
)

// Run describes the settings of one rename run
type Run struct {
	ID         string    `json:"id" yaml:"id"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
	Provider   string    `json:"provider" yaml:"provider"`
	Model      string    `json:"model" yaml:"model"`
	TargetDir  string    `json:"target_dir" yaml:"target_dir"`
	Scheme     string    `json:"scheme" yaml:"scheme"`
	Prefix     string    `json:"prefix" yaml:"prefix"`
	DryRun     bool      `json:"dry_run" yaml:"dry_run"`
}

// Entry represents the result for a single file
type Entry struct {
	Path       string `json:"path" yaml:"path"`
	NewPath    string `json:"new_path,omitempty" yaml:"new_path,omitempty"`
	State      string `json:"state" yaml:"state"`
	Outcome    string `json:"outcome,omitempty" yaml:"outcome,omitempty"`
	Keyword    string `json:"keyword,omitempty" yaml:"keyword,omitempty"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
	DurationMS int64  `json:"duration_ms" yaml:"duration_ms"`
}

// Report is the saved record of a run
type Report struct {
	Run     Run           `json:"run" yaml:"run"`
	Summary batch.Summary `json:"summary" yaml:"summary"`
	Entries []Entry       `json:"entries" yaml:"entries"`
}

// ErrUnsupportedFormat is returned for report files with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported report format")

// Recorder collects file results into a Report. Its Add method is meant to
// be passed to batch.WithObserver, which serializes calls.
type Recorder struct {
	report Report
}

// NewRecorder starts a report for run, assigning a fresh run ID.
func NewRecorder(run Run) *Recorder {
	run.ID = uuid.NewString()
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	return &Recorder{report: Report{Run: run}}
}

// Add records one file result.
func (r *Recorder) Add(result batch.FileResult) {
	r.report.Entries = append(r.report.Entries, NewEntry(result))
}

// Finish stamps the end time and summary and returns the report.
func (r *Recorder) Finish(summary batch.Summary) *Report {
	r.report.Run.FinishedAt = time.Now().UTC()
	r.report.Summary = summary
	return &r.report
}

// NewEntry converts a batch result into a report row.
func NewEntry(result batch.FileResult) Entry {
	entry := Entry{
		Path:       result.File.Path,
		State:      string(result.State),
		Keyword:    result.Keyword.Text,
		DurationMS: result.Duration.Milliseconds(),
	}
	if result.State == batch.StateDone {
		entry.Outcome = result.Outcome.Kind.String()
		entry.NewPath = result.Outcome.To
	}
	if result.Err != nil {
		entry.Error = result.Err.Error()
	}
	return entry
}

// summarize rebuilds counts from entries, for formats that store rows only.
func summarize(entries []Entry) batch.Summary {
	var s batch.Summary
	for _, e := range entries {
		s.Processed++
		switch batch.State(e.State) {
		case batch.StateSkipped:
			s.SkippedProcessed++
		case batch.StateUnsupported:
			s.SkippedUnsupported++
		case batch.StateFailed:
			s.Failed++
		case batch.StateDone:
			switch e.Outcome {
			case renamer.Renamed.String():
				s.Renamed++
			case renamer.WouldRename.String():
				s.WouldRename++
			default:
				s.Unchanged++
			}
		}
	}
	return s
}
