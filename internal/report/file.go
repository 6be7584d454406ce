package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

// parquetRow flattens the run settings onto every entry so a Parquet report
// can be queried without a side file.
type parquetRow struct {
	RunID      string `parquet:"run_id"`
	StartedAt  int64  `parquet:"started_at_ms"`
	FinishedAt int64  `parquet:"finished_at_ms"`
	Provider   string `parquet:"provider"`
	Model      string `parquet:"model"`
	TargetDir  string `parquet:"target_dir"`
	Scheme     string `parquet:"scheme"`
	Prefix     string `parquet:"prefix"`
	DryRun     bool   `parquet:"dry_run"`
	Path       string `parquet:"path"`
	NewPath    string `parquet:"new_path"`
	State      string `parquet:"state"`
	Outcome    string `parquet:"outcome"`
	Keyword    string `parquet:"keyword"`
	Error      string `parquet:"error"`
	DurationMS int64  `parquet:"duration_ms"`
}

// Save writes the report, choosing the encoding from the file extension
// (.yaml, .yml, .json or .parquet).
func Save(path string, r *Report) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		data, err := yaml.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write report file: %w", err)
		}
	case ".json":
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write report file: %w", err)
		}
	case ".parquet":
		if err := saveParquet(path, r); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %s (supported: .yaml, .json, .parquet)", ErrUnsupportedFormat, ext)
	}

	slog.Debug("Saved report", "path", path, "entries", len(r.Entries))
	return nil
}

func saveParquet(path string, r *Report) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer file.Close()

	rows := make([]parquetRow, 0, len(r.Entries))
	for _, e := range r.Entries {
		rows = append(rows, parquetRow{
			RunID:      r.Run.ID,
			StartedAt:  r.Run.StartedAt.UnixMilli(),
			FinishedAt: r.Run.FinishedAt.UnixMilli(),
			Provider:   r.Run.Provider,
			Model:      r.Run.Model,
			TargetDir:  r.Run.TargetDir,
			Scheme:     r.Run.Scheme,
			Prefix:     r.Run.Prefix,
			DryRun:     r.Run.DryRun,
			Path:       e.Path,
			NewPath:    e.NewPath,
			State:      e.State,
			Outcome:    e.Outcome,
			Keyword:    e.Keyword,
			Error:      e.Error,
			DurationMS: e.DurationMS,
		})
	}

	writer := parquet.NewGenericWriter[parquetRow](file)
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return file.Close()
}

// Load reads a report written by Save.
func Load(path string) (*Report, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read report file: %w", err)
		}
		var r Report
		if err := yaml.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("failed to parse YAML report: %w", err)
		}
		return &r, nil
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read report file: %w", err)
		}
		var r Report
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("failed to parse JSON report: %w", err)
		}
		return &r, nil
	case ".parquet":
		return loadParquet(path)
	default:
		return nil, fmt.Errorf("%w: %s (supported: .yaml, .json, .parquet)", ErrUnsupportedFormat, ext)
	}
}

func loadParquet(path string) (*Report, error) {
	slog.Debug("Opening Parquet file", "path", path)

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[parquetRow](pf)
	defer reader.Close()

	r := &Report{}
	rows := make([]parquetRow, 128)
	for {
		n, err := reader.Read(rows)
		for _, row := range rows[:n] {
			if r.Run.ID == "" {
				r.Run = Run{
					ID:         row.RunID,
					StartedAt:  time.UnixMilli(row.StartedAt).UTC(),
					FinishedAt: time.UnixMilli(row.FinishedAt).UTC(),
					Provider:   row.Provider,
					Model:      row.Model,
					TargetDir:  row.TargetDir,
					Scheme:     row.Scheme,
					Prefix:     row.Prefix,
					DryRun:     row.DryRun,
				}
			}
			r.Entries = append(r.Entries, Entry{
				Path:       row.Path,
				NewPath:    row.NewPath,
				State:      row.State,
				Outcome:    row.Outcome,
				Keyword:    row.Keyword,
				Error:      row.Error,
				DurationMS: row.DurationMS,
			})
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}

	r.Summary = summarize(r.Entries)
	slog.Debug("Finished reading Parquet file", "rows", len(r.Entries))
	return r, nil
}
