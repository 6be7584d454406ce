package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/lehigh-university-libraries/imgscan/internal/batch"
)

// Formats lists the values accepted by Render.
var Formats = []string{"text", "json", "csv"}

// Render writes the report to w in the given format.
func Render(w io.Writer, r *Report, format string) error {
	switch format {
	case "text", "":
		return renderText(w, r)
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(r)
	case "csv":
		return renderCSV(w, r)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func renderText(w io.Writer, r *Report) error {
	fmt.Fprintf(w, "Run:       %s\n", r.Run.ID)
	if !r.Run.StartedAt.IsZero() {
		fmt.Fprintf(w, "Started:   %s (%s)\n", r.Run.StartedAt.Local().Format(time.DateTime), humanize.Time(r.Run.StartedAt))
	}
	fmt.Fprintf(w, "Directory: %s\n", r.Run.TargetDir)
	fmt.Fprintf(w, "Provider:  %s (%s)\n", r.Run.Provider, r.Run.Model)
	fmt.Fprintf(w, "Scheme:    %s, prefix %q\n", r.Run.Scheme, r.Run.Prefix)
	if r.Run.DryRun {
		fmt.Fprintln(w, "Mode:      dry run")
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, SummaryTable(r.Summary))

	if len(r.Entries) == 0 {
		return nil
	}

	rows := make([][]string, 0, len(r.Entries))
	for _, e := range r.Entries {
		result := e.Outcome
		if e.Error != "" {
			result = e.Error
		}
		newName := ""
		if e.NewPath != "" {
			newName = filepath.Base(e.NewPath)
		}
		rows = append(rows, []string{filepath.Base(e.Path), newName, e.State, result})
	}
	fmt.Fprintln(w)
	_, err := fmt.Fprintln(w, Table([]string{"File", "New name", "State", "Result"}, rows, nil))
	return err
}

func renderCSV(w io.Writer, r *Report) error {
	writer := csv.NewWriter(w)

	header := []string{"run_id", "path", "new_path", "state", "outcome", "keyword", "error", "duration_ms"}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, e := range r.Entries {
		row := []string{
			r.Run.ID,
			e.Path,
			e.NewPath,
			e.State,
			e.Outcome,
			e.Keyword,
			e.Error,
			strconv.FormatInt(e.DurationMS, 10),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// SummaryTable renders the counts of a run as a two column table.
func SummaryTable(s batch.Summary) string {
	rows := [][]string{
		{"Processed", strconv.Itoa(s.Processed)},
		{"Renamed", strconv.Itoa(s.Renamed)},
		{"Would rename (dry run)", strconv.Itoa(s.WouldRename)},
		{"Unchanged", strconv.Itoa(s.Unchanged)},
		{"Skipped (already processed)", strconv.Itoa(s.SkippedProcessed)},
		{"Skipped (unsupported or corrupt)", strconv.Itoa(s.SkippedUnsupported)},
		{"Failed", strconv.Itoa(s.Failed)},
	}
	return Table([]string{"Outcome", "Files"}, rows, []text.Align{text.AlignLeft, text.AlignRight})
}

// Table renders rows with a rounded border. Columns without an entry in
// aligns are left aligned.
func Table(headers []string, rows [][]string, aligns []text.Align) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) {
			align = aligns[i]
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}
