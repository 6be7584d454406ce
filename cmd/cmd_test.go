package cmd

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/lehigh-university-libraries/imgscan/internal/batch"
	"github.com/lehigh-university-libraries/imgscan/internal/naming"
	"github.com/lehigh-university-libraries/imgscan/internal/report"
	"github.com/lehigh-university-libraries/imgscan/internal/scanner"
)

// isolate keeps user config files, .env and provider variables out of the test
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	for _, key := range []string{"IMGSCAN_PROVIDER", "IMGSCAN_MODEL", "IMGSCAN_API_BASE_URL", "OPENAI_API_KEY", "GEMINI_API_KEY", "OLLAMA_HOST"} {
		t.Setenv(key, "")
	}
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
}

func imageDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		writePNG(t, filepath.Join(dir, name))
	}
	return dir
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func fakeServer(t *testing.T, reply string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"` + reply + `"}}]}`))
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRenameCommand(t *testing.T) {
	isolate(t)
	server, calls := fakeServer(t, "A red sports car")
	dir := imageDir(t, "a.png", "b.png")
	reportPath := filepath.Join(t.TempDir(), "run.yaml")

	out, err := execute(t, "",
		"rename", "-d", dir,
		"--api-base-url", server.URL,
		"--naming-scheme", "prefix_desc",
		"--report", reportPath,
		"-y",
	)
	if err != nil {
		t.Fatalf("rename returned error: %v\n%s", err, out)
	}

	want := []string{"IMGSCAN_red_sports_car.png", "IMGSCAN_red_sports_car_2.png"}
	if got := listDir(t, dir); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if calls.Load() != 2 {
		t.Errorf("Expected 2 describe calls, got %d", calls.Load())
	}
	if !strings.Contains(out, "Found 2 images") || !strings.Contains(out, "Report saved to") {
		t.Errorf("unexpected output:\n%s", out)
	}

	r, err := report.Load(reportPath)
	if err != nil {
		t.Fatalf("Failed to load report: %v", err)
	}
	if r.Summary.Renamed != 2 || len(r.Entries) != 2 || r.Run.Scheme != "prefix_desc" {
		t.Errorf("unexpected report: %+v", r)
	}

	// a second run skips everything
	out, err = execute(t, "", "rename", "-d", dir, "--api-base-url", server.URL, "--naming-scheme", "prefix_desc", "-y")
	if err != nil {
		t.Fatalf("second rename returned error: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("Expected no describe calls on second run, got %d total\n%s", calls.Load(), out)
	}
}

func TestRenameDryRun(t *testing.T) {
	isolate(t)
	server, _ := fakeServer(t, "red_mug")
	dir := imageDir(t, "kitchen.png")

	out, err := execute(t, "", "rename", "-d", dir, "--api-base-url", server.URL, "--dry-run", "-y")
	if err != nil {
		t.Fatalf("rename returned error: %v", err)
	}
	if !strings.Contains(out, "[DRY RUN] Would rename 'kitchen.png' to 'kitchen_IMGSCAN_red_mug.png'") {
		t.Errorf("Expected dry run line, got:\n%s", out)
	}
	if got := listDir(t, dir); len(got) != 1 || got[0] != "kitchen.png" {
		t.Errorf("dry run changed the directory: %v", got)
	}
}

func TestRenamePromptsAndAborts(t *testing.T) {
	isolate(t)
	server, calls := fakeServer(t, "dog")
	dir := imageDir(t, "a.png")
	missing := filepath.Join(t.TempDir(), "missing")

	out, err := execute(t, missing+"\n"+dir+"\nn\n", "rename", "--api-base-url", server.URL)
	if err != nil {
		t.Fatalf("rename returned error: %v", err)
	}
	if !strings.Contains(out, "is not a valid directory") {
		t.Errorf("Expected invalid directory message, got:\n%s", out)
	}
	if !strings.Contains(out, "Aborted.") {
		t.Errorf("Expected abort, got:\n%s", out)
	}
	if calls.Load() != 0 {
		t.Errorf("Expected no describe calls, got %d", calls.Load())
	}
	if got := listDir(t, dir); len(got) != 1 || got[0] != "a.png" {
		t.Errorf("Expected directory unchanged, got %v", got)
	}
}

func TestCompleteDirectory(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"Pictures", "Pictures-2024", "projects", ".cache"} {
		if err := os.Mkdir(filepath.Join(root, dir), 0755); err != nil {
			t.Fatal(err)
		}
	}
	writePNG(t, filepath.Join(root, "Pic.png"))
	sep := string(filepath.Separator)

	tests := []struct {
		name    string
		partial string
		want    []string
	}{
		{name: "empty input", partial: "", want: nil},
		{name: "prefix match skips files", partial: filepath.Join(root, "Pic"), want: []string{
			filepath.Join(root, "Pictures") + sep,
			filepath.Join(root, "Pictures-2024") + sep,
		}},
		{name: "case insensitive", partial: filepath.Join(root, "pro"), want: []string{filepath.Join(root, "projects") + sep}},
		{name: "hidden only on dot", partial: filepath.Join(root, ".c"), want: []string{filepath.Join(root, ".cache") + sep}},
		{name: "no match", partial: filepath.Join(root, "zzz"), want: nil},
		{name: "missing parent", partial: filepath.Join(root, "nope", "x"), want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := completeDirectory(tt.partial)
			sort.Strings(got)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("completeDirectory(%q) = %v, want %v", tt.partial, got, tt.want)
			}
		})
	}

	all := completeDirectory(root + sep)
	for _, s := range all {
		if strings.Contains(s, ".cache") {
			t.Errorf("Expected hidden directories to be left out, got %v", all)
		}
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 visible directories, got %v", all)
	}
}

func TestValidateDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.png")
	writePNG(t, file)

	tests := []struct {
		answer  string
		wantErr bool
	}{
		{answer: dir, wantErr: false},
		{answer: "  " + dir + "  ", wantErr: false},
		{answer: "", wantErr: true},
		{answer: file, wantErr: true},
		{answer: filepath.Join(dir, "missing"), wantErr: true},
	}
	for _, tt := range tests {
		if err := validateDirectory(tt.answer); (err != nil) != tt.wantErr {
			t.Errorf("validateDirectory(%q) error = %v, wantErr %v", tt.answer, err, tt.wantErr)
		}
	}
}

func TestPrompterFallsBackToLinesWithoutTerminal(t *testing.T) {
	p := newPrompter(strings.NewReader("yes\n"), &bytes.Buffer{})
	if p.interactive {
		t.Fatal("Expected line mode for a non-terminal reader")
	}
	ok, err := p.confirm(context.Background(), "Proceed?")
	if err != nil || !ok {
		t.Errorf("Expected confirmation, got %v, %v", ok, err)
	}
	ok, err = p.confirm(context.Background(), "Proceed?")
	if err != nil || ok {
		t.Errorf("Expected no at end of input, got %v, %v", ok, err)
	}
}

func TestRenameRejectsPrefixWithPath(t *testing.T) {
	isolate(t)
	dir := imageDir(t, "a.png")

	_, err := execute(t, "", "rename", "-d", dir, "--prefix", "../IMGSCAN", "-y")
	if !errors.Is(err, naming.ErrInvalidPrefix) {
		t.Errorf("Expected ErrInvalidPrefix, got %v", err)
	}
	if got := listDir(t, dir); len(got) != 1 || got[0] != "a.png" {
		t.Errorf("Expected directory unchanged, got %v", got)
	}
}

func TestRenameWarnings(t *testing.T) {
	isolate(t)
	server, _ := fakeServer(t, "dog")
	dir := imageDir(t, "a.png")

	out, err := execute(t, "", "rename", "-d", dir, "--api-base-url", server.URL, "--naming-scheme", "desc_only", "--dry-run", "-y")
	if err != nil {
		t.Fatalf("rename returned error: %v", err)
	}
	if !strings.Contains(out, "Warning: skip-processed cannot detect renamed files") {
		t.Errorf("Expected desc_only warning, got:\n%s", out)
	}

	out, err = execute(t, "", "rename", "-d", dir, "--api-base-url", server.URL, "--skip-processed=false", "--dry-run", "-y")
	if err != nil {
		t.Fatalf("rename returned error: %v", err)
	}
	if !strings.Contains(out, "Warning: skip-processed is off") {
		t.Errorf("Expected skip-processed warning, got:\n%s", out)
	}
}

func TestRenameFatalErrors(t *testing.T) {
	isolate(t)
	dir := imageDir(t, "a.png")

	_, err := execute(t, "", "rename", "-d", dir, "--prefix", "", "-y")
	if !errors.Is(err, batch.ErrEmptyPrefixDetection) {
		t.Errorf("Expected ErrEmptyPrefixDetection, got %v", err)
	}

	_, err = execute(t, "", "rename", "-d", filepath.Join(dir, "nope"), "-y")
	var walkErr *scanner.WalkError
	if !errors.As(err, &walkErr) {
		t.Errorf("Expected WalkError, got %v", err)
	}

	_, err = execute(t, "", "rename", "-d", dir, "--naming-scheme", "by_date", "-y")
	if err == nil || !strings.Contains(err.Error(), "unknown naming scheme") {
		t.Errorf("Expected scheme flag error, got %v", err)
	}

	_, err = execute(t, "", "rename", "-d", dir, "--provider", "claude", "-y")
	if err == nil || !strings.Contains(err.Error(), "unknown provider") {
		t.Errorf("Expected provider error, got %v", err)
	}
}

func TestReportCommand(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "run.json")
	r := report.NewRecorder(report.Run{Provider: "openai", Model: "llava", Scheme: "prefix_desc"})
	r.Add(batch.FileResult{State: batch.StateSkipped})
	if err := report.Save(path, r.Finish(batch.Summary{Processed: 1, SkippedProcessed: 1})); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "", "report", path, "--format", "csv")
	if err != nil {
		t.Fatalf("report returned error: %v", err)
	}
	if !strings.HasPrefix(out, "run_id,path,") {
		t.Errorf("Expected CSV header, got:\n%s", out)
	}

	if _, err := execute(t, "", "report", path, "--format", "xml"); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestConfigInit(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "imgscan", "config.toml")

	out, err := execute(t, "", "config", "init", "--path", path)
	if err != nil {
		t.Fatalf("config init returned error: %v", err)
	}
	if !strings.Contains(out, path) {
		t.Errorf("Expected path in output, got %s", out)
	}
	if _, err := execute(t, "", "config", "init", "--path", path); err == nil {
		t.Error("Expected error when file exists")
	}
	if _, err := execute(t, "", "config", "init", "--path", path, "--force"); err != nil {
		t.Errorf("Expected --force to overwrite, got %v", err)
	}

	out, err = execute(t, "", "--config", path, "config", "show")
	if err != nil {
		t.Fatalf("config show returned error: %v", err)
	}
	if !strings.Contains(out, "loaded from") || !strings.Contains(out, "original_prefix_desc") {
		t.Errorf("unexpected config show output:\n%s", out)
	}
}
