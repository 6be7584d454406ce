package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/lehigh-university-libraries/imgscan/internal/config"
)

// prompter asks the interactive questions of the rename command. On a
// terminal it uses huh forms with directory completion; otherwise it falls
// back to reading plain lines, so piped answers keep working.
type prompter struct {
	in          io.Reader
	out         io.Writer
	interactive bool
	accessible  bool

	// lines is shared by consecutive line-mode questions so none loses input
	lines *bufio.Reader
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{
		in:          in,
		out:         out,
		interactive: isTerminal(in) && isTerminal(out),
		accessible:  os.Getenv("ACCESSIBLE") != "",
		lines:       bufio.NewReader(in),
	}
}

func (p *prompter) form(field huh.Field) *huh.Form {
	return huh.NewForm(huh.NewGroup(field)).
		WithInput(p.in).
		WithOutput(p.out).
		WithAccessible(p.accessible)
}

// directory asks until the answer names an existing directory
func (p *prompter) directory(ctx context.Context, question string) (string, error) {
	if !p.interactive {
		return p.lineDirectory(question)
	}

	var dir string
	input := huh.NewInput().
		Title(question).
		Placeholder("~/Pictures").
		Value(&dir).
		SuggestionsFunc(func() []string { return completeDirectory(dir) }, &dir).
		Validate(validateDirectory)
	if err := p.form(input).RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", errors.New("no target directory given")
		}
		return "", fmt.Errorf("failed to read target directory: %w", err)
	}
	return strings.TrimSpace(dir), nil
}

// confirm asks a yes/no question, defaulting to no
func (p *prompter) confirm(ctx context.Context, question string) (bool, error) {
	if !p.interactive {
		return p.lineConfirm(question)
	}

	var ok bool
	field := huh.NewConfirm().
		Title(question).
		Affirmative("Yes").
		Negative("No").
		Value(&ok)
	if err := p.form(field).RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	return ok, nil
}

func validateDirectory(answer string) error {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return errors.New("enter a directory")
	}
	path, err := config.ExpandPath(answer)
	if err != nil {
		return err
	}
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		return fmt.Errorf("'%s' is not a valid directory", answer)
	}
	return nil
}

// completeDirectory lists the directories that extend partial, keeping the
// form the user typed (a leading ~ stays unexpanded). Hidden directories are
// offered only once the typed name starts with a dot.
func completeDirectory(partial string) []string {
	if partial == "" {
		return nil
	}
	if partial == "~" {
		partial += string(filepath.Separator)
	}

	parent, base := filepath.Split(partial)
	readDir := parent
	if readDir == "" {
		readDir = "."
	}
	readDir, err := config.ExpandPath(readDir)
	if err != nil {
		return nil
	}
	entries, err := os.ReadDir(readDir)
	if err != nil {
		return nil
	}

	var suggestions []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(base, ".") {
			continue
		}
		if !strings.HasPrefix(strings.ToLower(name), strings.ToLower(base)) {
			continue
		}
		if !isDirEntry(readDir, entry) {
			continue
		}
		suggestions = append(suggestions, parent+name+string(filepath.Separator))
	}
	return suggestions
}

func isDirEntry(dir string, entry fs.DirEntry) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, entry.Name()))
	return err == nil && info.IsDir()
}

func (p *prompter) ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	line, err := p.lines.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *prompter) lineConfirm(question string) (bool, error) {
	answer, err := p.ask(question + " [y/N]: ")
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (p *prompter) lineDirectory(question string) (string, error) {
	for {
		answer, err := p.ask(question + ": ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", errors.New("no target directory given")
			}
			return "", fmt.Errorf("failed to read target directory: %w", err)
		}
		if answer == "" {
			continue
		}
		if err := validateDirectory(answer); err != nil {
			fmt.Fprintln(p.out, err)
			continue
		}
		return answer, nil
	}
}
