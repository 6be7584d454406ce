package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lehigh-university-libraries/imgscan/internal/batch"
	"github.com/lehigh-university-libraries/imgscan/internal/config"
	"github.com/lehigh-university-libraries/imgscan/internal/dirlock"
	"github.com/lehigh-university-libraries/imgscan/internal/logging"
	"github.com/lehigh-university-libraries/imgscan/internal/naming"
	"github.com/lehigh-university-libraries/imgscan/internal/providers"
	"github.com/lehigh-university-libraries/imgscan/internal/renamer"
	"github.com/lehigh-university-libraries/imgscan/internal/report"
	"github.com/lehigh-university-libraries/imgscan/internal/scanner"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type renameOptions struct {
	targetDir        string
	provider         string
	baseURL          string
	model            string
	temperature      float64
	maxTokens        int
	prefix           string
	scheme           naming.Scheme
	skipProcessed    bool
	dryRun           bool
	yes              bool
	verbose          bool
	maxKeywordLength int
	concurrency      int
	exclude          []string
	report           string
	prompt           string
	logFormat        string
}

func newRenameCmd(configPath *string) *cobra.Command {
	opts := renameOptions{scheme: naming.OriginalPrefixDesc}

	cmd := &cobra.Command{
		Use:   "rename",
		Short: "Describe and rename the images in a directory",
		Long: `Scan a directory tree for png, jpg, jpeg, webp and gif images, ask a vision
model for a short description of each one and rename the file after it.

Naming schemes:
  original_prefix_desc  vacation.jpg -> vacation_IMGSCAN_red_sports_car.jpg
  prefix_desc           vacation.jpg -> IMGSCAN_red_sports_car.jpg
  desc_only             vacation.jpg -> red_sports_car.jpg

Existing files are never overwritten; a _2, _3, ... suffix is added instead.
Files that already carry the prefix are skipped unless --skip-processed=false.`,
		Example: `  # Preview renames using a local LM Studio server
  imgscan rename -d ~/Pictures/trip --dry-run

  # Rename with Ollama, four requests at a time, without confirmation
  imgscan rename -d ~/Pictures/trip --provider ollama --concurrency 4 -y

  # Keep only the description and save a report
  imgscan rename -d ./scans --naming-scheme desc_only --report run.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRename(cmd, *configPath, &opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.targetDir, "target-directory", "d", "", "Directory to scan (prompted for when omitted)")
	flags.StringVar(&opts.provider, "provider", config.ProviderOpenAI, "Vision model provider (openai, ollama or gemini)")
	flags.StringVar(&opts.baseURL, "api-base-url", "", "API base URL (defaults to the provider's local endpoint)")
	flags.StringVar(&opts.model, "model", "", "Model name (defaults to provider's default)")
	flags.Float64Var(&opts.temperature, "temperature", 0.3, "Sampling temperature")
	flags.IntVar(&opts.maxTokens, "max-tokens", 50, "Maximum tokens in the model reply")
	flags.StringVar(&opts.prefix, "prefix", "IMGSCAN", "Prefix that marks renamed files")
	flags.Var(&opts.scheme, "naming-scheme", "Naming scheme ("+strings.Join(naming.SchemeNames(), ", ")+")")
	flags.BoolVar(&opts.skipProcessed, "skip-processed", true, "Skip files whose names already carry the prefix")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "Show what would be renamed without touching any file")
	flags.BoolVarP(&opts.yes, "yes", "y", false, "Do not ask for confirmation")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Print one line per file and enable debug logging")
	flags.IntVar(&opts.maxKeywordLength, "max-keyword-length", naming.DefaultMaxKeywordLength, "Maximum keyword length in bytes")
	flags.IntVar(&opts.concurrency, "concurrency", 1, "Number of images described in parallel")
	flags.StringArrayVar(&opts.exclude, "exclude", nil, "Glob of paths to skip, relative to the target directory (repeatable)")
	flags.StringVar(&opts.report, "report", "", "Write a run report (.yaml, .json or .parquet)")
	flags.StringVar(&opts.prompt, "prompt", "", "Prompt sent with each image")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format (text or json)")

	return cmd
}

// apply copies explicitly set flags over the loaded config
func (o *renameOptions) apply(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed("provider") {
		cfg.Provider.Name = strings.ToLower(strings.TrimSpace(o.provider))
	}
	if flags.Changed("api-base-url") {
		cfg.Provider.BaseURL = strings.TrimSpace(o.baseURL)
	}
	if flags.Changed("model") {
		cfg.Provider.Model = strings.TrimSpace(o.model)
	}
	if flags.Changed("temperature") {
		cfg.Provider.Temperature = o.temperature
	}
	if flags.Changed("max-tokens") {
		cfg.Provider.MaxTokens = o.maxTokens
	}
	if flags.Changed("prompt") {
		cfg.Provider.Prompt = o.prompt
	}
	if flags.Changed("prefix") {
		cfg.Naming.Prefix = strings.TrimSpace(o.prefix)
	}
	if flags.Changed("naming-scheme") {
		cfg.Naming.Scheme = o.scheme
	}
	if flags.Changed("skip-processed") {
		cfg.Naming.SkipProcessed = o.skipProcessed
	}
	if flags.Changed("max-keyword-length") {
		cfg.Naming.MaxKeywordLength = o.maxKeywordLength
	}
	if flags.Changed("concurrency") {
		cfg.Run.Concurrency = o.concurrency
	}
	if flags.Changed("exclude") {
		cfg.Run.Exclude = o.exclude
	}
	if flags.Changed("report") {
		cfg.Run.Report = strings.TrimSpace(o.report)
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = strings.ToLower(strings.TrimSpace(o.logFormat))
	}
}

func runRename(cmd *cobra.Command, configPath string, opts *renameOptions) error {
	cfg, resolvedPath, exists, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	opts.apply(cmd.Flags(), cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Writer:  cmd.ErrOrStderr(),
		Verbose: opts.verbose,
	})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	if exists {
		slog.Debug("Loaded config", "path", resolvedPath)
	}

	out := cmd.OutOrStdout()
	prompt := newPrompter(cmd.InOrStdin(), out)

	targetDir := opts.targetDir
	if targetDir == "" {
		if targetDir, err = prompt.directory(cmd.Context(), "Enter the target directory"); err != nil {
			return err
		}
	}
	targetDir, err = config.ExpandPath(targetDir)
	if err != nil {
		return err
	}

	runCfg := batch.RunConfig{
		TargetDir:        targetDir,
		Scheme:           cfg.Naming.Scheme,
		Prefix:           cfg.Naming.Prefix,
		SkipProcessed:    cfg.Naming.SkipProcessed,
		DryRun:           opts.dryRun,
		MaxKeywordLength: cfg.Naming.MaxKeywordLength,
		Concurrency:      cfg.Run.Concurrency,
		Describe: providers.Config{
			Model:       cfg.Provider.ResolvedModel(),
			Temperature: cfg.Provider.Temperature,
			MaxTokens:   cfg.Provider.MaxTokens,
			Prompt:      cfg.Provider.Prompt,
		},
	}
	if err := runCfg.Validate(); err != nil {
		return err
	}

	walker, err := scanner.New(targetDir, scanner.Options{Exclude: cfg.Run.Exclude, Logger: logger})
	if err != nil {
		return err
	}

	describer, err := newDescriber(cfg.Provider)
	if err != nil {
		return err
	}

	if !opts.dryRun {
		lock, err := dirlock.Acquire(walker.Root())
		if err != nil {
			return err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				slog.Warn("Failed to release directory lock", "error", err)
			}
		}()
	}

	files := scanner.Collect(walker.Files())
	stats := walker.Stats()

	printReview(out, cfg, runCfg)
	printWarnings(out, runCfg)
	fmt.Fprintf(out, "\nFound %d images (%s) in %s\n", stats.Images, humanize.Bytes(uint64(stats.Bytes)), walker.Root())
	if ignored := stats.Hidden + stats.Unsupported + stats.Excluded + stats.Unreadable; ignored > 0 {
		fmt.Fprintf(out, "Ignored %d hidden, %d non-image, %d excluded and %d unreadable entries\n",
			stats.Hidden, stats.Unsupported, stats.Excluded, stats.Unreadable)
	}
	if len(files) == 0 {
		fmt.Fprintln(out, "No supported images found.")
		return nil
	}

	if !opts.yes {
		fmt.Fprintln(out)
		ok, err := prompt.confirm(cmd.Context(), "Proceed?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	var recorder *report.Recorder
	if cfg.Run.Report != "" {
		recorder = report.NewRecorder(report.Run{
			Provider:  cfg.Provider.Name,
			Model:     runCfg.Describe.Model,
			TargetDir: walker.Root(),
			Scheme:    runCfg.Scheme.String(),
			Prefix:    runCfg.Prefix,
			DryRun:    runCfg.DryRun,
		})
	}

	var bar *progressbar.ProgressBar
	if !opts.verbose && !opts.dryRun && isTerminal(cmd.ErrOrStderr()) {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionSetDescription("Renaming"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	observer := func(r batch.FileResult) {
		if recorder != nil {
			recorder.Add(r)
		}
		if bar != nil {
			_ = bar.Add(1)
		}
		printResult(out, walker.Root(), r, opts.verbose)
	}

	start := time.Now()
	summary, runErr := batch.Run(cmd.Context(), runCfg, files, describer,
		batch.WithObserver(observer),
		batch.WithLogger(logger),
	)
	if bar != nil {
		_ = bar.Finish()
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, report.SummaryTable(summary))
	fmt.Fprintf(out, "Finished in %s\n", time.Since(start).Round(time.Millisecond))

	if recorder != nil {
		if err := report.Save(cfg.Run.Report, recorder.Finish(summary)); err != nil {
			return fmt.Errorf("failed to save report: %w", err)
		}
		fmt.Fprintf(out, "Report saved to: %s\n", cfg.Run.Report)
	}

	if runErr != nil {
		return fmt.Errorf("run interrupted: %w", runErr)
	}
	return nil
}

func printReview(w io.Writer, cfg *config.Config, runCfg batch.RunConfig) {
	rows := [][]string{
		{"Directory", runCfg.TargetDir},
		{"Provider", cfg.Provider.Name},
	}
	if baseURL := cfg.Provider.ResolvedBaseURL(); baseURL != "" {
		rows = append(rows, []string{"API base URL", baseURL})
	}
	rows = append(rows,
		[]string{"Model", runCfg.Describe.Model},
		[]string{"Temperature", strconv.FormatFloat(runCfg.Describe.Temperature, 'g', -1, 64)},
		[]string{"Max tokens", strconv.Itoa(runCfg.Describe.MaxTokens)},
		[]string{"Naming scheme", runCfg.Scheme.String()},
		[]string{"Prefix", runCfg.Prefix},
		[]string{"Skip processed", strconv.FormatBool(runCfg.DetectionEnabled())},
		[]string{"Dry run", strconv.FormatBool(runCfg.DryRun)},
		[]string{"Concurrency", strconv.Itoa(max(runCfg.Concurrency, 1))},
	)
	if len(cfg.Run.Exclude) > 0 {
		rows = append(rows, []string{"Exclude", strings.Join(cfg.Run.Exclude, ", ")})
	}
	if cfg.Run.Report != "" {
		rows = append(rows, []string{"Report", cfg.Run.Report})
	}
	fmt.Fprintln(w, report.Table([]string{"Setting", "Value"}, rows, nil))
}

func printWarnings(w io.Writer, runCfg batch.RunConfig) {
	switch {
	case runCfg.SkipProcessed && !runCfg.Scheme.SupportsDetection():
		fmt.Fprintf(w, "Warning: skip-processed cannot detect renamed files with the %s scheme; every image will be described again.\n", runCfg.Scheme)
	case !runCfg.SkipProcessed:
		fmt.Fprintln(w, "Warning: skip-processed is off; files renamed by an earlier run will be renamed again.")
	}
}

func printResult(w io.Writer, root string, r batch.FileResult, verbose bool) {
	name := relative(root, r.File.Path)
	switch {
	case r.Outcome.Kind == renamer.WouldRename:
		fmt.Fprintf(w, "[DRY RUN] Would rename '%s' to '%s'\n", name, relative(root, r.Outcome.To))
	case !verbose:
		return
	case r.State == batch.StateDone && r.Outcome.Kind == renamer.Renamed:
		fmt.Fprintf(w, "renamed     %s -> %s\n", name, relative(root, r.Outcome.To))
	default:
		fmt.Fprintf(w, "%-11s %s: %s\n", r.State, name, r.Reason())
	}
}

func relative(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}

// isTerminal reports whether v is an *os.File attached to a terminal
func isTerminal(v any) bool {
	file, ok := v.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
