package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/lehigh-university-libraries/imgscan/internal/report"
	"github.com/spf13/cobra"
)

func newReportCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "report <file>",
		Short: "Render a saved run report",
		Long: `Render a report written by 'imgscan rename --report'.

Reports saved as .yaml, .json or .parquet can be printed as a text table,
JSON or CSV.`,
		Example: `  imgscan report run.yaml
  imgscan report run.parquet --format csv > run.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(report.Formats, format) {
				return fmt.Errorf("unsupported format: %s (supported: %s)", format, strings.Join(report.Formats, ", "))
			}

			r, err := report.Load(args[0])
			if err != nil {
				return fmt.Errorf("failed to load report: %w", err)
			}
			return report.Render(cmd.OutOrStdout(), r, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format (text, json, csv)")

	return cmd
}
