package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "imgscan",
		Short: "Rename images with keywords from a vision language model",
		Long: `imgscan renames image files using keywords generated by a vision-capable
language model.

Each image in a directory tree is sent to an OpenAI-compatible server (such as
LM Studio), Ollama or Google Gemini. The description is reduced to a filename
safe keyword and the file is renamed without ever overwriting another file.
Files renamed by an earlier run are recognized by their prefix and skipped.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ~/.config/imgscan/config.toml or ./imgscan.toml)")

	cmd.AddCommand(newRenameCmd(&configPath))
	cmd.AddCommand(newReportCmd())
	cmd.AddCommand(newConfigCmd(&configPath))

	return cmd
}
