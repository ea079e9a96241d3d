package cmd

import (
	"github.com/msto63/ecsq/internal/shell"
	"github.com/msto63/ecsq/pkg/core/logging"
	"github.com/spf13/cobra"
)

var (
	shellPrompt    string
	shellNoHistory bool
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start the interactive query shell",
	Long: `Start a line-oriented shell with history and line editing.

Commands:
  <query>   - execute a query
  HELP      - show the query forms
  EXIT      - leave the shell (Ctrl+D works too)`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
	shellCmd.Flags().StringVar(&shellPrompt, "prompt", "", "prompt (default: [shell] prompt)")
	shellCmd.Flags().BoolVar(&shellNoHistory, "no-history", false, "do not record or persist history")
}

func runShell(cmd *cobra.Command, args []string) error {
	engine, _, source, err := newEngine(cmd.Context())
	if err != nil {
		printError("failed to prepare engine", err)
		return err
	}

	sh := shell.New(engine, shell.Config{
		Prompt:         appConfig.Shell.Prompt,
		HistoryFile:    appConfig.Shell.HistoryFile,
		HistoryEnabled: appConfig.Shell.HistoryEnabled(),
		MaxListed:      appConfig.Shell.MaxListed,
		Logger:         logging.New("shell").With("world", source),
		Output:         cmd.OutOrStdout(),
	})
	if shellPrompt != "" {
		sh.SetPrompt(shellPrompt)
	}
	if shellNoHistory {
		sh.SetHistoryEnabled(false)
	}

	return sh.Run(cmd.Context())
}
