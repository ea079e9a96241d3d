package cmd

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/msto63/ecsq/internal/tui"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Start the interactive query console",
	Long: `Start the terminal user interface.

Views:
  Query     - run queries, results scroll above the input
  Schema    - registered component types
  Status    - world statistics and session counters

Navigation:
  Tab       - switch views
  Enter     - run query
  Up/Down   - query history
  Ctrl+L    - clear results
  Ctrl+C    - quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	engine, reg, source, err := newEngine(ctx)
	if err != nil {
		printError("failed to prepare engine", err)
		return err
	}

	p := tea.NewProgram(
		tui.NewModel(ctx, engine, tui.Options{
			Registry:  reg,
			Source:    source,
			MaxListed: appConfig.Shell.MaxListed,
			Timeout:   appConfig.Batch.Timeout.Duration,
		}),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		return err
	}

	return nil
}
