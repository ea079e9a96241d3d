package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/msto63/ecsq/foundation/query"
	"github.com/msto63/ecsq/internal/batch"
	"github.com/msto63/ecsq/internal/shell"
	"github.com/msto63/ecsq/pkg/core/logging"
	"github.com/spf13/cobra"
)

var (
	batchWorkers int
	batchQuiet   bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <script>",
	Short: "Run a query script concurrently",
	Long: `Run every query of a script against the loaded world on a worker
pool. The script holds one query per line; blank lines and lines starting
with # are skipped. Use - to read the script from stdin.

Outcomes are printed in script order followed by a summary. The command
fails when any query fails.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "worker count (default: [batch] workers)")
	batchCmd.Flags().BoolVarP(&batchQuiet, "quiet", "q", false, "print only the summary")
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var script io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			printError("failed to open script", err)
			return err
		}
		defer f.Close()
		script = f
	}

	engine, _, _, err := newEngine(ctx)
	if err != nil {
		printError("failed to prepare engine", err)
		return err
	}

	workers := batchWorkers
	if workers <= 0 {
		workers = appConfig.Batch.Workers
	}
	runner, err := batch.New(engine, batch.Config{
		Workers: workers,
		Timeout: appConfig.Batch.Timeout.Duration,
		Logger:  logging.New("batch"),
	})
	if err != nil {
		return err
	}
	defer runner.Release()

	outcomes, err := runner.RunScript(ctx, script)
	if err != nil {
		printError("batch aborted", err)
		return err
	}

	out := cmd.OutOrStdout()
	formatter := shell.Formatter{Styles: shell.NewStyles(out), MaxListed: appConfig.Shell.MaxListed}
	if !batchQuiet {
		for _, o := range outcomes {
			fmt.Fprintf(out, "[%d] %s (%s)\n", o.Query.Line, o.Query.Text, o.Duration)
			fmt.Fprint(out, formatter.Format(o.Status, o.Result, o.Err))
		}
		fmt.Fprintln(out)
	}

	summary := batch.Summarize(outcomes)
	fmt.Fprintf(out, "%d queries, %d succeeded, %d failed\n", summary.Total, summary.Succeeded(), summary.Failed())
	for _, status := range []query.Status{query.StatusParseError, query.StatusExecutionError, query.StatusInvalidInput} {
		if n := summary.ByStatus[status]; n > 0 {
			fmt.Fprintf(out, "  %-16s %d\n", status.String()+":", n)
		}
	}

	if summary.Failed() > 0 {
		return fmt.Errorf("%d of %d queries failed", summary.Failed(), summary.Total)
	}
	return nil
}
