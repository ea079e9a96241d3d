package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/msto63/ecsq/foundation/query"
	mdwast "github.com/msto63/ecsq/foundation/query/ast"
	mdwparser "github.com/msto63/ecsq/foundation/query/parser"
	"github.com/msto63/ecsq/internal/server"
	"github.com/msto63/ecsq/internal/shell"
	coreGrpc "github.com/msto63/ecsq/pkg/core/grpc"
	"github.com/msto63/ecsq/pkg/core/logging"
	"github.com/spf13/cobra"
)

var (
	queryRemote  string
	queryJSON    bool
	queryExplain bool
)

var queryCmd = &cobra.Command{
	Use:   "query <query>",
	Short: "Execute one query",
	Long: `Execute one query against the loaded world, or against a running
"ecsq serve" instance with --remote.

Examples:
  ecsq query "COUNT ENTITIES WHERE HAS(Position)"
  ecsq query --world world.yaml "SHOW ALL OF ENTITY 0:1"
  ecsq query --explain "SELECT ENTITIES WHERE HAS_ANY(Health, Sprite)"
  ecsq query --remote localhost:9310 "SELECT ENTITIES WHERE HAS(Health)"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryRemote, "remote", "r", "", "gRPC address of an ecsq server")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "print the result as JSON")
	queryCmd.Flags().BoolVar(&queryExplain, "explain", false, "print the parsed statement before the result")
}

// executor is satisfied by query.Engine and server.Executor
type executor interface {
	Execute(ctx context.Context, query string) (query.Status, *query.Result, error)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	input := strings.Join(args, " ")

	var (
		exec   executor
		engine *query.Engine
	)
	if queryRemote != "" {
		clientCfg := coreGrpc.DefaultClientConfig(queryRemote)
		clientCfg.Logger = logging.New("grpc-client")
		conn, err := coreGrpc.Dial(clientCfg)
		if err != nil {
			printError("failed to connect", err)
			return err
		}
		defer conn.Close()
		exec = server.Executor{Client: server.NewClient(conn)}

		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, clientCfg.Timeout)
		defer cancel()
	} else {
		var err error
		engine, _, _, err = newEngine(ctx)
		if err != nil {
			printError("failed to prepare engine", err)
			return err
		}
		exec = engine
	}

	out := cmd.OutOrStdout()
	if queryExplain && !queryJSON {
		explain(out, input, engine)
	}

	status, result, err := exec.Execute(ctx, input)

	if queryJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(struct {
			Status string        `json:"status"`
			Result *query.Result `json:"result,omitempty"`
			Error  string        `json:"error,omitempty"`
		}{Status: status.String(), Result: result, Error: errorText(err)}); encErr != nil {
			return encErr
		}
	} else {
		formatter := shell.Formatter{Styles: shell.NewStyles(out), MaxListed: appConfig.Shell.MaxListed}
		fmt.Fprint(out, formatter.Format(status, result, err))
	}

	if status != query.StatusSuccess {
		return fmt.Errorf("query failed: %s", status)
	}
	return nil
}

// explain prints the statement tree of input. Names the local world does
// not know are listed; remote queries are parsed with default limits.
func explain(out io.Writer, input string, engine *query.Engine) {
	var (
		stmt mdwast.Statement
		err  error
	)
	if engine != nil {
		stmt, err = engine.Parse(input)
	} else {
		stmt, err = mdwparser.Parse(input)
	}
	if err != nil {
		return
	}

	fmt.Fprint(out, query.Explain(stmt))
	if engine != nil {
		if unknown := engine.UnknownComponents(stmt); len(unknown) > 0 {
			fmt.Fprintf(out, "Unknown components: %s\n", strings.Join(unknown, ", "))
		}
	}
	fmt.Fprintln(out)
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
