package cmd

import (
	"fmt"
	"strings"

	mdwparser "github.com/msto63/ecsq/foundation/query/parser"
	"github.com/spf13/cobra"
)

var tokensCmd = &cobra.Command{
	Use:   "tokens <query>",
	Short: "Print the tokens of a query",
	Long: `Print the token stream the parser sees, one token per line with its
position. Useful when a query fails to parse.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)
}

func runTokens(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	tokens, err := mdwparser.NewLexer(strings.Join(args, " ")).Tokenize()

	for _, tok := range tokens {
		fmt.Fprintf(out, "%3d:%-3d  %-12s %q\n", tok.Line, tok.Column, tok.Type, tok.Value)
	}
	return err
}
