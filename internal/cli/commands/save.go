package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlsnip/internal/cli/output"
)

// SaveOptions holds options for the save command.
type SaveOptions struct {
	File    string
	NoInfer bool
}

// NewSaveCommand creates the save command.
func NewSaveCommand() *cobra.Command {
	opts := &SaveOptions{}

	cmd := &cobra.Command{
		Use:   "save <name> [SQL]",
		Short: "Save a query as a named snippet",
		Long: `Save a query as a named snippet that later queries can reference as a table.

Dependencies are the snippets the query reads from. Without --with they are
inferred from the table names in the query; pass --with to list them
explicitly, or --no-infer to save without dependencies.

The SQL is read from the arguments, from --file, or from stdin.`,
		Example: `  # Save a snippet
  sqlsnip save high_price "SELECT * FROM prices WHERE price > 10"

  # Build on it; high_price is detected as a dependency
  sqlsnip save top_high "SELECT * FROM high_price ORDER BY price DESC LIMIT 5"

  # Explicit dependencies
  sqlsnip save report --with high_price,low_price -f report.sql`,
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: completeSnippetNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSave(cmd, args, opts)
		},
	}

	cmd.Flags().StringSlice("with", nil, "Snippets the query depends on (comma-separated)")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Read SQL from file")
	cmd.Flags().BoolVar(&opts.NoInfer, "no-infer", false, "Do not infer dependencies from the query")
	_ = cmd.RegisterFlagCompletionFunc("with", completeSnippetNames)

	return cmd
}

func runSave(cmd *cobra.Command, args []string, opts *SaveOptions) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	name := args[0]
	query, err := readSQL(cmd, args[1:], opts.File)
	if err != nil {
		return err
	}

	sess, cleanup, err := cmdCtx.OpenSession(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := sess.Save(cmd.Context(), name, strings.TrimSpace(query), withFlag(cmd), !opts.NoInfer)
	if err != nil {
		return err
	}

	with := res.With
	if with == nil {
		with = []string{}
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(output.SaveOutput{Name: res.Name, With: with, Inferred: res.Inferred})
	default:
		r.Success(fmt.Sprintf("Saved snippet %s", res.Name))
		if len(with) > 0 {
			label := "with"
			if res.Inferred {
				label = "with (inferred)"
			}
			r.Muted(fmt.Sprintf("  %s: %s", label, strings.Join(with, ", ")))
		}
	}
	return nil
}
