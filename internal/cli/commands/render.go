package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlsnip/internal/cli/output"
)

// NewRenderCommand creates the render command.
func NewRenderCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "render [SQL]",
		Short: "Show a query composed with its snippets",
		Long: `Print the query exactly as it would be sent to the database: every snippet
it depends on, transitively, is prepended as a CTE in dependency order.

Without --with, the snippets are inferred from the tables the query reads.`,
		Example: `  sqlsnip render --with high_price "SELECT * FROM high_price"
  echo "SELECT * FROM top_high" | sqlsnip render`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			r := cmdCtx.Renderer

			query, err := readSQL(cmd, args, file)
			if err != nil {
				return err
			}

			sess, cleanup, err := cmdCtx.OpenSession(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			with := withFlag(cmd)
			if with == nil {
				with = sess.InferDependencies(query)
			}
			rendered, err := sess.Render(query, with)
			if err != nil {
				return err
			}

			if r.EffectiveMode() == output.ModeJSON {
				resolved, err := sess.Resolve(with)
				if err != nil {
					return err
				}
				return r.JSON(output.RenderOutput{Query: rendered, With: resolved})
			}
			r.Code(rendered)
			return nil
		},
	}

	cmd.Flags().StringSlice("with", nil, "Snippets to compose the query with (comma-separated)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read SQL from file")
	_ = cmd.RegisterFlagCompletionFunc("with", completeSnippetNames)

	return cmd
}
