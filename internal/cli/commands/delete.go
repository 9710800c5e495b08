package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/sqlsnip/internal/cli/output"
	"github.com/leapstack-labs/sqlsnip/internal/snippet"
)

func newDeleteCommand() *cobra.Command {
	var force, forceAll bool

	cmd := &cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a snippet",
		Long: `Delete a saved snippet.

A snippet other snippets depend on is not deleted unless one of:
  --force      delete only this snippet; dependents keep referring to it
  --force-all  delete this snippet and every snippet depending on it`,
		Example: `  sqlsnip snippets delete low_price
  sqlsnip snippets delete high_price --force-all`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeSnippetNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			r := cmdCtx.Renderer

			mode := snippet.DeleteRefuse
			switch {
			case forceAll:
				mode = snippet.DeleteCascade
			case force:
				mode = snippet.DeleteForce
			}

			sess, cleanup, err := cmdCtx.OpenSession(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := sess.Delete(cmd.Context(), args[0], mode)
			if err != nil {
				return err
			}

			switch r.EffectiveMode() {
			case output.ModeJSON:
				dependents := res.Dependents
				if dependents == nil {
					dependents = []string{}
				}
				return r.JSON(output.DeleteOutput{
					Name:       res.Name,
					Mode:       mode.String(),
					Deleted:    res.Deleted,
					Dependents: dependents,
					Message:    res.Message(),
				})
			case output.ModeMarkdown:
				r.Println(output.FormatKeyValue("Mode", cases.Title(language.English).String(mode.String())))
				r.Println(res.Message())
			default:
				r.Success(res.Message())
				if len(res.Dependents) > 0 {
					r.Warning(fmt.Sprintf("%d snippets still reference %s", len(res.Dependents), res.Name))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Delete only this snippet, even if others depend on it")
	cmd.Flags().BoolVar(&forceAll, "force-all", false, "Delete this snippet and all its dependents")
	cmd.MarkFlagsMutuallyExclusive("force", "force-all")

	return cmd
}
