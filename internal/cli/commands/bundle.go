package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlsnip/internal/snippet"
	"github.com/leapstack-labs/sqlsnip/internal/snippetfile"
)

func newExportCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all snippets as a YAML bundle",
		Example: `  sqlsnip snippets export > snippets.yaml
  sqlsnip snippets export --file snippets.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)

			sess, cleanup, err := cmdCtx.OpenSession(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			var w io.Writer = cmd.OutOrStdout()
			if file != "" {
				f, err := os.Create(file)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", file, err)
				}
				defer func() { _ = f.Close() }()
				w = f
			}

			return sess.WithStore(func(store *snippet.Store) error {
				return snippetfile.Export(w, store)
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Write the bundle to a file instead of stdout")
	return cmd
}

func newImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import snippets from a YAML bundle",
		Long: `Import snippets from a bundle written by 'snippets export'. Use - to read
from stdin. Snippets with the same name are overwritten.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			r := cmdCtx.Renderer

			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", args[0], err)
				}
				defer func() { _ = f.Close() }()
				in = f
			}

			sess, cleanup, err := cmdCtx.OpenSession(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			var names []string
			if err := sess.WithStore(func(store *snippet.Store) error {
				names, err = snippetfile.Import(in, store)
				return err
			}); err != nil {
				return err
			}
			if err := sess.Persist(cmd.Context(), names...); err != nil {
				return err
			}

			r.Success(fmt.Sprintf("Imported %d snippets", len(names)))
			return nil
		},
	}
}
