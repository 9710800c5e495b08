package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlsnip/internal/cli/output"
	"github.com/leapstack-labs/sqlsnip/internal/session"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	File  string
	Limit int
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run [SQL]",
		Short: "Run a query composed with its snippets",
		Long: `Compose a query with the snippets it depends on and run it on the configured
target database.

Without --with, the snippets are inferred from the tables the query reads.
When the database rejects the query, the error explains which snippet was
probably meant.`,
		Example: `  sqlsnip run "SELECT * FROM high_price"
  sqlsnip run --with high_price,low_price -f report.sql
  sqlsnip run --output json "SELECT count(*) FROM top_high"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args, opts)
		},
	}

	cmd.Flags().StringSlice("with", nil, "Snippets to compose the query with (comma-separated)")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Read SQL from file")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum rows to print (default from row_limit)")
	_ = cmd.RegisterFlagCompletionFunc("with", completeSnippetNames)

	return cmd
}

func runRun(cmd *cobra.Command, args []string, opts *RunOptions) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	query, err := readSQL(cmd, args, opts.File)
	if err != nil {
		return err
	}
	if cmdCtx.Cfg.Target == nil {
		return errors.Join(session.ErrNoConnection,
			errors.New("set target in sqlsnip.yaml or pass --database"))
	}
	if opts.Limit > 0 {
		cfg := *cmdCtx.Cfg
		cfg.RowLimit = opts.Limit
		cmdCtx.Cfg = &cfg
	}

	ctx := cmd.Context()
	if cmdCtx.Cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmdCtx.Cfg.QueryTimeout)
		defer cancel()
	}

	sess, cleanup, err := cmdCtx.OpenSession(ctx, true)
	if err != nil {
		return err
	}
	defer cleanup()

	with := withFlag(cmd)
	if with == nil {
		with = sess.InferDependencies(query)
	}

	res, err := sess.Run(ctx, query, with)
	if err != nil {
		return err
	}
	return renderRunResult(r, res)
}

func renderRunResult(r *output.Renderer, res *session.RunResult) error {
	if r.EffectiveMode() == output.ModeJSON {
		rows := make([]map[string]any, 0, len(res.Rows))
		for _, row := range res.Rows {
			m := make(map[string]any, len(res.Columns))
			for i, col := range res.Columns {
				m[col] = row[i]
			}
			rows = append(rows, m)
		}
		return r.JSON(output.QueryOutput{
			Query:     res.Query,
			Columns:   res.Columns,
			Rows:      rows,
			RowCount:  len(rows),
			Truncated: res.Truncated,
		})
	}

	r.Table(res.Columns, res.Rows)
	if res.Truncated {
		r.Warning("output truncated, raise --limit to see more rows")
	}
	return nil
}
