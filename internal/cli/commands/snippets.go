package commands

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlsnip/internal/cli/output"
	"github.com/leapstack-labs/sqlsnip/internal/dag"
	"github.com/leapstack-labs/sqlsnip/internal/snippet"
)

// NewSnippetsCommand creates the snippets command and its subcommands.
func NewSnippetsCommand() *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:     "snippets",
		Aliases: []string{"list", "ls"},
		Short:   "List and manage saved snippets",
		Long: `List saved snippets with their dependencies.

Output adapts to environment:
  - Terminal: Styled, colored output
  - Piped/Scripted: Markdown format (agent-friendly)

Use --output to override: auto, text, markdown, json`,
		Example: `  sqlsnip snippets
  sqlsnip snippets --filter price
  sqlsnip snippets --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, filter)
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "Fuzzy filter on snippet names")

	cmd.AddCommand(newShowCommand())
	cmd.AddCommand(newDeleteCommand())
	cmd.AddCommand(newDependentsCommand())
	cmd.AddCommand(newGraphCommand())
	cmd.AddCommand(newExportCommand())
	cmd.AddCommand(newImportCommand())

	return cmd
}

// filterNames returns the names matching pattern, best match first. An
// empty pattern keeps every name in order.
func filterNames(names []string, pattern string) []string {
	if pattern == "" {
		return names
	}
	matches := fuzzy.Find(pattern, names)
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Str
	}
	return out
}

func runList(cmd *cobra.Command, filter string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	sess, cleanup, err := cmdCtx.OpenSession(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer cleanup()

	fragments := make(map[string]snippet.Fragment)
	for _, f := range sess.Fragments() {
		fragments[f.Name] = f
	}
	graph := sess.Graph()
	names := filterNames(sess.Names(), filter)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		list := output.SnippetList{Snippets: make([]output.SnippetInfo, 0, len(names)), Total: len(names)}
		for _, name := range names {
			list.Snippets = append(list.Snippets, snippetInfo(fragments[name], graph))
		}
		return r.JSON(list)

	case output.ModeMarkdown:
		r.Header(1, fmt.Sprintf("Snippets (%d total)", len(names)))
		for _, name := range names {
			f := fragments[name]
			r.Println(output.FormatHeader(2, name))
			if len(f.Dependencies) > 0 {
				r.Println(output.FormatKeyValue("With", strings.Join(f.Dependencies, ", ")))
			}
			if used := graph.Dependents(name); len(used) > 0 {
				r.Println(output.FormatKeyValue("Used by", strings.Join(used, ", ")))
			}
			r.Println("")
		}

	default:
		styles := r.Styles()
		r.Header(1, fmt.Sprintf("Snippets (%d total)", len(names)))
		if len(names) == 0 {
			r.Muted("No snippets saved yet. Use 'sqlsnip save <name> <sql>' to create one.")
			return nil
		}
		for i, name := range names {
			line := fmt.Sprintf("%3d. %s", i+1, styles.Snippet.Render(name))
			if deps := fragments[name].Dependencies; len(deps) > 0 {
				line += " " + styles.Muted.Render("← "+strings.Join(deps, ", "))
			}
			r.Println(line)
		}
	}
	return nil
}

func snippetInfo(f snippet.Fragment, graph *dag.Graph) output.SnippetInfo {
	deps := f.Dependencies
	if deps == nil {
		deps = []string{}
	}
	used := graph.Dependents(f.Name)
	if used == nil {
		used = []string{}
	}
	return output.SnippetInfo{Name: f.Name, Dependencies: deps, Dependents: used, SQL: f.Body}
}

func newShowCommand() *cobra.Command {
	var rendered bool

	cmd := &cobra.Command{
		Use:               "show <name>",
		Short:             "Show a snippet's SQL and dependencies",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeSnippetNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			r := cmdCtx.Renderer

			sess, cleanup, err := cmdCtx.OpenSession(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			f, err := sess.Get(args[0])
			if err != nil {
				return err
			}
			graph := sess.Graph()
			info := snippetInfo(*f, graph)
			info.Upstream = nonNil(graph.Upstream(f.Name))
			info.Downstream = nonNil(slices.DeleteFunc(graph.Downstream(f.Name), func(n string) bool { return n == f.Name }))
			if rendered {
				if info.Rendered, err = sess.Compose(f.Name); err != nil {
					return err
				}
			}

			switch r.EffectiveMode() {
			case output.ModeJSON:
				return r.JSON(info)
			case output.ModeMarkdown:
				r.Header(1, info.Name)
				r.Println(output.FormatKeyValue("With", joinOrNone(info.Dependencies)))
				r.Println(output.FormatKeyValue("Used by", joinOrNone(info.Dependents)))
				r.Println(output.FormatKeyValue("Upstream", joinOrNone(info.Upstream)))
				r.Println(output.FormatKeyValue("Downstream", joinOrNone(info.Downstream)))
				r.Println("")
			default:
				styles := r.Styles()
				r.Header(1, info.Name)
				r.Printf("%s %s\n", styles.Muted.Render("with:      "), joinOrNone(info.Dependencies))
				r.Printf("%s %s\n", styles.Muted.Render("used by:   "), joinOrNone(info.Dependents))
				r.Printf("%s %s\n", styles.Muted.Render("upstream:  "), joinOrNone(info.Upstream))
				r.Printf("%s %s\n", styles.Muted.Render("downstream:"), joinOrNone(info.Downstream))
				r.Println("")
			}
			if rendered {
				r.Code(info.Rendered)
			} else {
				r.Code(info.SQL)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&rendered, "rendered", false, "Show the SQL composed with its dependencies")
	return cmd
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ", ")
}

func newDependentsCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "dependents <name>",
		Short:             "List snippets that depend on a snippet",
		Long:              `List every snippet that depends on the named snippet, directly or through other snippets.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeSnippetNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			r := cmdCtx.Renderer

			sess, cleanup, err := cmdCtx.OpenSession(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			dependents, err := sess.Dependents(args[0])
			if err != nil {
				return err
			}

			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(map[string]any{"name": args[0], "dependents": dependents})
			}
			if len(dependents) == 0 {
				r.Muted(fmt.Sprintf("No snippets depend on %s", args[0]))
				return nil
			}
			for _, d := range dependents {
				r.Println(d)
			}
			return nil
		},
	}
}
