package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlsnip/internal/cli/output"
	"github.com/leapstack-labs/sqlsnip/internal/dag"
)

func newGraphCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Show the snippet dependency graph",
		Long: `Display the dependency graph of all snippets.

Snippets are grouped by level: level 0 depends on no other snippet, and
every snippet sits one level above the deepest snippet it depends on.
Dependencies that name no saved snippet are listed as missing.`,
		Example: `  sqlsnip snippets graph
  sqlsnip snippets graph --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			r := cmdCtx.Renderer

			sess, cleanup, err := cmdCtx.OpenSession(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			graph := sess.Graph()
			levels, err := graph.Levels()
			if err != nil {
				return fmt.Errorf("failed to compute graph levels: %w", err)
			}

			switch r.EffectiveMode() {
			case output.ModeJSON:
				return graphJSON(r, graph, levels)
			case output.ModeMarkdown:
				graphMarkdown(r, graph, levels)
			default:
				graphText(r, graph, levels)
			}
			return nil
		},
	}
}

func graphText(r *output.Renderer, graph *dag.Graph, levels [][]string) {
	styles := r.Styles()
	r.Header(1, "Dependency Graph")

	for i, level := range levels {
		r.Println(styles.Header2.Render(fmt.Sprintf("Level %d:", i)))
		for _, name := range level {
			if node, _ := graph.Node(name); node != nil && node.Missing {
				r.Printf("  %s %s\n", styles.Missing.Render(name), styles.Muted.Render("(missing)"))
				continue
			}
			r.Printf("  %s\n", styles.Snippet.Render(name))
			if deps := graph.Dependencies(name); len(deps) > 0 {
				r.Printf("    %s %s\n", styles.Muted.Render("depends on:"), strings.Join(deps, ", "))
			}
			if used := graph.Dependents(name); len(used) > 0 {
				r.Printf("    %s %s\n", styles.Muted.Render("used by:"), strings.Join(used, ", "))
			}
		}
		r.Println("")
	}

	r.Printf("%s %s\n", styles.Muted.Render("roots: "), joinOrNone(graph.Roots()))
	r.Printf("%s %s\n", styles.Muted.Render("leaves:"), joinOrNone(graph.Leaves()))
	r.Println(styles.Muted.Render(fmt.Sprintf("Total: %d snippets, %d dependencies", graph.Len()-len(graph.Missing()), graph.EdgeCount())))
}

func graphMarkdown(r *output.Renderer, graph *dag.Graph, levels [][]string) {
	r.Header(1, "Dependency Graph")

	for i, level := range levels {
		levelName := fmt.Sprintf("Level %d", i)
		if i == 0 {
			levelName = "Level 0 (Roots)"
		}
		r.Println(output.FormatHeader(2, levelName))

		for _, name := range level {
			if node, _ := graph.Node(name); node != nil && node.Missing {
				r.Printf("- %s (missing)\n", name)
				continue
			}
			r.Printf("- %s\n", name)
			if deps := graph.Dependencies(name); len(deps) > 0 {
				r.Printf("  - depends on: %s\n", strings.Join(deps, ", "))
			}
			if used := graph.Dependents(name); len(used) > 0 {
				r.Printf("  - used by: %s\n", strings.Join(used, ", "))
			}
		}
		r.Println("")
	}

	r.Println(output.FormatHeader(2, "Summary"))
	r.Println(output.FormatKeyValue("Total Snippets", fmt.Sprintf("%d", graph.Len()-len(graph.Missing()))))
	r.Println(output.FormatKeyValue("Total Dependencies", fmt.Sprintf("%d", graph.EdgeCount())))
	r.Println(output.FormatKeyValue("Roots", joinOrNone(graph.Roots())))
	r.Println(output.FormatKeyValue("Leaves", joinOrNone(graph.Leaves())))
	if missing := graph.Missing(); len(missing) > 0 {
		r.Println(output.FormatKeyValue("Missing", strings.Join(missing, ", ")))
	}
}

func graphJSON(r *output.Renderer, graph *dag.Graph, levels [][]string) error {
	out := output.GraphOutput{
		Levels:     make([]output.GraphLevel, 0, len(levels)),
		Missing:    graph.Missing(),
		Roots:      nonNil(graph.Roots()),
		Leaves:     nonNil(graph.Leaves()),
		TotalNodes: graph.Len() - len(graph.Missing()),
		TotalEdges: graph.EdgeCount(),
	}
	if out.Missing == nil {
		out.Missing = []string{}
	}

	for i, level := range levels {
		gl := output.GraphLevel{Level: i, Snippets: make([]output.GraphNode, 0, len(level))}
		for _, name := range level {
			gl.Snippets = append(gl.Snippets, output.GraphNode{
				Name:      name,
				DependsOn: nonNil(graph.Dependencies(name)),
				UsedBy:    nonNil(graph.Dependents(name)),
			})
		}
		out.Levels = append(out.Levels, gl)
	}
	return r.JSON(out)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
