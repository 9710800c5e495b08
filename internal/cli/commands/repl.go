package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlsnip/internal/cli/config"
	"github.com/leapstack-labs/sqlsnip/internal/cli/output"
	"github.com/leapstack-labs/sqlsnip/internal/session"
	"github.com/leapstack-labs/sqlsnip/internal/snippet"
)

const (
	replPrompt     = "sqlsnip> "
	replContinue   = "    ...> "
	replHistoryDir = ".sqlsnip"
)

// NewSessionCommand creates the interactive session command.
func NewSessionCommand() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Start an interactive snippet session",
		Long: `Start an interactive session. SQL statements end with a semicolon and run on
the configured target, composed with the snippets they read from. Without a
target the composed query is printed instead.

Backslash commands save, inspect and delete snippets; type \help.`,
		Example: `  sqlsnip session
  sqlsnip session --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSession(cmd, watch)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Reload snippet files edited outside the session")
	return cmd
}

// repl is one interactive session. It is driven by readline in a terminal
// and by exec in tests.
type repl struct {
	ctx  context.Context
	sess *session.Session
	r    *output.Renderer
	// with is the explicit with-list for statements; nil means infer.
	with []string
	// last is the previous complete statement, the one \save stores.
	last string
}

func runSession(cmd *cobra.Command, watch bool) error {
	cmdCtx := NewCommandContext(cmd)
	ctx := cmd.Context()

	sess, cleanup, err := cmdCtx.OpenSession(ctx, true)
	if err != nil {
		return err
	}
	defer cleanup()

	if (watch || cmdCtx.Cfg.Watch) && cmdCtx.Cfg.Backend == config.BackendFiles {
		err := sess.Watch(ctx, cmdCtx.snippetDir(), func(name string, _ bool, err error) {
			if err != nil {
				cmdCtx.Renderer.Warning(fmt.Sprintf("failed to reload %s: %v", name, err))
			}
		})
		if err != nil {
			return err
		}
	}

	historyFile := filepath.Join(cmdCtx.Cfg.ProjectRoot, replHistoryDir, "history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    newSnippetCompleter(sess),
		InterruptPrompt: "^C",
		EOFPrompt:       `\quit`,
		Stdin:           io.NopCloser(cmd.InOrStdin()),
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	r := cmdCtx.Renderer
	r.Printf("sqlsnip session %s (%d snippets)\n", sess.ID[:8], len(sess.Names()))
	r.Println(`Type \help for commands, \quit to exit`)
	r.Println("")

	rp := &repl{ctx: ctx, sess: sess, r: r}
	var buf strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buf.Reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if buf.Len() == 0 && strings.HasPrefix(line, `\`) {
			if quit := rp.command(line); quit {
				break
			}
			continue
		}

		// Accumulate multi-line SQL until semicolon
		buf.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			buf.WriteString("\n")
			rl.SetPrompt(replContinue)
			continue
		}
		rl.SetPrompt(replPrompt)

		rp.statement(buf.String())
		buf.Reset()
		r.Println("")
	}

	return nil
}

// statement runs one SQL statement, or prints it composed when there is no
// database connection.
func (rp *repl) statement(sql string) {
	sql = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(sql), ";"))
	rp.last = sql

	with := rp.with
	if with == nil {
		with = rp.sess.InferDependencies(sql)
	}

	res, err := rp.sess.Run(rp.ctx, sql, with)
	if errors.Is(err, session.ErrNoConnection) {
		rendered, rerr := rp.sess.Render(sql, with)
		if rerr != nil {
			rp.r.Error(rerr)
			return
		}
		rp.r.Code(rendered)
		return
	}
	if err != nil {
		rp.r.Error(err)
		return
	}
	if err := renderRunResult(rp.r, res); err != nil {
		rp.r.Error(err)
	}
}

// command handles a backslash command and reports whether to quit.
func (rp *repl) command(line string) bool {
	parts := strings.Fields(line)
	name, args := strings.ToLower(parts[0]), parts[1:]

	var err error
	switch name {
	case `\quit`, `\exit`, `\q`:
		return true
	case `\help`, `\?`:
		printSessionHelp(rp.r.Writer())
	case `\save`:
		err = rp.save(args)
	case `\render`:
		err = rp.render(args)
	case `\with`:
		rp.setWith(args)
	case `\delete`:
		err = rp.delete(args)
	case `\list`, `\l`:
		rp.list()
	case `\dependents`:
		err = rp.dependents(args)
	default:
		err = fmt.Errorf(`unknown command: %s (type \help for commands)`, name)
	}
	if err != nil {
		rp.r.Error(err)
	}
	return false
}

// save stores the previous statement: \save <name> [a,b].
func (rp *repl) save(args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return errors.New(`usage: \save <name> [with,list]`)
	}
	if rp.last == "" {
		return errors.New("nothing to save: run a statement first")
	}

	var with []string
	if len(args) == 2 {
		with = splitList(args[1])
	} else if rp.with != nil {
		with = rp.with
	}

	res, err := rp.sess.Save(rp.ctx, args[0], rp.last, with, true)
	if err != nil {
		return err
	}
	msg := "Saved snippet " + res.Name
	if len(res.With) > 0 {
		msg += " (with " + strings.Join(res.With, ", ") + ")"
	}
	rp.r.Success(msg)
	return nil
}

func (rp *repl) render(args []string) error {
	if len(args) != 1 {
		return errors.New(`usage: \render <name>`)
	}
	rendered, err := rp.sess.Compose(args[0])
	if err != nil {
		return err
	}
	rp.r.Code(rendered)
	return nil
}

func (rp *repl) setWith(args []string) {
	if len(args) == 0 {
		rp.with = nil
		rp.r.Muted("with: inferred from each statement")
		return
	}
	rp.with = splitList(strings.Join(args, ","))
	rp.r.Muted("with: " + strings.Join(rp.with, ", "))
}

func (rp *repl) delete(args []string) error {
	if len(args) == 0 {
		return errors.New(`usage: \delete <name> [--force|--force-all]`)
	}
	mode := snippet.DeleteRefuse
	for _, a := range args[1:] {
		switch a {
		case "--force":
			mode = snippet.DeleteForce
		case "--force-all":
			mode = snippet.DeleteCascade
		default:
			return fmt.Errorf("unknown flag %s", a)
		}
	}
	res, err := rp.sess.Delete(rp.ctx, args[0], mode)
	if err != nil {
		return err
	}
	rp.r.Success(res.Message())
	return nil
}

func (rp *repl) list() {
	names := rp.sess.Names()
	if len(names) == 0 {
		rp.r.Muted("No snippets saved yet.")
		return
	}
	for _, f := range rp.sess.Fragments() {
		line := f.Name
		if len(f.Dependencies) > 0 {
			line += " ← " + strings.Join(f.Dependencies, ", ")
		}
		rp.r.Println(line)
	}
}

func (rp *repl) dependents(args []string) error {
	if len(args) != 1 {
		return errors.New(`usage: \dependents <name>`)
	}
	deps, err := rp.sess.Dependents(args[0])
	if err != nil {
		return err
	}
	rp.r.Println(joinOrNone(deps))
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printSessionHelp(w io.Writer) {
	help := `
Commands:
  \save <name> [a,b]       Save the previous statement as a snippet
  \render <name>           Show a snippet composed with its dependencies
  \with [a,b]              Compose statements with these snippets (none: infer)
  \delete <name> [--force|--force-all]
                           Delete a snippet
  \dependents <name>       List snippets depending on a snippet
  \list                    List snippets
  \help                    Show this help message
  \quit                    Exit the session

Tips:
  - SQL statements must end with a semicolon (;)
  - Use arrow keys to navigate history
  - Tab completion works for snippet names
`
	_, _ = fmt.Fprintln(w, help)
}

// newSnippetCompleter completes backslash commands and snippet names.
func newSnippetCompleter(sess *session.Session) *readline.PrefixCompleter {
	names := func(string) []string { return sess.Names() }
	dynamic := readline.PcItemDynamic(names)

	return readline.NewPrefixCompleter(
		readline.PcItem(`\save`),
		readline.PcItem(`\render`, dynamic),
		readline.PcItem(`\with`, dynamic),
		readline.PcItem(`\delete`, dynamic),
		readline.PcItem(`\dependents`, dynamic),
		readline.PcItem(`\list`),
		readline.PcItem(`\help`),
		readline.PcItem(`\quit`),
		readline.PcItemDynamic(names),
	)
}
