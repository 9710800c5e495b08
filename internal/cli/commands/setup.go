package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/leapstack-labs/sqlsnip/internal/cli/config"
	"github.com/leapstack-labs/sqlsnip/internal/cli/output"
	"github.com/leapstack-labs/sqlsnip/internal/session"
	"github.com/leapstack-labs/sqlsnip/internal/snippetfile"
	"github.com/leapstack-labs/sqlsnip/internal/state"
	"github.com/leapstack-labs/sqlsnip/pkg/adapter"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded configuration.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// getConfig returns the loaded configuration, or defaults when none was
// loaded (commands run outside the root command in tests).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return &config.Config{
		SnippetsDir:  config.DefaultSnippetsDir,
		StatePath:    config.DefaultStateFile,
		Backend:      config.DefaultBackend,
		OutputFormat: config.DefaultOutput,
		RowLimit:     config.DefaultRowLimit,
	}
}

// OpenSession opens a session on the configured backend. With connect set
// the configured target is connected too. The returned cleanup closes the
// session and must be called.
func (c *CommandContext) OpenSession(ctx context.Context, connect bool) (*session.Session, func(), error) {
	backend, err := c.backend()
	if err != nil {
		return nil, nil, err
	}

	opts := session.Options{
		Logger:   c.Logger,
		Backend:  backend,
		Dialect:  c.Cfg.DialectName(),
		RowLimit: c.Cfg.RowLimit,
	}
	if connect && c.Cfg.Target != nil {
		a, err := adapter.NewAdapter(c.Cfg.Target.AdapterConfig(), c.Logger)
		if err != nil {
			if closer, ok := backend.(io.Closer); ok {
				_ = closer.Close()
			}
			return nil, nil, err
		}
		opts.Adapter = a
		opts.AdapterConfig = c.Cfg.Target.AdapterConfig()
	}

	sess := session.New(opts)
	if err := sess.Open(ctx); err != nil {
		_ = sess.Close()
		return nil, nil, err
	}
	cleanup := func() {
		if err := sess.Close(); err != nil {
			c.Logger.Warn("failed to close session", "error", err)
		}
	}
	return sess, cleanup, nil
}

func (c *CommandContext) backend() (session.Backend, error) {
	switch c.Cfg.Backend {
	case config.BackendNone:
		return nil, nil
	case config.BackendSQLite:
		store := state.NewSQLiteStore(c.Logger)
		if err := store.Open(c.Cfg.StatePath); err != nil {
			return nil, fmt.Errorf("failed to open state database: %w", err)
		}
		return store, nil
	default:
		return c.snippetDir(), nil
	}
}

func (c *CommandContext) snippetDir() *snippetfile.Dir {
	return snippetfile.NewDir(afero.NewOsFs(), c.Cfg.SnippetsDir, c.Logger)
}

// readSQL returns the query from args, the file flag or piped stdin, in
// that order.
func readSQL(cmd *cobra.Command, args []string, file string) (string, error) {
	switch {
	case len(args) > 0:
		return strings.Join(args, " "), nil
	case file != "":
		content, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
		return string(content), nil
	case !isTerminal(cmd.InOrStdin()):
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		if strings.TrimSpace(string(content)) != "" {
			return string(content), nil
		}
	}
	return "", fmt.Errorf("no SQL given: pass it as an argument, with --file, or on stdin")
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// withFlag returns the --with list, or nil when the flag was not given so
// that dependencies are inferred.
func withFlag(cmd *cobra.Command) []string {
	if !cmd.Flags().Changed("with") {
		return nil
	}
	with, _ := cmd.Flags().GetStringSlice("with")
	names := make([]string, 0, len(with))
	for _, w := range with {
		if w = strings.TrimSpace(w); w != "" {
			names = append(names, w)
		}
	}
	return names
}

// completeSnippetNames offers stored snippet names for shell completion.
func completeSnippetNames(cmd *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cmdCtx := NewCommandContext(cmd)
	sess, cleanup, err := cmdCtx.OpenSession(cmd.Context(), false)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer cleanup()

	var names []string
	for _, name := range sess.Names() {
		if strings.HasPrefix(name, toComplete) {
			names = append(names, name)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
