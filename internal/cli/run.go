package cli

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/autonome/scratchpad/internal/store"
	"github.com/autonome/scratchpad/internal/todo"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Interval time.Duration
	Reset    bool
	Seed     int
}

func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drive the todo app from line commands",
		Long: `Start the todo app on a SQLite database and apply commands read from
standard input, one per line:

  add TEXT          add an item
  edit REF TEXT     replace an item's text
  toggle REF        flip an item's completed flag
  delete REF        remove an item
  filter NAME       show all, active or completed items
  show              list the visible items
  state             print the app state
  html              print the rendered page
  quit              stop reading

REF is an item id or a position in the last listed items, starting at 1.

Example:
  printf 'add milk\nshow\n' | rfsm run --db ./todo.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().DurationVar(&opts.Interval, "interval", todo.DefaultInterval, "maximum delay before changes are saved")
	cmd.Flags().BoolVar(&opts.Reset, "reset", false, "discard the stored record")
	cmd.Flags().IntVar(&opts.Seed, "seed", 0, "example items to add when the list is empty")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runApp(opts *RunOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	logger := opts.logger(cmd.ErrOrStderr())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger.Debug("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		_ = f.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	seed := make([]string, opts.Seed)
	for i := range seed {
		seed[i] = fmt.Sprintf("item %d", i)
	}

	app, err := todo.New(st,
		todo.WithLogger(logger),
		todo.WithInterval(opts.Interval),
		todo.WithReset(opts.Reset),
		todo.WithSeed(seed...),
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create app", err)
	}
	if err := app.Start(ctx); err != nil {
		_ = app.Close()
		_ = f.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to start app", err)
	}

	s := &session{app: app, f: f, listed: app.Visible()}
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		if !s.exec(ctx, scanner.Text()) {
			break
		}
	}

	if err := app.Close(); err != nil {
		return WrapExitError(ExitCommandError, "failed to save", err)
	}
	if err := scanner.Err(); err != nil {
		return WrapExitError(ExitCommandError, "failed to read commands", err)
	}
	if s.failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d command(s) failed", s.failed))
	}
	return nil
}

type session struct {
	app    *todo.App
	f      *OutputFormatter
	listed []todo.Item
	failed int
}

// listedItem is one line of show output.
type listedItem struct {
	N         int    `json:"n"`
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// exec runs one command line. It returns false when the session should end.
func (s *session) exec(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return true
	}

	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	s.f.VerboseLog("> %s", line)

	switch verb {
	case "quit", "exit":
		return false
	case "show":
		s.show()
	case "state":
		if s.f.JSON() {
			_ = s.f.Success(map[string]string{"state": string(s.app.Current())})
		} else {
			fmt.Fprintln(s.f.Writer, s.app.Current())
		}
	case "html":
		out, err := s.app.HTML()
		if err != nil {
			s.fail(ErrCodeGeneric, err)
			break
		}
		_ = s.f.Success(out)
	case "add":
		s.dispatch(ctx, todo.ActionAddItem, todo.AddItem{Text: rest})
	case "edit":
		ref, text, ok := strings.Cut(rest, " ")
		if !ok {
			s.usage("edit REF TEXT")
			break
		}
		s.dispatch(ctx, todo.ActionUpdateItem, todo.UpdateItem{ID: s.resolve(ref), Text: text})
	case "toggle":
		s.dispatch(ctx, todo.ActionToggleItem, todo.ItemRef{ID: s.resolve(rest)})
	case "delete":
		s.dispatch(ctx, todo.ActionDeleteItem, todo.ItemRef{ID: s.resolve(rest)})
	case "filter":
		s.dispatch(ctx, todo.ActionSetFilter, todo.SetFilter{Filter: todo.Filter(rest)})
	default:
		s.failed++
		_ = s.f.Error(ErrCodeUnknownCommand, fmt.Sprintf("unknown command %q", verb), nil)
	}
	return true
}

func (s *session) dispatch(ctx context.Context, name string, props any) {
	if err := s.app.Dispatch(ctx, name, props); err != nil {
		s.fail(ErrCodeAction, err)
	}
}

func (s *session) show() {
	s.listed = s.app.Visible()

	out := make([]listedItem, len(s.listed))
	for i, it := range s.listed {
		out[i] = listedItem{N: i + 1, ID: it.ID, Text: it.Text, Completed: it.Completed}
	}

	if s.f.JSON() {
		_ = s.f.Success(out)
		return
	}
	for _, it := range out {
		mark := " "
		if it.Completed {
			mark = "x"
		}
		fmt.Fprintf(s.f.Writer, "%d. [%s] %s (%s)\n", it.N, mark, it.Text, it.ID)
	}
}

// resolve maps a 1-based position in the last listing to an item id.
func (s *session) resolve(ref string) string {
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(s.listed) {
		return s.listed[n-1].ID
	}
	return ref
}

func (s *session) usage(form string) {
	s.failed++
	_ = s.f.Error(ErrCodeUsage, "usage: "+form, nil)
}

func (s *session) fail(code string, err error) {
	s.failed++
	_ = s.f.Error(code, err.Error(), nil)
}
