package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/autonome/scratchpad/reconcile"
)

type RenderOptions struct {
	*RootOptions
	Container string
	KeyAttr   string
}

// RenderResult is the final markup and the work it took to get there.
type RenderResult struct {
	HTML  string          `json:"html"`
	Stats reconcile.Stats `json:"stats"`
}

func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render <file>...",
		Short: "Reconcile markup files into one tree",
		Long: `Render each markup file, in order, into the same container with the
keyed reconciler, then print the resulting markup and mutation counts.

Example:
  rfsm render before.html after.html
  rfsm render --key-attr id --format json a.html b.html`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Container, "container", "div", "tag of the container element")
	cmd.Flags().StringVar(&opts.KeyAttr, "key-attr", reconcile.DefaultKeyAttr, "attribute holding node keys")

	return cmd
}

func runRender(opts *RenderOptions, files []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	r := reconcile.New(
		reconcile.WithKeyAttr(opts.KeyAttr),
		reconcile.WithLogger(opts.logger(cmd.ErrOrStderr())),
	)
	root := reconcile.NewContainer(opts.Container)

	for _, name := range files {
		data, err := os.ReadFile(name)
		if err != nil {
			_ = f.Error(ErrCodeNotFound, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to read markup", err)
		}

		before := r.Stats().Mutations()
		if err := r.Render(root, string(data)); err != nil {
			_ = f.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitFailure, "render failed", err)
		}
		f.VerboseLog("%s: %d mutations", name, r.Stats().Mutations()-before)
	}

	out, err := reconcile.Serialize(root)
	if err != nil {
		return WrapExitError(ExitFailure, "serialize failed", err)
	}
	res := RenderResult{HTML: out, Stats: r.Stats()}

	if f.JSON() {
		return f.Success(res)
	}

	s := res.Stats
	fmt.Fprintln(f.Writer, res.HTML)
	fmt.Fprintf(f.Writer, "renders=%d skips=%d inserts=%d moves=%d removes=%d attrs=%d text=%d\n",
		s.Renders, s.Skips, s.Inserts, s.Moves, s.Removes, s.AttrSets+s.AttrRemoves, s.TextUpdates)
	return nil
}
