package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/autonome/scratchpad/fsm"
	"github.com/autonome/scratchpad/internal/schema"
	"github.com/autonome/scratchpad/internal/todo"
)

// ValidationResult is the outcome of validating one machine definition.
type ValidationResult struct {
	Valid       bool        `json:"valid"`
	Source      string      `json:"source"`
	Initial     fsm.State   `json:"initial"`
	States      int         `json:"states"`
	DeadEnds    []fsm.State `json:"dead_ends,omitempty"`
	Unreachable []fsm.State `json:"unreachable,omitempty"`
}

func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [machine.yaml]",
		Short: "Validate a state machine definition",
		Long: `Validate a state machine definition against the machine schema and
check that every transition target is a known state.

Dead-end and unreachable states are reported but do not fail validation.
Without an argument the todo app's own machine is validated.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}
}

func runValidate(opts *RootOptions, args []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	source, data := "embedded:todo", todo.MachineYAML()
	if len(args) == 1 {
		source = args[0]

		var err error
		data, err = os.ReadFile(source)
		if err != nil {
			_ = f.Error(ErrCodeNotFound, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to read machine definition", err)
		}
	}
	f.VerboseLog("Validating %s (%d bytes)", source, len(data))

	if err := schema.ValidateMachine(data); err != nil {
		_ = f.Error(ErrCodeInvalidSchema, err.Error(), nil)
		return WrapExitError(ExitFailure, "validation failed", err)
	}

	cfg, err := fsm.ParseConfig(data)
	if err != nil {
		_ = f.Error(ErrCodeInvalidMachine, err.Error(), nil)
		return WrapExitError(ExitFailure, "validation failed", err)
	}

	res := ValidationResult{
		Valid:       true,
		Source:      source,
		Initial:     cfg.Initial,
		States:      len(cfg.States),
		DeadEnds:    cfg.DeadEnds(),
		Unreachable: cfg.Unreachable(),
	}

	if f.JSON() {
		return f.Success(res)
	}

	fmt.Fprintf(f.Writer, "✓ %s valid: %d states, initial %s\n", res.Source, res.States, res.Initial)
	for _, s := range res.DeadEnds {
		fmt.Fprintf(f.Writer, "  warning: dead-end state %s\n", s)
	}
	for _, s := range res.Unreachable {
		fmt.Fprintf(f.Writer, "  warning: unreachable state %s\n", s)
	}
	return nil
}
