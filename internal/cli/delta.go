package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/skeinworks/skein/internal/wire"
)

// NewDeltaCommand creates the delta command.
func NewDeltaCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		dbPath   string
		branch   string
		fromSpec string
		toSpec   string
	)

	cmd := &cobra.Command{
		Use:   "delta",
		Short: "Compute the net change between two coordinates",
		Long: `Compute the delta between two coordinates in one branch, folded
from the fact log. With --from after --to the delta is inverted: applying
it to the later state yields the earlier one.

Coordinates are written turn.tick; a bare turn means tick 0.

Example:
  skein delta --db world.db --branch trunk --from 0.3 --to 2.1`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelta(rootOpts, dbPath, branch, fromSpec, toSpec, cmd)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&branch, "branch", "trunk", "branch to fold over")
	cmd.Flags().StringVar(&fromSpec, "from", "", "window start, turn.tick (required)")
	cmd.Flags().StringVar(&toSpec, "to", "", "window end, turn.tick (required)")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func runDelta(opts *RootOptions, dbPath, branch, fromSpec, toSpec string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	from, err := parseTimeFlag(fromSpec)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --from", err)
	}
	to, err := parseTimeFlag(toSpec)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --to", err)
	}

	st, err := openExisting(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	formatter.VerboseLog("replaying fact log from %s", dbPath)
	eng, err := st.LoadEngine(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to replay fact log", err)
	}

	d, err := eng.Delta(branch, from, to)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compute delta", err)
	}

	// The canonical JSON form is the delta's wire contract; both output
	// formats carry it verbatim.
	data, err := wire.MarshalCanonical(d.ToCanonical())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to encode delta", err)
	}
	if opts.Format == "json" {
		return formatter.Success(json.RawMessage(data))
	}
	return formatter.Success(string(data))
}
