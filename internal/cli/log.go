package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skeinworks/skein/internal/wire"
)

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		dbPath string
		branch string
	)

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Dump the fact log",
		Long: `Dump the fact log in replay order: branch, then turn, then tick.
The log is the ground truth of the store; every other structure is
derivable from it.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(rootOpts, dbPath, branch, cmd)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&branch, "branch", "", "restrict to one branch")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runLog(opts *RootOptions, dbPath, branch string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	st, err := openExisting(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	var facts []wire.Fact
	if branch == "" {
		facts, err = st.ReadAllFacts(ctx)
	} else {
		facts, err = st.ReadBranchFacts(ctx, branch)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read facts", err)
	}

	lines := make([]string, 0, len(facts))
	for _, f := range facts {
		lines = append(lines, formatFact(f))
	}
	return formatter.Lines(lines, facts)
}

func formatFact(f wire.Fact) string {
	at := fmt.Sprintf("%s@%d.%d", f.Branch, f.Turn, f.Tick)
	var change string
	switch {
	case f.Key == wire.ExistenceKey && f.Deleted:
		change = "destroyed"
	case f.Key == wire.ExistenceKey:
		change = "created"
	case f.Deleted:
		change = fmt.Sprintf("del %s", f.Key)
	default:
		change = fmt.Sprintf("%s = %v", f.Key, wire.ToAny(f.Value))
	}
	line := fmt.Sprintf("%-24s %-28s %s", at, f.Ref, change)
	if f.PlanID != "" {
		line += fmt.Sprintf("  [plan %s]", f.PlanID)
	}
	return line
}
