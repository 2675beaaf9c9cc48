package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// BranchInfo is the JSON shape of one branch in `skein branches` output.
type BranchInfo struct {
	Name   string `json:"name"`
	Parent string `json:"parent,omitempty"`
	Turn   int64  `json:"turn"`
	Tick   int64  `json:"tick"`
	Facts  int64  `json:"facts"`
}

// NewBranchesCommand creates the branches command.
func NewBranchesCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "branches",
		Short: "List the branch forest",
		Long: `List every branch in the database, parents before children,
with each branch's divergence point and fact count.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBranches(rootOpts, dbPath, cmd)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runBranches(opts *RootOptions, dbPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	st, err := openExisting(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	defs, err := st.ReadBranches(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read branches", err)
	}

	infos := make([]BranchInfo, 0, len(defs))
	lines := make([]string, 0, len(defs))
	for _, def := range defs {
		count, err := st.CountFacts(ctx, def.Name)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to count facts", err)
		}
		info := BranchInfo{Name: def.Name, Turn: def.Turn, Tick: def.Tick, Facts: count}
		if !def.IsRoot {
			info.Parent = def.Parent
		}
		infos = append(infos, info)

		if def.IsRoot {
			lines = append(lines, fmt.Sprintf("%s (root, %d facts)", def.Name, count))
		} else {
			lines = append(lines, fmt.Sprintf("%s <- %s@%d.%d (%d facts)",
				def.Name, def.Parent, def.Turn, def.Tick, count))
		}
	}

	return formatter.Lines(lines, infos)
}
