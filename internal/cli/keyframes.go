package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// KeyframeInfo is the JSON shape of one keyframe in `skein keyframes`.
type KeyframeInfo struct {
	Branch string `json:"branch"`
	Turn   int64  `json:"turn"`
	Tick   int64  `json:"tick"`
	Graphs int    `json:"graphs"`
}

// NewKeyframesCommand creates the keyframes command.
func NewKeyframesCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "keyframes",
		Short: "List keyframe snapshots",
		Long: `List every keyframe in the database. Keyframes are redundant
read accelerators: any of them can be deleted without losing state,
since the fact log alone reconstructs everything.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyframes(rootOpts, dbPath, cmd)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runKeyframes(opts *RootOptions, dbPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	st, err := openExisting(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	frames, err := st.ReadKeyframes(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read keyframes", err)
	}

	infos := make([]KeyframeInfo, 0, len(frames))
	lines := make([]string, 0, len(frames))
	for _, kf := range frames {
		infos = append(infos, KeyframeInfo{
			Branch: kf.Branch,
			Turn:   kf.At.Turn,
			Tick:   kf.At.Tick,
			Graphs: len(kf.Snap.Graphs),
		})
		lines = append(lines, fmt.Sprintf("%s@%d.%d (%d graphs)",
			kf.Branch, kf.At.Turn, kf.At.Tick, len(kf.Snap.Graphs)))
	}
	return formatter.Lines(lines, infos)
}
