package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skeinworks/skein/internal/store"
	"github.com/skeinworks/skein/internal/timeline"
)

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// openExisting opens a database that must already exist. Inspection
// commands never create an empty database by accident.
func openExisting(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path), err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// parseTimeFlag parses a "turn.tick" coordinate, matching the format the
// CLI prints. A bare turn means tick 0.
func parseTimeFlag(s string) (timeline.Time, error) {
	turnStr, tickStr, hasTick := strings.Cut(s, ".")
	turn, err := strconv.ParseInt(turnStr, 10, 64)
	if err != nil {
		return timeline.Time{}, fmt.Errorf("invalid time %q: turn: %w", s, err)
	}
	var tick int64
	if hasTick {
		tick, err = strconv.ParseInt(tickStr, 10, 64)
		if err != nil {
			return timeline.Time{}, fmt.Errorf("invalid time %q: tick: %w", s, err)
		}
	}
	if turn < 0 || tick < 0 {
		return timeline.Time{}, fmt.Errorf("invalid time %q: negative coordinate", s)
	}
	return timeline.Time{Turn: turn, Tick: tick}, nil
}
