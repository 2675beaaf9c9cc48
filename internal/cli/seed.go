package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/skeinworks/skein/internal/harness"
	"github.com/skeinworks/skein/internal/store"
)

// SeedResult is the JSON shape of `skein seed` output.
type SeedResult struct {
	Scenario string   `json:"scenario"`
	Facts    int      `json:"facts"`
	Branches int      `json:"branches"`
	Failures []string `json:"failures,omitempty"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "seed <scenario.yaml>",
		Short: "Run a scenario and persist the resulting history",
		Long: `Run a scenario file against a fresh engine and flush the resulting
fact log, branches, and keyframes into a database. The database is
created if it does not exist; the flush is idempotent.

Example:
  skein seed --db world.db scenario.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(rootOpts, dbPath, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runSeed(opts *RootOptions, dbPath, scenarioPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	sc, err := harness.LoadScenario(scenarioPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	logLevel := slog.LevelWarn
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	result, err := harness.Run(sc, log)
	if err != nil {
		return WrapExitError(ExitCommandError, "scenario failed", err)
	}
	if !result.Passed() {
		_ = formatter.Error("E_CHECKS", fmt.Sprintf("scenario %s: %d checks failed", sc.Name, len(result.Failures)), result.Failures)
		return NewExitError(ExitFailure, "scenario checks failed")
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if err := st.FlushEngine(cmd.Context(), result.Engine); err != nil {
		return WrapExitError(ExitCommandError, "failed to flush engine", err)
	}

	res := SeedResult{
		Scenario: sc.Name,
		Facts:    len(result.Engine.AllFacts()),
		Branches: len(result.Engine.BranchDefs()),
	}
	if opts.Format == "json" {
		return formatter.Success(res)
	}
	return formatter.Success(fmt.Sprintf("seeded %s: %d facts across %d branches -> %s",
		res.Scenario, res.Facts, res.Branches, dbPath))
}
