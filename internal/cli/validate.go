package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skeinworks/skein/internal/rules"
)

// RuleInfo is the JSON shape of one rule in `skein validate` output.
type RuleInfo struct {
	Name     string   `json:"name"`
	Entity   string   `json:"entity"`
	Triggers []string `json:"triggers"`
	Prereqs  []string `json:"prereqs,omitempty"`
	Actions  []string `json:"actions"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <rulebook.cue>",
		Short: "Validate a CUE rulebook",
		Long: `Parse a CUE rulebook and check its structure: every rule must name
an entity, at least one trigger, and at least one action. Function name
resolution against a registry happens at run time; validate only checks
the shape.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRulebookValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runRulebookValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	src, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read rulebook", err)
	}

	loaded, err := rules.LoadRulebook(string(src))
	if err != nil {
		_ = formatter.Error("E_RULEBOOK", "rulebook is invalid", err.Error())
		return NewExitError(ExitFailure, "rulebook is invalid")
	}

	infos := make([]RuleInfo, 0, len(loaded))
	lines := make([]string, 0, len(loaded))
	for _, r := range loaded {
		infos = append(infos, RuleInfo{
			Name:     r.Name,
			Entity:   r.Entity.String(),
			Triggers: r.Triggers,
			Prereqs:  r.Prereqs,
			Actions:  r.Actions,
		})
		lines = append(lines, fmt.Sprintf("%s on %s: triggers=[%s] actions=[%s]",
			r.Name, r.Entity, strings.Join(r.Triggers, ","), strings.Join(r.Actions, ",")))
	}
	return formatter.Lines(lines, infos)
}
