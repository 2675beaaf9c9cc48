package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validRulebook = `
rules: {
	regrow: {
		entity: {domain: "node", graph: "forest", node: "oak"}
		triggers: ["isFelled"]
		prereqs: ["springtime"]
		actions: ["restore"]
	}
}
`

const incompleteRulebook = `
rules: {
	broken: {
		entity: {domain: "node", graph: "forest", node: "oak"}
		triggers: ["isFelled"]
		actions: []
	}
}
`

func writeRulebook(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.cue")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestValidateRulebook(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{writeRulebook(t, validRulebook)})

	require.NoError(t, cmd.Execute())
	out := buf.String()
	assert.Contains(t, out, "regrow")
	assert.Contains(t, out, "node:forest/oak")
	assert.Contains(t, out, "triggers=[isFelled]")
}

func TestValidateIncompleteRulebook(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{writeRulebook(t, incompleteRulebook)})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "rulebook is invalid")
}

func TestValidateMissingFile(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "missing.cue")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
