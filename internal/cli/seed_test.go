package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedScenario = `name: cli_seed
steps:
  - add_graph: g
  - add_node: {graph: g, node: A}
  - set:
      entity: {domain: node, graph: g, node: A}
      key: x
      value: 1
  - advance: 1
  - set:
      entity: {domain: node, graph: g, node: A}
      key: x
      value: 2
checks:
  - entity: {domain: node, graph: g, node: A}
    key: x
    at: {turn: 1, tick: 1}
    want: 2
`

// seedTestDB runs the seed command against a fresh temp database and
// returns the database path.
func seedTestDB(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "skein.db")
	scenarioPath := filepath.Join(tmpDir, "scenario.yaml")
	require.NoError(t, os.WriteFile(scenarioPath, []byte(seedScenario), 0o644))

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewSeedCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--db", dbPath, scenarioPath})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "seeded cli_seed")
	return dbPath
}

func TestSeedThenBranches(t *testing.T) {
	dbPath := seedTestDB(t)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewBranchesCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "trunk (root, 4 facts)")
}

func TestSeedThenLog(t *testing.T) {
	dbPath := seedTestDB(t)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewLogCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--branch", "trunk"})

	require.NoError(t, cmd.Execute())
	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 4)
	assert.Contains(t, out, "graph:g")
	assert.Contains(t, out, "created")
	assert.Contains(t, out, "x = 2")
}

func TestSeedThenVerify(t *testing.T) {
	dbPath := seedTestDB(t)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewVerifyCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "ok: 4 facts, 1 branches")
}

func TestSeedThenDelta(t *testing.T) {
	dbPath := seedTestDB(t)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewDeltaCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--branch", "trunk", "--from", "0.3", "--to", "1.1"})

	require.NoError(t, cmd.Execute())
	want := `{"branch":"trunk","from_tick":3,"from_turn":0,"graphs":{"g":{"nodes":{"A":{"stats":{"x":{"new":2,"old":1}}}}}},"to_tick":1,"to_turn":1}`
	assert.Equal(t, want+"\n", buf.String())
}

func TestSeedFailedChecksExitCode(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "skein.db")
	scenarioPath := filepath.Join(tmpDir, "scenario.yaml")
	bad := strings.Replace(seedScenario, "want: 2", "want: 99", 1)
	require.NoError(t, os.WriteFile(scenarioPath, []byte(bad), 0o644))

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewSeedCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--db", dbPath, scenarioPath})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "checks failed")
}

func TestSeedIdempotent(t *testing.T) {
	dbPath := seedTestDB(t)
	tmpDir := filepath.Dir(dbPath)
	scenarioPath := filepath.Join(tmpDir, "scenario.yaml")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewSeedCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, scenarioPath})
	require.NoError(t, cmd.Execute())

	verifyBuf := &bytes.Buffer{}
	verifyCmd := NewVerifyCommand(rootOpts)
	verifyCmd.SetOut(verifyBuf)
	verifyCmd.SetArgs([]string{"--db", dbPath})
	require.NoError(t, verifyCmd.Execute())
	assert.Contains(t, verifyBuf.String(), "ok: 4 facts")
}
