package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_RequiresName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("steps:\n  - add_graph: g\n"), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
}

func TestLoadScenario_RequiresSteps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: empty\n"), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one step")
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

// TestScenarioFiles runs every scenario under testdata. Scenarios with a
// delta request are additionally pinned against their golden file.
func TestScenarioFiles(t *testing.T) {
	paths, err := filepath.Glob("testdata/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths, "no scenario files found")

	for _, path := range paths {
		sc, err := LoadScenario(path)
		require.NoError(t, err, path)

		t.Run(sc.Name, func(t *testing.T) {
			var result *Result
			if sc.Delta != nil {
				result, err = RunWithGolden(t, sc, nil)
			} else {
				result, err = Run(sc, nil)
			}
			require.NoError(t, err)
			for _, failure := range result.Failures {
				t.Error(failure)
			}
		})
	}
}

func TestRun_FailedCheckIsReported(t *testing.T) {
	sc := &Scenario{
		Name: "wrong_expectation",
		Steps: []Step{
			{AddGraph: "g"},
			{Set: &SetStep{
				Entity: EntitySpec{Domain: "graph", Graph: "g"},
				Key:    "color",
				Value:  "red",
			}},
		},
		Checks: []Check{{
			Entity: EntitySpec{Domain: "graph", Graph: "g"},
			Key:    "color",
			At:     TimeSpec{Turn: 0, Tick: 2},
			Want:   "blue",
		}},
	}

	result, err := Run(sc, nil)
	require.NoError(t, err)
	assert.False(t, result.Passed())
	require.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures[0], "color")
}

func TestRun_StepErrorNamesTheStep(t *testing.T) {
	sc := &Scenario{
		Name: "bad_step",
		Steps: []Step{
			{AddGraph: "g"},
			{AddNode: &NodeStep{Graph: "missing", Node: "x"}},
		},
	}

	_, err := Run(sc, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 2")
}
