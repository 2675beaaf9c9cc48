package harness

import (
	"fmt"
	"log/slog"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/skeinworks/skein/internal/wire"
)

// RunWithGolden executes a scenario and compares its delta snapshot against
// a golden file under testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Golden files pin the canonical JSON form of the delta, so they also guard
// the wire encoding itself: a drift in canonical serialization fails every
// scenario at once.
func RunWithGolden(t *testing.T, sc *Scenario, log *slog.Logger) (*Result, error) {
	t.Helper()

	result, err := Run(sc, log)
	if err != nil {
		return nil, err
	}
	if result.Delta == nil {
		return nil, fmt.Errorf("scenario %s: no delta request, nothing to pin", sc.Name)
	}
	if err := AssertGolden(t, sc.Name, result.Delta); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares one delta against its golden file.
func AssertGolden(t *testing.T, name string, d *wire.Delta) error {
	t.Helper()

	data, err := wire.MarshalCanonical(d.ToCanonical())
	if err != nil {
		return fmt.Errorf("golden %s: %w", name, err)
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
