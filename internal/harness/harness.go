// Package harness runs declarative YAML scenarios against a fresh engine
// and validates point-in-time reads and delta snapshots. Scenarios double
// as executable documentation of the store's time semantics; delta
// snapshots are pinned by golden files under testdata/golden.
package harness

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/skeinworks/skein/internal/engine"
	"github.com/skeinworks/skein/internal/timeline"
	"github.com/skeinworks/skein/internal/wire"
)

// Result carries the engine a scenario produced plus any check failures.
type Result struct {
	Engine   *engine.Engine
	Failures []string
	Delta    *wire.Delta
}

// Passed reports whether every check held.
func (r *Result) Passed() bool { return len(r.Failures) == 0 }

// Run executes a scenario against a fresh engine and evaluates its checks.
// Each scenario runs in isolation; nothing is persisted.
func Run(sc *Scenario, log *slog.Logger) (*Result, error) {
	if log == nil {
		log = slog.Default()
	}
	eng := engine.New(engine.WithLogger(log))
	for i, step := range sc.Steps {
		if err := apply(eng, step); err != nil {
			return nil, fmt.Errorf("scenario %s: step %d: %w", sc.Name, i+1, err)
		}
	}

	res := &Result{Engine: eng}
	for _, check := range sc.Checks {
		if msg := evaluate(eng, check); msg != "" {
			res.Failures = append(res.Failures, msg)
		}
	}

	if sc.Delta != nil {
		d, err := eng.Delta(sc.Delta.Branch,
			timeline.Time{Turn: sc.Delta.From.Turn, Tick: sc.Delta.From.Tick},
			timeline.Time{Turn: sc.Delta.To.Turn, Tick: sc.Delta.To.Tick})
		if err != nil {
			return nil, fmt.Errorf("scenario %s: delta: %w", sc.Name, err)
		}
		res.Delta = d
	}
	return res, nil
}

func apply(eng *engine.Engine, step Step) error {
	switch {
	case step.AddGraph != "":
		return eng.AddGraph(step.AddGraph)
	case step.DelGraph != "":
		return eng.DelGraph(step.DelGraph)
	case step.AddNode != nil:
		return eng.AddNode(step.AddNode.Graph, step.AddNode.Node)
	case step.DelNode != nil:
		return eng.DelNode(step.DelNode.Graph, step.DelNode.Node)
	case step.AddEdge != nil:
		return eng.AddEdge(step.AddEdge.Graph, step.AddEdge.Orig, step.AddEdge.Dest)
	case step.DelEdge != nil:
		return eng.DelEdge(step.DelEdge.Graph, step.DelEdge.Orig, step.DelEdge.Dest)
	case step.Set != nil:
		ref, err := step.Set.Entity.Ref()
		if err != nil {
			return err
		}
		val, err := wire.FromAny(step.Set.Value)
		if err != nil {
			return fmt.Errorf("set %s[%s]: %w", ref, step.Set.Key, err)
		}
		return eng.SetStat(ref, step.Set.Key, val)
	case step.Del != nil:
		ref, err := step.Del.Entity.Ref()
		if err != nil {
			return err
		}
		return eng.DelStat(ref, step.Del.Key)
	case step.Advance > 0:
		for i := 0; i < step.Advance; i++ {
			if _, err := eng.AdvanceTurn(); err != nil {
				return err
			}
		}
		return nil
	case step.Branch != nil:
		if step.Branch.At == nil {
			return eng.CreateBranch(step.Branch.Name)
		}
		parent := step.Branch.Parent
		if parent == "" {
			parent = eng.CurrentTime().Branch
		}
		return eng.CreateBranchAt(step.Branch.Name, parent,
			timeline.Time{Turn: step.Branch.At.Turn, Tick: step.Branch.At.Tick})
	case step.Switch != "":
		return eng.SwitchBranch(step.Switch)
	case step.Seek != nil:
		branch := step.Seek.Branch
		if branch == "" {
			branch = eng.CurrentTime().Branch
		}
		return eng.SetTime(timeline.Coord{
			Branch: branch,
			Time:   timeline.Time{Turn: step.Seek.Turn, Tick: step.Seek.Tick},
		})
	case step.Snapshot:
		_, err := eng.Snapshot()
		return err
	default:
		return fmt.Errorf("empty step")
	}
}

// evaluate runs one check, returning a failure message or "".
func evaluate(eng *engine.Engine, check Check) string {
	ref, err := check.Entity.Ref()
	if err != nil {
		return err.Error()
	}
	branch := check.At.Branch
	if branch == "" {
		branch = eng.CurrentTime().Branch
	}
	at := timeline.Coord{Branch: branch, Time: timeline.Time{Turn: check.At.Turn, Tick: check.At.Tick}}

	v, err := eng.GetStatAt(ref, check.Key, at)
	switch {
	case check.Deleted:
		if !errors.Is(err, engine.ErrDeleted) {
			return fmt.Sprintf("%s[%s] at %s: want deleted, got value=%v err=%v", ref, check.Key, at, v, err)
		}
	case check.Unset:
		if !errors.Is(err, engine.ErrNotSet) || errors.Is(err, engine.ErrDeleted) {
			return fmt.Sprintf("%s[%s] at %s: want unset, got value=%v err=%v", ref, check.Key, at, v, err)
		}
	default:
		if err != nil {
			return fmt.Sprintf("%s[%s] at %s: %v", ref, check.Key, at, err)
		}
		want, convErr := wire.FromAny(check.Want)
		if convErr != nil {
			return fmt.Sprintf("%s[%s] at %s: bad expectation: %v", ref, check.Key, at, convErr)
		}
		if !wire.Equal(v, want) {
			return fmt.Sprintf("%s[%s] at %s: got %v, want %v", ref, check.Key, at, v, want)
		}
	}
	return ""
}
