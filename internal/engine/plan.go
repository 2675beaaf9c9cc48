package engine

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/skeinworks/skein/internal/timeline"
)

// Plan is a scoped excursion of the time cursor. Facts recorded inside a
// plan are tagged with the plan's ID and constrained to the future: a plan
// may extend history but never contradict it (ErrPastWrite). Planned facts
// read back like any others (they are the default future) until the plan
// is deleted, which retracts exactly the facts it recorded.
type Plan struct {
	ID     string
	saved  timeline.Coord
	coords []timeline.Coord
}

// BeginPlan opens a plan at the cursor. Only one plan may be open at a
// time; nested plans are rejected with ErrPlanOpen.
func (e *Engine) BeginPlan() (*Plan, error) {
	if e.openPlan != nil {
		return nil, fmt.Errorf("begin plan: %w", ErrPlanOpen)
	}
	p := &Plan{ID: uuid.Must(uuid.NewV7()).String(), saved: e.cursor}
	e.openPlan = p
	e.plans[p.ID] = nil
	e.log.Debug("plan opened", "plan", p.ID, "at", e.cursor.String())
	return p, nil
}

// EndPlan closes the open plan and restores the cursor to where BeginPlan
// found it.
func (e *Engine) EndPlan() error {
	if e.openPlan == nil {
		return fmt.Errorf("end plan: no plan open")
	}
	p := e.openPlan
	e.openPlan = nil
	e.cursor = p.saved
	e.ticker.Reset(p.saved.Tick)
	e.log.Debug("plan closed", "plan", p.ID, "facts", len(p.coords))
	return nil
}

// Plan runs fn inside a plan scope. The cursor is restored on every exit,
// including when fn fails; the recorded facts stay either way, identified
// by the returned plan ID, and DeletePlan takes them back out.
func (e *Engine) Plan(fn func() error) (string, error) {
	p, err := e.BeginPlan()
	if err != nil {
		return "", err
	}
	fnErr := fn()
	if endErr := e.EndPlan(); endErr != nil {
		return p.ID, endErr
	}
	if fnErr != nil {
		return p.ID, fmt.Errorf("plan %s: %w", p.ID, fnErr)
	}
	return p.ID, nil
}

// DeletePlan retracts every fact a plan recorded, from the cache and the
// log together, drops the keyframes that baked any of those facts in, and
// recomputes the end of each touched branch from what remains. Facts the
// paradox rule already retracted are simply gone from the plan's ledger by
// then.
func (e *Engine) DeletePlan(id string) error {
	if e.openPlan != nil && e.openPlan.ID == id {
		return fmt.Errorf("delete plan %s: %w", id, ErrPlanOpen)
	}
	coords, ok := e.plans[id]
	if !ok {
		return fmt.Errorf("delete plan %s: %w", id, ErrNoSuchPlan)
	}
	// Earliest retracted time per branch: every keyframe at or after it
	// may have resolved through a planned fact.
	first := make(map[string]timeline.Time)
	for _, coord := range coords {
		rec, found := e.facts.removeExact(coord)
		if !found {
			return &CorruptionError{Op: "delete plan", At: coord,
				Detail: fmt.Sprintf("plan %s lists a fact absent from the log", id)}
		}
		sk := statKey{ref: rec.fact.Ref, key: rec.fact.Key}
		c := e.cacheFor(rec.fact.Ref, rec.fact.Key)
		if !c.removeExact(sk, coord) {
			return &CorruptionError{Op: "delete plan", Ref: rec.fact.Ref, Key: rec.fact.Key,
				At: coord, Detail: "fact present in log but absent from cache"}
		}
		if t, seen := first[coord.Branch]; !seen || coord.Time.Before(t) {
			first[coord.Branch] = coord.Time
		}
	}
	delete(e.plans, id)
	for branch, t := range first {
		e.dropKeyframes(branch, t)
		end, hasEnd := e.facts.latest(branch)
		if err := e.branches.ResetEnd(branch, end, hasEnd); err != nil {
			return fmt.Errorf("delete plan %s: %w", id, err)
		}
	}
	e.log.Info("plan deleted", "plan", id, "facts", len(coords))
	return nil
}

// PlanIDs returns the IDs of plans with facts still on the books.
func (e *Engine) PlanIDs() []string {
	ids := make([]string, 0, len(e.plans))
	for id := range e.plans {
		ids = append(ids, id)
	}
	return ids
}

// dropPlanCoord removes one coordinate from a plan's ledger after the
// paradox rule retracted the fact recorded there.
func (e *Engine) dropPlanCoord(id string, at timeline.Coord) {
	coords, ok := e.plans[id]
	if !ok {
		return
	}
	for i, c := range coords {
		if c == at {
			e.plans[id] = append(coords[:i], coords[i+1:]...)
			break
		}
	}
	if e.openPlan != nil && e.openPlan.ID == id {
		e.openPlan.coords = e.plans[id]
	}
}
