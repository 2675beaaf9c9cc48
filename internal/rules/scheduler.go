package rules

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/skeinworks/skein/internal/engine"
	"github.com/skeinworks/skein/internal/timeline"
)

// Scheduler runs a rulebook against an engine, one turn at a time. It owns
// the only write loop: each RunTurn advances the engine's cursor and then
// evaluates every rule at the new turn, so all effects land as that turn's
// facts.
type Scheduler struct {
	eng   *engine.Engine
	reg   *Registry
	rules []Rule
	log   *slog.Logger
	turns *timeline.Ticker // counts executed turns, readable concurrently
}

// NewScheduler validates the rulebook against the registry and returns a
// scheduler.
func NewScheduler(eng *engine.Engine, reg *Registry, rules []Rule, log *slog.Logger) (*Scheduler, error) {
	if err := Validate(reg, rules); err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{eng: eng, reg: reg, rules: rules, log: log, turns: timeline.NewTicker()}, nil
}

// TurnsRun reports how many turns the scheduler has executed.
func (s *Scheduler) TurnsRun() int64 { return s.turns.Current() }

// RunTurn advances the engine one turn and evaluates every rule in name
// order: any firing trigger arms the rule, all prereqs must pass, then the
// actions run in listed order. A failing action aborts the turn with its
// error; already-applied actions stay recorded, like any other facts.
func (s *Scheduler) RunTurn(ctx context.Context) error {
	at, err := s.eng.AdvanceTurn()
	if err != nil {
		return fmt.Errorf("run turn: %w", err)
	}

	for _, rule := range s.rules {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run turn %d: %w", at.Turn, err)
		}
		fired, err := s.evaluate(rule)
		if err != nil {
			return fmt.Errorf("run turn %d: rule %q: %w", at.Turn, rule.Name, err)
		}
		if fired {
			s.log.Debug("rule fired", "rule", rule.Name, "entity", rule.Entity.String(), "turn", at.Turn)
		}
	}

	s.turns.Next()
	return nil
}

// RunTurns executes n consecutive turns, stopping at the first error.
func (s *Scheduler) RunTurns(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		if err := s.RunTurn(ctx); err != nil {
			return err
		}
	}
	return nil
}

// evaluate runs one rule at the current cursor, reporting whether its
// actions ran.
func (s *Scheduler) evaluate(rule Rule) (bool, error) {
	armed := false
	for _, name := range rule.Triggers {
		fn, err := s.reg.Trigger(name)
		if err != nil {
			return false, err
		}
		ok, err := fn(s.eng, rule.Entity)
		if err != nil {
			return false, fmt.Errorf("trigger %q: %w", name, err)
		}
		if ok {
			armed = true
			break
		}
	}
	if !armed {
		return false, nil
	}

	for _, name := range rule.Prereqs {
		fn, err := s.reg.Prereq(name)
		if err != nil {
			return false, err
		}
		ok, err := fn(s.eng, rule.Entity)
		if err != nil {
			return false, fmt.Errorf("prereq %q: %w", name, err)
		}
		if !ok {
			return false, nil
		}
	}

	for _, name := range rule.Actions {
		fn, err := s.reg.Action(name)
		if err != nil {
			return false, err
		}
		if err := fn(s.eng, rule.Entity); err != nil {
			return false, fmt.Errorf("action %q: %w", name, err)
		}
	}
	return true, nil
}
