// Package rules implements the thin rule engine that drives the store turn
// by turn: named trigger, prereq, and action functions bound to entities by
// CUE rulebooks, evaluated by a scheduler that advances the time cursor.
package rules

import (
	"fmt"
	"sort"

	"github.com/skeinworks/skein/internal/engine"
	"github.com/skeinworks/skein/internal/wire"
)

// Trigger decides whether a rule should fire for an entity this turn.
type Trigger func(e *engine.Engine, ref wire.EntityRef) (bool, error)

// Prereq gates a triggered rule; all of a rule's prereqs must pass.
type Prereq func(e *engine.Engine, ref wire.EntityRef) (bool, error)

// Action applies a rule's effect by writing through the engine at the
// current cursor.
type Action func(e *engine.Engine, ref wire.EntityRef) error

// Registry resolves function names from rulebooks to Go functions. It is
// populated once at startup; rulebooks refer to functions by name only, so
// a stored rulebook stays valid across process restarts as long as the
// names keep their meaning.
type Registry struct {
	triggers map[string]Trigger
	prereqs  map[string]Prereq
	actions  map[string]Action
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		triggers: make(map[string]Trigger),
		prereqs:  make(map[string]Prereq),
		actions:  make(map[string]Action),
	}
}

// RegisterTrigger adds a named trigger. Re-registering a name fails.
func (r *Registry) RegisterTrigger(name string, fn Trigger) error {
	if _, ok := r.triggers[name]; ok {
		return fmt.Errorf("register trigger: %q already registered", name)
	}
	r.triggers[name] = fn
	return nil
}

// RegisterPrereq adds a named prereq. Re-registering a name fails.
func (r *Registry) RegisterPrereq(name string, fn Prereq) error {
	if _, ok := r.prereqs[name]; ok {
		return fmt.Errorf("register prereq: %q already registered", name)
	}
	r.prereqs[name] = fn
	return nil
}

// RegisterAction adds a named action. Re-registering a name fails.
func (r *Registry) RegisterAction(name string, fn Action) error {
	if _, ok := r.actions[name]; ok {
		return fmt.Errorf("register action: %q already registered", name)
	}
	r.actions[name] = fn
	return nil
}

// Trigger resolves a trigger by name.
func (r *Registry) Trigger(name string) (Trigger, error) {
	fn, ok := r.triggers[name]
	if !ok {
		return nil, fmt.Errorf("unknown trigger %q", name)
	}
	return fn, nil
}

// Prereq resolves a prereq by name.
func (r *Registry) Prereq(name string) (Prereq, error) {
	fn, ok := r.prereqs[name]
	if !ok {
		return nil, fmt.Errorf("unknown prereq %q", name)
	}
	return fn, nil
}

// Action resolves an action by name.
func (r *Registry) Action(name string) (Action, error) {
	fn, ok := r.actions[name]
	if !ok {
		return nil, fmt.Errorf("unknown action %q", name)
	}
	return fn, nil
}

// Names returns every registered function name by kind, sorted, for
// diagnostics.
func (r *Registry) Names() (triggers, prereqs, actions []string) {
	for name := range r.triggers {
		triggers = append(triggers, name)
	}
	for name := range r.prereqs {
		prereqs = append(prereqs, name)
	}
	for name := range r.actions {
		actions = append(actions, name)
	}
	sort.Strings(triggers)
	sort.Strings(prereqs)
	sort.Strings(actions)
	return triggers, prereqs, actions
}
