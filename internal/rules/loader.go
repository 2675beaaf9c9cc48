package rules

import (
	"fmt"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/skeinworks/skein/internal/wire"
)

// Rule binds named functions to one entity. Triggers are disjunctive (any
// firing trigger arms the rule), prereqs conjunctive (all must pass), and
// actions run in listed order.
type Rule struct {
	Name     string
	Entity   wire.EntityRef
	Triggers []string
	Prereqs  []string
	Actions  []string
}

// LoadRulebook parses a CUE rulebook into rules, sorted by rule name for
// deterministic evaluation order.
//
// The expected shape:
//
//	rules: {
//		regrow: {
//			entity: {domain: "node", graph: "forest", node: "oak"}
//			triggers: ["isFelled"]
//			prereqs: ["seasonIsSpring"]
//			actions: ["restoreTree"]
//		}
//	}
func LoadRulebook(src string) ([]Rule, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile rulebook: %w", err)
	}

	rulesVal := v.LookupPath(cue.ParsePath("rules"))
	if !rulesVal.Exists() {
		return nil, fmt.Errorf("compile rulebook: no rules field")
	}

	iter, err := rulesVal.Fields()
	if err != nil {
		return nil, fmt.Errorf("compile rulebook: %w", err)
	}

	var out []Rule
	for iter.Next() {
		rule, err := parseRule(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	// CUE field iteration is already deterministic, but rule order is part
	// of the scheduler's replay contract, so pin it explicitly.
	slices.SortFunc(out, func(a, b Rule) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func parseRule(name string, v cue.Value) (Rule, error) {
	rule := Rule{Name: name}

	entity, err := parseEntity(name, v.LookupPath(cue.ParsePath("entity")))
	if err != nil {
		return Rule{}, err
	}
	rule.Entity = entity

	rule.Triggers, err = parseNameList(name, v, "triggers")
	if err != nil {
		return Rule{}, err
	}
	if len(rule.Triggers) == 0 {
		return Rule{}, fmt.Errorf("rule %q: at least one trigger is required", name)
	}
	rule.Prereqs, err = parseNameList(name, v, "prereqs")
	if err != nil {
		return Rule{}, err
	}
	rule.Actions, err = parseNameList(name, v, "actions")
	if err != nil {
		return Rule{}, err
	}
	if len(rule.Actions) == 0 {
		return Rule{}, fmt.Errorf("rule %q: at least one action is required", name)
	}
	return rule, nil
}

func parseEntity(rule string, v cue.Value) (wire.EntityRef, error) {
	if !v.Exists() {
		return wire.EntityRef{}, fmt.Errorf("rule %q: entity is required", rule)
	}
	field := func(name string) (string, error) {
		fv := v.LookupPath(cue.ParsePath(name))
		if !fv.Exists() {
			return "", nil
		}
		s, err := fv.String()
		if err != nil {
			return "", fmt.Errorf("rule %q: entity.%s: %w", rule, name, err)
		}
		return s, nil
	}

	var (
		ref wire.EntityRef
		err error
	)
	var domain string
	if domain, err = field("domain"); err != nil {
		return wire.EntityRef{}, err
	}
	ref.Domain = wire.Domain(domain)
	if ref.Graph, err = field("graph"); err != nil {
		return wire.EntityRef{}, err
	}
	if ref.Node, err = field("node"); err != nil {
		return wire.EntityRef{}, err
	}
	if ref.Orig, err = field("orig"); err != nil {
		return wire.EntityRef{}, err
	}
	if ref.Dest, err = field("dest"); err != nil {
		return wire.EntityRef{}, err
	}
	if !ref.Valid() {
		return wire.EntityRef{}, fmt.Errorf("rule %q: entity %s is incomplete for its domain", rule, ref)
	}
	return ref, nil
}

func parseNameList(rule string, v cue.Value, fieldName string) ([]string, error) {
	lv := v.LookupPath(cue.ParsePath(fieldName))
	if !lv.Exists() {
		return nil, nil
	}
	iter, err := lv.List()
	if err != nil {
		return nil, fmt.Errorf("rule %q: %s: %w", rule, fieldName, err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, fmt.Errorf("rule %q: %s: %w", rule, fieldName, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// Validate checks that every function a rule names is registered. Run at
// load time so a bad rulebook fails before the first turn, not during it.
func Validate(reg *Registry, rules []Rule) error {
	for _, rule := range rules {
		for _, name := range rule.Triggers {
			if _, err := reg.Trigger(name); err != nil {
				return fmt.Errorf("rule %q: %w", rule.Name, err)
			}
		}
		for _, name := range rule.Prereqs {
			if _, err := reg.Prereq(name); err != nil {
				return fmt.Errorf("rule %q: %w", rule.Name, err)
			}
		}
		for _, name := range rule.Actions {
			if _, err := reg.Action(name); err != nil {
				return fmt.Errorf("rule %q: %w", rule.Name, err)
			}
		}
	}
	return nil
}
