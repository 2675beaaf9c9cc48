package engine

import (
	"errors"
	"fmt"

	"github.com/skeinworks/skein/internal/timeline"
	"github.com/skeinworks/skein/internal/wire"
)

var (
	// ErrNotSet means the variable has no value at the queried time:
	// nothing was ever recorded for it on the queried branch or its
	// ancestry.
	ErrNotSet = errors.New("stat not set")

	// ErrDeleted means the variable had a value and was then tombstoned at
	// or before the queried time. It unwraps to ErrNotSet, so callers that
	// only care about "no value" can errors.Is(err, ErrNotSet); callers
	// that need to tell "never happened" from "happened and was undone"
	// check for ErrDeleted first.
	ErrDeleted = fmt.Errorf("stat deleted: %w", ErrNotSet)

	// ErrNoSuchEntity means the graph, node, or edge itself does not exist
	// at the queried time. Stronger than ErrNotSet and never conflated
	// with it.
	ErrNoSuchEntity = errors.New("no such entity")

	// ErrEntityExists is returned when creating an entity that already
	// exists at the current time.
	ErrEntityExists = errors.New("entity already exists")

	// ErrPastWrite is returned when a plan tries to write at a time that
	// already has recorded history. Plans extend history; they never
	// rewrite it.
	ErrPastWrite = errors.New("plan cannot write into recorded past")

	// ErrNoSuchPlan is returned when retracting an unknown plan.
	ErrNoSuchPlan = errors.New("no such plan")

	// ErrPlanOpen is returned when an operation is illegal while a plan is
	// in progress (such as creating a branch).
	ErrPlanOpen = errors.New("operation not permitted inside a plan")
)

// CorruptionError reports a disagreement between the point-in-time cache
// and the fact log. This is unreachable under correct operation; when it
// is detected, the operation that found it aborts rather than return a
// plausible-looking wrong answer. It is never silently recovered.
type CorruptionError struct {
	Op     string
	Ref    wire.EntityRef
	Key    string
	At     timeline.Coord
	Detail string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("cache/log divergence in %s at %s for %s[%s]: %s",
		e.Op, e.At, e.Ref, e.Key, e.Detail)
}

// IsCorruption reports whether err is a fatal cache/log divergence.
// Uses errors.As to handle wrapped errors.
func IsCorruption(err error) bool {
	var ce *CorruptionError
	return errors.As(err, &ce)
}
