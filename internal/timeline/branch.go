package timeline

import (
	"errors"
	"fmt"
	"iter"
	"sort"
)

// Trunk is the name of the default root branch.
const Trunk = "trunk"

var (
	// ErrBranchExists is returned when creating a branch whose name is taken.
	ErrBranchExists = errors.New("branch already exists")

	// ErrInvalidDivergence is returned when a branch would diverge at a time
	// preceding its parent's own divergence from the parent's parent.
	ErrInvalidDivergence = errors.New("invalid divergence point")

	// ErrNoSuchBranch is returned for operations on unknown branches.
	ErrNoSuchBranch = errors.New("no such branch")
)

// branchRec is everything remembered about one branch: its parent (empty
// for roots), where it diverged, and the latest time ever written to it.
type branchRec struct {
	parent    string
	diverged  Time
	end       Time
	hasEnd    bool
	turnTicks map[int64]int64 // latest tick recorded per turn
}

// Branches is the branch forest. Not safe for concurrent mutation; the
// store's single writer owns it.
type Branches struct {
	recs map[string]*branchRec
}

// NewBranches creates a forest containing only the trunk root branch.
func NewBranches() *Branches {
	return &Branches{
		recs: map[string]*branchRec{
			Trunk: {turnTicks: make(map[int64]int64)},
		},
	}
}

// Create adds a child branch diverging from parent at the given time.
// Fails with ErrBranchExists if the name is taken, ErrNoSuchBranch if the
// parent is unknown, and ErrInvalidDivergence if the divergence point
// precedes the parent's own divergence.
func (b *Branches) Create(name, parent string, at Time) error {
	if _, ok := b.recs[name]; ok {
		return fmt.Errorf("create branch %q: %w", name, ErrBranchExists)
	}
	prec, ok := b.recs[parent]
	if !ok {
		return fmt.Errorf("create branch %q: parent %q: %w", name, parent, ErrNoSuchBranch)
	}
	if at.Turn < 0 || at.Tick < 0 {
		return fmt.Errorf("create branch %q at %v: %w", name, at, ErrInvalidDivergence)
	}
	if prec.parent != "" && at.Before(prec.diverged) {
		return fmt.Errorf("create branch %q at %v: parent %q begins at %v: %w",
			name, at, parent, prec.diverged, ErrInvalidDivergence)
	}
	b.recs[name] = &branchRec{
		parent:    parent,
		diverged:  at,
		turnTicks: make(map[int64]int64),
	}
	return nil
}

// CreateRoot adds a new root branch with no parent. Used when loading a
// store whose trunk was renamed, and by tests.
func (b *Branches) CreateRoot(name string) error {
	if _, ok := b.recs[name]; ok {
		return fmt.Errorf("create root branch %q: %w", name, ErrBranchExists)
	}
	b.recs[name] = &branchRec{turnTicks: make(map[int64]int64)}
	return nil
}

// Exists reports whether the branch is known.
func (b *Branches) Exists(name string) bool {
	_, ok := b.recs[name]
	return ok
}

// Parent returns the parent branch name, or "" for root branches.
func (b *Branches) Parent(name string) (string, error) {
	rec, ok := b.recs[name]
	if !ok {
		return "", fmt.Errorf("parent of %q: %w", name, ErrNoSuchBranch)
	}
	return rec.parent, nil
}

// DivergencePoint returns the time at which the branch split from its
// parent. For root branches it is the zero Time.
func (b *Branches) DivergencePoint(name string) (Time, error) {
	rec, ok := b.recs[name]
	if !ok {
		return Time{}, fmt.Errorf("divergence point of %q: %w", name, ErrNoSuchBranch)
	}
	return rec.diverged, nil
}

// IsAncestor reports whether a lies on the path from b2 to its root.
// The relation is reflexive: IsAncestor(x, x) is true. Unknown branches
// are nobody's ancestor and have none.
func (b *Branches) IsAncestor(a, b2 string) bool {
	if _, ok := b.recs[a]; !ok {
		return false
	}
	cur := b2
	for {
		rec, ok := b.recs[cur]
		if !ok {
			return false
		}
		if cur == a {
			return true
		}
		if rec.parent == "" {
			return false
		}
		cur = rec.parent
	}
}

// Children returns the branches immediately descended from the given one,
// sorted for deterministic iteration.
func (b *Branches) Children(name string) []string {
	var out []string
	for child, rec := range b.recs {
		if rec.parent == name {
			out = append(out, child)
		}
	}
	sort.Strings(out)
	return out
}

// Names returns every known branch, roots first, each parent before its
// children, siblings sorted. The order is deterministic and safe for
// replaying facts branch by branch.
func (b *Branches) Names() []string {
	var roots []string
	for name, rec := range b.recs {
		if rec.parent == "" {
			roots = append(roots, name)
		}
	}
	sort.Strings(roots)
	var out []string
	queue := roots
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		out = append(out, name)
		queue = append(queue, b.Children(name)...)
	}
	return out
}

// NoteWrite records that a fact landed at the given coordinate, extending
// the branch's known end and its per-turn tick high-water mark.
func (b *Branches) NoteWrite(branch string, at Time) error {
	rec, ok := b.recs[branch]
	if !ok {
		return fmt.Errorf("note write in %q: %w", branch, ErrNoSuchBranch)
	}
	if !rec.hasEnd || at.After(rec.end) {
		rec.end = at
		rec.hasEnd = true
	}
	if at.Tick > rec.turnTicks[at.Turn] {
		rec.turnTicks[at.Turn] = at.Tick
	}
	return nil
}

// End returns the latest time ever written to the branch. ok is false when
// the branch has no local history.
func (b *Branches) End(branch string) (Time, bool) {
	rec, found := b.recs[branch]
	if !found {
		return Time{}, false
	}
	return rec.end, rec.hasEnd
}

// ResetEnd replaces the branch's known end outright. Used when retraction
// removes the facts that established the previous end; hasEnd false marks
// the branch as having no local history at all.
func (b *Branches) ResetEnd(branch string, at Time, hasEnd bool) error {
	rec, ok := b.recs[branch]
	if !ok {
		return fmt.Errorf("reset end of %q: %w", branch, ErrNoSuchBranch)
	}
	rec.end = at
	rec.hasEnd = hasEnd
	return nil
}

// TurnEnd returns the latest tick recorded in a specific turn of a branch.
func (b *Branches) TurnEnd(branch string, turn int64) int64 {
	rec, ok := b.recs[branch]
	if !ok {
		return 0
	}
	return rec.turnTicks[turn]
}

// WalkAncestry yields the given coordinate and then each ancestor branch,
// evaluated at the child's divergence point, or at the walk's current
// time if that is earlier. A branch inherits its parent's history up to
// where it split off, so a lookup that misses in the child continues in
// the parent as of the divergence; a lookup aimed before the divergence
// keeps its own earlier time, since the child has no history of its own
// back there at all.
func (b *Branches) WalkAncestry(c Coord) iter.Seq[Coord] {
	return func(yield func(Coord) bool) {
		cur := c
		if !yield(cur) {
			return
		}
		for {
			rec, ok := b.recs[cur.Branch]
			if !ok || rec.parent == "" {
				return
			}
			at := rec.diverged
			if cur.Time.Before(at) {
				at = cur.Time
			}
			cur = Coord{Branch: rec.parent, Time: at}
			if !yield(cur) {
				return
			}
		}
	}
}
