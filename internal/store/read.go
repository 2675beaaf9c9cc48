package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/skeinworks/skein/internal/engine"
	"github.com/skeinworks/skein/internal/wire"
)

// ReadBranches returns every stored branch definition.
// Parents sort before children by recursive walk, so the result can be
// replayed into an engine directly.
func (s *Store) ReadBranches(ctx context.Context) ([]engine.BranchDef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, parent, turn, tick
		FROM branches
		ORDER BY name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query branches: %w", err)
	}
	defer rows.Close()

	byName := make(map[string]engine.BranchDef)
	var names []string
	for rows.Next() {
		var (
			def    engine.BranchDef
			parent sql.NullString
		)
		if err := rows.Scan(&def.Name, &parent, &def.Turn, &def.Tick); err != nil {
			return nil, fmt.Errorf("scan branch: %w", err)
		}
		if parent.Valid {
			def.Parent = parent.String
		} else {
			def.IsRoot = true
		}
		byName[def.Name] = def
		names = append(names, def.Name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate branches: %w", err)
	}

	// Parents first.
	out := make([]engine.BranchDef, 0, len(byName))
	emitted := make(map[string]bool)
	var emit func(name string)
	emit = func(name string) {
		if emitted[name] {
			return
		}
		def, ok := byName[name]
		if !ok {
			return
		}
		emitted[name] = true
		if !def.IsRoot {
			emit(def.Parent)
		}
		out = append(out, def)
	}
	for _, name := range names {
		emit(name)
	}
	return out, nil
}

// ReadAllFacts returns the entire fact log with deterministic ordering
// per CP-4: ORDER BY branch, turn, tick ASC, id COLLATE BINARY.
//
// Returns an empty slice (not nil) if the log is empty.
func (s *Store) ReadAllFacts(ctx context.Context) ([]wire.Fact, error) {
	return s.readFacts(ctx, `
		SELECT id, branch, domain, graph, node, orig, dest, key, turn, tick, value, deleted, plan_id
		FROM facts
		ORDER BY branch COLLATE BINARY ASC, turn ASC, tick ASC, id COLLATE BINARY ASC
	`)
}

// ReadBranchFacts returns one branch's facts in time order.
func (s *Store) ReadBranchFacts(ctx context.Context, branch string) ([]wire.Fact, error) {
	return s.readFacts(ctx, `
		SELECT id, branch, domain, graph, node, orig, dest, key, turn, tick, value, deleted, plan_id
		FROM facts
		WHERE branch = ?
		ORDER BY turn ASC, tick ASC, id COLLATE BINARY ASC
	`, branch)
}

func (s *Store) readFacts(ctx context.Context, query string, args ...any) ([]wire.Fact, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	defer rows.Close()

	facts := []wire.Fact{}
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate facts: %w", err)
	}
	return facts, nil
}

func scanFact(rows *sql.Rows) (wire.Fact, error) {
	var (
		f      wire.Fact
		domain string
		value  sql.NullString
	)
	if err := rows.Scan(
		&f.ID, &f.Branch, &domain,
		&f.Ref.Graph, &f.Ref.Node, &f.Ref.Orig, &f.Ref.Dest,
		&f.Key, &f.Turn, &f.Tick, &value, &f.Deleted, &f.PlanID,
	); err != nil {
		return wire.Fact{}, fmt.Errorf("scan fact: %w", err)
	}
	f.Ref.Domain = wire.Domain(domain)
	if value.Valid {
		v, err := wire.UnmarshalValue([]byte(value.String))
		if err != nil {
			return wire.Fact{}, fmt.Errorf("scan fact %s: %w", f.ID, err)
		}
		f.Value = v
	}
	return f, nil
}

// ReadKeyframes returns every stored keyframe, decoded.
func (s *Store) ReadKeyframes(ctx context.Context) ([]*engine.Keyframe, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT branch, turn, tick, snapshot
		FROM keyframes
		ORDER BY branch COLLATE BINARY ASC, turn ASC, tick ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query keyframes: %w", err)
	}
	defer rows.Close()

	var out []*engine.Keyframe
	for rows.Next() {
		var (
			kf   engine.Keyframe
			blob []byte
		)
		if err := rows.Scan(&kf.Branch, &kf.At.Turn, &kf.At.Tick, &blob); err != nil {
			return nil, fmt.Errorf("scan keyframe: %w", err)
		}
		snap, err := wire.DecodeSnapshot(blob)
		if err != nil {
			return nil, fmt.Errorf("scan keyframe %s@%s: %w", kf.Branch, kf.At, err)
		}
		kf.Snap = snap
		out = append(out, &kf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keyframes: %w", err)
	}
	return out, nil
}

// CountFacts returns the number of facts on the log, optionally scoped to
// one branch (empty branch means all).
func (s *Store) CountFacts(ctx context.Context, branch string) (int64, error) {
	var (
		n   int64
		err error
	)
	if branch == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM facts`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM facts WHERE branch = ?`, branch).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count facts: %w", err)
	}
	return n, nil
}
