package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/skeinworks/skein/internal/engine"
	"github.com/skeinworks/skein/internal/wire"
)

// WriteBranch inserts a branch record. Roots store a NULL parent.
// Uses ON CONFLICT(name) DO NOTHING for idempotency.
func (s *Store) WriteBranch(ctx context.Context, def engine.BranchDef) error {
	var parent sql.NullString
	if !def.IsRoot {
		parent = sql.NullString{String: def.Parent, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO branches (name, parent, turn, tick)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`, def.Name, parent, def.Turn, def.Tick)
	if err != nil {
		return fmt.Errorf("write branch %q: %w", def.Name, err)
	}
	return nil
}

// WriteFact inserts one fact into the append log.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - the ID is the fact's
// content hash, so duplicate flushes of the same fact are silently ignored.
//
// The value is serialized to canonical JSON per RFC 8785 for deterministic
// replay; tombstones store NULL.
func (s *Store) WriteFact(ctx context.Context, f wire.Fact) error {
	var value sql.NullString
	if !f.Deleted {
		data, err := wire.MarshalCanonical(f.Value)
		if err != nil {
			return fmt.Errorf("write fact %s: %w", f.ID, err)
		}
		value = sql.NullString{String: string(data), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO facts
		(id, branch, domain, graph, node, orig, dest, key, turn, tick, value, deleted, plan_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		f.ID,
		f.Branch,
		string(f.Ref.Domain),
		f.Ref.Graph,
		f.Ref.Node,
		f.Ref.Orig,
		f.Ref.Dest,
		f.Key,
		f.Turn,
		f.Tick,
		value,
		f.Deleted,
		f.PlanID,
	)
	if err != nil {
		return fmt.Errorf("write fact %s: %w", f.ID, err)
	}
	return nil
}

// DeleteFact removes one fact by its content-addressed ID. Retraction
// (plan deletion, paradox resolution) is the only path that ever deletes
// from the log.
func (s *Store) DeleteFact(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM facts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete fact %s: %w", id, err)
	}
	return nil
}

// DeletePlanFacts removes every fact recorded under a plan, returning how
// many rows were deleted.
func (s *Store) DeletePlanFacts(ctx context.Context, planID string) (int64, error) {
	if planID == "" {
		return 0, fmt.Errorf("delete plan facts: empty plan id")
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM facts WHERE plan_id = ?`, planID)
	if err != nil {
		return 0, fmt.Errorf("delete plan facts %s: %w", planID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete plan facts %s: %w", planID, err)
	}
	return n, nil
}

// WriteKeyframe stores one snapshot blob.
// Upserts on (branch, turn, tick): retraction can change what a coordinate
// resolves to, so a re-snapshot of the same coordinate replaces the blob.
func (s *Store) WriteKeyframe(ctx context.Context, kf *engine.Keyframe) error {
	blob, err := kf.Snap.Encode()
	if err != nil {
		return fmt.Errorf("write keyframe %s@%s: %w", kf.Branch, kf.At, err)
	}
	id := wire.KeyframeID(kf.Branch, kf.At.Turn, kf.At.Tick, blob)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO keyframes (id, branch, turn, tick, snapshot)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(branch, turn, tick) DO UPDATE SET
			id = excluded.id,
			snapshot = excluded.snapshot
	`, id, kf.Branch, kf.At.Turn, kf.At.Tick, blob)
	if err != nil {
		return fmt.Errorf("write keyframe %s@%s: %w", kf.Branch, kf.At, err)
	}
	return nil
}

// DeleteKeyframe removes one stored snapshot. Keyframes are a read
// accelerator; this is always safe.
func (s *Store) DeleteKeyframe(ctx context.Context, branch string, turn, tick int64) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM keyframes WHERE branch = ? AND turn = ? AND tick = ?
	`, branch, turn, tick)
	if err != nil {
		return fmt.Errorf("delete keyframe %s@(%d,%d): %w", branch, turn, tick, err)
	}
	return nil
}
