package store

import (
	"context"
	"fmt"

	"github.com/skeinworks/skein/internal/engine"
)

// FlushEngine commits an engine's full state: branch forest, fact log, and
// keyframes. Every insert is idempotent (CP-3), so a failed flush is simply
// retried wholesale. Facts and keyframes the engine has since retracted
// (plan deletion, paradox resolution) are pruned so the durable log stays
// the mirror of the in-memory one.
func (s *Store) FlushEngine(ctx context.Context, e *engine.Engine) error {
	for _, def := range e.BranchDefs() {
		if err := s.WriteBranch(ctx, def); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
	}

	keep := make(map[string]bool)
	for _, f := range e.AllFacts() {
		if err := s.WriteFact(ctx, f); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
		keep[f.ID] = true
	}
	if err := s.pruneFacts(ctx, keep); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	keepKF := make(map[string]bool)
	for _, kf := range e.Keyframes() {
		if err := s.WriteKeyframe(ctx, kf); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
		keepKF[keyframeCoord(kf)] = true
	}
	if err := s.pruneKeyframes(ctx, keepKF); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// LoadEngine reconstructs an engine from durable storage. The fact log is
// authoritative; keyframes are loaded afterwards purely as accelerators
// (CP-1), and a database with zero keyframes loads identically.
func (s *Store) LoadEngine(ctx context.Context, opts ...engine.Option) (*engine.Engine, error) {
	branches, err := s.ReadBranches(ctx)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	facts, err := s.ReadAllFacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	keyframes, err := s.ReadKeyframes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	e := engine.New(opts...)
	if err := e.Load(branches, facts, keyframes); err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	return e, nil
}

// pruneFacts deletes stored facts whose IDs the engine no longer carries.
func (s *Store) pruneFacts(ctx context.Context, keep map[string]bool) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM facts`)
	if err != nil {
		return fmt.Errorf("query fact ids: %w", err)
	}
	defer rows.Close()

	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scan fact id: %w", err)
		}
		if !keep[id] {
			stale = append(stale, id)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate fact ids: %w", err)
	}

	for _, id := range stale {
		if err := s.DeleteFact(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// pruneKeyframes deletes stored keyframes at coordinates the engine no
// longer carries.
func (s *Store) pruneKeyframes(ctx context.Context, keep map[string]bool) error {
	rows, err := s.db.QueryContext(ctx, `SELECT branch, turn, tick FROM keyframes`)
	if err != nil {
		return fmt.Errorf("query keyframe coords: %w", err)
	}
	defer rows.Close()

	type coord struct {
		branch     string
		turn, tick int64
	}
	var stale []coord
	for rows.Next() {
		var c coord
		if err := rows.Scan(&c.branch, &c.turn, &c.tick); err != nil {
			return fmt.Errorf("scan keyframe coord: %w", err)
		}
		if !keep[fmt.Sprintf("%s@%d.%d", c.branch, c.turn, c.tick)] {
			stale = append(stale, c)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate keyframe coords: %w", err)
	}

	for _, c := range stale {
		if err := s.DeleteKeyframe(ctx, c.branch, c.turn, c.tick); err != nil {
			return err
		}
	}
	return nil
}

func keyframeCoord(kf *engine.Keyframe) string {
	return fmt.Sprintf("%s@%d.%d", kf.Branch, kf.At.Turn, kf.At.Tick)
}
