// Package store provides SQLite-backed durable storage for the time-indexed
// graph store.
//
// The store implements an append-only log with:
//   - Branches: the branch forest (name, parent, divergence point)
//   - Facts: every recorded value or tombstone, one row per fact
//   - Keyframes: full-state snapshot blobs, a read accelerator only
//
// # Critical Patterns
//
// CP-1: Facts Are Ground Truth
//   - An engine is fully reconstructible from branches + facts alone
//   - Keyframes may be discarded or rebuilt freely
//
// CP-2: Logical Identity and Time
//   - All ordering uses (turn, tick) logical coordinates, NEVER timestamps
//   - Enables deterministic replay regardless of wall time
//
// CP-3: Idempotent Flush
//   - Every insert uses ON CONFLICT DO NOTHING keyed on content identity
//   - Re-flushing after a failed commit is always safe
//
// CP-4: Deterministic Query Results
//   - Fact queries order by turn ASC, tick ASC, id ASC COLLATE BINARY
//   - Ensures identical results across replays
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// All content-addressed IDs are computed via functions in internal/wire
// using RFC 8785 canonical JSON and SHA-256 with domain separation.
package store
