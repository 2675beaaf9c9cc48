// Package wire defines the value and record types that cross the store's
// boundaries: the sealed stat Value family, entity references, facts,
// deltas, and keyframe snapshots.
//
// # Critical Patterns
//
// Determinism over convenience:
//   - Stat values are a sealed type family with NO floats. Fact and
//     keyframe identity is a hash of canonical JSON, and float formatting
//     is not reproducible across platforms.
//   - All content-addressed IDs use RFC 8785 canonical JSON (UTF-16 key
//     ordering, NFC normalization, no HTML escaping) with SHA-256 and
//     domain separation.
//
// Logical identity and time:
//   - A fact's identity is (ref, key, branch, turn, tick, value|tombstone).
//     Re-appending an identical fact is a no-op everywhere, which is what
//     makes durable flushes safely retryable.
//   - Plan membership is excluded from fact identity; a committed plan
//     leaves no trace in the IDs it produced.
package wire
