package wire

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainFact     = "skein/fact/v1"
	DomainKeyframe = "skein/keyframe/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// FactID computes the content-addressed ID of a fact. The ID is stable
// across restarts and replays: re-flushing the same fact dedupes on it.
//
// PlanID is intentionally EXCLUDED. A plan is scheduling bookkeeping, not
// part of what happened; committing a planned fact must not change its
// identity, or provenance links would break when a plan is kept.
func FactID(ref EntityRef, key, branch string, turn, tick int64, value Value, deleted bool) (string, error) {
	obj := Map{
		"ref":     ref.canonicalMap(),
		"key":     Str(key),
		"branch":  Str(branch),
		"turn":    Int(turn),
		"tick":    Int(tick),
		"deleted": Bool(deleted),
	}
	if !deleted {
		obj["value"] = value
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("FactID: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainFact, canonical), nil
}

// KeyframeID computes the content-addressed ID of a keyframe snapshot.
func KeyframeID(branch string, turn, tick int64, snapshot []byte) string {
	header, _ := MarshalCanonical(Map{
		"branch": Str(branch),
		"turn":   Int(turn),
		"tick":   Int(tick),
	})
	payload := make([]byte, 0, len(header)+1+len(snapshot))
	payload = append(payload, header...)
	payload = append(payload, 0x00)
	payload = append(payload, snapshot...)
	return hashWithDomain(DomainKeyframe, payload)
}
