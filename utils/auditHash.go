package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// AuditEntryFields is the canonical projection of a history row that is hashed.
// Field order is fixed by the struct; encoding/json emits struct fields in
// declaration order, so the serialization is deterministic.
type AuditEntryFields struct {
	ReferenceType  string `json:"reference_type"`
	ReferenceID    int    `json:"reference_id"`
	ActionType     string `json:"action_type"`
	PreviousStatus string `json:"previous_status"`
	NewStatus      string `json:"new_status"`
	UserID         int    `json:"user_id"`
	UserName       string `json:"user_name"`
	Notes          string `json:"notes"`
	CreatedAt      string `json:"created_at"`
}

// GenerateAuditHash fingerprints the immutable fields of a history entry.
// Timestamps are normalized to UTC RFC3339Nano so the hash does not depend on
// the server's timezone.
func GenerateAuditHash(entry AuditEntryFields) (string, error) {
	if entry.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, entry.CreatedAt); err == nil {
			entry.CreatedAt = t.UTC().Format(time.RFC3339Nano)
		}
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// GenerateChainHash folds the previous link's hash into the entry hash,
// producing a per-entity hash chain. The first link passes an empty previousHash.
func GenerateChainHash(entry AuditEntryFields, previousHash string) (string, error) {
	entryHash, err := GenerateAuditHash(entry)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(previousHash + "|" + entryHash))
	return hex.EncodeToString(sum[:]), nil
}

// VerifyChainHash recomputes one link of the chain and compares it with the
// stored hash.
func VerifyChainHash(entry AuditEntryFields, previousHash, expected string) (bool, error) {
	actual, err := GenerateChainHash(entry, previousHash)
	if err != nil {
		return false, err
	}
	return actual == expected, nil
}
