package models

import (
	"testing"
	"time"

	"github.com/gracepoint/budget_backend/utils"
)

func chainFixture(t *testing.T, notes []string) []*History {
	t.Helper()
	entries := make([]*History, 0, len(notes))
	previousHash := ""
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, n := range notes {
		h := &History{
			ID:             i + 1,
			OrganizationId: "church-main",
			ReferenceType:  ReferenceTypeExpenseRequest,
			ReferenceID:    42,
			ActionType:     "updated",
			Notes:          n,
			UserId:         7,
			UserName:       "Sarah Leader",
			PreviousHash:   previousHash,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		hash, err := utils.GenerateChainHash(h.hashFields(), previousHash)
		if err != nil {
			t.Fatalf("GenerateChainHash: %v", err)
		}
		h.EntryHash = hash
		previousHash = hash
		entries = append(entries, h)
	}
	return entries
}

func TestVerifyChainEntries_IntactChain(t *testing.T) {
	entries := chainFixture(t, []string{"created", "amount changed", "submitted"})
	for _, full := range []bool{false, true} {
		result, err := verifyChainEntries(ReferenceTypeExpenseRequest, 42, entries, full)
		if err != nil {
			t.Fatalf("verifyChainEntries(full=%v): %v", full, err)
		}
		if !result.Valid || result.Entries != 3 {
			t.Fatalf("intact chain reported invalid (full=%v): %+v", full, result)
		}
	}
}

func TestVerifyChainEntries_BrokenLink(t *testing.T) {
	entries := chainFixture(t, []string{"created", "submitted"})
	entries[1].PreviousHash = "0000"

	result, err := verifyChainEntries(ReferenceTypeExpenseRequest, 42, entries, false)
	if err != nil {
		t.Fatalf("verifyChainEntries: %v", err)
	}
	if result.Valid || result.BrokenAtID != entries[1].ID {
		t.Fatalf("broken link not detected: %+v", result)
	}
}

// Rewriting a middle entry without touching its stored hash keeps the link
// continuity intact; only a full re-hash walk catches it.
func TestVerifyChainEntries_FullVerifyCatchesRewrittenEntry(t *testing.T) {
	entries := chainFixture(t, []string{"created", "amount changed", "submitted"})
	entries[1].Notes = "amount quietly edited"

	fast, err := verifyChainEntries(ReferenceTypeExpenseRequest, 42, entries, false)
	if err != nil {
		t.Fatalf("verifyChainEntries: %v", err)
	}
	if !fast.Valid {
		t.Fatalf("latest-link pass should not rehash middle entries: %+v", fast)
	}

	full, err := verifyChainEntries(ReferenceTypeExpenseRequest, 42, entries, true)
	if err != nil {
		t.Fatalf("verifyChainEntries: %v", err)
	}
	if full.Valid || full.BrokenAtID != entries[1].ID || full.Reason != "entry hash mismatch" {
		t.Fatalf("full walk missed the rewritten entry: %+v", full)
	}
}

func TestVerifyChainEntries_LatestLinkTampering(t *testing.T) {
	entries := chainFixture(t, []string{"created", "submitted"})
	entries[1].Notes = "rewritten"

	result, err := verifyChainEntries(ReferenceTypeExpenseRequest, 42, entries, false)
	if err != nil {
		t.Fatalf("verifyChainEntries: %v", err)
	}
	if result.Valid || result.BrokenAtID != entries[1].ID {
		t.Fatalf("tampered latest entry not detected: %+v", result)
	}
}
