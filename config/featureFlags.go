package config

import (
	"os"
	"strings"
)

// StrictTransitionEnforcement rejects any expense status transition not present in the
// transition table, even for admin users. This is the default; the escape hatch exists
// only for data-repair sessions driven by the ops tools.
//
// Set via env:
// - STRICT_TRANSITIONS=false to disable (admin-only repairs)
func StrictTransitionEnforcement() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("STRICT_TRANSITIONS")))
	if v == "" {
		return true
	}
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// HistoryChainVerification enables re-hashing the full history chain on every
// verification request instead of only the latest link.
//
// Set via env:
// - HISTORY_CHAIN_FULL_VERIFY=true
func HistoryChainVerification() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("HISTORY_CHAIN_FULL_VERIFY")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
