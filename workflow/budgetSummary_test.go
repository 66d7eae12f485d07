package workflow

import (
	"testing"

	"github.com/gracepoint/budget_backend/models"
	"github.com/shopspring/decimal"
)

func TestComputeMinistrySummary_Buckets(t *testing.T) {
	expenses := []*models.ExpenseRequest{
		{Status: models.ExpenseStatusDraft, Amount: dec("999")},
		{Status: models.ExpenseStatusPendingLeader, Amount: dec("100")},
		{Status: models.ExpenseStatusLeaderApproved, Amount: dec("200")},
		{Status: models.ExpenseStatusPendingTreasury, Amount: dec("300")},
		{Status: models.ExpenseStatusTreasuryApproved, Amount: dec("400")},
		{Status: models.ExpenseStatusPendingFinance, Amount: dec("500")},
		{Status: models.ExpenseStatusCompleted, Amount: dec("600")},
		{Status: models.ExpenseStatusLeaderDenied, Amount: dec("999")},
		{Status: models.ExpenseStatusCancelled, Amount: dec("999")},
	}
	summary := ComputeMinistrySummary(dec("10000"), expenses)

	if !summary.Pending.Equal(dec("600")) {
		t.Fatalf("pending: expected 600, got %s", summary.Pending)
	}
	if !summary.Approved.Equal(dec("900")) {
		t.Fatalf("approved: expected 900, got %s", summary.Approved)
	}
	if !summary.Spent.Equal(dec("600")) {
		t.Fatalf("spent: expected 600, got %s", summary.Spent)
	}
	// 10000 - 600 - 900 - 600
	if !summary.Remaining.Equal(dec("7900")) {
		t.Fatalf("remaining: expected 7900, got %s", summary.Remaining)
	}
}

func TestComputeMinistrySummary_RemainingNeverNegative(t *testing.T) {
	expenses := []*models.ExpenseRequest{
		{Status: models.ExpenseStatusCompleted, Amount: dec("9500")},
		{Status: models.ExpenseStatusPendingLeader, Amount: dec("600")},
	}
	summary := ComputeMinistrySummary(dec("10000"), expenses)

	if !summary.Remaining.IsZero() {
		t.Fatalf("expected remaining clamped to 0, got %s", summary.Remaining)
	}
	if summary.Remaining.IsNegative() {
		t.Fatal("remaining must never be negative")
	}
}

func TestComputeMinistrySummary_ZeroAllocation(t *testing.T) {
	summary := ComputeMinistrySummary(decimal.Zero, []*models.ExpenseRequest{
		{Status: models.ExpenseStatusCompleted, Amount: dec("50")},
	})

	if !summary.Remaining.IsZero() {
		t.Fatalf("expected remaining 0, got %s", summary.Remaining)
	}
	if !summary.UtilizationPct.IsZero() {
		t.Fatalf("expected utilization 0 with no allocation, got %s", summary.UtilizationPct)
	}
}

func TestComputeMinistrySummary_Utilization(t *testing.T) {
	summary := ComputeMinistrySummary(dec("10000"), []*models.ExpenseRequest{
		{Status: models.ExpenseStatusCompleted, Amount: dec("2500")},
	})
	if !summary.UtilizationPct.Equal(dec("25")) {
		t.Fatalf("expected 25%% utilization, got %s", summary.UtilizationPct)
	}
}
