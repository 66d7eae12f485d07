package workflow

import (
	"strings"
	"testing"

	"github.com/gracepoint/budget_backend/models"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func makeSummary(allocated, pending, approved, spent string) MinistrySummary {
	expenses := []*models.ExpenseRequest{
		{Status: models.ExpenseStatusPendingLeader, Amount: dec(pending)},
		{Status: models.ExpenseStatusPendingFinance, Amount: dec(approved)},
		{Status: models.ExpenseStatusCompleted, Amount: dec(spent)},
	}
	summary := ComputeMinistrySummary(dec(allocated), expenses)
	summary.MinistryId = 1
	summary.MinistryName = "Youth"
	return summary
}

func TestClassifySummary_NoAllocation_SingleAlert(t *testing.T) {
	summary := makeSummary("0", "200", "0", "0")
	alerts := ClassifySummary(summary, DefaultAlertThresholds())

	if len(alerts) != 1 {
		t.Fatalf("expected exactly 1 alert, got %d", len(alerts))
	}
	if alerts[0].Type != models.AlertTypeNoAllocation {
		t.Fatalf("expected no_allocation, got %s", alerts[0].Type)
	}
	if alerts[0].Severity != models.AlertSeverityWarning {
		t.Fatalf("expected warning severity, got %s", alerts[0].Severity)
	}
}

func TestClassifySummary_ExceededLimit_Overage(t *testing.T) {
	// allocated 10000, spent 9500, pending 600 -> usage 101%
	summary := makeSummary("10000", "600", "0", "9500")
	alerts := ClassifySummary(summary, DefaultAlertThresholds())

	var usage *BudgetAlert
	for i := range alerts {
		if alerts[i].Type == models.AlertTypeExceededLimit || alerts[i].Type == models.AlertTypeApproachingLimit {
			if usage != nil {
				t.Fatal("expected at most one usage alert")
			}
			usage = &alerts[i]
		}
	}
	if usage == nil {
		t.Fatal("expected a usage alert")
	}
	if usage.Type != models.AlertTypeExceededLimit {
		t.Fatalf("expected exceeded_limit, got %s", usage.Type)
	}
	if usage.Severity != models.AlertSeverityCritical {
		t.Fatalf("expected critical severity, got %s", usage.Severity)
	}
	// overage = 10100 - 10000 = 100
	if want := "100.00"; !strings.Contains(usage.Message, want) {
		t.Fatalf("expected message to contain overage %s, got %q", want, usage.Message)
	}

	if !summary.Remaining.IsZero() {
		t.Fatalf("expected remaining clamped to 0, got %s", summary.Remaining)
	}
}

func TestClassifySummary_ApproachingLimit_Bands(t *testing.T) {
	tests := []struct {
		name     string
		spent    string
		wantType models.AlertType
		wantSev  models.AlertSeverity
		none     bool
	}{
		{name: "below warning", spent: "7000", none: true},
		{name: "warning band", spent: "7600", wantType: models.AlertTypeApproachingLimit, wantSev: models.AlertSeverityWarning},
		{name: "critical band", spent: "9100", wantType: models.AlertTypeApproachingLimit, wantSev: models.AlertSeverityCritical},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			summary := makeSummary("10000", "0", "0", tc.spent)
			var usage *BudgetAlert
			for _, a := range ClassifySummary(summary, DefaultAlertThresholds()) {
				if a.Type == models.AlertTypeApproachingLimit || a.Type == models.AlertTypeExceededLimit {
					usage = &a
					break
				}
			}
			if tc.none {
				if usage != nil {
					t.Fatalf("expected no usage alert, got %s", usage.Type)
				}
				return
			}
			if usage == nil {
				t.Fatal("expected a usage alert")
			}
			if usage.Type != tc.wantType || usage.Severity != tc.wantSev {
				t.Fatalf("expected %s/%s, got %s/%s", tc.wantType, tc.wantSev, usage.Type, usage.Severity)
			}
		})
	}
}

func TestClassifySummary_HighPendingAndLowRemaining_CoOccur(t *testing.T) {
	// allocated 10000, pending 5500 (55% pending), spent 3600 -> usage 91%,
	// remaining 900 -> critical usage + info pending + warning remaining.
	summary := makeSummary("10000", "5500", "0", "3600")
	alerts := ClassifySummary(summary, DefaultAlertThresholds())

	types := map[models.AlertType]bool{}
	for _, a := range alerts {
		types[a.Type] = true
	}
	for _, want := range []models.AlertType{
		models.AlertTypeApproachingLimit,
		models.AlertTypeHighPending,
		models.AlertTypeLowRemaining,
	} {
		if !types[want] {
			t.Fatalf("expected %s alert, got %v", want, alerts)
		}
	}
}

func TestClassifyOrganization_SortedBySeverity(t *testing.T) {
	summaries := []*MinistrySummary{
		ptr(makeSummary("10000", "5500", "0", "0")),  // high_pending info
		ptr(makeSummary("0", "0", "0", "0")),         // no_allocation warning
		ptr(makeSummary("10000", "0", "0", "11000")), // exceeded_limit critical
	}
	alerts := ClassifyOrganization(summaries, DefaultAlertThresholds())

	for i := 1; i < len(alerts); i++ {
		if alerts[i-1].Severity.Rank() > alerts[i].Severity.Rank() {
			t.Fatalf("alerts not sorted by severity: %v", alerts)
		}
	}
	if alerts[0].Severity != models.AlertSeverityCritical {
		t.Fatalf("expected critical first, got %s", alerts[0].Severity)
	}
}

func ptr(s MinistrySummary) *MinistrySummary { return &s }
