package models

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

func TestBudgetPeriod_OrDefault(t *testing.T) {
	if got := BudgetPeriod("").OrDefault(); got != BudgetPeriodAnnual {
		t.Fatalf("empty period defaulted to %q, want %q", got, BudgetPeriodAnnual)
	}
	if got := BudgetPeriodQuarterly.OrDefault(); got != BudgetPeriodQuarterly {
		t.Fatalf("set period rewritten to %q", got)
	}
}

func TestBudgetPeriod_Valid(t *testing.T) {
	for _, p := range []BudgetPeriod{BudgetPeriodAnnual, BudgetPeriodQuarterly, BudgetPeriodMonthly} {
		if !p.Valid() {
			t.Errorf("%q should be valid", p)
		}
	}
	for _, p := range []BudgetPeriod{"weekly", "Annual", "yearly"} {
		if p.Valid() {
			t.Errorf("%q should not be valid", p)
		}
	}
}

func TestNewAllocationRequest_RejectsUnknownPeriod(t *testing.T) {
	input := &NewAllocationRequest{
		MinistryId:      1,
		FiscalYearId:    1,
		Title:           "Youth camp",
		Period:          "weekly",
		RequestedAmount: decimal.NewFromInt(500),
	}
	err := input.validate(context.Background(), "church-main")
	if err == nil {
		t.Fatal("expected an error for an unknown period")
	}
	if err.Error() != "period must be annual, quarterly or monthly" {
		t.Fatalf("unexpected error: %v", err)
	}
}
