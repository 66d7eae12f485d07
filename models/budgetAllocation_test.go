package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestAddToBudgetAllocationTx_RejectsNegativeAmount(t *testing.T) {
	row, err := AddToBudgetAllocationTx(nil, "church-main", 1, 1, decimal.NewFromInt(-100))
	if err == nil {
		t.Fatal("expected an error for a negative amount")
	}
	if row != nil {
		t.Fatalf("expected no row on rejection, got %+v", row)
	}
}
