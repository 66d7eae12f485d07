package reports

import (
	"bytes"
	"testing"
	"time"

	"github.com/gracepoint/budget_backend/models"
	"github.com/shopspring/decimal"
)

func TestExpensesCsv_RoundTrip(t *testing.T) {
	createdAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	original := []*models.ExpenseRequest{
		{
			ID:                  1,
			Title:               `Retreat supplies, "bulk" order`,
			MinistryId:          3,
			FiscalYearId:        2,
			RequesterName:       "Jordan Lee",
			Amount:              decimal.RequireFromString("1234.56"),
			Status:              models.ExpenseStatusCompleted,
			ReimbursementMethod: models.ReimbursementMethodBankTransfer,
			PaymentReference:    "TRX-2026-0042",
			Base:                models.Base{CreatedAt: createdAt},
		},
		{
			ID:                  2,
			Title:               "Sound board,\nnew line",
			MinistryId:          5,
			FiscalYearId:        2,
			RequesterName:       "Sam O'Neil",
			Amount:              decimal.RequireFromString("980.00"),
			Status:              models.ExpenseStatusPendingLeader,
			ReimbursementMethod: models.ReimbursementMethodCheck,
			Base:                models.Base{CreatedAt: createdAt},
		},
	}

	var buf bytes.Buffer
	if err := WriteExpensesCsv(&buf, original); err != nil {
		t.Fatalf("write: %v", err)
	}

	parsed, err := ParseExpensesCsv(&buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(parsed) != len(original) {
		t.Fatalf("expected %d rows, got %d", len(original), len(parsed))
	}
	for i := range original {
		want, got := original[i], parsed[i]
		if got.Title != want.Title {
			t.Errorf("row %d title: expected %q, got %q", i, want.Title, got.Title)
		}
		if !got.Amount.Equal(want.Amount) {
			t.Errorf("row %d amount: expected %s, got %s", i, want.Amount, got.Amount)
		}
		if got.Status != want.Status {
			t.Errorf("row %d status: expected %s, got %s", i, want.Status, got.Status)
		}
		if !got.CreatedAt.Equal(want.CreatedAt) {
			t.Errorf("row %d created_at: expected %s, got %s", i, want.CreatedAt, got.CreatedAt)
		}
	}
}

func TestParseExpensesCsv_RejectsBadStatus(t *testing.T) {
	csv := "id,title,ministry_id,fiscal_year_id,requester_name,amount,status,reimbursement_method,payment_reference,created_at\n" +
		"1,Coffee,1,1,Pat,10.00,not_a_status,cash,,2026-01-01T00:00:00Z\n"
	if _, err := ParseExpensesCsv(bytes.NewReader([]byte(csv))); err == nil {
		t.Fatal("expected error for invalid status")
	}
}

func TestParseExpensesCsv_RejectsWrongHeader(t *testing.T) {
	csv := "nope,title,ministry_id,fiscal_year_id,requester_name,amount,status,reimbursement_method,payment_reference,created_at\n"
	if _, err := ParseExpensesCsv(bytes.NewReader([]byte(csv))); err == nil {
		t.Fatal("expected error for unexpected header")
	}
}
