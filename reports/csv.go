package reports

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/gracepoint/budget_backend/models"
	"github.com/shopspring/decimal"
)

var expenseCsvHeader = []string{
	"id", "title", "ministry_id", "fiscal_year_id", "requester_name",
	"amount", "status", "reimbursement_method", "payment_reference", "created_at",
}

// WriteExpensesCsv streams the rows as RFC 4180 CSV. encoding/csv quotes
// embedded commas and doubles embedded quotes, so titles round-trip
// unchanged.
func WriteExpensesCsv(w io.Writer, expenses []*models.ExpenseRequest) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(expenseCsvHeader); err != nil {
		return err
	}
	for _, e := range expenses {
		record := []string{
			fmt.Sprint(e.ID),
			e.Title,
			fmt.Sprint(e.MinistryId),
			fmt.Sprint(e.FiscalYearId),
			e.RequesterName,
			e.Amount.String(),
			string(e.Status),
			string(e.ReimbursementMethod),
			e.PaymentReference,
			e.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ParseExpensesCsv reads back what WriteExpensesCsv produced. Used by the
// import path and to verify exports round-trip.
func ParseExpensesCsv(r io.Reader) ([]*models.ExpenseRequest, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(expenseCsvHeader)

	header, err := cr.Read()
	if err != nil {
		return nil, err
	}
	for i, h := range expenseCsvHeader {
		if header[i] != h {
			return nil, fmt.Errorf("unexpected csv header %q at column %d", header[i], i)
		}
	}

	var expenses []*models.ExpenseRequest
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		var e models.ExpenseRequest
		if _, err := fmt.Sscan(record[0], &e.ID); err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", record[0], err)
		}
		e.Title = record[1]
		if _, err := fmt.Sscan(record[2], &e.MinistryId); err != nil {
			return nil, fmt.Errorf("invalid ministry_id %q: %w", record[2], err)
		}
		if _, err := fmt.Sscan(record[3], &e.FiscalYearId); err != nil {
			return nil, fmt.Errorf("invalid fiscal_year_id %q: %w", record[3], err)
		}
		e.RequesterName = record[4]
		amount, err := decimal.NewFromString(record[5])
		if err != nil {
			return nil, fmt.Errorf("invalid amount %q: %w", record[5], err)
		}
		e.Amount = amount
		e.Status = models.ExpenseStatus(record[6])
		if !e.Status.Valid() {
			return nil, fmt.Errorf("invalid status %q", record[6])
		}
		e.ReimbursementMethod = models.ReimbursementMethod(record[7])
		e.PaymentReference = record[8]
		createdAt, err := time.Parse(time.RFC3339, record[9])
		if err != nil {
			return nil, fmt.Errorf("invalid created_at %q: %w", record[9], err)
		}
		e.CreatedAt = createdAt

		expenses = append(expenses, &e)
	}
	return expenses, nil
}
