package reports

import (
	"fmt"
	"io"
	"time"

	"github.com/gracepoint/budget_backend/models"
	"github.com/gracepoint/budget_backend/workflow"
	"github.com/xuri/excelize/v2"
)

// WriteExpensesXlsx writes the rows to a single-sheet workbook.
func WriteExpensesXlsx(w io.Writer, expenses []*models.ExpenseRequest) error {
	f := excelize.NewFile()
	sheetName := "Sheet1"
	_, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	// Add headers
	f.SetCellValue(sheetName, "A1", "Id")
	f.SetCellValue(sheetName, "B1", "Title")
	f.SetCellValue(sheetName, "C1", "MinistryId")
	f.SetCellValue(sheetName, "D1", "Requester")
	f.SetCellValue(sheetName, "E1", "Amount")
	f.SetCellValue(sheetName, "F1", "Status")
	f.SetCellValue(sheetName, "G1", "PaymentReference")
	f.SetCellValue(sheetName, "H1", "CreatedAt")

	// Add data
	for i, e := range expenses {
		row := fmt.Sprint(i + 2)
		f.SetCellValue(sheetName, "A"+row, e.ID)
		f.SetCellValue(sheetName, "B"+row, e.Title)
		f.SetCellValue(sheetName, "C"+row, e.MinistryId)
		f.SetCellValue(sheetName, "D"+row, e.RequesterName)
		f.SetCellValue(sheetName, "E"+row, e.Amount.InexactFloat64())
		f.SetCellValue(sheetName, "F"+row, string(e.Status))
		f.SetCellValue(sheetName, "G"+row, e.PaymentReference)
		f.SetCellValue(sheetName, "H"+row, e.CreatedAt.UTC().Format(time.RFC3339))
	}

	return f.Write(w)
}

// WriteBudgetSummaryXlsx writes the organization's per-ministry position plus
// a totals row.
func WriteBudgetSummaryXlsx(w io.Writer, summary *workflow.OrganizationSummary) error {
	f := excelize.NewFile()
	sheetName := "Sheet1"
	_, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	f.SetCellValue(sheetName, "A1", "Ministry")
	f.SetCellValue(sheetName, "B1", "Allocated")
	f.SetCellValue(sheetName, "C1", "Pending")
	f.SetCellValue(sheetName, "D1", "Approved")
	f.SetCellValue(sheetName, "E1", "Spent")
	f.SetCellValue(sheetName, "F1", "Remaining")
	f.SetCellValue(sheetName, "G1", "UtilizationPct")

	row := 2
	for _, m := range summary.Ministries {
		r := fmt.Sprint(row)
		f.SetCellValue(sheetName, "A"+r, m.MinistryName)
		f.SetCellValue(sheetName, "B"+r, m.Allocated.InexactFloat64())
		f.SetCellValue(sheetName, "C"+r, m.Pending.InexactFloat64())
		f.SetCellValue(sheetName, "D"+r, m.Approved.InexactFloat64())
		f.SetCellValue(sheetName, "E"+r, m.Spent.InexactFloat64())
		f.SetCellValue(sheetName, "F"+r, m.Remaining.InexactFloat64())
		f.SetCellValue(sheetName, "G"+r, m.UtilizationPct.InexactFloat64())
		row++
	}

	r := fmt.Sprint(row)
	f.SetCellValue(sheetName, "A"+r, "Total")
	f.SetCellValue(sheetName, "B"+r, summary.TotalAllocated.InexactFloat64())
	f.SetCellValue(sheetName, "C"+r, summary.TotalPending.InexactFloat64())
	f.SetCellValue(sheetName, "D"+r, summary.TotalApproved.InexactFloat64())
	f.SetCellValue(sheetName, "E"+r, summary.TotalSpent.InexactFloat64())
	f.SetCellValue(sheetName, "F"+r, summary.TotalRemaining.InexactFloat64())

	return f.Write(w)
}
