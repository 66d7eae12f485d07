package reports

import (
	"io"
	"strconv"
	"time"

	"codeberg.org/go-pdf/fpdf"
	"github.com/gracepoint/budget_backend/models"
	"github.com/gracepoint/budget_backend/workflow"
)

// WriteExpensesPdf renders a landscape expense listing.
func WriteExpensesPdf(w io.Writer, title string, expenses []*models.ExpenseRequest) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(0, 6, "Generated "+time.Now().UTC().Format("2006-01-02 15:04 UTC"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	headers := []string{"Id", "Title", "Requester", "Amount", "Status", "Payment Ref", "Created"}
	widths := []float64{15, 90, 40, 30, 35, 35, 30}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, e := range expenses {
		cells := []string{
			itoa(e.ID),
			truncate(e.Title, 55),
			truncate(e.RequesterName, 24),
			e.Amount.StringFixed(2),
			string(e.Status),
			e.PaymentReference,
			e.CreatedAt.UTC().Format("2006-01-02"),
		}
		for i, c := range cells {
			align := "L"
			if i == 3 {
				align = "R"
			}
			pdf.CellFormat(widths[i], 7, c, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	return pdf.Output(w)
}

// WriteBudgetSummaryPdf renders the organization position, one ministry per
// row with a totals line.
func WriteBudgetSummaryPdf(w io.Writer, title string, summary *workflow.OrganizationSummary) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	pdf.Ln(4)

	headers := []string{"Ministry", "Allocated", "Pending", "Approved", "Spent", "Remaining"}
	widths := []float64{55, 27, 27, 27, 27, 27}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, m := range summary.Ministries {
		pdf.CellFormat(widths[0], 7, truncate(m.MinistryName, 32), "1", 0, "L", false, 0, "")
		for i, v := range []string{
			m.Allocated.StringFixed(2),
			m.Pending.StringFixed(2),
			m.Approved.StringFixed(2),
			m.Spent.StringFixed(2),
			m.Remaining.StringFixed(2),
		} {
			pdf.CellFormat(widths[i+1], 7, v, "1", 0, "R", false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(widths[0], 7, "Total", "1", 0, "L", false, 0, "")
	for i, v := range []string{
		summary.TotalAllocated.StringFixed(2),
		summary.TotalPending.StringFixed(2),
		summary.TotalApproved.StringFixed(2),
		summary.TotalSpent.StringFixed(2),
		summary.TotalRemaining.StringFixed(2),
	} {
		pdf.CellFormat(widths[i+1], 7, v, "1", 0, "R", false, 0, "")
	}
	pdf.Ln(-1)

	return pdf.Output(w)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
