package main

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gracepoint/budget_backend/config"
	"github.com/gracepoint/budget_backend/models"
	"github.com/gracepoint/budget_backend/reports"
	"github.com/gracepoint/budget_backend/workflow"
)

func exportExpensesCsvHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		expenses, err := models.ListExpenseRequests(c.Request.Context(), expenseFilterFromQuery(c))
		if err != nil {
			respondError(c, err)
			return
		}

		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", "attachment; filename=expenses.csv")
		if err := reports.WriteExpensesCsv(c.Writer, expenses); err != nil {
			config.LogError(config.GetLogger(), "exports.go", "exportExpensesCsvHandler", "WriteExpensesCsv", nil, err)
		}
	}
}

func exportExpensesXlsxHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		expenses, err := models.ListExpenseRequests(c.Request.Context(), expenseFilterFromQuery(c))
		if err != nil {
			respondError(c, err)
			return
		}

		var buf bytes.Buffer
		if err := reports.WriteExpensesXlsx(&buf, expenses); err != nil {
			config.LogError(config.GetLogger(), "exports.go", "exportExpensesXlsxHandler", "WriteExpensesXlsx", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
			return
		}
		c.Header("Content-Disposition", "attachment; filename=expenses.xlsx")
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
	}
}

func exportExpensesPdfHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		expenses, err := models.ListExpenseRequests(c.Request.Context(), expenseFilterFromQuery(c))
		if err != nil {
			respondError(c, err)
			return
		}

		var buf bytes.Buffer
		if err := reports.WriteExpensesPdf(&buf, "Expense Requests", expenses); err != nil {
			config.LogError(config.GetLogger(), "exports.go", "exportExpensesPdfHandler", "WriteExpensesPdf", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
			return
		}
		c.Header("Content-Disposition", "attachment; filename=expenses.pdf")
		c.Data(http.StatusOK, "application/pdf", buf.Bytes())
	}
}

func exportBudgetSummaryXlsxHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		fiscalYearId, err := strconv.Atoi(c.Query("fiscal_year_id"))
		if err != nil || fiscalYearId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid fiscal year id"})
			return
		}
		summary, err := workflow.GetOrganizationSummary(c.Request.Context(), fiscalYearId)
		if err != nil {
			respondError(c, err)
			return
		}

		var buf bytes.Buffer
		if err := reports.WriteBudgetSummaryXlsx(&buf, summary); err != nil {
			config.LogError(config.GetLogger(), "exports.go", "exportBudgetSummaryXlsxHandler", "WriteBudgetSummaryXlsx", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
			return
		}
		c.Header("Content-Disposition", "attachment; filename=budget-summary.xlsx")
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
	}
}

func exportBudgetSummaryPdfHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		fiscalYearId, err := strconv.Atoi(c.Query("fiscal_year_id"))
		if err != nil || fiscalYearId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid fiscal year id"})
			return
		}
		summary, err := workflow.GetOrganizationSummary(c.Request.Context(), fiscalYearId)
		if err != nil {
			respondError(c, err)
			return
		}

		var buf bytes.Buffer
		if err := reports.WriteBudgetSummaryPdf(&buf, "Budget Summary", summary); err != nil {
			config.LogError(config.GetLogger(), "exports.go", "exportBudgetSummaryPdfHandler", "WriteBudgetSummaryPdf", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
			return
		}
		c.Header("Content-Disposition", "attachment; filename=budget-summary.pdf")
		c.Data(http.StatusOK, "application/pdf", buf.Bytes())
	}
}

func registerExportRoutes(g *gin.RouterGroup) {
	g.GET("/exports/expenses.csv", exportExpensesCsvHandler())
	g.GET("/exports/expenses.xlsx", exportExpensesXlsxHandler())
	g.GET("/exports/expenses.pdf", exportExpensesPdfHandler())
	g.GET("/exports/budget-summary.xlsx", exportBudgetSummaryXlsxHandler())
	g.GET("/exports/budget-summary.pdf", exportBudgetSummaryPdfHandler())
}
