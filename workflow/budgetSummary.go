package workflow

import (
	"context"
	"errors"

	"github.com/gracepoint/budget_backend/config"
	"github.com/gracepoint/budget_backend/models"
	"github.com/gracepoint/budget_backend/utils"
	"github.com/shopspring/decimal"
)

// MinistrySummary is a ministry's budget position for one fiscal year.
// Pending counts requests still moving through review, Approved counts
// requests cleared for payout but not yet paid, Spent counts completed
// payouts. Remaining is clamped at zero so an over-committed ministry reads
// as exhausted rather than negative.
type MinistrySummary struct {
	MinistryId     int             `json:"ministry_id"`
	MinistryName   string          `json:"ministry_name"`
	FiscalYearId   int             `json:"fiscal_year_id"`
	Allocated      decimal.Decimal `json:"allocated"`
	Pending        decimal.Decimal `json:"pending"`
	Approved       decimal.Decimal `json:"approved"`
	Spent          decimal.Decimal `json:"spent"`
	Remaining      decimal.Decimal `json:"remaining"`
	UtilizationPct decimal.Decimal `json:"utilization_pct"`
}

// ComputeMinistrySummary buckets expense amounts against an allocated total.
// Pure so the bucketing and clamping rules are testable without a database.
func ComputeMinistrySummary(allocated decimal.Decimal, expenses []*models.ExpenseRequest) MinistrySummary {
	summary := MinistrySummary{
		Allocated:      allocated,
		Pending:        decimal.Zero,
		Approved:       decimal.Zero,
		Spent:          decimal.Zero,
		Remaining:      decimal.Zero,
		UtilizationPct: decimal.Zero,
	}
	for _, e := range expenses {
		switch e.Status {
		case models.ExpenseStatusPendingLeader, models.ExpenseStatusLeaderApproved, models.ExpenseStatusPendingTreasury:
			summary.Pending = summary.Pending.Add(e.Amount)
		case models.ExpenseStatusTreasuryApproved, models.ExpenseStatusPendingFinance:
			summary.Approved = summary.Approved.Add(e.Amount)
		case models.ExpenseStatusCompleted:
			summary.Spent = summary.Spent.Add(e.Amount)
		}
	}

	committed := summary.Pending.Add(summary.Approved).Add(summary.Spent)
	remaining := allocated.Sub(committed)
	if remaining.IsPositive() {
		summary.Remaining = remaining
	}
	if allocated.IsPositive() {
		summary.UtilizationPct = committed.Div(allocated).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return summary
}

// GetMinistrySummary computes a ministry's position for a fiscal year from
// the allocation ledger and its expense requests.
func GetMinistrySummary(ctx context.Context, ministryId, fiscalYearId int) (*MinistrySummary, error) {
	ministry, err := models.GetMinistry(ctx, ministryId)
	if err != nil {
		return nil, err
	}

	allocated := decimal.Zero
	allocation, err := models.GetBudgetAllocation(ctx, ministryId, fiscalYearId)
	if err != nil && !errors.Is(err, utils.ErrorRecordNotFound) {
		return nil, err
	}
	if allocation != nil {
		allocated = allocation.AllocatedAmount
	}

	expenses, err := models.ListExpenseRequests(ctx, models.ExpenseRequestFilter{
		MinistryId:   ministryId,
		FiscalYearId: fiscalYearId,
	})
	if err != nil {
		return nil, err
	}

	summary := ComputeMinistrySummary(allocated, expenses)
	summary.MinistryId = ministryId
	summary.MinistryName = ministry.Name
	summary.FiscalYearId = fiscalYearId
	return &summary, nil
}

// OrganizationSummary aggregates every active ministry's position plus
// organization-wide totals.
type OrganizationSummary struct {
	FiscalYearId   int                `json:"fiscal_year_id"`
	Ministries     []*MinistrySummary `json:"ministries"`
	TotalAllocated decimal.Decimal    `json:"total_allocated"`
	TotalPending   decimal.Decimal    `json:"total_pending"`
	TotalApproved  decimal.Decimal    `json:"total_approved"`
	TotalSpent     decimal.Decimal    `json:"total_spent"`
	TotalRemaining decimal.Decimal    `json:"total_remaining"`
}

func GetOrganizationSummary(ctx context.Context, fiscalYearId int) (*OrganizationSummary, error) {
	logger := config.GetLogger()

	ministries, err := models.ListMinistries(ctx)
	if err != nil {
		config.LogError(logger, "budgetSummary.go", "GetOrganizationSummary", "ListMinistries", fiscalYearId, err)
		return nil, err
	}

	result := OrganizationSummary{
		FiscalYearId:   fiscalYearId,
		TotalAllocated: decimal.Zero,
		TotalPending:   decimal.Zero,
		TotalApproved:  decimal.Zero,
		TotalSpent:     decimal.Zero,
		TotalRemaining: decimal.Zero,
	}
	for _, ministry := range ministries {
		if ministry.IsActive != nil && !*ministry.IsActive {
			continue
		}
		summary, err := GetMinistrySummary(ctx, ministry.ID, fiscalYearId)
		if err != nil {
			return nil, err
		}
		result.Ministries = append(result.Ministries, summary)
		result.TotalAllocated = result.TotalAllocated.Add(summary.Allocated)
		result.TotalPending = result.TotalPending.Add(summary.Pending)
		result.TotalApproved = result.TotalApproved.Add(summary.Approved)
		result.TotalSpent = result.TotalSpent.Add(summary.Spent)
		result.TotalRemaining = result.TotalRemaining.Add(summary.Remaining)
	}
	return &result, nil
}
