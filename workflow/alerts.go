package workflow

import (
	"context"
	"fmt"
	"sort"

	"github.com/gracepoint/budget_backend/models"
	"github.com/shopspring/decimal"
)

// AlertThresholds configures the alert engine. Percentages are whole numbers
// (75 means 75%), LowRemainingAmount is an absolute currency amount.
type AlertThresholds struct {
	WarningPercentage     decimal.Decimal
	CriticalPercentage    decimal.Decimal
	HighPendingPercentage decimal.Decimal
	LowRemainingAmount    decimal.Decimal
}

func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		WarningPercentage:     decimal.NewFromInt(75),
		CriticalPercentage:    decimal.NewFromInt(90),
		HighPendingPercentage: decimal.NewFromInt(50),
		LowRemainingAmount:    decimal.NewFromInt(1000),
	}
}

// BudgetAlert is derived at read time, never persisted.
type BudgetAlert struct {
	MinistryId   int                  `json:"ministry_id"`
	MinistryName string               `json:"ministry_name"`
	Type         models.AlertType     `json:"type"`
	Severity     models.AlertSeverity `json:"severity"`
	Message      string               `json:"message"`
}

var hundred = decimal.NewFromInt(100)

// ClassifySummary turns one ministry's summary into its alerts. Pure and
// deterministic: the same summary and thresholds always produce the same
// alerts in the same order.
//
// A ministry with no allocation gets exactly one no_allocation warning and
// nothing else. Otherwise at most one usage alert fires (exceeded beats
// approaching), while high_pending and low_remaining are judged
// independently and can co-occur with it.
func ClassifySummary(summary MinistrySummary, thresholds AlertThresholds) []BudgetAlert {
	if summary.Allocated.IsZero() {
		return []BudgetAlert{{
			MinistryId:   summary.MinistryId,
			MinistryName: summary.MinistryName,
			Type:         models.AlertTypeNoAllocation,
			Severity:     models.AlertSeverityWarning,
			Message:      fmt.Sprintf("%s has no budget allocated for this fiscal year", summary.MinistryName),
		}}
	}

	var alerts []BudgetAlert

	committed := summary.Pending.Add(summary.Approved).Add(summary.Spent)
	usagePct := committed.Div(summary.Allocated).Mul(hundred)

	switch {
	case usagePct.GreaterThanOrEqual(hundred):
		overage := committed.Sub(summary.Allocated)
		alerts = append(alerts, BudgetAlert{
			MinistryId:   summary.MinistryId,
			MinistryName: summary.MinistryName,
			Type:         models.AlertTypeExceededLimit,
			Severity:     models.AlertSeverityCritical,
			Message: fmt.Sprintf("%s has exceeded its budget by %s (%s%% used)",
				summary.MinistryName, overage.StringFixed(2), usagePct.Round(0)),
		})
	case usagePct.GreaterThanOrEqual(thresholds.CriticalPercentage):
		alerts = append(alerts, BudgetAlert{
			MinistryId:   summary.MinistryId,
			MinistryName: summary.MinistryName,
			Type:         models.AlertTypeApproachingLimit,
			Severity:     models.AlertSeverityCritical,
			Message: fmt.Sprintf("%s has used %s%% of its budget",
				summary.MinistryName, usagePct.Round(0)),
		})
	case usagePct.GreaterThanOrEqual(thresholds.WarningPercentage):
		alerts = append(alerts, BudgetAlert{
			MinistryId:   summary.MinistryId,
			MinistryName: summary.MinistryName,
			Type:         models.AlertTypeApproachingLimit,
			Severity:     models.AlertSeverityWarning,
			Message: fmt.Sprintf("%s has used %s%% of its budget",
				summary.MinistryName, usagePct.Round(0)),
		})
	}

	pendingPct := summary.Pending.Div(summary.Allocated).Mul(hundred)
	if pendingPct.GreaterThanOrEqual(thresholds.HighPendingPercentage) {
		alerts = append(alerts, BudgetAlert{
			MinistryId:   summary.MinistryId,
			MinistryName: summary.MinistryName,
			Type:         models.AlertTypeHighPending,
			Severity:     models.AlertSeverityInfo,
			Message: fmt.Sprintf("%s has %s%% of its budget tied up in pending requests",
				summary.MinistryName, pendingPct.Round(0)),
		})
	}

	if summary.Remaining.IsPositive() && summary.Remaining.LessThan(thresholds.LowRemainingAmount) {
		alerts = append(alerts, BudgetAlert{
			MinistryId:   summary.MinistryId,
			MinistryName: summary.MinistryName,
			Type:         models.AlertTypeLowRemaining,
			Severity:     models.AlertSeverityWarning,
			Message: fmt.Sprintf("%s has only %s remaining",
				summary.MinistryName, summary.Remaining.StringFixed(2)),
		})
	}

	return alerts
}

// ClassifyOrganization concatenates every ministry's alerts and stable-sorts
// them by severity (critical first, then warning, then info).
func ClassifyOrganization(summaries []*MinistrySummary, thresholds AlertThresholds) []BudgetAlert {
	var alerts []BudgetAlert
	for _, summary := range summaries {
		alerts = append(alerts, ClassifySummary(*summary, thresholds)...)
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Severity.Rank() < alerts[j].Severity.Rank()
	})
	return alerts
}

// GetBudgetAlerts computes the organization's alerts for a fiscal year.
func GetBudgetAlerts(ctx context.Context, fiscalYearId int, thresholds AlertThresholds) ([]BudgetAlert, error) {
	orgSummary, err := GetOrganizationSummary(ctx, fiscalYearId)
	if err != nil {
		return nil, err
	}
	return ClassifyOrganization(orgSummary.Ministries, thresholds), nil
}
