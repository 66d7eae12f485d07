package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

type ExpenseStatus string

const (
	ExpenseStatusDraft            ExpenseStatus = "draft"
	ExpenseStatusPendingLeader    ExpenseStatus = "pending_leader"
	ExpenseStatusLeaderApproved   ExpenseStatus = "leader_approved"
	ExpenseStatusLeaderDenied     ExpenseStatus = "leader_denied"
	ExpenseStatusPendingTreasury  ExpenseStatus = "pending_treasury"
	ExpenseStatusTreasuryApproved ExpenseStatus = "treasury_approved"
	ExpenseStatusTreasuryDenied   ExpenseStatus = "treasury_denied"
	ExpenseStatusPendingFinance   ExpenseStatus = "pending_finance"
	ExpenseStatusCompleted        ExpenseStatus = "completed"
	ExpenseStatusCancelled        ExpenseStatus = "cancelled"
)

// AllExpenseStatuses lists every status in pipeline order, for metadata
// listings and exports.
var AllExpenseStatuses = []ExpenseStatus{
	ExpenseStatusDraft,
	ExpenseStatusPendingLeader,
	ExpenseStatusLeaderApproved,
	ExpenseStatusLeaderDenied,
	ExpenseStatusPendingTreasury,
	ExpenseStatusTreasuryApproved,
	ExpenseStatusTreasuryDenied,
	ExpenseStatusPendingFinance,
	ExpenseStatusCompleted,
	ExpenseStatusCancelled,
}

// expenseTransitions is the closed edge set of the expense approval machine.
// Every status write goes through CanTransition; there is no other path to
// mutate the status column.
var expenseTransitions = map[ExpenseStatus][]ExpenseStatus{
	ExpenseStatusDraft:            {ExpenseStatusPendingLeader},
	ExpenseStatusPendingLeader:    {ExpenseStatusLeaderApproved, ExpenseStatusLeaderDenied, ExpenseStatusCancelled},
	ExpenseStatusLeaderApproved:   {ExpenseStatusPendingTreasury, ExpenseStatusTreasuryApproved, ExpenseStatusTreasuryDenied},
	ExpenseStatusPendingTreasury:  {ExpenseStatusTreasuryApproved, ExpenseStatusTreasuryDenied},
	ExpenseStatusTreasuryApproved: {ExpenseStatusPendingFinance, ExpenseStatusCompleted},
	ExpenseStatusPendingFinance:   {ExpenseStatusCompleted},
	// terminal states have no outgoing edges
	ExpenseStatusLeaderDenied:   {},
	ExpenseStatusTreasuryDenied: {},
	ExpenseStatusCompleted:      {},
	ExpenseStatusCancelled:      {},
}

func (s ExpenseStatus) Valid() bool {
	_, ok := expenseTransitions[s]
	return ok
}

func (s ExpenseStatus) IsTerminal() bool {
	edges, ok := expenseTransitions[s]
	return ok && len(edges) == 0
}

// CanTransition reports whether target is a documented edge from s.
func (s ExpenseStatus) CanTransition(target ExpenseStatus) bool {
	for _, t := range expenseTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

func (s ExpenseStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid expense status: %q", string(s))
	}
	return string(s), nil
}

func (s *ExpenseStatus) Scan(v interface{}) error {
	switch val := v.(type) {
	case string:
		*s = ExpenseStatus(val)
	case []byte:
		*s = ExpenseStatus(val)
	default:
		return errors.New("expense status must be string")
	}
	if !s.Valid() {
		return fmt.Errorf("invalid expense status: %q", string(*s))
	}
	return nil
}

type AllocationStatus string

const (
	AllocationStatusDraft             AllocationStatus = "draft"
	AllocationStatusPending           AllocationStatus = "pending"
	AllocationStatusApproved          AllocationStatus = "approved"
	AllocationStatusPartiallyApproved AllocationStatus = "partially_approved"
	AllocationStatusDenied            AllocationStatus = "denied"
	AllocationStatusCancelled         AllocationStatus = "cancelled"
)

var AllAllocationStatuses = []AllocationStatus{
	AllocationStatusDraft,
	AllocationStatusPending,
	AllocationStatusApproved,
	AllocationStatusPartiallyApproved,
	AllocationStatusDenied,
	AllocationStatusCancelled,
}

var allocationTransitions = map[AllocationStatus][]AllocationStatus{
	AllocationStatusDraft:             {AllocationStatusPending},
	AllocationStatusPending:           {AllocationStatusApproved, AllocationStatusPartiallyApproved, AllocationStatusDenied, AllocationStatusCancelled},
	AllocationStatusApproved:          {},
	AllocationStatusPartiallyApproved: {},
	AllocationStatusDenied:            {},
	AllocationStatusCancelled:         {},
}

func (s AllocationStatus) Valid() bool {
	_, ok := allocationTransitions[s]
	return ok
}

func (s AllocationStatus) IsTerminal() bool {
	edges, ok := allocationTransitions[s]
	return ok && len(edges) == 0
}

func (s AllocationStatus) CanTransition(target AllocationStatus) bool {
	for _, t := range allocationTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

type BudgetPeriod string

const (
	BudgetPeriodAnnual    BudgetPeriod = "annual"
	BudgetPeriodQuarterly BudgetPeriod = "quarterly"
	BudgetPeriodMonthly   BudgetPeriod = "monthly"
)

func (p BudgetPeriod) Valid() bool {
	switch p {
	case BudgetPeriodAnnual, BudgetPeriodQuarterly, BudgetPeriodMonthly:
		return true
	}
	return false
}

// OrDefault treats an unset period as annual.
func (p BudgetPeriod) OrDefault() BudgetPeriod {
	if p == "" {
		return BudgetPeriodAnnual
	}
	return p
}

type ReimbursementMethod string

const (
	ReimbursementMethodBankTransfer ReimbursementMethod = "bank_transfer"
	ReimbursementMethodCheck        ReimbursementMethod = "check"
	ReimbursementMethodCash         ReimbursementMethod = "cash"
)

func (m ReimbursementMethod) Valid() bool {
	switch m {
	case ReimbursementMethodBankTransfer, ReimbursementMethodCheck, ReimbursementMethodCash:
		return true
	}
	return false
}

type UserRole string

const (
	UserRoleRequester UserRole = "requester"
	UserRoleLeader    UserRole = "leader"
	UserRoleTreasurer UserRole = "treasurer"
	UserRoleFinance   UserRole = "finance"
	UserRoleAdmin     UserRole = "admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case UserRoleRequester, UserRoleLeader, UserRoleTreasurer, UserRoleFinance, UserRoleAdmin:
		return true
	}
	return false
}

type AlertSeverity string

const (
	AlertSeverityInfo     AlertSeverity = "info"
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityCritical AlertSeverity = "critical"
)

// severityRank orders alerts for the stable sort: critical, warning, info.
func (s AlertSeverity) Rank() int {
	switch s {
	case AlertSeverityCritical:
		return 0
	case AlertSeverityWarning:
		return 1
	case AlertSeverityInfo:
		return 2
	}
	return 3
}

type AlertType string

const (
	AlertTypeNoAllocation     AlertType = "no_allocation"
	AlertTypeApproachingLimit AlertType = "approaching_limit"
	AlertTypeExceededLimit    AlertType = "exceeded_limit"
	AlertTypeHighPending      AlertType = "high_pending"
	AlertTypeLowRemaining     AlertType = "low_remaining"
)

// Reference types for history and attachment rows.
const (
	ReferenceTypeExpenseRequest    = "expense_requests"
	ReferenceTypeAllocationRequest = "allocation_requests"
	ReferenceTypeMinistry          = "ministries"
	ReferenceTypeFiscalYear        = "fiscal_years"
)
