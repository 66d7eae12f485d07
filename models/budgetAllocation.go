package models

import (
	"context"
	"errors"

	"github.com/gracepoint/budget_backend/config"
	"github.com/gracepoint/budget_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BudgetAllocation is the running ledger balance per (organization, ministry,
// fiscal year). It is only ever written by the allocation approval workflow and
// the ledger-rebuild tool; allocated_amount accumulates additively and is never
// overwritten by an approval.
type BudgetAllocation struct {
	ID              int             `gorm:"primary_key" json:"id"`
	OrganizationId  string          `gorm:"size:64;not null;index:uniq_alloc,unique" json:"organization_id"`
	MinistryId      int             `gorm:"not null;index:uniq_alloc,unique" json:"ministry_id"`
	FiscalYearId    int             `gorm:"not null;index:uniq_alloc,unique" json:"fiscal_year_id"`
	AllocatedAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"allocated_amount"`
	Base
}

// AddToBudgetAllocationTx performs the additive ledger write inside the
// caller's transaction: create the row at amount when absent, otherwise add
// amount to the existing balance. SELECT ... FOR UPDATE keeps concurrent
// approvals for the same ministry/fiscal-year serialized at the row.
func AddToBudgetAllocationTx(tx *gorm.DB, organizationId string, ministryId, fiscalYearId int, amount decimal.Decimal) (*BudgetAllocation, error) {
	if amount.IsNegative() {
		return nil, errors.New("allocation amount must not be negative")
	}

	var allocation BudgetAllocation
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("organization_id = ? AND ministry_id = ? AND fiscal_year_id = ?", organizationId, ministryId, fiscalYearId).
		First(&allocation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		allocation = BudgetAllocation{
			OrganizationId:  organizationId,
			MinistryId:      ministryId,
			FiscalYearId:    fiscalYearId,
			AllocatedAmount: amount,
		}
		if err := tx.Create(&allocation).Error; err != nil {
			return nil, err
		}
		return &allocation, nil
	}
	if err != nil {
		return nil, err
	}

	allocation.AllocatedAmount = allocation.AllocatedAmount.Add(amount)
	if err := tx.Model(&BudgetAllocation{}).Where("id = ?", allocation.ID).
		UpdateColumn("allocated_amount", allocation.AllocatedAmount).Error; err != nil {
		return nil, err
	}
	return &allocation, nil
}

func GetBudgetAllocation(ctx context.Context, ministryId, fiscalYearId int) (*BudgetAllocation, error) {
	db := config.GetDB()

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	var allocation BudgetAllocation
	err := db.WithContext(ctx).
		Where("organization_id = ? AND ministry_id = ? AND fiscal_year_id = ?", organizationId, ministryId, fiscalYearId).
		First(&allocation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &allocation, nil
}

func ListBudgetAllocations(ctx context.Context, fiscalYearId int) ([]*BudgetAllocation, error) {
	db := config.GetDB()

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	var allocations []*BudgetAllocation
	dbCtx := db.WithContext(ctx).Where("organization_id = ?", organizationId)
	if fiscalYearId > 0 {
		dbCtx = dbCtx.Where("fiscal_year_id = ?", fiscalYearId)
	}
	if err := dbCtx.Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}
