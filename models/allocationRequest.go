package models

import (
	"context"
	"errors"
	"time"

	"github.com/gracepoint/budget_backend/config"
	"github.com/gracepoint/budget_backend/utils"
	"github.com/shopspring/decimal"
)

// AllocationRequest asks for budget to be credited to a ministry for a fiscal
// year. Approval posts the approved amount to the BudgetAllocation ledger.
type AllocationRequest struct {
	ID             int    `gorm:"primary_key" json:"id"`
	OrganizationId string `gorm:"index;not null" json:"organization_id"`
	MinistryId     int    `gorm:"index;not null" json:"ministry_id" binding:"required"`
	FiscalYearId   int    `gorm:"index;not null" json:"fiscal_year_id" binding:"required"`
	RequesterId    int    `gorm:"index;not null" json:"requester_id"`
	RequesterName  string `gorm:"size:100" json:"requester_name"`

	Title           string          `gorm:"size:255;not null" json:"title" binding:"required"`
	Justification   string          `gorm:"type:text" json:"justification"`
	Period          BudgetPeriod    `gorm:"size:16;not null;default:annual" json:"period"`
	RequestedAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"requested_amount"`
	ApprovedAmount  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"approved_amount"`

	Status      AllocationStatus `gorm:"size:32;not null;index;default:draft" json:"status"`
	SubmittedAt *time.Time       `json:"submitted_at"`

	ReviewerId   int        `gorm:"index" json:"reviewer_id"`
	ReviewedAt   *time.Time `json:"reviewed_at"`
	ReviewNotes  string     `gorm:"type:text" json:"review_notes"`
	CancelReason string     `gorm:"type:text" json:"cancel_reason"`

	Breakdowns []*BudgetBreakdown `gorm:"-" json:"breakdowns,omitempty"`
	Base
}

// BudgetBreakdown is a line item inside an allocation request. Month is
// optional (1-12) for requests that plan by calendar month.
type BudgetBreakdown struct {
	ID                  int             `gorm:"primary_key" json:"id"`
	OrganizationId      string          `gorm:"index;not null" json:"organization_id"`
	AllocationRequestId int             `gorm:"index;not null" json:"allocation_request_id"`
	Category            string          `gorm:"size:100;not null" json:"category" binding:"required"`
	Description         string          `gorm:"size:255" json:"description"`
	Amount              decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	Month               *int            `json:"month"`
	Base
}

type NewAllocationRequest struct {
	MinistryId      int                   `json:"ministry_id" binding:"required"`
	FiscalYearId    int                   `json:"fiscal_year_id" binding:"required"`
	Title           string                `json:"title" binding:"required"`
	Justification   string                `json:"justification"`
	Period          BudgetPeriod          `json:"period"`
	RequestedAmount decimal.Decimal       `json:"requested_amount"`
	Breakdowns      []*NewBudgetBreakdown `json:"breakdowns"`
}

type NewBudgetBreakdown struct {
	Category    string          `json:"category" binding:"required"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Month       *int            `json:"month"`
}

func (a AllocationRequest) GetId() int {
	return a.ID
}

func (a AllocationRequest) GetCursor() string {
	return a.CreatedAt.UTC().Format(time.RFC3339Nano)
}

func (a AllocationRequest) GetOrganizationId() string {
	return a.OrganizationId
}

func (input *NewAllocationRequest) validate(ctx context.Context, organizationId string) error {
	if input.RequestedAmount.LessThanOrEqual(decimal.Zero) {
		return errors.New("requested amount must be positive")
	}
	input.Period = input.Period.OrDefault()
	if !input.Period.Valid() {
		return errors.New("period must be annual, quarterly or monthly")
	}

	count, err := utils.ResourceCountWhere[Ministry](ctx, organizationId, "id = ? AND is_active = ?", input.MinistryId, true)
	if err != nil {
		return err
	}
	if count == 0 {
		return errors.New("ministry not found")
	}
	if err := utils.ValidateResourceId[FiscalYear](ctx, organizationId, input.FiscalYearId); err != nil {
		return errors.New("fiscal year not found")
	}

	breakdownTotal := decimal.Zero
	for _, b := range input.Breakdowns {
		if b.Amount.LessThanOrEqual(decimal.Zero) {
			return errors.New("breakdown amounts must be positive")
		}
		if b.Month != nil && (*b.Month < 1 || *b.Month > 12) {
			return errors.New("breakdown month must be between 1 and 12")
		}
		breakdownTotal = breakdownTotal.Add(b.Amount)
	}
	if len(input.Breakdowns) > 0 && !breakdownTotal.Equal(input.RequestedAmount) {
		return errors.New("breakdown amounts must sum to the requested amount")
	}
	return nil
}

func CreateAllocationRequest(ctx context.Context, input *NewAllocationRequest) (*AllocationRequest, error) {
	db := config.GetDB()

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}
	requesterId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return nil, errors.New("user id is required")
	}
	requesterName, _ := utils.GetUserNameFromContext(ctx)

	if err := input.validate(ctx, organizationId); err != nil {
		return nil, err
	}

	allocation := AllocationRequest{
		OrganizationId:  organizationId,
		MinistryId:      input.MinistryId,
		FiscalYearId:    input.FiscalYearId,
		RequesterId:     requesterId,
		RequesterName:   requesterName,
		Title:           input.Title,
		Justification:   input.Justification,
		Period:          input.Period,
		RequestedAmount: input.RequestedAmount,
		Status:          AllocationStatusDraft,
	}

	tx := db.WithContext(ctx).Begin()
	if err := tx.Create(&allocation).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if len(input.Breakdowns) > 0 {
		breakdowns := make([]*BudgetBreakdown, 0, len(input.Breakdowns))
		for _, b := range input.Breakdowns {
			breakdowns = append(breakdowns, &BudgetBreakdown{
				OrganizationId:      organizationId,
				AllocationRequestId: allocation.ID,
				Category:            b.Category,
				Description:         b.Description,
				Amount:              b.Amount,
				Month:               b.Month,
			})
		}
		if err := tx.Create(&breakdowns).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := appendHistory(tx, ReferenceTypeAllocationRequest, allocation.ID, "created", "", string(AllocationStatusDraft), ""); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return GetAllocationRequest(ctx, allocation.ID)
}

// UpdateAllocationRequest replaces the editable fields and breakdown lines of
// a draft.
func UpdateAllocationRequest(ctx context.Context, id int, input *NewAllocationRequest) (*AllocationRequest, error) {
	db := config.GetDB()

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	allocation, err := GetAllocationRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if allocation.Status != AllocationStatusDraft {
		return nil, errors.New("only draft allocation requests can be edited")
	}
	if err := input.validate(ctx, organizationId); err != nil {
		return nil, err
	}

	tx := db.WithContext(ctx).Begin()
	if err := tx.Model(&AllocationRequest{}).Where("id = ?", id).Updates(map[string]interface{}{
		"ministry_id":      input.MinistryId,
		"fiscal_year_id":   input.FiscalYearId,
		"title":            input.Title,
		"justification":    input.Justification,
		"period":           input.Period,
		"requested_amount": input.RequestedAmount,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Where("allocation_request_id = ?", id).Delete(&BudgetBreakdown{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	for _, b := range input.Breakdowns {
		breakdown := BudgetBreakdown{
			OrganizationId:      organizationId,
			AllocationRequestId: id,
			Category:            b.Category,
			Description:         b.Description,
			Amount:              b.Amount,
			Month:               b.Month,
		}
		if err := tx.Create(&breakdown).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := appendHistory(tx, ReferenceTypeAllocationRequest, id, "updated", string(AllocationStatusDraft), string(AllocationStatusDraft), ""); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return GetAllocationRequest(ctx, id)
}

// DeleteAllocationRequest hard-deletes a draft together with its breakdown
// lines.
func DeleteAllocationRequest(ctx context.Context, id int) error {
	db := config.GetDB()

	allocation, err := GetAllocationRequest(ctx, id)
	if err != nil {
		return err
	}
	if allocation.Status != AllocationStatusDraft {
		return errors.New("only draft allocation requests can be deleted")
	}

	tx := db.WithContext(ctx).Begin()
	if err := tx.Where("allocation_request_id = ?", id).Delete(&BudgetBreakdown{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Delete(&AllocationRequest{}, id).Error; err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

func GetAllocationRequest(ctx context.Context, id int) (*AllocationRequest, error) {
	db := config.GetDB()

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	var allocation AllocationRequest
	if err := db.WithContext(ctx).Where("organization_id = ?", organizationId).
		First(&allocation, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	var breakdowns []*BudgetBreakdown
	if err := db.WithContext(ctx).
		Where("allocation_request_id = ?", id).
		Order("id ASC").
		Find(&breakdowns).Error; err != nil {
		return nil, err
	}
	allocation.Breakdowns = breakdowns
	return &allocation, nil
}

type AllocationRequestFilter struct {
	Status       AllocationStatus
	MinistryId   int
	FiscalYearId int
}

func ListAllocationRequests(ctx context.Context, filter AllocationRequestFilter) ([]*AllocationRequest, error) {

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("organization_id = ?", organizationId)
	if filter.Status != "" {
		dbCtx = dbCtx.Where("status = ?", filter.Status)
	}
	if filter.MinistryId > 0 {
		dbCtx = dbCtx.Where("ministry_id = ?", filter.MinistryId)
	}
	if filter.FiscalYearId > 0 {
		dbCtx = dbCtx.Where("fiscal_year_id = ?", filter.FiscalYearId)
	}

	var results []*AllocationRequest
	if err := dbCtx.Order("created_at DESC, id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
