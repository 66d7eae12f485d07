package models

import (
	"context"
	"errors"
	"time"

	"github.com/gracepoint/budget_backend/config"
	"github.com/gracepoint/budget_backend/utils"
)

type FiscalYear struct {
	ID             int       `gorm:"primary_key" json:"id"`
	OrganizationId string    `gorm:"index;not null" json:"organization_id"`
	Name           string    `gorm:"size:50;not null" json:"name" binding:"required"`
	StartDate      time.Time `gorm:"not null" json:"start_date" binding:"required"`
	EndDate        time.Time `gorm:"not null" json:"end_date" binding:"required"`
	IsCurrent      *bool     `gorm:"not null;default:false" json:"is_current"`
	Base
}

type NewFiscalYear struct {
	Name      string    `json:"name" binding:"required"`
	StartDate time.Time `json:"start_date" binding:"required"`
	EndDate   time.Time `json:"end_date" binding:"required"`
	IsCurrent bool      `json:"is_current"`
}

func (f FiscalYear) GetOrganizationId() string {
	return f.OrganizationId
}

func (input *NewFiscalYear) validate() error {
	if !input.EndDate.After(input.StartDate) {
		return errors.New("end date must be after start date")
	}
	return nil
}

func CreateFiscalYear(ctx context.Context, input *NewFiscalYear) (*FiscalYear, error) {
	db := config.GetDB()

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	if err := utils.ValidateUnique[FiscalYear](ctx, organizationId, "name", input.Name, 0); err != nil {
		return nil, err
	}

	fiscalYear := FiscalYear{
		OrganizationId: organizationId,
		Name:           input.Name,
		StartDate:      input.StartDate,
		EndDate:        input.EndDate,
		IsCurrent:      &input.IsCurrent,
	}

	tx := db.WithContext(ctx).Begin()
	if input.IsCurrent {
		// only one current fiscal year per organization
		if err := tx.Model(&FiscalYear{}).Where("organization_id = ?", organizationId).
			UpdateColumn("is_current", false).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := tx.Create(&fiscalYear).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := appendHistory(tx, ReferenceTypeFiscalYear, fiscalYear.ID, "created", "", "", ""); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	invalidateResourceCache[FiscalYear](organizationId, fiscalYear.ID)
	return &fiscalYear, nil
}

func UpdateFiscalYear(ctx context.Context, id int, input *NewFiscalYear) (*FiscalYear, error) {
	db := config.GetDB()

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	if _, err := GetFiscalYear(ctx, id); err != nil {
		return nil, err
	}
	if err := utils.ValidateUnique[FiscalYear](ctx, organizationId, "name", input.Name, id); err != nil {
		return nil, err
	}

	tx := db.WithContext(ctx).Begin()
	if input.IsCurrent {
		if err := tx.Model(&FiscalYear{}).Where("organization_id = ?", organizationId).
			UpdateColumn("is_current", false).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := tx.Model(&FiscalYear{}).Where("id = ?", id).Updates(map[string]interface{}{
		"name":       input.Name,
		"start_date": input.StartDate,
		"end_date":   input.EndDate,
		"is_current": input.IsCurrent,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := appendHistory(tx, ReferenceTypeFiscalYear, id, "updated", "", "", ""); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	invalidateResourceCache[FiscalYear](organizationId, id)
	return GetFiscalYear(ctx, id)
}

func GetFiscalYear(ctx context.Context, id int) (*FiscalYear, error) {
	return GetResource[FiscalYear](ctx, id)
}

func ListFiscalYears(ctx context.Context) ([]*FiscalYear, error) {
	return ListAllResource[FiscalYear](ctx, "start_date DESC")
}
