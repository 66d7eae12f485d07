package models

import (
	"context"
	"errors"

	"github.com/gracepoint/budget_backend/config"
	"github.com/gracepoint/budget_backend/utils"
)

type Ministry struct {
	ID             int    `gorm:"primary_key" json:"id"`
	OrganizationId string `gorm:"index;not null" json:"organization_id"`
	Name           string `gorm:"size:100;not null" json:"name" binding:"required"`
	Description    string `gorm:"type:text" json:"description"`
	LeaderUserId   int    `gorm:"index" json:"leader_user_id"`
	IsActive       *bool  `gorm:"not null;default:true" json:"is_active"`
	Base
}

type NewMinistry struct {
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
	LeaderUserId int    `json:"leader_user_id"`
}

func (m Ministry) GetOrganizationId() string {
	return m.OrganizationId
}

func CreateMinistry(ctx context.Context, input *NewMinistry) (*Ministry, error) {
	db := config.GetDB()

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}
	if err := utils.ValidateUnique[Ministry](ctx, organizationId, "name", input.Name, 0); err != nil {
		return nil, err
	}
	if input.LeaderUserId > 0 {
		if err := utils.ValidateResourceId[User](ctx, organizationId, input.LeaderUserId); err != nil {
			return nil, errors.New("leader user not found")
		}
	}

	ministry := Ministry{
		OrganizationId: organizationId,
		Name:           input.Name,
		Description:    input.Description,
		LeaderUserId:   input.LeaderUserId,
		IsActive:       utils.NewTrue(),
	}

	tx := db.WithContext(ctx).Begin()
	if err := tx.Create(&ministry).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := appendHistory(tx, ReferenceTypeMinistry, ministry.ID, "created", "", "", ""); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	invalidateResourceCache[Ministry](organizationId, ministry.ID)
	return &ministry, nil
}

func UpdateMinistry(ctx context.Context, id int, input *NewMinistry) (*Ministry, error) {
	db := config.GetDB()

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	ministry, err := GetMinistry(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateUnique[Ministry](ctx, organizationId, "name", input.Name, id); err != nil {
		return nil, err
	}

	tx := db.WithContext(ctx).Begin()
	if err := tx.Model(&Ministry{}).Where("id = ?", id).Updates(map[string]interface{}{
		"name":           input.Name,
		"description":    input.Description,
		"leader_user_id": input.LeaderUserId,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := appendHistory(tx, ReferenceTypeMinistry, id, "updated", "", "", ""); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	invalidateResourceCache[Ministry](organizationId, id)
	ministry.Name = input.Name
	ministry.Description = input.Description
	ministry.LeaderUserId = input.LeaderUserId
	return ministry, nil
}

// ToggleMinistryActive soft-deletes (or restores) a ministry. Requests keep
// their ministry reference either way.
func ToggleMinistryActive(ctx context.Context, id int, isActive bool) (*Ministry, error) {
	db := config.GetDB()

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	ministry, err := GetMinistry(ctx, id)
	if err != nil {
		return nil, err
	}

	action := "deactivated"
	if isActive {
		action = "activated"
	}

	tx := db.WithContext(ctx).Begin()
	if err := tx.Model(&Ministry{}).Where("id = ?", id).
		UpdateColumn("is_active", isActive).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := appendHistory(tx, ReferenceTypeMinistry, id, action, "", "", ""); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	invalidateResourceCache[Ministry](organizationId, id)
	ministry.IsActive = &isActive
	return ministry, nil
}

func GetMinistry(ctx context.Context, id int) (*Ministry, error) {
	return GetResource[Ministry](ctx, id)
}

func ListMinistries(ctx context.Context) ([]*Ministry, error) {
	return ListAllResource[Ministry](ctx, "name")
}
