package models

import (
	"context"
	"errors"

	"github.com/gracepoint/budget_backend/config"
	"github.com/gracepoint/budget_backend/utils"
)

type User struct {
	ID             int      `gorm:"primary_key" json:"id"`
	OrganizationId string   `gorm:"index;not null" json:"organization_id"`
	Email          string   `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Name           string   `gorm:"size:100;not null" json:"name"`
	Password       string   `gorm:"size:255;not null" json:"-"`
	Role           UserRole `gorm:"size:20;not null;default:requester" json:"role"`
	MinistryId     int      `gorm:"index" json:"ministry_id"`
	IsActive       *bool    `gorm:"not null;default:true" json:"is_active"`
	Base
}

type NewUser struct {
	Email      string   `json:"email" binding:"required,email"`
	Name       string   `json:"name" binding:"required"`
	Password   string   `json:"password" binding:"required,min=8"`
	Role       UserRole `json:"role"`
	MinistryId int      `json:"ministry_id"`
}

// UserProfile is the projection joined onto requests for display.
type UserProfile struct {
	ID    int      `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Role  UserRole `json:"role"`
}

func (u User) GetOrganizationId() string {
	return u.OrganizationId
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {
	db := config.GetDB()

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}
	if !utils.IsValidEmail(input.Email) {
		return nil, errors.New("invalid email")
	}
	role := input.Role
	if role == "" {
		role = UserRoleRequester
	}
	if !role.Valid() {
		return nil, errors.New("invalid role")
	}
	if err := utils.ValidateUnique[User](ctx, "", "email", input.Email, 0); err != nil {
		return nil, errors.New("email already registered")
	}
	if input.MinistryId > 0 {
		if err := utils.ValidateResourceId[Ministry](ctx, organizationId, input.MinistryId); err != nil {
			return nil, errors.New("ministry not found")
		}
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := User{
		OrganizationId: organizationId,
		Email:          input.Email,
		Name:           input.Name,
		Password:       string(hashed),
		Role:           role,
		MinistryId:     input.MinistryId,
		IsActive:       utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func GetUserByEmail(ctx context.Context, email string) (*User, error) {
	db := config.GetDB()
	var user User
	// login happens before tenant context exists
	lookupCtx := utils.SetSkipTenantScopeInContext(ctx, true)
	if err := db.WithContext(lookupCtx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &user, nil
}

func GetUser(ctx context.Context, id int) (*User, error) {
	return GetResource[User](ctx, id)
}

// GetUserProfiles batch-resolves display profiles for a set of user ids in one
// query. Unknown ids are simply absent from the result map.
func GetUserProfiles(ctx context.Context, ids []int) (map[int]UserProfile, error) {
	profiles := make(map[int]UserProfile, len(ids))

	filtered := make([]int, 0, len(ids))
	for _, id := range utils.UniqueSlice(ids) {
		if id > 0 {
			filtered = append(filtered, id)
		}
	}
	if len(filtered) == 0 {
		return profiles, nil
	}

	db := config.GetDB()
	var users []*User
	if err := db.WithContext(ctx).Where("id IN ?", filtered).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		profiles[u.ID] = UserProfile{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
	}
	return profiles, nil
}

func ListUsers(ctx context.Context) ([]*User, error) {
	return ListAllResource[User](ctx, "name")
}
