// seed-admin bootstraps an organization: admin user plus a default fiscal
// year, idempotently.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//     go run ./cmd/seed-admin -org church-main -email admin@example.org -password '...'
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gracepoint/budget_backend/config"
	"github.com/gracepoint/budget_backend/models"
	"github.com/gracepoint/budget_backend/utils"
	"gorm.io/gorm"
)

func main() {
	orgId := flag.String("org", "", "organization id to seed (required)")
	email := flag.String("email", "", "admin email (required)")
	password := flag.String("password", "", "admin password (required)")
	name := flag.String("name", "Administrator", "admin display name")
	flag.Parse()

	if *orgId == "" || *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: seed-admin -org <id> -email <email> -password <password>")
		os.Exit(2)
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	if err := models.MigrateDatabase(); err != nil {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}

	ctx = utils.SetOrganizationIdInContext(ctx, *orgId)
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Seed")
	ctx = utils.SetIsAdminInContext(ctx, true)
	ctx = utils.SetSkipTenantScopeInContext(ctx, true)

	hashed, err := utils.HashPassword(*password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}

	var existing models.User
	err = db.WithContext(ctx).Where("organization_id = ? AND email = ?", *orgId, *email).First(&existing).Error
	switch {
	case err == nil:
		if err := db.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
			"password":  string(hashed),
			"role":      models.UserRoleAdmin,
			"is_active": true,
		}).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to update admin user: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("updated admin user %s (id=%d)\n", *email, existing.ID)
	case err == gorm.ErrRecordNotFound:
		u := models.User{
			OrganizationId: *orgId,
			Email:          *email,
			Name:           *name,
			Password:       string(hashed),
			Role:           models.UserRoleAdmin,
			IsActive:       utils.NewTrue(),
		}
		if err := db.WithContext(ctx).Create(&u).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create admin user: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("created admin user %s (id=%d)\n", *email, u.ID)
	default:
		fmt.Fprintf(os.Stderr, "failed to lookup user: %v\n", err)
		os.Exit(1)
	}

	// Default fiscal year: calendar year, created only if the organization has
	// none yet.
	var count int64
	if err := db.WithContext(ctx).Model(&models.FiscalYear{}).
		Where("organization_id = ?", *orgId).Count(&count).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to count fiscal years: %v\n", err)
		os.Exit(1)
	}
	if count == 0 {
		year := time.Now().UTC().Year()
		fy := models.FiscalYear{
			OrganizationId: *orgId,
			Name:           fmt.Sprintf("FY %d", year),
			StartDate:      time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
			EndDate:        time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC),
			IsCurrent:      utils.NewTrue(),
		}
		if err := db.WithContext(ctx).Create(&fy).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create fiscal year: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("created fiscal year %q (id=%d)\n", fy.Name, fy.ID)
	}
}
