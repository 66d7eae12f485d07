package models

import (
	"github.com/gracepoint/budget_backend/config"
)

func MigrateDatabase() error {
	db := config.GetDB()
	return db.AutoMigrate(
		&User{},
		&Ministry{},
		&FiscalYear{},
		&ExpenseRequest{},
		&AllocationRequest{},
		&BudgetBreakdown{},
		&BudgetAllocation{},
		&Attachment{},
		&History{},
		&IdempotencyKey{},
	)
}
