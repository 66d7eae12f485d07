// ledger-rebuild recomputes every BudgetAllocation row from the approved
// allocation requests, for recovery after manual data surgery. The rebuild
// runs under the organization's posting lock so it cannot interleave with
// live approvals.
//
// Usage:
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//     go run ./cmd/ledger-rebuild -org church-main [-dry-run]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/gracepoint/budget_backend/config"
	"github.com/gracepoint/budget_backend/models"
	"github.com/gracepoint/budget_backend/utils"
	"github.com/gracepoint/budget_backend/workflow"
	"github.com/shopspring/decimal"
)

type ledgerKey struct {
	MinistryId   int
	FiscalYearId int
}

func main() {
	orgId := flag.String("org", "", "organization id to rebuild (required)")
	dryRun := flag.Bool("dry-run", false, "print the computed ledger without writing")
	flag.Parse()

	if *orgId == "" {
		fmt.Fprintln(os.Stderr, "usage: ledger-rebuild -org <id> [-dry-run]")
		os.Exit(2)
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	ctx = utils.SetOrganizationIdInContext(ctx, *orgId)
	ctx = utils.SetUserIdInContext(ctx, 0)
	ctx = utils.SetUserNameInContext(ctx, "LedgerRebuild")
	ctx = utils.SetIsAdminInContext(ctx, true)

	var approved []*models.AllocationRequest
	if err := db.WithContext(ctx).
		Where("organization_id = ? AND status IN ?", *orgId,
			[]models.AllocationStatus{models.AllocationStatusApproved, models.AllocationStatusPartiallyApproved}).
		Find(&approved).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to list approved allocation requests: %v\n", err)
		os.Exit(1)
	}

	ledger := map[ledgerKey]decimal.Decimal{}
	for _, a := range approved {
		key := ledgerKey{MinistryId: a.MinistryId, FiscalYearId: a.FiscalYearId}
		existing, ok := ledger[key]
		if !ok {
			existing = decimal.Zero
		}
		ledger[key] = existing.Add(a.ApprovedAmount)
	}

	if *dryRun {
		for key, amount := range ledger {
			fmt.Printf("ministry=%d fiscal_year=%d allocated=%s\n", key.MinistryId, key.FiscalYearId, amount.String())
		}
		fmt.Printf("dry run: %d ledger rows computed from %d approved requests\n", len(ledger), len(approved))
		return
	}

	if err := workflow.AcquirePostingLock(db.WithContext(ctx), *orgId); err != nil {
		fmt.Fprintf(os.Stderr, "failed to acquire posting lock: %v\n", err)
		os.Exit(1)
	}
	defer workflow.ReleasePostingLock(db.WithContext(ctx), *orgId)

	tx := db.WithContext(ctx).Begin()
	if err := tx.Where("organization_id = ?", *orgId).Delete(&models.BudgetAllocation{}).Error; err != nil {
		tx.Rollback()
		fmt.Fprintf(os.Stderr, "failed to clear ledger: %v\n", err)
		os.Exit(1)
	}
	for key, amount := range ledger {
		if _, err := models.AddToBudgetAllocationTx(tx, *orgId, key.MinistryId, key.FiscalYearId, amount); err != nil {
			tx.Rollback()
			fmt.Fprintf(os.Stderr, "failed to write ledger row (ministry=%d fiscal_year=%d): %v\n", key.MinistryId, key.FiscalYearId, err)
			os.Exit(1)
		}
	}
	if err := tx.Commit().Error; err != nil {
		fmt.Fprintf(os.Stderr, "commit failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("rebuilt %d ledger rows from %d approved requests\n", len(ledger), len(approved))
}
