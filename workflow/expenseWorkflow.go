package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gracepoint/budget_backend/config"
	"github.com/gracepoint/budget_backend/models"
	"github.com/gracepoint/budget_backend/utils"
)

var ErrTransitionNotAllowed = errors.New("transition not allowed")

// transitionExpense moves a request to target, applies the stage-specific
// field updates and writes the history row, all in one transaction. The
// legality check runs before anything is written so an illegal call leaves
// the database untouched.
func transitionExpense(ctx context.Context,
	id int,
	target models.ExpenseStatus,
	actionType string,
	notes string,
	updates map[string]interface{},
) (*models.ExpenseRequest, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	expense, err := models.GetExpenseRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if config.StrictTransitionEnforcement() && !expense.Status.CanTransition(target) {
		return nil, fmt.Errorf("%w: cannot move expense request from %s to %s",
			ErrTransitionNotAllowed, expense.Status, target)
	}

	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = target

	tx := db.WithContext(ctx).Begin()
	if err := tx.Model(&models.ExpenseRequest{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "expenseWorkflow.go", "transitionExpense", "Updates", id, err)
		return nil, err
	}
	if err := models.SaveHistory(tx, models.ReferenceTypeExpenseRequest, id, actionType,
		string(expense.Status), string(target), notes); err != nil {
		tx.Rollback()
		config.LogError(logger, "expenseWorkflow.go", "transitionExpense", "SaveHistory", id, err)
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return models.GetExpenseRequest(ctx, id)
}

func reviewerStamp(ctx context.Context) (int, *time.Time, error) {
	reviewerId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return 0, nil, errors.New("user id is required")
	}
	now := time.Now().UTC()
	return reviewerId, &now, nil
}

// SubmitExpenseForReview moves a draft into the leader review queue.
func SubmitExpenseForReview(ctx context.Context, id int) (*models.ExpenseRequest, error) {
	now := time.Now().UTC()
	return transitionExpense(ctx, id, models.ExpenseStatusPendingLeader, "submitted", "",
		map[string]interface{}{"submitted_at": &now})
}

func LeaderApproveExpense(ctx context.Context, id int, notes string) (*models.ExpenseRequest, error) {
	reviewerId, reviewedAt, err := reviewerStamp(ctx)
	if err != nil {
		return nil, err
	}
	return transitionExpense(ctx, id, models.ExpenseStatusLeaderApproved, "leader_approved", notes,
		map[string]interface{}{
			"leader_reviewer_id": reviewerId,
			"leader_reviewed_at": reviewedAt,
			"leader_notes":       notes,
		})
}

func LeaderDenyExpense(ctx context.Context, id int, notes string) (*models.ExpenseRequest, error) {
	if notes == "" {
		return nil, errors.New("denial notes are required")
	}
	reviewerId, reviewedAt, err := reviewerStamp(ctx)
	if err != nil {
		return nil, err
	}
	return transitionExpense(ctx, id, models.ExpenseStatusLeaderDenied, "leader_denied", notes,
		map[string]interface{}{
			"leader_reviewer_id": reviewerId,
			"leader_reviewed_at": reviewedAt,
			"leader_notes":       notes,
		})
}

func TreasuryApproveExpense(ctx context.Context, id int, notes string) (*models.ExpenseRequest, error) {
	reviewerId, reviewedAt, err := reviewerStamp(ctx)
	if err != nil {
		return nil, err
	}
	return transitionExpense(ctx, id, models.ExpenseStatusTreasuryApproved, "treasury_approved", notes,
		map[string]interface{}{
			"treasury_reviewer_id": reviewerId,
			"treasury_reviewed_at": reviewedAt,
			"treasury_notes":       notes,
		})
}

func TreasuryDenyExpense(ctx context.Context, id int, notes string) (*models.ExpenseRequest, error) {
	if notes == "" {
		return nil, errors.New("denial notes are required")
	}
	reviewerId, reviewedAt, err := reviewerStamp(ctx)
	if err != nil {
		return nil, err
	}
	return transitionExpense(ctx, id, models.ExpenseStatusTreasuryDenied, "treasury_denied", notes,
		map[string]interface{}{
			"treasury_reviewer_id": reviewerId,
			"treasury_reviewed_at": reviewedAt,
			"treasury_notes":       notes,
		})
}

// ProcessExpensePayment completes a treasury-approved request. The payment
// reference is mandatory so completed rows always trace to a real payout.
func ProcessExpensePayment(ctx context.Context, id int, paymentReference, notes string) (*models.ExpenseRequest, error) {
	if paymentReference == "" {
		return nil, errors.New("payment reference is required")
	}
	processorId, processedAt, err := reviewerStamp(ctx)
	if err != nil {
		return nil, err
	}
	return transitionExpense(ctx, id, models.ExpenseStatusCompleted, "payment_processed", notes,
		map[string]interface{}{
			"finance_processor_id": processorId,
			"finance_processed_at": processedAt,
			"payment_reference":    paymentReference,
		})
}

// CancelExpense lets the requester withdraw a request that has not been
// reviewed yet. A reason is mandatory.
func CancelExpense(ctx context.Context, id int, reason string) (*models.ExpenseRequest, error) {
	if reason == "" {
		return nil, errors.New("cancellation reason is required")
	}
	expense, err := models.GetExpenseRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return nil, errors.New("user id is required")
	}
	isAdmin, _ := utils.GetIsAdminFromContext(ctx)
	if expense.RequesterId != userId && !isAdmin {
		return nil, errors.New("only the requester can cancel an expense request")
	}
	return transitionExpense(ctx, id, models.ExpenseStatusCancelled, "cancelled", reason,
		map[string]interface{}{"cancel_reason": reason})
}
