package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gracepoint/budget_backend/config"
	"github.com/gracepoint/budget_backend/models"
	"github.com/gracepoint/budget_backend/utils"
	"github.com/shopspring/decimal"
)

const allocationApprovalHandler = "allocation.approve"

// SubmitAllocationForReview moves a draft allocation request into the
// treasurer's queue.
func SubmitAllocationForReview(ctx context.Context, id int) (*models.AllocationRequest, error) {
	return transitionAllocation(ctx, id, models.AllocationStatusPending, "submitted", "",
		func(allocation *models.AllocationRequest) map[string]interface{} {
			now := time.Now().UTC()
			return map[string]interface{}{"submitted_at": &now}
		})
}

// ApproveAllocation approves a pending request for approvedAmount and credits
// the ministry's budget allocation ledger. The entire operation is one
// transaction guarded by a per-organization posting lock and a durable
// idempotency key, so a retried approval can never credit the ledger twice.
func ApproveAllocation(ctx context.Context, id int, approvedAmount decimal.Decimal, notes string) (*models.AllocationRequest, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}
	reviewerId, reviewedAt, err := reviewerStamp(ctx)
	if err != nil {
		return nil, err
	}

	allocation, err := models.GetAllocationRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if approvedAmount.LessThanOrEqual(decimal.Zero) {
		return nil, errors.New("approved amount must be positive")
	}
	if approvedAmount.GreaterThan(allocation.RequestedAmount) {
		return nil, errors.New("approved amount cannot exceed the requested amount")
	}

	target := models.AllocationStatusApproved
	actionType := "approved"
	if !approvedAmount.Equal(allocation.RequestedAmount) {
		target = models.AllocationStatusPartiallyApproved
		actionType = "partially_approved"
	}
	if config.StrictTransitionEnforcement() && !allocation.Status.CanTransition(target) {
		return nil, fmt.Errorf("%w: cannot move allocation request from %s to %s",
			ErrTransitionNotAllowed, allocation.Status, target)
	}

	messageId := fmt.Sprintf("%d", id)

	if err := AcquirePostingLock(db.WithContext(ctx), organizationId); err != nil {
		config.LogError(logger, "allocationWorkflow.go", "ApproveAllocation", "AcquirePostingLock", organizationId, err)
		return nil, err
	}
	defer ReleasePostingLock(db.WithContext(ctx), organizationId)

	tx := db.WithContext(ctx).Begin()

	skip, err := BeginIdempotency(tx, organizationId, allocationApprovalHandler, messageId)
	if err != nil {
		tx.Rollback()
		config.LogError(logger, "allocationWorkflow.go", "ApproveAllocation", "BeginIdempotency", messageId, err)
		return nil, err
	}
	if skip {
		tx.Rollback()
		return models.GetAllocationRequest(ctx, id)
	}

	if err := tx.Model(&models.AllocationRequest{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":          target,
		"approved_amount": approvedAmount,
		"reviewer_id":     reviewerId,
		"reviewed_at":     reviewedAt,
		"review_notes":    notes,
	}).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "allocationWorkflow.go", "ApproveAllocation", "Updates", id, err)
		return nil, err
	}

	if _, err := models.AddToBudgetAllocationTx(tx, organizationId, allocation.MinistryId, allocation.FiscalYearId, approvedAmount); err != nil {
		tx.Rollback()
		config.LogError(logger, "allocationWorkflow.go", "ApproveAllocation", "AddToBudgetAllocationTx", id, err)
		return nil, err
	}

	historyNotes := notes
	if historyNotes == "" {
		historyNotes = fmt.Sprintf("approved %s of %s", approvedAmount.String(), allocation.RequestedAmount.String())
	}
	if err := models.SaveHistory(tx, models.ReferenceTypeAllocationRequest, id, actionType,
		string(allocation.Status), string(target), historyNotes); err != nil {
		tx.Rollback()
		config.LogError(logger, "allocationWorkflow.go", "ApproveAllocation", "SaveHistory", id, err)
		return nil, err
	}

	if err := MarkIdempotencySucceeded(tx, organizationId, allocationApprovalHandler, messageId); err != nil {
		tx.Rollback()
		config.LogError(logger, "allocationWorkflow.go", "ApproveAllocation", "MarkIdempotencySucceeded", messageId, err)
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return models.GetAllocationRequest(ctx, id)
}

func DenyAllocation(ctx context.Context, id int, notes string) (*models.AllocationRequest, error) {
	if notes == "" {
		return nil, errors.New("denial notes are required")
	}
	reviewerId, reviewedAt, err := reviewerStamp(ctx)
	if err != nil {
		return nil, err
	}
	return transitionAllocation(ctx, id, models.AllocationStatusDenied, "denied", notes,
		func(allocation *models.AllocationRequest) map[string]interface{} {
			return map[string]interface{}{
				"reviewer_id":  reviewerId,
				"reviewed_at":  reviewedAt,
				"review_notes": notes,
			}
		})
}

func CancelAllocation(ctx context.Context, id int, reason string) (*models.AllocationRequest, error) {
	if reason == "" {
		return nil, errors.New("cancellation reason is required")
	}
	allocation, err := models.GetAllocationRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return nil, errors.New("user id is required")
	}
	isAdmin, _ := utils.GetIsAdminFromContext(ctx)
	if allocation.RequesterId != userId && !isAdmin {
		return nil, errors.New("only the requester can cancel an allocation request")
	}
	return transitionAllocation(ctx, id, models.AllocationStatusCancelled, "cancelled", reason,
		func(allocation *models.AllocationRequest) map[string]interface{} {
			return map[string]interface{}{"cancel_reason": reason}
		})
}

func transitionAllocation(ctx context.Context,
	id int,
	target models.AllocationStatus,
	actionType string,
	notes string,
	buildUpdates func(*models.AllocationRequest) map[string]interface{},
) (*models.AllocationRequest, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	allocation, err := models.GetAllocationRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if config.StrictTransitionEnforcement() && !allocation.Status.CanTransition(target) {
		return nil, fmt.Errorf("%w: cannot move allocation request from %s to %s",
			ErrTransitionNotAllowed, allocation.Status, target)
	}

	updates := buildUpdates(allocation)
	updates["status"] = target

	tx := db.WithContext(ctx).Begin()
	if err := tx.Model(&models.AllocationRequest{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "allocationWorkflow.go", "transitionAllocation", "Updates", id, err)
		return nil, err
	}
	if err := models.SaveHistory(tx, models.ReferenceTypeAllocationRequest, id, actionType,
		string(allocation.Status), string(target), notes); err != nil {
		tx.Rollback()
		config.LogError(logger, "allocationWorkflow.go", "transitionAllocation", "SaveHistory", id, err)
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return models.GetAllocationRequest(ctx, id)
}
