package models

import (
	"context"
	"errors"
	"time"

	"github.com/gracepoint/budget_backend/config"
	"github.com/gracepoint/budget_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ExpenseRequest struct {
	ID             int    `gorm:"primary_key" json:"id"`
	OrganizationId string `gorm:"index;not null" json:"organization_id"`
	MinistryId     int    `gorm:"index;not null" json:"ministry_id" binding:"required"`
	FiscalYearId   int    `gorm:"index;not null" json:"fiscal_year_id" binding:"required"`
	RequesterId    int    `gorm:"index;not null" json:"requester_id"`
	RequesterName  string `gorm:"size:100" json:"requester_name"`

	Title       string          `gorm:"size:255;not null" json:"title" binding:"required"`
	Description string          `gorm:"type:text" json:"description"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`

	ReimbursementMethod ReimbursementMethod `gorm:"size:20;not null" json:"reimbursement_method"`
	Tin                 string              `gorm:"size:30" json:"tin"`
	IsAdvancePayment    *bool               `gorm:"not null;default:false" json:"is_advance_payment"`

	// optional different-recipient payout
	DifferentRecipient *bool  `gorm:"not null;default:false" json:"different_recipient"`
	RecipientName      string `gorm:"size:100" json:"recipient_name"`
	RecipientBank      string `gorm:"size:100" json:"recipient_bank"`
	RecipientAccount   string `gorm:"size:50" json:"recipient_account"`

	Status      ExpenseStatus `gorm:"size:32;not null;index;default:draft" json:"status"`
	SubmittedAt *time.Time    `json:"submitted_at"`

	LeaderReviewerId   int        `gorm:"index" json:"leader_reviewer_id"`
	LeaderReviewedAt   *time.Time `json:"leader_reviewed_at"`
	LeaderNotes        string     `gorm:"type:text" json:"leader_notes"`
	TreasuryReviewerId int        `gorm:"index" json:"treasury_reviewer_id"`
	TreasuryReviewedAt *time.Time `json:"treasury_reviewed_at"`
	TreasuryNotes      string     `gorm:"type:text" json:"treasury_notes"`
	FinanceProcessorId int        `gorm:"index" json:"finance_processor_id"`
	FinanceProcessedAt *time.Time `json:"finance_processed_at"`
	PaymentReference   string     `gorm:"size:100" json:"payment_reference"`
	CancelReason       string     `gorm:"type:text" json:"cancel_reason"`

	Attachments []*Attachment `gorm:"-" json:"attachments,omitempty"`
	Base
}

type NewExpenseRequest struct {
	MinistryId          int                 `json:"ministry_id" binding:"required"`
	FiscalYearId        int                 `json:"fiscal_year_id" binding:"required"`
	Title               string              `json:"title" binding:"required"`
	Description         string              `json:"description"`
	Amount              decimal.Decimal     `json:"amount"`
	ReimbursementMethod ReimbursementMethod `json:"reimbursement_method" binding:"required"`
	Tin                 string              `json:"tin"`
	IsAdvancePayment    bool                `json:"is_advance_payment"`
	DifferentRecipient  bool                `json:"different_recipient"`
	RecipientName       string              `json:"recipient_name"`
	RecipientBank       string              `json:"recipient_bank"`
	RecipientAccount    string              `json:"recipient_account"`
	Attachments         []*NewAttachment    `json:"attachments"`
}

type ExpenseRequestFilter struct {
	Status       ExpenseStatus
	MinistryId   int
	FiscalYearId int
	RequesterId  int
	DateFrom     *time.Time
	DateTo       *time.Time
	Search       string
}

func (filter ExpenseRequestFilter) apply(dbCtx *gorm.DB) *gorm.DB {
	if filter.Status != "" {
		dbCtx = dbCtx.Where("status = ?", filter.Status)
	}
	if filter.MinistryId > 0 {
		dbCtx = dbCtx.Where("ministry_id = ?", filter.MinistryId)
	}
	if filter.FiscalYearId > 0 {
		dbCtx = dbCtx.Where("fiscal_year_id = ?", filter.FiscalYearId)
	}
	if filter.RequesterId > 0 {
		dbCtx = dbCtx.Where("requester_id = ?", filter.RequesterId)
	}
	if filter.DateFrom != nil {
		dbCtx = dbCtx.Where("created_at >= ?", filter.DateFrom)
	}
	if filter.DateTo != nil {
		dbCtx = dbCtx.Where("created_at <= ?", filter.DateTo)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		dbCtx = dbCtx.Where("title LIKE ? OR description LIKE ?", like, like)
	}
	return dbCtx
}

type ExpenseRequestsEdge Edge[ExpenseRequest]

type ExpenseRequestsConnection struct {
	PageInfo *PageInfo              `json:"pageInfo"`
	Edges    []*ExpenseRequestsEdge `json:"edges"`
}

func (e ExpenseRequest) GetId() int {
	return e.ID
}

func (e ExpenseRequest) GetCursor() string {
	return e.CreatedAt.UTC().Format(time.RFC3339Nano)
}

func (e ExpenseRequest) GetOrganizationId() string {
	return e.OrganizationId
}

// validate input for both create & update.
func (input *NewExpenseRequest) validate(ctx context.Context, organizationId string) error {
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return errors.New("amount must be positive")
	}
	if !input.ReimbursementMethod.Valid() {
		return errors.New("invalid reimbursement method")
	}

	// exists active ministry
	count, err := utils.ResourceCountWhere[Ministry](ctx, organizationId, "id = ? AND is_active = ?", input.MinistryId, true)
	if err != nil {
		return err
	}
	if count == 0 {
		return errors.New("ministry not found")
	}

	// exists fiscal year
	if err := utils.ValidateResourceId[FiscalYear](ctx, organizationId, input.FiscalYearId); err != nil {
		return errors.New("fiscal year not found")
	}

	if input.DifferentRecipient {
		if input.RecipientName == "" || input.RecipientAccount == "" {
			return errors.New("recipient name and account are required for a different recipient")
		}
	}
	return nil
}

func CreateExpenseRequest(ctx context.Context, input *NewExpenseRequest) (*ExpenseRequest, error) {
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

	expense := ExpenseRequest{
		OrganizationId:      organizationId,
		MinistryId:          input.MinistryId,
		FiscalYearId:        input.FiscalYearId,
		RequesterId:         requesterId,
		RequesterName:       requesterName,
		Title:               input.Title,
		Description:         input.Description,
		Amount:              input.Amount,
		ReimbursementMethod: input.ReimbursementMethod,
		Tin:                 input.Tin,
		IsAdvancePayment:    &input.IsAdvancePayment,
		DifferentRecipient:  &input.DifferentRecipient,
		RecipientName:       input.RecipientName,
		RecipientBank:       input.RecipientBank,
		RecipientAccount:    input.RecipientAccount,
		Status:              ExpenseStatusDraft,
	}

	tx := db.WithContext(ctx).Begin()
	if err := tx.Create(&expense).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	for _, attachment := range mapNewAttachments(input.Attachments, organizationId, ReferenceTypeExpenseRequest, expense.ID) {
		if err := attachment.Store(tx); err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := appendHistory(tx, ReferenceTypeExpenseRequest, expense.ID, "created", "", string(ExpenseStatusDraft), ""); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &expense, nil
}

// UpdateExpenseRequest rewrites the editable fields of a draft.
func UpdateExpenseRequest(ctx context.Context, id int, input *NewExpenseRequest) (*ExpenseRequest, error) {
	db := config.GetDB()

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	expense, err := GetExpenseRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if expense.Status != ExpenseStatusDraft {
		return nil, errors.New("only draft expense requests can be edited")
	}
	if err := input.validate(ctx, organizationId); err != nil {
		return nil, err
	}

	tx := db.WithContext(ctx).Begin()
	if err := tx.Model(&ExpenseRequest{}).Where("id = ?", id).Updates(map[string]interface{}{
		"ministry_id":          input.MinistryId,
		"fiscal_year_id":       input.FiscalYearId,
		"title":                input.Title,
		"description":          input.Description,
		"amount":               input.Amount,
		"reimbursement_method": input.ReimbursementMethod,
		"tin":                  input.Tin,
		"is_advance_payment":   input.IsAdvancePayment,
		"different_recipient":  input.DifferentRecipient,
		"recipient_name":       input.RecipientName,
		"recipient_bank":       input.RecipientBank,
		"recipient_account":    input.RecipientAccount,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := appendHistory(tx, ReferenceTypeExpenseRequest, id, "updated", string(ExpenseStatusDraft), string(ExpenseStatusDraft), ""); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return GetExpenseRequest(ctx, id)
}

// DeleteExpenseRequest hard-deletes a draft together with its attachments.
func DeleteExpenseRequest(ctx context.Context, id int) error {
	db := config.GetDB()

	expense, err := GetExpenseRequest(ctx, id)
	if err != nil {
		return err
	}
	if expense.Status != ExpenseStatusDraft {
		return errors.New("only draft expense requests can be deleted")
	}

	tx := db.WithContext(ctx).Begin()
	if err := tx.Where("reference_type = ? AND reference_id = ?", ReferenceTypeExpenseRequest, id).
		Delete(&Attachment{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Delete(&ExpenseRequest{}, id).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return err
	}

	for _, attachment := range expense.Attachments {
		if err := utils.DeleteFileFromGCS(ctx, attachment.ObjectKey); err != nil {
			config.LogError(config.GetLogger(), "expenseRequest.go", "DeleteExpenseRequest", "DeleteFileFromGCS", attachment.ObjectKey, err)
		}
	}
	return nil
}

// GetExpenseRequest fetches one request with its attachments.
func GetExpenseRequest(ctx context.Context, id int) (*ExpenseRequest, error) {
	db := config.GetDB()

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	var expense ExpenseRequest
	if err := db.WithContext(ctx).Where("organization_id = ?", organizationId).
		First(&expense, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	attachments, err := GetAttachmentsFor(ctx, ReferenceTypeExpenseRequest, expense.ID)
	if err != nil {
		return nil, err
	}
	expense.Attachments = attachments
	return &expense, nil
}

// ExpenseRequestDetail bundles a request with the display profiles of everyone
// who touched it, resolved in a single batched user query.
type ExpenseRequestDetail struct {
	*ExpenseRequest
	Requester        *UserProfile `json:"requester,omitempty"`
	LeaderReviewer   *UserProfile `json:"leader_reviewer,omitempty"`
	TreasuryReviewer *UserProfile `json:"treasury_reviewer,omitempty"`
	FinanceProcessor *UserProfile `json:"finance_processor,omitempty"`
}

func GetExpenseRequestDetail(ctx context.Context, id int) (*ExpenseRequestDetail, error) {
	expense, err := GetExpenseRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	profiles, err := GetUserProfiles(ctx, []int{
		expense.RequesterId,
		expense.LeaderReviewerId,
		expense.TreasuryReviewerId,
		expense.FinanceProcessorId,
	})
	if err != nil {
		return nil, err
	}

	detail := &ExpenseRequestDetail{ExpenseRequest: expense}
	if p, ok := profiles[expense.RequesterId]; ok {
		detail.Requester = &p
	}
	if p, ok := profiles[expense.LeaderReviewerId]; ok {
		detail.LeaderReviewer = &p
	}
	if p, ok := profiles[expense.TreasuryReviewerId]; ok {
		detail.TreasuryReviewer = &p
	}
	if p, ok := profiles[expense.FinanceProcessorId]; ok {
		detail.FinanceProcessor = &p
	}
	return detail, nil
}

func PaginateExpenseRequests(ctx context.Context, limit int, after *string, filter ExpenseRequestFilter) (*ExpenseRequestsConnection, error) {

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	db := config.GetDB()
	dbCtx := filter.apply(db.WithContext(ctx).Where("organization_id = ?", organizationId))

	edges, pageInfo, err := FetchPageCompositeCursor[ExpenseRequest](dbCtx, limit, after, "created_at")
	if err != nil {
		return nil, err
	}

	var connection ExpenseRequestsConnection
	connection.PageInfo = pageInfo
	for _, edge := range edges {
		e := ExpenseRequestsEdge(edge)
		connection.Edges = append(connection.Edges, &e)
	}
	return &connection, nil
}

// ListExpenseRequests returns the full filtered list (export paths need the
// whole set, not a page).
func ListExpenseRequests(ctx context.Context, filter ExpenseRequestFilter) ([]*ExpenseRequest, error) {

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	db := config.GetDB()
	dbCtx := filter.apply(db.WithContext(ctx).Where("organization_id = ?", organizationId))

	var results []*ExpenseRequest
	if err := dbCtx.Order("created_at DESC, id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// queueStatuses maps a review stage to the statuses waiting on it.
var queueStatuses = map[string][]ExpenseStatus{
	"leader":   {ExpenseStatusPendingLeader},
	"treasury": {ExpenseStatusLeaderApproved, ExpenseStatusPendingTreasury},
	"finance":  {ExpenseStatusTreasuryApproved, ExpenseStatusPendingFinance},
}

// ListReviewQueue returns the requests waiting on the given stage, oldest
// submission first.
func ListReviewQueue(ctx context.Context, stage string) ([]*ExpenseRequest, error) {

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}
	statuses, ok := queueStatuses[stage]
	if !ok {
		return nil, errors.New("unknown review stage")
	}

	db := config.GetDB()
	var results []*ExpenseRequest
	if err := db.WithContext(ctx).
		Where("organization_id = ? AND status IN ?", organizationId, statuses).
		Order("submitted_at ASC, id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

type ExpenseStatistics struct {
	PendingCount   int             `json:"pending_count"`
	PendingTotal   decimal.Decimal `json:"pending_total"`
	ApprovedCount  int             `json:"approved_count"`
	ApprovedTotal  decimal.Decimal `json:"approved_total"`
	CompletedCount int             `json:"completed_count"`
	CompletedTotal decimal.Decimal `json:"completed_total"`
	DeniedCount    int             `json:"denied_count"`
	CancelledCount int             `json:"cancelled_count"`
}

// pendingStatuses / approvedStatuses bucket the in-flight pipeline the same way
// the budget summary does.
var (
	pendingExpenseStatuses  = []ExpenseStatus{ExpenseStatusPendingLeader, ExpenseStatusLeaderApproved, ExpenseStatusPendingTreasury}
	approvedExpenseStatuses = []ExpenseStatus{ExpenseStatusTreasuryApproved, ExpenseStatusPendingFinance}
)

// ComputeExpenseStatistics buckets a list of requests by status. Pure function
// so the bucketing rules are testable without a database.
func ComputeExpenseStatistics(expenses []*ExpenseRequest) ExpenseStatistics {
	stats := ExpenseStatistics{
		PendingTotal:   decimal.Zero,
		ApprovedTotal:  decimal.Zero,
		CompletedTotal: decimal.Zero,
	}
	for _, e := range expenses {
		switch e.Status {
		case ExpenseStatusPendingLeader, ExpenseStatusLeaderApproved, ExpenseStatusPendingTreasury:
			stats.PendingCount++
			stats.PendingTotal = stats.PendingTotal.Add(e.Amount)
		case ExpenseStatusTreasuryApproved, ExpenseStatusPendingFinance:
			stats.ApprovedCount++
			stats.ApprovedTotal = stats.ApprovedTotal.Add(e.Amount)
		case ExpenseStatusCompleted:
			stats.CompletedCount++
			stats.CompletedTotal = stats.CompletedTotal.Add(e.Amount)
		case ExpenseStatusLeaderDenied, ExpenseStatusTreasuryDenied:
			stats.DeniedCount++
		case ExpenseStatusCancelled:
			stats.CancelledCount++
		}
	}
	return stats
}

func GetExpenseStatistics(ctx context.Context, filter ExpenseRequestFilter) (*ExpenseStatistics, error) {
	expenses, err := ListExpenseRequests(ctx, filter)
	if err != nil {
		return nil, err
	}
	stats := ComputeExpenseStatistics(expenses)
	return &stats, nil
}
