package models

import (
	"context"
	"errors"
	"time"

	"github.com/gracepoint/budget_backend/config"
	"github.com/gracepoint/budget_backend/utils"
	"gorm.io/gorm"
)

// History is the append-only audit trail shared by expense and allocation
// requests. Rows are only ever inserted, always inside the same transaction as
// the entity write they describe. EntryHash chains each row to its predecessor
// for the same (reference_type, reference_id); see VerifyHistoryChain.
type History struct {
	ID             int       `gorm:"primary_key" json:"id"`
	OrganizationId string    `gorm:"index;not null" json:"organization_id"`
	ReferenceType  string    `gorm:"size:64;not null;index:idx_history_ref" json:"reference_type"`
	ReferenceID    int       `gorm:"not null;index:idx_history_ref" json:"reference_id"`
	ActionType     string    `gorm:"size:32;not null" json:"action_type"`
	PreviousStatus string    `gorm:"size:32" json:"previous_status"`
	NewStatus      string    `gorm:"size:32" json:"new_status"`
	Notes          string    `gorm:"type:text" json:"notes"`
	UserId         int       `gorm:"index;not null" json:"user_id"`
	UserName       string    `gorm:"size:100" json:"user_name"`
	PreviousHash   string    `gorm:"size:64" json:"previous_hash"`
	EntryHash      string    `gorm:"size:64;not null" json:"entry_hash"`
	CreatedAt      time.Time `gorm:"not null;index" json:"created_at"`
}

// appendHistory inserts one audit row as part of the caller's transaction.
// Actor identity comes from the transaction's context, same as every other
// tenant-scoped write.
func appendHistory(tx *gorm.DB, referenceType string, referenceId int, actionType string, previousStatus, newStatus, notes string) error {

	ctx := tx.Statement.Context
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return errors.New("organization id is required")
	}
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return errors.New("user id is required")
	}
	userName, ok := utils.GetUserNameFromContext(ctx)
	if !ok {
		return errors.New("user name is required")
	}

	// Hash over the previous link's hash. The transaction holds the entity row
	// lock, so two appends for the same entity cannot interleave here.
	var previousHash string
	var last History
	err := tx.Where("reference_type = ? AND reference_id = ?", referenceType, referenceId).
		Order("id DESC").First(&last).Error
	if err == nil {
		previousHash = last.EntryHash
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	history := History{
		OrganizationId: organizationId,
		ReferenceType:  referenceType,
		ReferenceID:    referenceId,
		ActionType:     actionType,
		PreviousStatus: previousStatus,
		NewStatus:      newStatus,
		Notes:          notes,
		UserId:         userId,
		UserName:       userName,
		PreviousHash:   previousHash,
		CreatedAt:      time.Now().UTC(),
	}
	entryHash, err := utils.GenerateChainHash(history.hashFields(), previousHash)
	if err != nil {
		return err
	}
	history.EntryHash = entryHash
	return tx.Create(&history).Error
}

// SaveHistory exposes the append-only write to the workflow package; it must
// run inside the same transaction as the entity mutation it records.
func SaveHistory(tx *gorm.DB, referenceType string, referenceId int, actionType string, previousStatus, newStatus, notes string) error {
	return appendHistory(tx, referenceType, referenceId, actionType, previousStatus, newStatus, notes)
}

func GetHistories(ctx context.Context, referenceType string, referenceId int) ([]*History, error) {

	db := config.GetDB()
	var results []*History

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	dbCtx := db.WithContext(ctx).Where("organization_id = ?", organizationId)
	if referenceType != "" {
		dbCtx = dbCtx.Where("reference_type = ?", referenceType)
	}
	if referenceId > 0 {
		dbCtx = dbCtx.Where("reference_id = ?", referenceId)
	}
	if err := dbCtx.Order("id ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

type ChainVerification struct {
	ReferenceType string `json:"reference_type"`
	ReferenceID   int    `json:"reference_id"`
	Entries       int    `json:"entries"`
	Valid         bool   `json:"valid"`
	BrokenAtID    int    `json:"broken_at_id,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

func (h *History) hashFields() utils.AuditEntryFields {
	return utils.AuditEntryFields{
		ReferenceType:  h.ReferenceType,
		ReferenceID:    h.ReferenceID,
		ActionType:     h.ActionType,
		PreviousStatus: h.PreviousStatus,
		NewStatus:      h.NewStatus,
		UserID:         h.UserId,
		UserName:       h.UserName,
		Notes:          h.Notes,
		CreatedAt:      h.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// VerifyHistoryChain walks an entity's audit trail and reports the first
// break, if any. Link continuity (each previous_hash matching its
// predecessor's entry_hash) is always checked; the stored hashes are
// recomputed for every entry only when HISTORY_CHAIN_FULL_VERIFY is set,
// otherwise only the latest link is re-hashed.
func VerifyHistoryChain(ctx context.Context, referenceType string, referenceId int) (*ChainVerification, error) {

	entries, err := GetHistories(ctx, referenceType, referenceId)
	if err != nil {
		return nil, err
	}
	return verifyChainEntries(referenceType, referenceId, entries, config.HistoryChainVerification())
}

func verifyChainEntries(referenceType string, referenceId int, entries []*History, fullVerify bool) (*ChainVerification, error) {

	result := &ChainVerification{
		ReferenceType: referenceType,
		ReferenceID:   referenceId,
		Entries:       len(entries),
		Valid:         true,
	}

	previousHash := ""
	for i, entry := range entries {
		if entry.PreviousHash != previousHash {
			result.Valid = false
			result.BrokenAtID = entry.ID
			result.Reason = "previous hash does not match prior entry"
			return result, nil
		}
		if fullVerify || i == len(entries)-1 {
			ok, err := utils.VerifyChainHash(entry.hashFields(), previousHash, entry.EntryHash)
			if err != nil {
				return nil, err
			}
			if !ok {
				result.Valid = false
				result.BrokenAtID = entry.ID
				result.Reason = "entry hash mismatch"
				return result, nil
			}
		}
		previousHash = entry.EntryHash
	}
	return result, nil
}
