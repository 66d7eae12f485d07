package models

import (
	"context"
	"errors"
	"time"

	"github.com/gracepoint/budget_backend/config"
	"github.com/gracepoint/budget_backend/utils"
	"gorm.io/gorm"
)

// Attachment is a stored receipt/supporting document. Rows hold the GCS object
// key, never a public URL; viewing goes through a signed URL (see uploads.go).
type Attachment struct {
	ID             int       `gorm:"primary_key" json:"id"`
	OrganizationId string    `gorm:"index;not null" json:"organization_id"`
	FileName       string    `gorm:"size:255;not null" json:"file_name"`
	ObjectKey      string    `gorm:"size:512;not null" json:"object_key"`
	MimeType       string    `gorm:"size:100" json:"mime_type"`
	Size           int64     `json:"size"`
	ReferenceType  string    `gorm:"size:64;index:idx_attachment_ref" json:"reference_type"`
	ReferenceID    int       `gorm:"index:idx_attachment_ref" json:"reference_id"`
	UploadedAt     time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
}

type NewAttachment struct {
	FileName  string `json:"file_name" binding:"required"`
	ObjectKey string `json:"object_key" binding:"required"`
	MimeType  string `json:"mime_type"`
	Size      int64  `json:"size"`
}

func (a *Attachment) Store(tx *gorm.DB) error {
	return tx.Create(a).Error
}

func mapNewAttachments(input []*NewAttachment, organizationId, referenceType string, referenceId int) []*Attachment {
	var attachments []*Attachment
	for _, i := range input {
		attachments = append(attachments, &Attachment{
			OrganizationId: organizationId,
			FileName:       i.FileName,
			ObjectKey:      i.ObjectKey,
			MimeType:       i.MimeType,
			Size:           i.Size,
			ReferenceType:  referenceType,
			ReferenceID:    referenceId,
		})
	}
	return attachments
}

func GetAttachment(ctx context.Context, id int) (*Attachment, error) {
	db := config.GetDB()

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	var result Attachment
	if err := db.WithContext(ctx).Where("organization_id = ?", organizationId).
		First(&result, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &result, nil
}

func GetAttachmentsFor(ctx context.Context, referenceType string, referenceId int) ([]*Attachment, error) {
	db := config.GetDB()
	var results []*Attachment
	if err := db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", referenceType, referenceId).
		Order("id ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// DeleteAttachment removes the row and the stored object. Only attachments on
// draft entities are deletable; the caller checks that.
func DeleteAttachment(ctx context.Context, id int) error {
	db := config.GetDB()

	attachment, err := GetAttachment(ctx, id)
	if err != nil {
		return err
	}
	if err := db.WithContext(ctx).Delete(&Attachment{}, id).Error; err != nil {
		return err
	}
	if err := utils.DeleteFileFromGCS(ctx, attachment.ObjectKey); err != nil {
		// The row is gone; an orphaned object is a storage-cost problem, not a
		// correctness one. Log and move on.
		config.LogError(config.GetLogger(), "attachment.go", "DeleteAttachment", "DeleteFileFromGCS", attachment.ObjectKey, err)
	}
	return nil
}
