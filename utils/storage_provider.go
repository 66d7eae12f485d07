package utils

import (
	"os"
	"strings"
)

const (
	StorageProviderGCS = "gcs"
)

func GetStorageProvider() string {
	provider := strings.TrimSpace(strings.ToLower(os.Getenv("STORAGE_PROVIDER")))
	if provider == "" {
		return StorageProviderGCS
	}
	return provider
}

// DefaultAttachmentBucket returns the bucket that expense attachments live in.
func DefaultAttachmentBucket() string {
	bucket := strings.TrimSpace(os.Getenv("GCS_BUCKET"))
	if bucket == "" {
		return "expense-attachments"
	}
	return bucket
}
