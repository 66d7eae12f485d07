package main

import (
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gracepoint/budget_backend/config"
	"github.com/gracepoint/budget_backend/models"
	"github.com/gracepoint/budget_backend/utils"
)

const maxUploadSizeBytes int64 = 5 * 1024 * 1024

const attachmentViewExpiry = time.Hour

type uploadSignRequest struct {
	FileName      string `json:"fileName" binding:"required"`
	MimeType      string `json:"mimeType" binding:"required"`
	Size          int64  `json:"size" binding:"required"`
	ReferenceType string `json:"referenceType"`
}

type uploadCompleteRequest struct {
	ObjectKey     string `json:"objectKey" binding:"required"`
	FileName      string `json:"fileName" binding:"required"`
	MimeType      string `json:"mimeType"`
	Size          int64  `json:"size"`
	ReferenceType string `json:"referenceType" binding:"required"`
	ReferenceID   int    `json:"referenceId" binding:"required"`
}

func sanitizeSegment(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range strings.ToLower(input) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '-')
		}
	}
	return strings.Trim(string(out), "-")
}

func buildObjectKey(organizationId, referenceType, fileName string) string {
	segment := sanitizeSegment(referenceType)
	if segment == "" {
		segment = "uploads"
	}
	name := sanitizeSegment(path.Base(fileName))
	if name == "" {
		name = "file"
	}
	return fmt.Sprintf("%s/%s/%s-%s", organizationId, segment, uuid.NewString(), name)
}

func validReferenceType(referenceType string) bool {
	switch referenceType {
	case models.ReferenceTypeExpenseRequest, models.ReferenceTypeAllocationRequest:
		return true
	}
	return false
}

// signUploadHandler issues a V4 signed PUT URL so the browser uploads straight
// to the bucket; the row is written on /uploads/complete.
func signUploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		organizationId, ok := utils.GetOrganizationIdFromContext(c.Request.Context())
		if !ok || organizationId == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req uploadSignRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		if req.Size > maxUploadSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 5MB limit"})
			return
		}
		if !utils.IsAllowedAttachmentMimeType(req.MimeType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported attachment type"})
			return
		}

		objectKey := buildObjectKey(organizationId, req.ReferenceType, req.FileName)
		signed, err := utils.SignUpload(c.Request.Context(), objectKey, req.MimeType, 15*time.Minute)
		if err != nil {
			config.LogError(logger, "uploads.go", "signUploadHandler", "SignUpload", objectKey, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not sign upload"})
			return
		}
		c.JSON(http.StatusOK, signed)
	}
}

// completeUploadHandler records the attachment row after the client's direct
// PUT finished. The object must actually exist in the bucket.
func completeUploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		organizationId, ok := utils.GetOrganizationIdFromContext(c.Request.Context())
		if !ok || organizationId == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req uploadCompleteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		if !validReferenceType(req.ReferenceType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported reference type"})
			return
		}
		// Object keys are namespaced per organization; refuse keys outside the
		// caller's namespace.
		if !strings.HasPrefix(req.ObjectKey, organizationId+"/") {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		exists, err := utils.ObjectExistsInGCS(c.Request.Context(), req.ObjectKey)
		if err != nil {
			config.LogError(logger, "uploads.go", "completeUploadHandler", "ObjectExistsInGCS", req.ObjectKey, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not verify upload"})
			return
		}
		if !exists {
			c.JSON(http.StatusBadRequest, gin.H{"error": "uploaded object not found"})
			return
		}

		attachment := models.Attachment{
			OrganizationId: organizationId,
			FileName:       req.FileName,
			ObjectKey:      req.ObjectKey,
			MimeType:       req.MimeType,
			Size:           req.Size,
			ReferenceType:  req.ReferenceType,
			ReferenceID:    req.ReferenceID,
		}
		if err := attachment.Store(config.GetDB().WithContext(c.Request.Context())); err != nil {
			config.LogError(logger, "uploads.go", "completeUploadHandler", "Store", req.ObjectKey, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store attachment"})
			return
		}
		c.JSON(http.StatusCreated, attachment)
	}
}

// uploadObjectHandler is the fallback multipart path for clients that can't do
// the sign-then-PUT flow; the server proxies the bytes to the bucket itself.
func uploadObjectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		organizationId, ok := utils.GetOrganizationIdFromContext(c.Request.Context())
		if !ok || organizationId == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		if fileHeader.Size > maxUploadSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 5MB limit"})
			return
		}
		referenceType := c.PostForm("referenceType")

		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
			return
		}
		defer file.Close()

		objectKey := buildObjectKey(organizationId, referenceType, fileHeader.Filename)
		mimeType, err := utils.UploadFileToGCS(c.Request.Context(), objectKey, file)
		if err != nil {
			config.LogError(logger, "uploads.go", "uploadObjectHandler", "UploadFileToGCS", objectKey, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"objectKey": objectKey,
			"mimeType":  mimeType,
			"fileName":  fileHeader.Filename,
			"size":      fileHeader.Size,
		})
	}
}

// attachmentViewHandler exchanges a stored object key for a short-lived
// signed GET URL.
func attachmentViewHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		attachment, err := models.GetAttachment(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}

		url, expiresAt, err := utils.SignObjectView(c.Request.Context(), attachment.ObjectKey, attachmentViewExpiry)
		if err != nil {
			config.LogError(logger, "uploads.go", "attachmentViewHandler", "SignObjectView", attachment.ObjectKey, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not sign view url"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"url":       url,
			"expiresAt": expiresAt,
			"fileName":  attachment.FileName,
			"mimeType":  attachment.MimeType,
		})
	}
}

func deleteAttachmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := models.DeleteAttachment(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func registerUploadRoutes(g *gin.RouterGroup) {
	g.POST("/uploads/sign", signUploadHandler())
	g.POST("/uploads/complete", completeUploadHandler())
	g.POST("/uploads", uploadObjectHandler())
	g.GET("/attachments/:id/url", attachmentViewHandler())
	g.DELETE("/attachments/:id", deleteAttachmentHandler())
}
