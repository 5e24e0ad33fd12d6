package domain

import (
	"fmt"
	"strings"
)

// AttachmentKind distinguishes listing photos from verification documents.
type AttachmentKind string

// Attachment kinds.
const (
	AttachmentImage      AttachmentKind = "image"
	AttachmentTaxReceipt AttachmentKind = "tax_receipt"
)

// DefaultMaxAttachmentBytes is the per-file limit (10 MiB).
const DefaultMaxAttachmentBytes int64 = 10 << 20

// FileRejection explains why one selected file was not accepted.
type FileRejection struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// CheckImage returns a user-facing reason the file cannot be used as a
// listing photo, or "" when it is acceptable.
func CheckImage(name, contentType string, size, limit int64) string {
	if !strings.HasPrefix(normalizeMIME(contentType), "image/") {
		return fmt.Sprintf("%s is not an image file", name)
	}
	if size > limit {
		return fmt.Sprintf("%s exceeds %s size limit", name, formatLimit(limit))
	}
	return ""
}

// CheckTaxReceipt returns a user-facing reason the file cannot be used as
// a verification document, or "" when it is acceptable.
func CheckTaxReceipt(contentType string, size, limit int64) string {
	mime := normalizeMIME(contentType)
	if !strings.HasPrefix(mime, "image/") && mime != "application/pdf" {
		return "Tax receipt must be an image or PDF file"
	}
	if size > limit {
		return fmt.Sprintf("File exceeds %s size limit", formatLimit(limit))
	}
	return ""
}

func normalizeMIME(contentType string) string {
	mime, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mime))
}

func formatLimit(limit int64) string {
	if limit%(1<<20) == 0 {
		return fmt.Sprintf("%dMB", limit>>20)
	}
	return fmt.Sprintf("%dKB", limit>>10)
}
