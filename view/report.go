package view

import (
	"errors"
	"strings"

	"github.com/JP-N/mumundo-web/models"
)

type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportReviewed  ReportStatus = "reviewed"
	ReportDismissed ReportStatus = "dismissed"
)

var ErrReportResolved = errors.New("report already resolved")

// ValidateReason rejects blank report reasons before any request is made.
func ValidateReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return models.ErrEmptyReason
	}

	return nil
}

// CanResolve reports whether moderation actions are still available. Only
// pending reports are actionable; reviewed and dismissed are terminal.
func CanResolve(r models.Report) bool {
	return ReportStatus(r.Status) == ReportPending
}

// Dismiss transitions pending -> dismissed. The playlist is untouched.
func Dismiss(r *models.Report) error {
	if !CanResolve(*r) {
		return ErrReportResolved
	}

	r.Status = string(ReportDismissed)
	return nil
}

// MarkReviewed transitions pending -> reviewed, recording that the underlying
// playlist was removed.
func MarkReviewed(r *models.Report) error {
	if !CanResolve(*r) {
		return ErrReportResolved
	}

	r.Status = string(ReportReviewed)
	return nil
}
