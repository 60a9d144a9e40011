package workflow

import (
	"context"
	"time"

	"github.com/temirov/auditdesk/internal/apiclient"
)

// AuditClient exposes the audit endpoints used by the workflow.
type AuditClient interface {
	ListAudits(executionContext context.Context) ([]apiclient.Audit, error)
	GetAudit(executionContext context.Context, auditID int64) (apiclient.Audit, error)
	CreateAudit(executionContext context.Context, request apiclient.CreateAuditRequest) (apiclient.Audit, error)
	UpdateAudit(executionContext context.Context, auditID int64, update apiclient.AuditUpdate) (apiclient.Audit, error)
	DeleteAudit(executionContext context.Context, auditID int64) error
	UpdateChecklistItem(executionContext context.Context, itemID int64, update apiclient.ChecklistItemUpdate) (apiclient.ChecklistItem, error)
	SubmitResponse(executionContext context.Context, auditID int64, submission apiclient.ResponseSubmission) (apiclient.AuditResponse, error)
	SubmitResponses(executionContext context.Context, auditID int64, submissions []apiclient.ResponseSubmission) ([]apiclient.AuditResponse, error)
	ListResponses(executionContext context.Context, auditID int64) ([]apiclient.AuditResponse, error)
	CompleteAudit(executionContext context.Context, auditID int64) error
}

// ConfirmationPrompter asks the user to confirm destructive operations.
type ConfirmationPrompter interface {
	Confirm(prompt string) (bool, error)
}

// ProgressIndicator signals that a long-running request is underway.
type ProgressIndicator interface {
	Start(message string)
	Stop()
}

// Clock abstracts time-dependent functionality for deterministic testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the standard library.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

type silentProgressIndicator struct{}

func (silentProgressIndicator) Start(string) {}

func (silentProgressIndicator) Stop() {}
