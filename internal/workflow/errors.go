package workflow

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	validationErrorTemplateConstant      = "%s: %s"
	submissionErrorTemplateConstant      = "submission failed for checklist items %s"
	submissionErrorCauseTemplateConstant = "submission failed for checklist items %s: %v"
	completionErrorTemplateConstant      = "audit %d completion failed: %w"
	itemIdentifierJoinConstant           = ", "
	noAuditLoadedMessageConstant         = "no audit loaded"
	auditCompletedMessageConstant        = "audit already completed"
	deletionDeclinedMessageConstant      = "audit deletion declined"
	clientMissingMessageConstant         = "workflow requires an audit client"
	unknownItemMessageTemplateConstant   = "unknown checklist item %d"
	invalidResponseMessageConstant       = "must be one of yes, no, na"
	fieldRequiredMessageConstant         = "value required"
	fieldChoiceMessageTemplateConstant   = "must be one of: %s"
	fieldInvalidMessageTemplateConstant  = "failed %s validation"
)

var (
	// ErrNoAuditLoaded indicates an operation needs an audit created or loaded first.
	ErrNoAuditLoaded = errors.New(noAuditLoadedMessageConstant)
	// ErrAuditCompleted indicates a completed audit received a mutation.
	ErrAuditCompleted = errors.New(auditCompletedMessageConstant)
	// ErrDeletionDeclined indicates the user declined the delete confirmation.
	ErrDeletionDeclined = errors.New(deletionDeclinedMessageConstant)
	// ErrClientNotConfigured indicates the workflow was constructed without an audit client.
	ErrClientNotConfigured = errors.New(clientMissingMessageConstant)
)

// ValidationError reports client-side input problems detected before any request is sent.
type ValidationError struct {
	FieldName string
	Message   string
}

// Error describes the invalid field.
func (validationError ValidationError) Error() string {
	return fmt.Sprintf(validationErrorTemplateConstant, validationError.FieldName, validationError.Message)
}

// SubmissionError lists the checklist items whose responses were not stored.
type SubmissionError struct {
	FailedItemIDs []int64
	Causes        map[int64]error
}

// Error describes the failed items and the first cause.
func (submissionError SubmissionError) Error() string {
	identifiers := make([]string, 0, len(submissionError.FailedItemIDs))
	for _, itemID := range submissionError.FailedItemIDs {
		identifiers = append(identifiers, fmt.Sprint(itemID))
	}
	joined := strings.Join(identifiers, itemIdentifierJoinConstant)

	if len(submissionError.FailedItemIDs) > 0 {
		if cause := submissionError.Causes[submissionError.FailedItemIDs[0]]; cause != nil {
			return fmt.Sprintf(submissionErrorCauseTemplateConstant, joined, cause)
		}
	}
	return fmt.Sprintf(submissionErrorTemplateConstant, joined)
}

// Unwrap exposes every underlying cause in item order.
func (submissionError SubmissionError) Unwrap() []error {
	causes := make([]error, 0, len(submissionError.Causes))
	for _, itemID := range submissionError.FailedItemIDs {
		if cause := submissionError.Causes[itemID]; cause != nil {
			causes = append(causes, cause)
		}
	}
	return causes
}

func newSubmissionError(causes map[int64]error) SubmissionError {
	failedItemIDs := make([]int64, 0, len(causes))
	for itemID := range causes {
		failedItemIDs = append(failedItemIDs, itemID)
	}
	sort.Slice(failedItemIDs, func(left int, right int) bool { return failedItemIDs[left] < failedItemIDs[right] })
	return SubmissionError{FailedItemIDs: failedItemIDs, Causes: causes}
}
