package workflow

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/auditdesk/internal/apiclient"
)

const (
	submitSpanNameConstant               = "workflow.SubmitChecklist"
	auditIdentifierAttributeConstant     = "audit.id"
	itemCountAttributeConstant           = "audit.checklist_items"
	submissionModeAttributeConstant      = "audit.submission_mode"
	checklistSubmittedMessageConstant    = "Checklist submitted"
	auditCompletedLogMessageConstant     = "Audit completed"
	submissionRetryMessageConstant       = "Retrying response submission"
	itemUpdatedMessageConstant           = "Checklist item saved"
	itemIdentifierLogFieldConstant       = "checklist_item"
	retryDelayLogFieldConstant           = "retry_in"
	modeLogFieldConstant                 = "mode"
	missingResponseFilledMessageConstant = "Filling unanswered checklist items with na"
	refreshFailedMessageConstant         = "Unable to refresh completed audit"
	filledCountLogFieldConstant          = "filled"
)

// SubmitChecklist stores every pending answer and then marks the audit completed. Completion
// is requested only after all answers were accepted; otherwise a SubmissionError lists the
// failed items and the audit stays open.
func (workflow *Workflow) SubmitChecklist(executionContext context.Context) (apiclient.Audit, error) {
	auditSnapshot, submissions, prepareError := workflow.prepareSubmission()
	if prepareError != nil {
		return apiclient.Audit{}, prepareError
	}

	spanContext, span := workflow.tracer.Start(executionContext, submitSpanNameConstant)
	defer span.End()
	span.SetAttributes(
		attribute.Int64(auditIdentifierAttributeConstant, auditSnapshot.ID),
		attribute.Int(itemCountAttributeConstant, len(submissions)),
		attribute.String(submissionModeAttributeConstant, string(workflow.configuration.SubmissionMode)),
	)

	var submissionError error
	switch workflow.configuration.SubmissionMode {
	case SubmissionModeBulk:
		submissionError = workflow.submitBulk(spanContext, auditSnapshot.ID, submissions)
	default:
		submissionError = workflow.submitParallel(spanContext, auditSnapshot.ID, submissions)
	}
	if submissionError != nil {
		span.RecordError(submissionError)
		span.SetStatus(codes.Error, submissionError.Error())
		return apiclient.Audit{}, submissionError
	}

	workflow.logger.Info(checklistSubmittedMessageConstant,
		zap.Int64(auditIdentifierLogFieldConstant, auditSnapshot.ID),
		zap.Int(itemCountLogFieldConstant, len(submissions)),
		zap.String(modeLogFieldConstant, string(workflow.configuration.SubmissionMode)),
	)

	isCompleted := true
	completionDate := workflow.clock.Now().UTC()
	completedAudit, completionError := workflow.client.UpdateAudit(spanContext, auditSnapshot.ID, apiclient.AuditUpdate{
		IsCompleted:    &isCompleted,
		CompletionDate: &completionDate,
	})
	if completionError != nil {
		span.RecordError(completionError)
		span.SetStatus(codes.Error, completionError.Error())
		return apiclient.Audit{}, fmt.Errorf(completionErrorTemplateConstant, auditSnapshot.ID, completionError)
	}

	if completedAudit.ID == 0 {
		completedAudit = auditSnapshot
	}
	completedAudit.IsCompleted = true
	if completedAudit.CompletionDate == nil {
		completedAudit.CompletionDate = &completionDate
	}
	if len(completedAudit.Checklists) == 0 {
		completedAudit.Checklists = auditSnapshot.Checklists
	}

	workflow.replaceAudit(completedAudit)
	workflow.logger.Info(auditCompletedLogMessageConstant, zap.Int64(auditIdentifierLogFieldConstant, completedAudit.ID))
	return completedAudit, nil
}

// Complete finishes the audit through the review step.
func (workflow *Workflow) Complete(executionContext context.Context) (apiclient.Audit, error) {
	workflow.mutex.Lock()
	if workflow.audit == nil {
		workflow.mutex.Unlock()
		return apiclient.Audit{}, ErrNoAuditLoaded
	}
	if workflow.audit.IsCompleted {
		workflow.mutex.Unlock()
		return apiclient.Audit{}, ErrAuditCompleted
	}
	auditID := workflow.audit.ID
	workflow.mutex.Unlock()

	if completionError := workflow.client.CompleteAudit(executionContext, auditID); completionError != nil {
		return apiclient.Audit{}, fmt.Errorf(completionErrorTemplateConstant, auditID, completionError)
	}

	refreshedAudit, fetchError := workflow.client.GetAudit(executionContext, auditID)
	if fetchError != nil {
		workflow.logger.Warn(refreshFailedMessageConstant, zap.Int64(auditIdentifierLogFieldConstant, auditID), zap.Error(fetchError))
		workflow.markCompletedLocally()
		return *workflow.Audit(), nil
	}
	refreshedAudit.IsCompleted = true
	if refreshedAudit.CompletionDate == nil {
		completionDate := workflow.clock.Now().UTC()
		refreshedAudit.CompletionDate = &completionDate
	}

	workflow.replaceAudit(refreshedAudit)
	workflow.logger.Info(auditCompletedLogMessageConstant, zap.Int64(auditIdentifierLogFieldConstant, auditID))
	return refreshedAudit, nil
}

// UpdateItem saves an item's completion flag and notes immediately. The local notes edit is kept
// even when the request fails; the completion flag changes locally only on success.
func (workflow *Workflow) UpdateItem(executionContext context.Context, itemID int64, isCompleted bool, notes string) (apiclient.ChecklistItem, error) {
	workflow.mutex.Lock()
	if workflow.audit == nil {
		workflow.mutex.Unlock()
		return apiclient.ChecklistItem{}, ErrNoAuditLoaded
	}
	itemIndex := findItemIndex(workflow.audit.Checklists, itemID)
	if itemIndex < 0 {
		workflow.mutex.Unlock()
		return apiclient.ChecklistItem{}, ValidationError{FieldName: itemFieldNameConstant, Message: fmt.Sprintf(unknownItemMessageTemplateConstant, itemID)}
	}
	workflow.audit.Checklists[itemIndex].Notes = notes
	workflow.mutex.Unlock()

	savedItem, updateError := workflow.client.UpdateChecklistItem(executionContext, itemID, apiclient.ChecklistItemUpdate{IsCompleted: isCompleted, Notes: notes})
	if updateError != nil {
		return apiclient.ChecklistItem{}, updateError
	}

	workflow.mutex.Lock()
	defer workflow.mutex.Unlock()
	if workflow.audit == nil {
		return savedItem, nil
	}
	if itemIndex = findItemIndex(workflow.audit.Checklists, itemID); itemIndex >= 0 {
		localItem := &workflow.audit.Checklists[itemIndex]
		localItem.IsCompleted = isCompleted
		if savedItem.ID == itemID {
			localItem.IsCompleted = savedItem.IsCompleted
			localItem.Notes = savedItem.Notes
		}
		workflow.logger.Debug(itemUpdatedMessageConstant, zap.Int64(itemIdentifierLogFieldConstant, itemID))
		return *localItem, nil
	}
	return savedItem, nil
}

func (workflow *Workflow) prepareSubmission() (apiclient.Audit, []apiclient.ResponseSubmission, error) {
	workflow.mutex.Lock()
	defer workflow.mutex.Unlock()

	if workflow.audit == nil {
		return apiclient.Audit{}, nil, ErrNoAuditLoaded
	}
	if workflow.audit.IsCompleted {
		return apiclient.Audit{}, nil, ErrAuditCompleted
	}

	knownItems := make(map[int64]struct{}, len(workflow.audit.Checklists))
	for _, item := range workflow.audit.Checklists {
		knownItems[item.ID] = struct{}{}
	}
	for itemID, pendingResponse := range workflow.pending {
		if _, known := knownItems[itemID]; !known {
			return apiclient.Audit{}, nil, ValidationError{FieldName: itemFieldNameConstant, Message: fmt.Sprintf(unknownItemMessageTemplateConstant, itemID)}
		}
		if !pendingResponse.Response.Valid() {
			return apiclient.Audit{}, nil, ValidationError{FieldName: responseFieldNameConstant, Message: invalidResponseMessageConstant}
		}
	}

	filledCount := 0
	for _, item := range workflow.audit.Checklists {
		if _, exists := workflow.pending[item.ID]; !exists {
			workflow.pending[item.ID] = PendingResponse{ChecklistItem: item.ID, Response: apiclient.ResponseValueNotApplicable}
			filledCount++
		}
	}
	if filledCount > 0 {
		workflow.logger.Debug(missingResponseFilledMessageConstant, zap.Int(filledCountLogFieldConstant, filledCount))
	}

	ordered := workflow.orderedPendingLocked()
	submissions := make([]apiclient.ResponseSubmission, 0, len(ordered))
	for _, pendingResponse := range ordered {
		submissions = append(submissions, apiclient.ResponseSubmission{
			ChecklistItem: pendingResponse.ChecklistItem,
			Response:      pendingResponse.Response,
			Notes:         pendingResponse.Notes,
		})
	}
	return copyAudit(*workflow.audit), submissions, nil
}

func (workflow *Workflow) submitParallel(executionContext context.Context, auditID int64, submissions []apiclient.ResponseSubmission) error {
	if len(submissions) == 0 {
		return nil
	}

	var (
		failureMutex sync.Mutex
		failures     = map[int64]error{}
		group        errgroup.Group
	)
	if workflow.configuration.MaxParallelSubmissions > 0 {
		group.SetLimit(workflow.configuration.MaxParallelSubmissions)
	}

	for _, submission := range submissions {
		group.Go(func() error {
			submitError := workflow.submitWithRetry(executionContext, auditID, submission)
			if submitError != nil {
				failureMutex.Lock()
				failures[submission.ChecklistItem] = submitError
				failureMutex.Unlock()
			}
			return submitError
		})
	}

	if waitError := group.Wait(); waitError == nil {
		return nil
	}
	return newSubmissionError(failures)
}

func (workflow *Workflow) submitBulk(executionContext context.Context, auditID int64, submissions []apiclient.ResponseSubmission) error {
	if len(submissions) == 0 {
		return nil
	}

	bulkOperation := func() error {
		_, submitError := workflow.client.SubmitResponses(executionContext, auditID, submissions)
		return submitError
	}
	submitError := workflow.retry(executionContext, bulkOperation, 0)
	if submitError == nil {
		return nil
	}

	failures := make(map[int64]error, len(submissions))
	for _, submission := range submissions {
		failures[submission.ChecklistItem] = submitError
	}
	return newSubmissionError(failures)
}

func (workflow *Workflow) submitWithRetry(executionContext context.Context, auditID int64, submission apiclient.ResponseSubmission) error {
	return workflow.retry(executionContext, func() error {
		_, submitError := workflow.client.SubmitResponse(executionContext, auditID, submission)
		return submitError
	}, submission.ChecklistItem)
}

func (workflow *Workflow) retry(executionContext context.Context, operation func() error, itemID int64) error {
	if workflow.configuration.MaxRetries <= 0 {
		return operation()
	}

	exponentialPolicy := backoff.NewExponentialBackOff()
	exponentialPolicy.InitialInterval = workflow.configuration.RetryInitialInterval
	retryPolicy := backoff.WithContext(backoff.WithMaxRetries(exponentialPolicy, uint64(workflow.configuration.MaxRetries)), executionContext)

	retriableOperation := func() error {
		operationError := operation()
		if operationError == nil || isRetriable(operationError) {
			return operationError
		}
		return backoff.Permanent(operationError)
	}
	notify := func(operationError error, delay time.Duration) {
		workflow.logger.Debug(submissionRetryMessageConstant,
			zap.Int64(itemIdentifierLogFieldConstant, itemID),
			zap.Duration(retryDelayLogFieldConstant, delay),
			zap.Error(operationError),
		)
	}
	return backoff.RetryNotify(retriableOperation, retryPolicy, notify)
}

func isRetriable(operationError error) bool {
	var transportError apiclient.OperationError
	if errors.As(operationError, &transportError) {
		return !errors.Is(operationError, context.Canceled) && !errors.Is(operationError, context.DeadlineExceeded)
	}
	var apiError apiclient.APIError
	if errors.As(operationError, &apiError) {
		return apiError.StatusCode == http.StatusTooManyRequests || apiError.StatusCode >= http.StatusInternalServerError
	}
	return false
}

func (workflow *Workflow) replaceAudit(audit apiclient.Audit) {
	replaced := copyAudit(audit)
	workflow.mutex.Lock()
	workflow.audit = &replaced
	workflow.mutex.Unlock()
}

func (workflow *Workflow) markCompletedLocally() {
	completionDate := workflow.clock.Now().UTC()
	workflow.mutex.Lock()
	defer workflow.mutex.Unlock()
	if workflow.audit == nil {
		return
	}
	workflow.audit.IsCompleted = true
	if workflow.audit.CompletionDate == nil {
		workflow.audit.CompletionDate = &completionDate
	}
}

func findItemIndex(items []apiclient.ChecklistItem, itemID int64) int {
	for itemIndex := range items {
		if items[itemIndex].ID == itemID {
			return itemIndex
		}
	}
	return -1
}
