package apiclient

import (
	"context"
	"net/http"
)

const (
	listAuditsOperationNameConstant          = OperationName("ListAudits")
	getAuditOperationNameConstant            = OperationName("GetAudit")
	createAuditOperationNameConstant         = OperationName("CreateAudit")
	updateAuditOperationNameConstant         = OperationName("UpdateAudit")
	deleteAuditOperationNameConstant         = OperationName("DeleteAudit")
	updateChecklistItemOperationNameConstant = OperationName("UpdateChecklistItem")
	submitResponseOperationNameConstant      = OperationName("SubmitResponse")
	submitResponsesOperationNameConstant     = OperationName("SubmitResponses")
	listResponsesOperationNameConstant       = OperationName("ListResponses")
	completeAuditOperationNameConstant       = OperationName("CompleteAudit")
	auditsSegmentConstant                    = "audits"
	listSegmentConstant                      = "list"
	createSegmentConstant                    = "create"
	checklistItemsSegmentConstant            = "checklist-items"
	responsesSegmentConstant                 = "responses"
	completeSegmentConstant                  = "complete"
	auditIdentifierFieldNameConstant         = "audit_id"
	itemIdentifierFieldNameConstant          = "checklist_item"
	responseFieldNameConstant                = "response"
	invalidResponseValueMessageConstant      = "must be one of yes, no, na"
)

// ListAudits returns the audits visible to the authenticated user.
func (client *Client) ListAudits(executionContext context.Context) ([]Audit, error) {
	var audits []Audit
	executionError := client.execute(executionContext, requestCall{
		operation: listAuditsOperationNameConstant,
		method:    http.MethodGet,
		path:      resourcePath(auditsSegmentConstant, listSegmentConstant),
		target:    &audits,
	})
	if executionError != nil {
		return nil, executionError
	}
	return audits, nil
}

// GetAudit fetches a single audit with its checklist.
func (client *Client) GetAudit(executionContext context.Context, auditID int64) (Audit, error) {
	if validationError := requirePositiveIdentifier(auditIdentifierFieldNameConstant, auditID); validationError != nil {
		return Audit{}, validationError
	}

	var audit Audit
	executionError := client.execute(executionContext, requestCall{
		operation: getAuditOperationNameConstant,
		method:    http.MethodGet,
		path:      resourcePath(auditsSegmentConstant, listSegmentConstant, auditID),
		target:    &audit,
	})
	if executionError != nil {
		return Audit{}, executionError
	}
	return audit, nil
}

// CreateAudit submits a new audit; the service generates its checklist.
func (client *Client) CreateAudit(executionContext context.Context, request CreateAuditRequest) (Audit, error) {
	var audit Audit
	executionError := client.execute(executionContext, requestCall{
		operation: createAuditOperationNameConstant,
		method:    http.MethodPost,
		path:      resourcePath(auditsSegmentConstant, createSegmentConstant),
		payload:   request,
		target:    &audit,
	})
	if executionError != nil {
		return Audit{}, executionError
	}
	return audit, nil
}

// UpdateAudit applies a partial update to an audit.
func (client *Client) UpdateAudit(executionContext context.Context, auditID int64, update AuditUpdate) (Audit, error) {
	if validationError := requirePositiveIdentifier(auditIdentifierFieldNameConstant, auditID); validationError != nil {
		return Audit{}, validationError
	}

	var audit Audit
	executionError := client.execute(executionContext, requestCall{
		operation: updateAuditOperationNameConstant,
		method:    http.MethodPatch,
		path:      resourcePath(auditsSegmentConstant, listSegmentConstant, auditID),
		payload:   update,
		target:    &audit,
	})
	if executionError != nil {
		return Audit{}, executionError
	}
	return audit, nil
}

// DeleteAudit removes an audit permanently.
func (client *Client) DeleteAudit(executionContext context.Context, auditID int64) error {
	if validationError := requirePositiveIdentifier(auditIdentifierFieldNameConstant, auditID); validationError != nil {
		return validationError
	}

	return client.execute(executionContext, requestCall{
		operation: deleteAuditOperationNameConstant,
		method:    http.MethodDelete,
		path:      resourcePath(auditsSegmentConstant, listSegmentConstant, auditID),
	})
}

// UpdateChecklistItem saves the completion flag and notes of one checklist item.
func (client *Client) UpdateChecklistItem(executionContext context.Context, itemID int64, update ChecklistItemUpdate) (ChecklistItem, error) {
	if validationError := requirePositiveIdentifier(itemIdentifierFieldNameConstant, itemID); validationError != nil {
		return ChecklistItem{}, validationError
	}

	var item ChecklistItem
	executionError := client.execute(executionContext, requestCall{
		operation: updateChecklistItemOperationNameConstant,
		method:    http.MethodPatch,
		path:      resourcePath(checklistItemsSegmentConstant, itemID),
		payload:   update,
		target:    &item,
	})
	if executionError != nil {
		return ChecklistItem{}, executionError
	}
	return item, nil
}

// SubmitResponse creates or replaces the answer for one checklist item.
func (client *Client) SubmitResponse(executionContext context.Context, auditID int64, submission ResponseSubmission) (AuditResponse, error) {
	if validationError := validateSubmission(auditID, submission); validationError != nil {
		return AuditResponse{}, validationError
	}

	var response AuditResponse
	executionError := client.execute(executionContext, requestCall{
		operation: submitResponseOperationNameConstant,
		method:    http.MethodPost,
		path:      resourcePath(auditsSegmentConstant, auditID, responsesSegmentConstant),
		payload:   submission,
		target:    &response,
	})
	if executionError != nil {
		return AuditResponse{}, executionError
	}
	return response, nil
}

// SubmitResponses stores a full set of answers in a single request.
func (client *Client) SubmitResponses(executionContext context.Context, auditID int64, submissions []ResponseSubmission) ([]AuditResponse, error) {
	if validationError := requirePositiveIdentifier(auditIdentifierFieldNameConstant, auditID); validationError != nil {
		return nil, validationError
	}
	for _, submission := range submissions {
		if validationError := validateSubmission(auditID, submission); validationError != nil {
			return nil, validationError
		}
	}

	payload := struct {
		Responses []ResponseSubmission `json:"responses"`
	}{Responses: append([]ResponseSubmission{}, submissions...)}

	var responses []AuditResponse
	executionError := client.execute(executionContext, requestCall{
		operation: submitResponsesOperationNameConstant,
		method:    http.MethodPost,
		path:      resourcePath(auditsSegmentConstant, listSegmentConstant, auditID, responsesSegmentConstant),
		payload:   payload,
		target:    &responses,
	})
	if executionError != nil {
		return nil, executionError
	}
	return responses, nil
}

// ListResponses fetches the stored answers of an audit.
func (client *Client) ListResponses(executionContext context.Context, auditID int64) ([]AuditResponse, error) {
	if validationError := requirePositiveIdentifier(auditIdentifierFieldNameConstant, auditID); validationError != nil {
		return nil, validationError
	}

	var responses []AuditResponse
	executionError := client.execute(executionContext, requestCall{
		operation: listResponsesOperationNameConstant,
		method:    http.MethodGet,
		path:      resourcePath(auditsSegmentConstant, listSegmentConstant, auditID, responsesSegmentConstant),
		target:    &responses,
	})
	if executionError != nil {
		return nil, executionError
	}
	return responses, nil
}

// CompleteAudit marks an audit as completed through the review endpoint.
func (client *Client) CompleteAudit(executionContext context.Context, auditID int64) error {
	if validationError := requirePositiveIdentifier(auditIdentifierFieldNameConstant, auditID); validationError != nil {
		return validationError
	}

	return client.execute(executionContext, requestCall{
		operation: completeAuditOperationNameConstant,
		method:    http.MethodPost,
		path:      resourcePath(auditsSegmentConstant, listSegmentConstant, auditID, completeSegmentConstant),
	})
}

func validateSubmission(auditID int64, submission ResponseSubmission) error {
	if validationError := requirePositiveIdentifier(auditIdentifierFieldNameConstant, auditID); validationError != nil {
		return validationError
	}
	if validationError := requirePositiveIdentifier(itemIdentifierFieldNameConstant, submission.ChecklistItem); validationError != nil {
		return validationError
	}
	if !submission.Response.Valid() {
		return InvalidInputError{FieldName: responseFieldNameConstant, Message: invalidResponseValueMessageConstant}
	}
	return nil
}
