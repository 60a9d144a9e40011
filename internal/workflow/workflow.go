package workflow

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/temirov/auditdesk/internal/apiclient"
)

const (
	tracerNameConstant                = "github.com/temirov/auditdesk/internal/workflow"
	jsonTagConstant                   = "json"
	creatingAuditMessageConstant      = "Creating audit"
	auditCreatedMessageConstant       = "Audit created"
	auditLoadedMessageConstant        = "Audit loaded"
	auditDeletedMessageConstant       = "Audit deleted"
	deletePromptTemplateConstant      = "Delete audit %d? This cannot be undone. [y/N] "
	auditIdentifierLogFieldConstant   = "audit_id"
	itemCountLogFieldConstant         = "items"
	stateLogFieldConstant             = "state"
	itemFieldNameConstant             = "checklist_item"
	responseFieldNameConstant         = "response"
	validationChoiceSeparatorConstant = ", "
)

// Dependencies configures the collaborators of a Workflow.
type Dependencies struct {
	Client   AuditClient
	Logger   *zap.Logger
	Clock    Clock
	Progress ProgressIndicator
	Tracer   trace.Tracer
}

// PendingResponse is an unsaved answer for a checklist item.
type PendingResponse struct {
	ChecklistItem int64
	Response      apiclient.ResponseValue
	Notes         string
}

// Workflow holds the audit being worked on and its pending answers.
type Workflow struct {
	mutex         sync.Mutex
	client        AuditClient
	logger        *zap.Logger
	clock         Clock
	progress      ProgressIndicator
	tracer        trace.Tracer
	validate      *validator.Validate
	configuration Configuration
	audit         *apiclient.Audit
	pending       map[int64]PendingResponse
}

// New constructs a Workflow in the Draft state.
func New(dependencies Dependencies, configuration Configuration) (*Workflow, error) {
	if dependencies.Client == nil {
		return nil, ErrClientNotConfigured
	}

	sanitizedConfiguration := configuration.Sanitize()
	if validationError := sanitizedConfiguration.Validate(); validationError != nil {
		return nil, validationError
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := dependencies.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	progress := dependencies.Progress
	if progress == nil {
		progress = silentProgressIndicator{}
	}
	tracer := dependencies.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerNameConstant)
	}

	return &Workflow{
		client:        dependencies.Client,
		logger:        logger,
		clock:         clock,
		progress:      progress,
		tracer:        tracer,
		validate:      newValidator(),
		configuration: sanitizedConfiguration,
		pending:       map[int64]PendingResponse{},
	}, nil
}

// Configuration returns the effective settings.
func (workflow *Workflow) Configuration() Configuration {
	return workflow.configuration
}

// State reports the lifecycle state of the current audit.
func (workflow *Workflow) State() State {
	workflow.mutex.Lock()
	defer workflow.mutex.Unlock()
	return DeriveState(workflow.audit)
}

// Audit returns a copy of the current audit, or nil in the Draft state.
func (workflow *Workflow) Audit() *apiclient.Audit {
	workflow.mutex.Lock()
	defer workflow.mutex.Unlock()
	if workflow.audit == nil {
		return nil
	}
	auditCopy := copyAudit(*workflow.audit)
	return &auditCopy
}

// Create validates the form and asks the service to create the audit and generate its checklist.
func (workflow *Workflow) Create(executionContext context.Context, request apiclient.CreateAuditRequest) (apiclient.Audit, error) {
	request = normalizeCreateRequest(request)
	if validationError := workflow.validateCreateRequest(request); validationError != nil {
		return apiclient.Audit{}, validationError
	}

	workflow.progress.Start(creatingAuditMessageConstant)
	defer workflow.progress.Stop()

	createdAudit, createError := workflow.client.CreateAudit(executionContext, request)
	if createError != nil {
		return apiclient.Audit{}, createError
	}

	workflow.adopt(createdAudit)
	workflow.logger.Info(auditCreatedMessageConstant,
		zap.Int64(auditIdentifierLogFieldConstant, createdAudit.ID),
		zap.Int(itemCountLogFieldConstant, len(createdAudit.Checklists)),
		zap.String(stateLogFieldConstant, string(DeriveState(&createdAudit))),
	)
	return createdAudit, nil
}

// Load fetches an audit and resets every pending answer to "na" with empty notes.
// A failed fetch leaves the previous state untouched.
func (workflow *Workflow) Load(executionContext context.Context, auditID int64) (apiclient.Audit, error) {
	loadedAudit, fetchError := workflow.client.GetAudit(executionContext, auditID)
	if fetchError != nil {
		return apiclient.Audit{}, fetchError
	}

	workflow.adopt(loadedAudit)
	workflow.logger.Debug(auditLoadedMessageConstant,
		zap.Int64(auditIdentifierLogFieldConstant, loadedAudit.ID),
		zap.Int(itemCountLogFieldConstant, len(loadedAudit.Checklists)),
	)
	return loadedAudit, nil
}

// Answer records a pending answer without touching the item's completion flag.
func (workflow *Workflow) Answer(itemID int64, value apiclient.ResponseValue, notes string) error {
	workflow.mutex.Lock()
	defer workflow.mutex.Unlock()

	if workflow.audit == nil {
		return ErrNoAuditLoaded
	}
	if workflow.audit.IsCompleted {
		return ErrAuditCompleted
	}
	if _, known := workflow.pending[itemID]; !known {
		return ValidationError{FieldName: itemFieldNameConstant, Message: fmt.Sprintf(unknownItemMessageTemplateConstant, itemID)}
	}
	if !value.Valid() {
		return ValidationError{FieldName: responseFieldNameConstant, Message: invalidResponseMessageConstant}
	}

	workflow.pending[itemID] = PendingResponse{ChecklistItem: itemID, Response: value, Notes: notes}
	return nil
}

// PendingResponses returns the pending answers in checklist order.
func (workflow *Workflow) PendingResponses() []PendingResponse {
	workflow.mutex.Lock()
	defer workflow.mutex.Unlock()
	return workflow.orderedPendingLocked()
}

// List returns the audits visible to the current user.
func (workflow *Workflow) List(executionContext context.Context) ([]apiclient.Audit, error) {
	return workflow.client.ListAudits(executionContext)
}

// Delete asks for confirmation unless assumeYes is set and then deletes the audit.
func (workflow *Workflow) Delete(executionContext context.Context, auditID int64, prompter ConfirmationPrompter, assumeYes bool) error {
	if !assumeYes {
		if prompter == nil {
			return ErrDeletionDeclined
		}
		confirmed, promptError := prompter.Confirm(fmt.Sprintf(deletePromptTemplateConstant, auditID))
		if promptError != nil {
			return promptError
		}
		if !confirmed {
			return ErrDeletionDeclined
		}
	}

	if deleteError := workflow.client.DeleteAudit(executionContext, auditID); deleteError != nil {
		return deleteError
	}

	workflow.mutex.Lock()
	if workflow.audit != nil && workflow.audit.ID == auditID {
		workflow.audit = nil
		workflow.pending = map[int64]PendingResponse{}
	}
	workflow.mutex.Unlock()

	workflow.logger.Info(auditDeletedMessageConstant, zap.Int64(auditIdentifierLogFieldConstant, auditID))
	return nil
}

func (workflow *Workflow) adopt(audit apiclient.Audit) {
	adopted := copyAudit(audit)
	pending := make(map[int64]PendingResponse, len(adopted.Checklists))
	for _, item := range adopted.Checklists {
		pending[item.ID] = PendingResponse{ChecklistItem: item.ID, Response: apiclient.ResponseValueNotApplicable}
	}

	workflow.mutex.Lock()
	workflow.audit = &adopted
	workflow.pending = pending
	workflow.mutex.Unlock()
}

func (workflow *Workflow) orderedPendingLocked() []PendingResponse {
	if workflow.audit == nil {
		return nil
	}
	ordered := make([]PendingResponse, 0, len(workflow.pending))
	for _, item := range workflow.audit.Checklists {
		if pendingResponse, exists := workflow.pending[item.ID]; exists {
			ordered = append(ordered, pendingResponse)
		}
	}
	return ordered
}

func (workflow *Workflow) validateCreateRequest(request apiclient.CreateAuditRequest) error {
	validationError := workflow.validate.Struct(request)
	if validationError == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(validationError, &fieldErrors) || len(fieldErrors) == 0 {
		return validationError
	}

	fieldError := fieldErrors[0]
	switch fieldError.Tag() {
	case "required":
		return ValidationError{FieldName: fieldError.Field(), Message: fieldRequiredMessageConstant}
	case "oneof":
		choices := strings.Join(strings.Fields(fieldError.Param()), validationChoiceSeparatorConstant)
		return ValidationError{FieldName: fieldError.Field(), Message: fmt.Sprintf(fieldChoiceMessageTemplateConstant, choices)}
	default:
		return ValidationError{FieldName: fieldError.Field(), Message: fmt.Sprintf(fieldInvalidMessageTemplateConstant, fieldError.Tag())}
	}
}

func newValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get(jsonTagConstant), ",")
		if len(name) == 0 || name == "-" {
			return field.Name
		}
		return name
	})
	return validate
}

func normalizeCreateRequest(request apiclient.CreateAuditRequest) apiclient.CreateAuditRequest {
	request.Title = strings.TrimSpace(request.Title)
	request.AuditType = strings.TrimSpace(request.AuditType)
	request.Organization = strings.TrimSpace(request.Organization)
	request.Industry = strings.TrimSpace(request.Industry)
	request.SpecificRequirements = strings.TrimSpace(request.SpecificRequirements)
	request.ComplexityLevel = strings.TrimSpace(request.ComplexityLevel)
	return request
}

func copyAudit(audit apiclient.Audit) apiclient.Audit {
	copied := audit
	copied.Checklists = append([]apiclient.ChecklistItem(nil), audit.Checklists...)
	sort.SliceStable(copied.Checklists, func(left int, right int) bool {
		return copied.Checklists[left].Order < copied.Checklists[right].Order
	})
	if audit.CompletionDate != nil {
		completionDate := *audit.CompletionDate
		copied.CompletionDate = &completionDate
	}
	return copied
}
