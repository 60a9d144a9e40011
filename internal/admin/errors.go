package admin

import (
	"errors"
	"fmt"
)

const (
	validationErrorTemplateConstant  = "%s: %s"
	deletionDeclinedMessageConstant  = "deletion declined"
	clientMissingMessageConstant     = "admin service requires an audit service client"
	emptyUpdateMessageConstant       = "no user changes provided"
	emailInvalidMessageConstant      = "must be a valid email address"
	usernameBlankMessageConstant     = "must not be blank"
	tokenBlankMessageConstant        = "value required"
	passwordBlankMessageConstant     = "must not be blank"
	identifierInvalidMessageConstant = "must be a positive identifier"
)

var (
	// ErrDeletionDeclined indicates the user declined a delete confirmation.
	ErrDeletionDeclined = errors.New(deletionDeclinedMessageConstant)
	// ErrClientNotConfigured indicates the service was constructed without a client.
	ErrClientNotConfigured = errors.New(clientMissingMessageConstant)
	// ErrNoChanges indicates an update carried no fields.
	ErrNoChanges = errors.New(emptyUpdateMessageConstant)
)

// ValidationError reports input rejected before any request is sent.
type ValidationError struct {
	FieldName string
	Message   string
}

// Error describes the invalid field.
func (validationError ValidationError) Error() string {
	return fmt.Sprintf(validationErrorTemplateConstant, validationError.FieldName, validationError.Message)
}
