package session

import (
	"errors"
	"fmt"
)

const (
	validationErrorTemplateConstant        = "%s: %s"
	storeMissingMessageConstant            = "credentials store not configured"
	clientMissingMessageConstant           = "account client not bound to session"
	viewToggleRequiresAdminMessageConstant = "only administrators can switch to the standard user view"
	identifierRequiredMessageConstant      = "username or email required"
	passwordRequiredMessageConstant        = "password required"
	passwordMismatchMessageConstant        = "passwords do not match"
	emailInvalidMessageConstant            = "valid email address required"
	fieldRequiredMessageConstant           = "value required"
	accessTokenExpiredMessageConstant      = "access token expired"
	fieldInvalidMessageTemplateConstant    = "failed %s validation"
)

var (
	// ErrStoreNotConfigured indicates the provider was constructed without a credentials store.
	ErrStoreNotConfigured = errors.New(storeMissingMessageConstant)
	// ErrClientNotBound indicates an operation needed the account client before BindClient was called.
	ErrClientNotBound = errors.New(clientMissingMessageConstant)
	// ErrViewToggleRequiresAdmin indicates a non-administrator attempted to toggle the user view.
	ErrViewToggleRequiresAdmin = errors.New(viewToggleRequiresAdminMessageConstant)

	errAccessTokenExpired = errors.New(accessTokenExpiredMessageConstant)
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
