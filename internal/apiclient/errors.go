package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	baseURLMissingMessageConstant           = "api base url not configured"
	operationErrorMessageTemplateConstant   = "%s operation failed"
	operationErrorWithCauseTemplateConstant = "%s operation failed: %s"
	responseDecodingErrorTemplateConstant   = "%s response decoding failed: %s"
	payloadEncodingErrorTemplateConstant    = "%s payload encoding failed: %s"
	invalidInputErrorTemplateConstant       = "%s: %s"
	apiErrorTemplateConstant                = "%s failed with status %d: %s"
	unauthorizedMessageConstant             = "request not authorized"
	notFoundMessageConstant                 = "resource not found"
)

var (
	// ErrBaseURLNotConfigured indicates the client was constructed without a service address.
	ErrBaseURLNotConfigured = errors.New(baseURLMissingMessageConstant)
	// ErrUnauthorized matches APIError values carrying a 401 status.
	ErrUnauthorized = errors.New(unauthorizedMessageConstant)
	// ErrNotFound matches APIError values carrying a 404 status.
	ErrNotFound = errors.New(notFoundMessageConstant)
)

// InvalidInputError surfaces validation issues for operation inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// OperationError wraps transport failures that prevented a response from being received.
type OperationError struct {
	Operation OperationName
	Cause     error
}

// Error describes the operation failure.
func (operationError OperationError) Error() string {
	if operationError.Cause == nil {
		return fmt.Sprintf(operationErrorMessageTemplateConstant, operationError.Operation)
	}
	return fmt.Sprintf(operationErrorWithCauseTemplateConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// ResponseDecodingError indicates JSON decoding failures.
type ResponseDecodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the decoding failure.
func (decodingError ResponseDecodingError) Error() string {
	return fmt.Sprintf(responseDecodingErrorTemplateConstant, decodingError.Operation, decodingError.Cause)
}

// Unwrap exposes the underlying JSON error.
func (decodingError ResponseDecodingError) Unwrap() error {
	return decodingError.Cause
}

// PayloadEncodingError indicates JSON encoding issues.
type PayloadEncodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the encoding failure.
func (encodingError PayloadEncodingError) Error() string {
	return fmt.Sprintf(payloadEncodingErrorTemplateConstant, encodingError.Operation, encodingError.Cause)
}

// Unwrap exposes the underlying error.
func (encodingError PayloadEncodingError) Unwrap() error {
	return encodingError.Cause
}

// APIError reports a non-successful HTTP status returned by the service.
type APIError struct {
	Operation   OperationName
	StatusCode  int
	Message     string
	FieldErrors map[string][]string
}

// Error describes the server-side failure.
func (apiError APIError) Error() string {
	message := apiError.Message
	if len(message) == 0 {
		message = http.StatusText(apiError.StatusCode)
	}
	return fmt.Sprintf(apiErrorTemplateConstant, apiError.Operation, apiError.StatusCode, message)
}

// Is matches the status sentinels ErrUnauthorized and ErrNotFound.
func (apiError APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return apiError.StatusCode == http.StatusUnauthorized
	case ErrNotFound:
		return apiError.StatusCode == http.StatusNotFound
	default:
		return false
	}
}
