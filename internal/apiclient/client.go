package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	contentTypeHeaderConstant       = "Content-Type"
	acceptHeaderConstant            = "Accept"
	authorizationHeaderConstant     = "Authorization"
	requestIdentifierHeaderConstant = "X-Request-ID"
	jsonMediaTypeConstant           = "application/json"
	bearerPrefixConstant            = "Bearer "
	pathSeparatorConstant           = "/"
	defaultRequestTimeoutConstant   = 30 * time.Second
	nonFieldErrorsKeyConstant       = "non_field_errors"
	detailKeyConstant               = "detail"
	errorKeyConstant                = "error"
	messageKeyConstant              = "message"
	fieldMessageTemplateConstant    = "%s: %s"
	fieldMessageJoinConstant        = ", "
	fieldLinesJoinConstant          = "\n"
	baseURLFieldNameConstant        = "base_url"
	invalidBaseURLMessageConstant   = "must be an absolute http(s) url"
)

// OperationName describes a named REST call supported by the client.
type OperationName string

// TokenSource supplies the bearer token attached to outgoing requests.
type TokenSource interface {
	AccessToken() string
}

// UnauthorizedHandler is invoked whenever the service answers with 401.
type UnauthorizedHandler func()

// RequestEvent describes a single REST call for observers.
type RequestEvent struct {
	Operation OperationName
	Method    string
	Path      string
	RequestID string
}

// RequestObserver receives request lifecycle notifications.
type RequestObserver interface {
	RequestStarted(event RequestEvent)
	RequestCompleted(event RequestEvent, statusCode int, duration time.Duration)
	RequestFailed(event RequestEvent, failure error, duration time.Duration)
}

// Options configures a Client.
type Options struct {
	BaseURL             string
	Timeout             time.Duration
	HTTPClient          *http.Client
	TokenSource         TokenSource
	UnauthorizedHandler UnauthorizedHandler
	Observer            RequestObserver
}

// Client performs authenticated JSON calls against the audit service.
type Client struct {
	baseURL             string
	httpClient          *http.Client
	tokenSource         TokenSource
	unauthorizedHandler UnauthorizedHandler
	observer            RequestObserver
}

// NewClient validates the options and constructs a Client with an instrumented transport.
func NewClient(options Options) (*Client, error) {
	trimmedBaseURL := strings.TrimRight(strings.TrimSpace(options.BaseURL), pathSeparatorConstant)
	if len(trimmedBaseURL) == 0 {
		return nil, ErrBaseURLNotConfigured
	}

	parsedBaseURL, parseError := url.Parse(trimmedBaseURL)
	if parseError != nil || !parsedBaseURL.IsAbs() || (parsedBaseURL.Scheme != "http" && parsedBaseURL.Scheme != "https") {
		return nil, InvalidInputError{FieldName: baseURLFieldNameConstant, Message: invalidBaseURLMessageConstant}
	}

	httpClient := options.HTTPClient
	if httpClient == nil {
		timeout := options.Timeout
		if timeout <= 0 {
			timeout = defaultRequestTimeoutConstant
		}
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	return &Client{
		baseURL:             trimmedBaseURL,
		httpClient:          httpClient,
		tokenSource:         options.TokenSource,
		unauthorizedHandler: options.UnauthorizedHandler,
		observer:            options.Observer,
	}, nil
}

// BaseURL reports the service address requests are sent to.
func (client *Client) BaseURL() string {
	return client.baseURL
}

type requestCall struct {
	operation OperationName
	method    string
	path      string
	query     url.Values
	payload   any
	target    any
}

func (client *Client) execute(executionContext context.Context, call requestCall) error {
	var requestBody io.Reader
	if call.payload != nil {
		payloadBytes, encodingError := json.Marshal(call.payload)
		if encodingError != nil {
			return PayloadEncodingError{Operation: call.operation, Cause: encodingError}
		}
		requestBody = bytes.NewReader(payloadBytes)
	}

	requestURL := client.baseURL + call.path
	if len(call.query) > 0 {
		requestURL += "?" + call.query.Encode()
	}

	request, requestError := http.NewRequestWithContext(executionContext, call.method, requestURL, requestBody)
	if requestError != nil {
		return OperationError{Operation: call.operation, Cause: requestError}
	}

	requestIdentifier := uuid.NewString()
	request.Header.Set(acceptHeaderConstant, jsonMediaTypeConstant)
	request.Header.Set(requestIdentifierHeaderConstant, requestIdentifier)
	if requestBody != nil {
		request.Header.Set(contentTypeHeaderConstant, jsonMediaTypeConstant)
	}
	if client.tokenSource != nil {
		if accessToken := strings.TrimSpace(client.tokenSource.AccessToken()); len(accessToken) > 0 {
			request.Header.Set(authorizationHeaderConstant, bearerPrefixConstant+accessToken)
		}
	}

	event := RequestEvent{
		Operation: call.operation,
		Method:    call.method,
		Path:      call.path,
		RequestID: requestIdentifier,
	}
	client.notifyStarted(event)
	startedAt := time.Now()

	response, responseError := client.httpClient.Do(request)
	if responseError != nil {
		operationError := OperationError{Operation: call.operation, Cause: responseError}
		client.notifyFailed(event, operationError, time.Since(startedAt))
		return operationError
	}
	defer response.Body.Close()

	responseBody, readError := io.ReadAll(response.Body)
	if readError != nil {
		operationError := OperationError{Operation: call.operation, Cause: readError}
		client.notifyFailed(event, operationError, time.Since(startedAt))
		return operationError
	}

	if response.StatusCode == http.StatusUnauthorized && client.unauthorizedHandler != nil {
		client.unauthorizedHandler()
	}

	if response.StatusCode >= http.StatusBadRequest {
		apiError := decodeAPIError(call.operation, response.StatusCode, responseBody)
		client.notifyFailed(event, apiError, time.Since(startedAt))
		return apiError
	}

	client.notifyCompleted(event, response.StatusCode, time.Since(startedAt))

	if call.target == nil || response.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(responseBody)) == 0 {
		return nil
	}

	if decodingError := json.Unmarshal(responseBody, call.target); decodingError != nil {
		return ResponseDecodingError{Operation: call.operation, Cause: decodingError}
	}

	return nil
}

func (client *Client) notifyStarted(event RequestEvent) {
	if client.observer != nil {
		client.observer.RequestStarted(event)
	}
}

func (client *Client) notifyCompleted(event RequestEvent, statusCode int, duration time.Duration) {
	if client.observer != nil {
		client.observer.RequestCompleted(event, statusCode, duration)
	}
}

func (client *Client) notifyFailed(event RequestEvent, failure error, duration time.Duration) {
	if client.observer != nil {
		client.observer.RequestFailed(event, failure, duration)
	}
}

func decodeAPIError(operation OperationName, statusCode int, responseBody []byte) APIError {
	apiError := APIError{Operation: operation, StatusCode: statusCode}

	var payload map[string]json.RawMessage
	if decodingError := json.Unmarshal(responseBody, &payload); decodingError != nil {
		apiError.Message = strings.TrimSpace(string(responseBody))
		if len(apiError.Message) == 0 || len(apiError.Message) > 200 {
			apiError.Message = http.StatusText(statusCode)
		}
		return apiError
	}

	if messages := decodeMessages(payload[nonFieldErrorsKeyConstant]); len(messages) > 0 {
		apiError.Message = messages[0]
		return apiError
	}

	for _, messageKey := range []string{detailKeyConstant, errorKeyConstant, messageKeyConstant} {
		if messages := decodeMessages(payload[messageKey]); len(messages) > 0 {
			apiError.Message = messages[0]
			return apiError
		}
	}

	fieldNames := make([]string, 0, len(payload))
	for fieldName := range payload {
		fieldNames = append(fieldNames, fieldName)
	}
	sort.Strings(fieldNames)

	apiError.FieldErrors = make(map[string][]string, len(fieldNames))
	lines := make([]string, 0, len(fieldNames))
	for _, fieldName := range fieldNames {
		messages := decodeMessages(payload[fieldName])
		if len(messages) == 0 {
			continue
		}
		apiError.FieldErrors[fieldName] = messages
		lines = append(lines, fmt.Sprintf(fieldMessageTemplateConstant, fieldName, strings.Join(messages, fieldMessageJoinConstant)))
	}
	apiError.Message = strings.Join(lines, fieldLinesJoinConstant)

	return apiError
}

func decodeMessages(rawValue json.RawMessage) []string {
	if len(rawValue) == 0 {
		return nil
	}

	var single string
	if decodingError := json.Unmarshal(rawValue, &single); decodingError == nil {
		if len(strings.TrimSpace(single)) == 0 {
			return nil
		}
		return []string{single}
	}

	var multiple []string
	if decodingError := json.Unmarshal(rawValue, &multiple); decodingError == nil {
		return multiple
	}

	return nil
}

func resourcePath(segments ...any) string {
	var builder strings.Builder
	for _, segment := range segments {
		builder.WriteString(pathSeparatorConstant)
		builder.WriteString(strings.Trim(fmt.Sprint(segment), pathSeparatorConstant))
	}
	builder.WriteString(pathSeparatorConstant)
	return builder.String()
}

func requirePositiveIdentifier(fieldName string, identifier int64) error {
	if identifier <= 0 {
		return InvalidInputError{FieldName: fieldName, Message: positiveIdentifierMessageConstant}
	}
	return nil
}

// IsUnauthorized reports whether the error chain carries a 401 API error.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsNotFound reports whether the error chain carries a 404 API error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

const positiveIdentifierMessageConstant = "must be a positive identifier"
