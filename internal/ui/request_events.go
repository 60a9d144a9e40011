package ui

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/auditdesk/internal/apiclient"
)

const (
	requestStartedMessageTemplateConstant   = "Calling %s"
	requestCompletedMessageTemplateConstant = "%s returned %d in %s"
	requestFailedMessageTemplateConstant    = "%s failed after %s: %s"
	requestLabelTemplateConstant            = "%s %s (%s)"
	unknownFailureMessageConstant           = "unknown error"
	requestIdentifierLogFieldConstant       = "request_id"
	durationRoundingConstant                = time.Millisecond
)

// RequestEventFormatter builds human-readable messages for REST request lifecycle events.
type RequestEventFormatter struct{}

// BuildStartedMessage formats the message describing a request about to be sent.
func (formatter RequestEventFormatter) BuildStartedMessage(event apiclient.RequestEvent) string {
	return fmt.Sprintf(requestStartedMessageTemplateConstant, formatter.formatRequestLabel(event))
}

// BuildCompletedMessage formats the message describing a successful response.
func (formatter RequestEventFormatter) BuildCompletedMessage(event apiclient.RequestEvent, statusCode int, duration time.Duration) string {
	return fmt.Sprintf(requestCompletedMessageTemplateConstant, formatter.formatRequestLabel(event), statusCode, duration.Round(durationRoundingConstant))
}

// BuildFailureMessage formats the message describing a failed request.
func (formatter RequestEventFormatter) BuildFailureMessage(event apiclient.RequestEvent, failure error, duration time.Duration) string {
	failureMessage := unknownFailureMessageConstant
	if failure != nil {
		failureMessage = failure.Error()
	}
	return fmt.Sprintf(requestFailedMessageTemplateConstant, formatter.formatRequestLabel(event), duration.Round(durationRoundingConstant), failureMessage)
}

func (formatter RequestEventFormatter) formatRequestLabel(event apiclient.RequestEvent) string {
	return fmt.Sprintf(requestLabelTemplateConstant, event.Method, event.Path, event.Operation)
}

// ConsoleRequestEventLogger renders request lifecycle events using a zap logger configured for human-readable output.
type ConsoleRequestEventLogger struct {
	logger    *zap.Logger
	formatter RequestEventFormatter
}

// NewConsoleRequestEventLogger constructs a console event logger backed by the provided zap logger.
func NewConsoleRequestEventLogger(logger *zap.Logger) *ConsoleRequestEventLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleRequestEventLogger{logger: logger, formatter: RequestEventFormatter{}}
}

// RequestStarted implements apiclient.RequestObserver by logging request start notifications.
func (eventLogger *ConsoleRequestEventLogger) RequestStarted(event apiclient.RequestEvent) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Debug(eventLogger.formatter.BuildStartedMessage(event), zap.String(requestIdentifierLogFieldConstant, event.RequestID))
}

// RequestCompleted implements apiclient.RequestObserver by logging successful responses.
func (eventLogger *ConsoleRequestEventLogger) RequestCompleted(event apiclient.RequestEvent, statusCode int, duration time.Duration) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Debug(eventLogger.formatter.BuildCompletedMessage(event, statusCode, duration), zap.String(requestIdentifierLogFieldConstant, event.RequestID))
}

// RequestFailed implements apiclient.RequestObserver by logging failed requests.
func (eventLogger *ConsoleRequestEventLogger) RequestFailed(event apiclient.RequestEvent, failure error, duration time.Duration) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Warn(eventLogger.formatter.BuildFailureMessage(event, failure, duration), zap.String(requestIdentifierLogFieldConstant, event.RequestID))
}
