package utils

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	logLevelDebugStringConstant          = "debug"
	logLevelInfoStringConstant           = "info"
	logLevelWarnStringConstant           = "warn"
	logLevelErrorStringConstant          = "error"
	logFormatStructuredStringConstant    = "structured"
	logFormatConsoleStringConstant       = "console"
	unsupportedLogLevelTemplateConstant  = "unsupported log level %q (expected one of %s)"
	unsupportedLogFormatTemplateConstant = "unsupported log format %q (expected one of %s)"
	choiceJoinConstant                   = ", "
)

// LogLevel enumerates supported logging granularities.
type LogLevel string

// Exported log level constants for reuse across packages.
const (
	LogLevelDebug LogLevel = LogLevel(logLevelDebugStringConstant)
	LogLevelInfo  LogLevel = LogLevel(logLevelInfoStringConstant)
	LogLevelWarn  LogLevel = LogLevel(logLevelWarnStringConstant)
	LogLevelError LogLevel = LogLevel(logLevelErrorStringConstant)
)

// LogFormat enumerates supported logger output encodings.
type LogFormat string

// Exported log format constants for reuse across packages.
const (
	LogFormatStructured LogFormat = LogFormat(logFormatStructuredStringConstant)
	LogFormatConsole    LogFormat = LogFormat(logFormatConsoleStringConstant)
)

var logLevelOrder = []LogLevel{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError}

var logLevelMapping = map[LogLevel]zapcore.Level{
	LogLevelDebug: zapcore.DebugLevel,
	LogLevelInfo:  zapcore.InfoLevel,
	LogLevelWarn:  zapcore.WarnLevel,
	LogLevelError: zapcore.ErrorLevel,
}

// LogLevels lists the accepted level names from most to least verbose.
func LogLevels() []string {
	names := make([]string, 0, len(logLevelOrder))
	for _, level := range logLevelOrder {
		names = append(names, string(level))
	}
	return names
}

// LogFormats lists the accepted format names.
func LogFormats() []string {
	return []string{string(LogFormatStructured), string(LogFormatConsole)}
}

// ParseLogLevel normalizes a configured level name.
func ParseLogLevel(rawLevel string) (LogLevel, error) {
	level := LogLevel(strings.ToLower(strings.TrimSpace(rawLevel)))
	if _, exists := logLevelMapping[level]; !exists {
		return "", fmt.Errorf(unsupportedLogLevelTemplateConstant, rawLevel, strings.Join(LogLevels(), choiceJoinConstant))
	}
	return level, nil
}

// ParseLogFormat normalizes a configured format name.
func ParseLogFormat(rawFormat string) (LogFormat, error) {
	format := LogFormat(strings.ToLower(strings.TrimSpace(rawFormat)))
	if !slices.Contains(LogFormats(), string(format)) {
		return "", fmt.Errorf(unsupportedLogFormatTemplateConstant, rawFormat, strings.Join(LogFormats(), choiceJoinConstant))
	}
	return format, nil
}

// LoggerFactory builds zap.Logger instances with consistent configuration.
type LoggerFactory struct {
	writer io.Writer
}

// NewLoggerFactory constructs a logger factory writing to standard error.
func NewLoggerFactory() *LoggerFactory {
	return &LoggerFactory{}
}

// NewLoggerFactoryWithWriter constructs a logger factory writing to the provided destination.
func NewLoggerFactoryWithWriter(writer io.Writer) *LoggerFactory {
	return &LoggerFactory{writer: writer}
}

// CreateLogger produces a zap.Logger honoring the requested log level and format.
// Diagnostics never share stdout with command output.
func (factory *LoggerFactory) CreateLogger(requestedLogLevel LogLevel, requestedLogFormat LogFormat) (*zap.Logger, error) {
	zapLogLevel, levelExists := logLevelMapping[requestedLogLevel]
	if !levelExists {
		return nil, fmt.Errorf(unsupportedLogLevelTemplateConstant, requestedLogLevel, strings.Join(LogLevels(), choiceJoinConstant))
	}

	var encoder zapcore.Encoder
	switch requestedLogFormat {
	case LogFormatStructured:
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	case LogFormatConsole:
		encoderConfiguration := zap.NewDevelopmentEncoderConfig()
		encoderConfiguration.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfiguration)
	default:
		return nil, fmt.Errorf(unsupportedLogFormatTemplateConstant, requestedLogFormat, strings.Join(LogFormats(), choiceJoinConstant))
	}

	destination := zapcore.Lock(os.Stderr)
	if factory != nil && factory.writer != nil {
		destination = zapcore.AddSync(factory.writer)
	}

	core := zapcore.NewCore(encoder, destination, zap.NewAtomicLevelAt(zapLogLevel))
	options := []zap.Option{zap.ErrorOutput(destination)}
	if requestedLogFormat == LogFormatStructured {
		options = append(options, zap.AddStacktrace(zapcore.ErrorLevel))
	}
	return zap.New(core, options...), nil
}
