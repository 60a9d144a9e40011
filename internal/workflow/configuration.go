package workflow

import (
	"fmt"
	"strings"
	"time"
)

const (
	defaultCategoryMarkerPrefixConstant = "Category"
	defaultRetryInitialIntervalConstant = 500 * time.Millisecond
	unsupportedModeTemplateConstant     = "unsupported submission mode %q (expected parallel or bulk)"
	negativeRetriesTemplateConstant     = "max retries must not be negative (got %d)"
)

// SubmissionMode selects how pending responses reach the service.
type SubmissionMode string

// Supported submission modes.
const (
	SubmissionModeParallel SubmissionMode = "parallel"
	SubmissionModeBulk     SubmissionMode = "bulk"
)

// Configuration tunes the workflow behavior.
type Configuration struct {
	CategoryMarkerPrefix   string         `mapstructure:"category_marker_prefix"`
	SubmissionMode         SubmissionMode `mapstructure:"submission_mode"`
	MaxRetries             int            `mapstructure:"max_retries"`
	RetryInitialInterval   time.Duration  `mapstructure:"retry_initial_interval"`
	// MaxParallelSubmissions caps concurrent response submissions; zero dispatches every submission at once.
	MaxParallelSubmissions int            `mapstructure:"max_parallel_submissions"`
}

// DefaultConfiguration returns the baseline workflow settings.
func DefaultConfiguration() Configuration {
	return Configuration{
		CategoryMarkerPrefix:   defaultCategoryMarkerPrefixConstant,
		SubmissionMode:         SubmissionModeParallel,
		MaxRetries:             0,
		RetryInitialInterval:   defaultRetryInitialIntervalConstant,
		MaxParallelSubmissions: 0,
	}
}

// Sanitize fills blank values with defaults and normalizes the submission mode.
func (configuration Configuration) Sanitize() Configuration {
	defaults := DefaultConfiguration()
	sanitized := configuration

	sanitized.CategoryMarkerPrefix = strings.TrimSpace(sanitized.CategoryMarkerPrefix)
	if len(sanitized.CategoryMarkerPrefix) == 0 {
		sanitized.CategoryMarkerPrefix = defaults.CategoryMarkerPrefix
	}

	sanitized.SubmissionMode = SubmissionMode(strings.ToLower(strings.TrimSpace(string(sanitized.SubmissionMode))))
	if len(sanitized.SubmissionMode) == 0 {
		sanitized.SubmissionMode = defaults.SubmissionMode
	}

	if sanitized.RetryInitialInterval <= 0 {
		sanitized.RetryInitialInterval = defaults.RetryInitialInterval
	}
	if sanitized.MaxParallelSubmissions < 0 {
		sanitized.MaxParallelSubmissions = defaults.MaxParallelSubmissions
	}

	return sanitized
}

// Validate reports unsupported settings.
func (configuration Configuration) Validate() error {
	switch configuration.SubmissionMode {
	case SubmissionModeParallel, SubmissionModeBulk:
	default:
		return fmt.Errorf(unsupportedModeTemplateConstant, configuration.SubmissionMode)
	}
	if configuration.MaxRetries < 0 {
		return fmt.Errorf(negativeRetriesTemplateConstant, configuration.MaxRetries)
	}
	return nil
}
