package flags

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"
)

const (
	choicePlaceholderTemplateConstant = "<%s>"
	choiceSeparatorConstant           = "|"
	choiceListSeparatorConstant       = ", "
	choiceUsageEmptyTemplateConstant  = "`%s`"
	choiceUsageFullTemplateConstant   = "`%s` %s"
	choiceInvalidTemplateConstant     = "invalid value %q (expected one of %s)"
	choiceValueTypeConstant           = "string"
)

// FormatChoiceUsage renders usage text that lists the accepted values, upper-casing the default:
// "`<TABLE|csv|json>` Output format.".
func FormatChoiceUsage(defaultChoice string, choices []string, description string) string {
	defaultKey := normalizeChoice(defaultChoice)
	labels := make([]string, 0, len(choices))
	for _, choice := range uniqueChoices(choices) {
		if normalizeChoice(choice) == defaultKey {
			choice = strings.ToUpper(choice)
		}
		labels = append(labels, choice)
	}

	placeholder := fmt.Sprintf(choicePlaceholderTemplateConstant, strings.Join(labels, choiceSeparatorConstant))
	if trimmedDescription := strings.TrimSpace(description); len(trimmedDescription) > 0 {
		return fmt.Sprintf(choiceUsageFullTemplateConstant, placeholder, trimmedDescription)
	}
	return fmt.Sprintf(choiceUsageEmptyTemplateConstant, placeholder)
}

// ChoiceValue is a string flag restricted to a fixed set of lower-case values.
type ChoiceValue struct {
	choices []string
	current string
}

// AddChoiceFlag registers a flag that rejects values outside choices while parsing.
func AddChoiceFlag(flagSet *pflag.FlagSet, name string, defaultChoice string, choices []string, usage string) *ChoiceValue {
	value := &ChoiceValue{choices: uniqueChoices(choices), current: normalizeChoice(defaultChoice)}
	if flagSet == nil || len(name) == 0 {
		return value
	}
	flagSet.Var(value, name, FormatChoiceUsage(defaultChoice, choices, usage))
	return value
}

// Set accepts any case and surrounding whitespace.
func (value *ChoiceValue) Set(rawValue string) error {
	normalized := normalizeChoice(rawValue)
	for _, choice := range value.choices {
		if normalizeChoice(choice) == normalized {
			value.current = normalized
			return nil
		}
	}
	return fmt.Errorf(choiceInvalidTemplateConstant, rawValue, strings.Join(value.choices, choiceListSeparatorConstant))
}

func (value *ChoiceValue) String() string {
	if value == nil {
		return ""
	}
	return value.current
}

func (value *ChoiceValue) Type() string {
	return choiceValueTypeConstant
}

func normalizeChoice(choice string) string {
	return strings.ToLower(strings.TrimSpace(choice))
}

func uniqueChoices(choices []string) []string {
	unique := make([]string, 0, len(choices))
	keys := make([]string, 0, len(choices))
	for _, choice := range choices {
		key := normalizeChoice(choice)
		if len(key) == 0 || slices.Contains(keys, key) {
			continue
		}
		keys = append(keys, key)
		unique = append(unique, strings.TrimSpace(choice))
	}
	return unique
}
