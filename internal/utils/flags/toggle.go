package flags

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/pflag"
)

const (
	toggleTrueLiteralConstant        = "true"
	toggleFalseLiteralConstant       = "false"
	toggleYesLiteralConstant         = "yes"
	toggleNoLiteralConstant          = "no"
	toggleOnLiteralConstant          = "on"
	toggleOffLiteralConstant         = "off"
	toggleOneLiteralConstant         = "1"
	toggleZeroLiteralConstant        = "0"
	toggleYLiteralConstant           = "y"
	toggleNLiteralConstant           = "n"
	toggleParseErrorTemplateConstant = "invalid toggle value %q (expected yes or no)"
	toggleTruePlaceholderConstant    = "<YES|no>"
	toggleFalsePlaceholderConstant   = "<yes|NO>"
	toggleUnsetPlaceholderConstant   = "<yes|no>"
	toggleUsageEmptyTemplateConstant = "`%s`"
	toggleUsageFullTemplateConstant  = "`%s` %s"
	toggleValueTypeConstant          = "bool"
	longFlagPrefixConstant           = "--"
	shortFlagPrefixConstant          = "-"
	flagValueSeparatorConstant       = "="
)

var (
	toggleLiterals = map[string]bool{
		toggleTrueLiteralConstant:  true,
		toggleYesLiteralConstant:   true,
		toggleOnLiteralConstant:    true,
		toggleOneLiteralConstant:   true,
		toggleYLiteralConstant:     true,
		toggleFalseLiteralConstant: false,
		toggleNoLiteralConstant:    false,
		toggleOffLiteralConstant:   false,
		toggleZeroLiteralConstant:  false,
		toggleNLiteralConstant:     false,
	}

	registeredToggles = &toggleRegistry{names: map[string]struct{}{}, shorthands: map[string]struct{}{}}
)

type toggleRegistry struct {
	mutex      sync.RWMutex
	names      map[string]struct{}
	shorthands map[string]struct{}
}

func (registry *toggleRegistry) register(name string, shorthand string) {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	registry.names[name] = struct{}{}
	if len(shorthand) > 0 {
		registry.shorthands[shorthand] = struct{}{}
	}
}

func (registry *toggleRegistry) hasName(name string) bool {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()
	_, exists := registry.names[name]
	return exists
}

func (registry *toggleRegistry) hasShorthand(shorthand string) bool {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()
	_, exists := registry.shorthands[shorthand]
	return exists
}

// AddToggleFlag registers a boolean toggle flag that accepts yes/no style values.
func AddToggleFlag(flagSet *pflag.FlagSet, target *bool, name string, shorthand string, defaultValue bool, usage string) {
	if flagSet == nil {
		return
	}
	if len(name) == 0 {
		return
	}

	toggleValue := newToggleFlagValue(defaultValue, target)
	if len(shorthand) > 0 {
		flagSet.VarP(toggleValue, name, shorthand, usage)
	} else {
		flagSet.Var(toggleValue, name, usage)
	}

	flag := flagSet.Lookup(name)
	if flag == nil {
		return
	}
	flag.NoOptDefVal = toggleTrueLiteralConstant
	flag.Usage = formatToggleUsage(usage, toggleDefaultPlaceholder(defaultValue))

	registeredToggles.register(name, shorthand)
}

// AddOptionalToggleFlag registers a yes/no flag without a meaningful default; read it with ChangedToggle.
func AddOptionalToggleFlag(flagSet *pflag.FlagSet, name string, shorthand string, usage string) {
	if flagSet == nil || len(name) == 0 {
		return
	}

	flagSet.VarP(newToggleFlagValue(false, nil), name, shorthand, usage)
	flag := flagSet.Lookup(name)
	if flag == nil {
		return
	}
	flag.NoOptDefVal = toggleTrueLiteralConstant
	flag.Usage = formatToggleUsage(usage, toggleUnsetPlaceholderConstant)

	registeredToggles.register(name, shorthand)
}

// ChangedToggle returns the parsed toggle value when the flag was set on the command line, or nil otherwise.
func ChangedToggle(flagSet *pflag.FlagSet, name string) *bool {
	if flagSet == nil {
		return nil
	}
	flag := flagSet.Lookup(name)
	if flag == nil || !flag.Changed {
		return nil
	}
	parsedValue, parseError := parseToggleValue(flag.Value.String())
	if parseError != nil {
		return nil
	}
	return &parsedValue
}

func toggleDefaultPlaceholder(defaultValue bool) string {
	if defaultValue {
		return toggleTruePlaceholderConstant
	}
	return toggleFalsePlaceholderConstant
}

func formatToggleUsage(description string, placeholder string) string {
	trimmed := strings.TrimSpace(description)
	if len(trimmed) == 0 {
		return fmt.Sprintf(toggleUsageEmptyTemplateConstant, placeholder)
	}
	return fmt.Sprintf(toggleUsageFullTemplateConstant, placeholder, trimmed)
}

// NormalizeToggleArguments rewrites toggle flag arguments so "--flag value" becomes "--flag=value" before parsing.
func NormalizeToggleArguments(arguments []string) []string {
	if len(arguments) == 0 {
		return nil
	}

	normalized := make([]string, 0, len(arguments))
	index := 0
	for index < len(arguments) {
		current := arguments[index]
		if current == longFlagPrefixConstant {
			normalized = append(normalized, arguments[index:]...)
			break
		}

		if normalizedArgument, consumed := normalizeToggleLong(current, arguments, index); consumed > 0 {
			normalized = append(normalized, normalizedArgument)
			index += consumed
			continue
		}

		if normalizedArgument, consumed := normalizeToggleShort(current, arguments, index); consumed > 0 {
			normalized = append(normalized, normalizedArgument)
			index += consumed
			continue
		}

		normalized = append(normalized, current)
		index++
	}

	return normalized
}

type toggleFlagValue struct {
	currentValue bool
	target       *bool
}

func newToggleFlagValue(defaultValue bool, target *bool) *toggleFlagValue {
	if target != nil {
		*target = defaultValue
	}
	return &toggleFlagValue{currentValue: defaultValue, target: target}
}

func (value *toggleFlagValue) Set(rawValue string) error {
	parsedValue, parseError := parseToggleValue(rawValue)
	if parseError != nil {
		return parseError
	}

	value.currentValue = parsedValue
	if value.target != nil {
		*value.target = parsedValue
	}

	return nil
}

func (value *toggleFlagValue) String() string {
	if value == nil || !value.currentValue {
		return toggleFalseLiteralConstant
	}
	return toggleTrueLiteralConstant
}

func (value *toggleFlagValue) Type() string {
	return toggleValueTypeConstant
}

func parseToggleValue(rawValue string) (bool, error) {
	normalizedValue := strings.ToLower(strings.TrimSpace(rawValue))
	if len(normalizedValue) == 0 {
		return true, nil
	}
	parsedValue, known := toggleLiterals[normalizedValue]
	if !known {
		return false, fmt.Errorf(toggleParseErrorTemplateConstant, rawValue)
	}
	return parsedValue, nil
}

func normalizeToggleLong(current string, arguments []string, index int) (string, int) {
	if !strings.HasPrefix(current, longFlagPrefixConstant) {
		return "", 0
	}
	name, hasValue := splitFlagArgument(strings.TrimPrefix(current, longFlagPrefixConstant))
	if len(name) == 0 || !registeredToggles.hasName(name) {
		return "", 0
	}
	return joinToggleValue(current, hasValue, arguments, index)
}

func normalizeToggleShort(current string, arguments []string, index int) (string, int) {
	if !strings.HasPrefix(current, shortFlagPrefixConstant) || strings.HasPrefix(current, longFlagPrefixConstant) {
		return "", 0
	}
	shorthand, hasValue := splitFlagArgument(strings.TrimPrefix(current, shortFlagPrefixConstant))
	if len(shorthand) != 1 || !registeredToggles.hasShorthand(shorthand) {
		return "", 0
	}
	return joinToggleValue(current, hasValue, arguments, index)
}

func splitFlagArgument(argument string) (string, bool) {
	name, _, hasValue := strings.Cut(argument, flagValueSeparatorConstant)
	return name, hasValue
}

func joinToggleValue(current string, hasValue bool, arguments []string, index int) (string, int) {
	if hasValue || index+1 >= len(arguments) {
		return current, 1
	}
	nextValue := arguments[index+1]
	if strings.HasPrefix(nextValue, shortFlagPrefixConstant) {
		return current, 1
	}
	if _, isToggleLiteral := toggleLiterals[strings.ToLower(strings.TrimSpace(nextValue))]; !isToggleLiteral {
		return current, 1
	}
	return current + flagValueSeparatorConstant + nextValue, 2
}
