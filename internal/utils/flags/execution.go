// Package flags provides helpers for binding the shared auditdesk flags to Cobra commands.
package flags

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	// AssumeYesFlagName exposes the shared assume-yes flag name.
	AssumeYesFlagName = "yes"
	// AssumeYesFlagShorthand provides the shorthand for the assume-yes flag.
	AssumeYesFlagShorthand = "y"
	// AssumeYesFlagUsage describes the shared assume-yes flag purpose.
	AssumeYesFlagUsage = "Automatically confirm destructive operations"
)

// ExecutionDefaults describes default flag values shared across commands.
type ExecutionDefaults struct {
	AssumeYes bool
}

// ExecutionFlagDefinition captures a single flag's configuration.
type ExecutionFlagDefinition struct {
	Name      string
	Usage     string
	Shorthand string
	Enabled   bool
}

// ExecutionFlagDefinitions groups execution flag definitions.
type ExecutionFlagDefinitions struct {
	AssumeYes ExecutionFlagDefinition
}

// DefaultExecutionFlagDefinitions enables the assume-yes flag with its standard name.
func DefaultExecutionFlagDefinitions() ExecutionFlagDefinitions {
	return ExecutionFlagDefinitions{
		AssumeYes: ExecutionFlagDefinition{
			Name:      AssumeYesFlagName,
			Usage:     AssumeYesFlagUsage,
			Shorthand: AssumeYesFlagShorthand,
			Enabled:   true,
		},
	}
}

// BindExecutionFlags attaches standardized execution flags to the provided command using persistent scope.
func BindExecutionFlags(command *cobra.Command, defaults ExecutionDefaults, definitions ExecutionFlagDefinitions) {
	if command == nil {
		return
	}

	bindBoolFlag(command.PersistentFlags(), definitions.AssumeYes, defaults.AssumeYes)
}

// AssumeYes reads the assume-yes flag from the command or any of its parents.
func AssumeYes(command *cobra.Command) bool {
	if command == nil {
		return false
	}
	flag := command.Flags().Lookup(AssumeYesFlagName)
	if flag == nil {
		flag = command.InheritedFlags().Lookup(AssumeYesFlagName)
	}
	if flag == nil {
		return false
	}
	value, parseError := parseToggleValue(flag.Value.String())
	if parseError != nil {
		return false
	}
	return value
}

func bindBoolFlag(flagSet *pflag.FlagSet, definition ExecutionFlagDefinition, defaultValue bool) {
	if flagSet == nil {
		return
	}
	if !definition.Enabled {
		return
	}
	if len(definition.Name) == 0 {
		return
	}
	if flagSet.Lookup(definition.Name) != nil {
		return
	}

	if len(definition.Shorthand) > 0 {
		flagSet.BoolP(definition.Name, definition.Shorthand, defaultValue, definition.Usage)
		return
	}

	flagSet.Bool(definition.Name, defaultValue, definition.Usage)
}
