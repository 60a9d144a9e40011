package flags

import (
	"strings"

	"github.com/spf13/cobra"
)

const (
	// OutputFormatFlagName exposes the shared output format flag name.
	OutputFormatFlagName = "format"
	// OutputFormatFlagShorthand provides the shorthand for the output format flag.
	OutputFormatFlagShorthand = "f"
	// OutputFormatFlagUsage describes the output format flag purpose.
	OutputFormatFlagUsage = "Output format."
	// OutputFileFlagName exposes the shared output file flag name.
	OutputFileFlagName = "output"
	// OutputFileFlagShorthand provides the shorthand for the output file flag.
	OutputFileFlagShorthand = "o"
	// OutputFileFlagUsage describes the output file flag purpose.
	OutputFileFlagUsage = "Write output to this file instead of stdout (required for xlsx)"
)

// OutputFlagDefinition captures configuration for output flags.
type OutputFlagDefinition struct {
	Choices    []string
	Persistent bool
}

// OutputFlagValues stores output flag values.
type OutputFlagValues struct {
	Format     string
	OutputPath string
}

// NormalizedFormat returns the lower-cased, trimmed format name.
func (values OutputFlagValues) NormalizedFormat() string {
	return strings.ToLower(strings.TrimSpace(values.Format))
}

// BindOutputFlags attaches the format and output file flags to the provided command.
func BindOutputFlags(command *cobra.Command, defaults OutputFlagValues, definition OutputFlagDefinition) *OutputFlagValues {
	values := defaults
	if command == nil {
		return &values
	}

	targetSet := command.Flags()
	if definition.Persistent {
		targetSet = command.PersistentFlags()
	}

	if targetSet.Lookup(OutputFormatFlagName) == nil {
		formatUsage := OutputFormatFlagUsage
		if len(definition.Choices) > 0 {
			formatUsage = FormatChoiceUsage(defaults.Format, definition.Choices, OutputFormatFlagUsage)
		}
		targetSet.StringVarP(&values.Format, OutputFormatFlagName, OutputFormatFlagShorthand, defaults.Format, formatUsage)
	}
	if targetSet.Lookup(OutputFileFlagName) == nil {
		targetSet.StringVarP(&values.OutputPath, OutputFileFlagName, OutputFileFlagShorthand, defaults.OutputPath, OutputFileFlagUsage)
	}

	return &values
}
