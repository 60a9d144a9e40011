package cli

import (
	"bytes"
	_ "embed"
)

// defaultConfigurationYAML holds the settings every run starts from before files, environment and flags apply.
//
//go:embed default_config.yaml
var defaultConfigurationYAML []byte

// EmbeddedDefaultConfiguration returns a private copy of the built-in settings and their encoding.
func EmbeddedDefaultConfiguration() ([]byte, string) {
	return bytes.Clone(defaultConfigurationYAML), configurationTypeConstant
}
