package utils

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	pathutils "github.com/temirov/auditdesk/internal/utils/path"
)

const (
	environmentKeySeparatorOldConstant              = "."
	environmentKeySeparatorNewConstant              = "_"
	listValueSeparatorConstant                      = ","
	configurationReadErrorTemplateConstant          = "failed to read configuration: %w"
	configurationUnmarshalErrorTemplateConstant     = "failed to parse configuration: %w"
	embeddedConfigurationMergeErrorTemplateConstant = "failed to merge embedded configuration: %w"
	flagBindingErrorTemplateConstant                = "failed to bind flag for %s: %w"
)

// ConfigurationLoader wraps Viper to load the embedded defaults, an optional configuration
// file, environment overrides and explicitly set command-line flags, in increasing priority.
type ConfigurationLoader struct {
	configurationName         string
	configurationType         string
	environmentPrefix         string
	searchPaths               []string
	homeExpander              *pathutils.HomeExpander
	environmentKeyReplacer    *strings.Replacer
	embeddedConfiguration     []byte
	embeddedConfigurationType string
	flagBindings              map[string]*pflag.Flag
}

// LoadedConfiguration surfaces metadata about the resolved configuration.
type LoadedConfiguration struct {
	ConfigFileUsed string
}

// NewConfigurationLoader creates a loader that searches known paths and respects an environment prefix.
// Search paths may start with "~" to refer to the home directory.
func NewConfigurationLoader(configurationName string, configurationType string, environmentPrefix string, searchPaths []string) *ConfigurationLoader {
	return &ConfigurationLoader{
		configurationName:      configurationName,
		configurationType:      configurationType,
		environmentPrefix:      environmentPrefix,
		searchPaths:            append([]string(nil), searchPaths...),
		homeExpander:           pathutils.NewHomeExpander(),
		environmentKeyReplacer: strings.NewReplacer(environmentKeySeparatorOldConstant, environmentKeySeparatorNewConstant),
		flagBindings:           map[string]*pflag.Flag{},
	}
}

// SetHomeExpander replaces the expander used for search paths.
func (loader *ConfigurationLoader) SetHomeExpander(expander *pathutils.HomeExpander) {
	if loader == nil || expander == nil {
		return
	}
	loader.homeExpander = expander
}

// SetEmbeddedConfiguration stores embedded configuration data merged before user-provided configuration files.
func (loader *ConfigurationLoader) SetEmbeddedConfiguration(configurationData []byte, configurationType string) {
	if loader == nil {
		return
	}

	loader.embeddedConfigurationType = strings.TrimSpace(configurationType)
	loader.embeddedConfiguration = nil
	if len(configurationData) > 0 {
		loader.embeddedConfiguration = append([]byte(nil), configurationData...)
	}
}

// BindFlag maps a configuration key to a command-line flag; the flag wins only when set explicitly.
func (loader *ConfigurationLoader) BindFlag(configurationKey string, flag *pflag.Flag) {
	if loader == nil || flag == nil || len(strings.TrimSpace(configurationKey)) == 0 {
		return
	}
	loader.flagBindings[configurationKey] = flag
}

// LoadConfiguration populates targetConfiguration. Duration fields accept Go duration strings
// such as "30s"; string lists accept comma separated values.
func (loader *ConfigurationLoader) LoadConfiguration(configurationFilePath string, defaultValues map[string]any, targetConfiguration any) (LoadedConfiguration, error) {
	viperInstance := viper.New()
	viperInstance.SetConfigName(loader.configurationName)

	if len(loader.embeddedConfiguration) > 0 {
		embeddedType := loader.configurationType
		if len(loader.embeddedConfigurationType) > 0 {
			embeddedType = loader.embeddedConfigurationType
		}
		viperInstance.SetConfigType(embeddedType)
		if mergeError := viperInstance.MergeConfig(bytes.NewReader(loader.embeddedConfiguration)); mergeError != nil {
			return LoadedConfiguration{}, fmt.Errorf(embeddedConfigurationMergeErrorTemplateConstant, mergeError)
		}
	}
	viperInstance.SetConfigType(loader.configurationType)

	for _, searchPath := range loader.searchPaths {
		viperInstance.AddConfigPath(loader.homeExpander.Expand(searchPath))
	}

	viperInstance.SetEnvPrefix(loader.environmentPrefix)
	viperInstance.SetEnvKeyReplacer(loader.environmentKeyReplacer)
	viperInstance.AutomaticEnv()

	for defaultKey, defaultValue := range defaultValues {
		viperInstance.SetDefault(defaultKey, defaultValue)
	}

	if bindError := loader.bindChangedFlags(viperInstance); bindError != nil {
		return LoadedConfiguration{}, bindError
	}

	if trimmedPath := strings.TrimSpace(configurationFilePath); len(trimmedPath) > 0 {
		viperInstance.SetConfigFile(loader.homeExpander.Expand(trimmedPath))
	}

	if readError := viperInstance.MergeInConfig(); readError != nil {
		var notFoundError viper.ConfigFileNotFoundError
		if !errors.As(readError, &notFoundError) {
			return LoadedConfiguration{}, fmt.Errorf(configurationReadErrorTemplateConstant, readError)
		}
	}

	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(listValueSeparatorConstant),
		mapstructure.TextUnmarshallerHookFunc(),
	))
	if unmarshalError := viperInstance.Unmarshal(targetConfiguration, decodeHook); unmarshalError != nil {
		return LoadedConfiguration{}, fmt.Errorf(configurationUnmarshalErrorTemplateConstant, unmarshalError)
	}

	return LoadedConfiguration{ConfigFileUsed: viperInstance.ConfigFileUsed()}, nil
}

func (loader *ConfigurationLoader) bindChangedFlags(viperInstance *viper.Viper) error {
	configurationKeys := make([]string, 0, len(loader.flagBindings))
	for configurationKey := range loader.flagBindings {
		configurationKeys = append(configurationKeys, configurationKey)
	}
	sort.Strings(configurationKeys)

	for _, configurationKey := range configurationKeys {
		flag := loader.flagBindings[configurationKey]
		if !flag.Changed {
			continue
		}
		if bindError := viperInstance.BindPFlag(configurationKey, flag); bindError != nil {
			return fmt.Errorf(flagBindingErrorTemplateConstant, configurationKey, bindError)
		}
	}
	return nil
}
