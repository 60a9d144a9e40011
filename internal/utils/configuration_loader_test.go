package utils_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/temirov/auditdesk/internal/utils"
	pathutils "github.com/temirov/auditdesk/internal/utils/path"
)

const (
	testEnvironmentPrefixConstant            = "TESTAUDITDESK"
	testConfigurationNameConstant            = "config"
	testConfigurationTypeConstant            = "yaml"
	testConfigFileNameConstant               = "config.yaml"
	testHomeDirectoryNameConstant            = ".auditdesk"
	testBaseURLKeyConstant                   = "api.base_url"
	testBaseURLEnvironmentConstant           = "TESTAUDITDESK_API_BASE_URL"
	testBaseURLFlagConstant                  = "api-url"
	testEmbeddedConfigurationContentConstant = "api:\n  base_url: http://embedded/api\n  timeout: 45s\nworkflow:\n  submission_mode: parallel\n"
)

type clientConfigurationFixture struct {
	API      apiFixture      `mapstructure:"api"`
	Workflow workflowFixture `mapstructure:"workflow"`
}

type apiFixture struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Hosts   []string      `mapstructure:"hosts"`
}

type workflowFixture struct {
	SubmissionMode string `mapstructure:"submission_mode"`
	MaxRetries     int    `mapstructure:"max_retries"`
}

func TestConfigurationLoaderLayers(testInstance *testing.T) {
	testCases := []struct {
		name             string
		fileContent      string
		environmentValue string
		flagArguments    []string
		defaults         map[string]any
		expectedBaseURL  string
		expectedMode     string
		expectedRetries  int
	}{
		{
			name:            "embedded_only",
			expectedBaseURL: "http://embedded/api",
			expectedMode:    "parallel",
		},
		{
			name:            "defaults_fill_missing_keys",
			defaults:        map[string]any{"workflow.max_retries": 3, testBaseURLKeyConstant: "http://default/api"},
			expectedBaseURL: "http://embedded/api",
			expectedMode:    "parallel",
			expectedRetries: 3,
		},
		{
			name:            "file_overrides_embedded",
			fileContent:     "api:\n  base_url: http://file/api\nworkflow:\n  submission_mode: bulk\n",
			expectedBaseURL: "http://file/api",
			expectedMode:    "bulk",
		},
		{
			name:             "environment_overrides_file",
			fileContent:      "api:\n  base_url: http://file/api\n",
			environmentValue: "http://environment/api",
			expectedBaseURL:  "http://environment/api",
			expectedMode:     "parallel",
		},
		{
			name:             "set_flag_overrides_environment",
			environmentValue: "http://environment/api",
			flagArguments:    []string{"--" + testBaseURLFlagConstant, "http://flag/api"},
			expectedBaseURL:  "http://flag/api",
			expectedMode:     "parallel",
		},
		{
			name:            "unset_flag_ignored",
			flagArguments:   []string{},
			expectedBaseURL: "http://embedded/api",
			expectedMode:    "parallel",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			temporaryDirectory := subTest.TempDir()
			configurationFilePath := ""
			if len(testCase.fileContent) > 0 {
				configurationFilePath = filepath.Join(temporaryDirectory, testConfigFileNameConstant)
				require.NoError(subTest, os.WriteFile(configurationFilePath, []byte(testCase.fileContent), 0o600))
			}
			if len(testCase.environmentValue) > 0 {
				subTest.Setenv(testBaseURLEnvironmentConstant, testCase.environmentValue)
			}

			flagSet := pflag.NewFlagSet("auditdesk", pflag.ContinueOnError)
			flagSet.String(testBaseURLFlagConstant, "http://flag-default/api", "")
			require.NoError(subTest, flagSet.Parse(testCase.flagArguments))

			configurationLoader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, []string{temporaryDirectory})
			configurationLoader.SetEmbeddedConfiguration([]byte(testEmbeddedConfigurationContentConstant), testConfigurationTypeConstant)
			configurationLoader.BindFlag(testBaseURLKeyConstant, flagSet.Lookup(testBaseURLFlagConstant))

			var loadedConfiguration clientConfigurationFixture
			metadata, loadError := configurationLoader.LoadConfiguration(configurationFilePath, testCase.defaults, &loadedConfiguration)
			require.NoError(subTest, loadError)
			require.Equal(subTest, testCase.expectedBaseURL, loadedConfiguration.API.BaseURL)
			require.Equal(subTest, testCase.expectedMode, loadedConfiguration.Workflow.SubmissionMode)
			require.Equal(subTest, testCase.expectedRetries, loadedConfiguration.Workflow.MaxRetries)
			require.Equal(subTest, 45*time.Second, loadedConfiguration.API.Timeout)
			require.Equal(subTest, configurationFilePath, metadata.ConfigFileUsed)
		})
	}
}

func TestConfigurationLoaderDecodesLists(testInstance *testing.T) {
	configurationLoader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, []string{testInstance.TempDir()})
	configurationLoader.SetEmbeddedConfiguration([]byte("api:\n  timeout: 2m\n  hosts: alpha,beta\n"), testConfigurationTypeConstant)

	var loadedConfiguration clientConfigurationFixture
	_, loadError := configurationLoader.LoadConfiguration("", nil, &loadedConfiguration)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, 2*time.Minute, loadedConfiguration.API.Timeout)
	require.Equal(testInstance, []string{"alpha", "beta"}, loadedConfiguration.API.Hosts)
}

func TestConfigurationLoaderReportsMissingExplicitFile(testInstance *testing.T) {
	configurationLoader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, nil)

	var loadedConfiguration clientConfigurationFixture
	_, loadError := configurationLoader.LoadConfiguration(filepath.Join(testInstance.TempDir(), "absent.yaml"), nil, &loadedConfiguration)
	require.ErrorContains(testInstance, loadError, "failed to read configuration")
}

func TestConfigurationLoaderSearchesHomeDirectory(testInstance *testing.T) {
	homeDirectoryPath := testInstance.TempDir()
	configurationDirectoryPath := filepath.Join(homeDirectoryPath, testHomeDirectoryNameConstant)
	require.NoError(testInstance, os.MkdirAll(configurationDirectoryPath, 0o755))
	configurationFilePath := filepath.Join(configurationDirectoryPath, testConfigFileNameConstant)
	require.NoError(testInstance, os.WriteFile(configurationFilePath, []byte("workflow:\n  submission_mode: bulk\n"), 0o600))

	workingDirectoryPath := testInstance.TempDir()
	configurationLoader := utils.NewConfigurationLoader(
		testConfigurationNameConstant,
		testConfigurationTypeConstant,
		testEnvironmentPrefixConstant,
		[]string{workingDirectoryPath, "~/" + testHomeDirectoryNameConstant},
	)
	configurationLoader.SetHomeExpander(pathutils.NewHomeExpanderWithProvider(func() (string, error) { return homeDirectoryPath, nil }))

	var loadedConfiguration clientConfigurationFixture
	metadata, loadError := configurationLoader.LoadConfiguration("", nil, &loadedConfiguration)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, "bulk", loadedConfiguration.Workflow.SubmissionMode)
	require.Equal(testInstance, configurationFilePath, metadata.ConfigFileUsed)
}
