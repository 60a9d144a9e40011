package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	admincmd "github.com/temirov/auditdesk/cmd/cli/admin"
	"github.com/temirov/auditdesk/cmd/cli/audits"
	"github.com/temirov/auditdesk/cmd/cli/auth"
	"github.com/temirov/auditdesk/cmd/cli/dashboard"
	"github.com/temirov/auditdesk/internal/apiclient"
	"github.com/temirov/auditdesk/internal/credentials"
	"github.com/temirov/auditdesk/internal/dependencies"
	"github.com/temirov/auditdesk/internal/guard"
	"github.com/temirov/auditdesk/internal/metrics"
	"github.com/temirov/auditdesk/internal/session"
	"github.com/temirov/auditdesk/internal/ui"
	"github.com/temirov/auditdesk/internal/utils"
	"github.com/temirov/auditdesk/internal/utils/flags"
	pathutils "github.com/temirov/auditdesk/internal/utils/path"
	"github.com/temirov/auditdesk/internal/workflow"
)

const (
	applicationNameConstant                    = "auditdesk"
	applicationShortDescriptionConstant        = "Command-line client for the audit management service"
	applicationLongDescriptionConstant         = "auditdesk signs in to the audit service, creates audits with generated checklists, records answers and exports results."
	configFileFlagNameConstant                 = "config"
	configFileFlagUsageConstant                = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                   = "log-level"
	logLevelFlagUsageConstant                  = "Override the configured log level."
	logFormatFlagNameConstant                  = "log-format"
	logFormatFlagUsageConstant                 = "Override the configured log format."
	apiURLFlagNameConstant                     = "api-url"
	apiURLFlagUsageConstant                    = "Override the audit service base URL."
	commonLogLevelConfigKeyConstant            = "common.log_level"
	commonLogFormatConfigKeyConstant           = "common.log_format"
	apiBaseURLConfigKeyConstant                = "api.base_url"
	environmentPrefixConstant                  = "AUDITDESK"
	configurationNameConstant                  = "config"
	configurationTypeConstant                  = "yaml"
	configurationInitializedMessageConstant    = "configuration initialized"
	configurationLogLevelFieldConstant         = "log_level"
	configurationLogFormatFieldConstant        = "log_format"
	configurationFileFieldConstant             = "config_file"
	configurationAPIURLFieldConstant           = "api_url"
	configurationLoadErrorTemplateConstant     = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant        = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant            = "unable to flush logger: %w"
	workflowConfigurationErrorTemplateConstant = "invalid workflow configuration: %w"
	servicesNotInitializedMessageConstant      = "services not initialized"
	accessDeniedTemplateConstant               = "%w (run %q first)"
	routeCheckedMessageConstant                = "route authorized"
	routeFieldConstant                         = "route"
	commandFieldConstant                       = "command"
	metricsPushFailedMessageConstant           = "unable to push metrics"
	defaultConfigurationSearchPathConstant     = "."
	homeConfigurationSearchPathConstant        = "~/.auditdesk"
	versionTemplateConstant                    = "{{.Name}} version: {{.Version}}\n"
	developmentVersionConstant                 = "dev"
	loginCommandHintConstant                   = "auditdesk login"
	dashboardCommandHintConstant               = "auditdesk dashboard"
	metricsPushTimeoutConstant                 = 5 * time.Second
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common   ApplicationCommonConfiguration  `mapstructure:"common"`
	API      ApplicationAPIConfiguration     `mapstructure:"api"`
	Session  ApplicationSessionConfiguration `mapstructure:"session"`
	Workflow workflow.Configuration          `mapstructure:"workflow"`
	Metrics  ApplicationMetricsConfiguration `mapstructure:"metrics"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// ApplicationAPIConfiguration locates the audit service.
type ApplicationAPIConfiguration struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ApplicationSessionConfiguration stores where session tokens are persisted.
type ApplicationSessionConfiguration struct {
	CredentialsFile string `mapstructure:"credentials_file"`
}

// ApplicationMetricsConfiguration configures the optional Prometheus Pushgateway export.
type ApplicationMetricsConfiguration struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	JobName        string `mapstructure:"job_name"`
}

// Application wires the Cobra root command, configuration loader, structured logger and service clients.
type Application struct {
	rootCommand           *cobra.Command
	configurationLoader   *utils.ConfigurationLoader
	loggerFactory         *utils.LoggerFactory
	homeExpander          *pathutils.HomeExpander
	logger                *zap.Logger
	configuration         ApplicationConfiguration
	configurationMetadata utils.LoadedConfiguration
	configurationFilePath string
	routeTable            guard.RouteTable
	httpClient            *http.Client
	registry              *prometheus.Registry
	requestMetrics        *metrics.Metrics
	sessionProvider       *session.Provider
	dependencySet         *dependencies.Set
	executedCommand       string
	versionResolver       func() string
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	homeExpander := pathutils.NewHomeExpander()
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		[]string{defaultConfigurationSearchPathConstant, homeConfigurationSearchPathConstant},
	)
	configurationLoader.SetHomeExpander(homeExpander)
	configurationLoader.SetEmbeddedConfiguration(EmbeddedDefaultConfiguration())

	application := &Application{
		configurationLoader: configurationLoader,
		loggerFactory:       utils.NewLoggerFactory(),
		homeExpander:        homeExpander,
		logger:              zap.NewNop(),
		routeTable:          guard.DefaultRouteTable(),
		versionResolver:     resolveBuildVersion,
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.prepareCommand(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}
	cobraCommand.SetVersionTemplate(versionTemplateConstant)

	persistentFlags := cobraCommand.PersistentFlags()
	persistentFlags.StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	flags.AddChoiceFlag(persistentFlags, logLevelFlagNameConstant, "", utils.LogLevels(), logLevelFlagUsageConstant)
	flags.AddChoiceFlag(persistentFlags, logFormatFlagNameConstant, "", utils.LogFormats(), logFormatFlagUsageConstant)
	persistentFlags.String(apiURLFlagNameConstant, "", apiURLFlagUsageConstant)
	configurationLoader.BindFlag(commonLogLevelConfigKeyConstant, persistentFlags.Lookup(logLevelFlagNameConstant))
	configurationLoader.BindFlag(commonLogFormatConfigKeyConstant, persistentFlags.Lookup(logFormatFlagNameConstant))
	configurationLoader.BindFlag(apiBaseURLConfigKeyConstant, persistentFlags.Lookup(apiURLFlagNameConstant))

	authBuilder := auth.CommandBuilder{DependenciesProvider: application.dependencies}
	if authCommands, authBuildError := authBuilder.Build(); authBuildError == nil {
		cobraCommand.AddCommand(authCommands...)
	}

	dashboardBuilder := dashboard.CommandBuilder{DependenciesProvider: application.dependencies}
	if dashboardCommand, dashboardBuildError := dashboardBuilder.Build(); dashboardBuildError == nil {
		cobraCommand.AddCommand(dashboardCommand)
	}

	auditsBuilder := audits.CommandBuilder{DependenciesProvider: application.dependencies}
	if auditsCommand, auditsBuildError := auditsBuilder.Build(); auditsBuildError == nil {
		cobraCommand.AddCommand(auditsCommand)
	}

	adminBuilder := admincmd.CommandBuilder{DependenciesProvider: application.dependencies}
	if adminCommand, adminBuildError := adminBuilder.Build(); adminBuildError == nil {
		cobraCommand.AddCommand(adminCommand)
	}

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the command hierarchy with the process arguments until completion or an interrupt signal.
func (application *Application) Execute() error {
	executionContext, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return application.ExecuteContext(executionContext, os.Args[1:])
}

// ExecuteContext runs the command hierarchy with explicit arguments, pushes metrics and flushes the logger.
func (application *Application) ExecuteContext(executionContext context.Context, arguments []string) error {
	application.rootCommand.Version = application.versionResolver()
	application.rootCommand.SetArgs(flags.NormalizeToggleArguments(arguments))
	executionError := application.rootCommand.ExecuteContext(executionContext)

	application.pushMetrics(executionContext)
	if syncError := application.flushLogger(); syncError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) prepareCommand(command *cobra.Command) error {
	if initializationError := application.initializeConfiguration(); initializationError != nil {
		return initializationError
	}
	if servicesError := application.initializeServices(); servicesError != nil {
		return servicesError
	}
	application.executedCommand = command.CommandPath()
	return application.authorize(command)
}

func (application *Application) initializeConfiguration() error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelWarn),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatConsole),
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}
	application.configurationMetadata = loadedConfiguration

	logLevel, levelError := utils.ParseLogLevel(application.configuration.Common.LogLevel)
	if levelError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, levelError)
	}
	logFormat, formatError := utils.ParseLogFormat(application.configuration.Common.LogFormat)
	if formatError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, formatError)
	}
	logger, loggerCreationError := application.loggerFactory.CreateLogger(logLevel, logFormat)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}
	application.logger = logger

	application.logger.Debug(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
		zap.String(configurationAPIURLFieldConstant, application.configuration.API.BaseURL),
	)

	return nil
}

func (application *Application) initializeServices() error {
	workflowConfiguration := application.configuration.Workflow.Sanitize()
	if validationError := workflowConfiguration.Validate(); validationError != nil {
		return fmt.Errorf(workflowConfigurationErrorTemplateConstant, validationError)
	}

	store, storeError := credentials.NewFileStore(application.configuration.Session.CredentialsFile, application.homeExpander)
	if storeError != nil {
		return storeError
	}
	provider, providerError := session.NewProvider(session.Options{Store: store, Logger: application.logger})
	if providerError != nil {
		return providerError
	}

	application.registry = prometheus.NewRegistry()
	application.requestMetrics = metrics.NewMetrics()
	if registerError := application.requestMetrics.Register(application.registry); registerError != nil {
		return registerError
	}

	client, clientError := apiclient.NewClient(apiclient.Options{
		BaseURL:             application.configuration.API.BaseURL,
		Timeout:             application.configuration.API.Timeout,
		HTTPClient:          application.httpClient,
		TokenSource:         provider,
		UnauthorizedHandler: provider.HandleUnauthorized,
		Observer:            apiclient.NewMultiObserver(ui.NewConsoleRequestEventLogger(application.logger), application.requestMetrics),
	})
	if clientError != nil {
		return clientError
	}
	provider.BindClient(client)

	application.sessionProvider = provider
	application.dependencySet = &dependencies.Set{
		Logger:      application.logger,
		Session:     provider,
		AuditClient: client,
		AdminClient: client,
		Workflow:    workflowConfiguration,
		Now:         time.Now,
	}
	return nil
}

func (application *Application) authorize(command *cobra.Command) error {
	route := dependencies.RouteOf(command)
	if len(route) == 0 || application.routeTable.Resolve(route) == guard.RequirePublic {
		return nil
	}

	if bootstrapError := application.sessionProvider.Bootstrap(command.Context()); bootstrapError != nil {
		return bootstrapError
	}

	if checkError := application.routeTable.Check(route, application.sessionProvider.EffectiveIdentity()); checkError != nil {
		var redirectError guard.RedirectError
		if errors.As(checkError, &redirectError) {
			hint := dashboardCommandHintConstant
			if redirectError.Target == guard.LoginRoute {
				hint = loginCommandHintConstant
			}
			return fmt.Errorf(accessDeniedTemplateConstant, checkError, hint)
		}
		return checkError
	}

	application.logger.Debug(routeCheckedMessageConstant, zap.String(routeFieldConstant, route), zap.String(commandFieldConstant, command.CommandPath()))
	return nil
}

func (application *Application) dependencies() (dependencies.Set, error) {
	if application.dependencySet == nil {
		return dependencies.Set{}, errors.New(servicesNotInitializedMessageConstant)
	}
	return *application.dependencySet, nil
}

func (application *Application) pushMetrics(executionContext context.Context) {
	gatewayURL := strings.TrimSpace(application.configuration.Metrics.PushgatewayURL)
	if application.registry == nil || len(gatewayURL) == 0 || len(application.executedCommand) == 0 {
		return
	}

	pusher, pusherError := metrics.NewPusher(gatewayURL, application.configuration.Metrics.JobName, application.registry, application.httpClient)
	if pusherError != nil {
		application.logger.Warn(metricsPushFailedMessageConstant, zap.Error(pusherError))
		return
	}

	pushContext, cancel := context.WithTimeout(context.WithoutCancel(executionContext), metricsPushTimeoutConstant)
	defer cancel()
	if pushError := pusher.Push(pushContext, application.executedCommand); pushError != nil {
		application.logger.Warn(metricsPushFailedMessageConstant, zap.Error(pushError))
	}
}

func (application *Application) flushLogger() error {
	if application.logger == nil {
		return nil
	}

	syncError := application.logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	case errors.Is(syncError, syscall.ENOTTY):
		return nil
	default:
		return syncError
	}
}

func resolveBuildVersion() string {
	buildInfo, available := debug.ReadBuildInfo()
	if !available || len(buildInfo.Main.Version) == 0 || buildInfo.Main.Version == "(devel)" {
		return developmentVersionConstant
	}
	return buildInfo.Main.Version
}
