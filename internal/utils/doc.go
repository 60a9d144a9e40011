// Package utils exposes reusable helpers consumed by multiple commands.
//
// ConfigurationLoader layers the embedded defaults, a YAML file, AUDITDESK_
// environment variables and explicit flags through Viper. LoggerFactory builds
// the zap loggers that write diagnostics to stderr.
package utils
