// Package dashboard wires the dashboard command showing audit counts and, for
// administrators, user and invitation counts.
package dashboard

import (
	"github.com/spf13/cobra"

	"github.com/temirov/auditdesk/internal/dependencies"
	"github.com/temirov/auditdesk/internal/guard"
	"github.com/temirov/auditdesk/internal/report"
	"github.com/temirov/auditdesk/internal/utils/flags"
	"github.com/temirov/auditdesk/internal/workflow"
)

const (
	commandUseConstant   = "dashboard"
	commandShortConstant = "Show audit counts, plus user and invitation counts for administrators"
)

// CommandBuilder assembles the dashboard command.
type CommandBuilder struct {
	DependenciesProvider dependencies.Provider
}

// Build constructs the dashboard command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortConstant,
		Args:  cobra.NoArgs,
	}
	output := flags.BindOutputFlags(command, flags.OutputFlagValues{Format: string(report.FormatTable)}, flags.OutputFlagDefinition{Choices: report.Formats()})
	command.RunE = func(command *cobra.Command, arguments []string) error {
		return builder.run(command, *output)
	}
	dependencies.AnnotateRoute(command, guard.DashboardRoute)
	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, output flags.OutputFlagValues) error {
	format, formatError := report.ParseFormat(output.Format)
	if formatError != nil {
		return formatError
	}

	set, resolveError := dependencies.Resolve(builder.DependenciesProvider)
	if resolveError != nil {
		return resolveError
	}
	user, userError := set.RequireUser()
	if userError != nil {
		return userError
	}

	auditWorkflow, workflowError := set.NewWorkflow(command.ErrOrStderr())
	if workflowError != nil {
		return workflowError
	}
	audits, listError := auditWorkflow.List(command.Context())
	if listError != nil {
		return listError
	}

	data := report.DashboardData{Username: user.Username, Audits: workflow.CountAudits(audits)}
	if identity := set.Session.EffectiveIdentity(); identity != nil && identity.IsAdmin {
		service, serviceError := set.NewAdminService()
		if serviceError != nil {
			return serviceError
		}
		overview, overviewError := service.Overview(command.Context())
		if overviewError != nil {
			return overviewError
		}
		data.Overview = &overview
	}

	return report.Emit(command.OutOrStdout(), output.OutputPath, format, report.DashboardDocument(data))
}
