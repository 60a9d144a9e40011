package audits

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/auditdesk/internal/apiclient"
	"github.com/temirov/auditdesk/internal/dependencies"
	"github.com/temirov/auditdesk/internal/guard"
	"github.com/temirov/auditdesk/internal/report"
	"github.com/temirov/auditdesk/internal/utils/flags"
	"github.com/temirov/auditdesk/internal/workflow"
)

const (
	groupUseConstant                     = "audits"
	groupShortConstant                   = "Create, answer and review audits"
	groupAliasConstant                   = "audit"
	listUseConstant                      = "list"
	listShortConstant                    = "List the audits visible to you"
	showUseConstant                      = "show <audit-id>"
	showShortConstant                    = "Show an audit and its checklist grouped by category"
	createUseConstant                    = "create"
	createShortConstant                  = "Create an audit and generate its checklist"
	deleteUseConstant                    = "delete <audit-id>"
	deleteShortConstant                  = "Delete an audit"
	checklistUseConstant                 = "checklist <audit-id>"
	checklistShortConstant               = "Answer the checklist and submit it"
	checklistLongConstant                = "Record answers from --answer flags, an answers file or interactive prompts, then submit them and complete the audit. Unanswered items are submitted as na."
	itemUseConstant                      = "item <audit-id> <item-id>"
	itemShortConstant                    = "Save an item's completion flag and notes"
	reviewUseConstant                    = "review <audit-id>"
	reviewShortConstant                  = "Review stored responses and optionally complete the audit"
	resultsUseConstant                   = "results <audit-id>"
	resultsShortConstant                 = "Show the results summary and responses"
	titleFlagNameConstant                = "title"
	titleFlagUsageConstant               = "Audit title"
	typeFlagNameConstant                 = "type"
	typeFlagUsageTemplateConstant        = "Audit type (%s)"
	organizationFlagNameConstant         = "organization"
	organizationFlagUsageConstant        = "Audited organization"
	industryFlagNameConstant             = "industry"
	industryFlagUsageTemplateConstant    = "Industry (%s)"
	complexityFlagNameConstant           = "complexity"
	complexityFlagUsageTemplateConstant  = "Complexity level (%s)"
	choiceListSeparatorConstant          = ", "
	requirementsFlagNameConstant         = "requirements"
	requirementsFlagUsageConstant        = "Specific requirements passed to checklist generation"
	answerFlagNameConstant               = "answer"
	answerFlagShorthandConstant          = "a"
	answerFlagUsageConstant              = "Answer as ITEM=yes|no|na[:notes]; repeatable"
	answersFileFlagNameConstant          = "answers-file"
	answersFileFlagUsageConstant         = "YAML file mapping item identifiers to answers"
	interactiveFlagNameConstant          = "interactive"
	interactiveFlagShorthandConstant     = "i"
	interactiveFlagUsageConstant         = "Prompt for every item not answered by flags or file"
	modeFlagNameConstant                 = "mode"
	modeFlagUsageConstant                = "Submission mode"
	completedFlagNameConstant            = "completed"
	completedFlagShorthandConstant       = "c"
	completedFlagUsageConstant           = "Set the item completion state (kept when omitted)"
	notesFlagNameConstant                = "notes"
	notesFlagUsageConstant               = "Item notes (existing notes are kept when omitted)"
	completeFlagNameConstant             = "complete"
	completeFlagUsageConstant            = "Complete the audit after review"
	auditIdentifierErrorTemplateConstant = "invalid audit identifier %q"
	itemIdentifierErrorTemplateConstant  = "invalid checklist item identifier %q"
	answerPromptTemplateConstant         = "[%d] %s (yes/no/na, blank for na): "
	notesPromptConstant                  = "    notes: "
	categoryBannerTemplateConstant       = "== %s ==\n"
	auditDeletedTemplateConstant         = "Audit %d deleted\n"
	auditSubmittedTemplateConstant       = "Audit %d submitted and completed (%d responses)\n"
	auditCompletedTemplateConstant       = "Audit %d completed\n"
	itemSavedTemplateConstant            = "Checklist item %d saved (completed: %s)\n"
	yesLabelConstant                     = "yes"
	noLabelConstant                      = "no"
	checklistSubmittedMessageConstant    = "checklist submitted from command line"
	auditIdentifierLogFieldConstant      = "audit_id"
	responseCountLogFieldConstant        = "responses"
)

// CommandBuilder assembles the audits command group.
type CommandBuilder struct {
	DependenciesProvider dependencies.Provider
}

// Build constructs the audits command with its subcommands.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	groupCommand := &cobra.Command{
		Use:     groupUseConstant,
		Aliases: []string{groupAliasConstant},
		Short:   groupShortConstant,
		Args:    cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}
	dependencies.AnnotateRoute(groupCommand, guard.AuditsRoute)
	flags.BindExecutionFlags(groupCommand, flags.ExecutionDefaults{}, flags.DefaultExecutionFlagDefinitions())

	groupCommand.AddCommand(
		builder.buildList(),
		builder.buildShow(),
		builder.buildCreate(),
		builder.buildDelete(),
		builder.buildChecklist(),
		builder.buildItem(),
		builder.buildReview(),
		builder.buildResults(),
	)
	return groupCommand, nil
}

func (builder *CommandBuilder) buildList() *cobra.Command {
	command := &cobra.Command{Use: listUseConstant, Short: listShortConstant, Args: cobra.NoArgs}
	output := bindOutput(command)
	command.RunE = func(command *cobra.Command, arguments []string) error {
		auditWorkflow, _, workflowError := builder.resolveWorkflow(command)
		if workflowError != nil {
			return workflowError
		}
		audits, listError := auditWorkflow.List(command.Context())
		if listError != nil {
			return listError
		}
		return emit(command, *output, report.AuditListDocument(audits))
	}
	return command
}

func (builder *CommandBuilder) buildShow() *cobra.Command {
	command := &cobra.Command{Use: showUseConstant, Short: showShortConstant, Args: cobra.ExactArgs(1)}
	output := bindOutput(command)
	command.RunE = func(command *cobra.Command, arguments []string) error {
		auditID, parseError := parseIdentifier(arguments[0], auditIdentifierErrorTemplateConstant)
		if parseError != nil {
			return parseError
		}
		auditWorkflow, _, workflowError := builder.resolveWorkflow(command)
		if workflowError != nil {
			return workflowError
		}
		audit, loadError := auditWorkflow.Load(command.Context(), auditID)
		if loadError != nil {
			return loadError
		}
		return emit(command, *output, detailDocument(auditWorkflow, audit))
	}
	return command
}

func (builder *CommandBuilder) buildCreate() *cobra.Command {
	command := &cobra.Command{Use: createUseConstant, Short: createShortConstant, Args: cobra.NoArgs}
	command.Flags().String(titleFlagNameConstant, "", titleFlagUsageConstant)
	command.Flags().String(typeFlagNameConstant, "", choiceUsage(typeFlagUsageTemplateConstant, apiclient.AuditTypes()))
	command.Flags().String(organizationFlagNameConstant, "", organizationFlagUsageConstant)
	command.Flags().String(industryFlagNameConstant, "", choiceUsage(industryFlagUsageTemplateConstant, apiclient.Industries()))
	command.Flags().String(complexityFlagNameConstant, "", choiceUsage(complexityFlagUsageTemplateConstant, apiclient.ComplexityLevels()))
	command.Flags().String(requirementsFlagNameConstant, "", requirementsFlagUsageConstant)
	output := bindOutput(command)
	command.RunE = func(command *cobra.Command, arguments []string) error {
		auditWorkflow, _, workflowError := builder.resolveWorkflow(command)
		if workflowError != nil {
			return workflowError
		}
		request := apiclient.CreateAuditRequest{}
		request.Title, _ = command.Flags().GetString(titleFlagNameConstant)
		request.AuditType, _ = command.Flags().GetString(typeFlagNameConstant)
		request.Organization, _ = command.Flags().GetString(organizationFlagNameConstant)
		request.Industry, _ = command.Flags().GetString(industryFlagNameConstant)
		request.ComplexityLevel, _ = command.Flags().GetString(complexityFlagNameConstant)
		request.SpecificRequirements, _ = command.Flags().GetString(requirementsFlagNameConstant)

		audit, createError := auditWorkflow.Create(command.Context(), request)
		if createError != nil {
			return createError
		}
		return emit(command, *output, detailDocument(auditWorkflow, audit))
	}
	return command
}

func (builder *CommandBuilder) buildDelete() *cobra.Command {
	command := &cobra.Command{Use: deleteUseConstant, Short: deleteShortConstant, Args: cobra.ExactArgs(1)}
	command.RunE = func(command *cobra.Command, arguments []string) error {
		auditID, parseError := parseIdentifier(arguments[0], auditIdentifierErrorTemplateConstant)
		if parseError != nil {
			return parseError
		}
		auditWorkflow, set, workflowError := builder.resolveWorkflow(command)
		if workflowError != nil {
			return workflowError
		}
		prompter := dependencies.ResolvePrompter(set.Prompter, command.InOrStdin(), command.ErrOrStderr())
		if deleteError := auditWorkflow.Delete(command.Context(), auditID, prompter, flags.AssumeYes(command)); deleteError != nil {
			return deleteError
		}
		_, writeError := fmt.Fprintf(command.OutOrStdout(), auditDeletedTemplateConstant, auditID)
		return writeError
	}
	return command
}

func (builder *CommandBuilder) buildChecklist() *cobra.Command {
	command := &cobra.Command{Use: checklistUseConstant, Short: checklistShortConstant, Long: checklistLongConstant, Args: cobra.ExactArgs(1)}
	command.Flags().StringArrayP(answerFlagNameConstant, answerFlagShorthandConstant, nil, answerFlagUsageConstant)
	command.Flags().String(answersFileFlagNameConstant, "", answersFileFlagUsageConstant)
	command.Flags().BoolP(interactiveFlagNameConstant, interactiveFlagShorthandConstant, false, interactiveFlagUsageConstant)
	submissionModes := []string{string(workflow.SubmissionModeParallel), string(workflow.SubmissionModeBulk)}
	flags.AddChoiceFlag(command.Flags(), modeFlagNameConstant, "", submissionModes, modeFlagUsageConstant)
	command.RunE = builder.runChecklist
	return command
}

func (builder *CommandBuilder) runChecklist(command *cobra.Command, arguments []string) error {
	auditID, parseError := parseIdentifier(arguments[0], auditIdentifierErrorTemplateConstant)
	if parseError != nil {
		return parseError
	}

	answers, answersError := collectAnswers(command)
	if answersError != nil {
		return answersError
	}

	set, resolveError := dependencies.Resolve(builder.DependenciesProvider)
	if resolveError != nil {
		return resolveError
	}
	if modeFlag := command.Flags().Lookup(modeFlagNameConstant); modeFlag != nil && modeFlag.Changed {
		set.Workflow.SubmissionMode = workflow.SubmissionMode(modeFlag.Value.String())
	}
	auditWorkflow, workflowError := set.NewWorkflow(command.ErrOrStderr())
	if workflowError != nil {
		return workflowError
	}

	audit, loadError := auditWorkflow.Load(command.Context(), auditID)
	if loadError != nil {
		return loadError
	}

	answered := make(map[int64]struct{}, len(answers))
	for _, answer := range answers {
		if answerError := auditWorkflow.Answer(answer.ItemID, answer.Response, answer.Notes); answerError != nil {
			return answerError
		}
		answered[answer.ItemID] = struct{}{}
	}

	if interactive, _ := command.Flags().GetBool(interactiveFlagNameConstant); interactive {
		prompter := dependencies.ResolvePrompter(set.Prompter, command.InOrStdin(), command.ErrOrStderr())
		if promptError := promptAnswers(command, prompter, auditWorkflow, audit, answered); promptError != nil {
			return promptError
		}
	}

	responseCount := len(auditWorkflow.PendingResponses())
	submittedAudit, submitError := auditWorkflow.SubmitChecklist(command.Context())
	if submitError != nil {
		return submitError
	}

	set.Logger.Info(checklistSubmittedMessageConstant, zap.Int64(auditIdentifierLogFieldConstant, submittedAudit.ID), zap.Int(responseCountLogFieldConstant, responseCount))
	_, writeError := fmt.Fprintf(command.OutOrStdout(), auditSubmittedTemplateConstant, submittedAudit.ID, responseCount)
	return writeError
}

func collectAnswers(command *cobra.Command) ([]checklistAnswer, error) {
	answers := []checklistAnswer{}
	if answersFile, _ := command.Flags().GetString(answersFileFlagNameConstant); len(strings.TrimSpace(answersFile)) > 0 {
		fileAnswers, fileError := loadAnswersFile(answersFile)
		if fileError != nil {
			return nil, fileError
		}
		answers = append(answers, fileAnswers...)
	}

	rawAnswers, _ := command.Flags().GetStringArray(answerFlagNameConstant)
	for _, rawAnswer := range rawAnswers {
		answer, answerError := parseAnswerArgument(rawAnswer)
		if answerError != nil {
			return nil, answerError
		}
		answers = append(answers, answer)
	}
	return answers, nil
}

func promptAnswers(command *cobra.Command, prompter dependencies.Prompter, auditWorkflow *workflow.Workflow, audit apiclient.Audit, answered map[int64]struct{}) error {
	groups := workflow.GroupByCategory(audit.Checklists, auditWorkflow.Configuration().CategoryMarkerPrefix)
	for _, group := range groups {
		if len(group.Title) > 0 {
			if _, writeError := fmt.Fprintf(command.ErrOrStderr(), categoryBannerTemplateConstant, group.Title); writeError != nil {
				return writeError
			}
		}
		items := group.Items
		if group.Header != nil {
			items = append([]apiclient.ChecklistItem{*group.Header}, group.Items...)
		}
		for _, item := range items {
			if _, alreadyAnswered := answered[item.ID]; alreadyAnswered {
				continue
			}
			if promptError := promptItem(prompter, auditWorkflow, item); promptError != nil {
				return promptError
			}
		}
	}
	return nil
}

func promptItem(prompter dependencies.Prompter, auditWorkflow *workflow.Workflow, item apiclient.ChecklistItem) error {
	for {
		rawResponse, askError := prompter.Ask(fmt.Sprintf(answerPromptTemplateConstant, item.ID, item.Item))
		if askError != nil {
			return askError
		}
		if len(strings.TrimSpace(rawResponse)) == 0 {
			rawResponse = string(apiclient.ResponseValueNotApplicable)
		}
		response, parseError := apiclient.ParseResponseValue(rawResponse)
		if parseError != nil {
			continue
		}
		notes, notesError := prompter.Ask(notesPromptConstant)
		if notesError != nil {
			return notesError
		}
		return auditWorkflow.Answer(item.ID, response, strings.TrimSpace(notes))
	}
}

func (builder *CommandBuilder) buildItem() *cobra.Command {
	command := &cobra.Command{Use: itemUseConstant, Short: itemShortConstant, Args: cobra.ExactArgs(2)}
	flags.AddOptionalToggleFlag(command.Flags(), completedFlagNameConstant, completedFlagShorthandConstant, completedFlagUsageConstant)
	command.Flags().String(notesFlagNameConstant, "", notesFlagUsageConstant)
	command.RunE = func(command *cobra.Command, arguments []string) error {
		auditID, parseError := parseIdentifier(arguments[0], auditIdentifierErrorTemplateConstant)
		if parseError != nil {
			return parseError
		}
		itemID, itemParseError := parseIdentifier(arguments[1], itemIdentifierErrorTemplateConstant)
		if itemParseError != nil {
			return itemParseError
		}
		auditWorkflow, _, workflowError := builder.resolveWorkflow(command)
		if workflowError != nil {
			return workflowError
		}
		audit, loadError := auditWorkflow.Load(command.Context(), auditID)
		if loadError != nil {
			return loadError
		}

		current := existingItem(audit, itemID)
		notes := current.Notes
		if command.Flags().Changed(notesFlagNameConstant) {
			notes, _ = command.Flags().GetString(notesFlagNameConstant)
		}
		completed := current.IsCompleted
		if requested := flags.ChangedToggle(command.Flags(), completedFlagNameConstant); requested != nil {
			completed = *requested
		}
		savedItem, updateError := auditWorkflow.UpdateItem(command.Context(), itemID, completed, notes)
		if updateError != nil {
			return updateError
		}
		completedLabel := noLabelConstant
		if savedItem.IsCompleted {
			completedLabel = yesLabelConstant
		}
		_, writeError := fmt.Fprintf(command.OutOrStdout(), itemSavedTemplateConstant, itemID, completedLabel)
		return writeError
	}
	return command
}

func (builder *CommandBuilder) buildReview() *cobra.Command {
	command := &cobra.Command{Use: reviewUseConstant, Short: reviewShortConstant, Args: cobra.ExactArgs(1)}
	command.Flags().Bool(completeFlagNameConstant, false, completeFlagUsageConstant)
	output := bindOutput(command)
	command.RunE = func(command *cobra.Command, arguments []string) error {
		auditID, parseError := parseIdentifier(arguments[0], auditIdentifierErrorTemplateConstant)
		if parseError != nil {
			return parseError
		}
		auditWorkflow, _, workflowError := builder.resolveWorkflow(command)
		if workflowError != nil {
			return workflowError
		}

		if complete, _ := command.Flags().GetBool(completeFlagNameConstant); complete {
			if _, loadError := auditWorkflow.Load(command.Context(), auditID); loadError != nil {
				return loadError
			}
			completedAudit, completeError := auditWorkflow.Complete(command.Context())
			if completeError != nil {
				return completeError
			}
			if _, writeError := fmt.Fprintf(command.ErrOrStderr(), auditCompletedTemplateConstant, completedAudit.ID); writeError != nil {
				return writeError
			}
		}
		return emitResults(command, auditWorkflow, auditID, *output)
	}
	return command
}

func (builder *CommandBuilder) buildResults() *cobra.Command {
	command := &cobra.Command{Use: resultsUseConstant, Short: resultsShortConstant, Args: cobra.ExactArgs(1)}
	output := bindOutput(command)
	command.RunE = func(command *cobra.Command, arguments []string) error {
		auditID, parseError := parseIdentifier(arguments[0], auditIdentifierErrorTemplateConstant)
		if parseError != nil {
			return parseError
		}
		auditWorkflow, _, workflowError := builder.resolveWorkflow(command)
		if workflowError != nil {
			return workflowError
		}
		return emitResults(command, auditWorkflow, auditID, *output)
	}
	return command
}

func emitResults(command *cobra.Command, auditWorkflow *workflow.Workflow, auditID int64, output flags.OutputFlagValues) error {
	resultSet, resultsError := auditWorkflow.Results(command.Context(), auditID)
	if resultsError != nil {
		return resultsError
	}
	summary := workflow.Summarize(resultSet.Rows)
	groups := workflow.GroupByCategory(resultSet.Audit.Checklists, auditWorkflow.Configuration().CategoryMarkerPrefix)
	return emit(command, output, report.ResultsDocument(resultSet, summary, groups))
}

func (builder *CommandBuilder) resolveWorkflow(command *cobra.Command) (*workflow.Workflow, dependencies.Set, error) {
	set, resolveError := dependencies.Resolve(builder.DependenciesProvider)
	if resolveError != nil {
		return nil, dependencies.Set{}, resolveError
	}
	auditWorkflow, workflowError := set.NewWorkflow(command.ErrOrStderr())
	if workflowError != nil {
		return nil, dependencies.Set{}, workflowError
	}
	return auditWorkflow, set, nil
}

func detailDocument(auditWorkflow *workflow.Workflow, audit apiclient.Audit) report.Document {
	groups := workflow.GroupByCategory(audit.Checklists, auditWorkflow.Configuration().CategoryMarkerPrefix)
	return report.AuditDetailDocument(audit, groups)
}

func existingItem(audit apiclient.Audit, itemID int64) apiclient.ChecklistItem {
	for _, item := range audit.Checklists {
		if item.ID == itemID {
			return item
		}
	}
	return apiclient.ChecklistItem{ID: itemID}
}

func bindOutput(command *cobra.Command) *flags.OutputFlagValues {
	return flags.BindOutputFlags(command, flags.OutputFlagValues{Format: string(report.FormatTable)}, flags.OutputFlagDefinition{Choices: report.Formats()})
}

func emit(command *cobra.Command, output flags.OutputFlagValues, document report.Document) error {
	format, formatError := report.ParseFormat(output.Format)
	if formatError != nil {
		return formatError
	}
	return report.Emit(command.OutOrStdout(), output.OutputPath, format, document)
}

func parseIdentifier(rawIdentifier string, errorTemplate string) (int64, error) {
	identifier, parseError := strconv.ParseInt(strings.TrimSpace(rawIdentifier), 10, 64)
	if parseError != nil || identifier <= 0 {
		return 0, fmt.Errorf(errorTemplate, rawIdentifier)
	}
	return identifier, nil
}

func choiceUsage(template string, choices []string) string {
	return fmt.Sprintf(template, strings.Join(choices, choiceListSeparatorConstant))
}
