package admin

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	adminservice "github.com/temirov/auditdesk/internal/admin"
	"github.com/temirov/auditdesk/internal/apiclient"
	"github.com/temirov/auditdesk/internal/dependencies"
	"github.com/temirov/auditdesk/internal/guard"
	"github.com/temirov/auditdesk/internal/report"
	"github.com/temirov/auditdesk/internal/utils/flags"
)

const (
	groupUseConstant                  = "admin"
	groupShortConstant                = "Manage users and administrator invitations"
	usersUseConstant                  = "users"
	usersShortConstant                = "Manage user accounts"
	invitationsUseConstant            = "invitations"
	invitationsAliasConstant          = "invites"
	invitationsShortConstant          = "Manage administrator invitations"
	listUseConstant                   = "list"
	listUsersShortConstant            = "List user accounts"
	listInvitationsShortConstant      = "List invitations with their status"
	showUserUseConstant               = "show <user-id>"
	showUserShortConstant             = "Show a user account"
	createUserUseConstant             = "create"
	createUserShortConstant           = "Create a user account"
	newUsernameFlagUsageConstant      = "Username of the new account"
	newEmailFlagUsageConstant         = "Email address of the new account"
	passwordFlagNameConstant          = "password"
	passwordFlagShorthandConstant     = "p"
	passwordFlagUsageConstant         = "Password of the new account (prompted when omitted)"
	passwordPromptConstant            = "Password: "
	newStaffFlagUsageConstant         = "Create the account with administrator rights"
	editUserUseConstant               = "edit <user-id>"
	editUserShortConstant             = "Change a user's username, email or administrator rights"
	deleteUserUseConstant             = "delete <user-id>"
	deleteUserShortConstant           = "Delete a user account"
	createInvitationUseConstant       = "create <email>"
	createInvitationShortConstant     = "Invite an administrator by email"
	deleteInvitationUseConstant       = "delete <invitation-id>"
	deleteInvitationShortConstant     = "Revoke an invitation"
	validateInvitationUseConstant     = "validate <token>"
	validateInvitationShortConstant   = "Check an invitation token and show the invited email"
	usernameFlagNameConstant          = "username"
	usernameFlagUsageConstant         = "New username"
	emailFlagNameConstant             = "email"
	emailFlagUsageConstant            = "New email address"
	staffFlagNameConstant             = "staff"
	staffFlagUsageConstant            = "Grant or revoke administrator rights"
	identifierErrorTemplateConstant   = "invalid %s identifier %q"
	userIdentifierLabelConstant       = "user"
	invitationIdentifierLabelConstant = "invitation"
	userDeletedTemplateConstant       = "User %d deleted\n"
	invitationRevokedTemplateConstant = "Invitation %d revoked\n"
	invitationValidTemplateConstant   = "Invitation valid for %s\n"
)

// CommandBuilder assembles the admin command group.
type CommandBuilder struct {
	DependenciesProvider dependencies.Provider
}

// Build constructs the admin command with its users and invitations subcommands.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	groupCommand := &cobra.Command{
		Use:   groupUseConstant,
		Short: groupShortConstant,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}
	dependencies.AnnotateRoute(groupCommand, guard.AdminRoute)
	flags.BindExecutionFlags(groupCommand, flags.ExecutionDefaults{}, flags.DefaultExecutionFlagDefinitions())

	usersCommand := &cobra.Command{Use: usersUseConstant, Short: usersShortConstant, Args: cobra.NoArgs}
	usersCommand.AddCommand(builder.buildListUsers(), builder.buildShowUser(), builder.buildCreateUser(), builder.buildEditUser(), builder.buildDeleteUser())

	invitationsCommand := &cobra.Command{Use: invitationsUseConstant, Aliases: []string{invitationsAliasConstant}, Short: invitationsShortConstant, Args: cobra.NoArgs}
	invitationsCommand.AddCommand(builder.buildListInvitations(), builder.buildCreateInvitation(), builder.buildDeleteInvitation(), builder.buildValidateInvitation())

	groupCommand.AddCommand(usersCommand, invitationsCommand)
	return groupCommand, nil
}

func (builder *CommandBuilder) buildListUsers() *cobra.Command {
	command := &cobra.Command{Use: listUseConstant, Short: listUsersShortConstant, Args: cobra.NoArgs}
	output := bindOutput(command)
	command.RunE = func(command *cobra.Command, arguments []string) error {
		service, _, serviceError := builder.resolveService()
		if serviceError != nil {
			return serviceError
		}
		users, listError := service.ListUsers(command.Context())
		if listError != nil {
			return listError
		}
		return emit(command, *output, report.UsersDocument(users))
	}
	return command
}

func (builder *CommandBuilder) buildShowUser() *cobra.Command {
	command := &cobra.Command{Use: showUserUseConstant, Short: showUserShortConstant, Args: cobra.ExactArgs(1)}
	output := bindOutput(command)
	command.RunE = func(command *cobra.Command, arguments []string) error {
		userID, parseError := parseIdentifier(arguments[0], userIdentifierLabelConstant)
		if parseError != nil {
			return parseError
		}
		service, _, serviceError := builder.resolveService()
		if serviceError != nil {
			return serviceError
		}
		user, fetchError := service.GetUser(command.Context(), userID)
		if fetchError != nil {
			return fetchError
		}
		return emit(command, *output, report.UsersDocument([]apiclient.User{user}))
	}
	return command
}

func (builder *CommandBuilder) buildCreateUser() *cobra.Command {
	command := &cobra.Command{Use: createUserUseConstant, Short: createUserShortConstant, Args: cobra.NoArgs}
	command.Flags().String(usernameFlagNameConstant, "", newUsernameFlagUsageConstant)
	command.Flags().String(emailFlagNameConstant, "", newEmailFlagUsageConstant)
	command.Flags().StringP(passwordFlagNameConstant, passwordFlagShorthandConstant, "", passwordFlagUsageConstant)
	var isStaff bool
	flags.AddToggleFlag(command.Flags(), &isStaff, staffFlagNameConstant, "", false, newStaffFlagUsageConstant)
	output := bindOutput(command)
	command.RunE = func(command *cobra.Command, arguments []string) error {
		service, set, serviceError := builder.resolveService()
		if serviceError != nil {
			return serviceError
		}

		newUser := adminservice.NewUser{IsStaff: isStaff}
		newUser.Username, _ = command.Flags().GetString(usernameFlagNameConstant)
		newUser.Email, _ = command.Flags().GetString(emailFlagNameConstant)
		newUser.Password, _ = command.Flags().GetString(passwordFlagNameConstant)
		if len(strings.TrimSpace(newUser.Password)) == 0 {
			prompter := dependencies.ResolvePrompter(set.Prompter, command.InOrStdin(), command.ErrOrStderr())
			answer, promptError := prompter.Ask(passwordPromptConstant)
			if promptError != nil {
				return promptError
			}
			newUser.Password = answer
		}

		createdUser, createError := service.CreateUser(command.Context(), newUser)
		if createError != nil {
			return createError
		}
		return emit(command, *output, report.UsersDocument([]apiclient.User{createdUser}))
	}
	return command
}

func (builder *CommandBuilder) buildEditUser() *cobra.Command {
	command := &cobra.Command{Use: editUserUseConstant, Short: editUserShortConstant, Args: cobra.ExactArgs(1)}
	command.Flags().String(usernameFlagNameConstant, "", usernameFlagUsageConstant)
	command.Flags().String(emailFlagNameConstant, "", emailFlagUsageConstant)
	flags.AddOptionalToggleFlag(command.Flags(), staffFlagNameConstant, "", staffFlagUsageConstant)
	output := bindOutput(command)
	command.RunE = func(command *cobra.Command, arguments []string) error {
		userID, parseError := parseIdentifier(arguments[0], userIdentifierLabelConstant)
		if parseError != nil {
			return parseError
		}
		service, _, serviceError := builder.resolveService()
		if serviceError != nil {
			return serviceError
		}

		changes := adminservice.UserChanges{
			Username: changedString(command, usernameFlagNameConstant),
			Email:    changedString(command, emailFlagNameConstant),
			IsStaff:  flags.ChangedToggle(command.Flags(), staffFlagNameConstant),
		}
		updatedUser, updateError := service.UpdateUser(command.Context(), userID, changes)
		if updateError != nil {
			return updateError
		}
		return emit(command, *output, report.UsersDocument([]apiclient.User{updatedUser}))
	}
	return command
}

func (builder *CommandBuilder) buildDeleteUser() *cobra.Command {
	command := &cobra.Command{Use: deleteUserUseConstant, Short: deleteUserShortConstant, Args: cobra.ExactArgs(1)}
	command.RunE = func(command *cobra.Command, arguments []string) error {
		userID, parseError := parseIdentifier(arguments[0], userIdentifierLabelConstant)
		if parseError != nil {
			return parseError
		}
		service, set, serviceError := builder.resolveService()
		if serviceError != nil {
			return serviceError
		}
		prompter := dependencies.ResolvePrompter(set.Prompter, command.InOrStdin(), command.ErrOrStderr())
		if deleteError := service.DeleteUser(command.Context(), userID, prompter, flags.AssumeYes(command)); deleteError != nil {
			return deleteError
		}
		_, writeError := fmt.Fprintf(command.OutOrStdout(), userDeletedTemplateConstant, userID)
		return writeError
	}
	return command
}

func (builder *CommandBuilder) buildListInvitations() *cobra.Command {
	command := &cobra.Command{Use: listUseConstant, Short: listInvitationsShortConstant, Args: cobra.NoArgs}
	output := bindOutput(command)
	command.RunE = func(command *cobra.Command, arguments []string) error {
		service, _, serviceError := builder.resolveService()
		if serviceError != nil {
			return serviceError
		}
		views, listError := service.ListInvitations(command.Context())
		if listError != nil {
			return listError
		}
		return emit(command, *output, report.InvitationsDocument(views))
	}
	return command
}

func (builder *CommandBuilder) buildCreateInvitation() *cobra.Command {
	command := &cobra.Command{Use: createInvitationUseConstant, Short: createInvitationShortConstant, Args: cobra.ExactArgs(1)}
	output := bindOutput(command)
	command.RunE = func(command *cobra.Command, arguments []string) error {
		service, set, serviceError := builder.resolveService()
		if serviceError != nil {
			return serviceError
		}
		invitation, inviteError := service.InviteAdmin(command.Context(), arguments[0])
		if inviteError != nil {
			return inviteError
		}
		view := adminservice.InvitationView{Invitation: invitation, Status: invitation.EffectiveStatus(set.Now())}
		return emit(command, *output, report.InvitationsDocument([]adminservice.InvitationView{view}))
	}
	return command
}

func (builder *CommandBuilder) buildDeleteInvitation() *cobra.Command {
	command := &cobra.Command{Use: deleteInvitationUseConstant, Short: deleteInvitationShortConstant, Args: cobra.ExactArgs(1)}
	command.RunE = func(command *cobra.Command, arguments []string) error {
		invitationID, parseError := parseIdentifier(arguments[0], invitationIdentifierLabelConstant)
		if parseError != nil {
			return parseError
		}
		service, set, serviceError := builder.resolveService()
		if serviceError != nil {
			return serviceError
		}
		prompter := dependencies.ResolvePrompter(set.Prompter, command.InOrStdin(), command.ErrOrStderr())
		if revokeError := service.RevokeInvitation(command.Context(), invitationID, prompter, flags.AssumeYes(command)); revokeError != nil {
			return revokeError
		}
		_, writeError := fmt.Fprintf(command.OutOrStdout(), invitationRevokedTemplateConstant, invitationID)
		return writeError
	}
	return command
}

func (builder *CommandBuilder) buildValidateInvitation() *cobra.Command {
	command := &cobra.Command{Use: validateInvitationUseConstant, Short: validateInvitationShortConstant, Args: cobra.ExactArgs(1)}
	dependencies.AnnotateRoute(command, guard.RegisterRoute)
	command.RunE = func(command *cobra.Command, arguments []string) error {
		service, _, serviceError := builder.resolveService()
		if serviceError != nil {
			return serviceError
		}
		validation, validationError := service.ValidateInvitationToken(command.Context(), arguments[0])
		if validationError != nil {
			return validationError
		}
		_, writeError := fmt.Fprintf(command.OutOrStdout(), invitationValidTemplateConstant, validation.Email)
		return writeError
	}
	return command
}

func (builder *CommandBuilder) resolveService() (*adminservice.Service, dependencies.Set, error) {
	set, resolveError := dependencies.Resolve(builder.DependenciesProvider)
	if resolveError != nil {
		return nil, dependencies.Set{}, resolveError
	}
	service, serviceError := set.NewAdminService()
	if serviceError != nil {
		return nil, dependencies.Set{}, serviceError
	}
	return service, set, nil
}

func changedString(command *cobra.Command, flagName string) *string {
	if !command.Flags().Changed(flagName) {
		return nil
	}
	value, _ := command.Flags().GetString(flagName)
	return &value
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

func parseIdentifier(rawIdentifier string, label string) (int64, error) {
	identifier, parseError := strconv.ParseInt(strings.TrimSpace(rawIdentifier), 10, 64)
	if parseError != nil || identifier <= 0 {
		return 0, fmt.Errorf(identifierErrorTemplateConstant, label, rawIdentifier)
	}
	return identifier, nil
}
