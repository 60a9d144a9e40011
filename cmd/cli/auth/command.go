package auth

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/auditdesk/internal/dependencies"
	"github.com/temirov/auditdesk/internal/guard"
	"github.com/temirov/auditdesk/internal/report"
	"github.com/temirov/auditdesk/internal/session"
	"github.com/temirov/auditdesk/internal/utils/flags"
)

const (
	loginCommandUseConstant                   = "login [username-or-email]"
	loginCommandShortConstant                 = "Sign in and store the session tokens"
	loginCommandLongConstant                  = "Sign in by username, or by email when the identifier contains @. Missing values are prompted for."
	logoutCommandUseConstant                  = "logout"
	logoutCommandShortConstant                = "Sign out and remove the stored tokens"
	registerCommandUseConstant                = "register"
	registerCommandShortConstant              = "Create an account and sign in"
	registerCommandLongConstant               = "Create an account; the username is derived from the email. An invitation token grants administrator rights and fills in the invited email."
	whoamiCommandUseConstant                  = "whoami"
	whoamiCommandShortConstant                = "Show the signed-in account"
	viewAsUserCommandUseConstant              = "view-as-user"
	viewAsUserCommandShortConstant            = "Toggle the standard user view for administrators"
	passwordFlagNameConstant                  = "password"
	passwordFlagShorthandConstant             = "p"
	passwordFlagUsageConstant                 = "Account password (prompted when omitted)"
	emailFlagNameConstant                     = "email"
	emailFlagUsageConstant                    = "Email address of the new account"
	confirmationFlagNameConstant              = "password-confirmation"
	confirmationFlagUsageConstant             = "Repeat the password (prompted when omitted)"
	invitationTokenFlagNameConstant           = "invitation-token"
	invitationTokenFlagUsageConstant          = "Administrator invitation token"
	identifierPromptConstant                  = "Username or email: "
	passwordPromptConstant                    = "Password: "
	emailPromptConstant                       = "Email: "
	confirmationPromptConstant                = "Confirm password: "
	signedInTemplateConstant                  = "Signed in as %s\n"
	registeredTemplateConstant                = "Registered and signed in as %s\n"
	signedOutMessageConstant                  = "Signed out\n"
	viewAsUserEnabledMessageConstant          = "Now viewing as a standard user\n"
	viewAsUserDisabledMessageConstant         = "Administrator view restored\n"
	invitationEmailTemplateConstant           = "Invitation accepted for %s\n"
	signedInLogMessageConstant                = "signed in"
	registeredLogMessageConstant              = "registered"
	signedOutLogMessageConstant               = "signed out"
	viewToggledLogMessageConstant             = "view preference toggled"
	usernameLogFieldConstant                  = "username"
	viewAsUserLogFieldConstant                = "view_as_user"
	invitationValidationErrorTemplateConstant = "invitation token rejected: %w"
)

// CommandBuilder assembles the account commands.
type CommandBuilder struct {
	DependenciesProvider dependencies.Provider
}

// Build constructs the login, logout, register, whoami and view-as-user commands.
func (builder *CommandBuilder) Build() ([]*cobra.Command, error) {
	loginCommand := &cobra.Command{
		Use:   loginCommandUseConstant,
		Short: loginCommandShortConstant,
		Long:  loginCommandLongConstant,
		Args:  cobra.MaximumNArgs(1),
		RunE:  builder.runLogin,
	}
	loginCommand.Flags().StringP(passwordFlagNameConstant, passwordFlagShorthandConstant, "", passwordFlagUsageConstant)
	dependencies.AnnotateRoute(loginCommand, guard.LoginRoute)

	logoutCommand := &cobra.Command{
		Use:   logoutCommandUseConstant,
		Short: logoutCommandShortConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.runLogout,
	}
	dependencies.AnnotateRoute(logoutCommand, guard.LoginRoute)

	registerCommand := &cobra.Command{
		Use:   registerCommandUseConstant,
		Short: registerCommandShortConstant,
		Long:  registerCommandLongConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.runRegister,
	}
	registerCommand.Flags().String(emailFlagNameConstant, "", emailFlagUsageConstant)
	registerCommand.Flags().StringP(passwordFlagNameConstant, passwordFlagShorthandConstant, "", passwordFlagUsageConstant)
	registerCommand.Flags().String(confirmationFlagNameConstant, "", confirmationFlagUsageConstant)
	registerCommand.Flags().String(invitationTokenFlagNameConstant, "", invitationTokenFlagUsageConstant)
	dependencies.AnnotateRoute(registerCommand, guard.RegisterRoute)

	whoamiCommand := &cobra.Command{
		Use:   whoamiCommandUseConstant,
		Short: whoamiCommandShortConstant,
		Args:  cobra.NoArgs,
	}
	whoamiOutput := flags.BindOutputFlags(whoamiCommand, flags.OutputFlagValues{Format: string(report.FormatTable)}, flags.OutputFlagDefinition{Choices: report.Formats()})
	whoamiCommand.RunE = func(command *cobra.Command, arguments []string) error {
		return builder.runWhoami(command, *whoamiOutput)
	}
	dependencies.AnnotateRoute(whoamiCommand, guard.ProfileRoute)

	viewAsUserCommand := &cobra.Command{
		Use:   viewAsUserCommandUseConstant,
		Short: viewAsUserCommandShortConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.runViewAsUser,
	}
	dependencies.AnnotateRoute(viewAsUserCommand, guard.ProfileRoute)

	return []*cobra.Command{loginCommand, logoutCommand, registerCommand, whoamiCommand, viewAsUserCommand}, nil
}

func (builder *CommandBuilder) runLogin(command *cobra.Command, arguments []string) error {
	set, sessionController, resolveError := builder.resolveSession()
	if resolveError != nil {
		return resolveError
	}
	prompter := dependencies.ResolvePrompter(set.Prompter, command.InOrStdin(), command.ErrOrStderr())

	identifier := ""
	if len(arguments) > 0 {
		identifier = arguments[0]
	}
	identifier, promptError := valueOrPrompt(prompter, identifier, identifierPromptConstant)
	if promptError != nil {
		return promptError
	}
	password, _ := command.Flags().GetString(passwordFlagNameConstant)
	password, promptError = valueOrPrompt(prompter, password, passwordPromptConstant)
	if promptError != nil {
		return promptError
	}

	user, loginError := sessionController.Login(command.Context(), identifier, password)
	if loginError != nil {
		return loginError
	}

	set.Logger.Info(signedInLogMessageConstant, zap.String(usernameLogFieldConstant, user.Username))
	_, writeError := fmt.Fprintf(command.OutOrStdout(), signedInTemplateConstant, user.Username)
	return writeError
}

func (builder *CommandBuilder) runLogout(command *cobra.Command, arguments []string) error {
	set, sessionController, resolveError := builder.resolveSession()
	if resolveError != nil {
		return resolveError
	}
	if logoutError := sessionController.Logout(); logoutError != nil {
		return logoutError
	}
	set.Logger.Info(signedOutLogMessageConstant)
	_, writeError := fmt.Fprint(command.OutOrStdout(), signedOutMessageConstant)
	return writeError
}

func (builder *CommandBuilder) runRegister(command *cobra.Command, arguments []string) error {
	set, sessionController, resolveError := builder.resolveSession()
	if resolveError != nil {
		return resolveError
	}
	prompter := dependencies.ResolvePrompter(set.Prompter, command.InOrStdin(), command.ErrOrStderr())

	request := session.RegistrationRequest{}
	request.Email, _ = command.Flags().GetString(emailFlagNameConstant)
	request.Password, _ = command.Flags().GetString(passwordFlagNameConstant)
	request.PasswordConfirmation, _ = command.Flags().GetString(confirmationFlagNameConstant)
	request.InvitationToken, _ = command.Flags().GetString(invitationTokenFlagNameConstant)
	request.InvitationToken = strings.TrimSpace(request.InvitationToken)

	if len(request.InvitationToken) > 0 && len(strings.TrimSpace(request.Email)) == 0 {
		invitedEmail, validationError := builder.invitedEmail(command, set, request.InvitationToken)
		if validationError != nil {
			return validationError
		}
		request.Email = invitedEmail
	}

	var promptError error
	if request.Email, promptError = valueOrPrompt(prompter, request.Email, emailPromptConstant); promptError != nil {
		return promptError
	}
	if request.Password, promptError = valueOrPrompt(prompter, request.Password, passwordPromptConstant); promptError != nil {
		return promptError
	}
	if request.PasswordConfirmation, promptError = valueOrPrompt(prompter, request.PasswordConfirmation, confirmationPromptConstant); promptError != nil {
		return promptError
	}

	user, registerError := sessionController.Register(command.Context(), request)
	if registerError != nil {
		return registerError
	}

	set.Logger.Info(registeredLogMessageConstant, zap.String(usernameLogFieldConstant, user.Username))
	_, writeError := fmt.Fprintf(command.OutOrStdout(), registeredTemplateConstant, user.Username)
	return writeError
}

func (builder *CommandBuilder) invitedEmail(command *cobra.Command, set dependencies.Set, token string) (string, error) {
	service, serviceError := set.NewAdminService()
	if serviceError != nil {
		return "", serviceError
	}
	validation, validationError := service.ValidateInvitationToken(command.Context(), token)
	if validationError != nil {
		return "", fmt.Errorf(invitationValidationErrorTemplateConstant, validationError)
	}
	if _, writeError := fmt.Fprintf(command.ErrOrStderr(), invitationEmailTemplateConstant, validation.Email); writeError != nil {
		return "", writeError
	}
	return validation.Email, nil
}

func (builder *CommandBuilder) runWhoami(command *cobra.Command, output flags.OutputFlagValues) error {
	format, formatError := report.ParseFormat(output.Format)
	if formatError != nil {
		return formatError
	}
	set, sessionController, resolveError := builder.resolveSession()
	if resolveError != nil {
		return resolveError
	}
	user, userError := set.RequireUser()
	if userError != nil {
		return userError
	}
	return report.Emit(command.OutOrStdout(), output.OutputPath, format, report.ProfileDocument(user, sessionController.IsViewingAsUser()))
}

func (builder *CommandBuilder) runViewAsUser(command *cobra.Command, arguments []string) error {
	set, sessionController, resolveError := builder.resolveSession()
	if resolveError != nil {
		return resolveError
	}
	viewingAsUser, toggleError := sessionController.ToggleViewAsUser()
	if toggleError != nil {
		return toggleError
	}

	set.Logger.Info(viewToggledLogMessageConstant, zap.Bool(viewAsUserLogFieldConstant, viewingAsUser))
	message := viewAsUserDisabledMessageConstant
	if viewingAsUser {
		message = viewAsUserEnabledMessageConstant
	}
	_, writeError := fmt.Fprint(command.OutOrStdout(), message)
	return writeError
}

func (builder *CommandBuilder) resolveSession() (dependencies.Set, dependencies.Session, error) {
	set, resolveError := dependencies.Resolve(builder.DependenciesProvider)
	if resolveError != nil {
		return dependencies.Set{}, nil, resolveError
	}
	if set.Session == nil {
		return dependencies.Set{}, nil, dependencies.ErrSessionNotConfigured
	}
	return set, set.Session, nil
}

func valueOrPrompt(prompter dependencies.Prompter, currentValue string, prompt string) (string, error) {
	if len(strings.TrimSpace(currentValue)) > 0 {
		return currentValue, nil
	}
	return prompter.Ask(prompt)
}
