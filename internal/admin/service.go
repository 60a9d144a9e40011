package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/temirov/auditdesk/internal/apiclient"
)

const (
	emailValidationTagConstant           = "required,email"
	emailFieldNameConstant               = "email"
	usernameFieldNameConstant            = "username"
	tokenFieldNameConstant               = "token"
	passwordFieldNameConstant            = "password"
	identifierFieldNameConstant          = "id"
	deleteUserPromptTemplateConstant     = "Delete user %s (id %d)? This cannot be undone. [y/N] "
	deleteInvitePromptTemplateConstant   = "Revoke invitation %d? [y/N] "
	userCreatedMessageConstant           = "User created"
	userUpdatedMessageConstant           = "User updated"
	userDeletedMessageConstant           = "User deleted"
	invitationCreatedMessageConstant     = "Admin invitation created"
	invitationDeletedMessageConstant     = "Admin invitation revoked"
	userIdentifierLogFieldConstant       = "user_id"
	invitationIdentifierLogFieldConstant = "invitation_id"
	emailLogFieldConstant                = "email"
	staffLogFieldConstant                = "is_staff"
	expiresAtLogFieldConstant            = "expires_at"
)

// Client exposes the user and invitation endpoints used by the service.
type Client interface {
	ListUsers(executionContext context.Context) ([]apiclient.User, error)
	GetUser(executionContext context.Context, userID int64) (apiclient.User, error)
	CreateUser(executionContext context.Context, create apiclient.UserCreate) (apiclient.User, error)
	UpdateUser(executionContext context.Context, userID int64, update apiclient.UserUpdate) (apiclient.User, error)
	DeleteUser(executionContext context.Context, userID int64) error
	ListInvitations(executionContext context.Context) ([]apiclient.AdminInvitation, error)
	CreateInvitation(executionContext context.Context, email string) (apiclient.AdminInvitation, error)
	DeleteInvitation(executionContext context.Context, invitationID int64) error
	ValidateInvitationToken(executionContext context.Context, token string) (apiclient.InvitationTokenValidation, error)
}

// ConfirmationPrompter asks the user to confirm destructive operations.
type ConfirmationPrompter interface {
	Confirm(prompt string) (bool, error)
}

// Dependencies configures the collaborators of a Service.
type Dependencies struct {
	Client Client
	Logger *zap.Logger
	Now    func() time.Time
}

// UserChanges describes the fields an administrator wants to modify; nil fields are left untouched.
type UserChanges struct {
	Username *string
	Email    *string
	IsStaff  *bool
}

// NewUser describes an account to provision. Email may be left blank.
type NewUser struct {
	Username string
	Email    string
	Password string
	IsStaff  bool
}

// InvitationView pairs an invitation with its effective status.
type InvitationView struct {
	Invitation apiclient.AdminInvitation
	Status     apiclient.InvitationStatus
}

// Service coordinates administrative operations.
type Service struct {
	client   Client
	logger   *zap.Logger
	now      func() time.Time
	validate *validator.Validate
}

// NewService validates the dependencies and constructs a Service.
func NewService(dependencies Dependencies) (*Service, error) {
	if dependencies.Client == nil {
		return nil, ErrClientNotConfigured
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := dependencies.Now
	if now == nil {
		now = time.Now
	}
	return &Service{client: dependencies.Client, logger: logger, now: now, validate: validator.New()}, nil
}

// ListUsers returns every account.
func (service *Service) ListUsers(executionContext context.Context) ([]apiclient.User, error) {
	return service.client.ListUsers(executionContext)
}

// GetUser returns a single account.
func (service *Service) GetUser(executionContext context.Context, userID int64) (apiclient.User, error) {
	if userID <= 0 {
		return apiclient.User{}, ValidationError{FieldName: identifierFieldNameConstant, Message: identifierInvalidMessageConstant}
	}
	return service.client.GetUser(executionContext, userID)
}

// CreateUser validates the new account and provisions it.
func (service *Service) CreateUser(executionContext context.Context, newUser NewUser) (apiclient.User, error) {
	create := apiclient.UserCreate{Username: strings.TrimSpace(newUser.Username), Password: newUser.Password, IsStaff: newUser.IsStaff}
	if len(create.Username) == 0 {
		return apiclient.User{}, ValidationError{FieldName: usernameFieldNameConstant, Message: usernameBlankMessageConstant}
	}
	if len(strings.TrimSpace(newUser.Email)) > 0 {
		normalizedEmail, emailError := service.normalizeEmail(newUser.Email)
		if emailError != nil {
			return apiclient.User{}, emailError
		}
		create.Email = normalizedEmail
	}
	if len(strings.TrimSpace(create.Password)) == 0 {
		return apiclient.User{}, ValidationError{FieldName: passwordFieldNameConstant, Message: passwordBlankMessageConstant}
	}

	createdUser, createError := service.client.CreateUser(executionContext, create)
	if createError != nil {
		return apiclient.User{}, createError
	}
	service.logger.Info(userCreatedMessageConstant,
		zap.Int64(userIdentifierLogFieldConstant, createdUser.ID),
		zap.Bool(staffLogFieldConstant, createdUser.IsStaff),
	)
	return createdUser, nil
}

// UpdateUser validates the changes and applies them as a partial update.
func (service *Service) UpdateUser(executionContext context.Context, userID int64, changes UserChanges) (apiclient.User, error) {
	if userID <= 0 {
		return apiclient.User{}, ValidationError{FieldName: identifierFieldNameConstant, Message: identifierInvalidMessageConstant}
	}

	update := apiclient.UserUpdate{IsStaff: changes.IsStaff}
	if changes.Username != nil {
		trimmedUsername := strings.TrimSpace(*changes.Username)
		if len(trimmedUsername) == 0 {
			return apiclient.User{}, ValidationError{FieldName: usernameFieldNameConstant, Message: usernameBlankMessageConstant}
		}
		update.Username = &trimmedUsername
	}
	if changes.Email != nil {
		normalizedEmail, emailError := service.normalizeEmail(*changes.Email)
		if emailError != nil {
			return apiclient.User{}, emailError
		}
		update.Email = &normalizedEmail
	}
	if update.Username == nil && update.Email == nil && update.IsStaff == nil {
		return apiclient.User{}, ErrNoChanges
	}

	updatedUser, updateError := service.client.UpdateUser(executionContext, userID, update)
	if updateError != nil {
		return apiclient.User{}, updateError
	}
	service.logger.Info(userUpdatedMessageConstant, zap.Int64(userIdentifierLogFieldConstant, updatedUser.ID))
	return updatedUser, nil
}

// DeleteUser asks for confirmation unless assumeYes is set and then deletes the account.
func (service *Service) DeleteUser(executionContext context.Context, userID int64, prompter ConfirmationPrompter, assumeYes bool) error {
	user, fetchError := service.GetUser(executionContext, userID)
	if fetchError != nil {
		return fetchError
	}
	if confirmError := confirm(prompter, assumeYes, fmt.Sprintf(deleteUserPromptTemplateConstant, user.Username, user.ID)); confirmError != nil {
		return confirmError
	}
	if deleteError := service.client.DeleteUser(executionContext, userID); deleteError != nil {
		return deleteError
	}
	service.logger.Info(userDeletedMessageConstant, zap.Int64(userIdentifierLogFieldConstant, userID))
	return nil
}

// ListInvitations returns every invitation with its effective status.
func (service *Service) ListInvitations(executionContext context.Context) ([]InvitationView, error) {
	invitations, listError := service.client.ListInvitations(executionContext)
	if listError != nil {
		return nil, listError
	}
	return service.describeInvitations(invitations), nil
}

// InviteAdmin validates the email address and issues an admin invitation for it.
func (service *Service) InviteAdmin(executionContext context.Context, email string) (apiclient.AdminInvitation, error) {
	normalizedEmail, emailError := service.normalizeEmail(email)
	if emailError != nil {
		return apiclient.AdminInvitation{}, emailError
	}

	invitation, createError := service.client.CreateInvitation(executionContext, normalizedEmail)
	if createError != nil {
		return apiclient.AdminInvitation{}, createError
	}
	service.logger.Info(invitationCreatedMessageConstant,
		zap.Int64(invitationIdentifierLogFieldConstant, invitation.ID),
		zap.String(emailLogFieldConstant, invitation.Email),
		zap.Time(expiresAtLogFieldConstant, invitation.ExpiresAt),
	)
	return invitation, nil
}

// RevokeInvitation asks for confirmation unless assumeYes is set and then deletes the invitation.
func (service *Service) RevokeInvitation(executionContext context.Context, invitationID int64, prompter ConfirmationPrompter, assumeYes bool) error {
	if invitationID <= 0 {
		return ValidationError{FieldName: identifierFieldNameConstant, Message: identifierInvalidMessageConstant}
	}
	if confirmError := confirm(prompter, assumeYes, fmt.Sprintf(deleteInvitePromptTemplateConstant, invitationID)); confirmError != nil {
		return confirmError
	}
	if deleteError := service.client.DeleteInvitation(executionContext, invitationID); deleteError != nil {
		return deleteError
	}
	service.logger.Info(invitationDeletedMessageConstant, zap.Int64(invitationIdentifierLogFieldConstant, invitationID))
	return nil
}

// ValidateInvitationToken checks an invitation token and returns the invited email.
func (service *Service) ValidateInvitationToken(executionContext context.Context, token string) (apiclient.InvitationTokenValidation, error) {
	trimmedToken := strings.TrimSpace(token)
	if len(trimmedToken) == 0 {
		return apiclient.InvitationTokenValidation{}, ValidationError{FieldName: tokenFieldNameConstant, Message: tokenBlankMessageConstant}
	}
	return service.client.ValidateInvitationToken(executionContext, trimmedToken)
}

func (service *Service) describeInvitations(invitations []apiclient.AdminInvitation) []InvitationView {
	now := service.now()
	views := make([]InvitationView, 0, len(invitations))
	for _, invitation := range invitations {
		views = append(views, InvitationView{Invitation: invitation, Status: invitation.EffectiveStatus(now)})
	}
	return views
}

func (service *Service) normalizeEmail(email string) (string, error) {
	normalizedEmail := strings.TrimSpace(email)
	if validationError := service.validate.Var(normalizedEmail, emailValidationTagConstant); validationError != nil {
		return "", ValidationError{FieldName: emailFieldNameConstant, Message: emailInvalidMessageConstant}
	}
	return normalizedEmail, nil
}

func confirm(prompter ConfirmationPrompter, assumeYes bool, prompt string) error {
	if assumeYes {
		return nil
	}
	if prompter == nil {
		return ErrDeletionDeclined
	}
	confirmed, promptError := prompter.Confirm(prompt)
	if promptError != nil {
		return promptError
	}
	if !confirmed {
		return ErrDeletionDeclined
	}
	return nil
}
