package session

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/temirov/auditdesk/internal/apiclient"
	"github.com/temirov/auditdesk/internal/credentials"
	"github.com/temirov/auditdesk/internal/guard"
)

const (
	jsonTagConstant                       = "json"
	emailMarkerConstant                   = "@"
	identifierFieldNameConstant           = "identifier"
	passwordFieldNameConstant             = "password"
	bootstrapSkippedMessageConstant       = "No persisted session"
	bootstrapResolvedMessageConstant      = "Session restored"
	bootstrapDiscardedMessageConstant     = "Discarding persisted session"
	tokenRefreshedMessageConstant         = "Access token refreshed"
	credentialsClearFailedMessageConstant = "Unable to clear persisted credentials"
	credentialsSaveFailedMessageConstant  = "Unable to persist credentials"
	unauthorizedResponseMessageConstant   = "Service rejected the access token"
	usernameLogFieldConstant              = "username"
	reasonLogFieldConstant                = "reason"
)

// AccountClient is the subset of the REST client the provider relies on.
type AccountClient interface {
	Login(executionContext context.Context, loginCredentials apiclient.LoginCredentials) (apiclient.LoginResponse, error)
	Register(executionContext context.Context, request apiclient.RegisterRequest) (apiclient.LoginResponse, error)
	RefreshToken(executionContext context.Context, refreshToken string) (apiclient.RefreshResponse, error)
	CurrentUser(executionContext context.Context) (apiclient.User, error)
}

// Options configures a Provider.
type Options struct {
	Store  credentials.Store
	Logger *zap.Logger
	Clock  func() time.Time
}

// RegistrationRequest captures the registration form.
type RegistrationRequest struct {
	Email                string `json:"email" validate:"required,email"`
	Password             string `json:"password" validate:"required"`
	PasswordConfirmation string `json:"password_confirmation" validate:"eqfield=Password"`
	InvitationToken      string `json:"invitation_token"`
}

// Provider tracks the current user, the loading flag and the last authentication error.
type Provider struct {
	mutex     sync.RWMutex
	store     credentials.Store
	client    AccountClient
	logger    *zap.Logger
	clock     func() time.Time
	validate  *validator.Validate
	tokens    credentials.Tokens
	user      *apiclient.User
	loading   bool
	lastError error
}

// NewProvider constructs a Provider backed by the supplied credentials store.
func NewProvider(options Options) (*Provider, error) {
	if options.Store == nil {
		return nil, ErrStoreNotConfigured
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := options.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Provider{
		store:    options.Store,
		logger:   logger,
		clock:    clock,
		validate: newValidator(),
	}, nil
}

func newValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get(jsonTagConstant), ",")
		if len(name) == 0 || name == "-" {
			return field.Name
		}
		return name
	})
	return validate
}

// BindClient attaches the REST client used for account operations.
func (provider *Provider) BindClient(client AccountClient) {
	provider.mutex.Lock()
	defer provider.mutex.Unlock()
	provider.client = client
}

// AccessToken implements apiclient.TokenSource.
func (provider *Provider) AccessToken() string {
	provider.mutex.RLock()
	defer provider.mutex.RUnlock()
	return provider.tokens.AccessToken
}

// Current returns a copy of the authenticated user, or nil.
func (provider *Provider) Current() *apiclient.User {
	provider.mutex.RLock()
	defer provider.mutex.RUnlock()
	if provider.user == nil {
		return nil
	}
	userCopy := *provider.user
	return &userCopy
}

// Loading reports whether Bootstrap is in progress.
func (provider *Provider) Loading() bool {
	provider.mutex.RLock()
	defer provider.mutex.RUnlock()
	return provider.loading
}

// LastError returns the most recent login or registration failure.
func (provider *Provider) LastError() error {
	provider.mutex.RLock()
	defer provider.mutex.RUnlock()
	return provider.lastError
}

// IsViewingAsUser reports whether an administrator switched to the standard user view.
func (provider *Provider) IsViewingAsUser() bool {
	provider.mutex.RLock()
	defer provider.mutex.RUnlock()
	return provider.tokens.ViewAsUser
}

// EffectiveIdentity returns the identity the route guard evaluates.
func (provider *Provider) EffectiveIdentity() *guard.Identity {
	provider.mutex.RLock()
	defer provider.mutex.RUnlock()
	if provider.user == nil {
		return nil
	}
	return &guard.Identity{
		Username: provider.user.Username,
		IsAdmin:  provider.user.IsStaff && !provider.tokens.ViewAsUser,
	}
}

// Bootstrap resolves the persisted token into the current user. Failures leave the session
// unauthenticated and clear the persisted tokens; only context cancellation is returned.
func (provider *Provider) Bootstrap(executionContext context.Context) error {
	provider.setLoading(true)
	defer provider.setLoading(false)

	client, clientError := provider.boundClient()
	if clientError != nil {
		return clientError
	}

	tokens, loadError := provider.store.Load()
	if loadError != nil {
		provider.discard(loadError)
		return nil
	}
	if tokens.Empty() {
		provider.logger.Debug(bootstrapSkippedMessageConstant)
		return nil
	}

	provider.mutex.Lock()
	provider.tokens = tokens
	provider.mutex.Unlock()

	if accessTokenExpired(tokens.AccessToken, provider.clock()) {
		if len(strings.TrimSpace(tokens.RefreshToken)) == 0 {
			provider.discard(errAccessTokenExpired)
			return nil
		}
		refreshed, refreshError := client.RefreshToken(executionContext, tokens.RefreshToken)
		if refreshError != nil {
			return provider.abandonBootstrap(executionContext, refreshError)
		}
		tokens.AccessToken = refreshed.AccessToken()
		if len(refreshed.Refresh) > 0 {
			tokens.RefreshToken = refreshed.Refresh
		}
		provider.mutex.Lock()
		provider.tokens = tokens
		provider.mutex.Unlock()
		provider.persist(tokens)
		provider.logger.Debug(tokenRefreshedMessageConstant)
	}

	user, userError := client.CurrentUser(executionContext)
	if userError != nil {
		return provider.abandonBootstrap(executionContext, userError)
	}

	provider.mutex.Lock()
	provider.user = &user
	provider.mutex.Unlock()
	provider.logger.Debug(bootstrapResolvedMessageConstant, zap.String(usernameLogFieldConstant, user.Username))
	return nil
}

// Login authenticates by username, or by email when the identifier contains "@".
func (provider *Provider) Login(executionContext context.Context, identifier string, password string) (apiclient.User, error) {
	client, clientError := provider.boundClient()
	if clientError != nil {
		return apiclient.User{}, clientError
	}

	trimmedIdentifier := strings.TrimSpace(identifier)
	if len(trimmedIdentifier) == 0 {
		return apiclient.User{}, provider.recordFailure(ValidationError{FieldName: identifierFieldNameConstant, Message: identifierRequiredMessageConstant})
	}
	if len(password) == 0 {
		return apiclient.User{}, provider.recordFailure(ValidationError{FieldName: passwordFieldNameConstant, Message: passwordRequiredMessageConstant})
	}

	response, loginError := client.Login(executionContext, BuildLoginCredentials(trimmedIdentifier, password))
	if loginError != nil {
		return apiclient.User{}, provider.recordFailure(loginError)
	}
	return provider.establish(executionContext, client, response)
}

// Register validates the form locally, creates the account and signs in.
func (provider *Provider) Register(executionContext context.Context, request RegistrationRequest) (apiclient.User, error) {
	client, clientError := provider.boundClient()
	if clientError != nil {
		return apiclient.User{}, clientError
	}

	request.Email = strings.TrimSpace(request.Email)
	if validationError := provider.validateRegistration(request); validationError != nil {
		return apiclient.User{}, provider.recordFailure(validationError)
	}

	response, registerError := client.Register(executionContext, apiclient.RegisterRequest{
		Username:        DeriveUsername(request.Email),
		Email:           request.Email,
		Password:        request.Password,
		InvitationToken: strings.TrimSpace(request.InvitationToken),
	})
	if registerError != nil {
		return apiclient.User{}, provider.recordFailure(registerError)
	}
	return provider.establish(executionContext, client, response)
}

// Logout forgets the current user and removes the persisted tokens.
func (provider *Provider) Logout() error {
	provider.mutex.Lock()
	provider.tokens = credentials.Tokens{}
	provider.user = nil
	provider.lastError = nil
	provider.mutex.Unlock()
	return provider.store.Clear()
}

// HandleUnauthorized implements apiclient.UnauthorizedHandler by dropping the rejected access token.
func (provider *Provider) HandleUnauthorized() {
	provider.mutex.Lock()
	provider.tokens.AccessToken = ""
	provider.user = nil
	tokens := provider.tokens
	provider.mutex.Unlock()

	provider.logger.Debug(unauthorizedResponseMessageConstant)
	provider.persist(tokens)
}

// ToggleViewAsUser flips the administrator view preference and returns the new state.
func (provider *Provider) ToggleViewAsUser() (bool, error) {
	provider.mutex.Lock()
	if provider.user == nil || !provider.user.IsStaff {
		provider.mutex.Unlock()
		return false, ErrViewToggleRequiresAdmin
	}
	provider.tokens.ViewAsUser = !provider.tokens.ViewAsUser
	tokens := provider.tokens
	provider.mutex.Unlock()

	if saveError := provider.store.Save(tokens); saveError != nil {
		return tokens.ViewAsUser, saveError
	}
	return tokens.ViewAsUser, nil
}

// BuildLoginCredentials classifies the identifier as an email when it contains "@".
func BuildLoginCredentials(identifier string, password string) apiclient.LoginCredentials {
	trimmedIdentifier := strings.TrimSpace(identifier)
	if strings.Contains(trimmedIdentifier, emailMarkerConstant) {
		return apiclient.LoginCredentials{Email: trimmedIdentifier, Password: password}
	}
	return apiclient.LoginCredentials{Username: trimmedIdentifier, Password: password}
}

// DeriveUsername returns the local part of an email address.
func DeriveUsername(email string) string {
	localPart, _, _ := strings.Cut(strings.TrimSpace(email), emailMarkerConstant)
	return localPart
}

func (provider *Provider) establish(executionContext context.Context, client AccountClient, response apiclient.LoginResponse) (apiclient.User, error) {
	tokens := credentials.Tokens{AccessToken: response.AccessToken(), RefreshToken: response.Refresh}

	provider.mutex.Lock()
	provider.tokens = tokens
	provider.lastError = nil
	provider.mutex.Unlock()

	user := response.User
	if user.ID == 0 {
		currentUser, userError := client.CurrentUser(executionContext)
		if userError != nil {
			return apiclient.User{}, provider.recordFailure(userError)
		}
		user = currentUser
	}

	provider.mutex.Lock()
	provider.user = &user
	provider.mutex.Unlock()

	if saveError := provider.store.Save(tokens); saveError != nil {
		return user, saveError
	}
	return user, nil
}

func (provider *Provider) validateRegistration(request RegistrationRequest) error {
	validationError := provider.validate.Struct(request)
	if validationError == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(validationError, &fieldErrors) || len(fieldErrors) == 0 {
		return validationError
	}

	fieldError := fieldErrors[0]
	return ValidationError{FieldName: fieldError.Field(), Message: describeValidationTag(fieldError.Tag())}
}

func describeValidationTag(tag string) string {
	switch tag {
	case "required":
		return fieldRequiredMessageConstant
	case "email":
		return emailInvalidMessageConstant
	case "eqfield":
		return passwordMismatchMessageConstant
	default:
		return fmt.Sprintf(fieldInvalidMessageTemplateConstant, tag)
	}
}

func (provider *Provider) abandonBootstrap(executionContext context.Context, failure error) error {
	if contextError := executionContext.Err(); contextError != nil {
		return contextError
	}
	provider.discard(failure)
	return nil
}

func (provider *Provider) discard(reason error) {
	provider.mutex.Lock()
	provider.tokens = credentials.Tokens{}
	provider.user = nil
	provider.mutex.Unlock()

	provider.logger.Debug(bootstrapDiscardedMessageConstant, zap.NamedError(reasonLogFieldConstant, reason))
	if clearError := provider.store.Clear(); clearError != nil {
		provider.logger.Warn(credentialsClearFailedMessageConstant, zap.Error(clearError))
	}
}

func (provider *Provider) persist(tokens credentials.Tokens) {
	var persistError error
	if tokens.Empty() && len(tokens.RefreshToken) == 0 {
		persistError = provider.store.Clear()
	} else {
		persistError = provider.store.Save(tokens)
	}
	if persistError != nil {
		provider.logger.Warn(credentialsSaveFailedMessageConstant, zap.Error(persistError))
	}
}

func (provider *Provider) recordFailure(failure error) error {
	provider.mutex.Lock()
	provider.lastError = failure
	provider.mutex.Unlock()
	return failure
}

func (provider *Provider) setLoading(loading bool) {
	provider.mutex.Lock()
	provider.loading = loading
	provider.mutex.Unlock()
}

func (provider *Provider) boundClient() (AccountClient, error) {
	provider.mutex.RLock()
	defer provider.mutex.RUnlock()
	if provider.client == nil {
		return nil, ErrClientNotBound
	}
	return provider.client, nil
}

func accessTokenExpired(accessToken string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, parseError := jwt.NewParser().ParseUnverified(accessToken, claims); parseError != nil {
		return false
	}
	expiration, claimError := claims.GetExpirationTime()
	if claimError != nil || expiration == nil {
		return false
	}
	return !now.Before(expiration.Time)
}
