package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/temirov/auditdesk/internal/apiclient"
	"github.com/temirov/auditdesk/internal/credentials"
	"github.com/temirov/auditdesk/internal/session"
)

const (
	testPasswordConstant        = "s3cret!"
	testRefreshTokenConstant    = "refresh-token"
	testRenewedTokenConstant    = "renewed-access"
	testOpaqueTokenConstant     = "opaque-access"
	testSigningSecretConstant   = "test-signing-secret"
	testUsernameConstant        = "alice"
	testEmailConstant           = "alice@example.com"
	testInvitationTokenConstant = "invite-123"
)

var testReferenceTime = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

type stubAccountClient struct {
	loginCalls      []apiclient.LoginCredentials
	registerCalls   []apiclient.RegisterRequest
	refreshCalls    []string
	currentCalls    int
	loginResponse   apiclient.LoginResponse
	loginError      error
	refreshResponse apiclient.RefreshResponse
	refreshError    error
	currentUser     apiclient.User
	currentError    error
	onCurrentUser   func()
}

func (client *stubAccountClient) Login(_ context.Context, loginCredentials apiclient.LoginCredentials) (apiclient.LoginResponse, error) {
	client.loginCalls = append(client.loginCalls, loginCredentials)
	return client.loginResponse, client.loginError
}

func (client *stubAccountClient) Register(_ context.Context, request apiclient.RegisterRequest) (apiclient.LoginResponse, error) {
	client.registerCalls = append(client.registerCalls, request)
	return client.loginResponse, client.loginError
}

func (client *stubAccountClient) RefreshToken(_ context.Context, refreshToken string) (apiclient.RefreshResponse, error) {
	client.refreshCalls = append(client.refreshCalls, refreshToken)
	return client.refreshResponse, client.refreshError
}

func (client *stubAccountClient) CurrentUser(context.Context) (apiclient.User, error) {
	client.currentCalls++
	if client.onCurrentUser != nil {
		client.onCurrentUser()
	}
	return client.currentUser, client.currentError
}

func newTestProvider(testInstance *testing.T, store credentials.Store, client session.AccountClient) *session.Provider {
	testInstance.Helper()
	provider, creationError := session.NewProvider(session.Options{
		Store: store,
		Clock: func() time.Time { return testReferenceTime },
	})
	require.NoError(testInstance, creationError)
	provider.BindClient(client)
	return provider
}

func signedToken(testInstance *testing.T, expiresAt time.Time) string {
	testInstance.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(expiresAt)})
	signed, signError := token.SignedString([]byte(testSigningSecretConstant))
	require.NoError(testInstance, signError)
	return signed
}

func TestNewProviderRequiresStore(testInstance *testing.T) {
	provider, creationError := session.NewProvider(session.Options{})
	require.ErrorIs(testInstance, creationError, session.ErrStoreNotConfigured)
	require.Nil(testInstance, provider)
}

func TestBootstrapWithoutTokenStaysAnonymous(testInstance *testing.T) {
	client := &stubAccountClient{}
	provider := newTestProvider(testInstance, credentials.NewMemoryStore(credentials.Tokens{}), client)

	require.NoError(testInstance, provider.Bootstrap(context.Background()))
	require.Nil(testInstance, provider.Current())
	require.Nil(testInstance, provider.EffectiveIdentity())
	require.False(testInstance, provider.Loading())
	require.Zero(testInstance, client.currentCalls)
}

func TestBootstrapResolvesCurrentUser(testInstance *testing.T) {
	client := &stubAccountClient{currentUser: apiclient.User{ID: 1, Username: testUsernameConstant}}
	provider := newTestProvider(testInstance, credentials.NewMemoryStore(credentials.Tokens{AccessToken: testOpaqueTokenConstant}), client)

	client.onCurrentUser = func() {
		require.True(testInstance, provider.Loading())
		require.Equal(testInstance, testOpaqueTokenConstant, provider.AccessToken())
	}

	require.NoError(testInstance, provider.Bootstrap(context.Background()))
	require.NotNil(testInstance, provider.Current())
	require.Equal(testInstance, testUsernameConstant, provider.Current().Username)
	require.False(testInstance, provider.Loading())
}

func TestBootstrapWithRejectedTokenClearsSession(testInstance *testing.T) {
	store := credentials.NewMemoryStore(credentials.Tokens{AccessToken: "not-a-valid-token", RefreshToken: testRefreshTokenConstant})
	client := &stubAccountClient{currentError: apiclient.APIError{Operation: "CurrentUser", StatusCode: 401}}
	provider := newTestProvider(testInstance, store, client)

	require.NoError(testInstance, provider.Bootstrap(context.Background()))
	require.Nil(testInstance, provider.Current())
	require.Empty(testInstance, provider.AccessToken())

	persisted, _ := store.Load()
	require.True(testInstance, persisted.Empty())
	require.Empty(testInstance, persisted.RefreshToken)
}

func TestBootstrapRefreshesExpiredToken(testInstance *testing.T) {
	store := credentials.NewMemoryStore(credentials.Tokens{
		AccessToken:  signedToken(testInstance, testReferenceTime.Add(-time.Minute)),
		RefreshToken: testRefreshTokenConstant,
	})
	client := &stubAccountClient{
		refreshResponse: apiclient.RefreshResponse{Access: testRenewedTokenConstant},
		currentUser:     apiclient.User{ID: 1, Username: testUsernameConstant},
	}
	provider := newTestProvider(testInstance, store, client)
	client.onCurrentUser = func() {
		require.Equal(testInstance, testRenewedTokenConstant, provider.AccessToken())
	}

	require.NoError(testInstance, provider.Bootstrap(context.Background()))
	require.Equal(testInstance, []string{testRefreshTokenConstant}, client.refreshCalls)
	require.NotNil(testInstance, provider.Current())

	persisted, _ := store.Load()
	require.Equal(testInstance, testRenewedTokenConstant, persisted.AccessToken)
	require.Equal(testInstance, testRefreshTokenConstant, persisted.RefreshToken)
}

func TestBootstrapSkipsRefreshForLiveToken(testInstance *testing.T) {
	store := credentials.NewMemoryStore(credentials.Tokens{
		AccessToken:  signedToken(testInstance, testReferenceTime.Add(time.Hour)),
		RefreshToken: testRefreshTokenConstant,
	})
	client := &stubAccountClient{currentUser: apiclient.User{ID: 1}}
	provider := newTestProvider(testInstance, store, client)

	require.NoError(testInstance, provider.Bootstrap(context.Background()))
	require.Empty(testInstance, client.refreshCalls)
	require.NotNil(testInstance, provider.Current())
}

func TestBootstrapExpiredTokenWithoutRefreshClearsSession(testInstance *testing.T) {
	store := credentials.NewMemoryStore(credentials.Tokens{AccessToken: signedToken(testInstance, testReferenceTime.Add(-time.Hour))})
	client := &stubAccountClient{}
	provider := newTestProvider(testInstance, store, client)

	require.NoError(testInstance, provider.Bootstrap(context.Background()))
	require.Nil(testInstance, provider.Current())
	require.Zero(testInstance, client.currentCalls)

	persisted, _ := store.Load()
	require.True(testInstance, persisted.Empty())
}

func TestBootstrapFailedRefreshClearsSession(testInstance *testing.T) {
	store := credentials.NewMemoryStore(credentials.Tokens{
		AccessToken:  signedToken(testInstance, testReferenceTime.Add(-time.Minute)),
		RefreshToken: testRefreshTokenConstant,
	})
	client := &stubAccountClient{refreshError: errors.New("refresh rejected")}
	provider := newTestProvider(testInstance, store, client)

	require.NoError(testInstance, provider.Bootstrap(context.Background()))
	require.Nil(testInstance, provider.Current())
	require.Zero(testInstance, client.currentCalls)
}

func TestBootstrapReturnsContextCancellation(testInstance *testing.T) {
	store := credentials.NewMemoryStore(credentials.Tokens{AccessToken: testOpaqueTokenConstant})
	client := &stubAccountClient{currentError: context.Canceled}
	provider := newTestProvider(testInstance, store, client)

	cancelledContext, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(testInstance, provider.Bootstrap(cancelledContext), context.Canceled)

	persisted, _ := store.Load()
	require.Equal(testInstance, testOpaqueTokenConstant, persisted.AccessToken)
}

func TestBuildLoginCredentialsClassifiesIdentifier(testInstance *testing.T) {
	require.Equal(testInstance, apiclient.LoginCredentials{Username: testUsernameConstant, Password: testPasswordConstant}, session.BuildLoginCredentials(testUsernameConstant, testPasswordConstant))
	require.Equal(testInstance, apiclient.LoginCredentials{Email: testEmailConstant, Password: testPasswordConstant}, session.BuildLoginCredentials(" "+testEmailConstant+" ", testPasswordConstant))
}

func TestLoginStoresTokensAndUser(testInstance *testing.T) {
	store := credentials.NewMemoryStore(credentials.Tokens{})
	client := &stubAccountClient{loginResponse: apiclient.LoginResponse{
		Token:   "issued-access",
		Refresh: testRefreshTokenConstant,
		User:    apiclient.User{ID: 3, Username: testUsernameConstant, IsStaff: true},
	}}
	provider := newTestProvider(testInstance, store, client)

	user, loginError := provider.Login(context.Background(), testEmailConstant, testPasswordConstant)
	require.NoError(testInstance, loginError)
	require.Equal(testInstance, int64(3), user.ID)
	require.Len(testInstance, client.loginCalls, 1)
	require.Equal(testInstance, testEmailConstant, client.loginCalls[0].Email)
	require.Empty(testInstance, client.loginCalls[0].Username)

	persisted, _ := store.Load()
	require.Equal(testInstance, "issued-access", persisted.AccessToken)
	require.Equal(testInstance, testRefreshTokenConstant, persisted.RefreshToken)

	identity := provider.EffectiveIdentity()
	require.NotNil(testInstance, identity)
	require.True(testInstance, identity.IsAdmin)
}

func TestLoginFailureRecordsLastError(testInstance *testing.T) {
	loginFailure := apiclient.APIError{Operation: "Login", StatusCode: 400, Message: "Invalid credentials"}
	client := &stubAccountClient{loginError: loginFailure}
	provider := newTestProvider(testInstance, credentials.NewMemoryStore(credentials.Tokens{}), client)

	_, loginError := provider.Login(context.Background(), testUsernameConstant, testPasswordConstant)
	require.Error(testInstance, loginError)
	require.Equal(testInstance, loginFailure, provider.LastError())
	require.Nil(testInstance, provider.Current())
}

func TestLoginRejectsBlankInputWithoutNetwork(testInstance *testing.T) {
	client := &stubAccountClient{}
	provider := newTestProvider(testInstance, credentials.NewMemoryStore(credentials.Tokens{}), client)

	_, loginError := provider.Login(context.Background(), "  ", testPasswordConstant)
	require.IsType(testInstance, session.ValidationError{}, loginError)

	_, loginError = provider.Login(context.Background(), testUsernameConstant, "")
	require.IsType(testInstance, session.ValidationError{}, loginError)
	require.Empty(testInstance, client.loginCalls)
}

func TestRegisterValidation(testInstance *testing.T) {
	testCases := []struct {
		name          string
		request       session.RegistrationRequest
		expectedField string
	}{
		{
			name:          "password_mismatch",
			request:       session.RegistrationRequest{Email: testEmailConstant, Password: testPasswordConstant, PasswordConfirmation: "different"},
			expectedField: "password_confirmation",
		},
		{
			name:          "invalid_email",
			request:       session.RegistrationRequest{Email: "not-an-email", Password: testPasswordConstant, PasswordConfirmation: testPasswordConstant},
			expectedField: "email",
		},
		{
			name:          "missing_password",
			request:       session.RegistrationRequest{Email: testEmailConstant},
			expectedField: "password",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			client := &stubAccountClient{}
			provider := newTestProvider(testInstance, credentials.NewMemoryStore(credentials.Tokens{}), client)

			_, registerError := provider.Register(context.Background(), testCase.request)

			var validationError session.ValidationError
			require.True(testInstance, errors.As(registerError, &validationError))
			require.Equal(testInstance, testCase.expectedField, validationError.FieldName)
			require.Empty(testInstance, client.registerCalls)
			require.Equal(testInstance, registerError, provider.LastError())
		})
	}
}

func TestRegisterDerivesUsernameAndForwardsInvitation(testInstance *testing.T) {
	store := credentials.NewMemoryStore(credentials.Tokens{})
	client := &stubAccountClient{loginResponse: apiclient.LoginResponse{
		Token:   "issued-access",
		Refresh: testRefreshTokenConstant,
		User:    apiclient.User{ID: 8, Username: testUsernameConstant},
	}}
	provider := newTestProvider(testInstance, store, client)

	user, registerError := provider.Register(context.Background(), session.RegistrationRequest{
		Email:                testEmailConstant,
		Password:             testPasswordConstant,
		PasswordConfirmation: testPasswordConstant,
		InvitationToken:      testInvitationTokenConstant,
	})
	require.NoError(testInstance, registerError)
	require.Equal(testInstance, int64(8), user.ID)
	require.Equal(testInstance, []apiclient.RegisterRequest{{
		Username:        testUsernameConstant,
		Email:           testEmailConstant,
		Password:        testPasswordConstant,
		InvitationToken: testInvitationTokenConstant,
	}}, client.registerCalls)

	persisted, _ := store.Load()
	require.Equal(testInstance, "issued-access", persisted.AccessToken)
}

func TestLogoutClearsEverything(testInstance *testing.T) {
	store := credentials.NewMemoryStore(credentials.Tokens{AccessToken: testOpaqueTokenConstant})
	client := &stubAccountClient{currentUser: apiclient.User{ID: 1}}
	provider := newTestProvider(testInstance, store, client)
	require.NoError(testInstance, provider.Bootstrap(context.Background()))

	require.NoError(testInstance, provider.Logout())
	require.Nil(testInstance, provider.Current())
	require.Empty(testInstance, provider.AccessToken())

	persisted, _ := store.Load()
	require.True(testInstance, persisted.Empty())
}

func TestHandleUnauthorizedKeepsRefreshToken(testInstance *testing.T) {
	store := credentials.NewMemoryStore(credentials.Tokens{AccessToken: testOpaqueTokenConstant, RefreshToken: testRefreshTokenConstant})
	client := &stubAccountClient{currentUser: apiclient.User{ID: 1}}
	provider := newTestProvider(testInstance, store, client)
	require.NoError(testInstance, provider.Bootstrap(context.Background()))

	provider.HandleUnauthorized()

	require.Nil(testInstance, provider.Current())
	require.Empty(testInstance, provider.AccessToken())
	persisted, _ := store.Load()
	require.Empty(testInstance, persisted.AccessToken)
	require.Equal(testInstance, testRefreshTokenConstant, persisted.RefreshToken)
}

func TestToggleViewAsUser(testInstance *testing.T) {
	store := credentials.NewMemoryStore(credentials.Tokens{AccessToken: testOpaqueTokenConstant})
	client := &stubAccountClient{currentUser: apiclient.User{ID: 1, Username: "root", IsStaff: true}}
	provider := newTestProvider(testInstance, store, client)
	require.NoError(testInstance, provider.Bootstrap(context.Background()))
	require.True(testInstance, provider.EffectiveIdentity().IsAdmin)

	viewing, toggleError := provider.ToggleViewAsUser()
	require.NoError(testInstance, toggleError)
	require.True(testInstance, viewing)
	require.True(testInstance, provider.IsViewingAsUser())
	require.False(testInstance, provider.EffectiveIdentity().IsAdmin)
	require.True(testInstance, provider.Current().IsStaff)

	persisted, _ := store.Load()
	require.True(testInstance, persisted.ViewAsUser)

	viewing, toggleError = provider.ToggleViewAsUser()
	require.NoError(testInstance, toggleError)
	require.False(testInstance, viewing)
	require.True(testInstance, provider.EffectiveIdentity().IsAdmin)
}

func TestToggleViewAsUserRequiresAdministrator(testInstance *testing.T) {
	client := &stubAccountClient{currentUser: apiclient.User{ID: 1}}
	provider := newTestProvider(testInstance, credentials.NewMemoryStore(credentials.Tokens{AccessToken: testOpaqueTokenConstant}), client)
	require.NoError(testInstance, provider.Bootstrap(context.Background()))

	_, toggleError := provider.ToggleViewAsUser()
	require.ErrorIs(testInstance, toggleError, session.ErrViewToggleRequiresAdmin)
}

func TestOperationsRequireBoundClient(testInstance *testing.T) {
	provider, creationError := session.NewProvider(session.Options{Store: credentials.NewMemoryStore(credentials.Tokens{})})
	require.NoError(testInstance, creationError)

	require.ErrorIs(testInstance, provider.Bootstrap(context.Background()), session.ErrClientNotBound)
	_, loginError := provider.Login(context.Background(), testUsernameConstant, testPasswordConstant)
	require.ErrorIs(testInstance, loginError, session.ErrClientNotBound)
}

func TestDeriveUsername(testInstance *testing.T) {
	require.Equal(testInstance, testUsernameConstant, session.DeriveUsername(testEmailConstant))
	require.Equal(testInstance, "bob", session.DeriveUsername("bob"))
}
