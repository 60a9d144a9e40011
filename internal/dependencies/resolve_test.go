package dependencies_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/temirov/auditdesk/internal/apiclient"
	"github.com/temirov/auditdesk/internal/dependencies"
	"github.com/temirov/auditdesk/internal/guard"
	"github.com/temirov/auditdesk/internal/session"
	"github.com/temirov/auditdesk/internal/workflow"
)

type staticSession struct {
	user *apiclient.User
}

func (staticSession) Login(context.Context, string, string) (apiclient.User, error) {
	return apiclient.User{}, nil
}

func (staticSession) Register(context.Context, session.RegistrationRequest) (apiclient.User, error) {
	return apiclient.User{}, nil
}

func (staticSession) Logout() error { return nil }

func (fake staticSession) Current() *apiclient.User { return fake.user }

func (staticSession) IsViewingAsUser() bool { return false }

func (staticSession) ToggleViewAsUser() (bool, error) { return false, nil }

func (staticSession) EffectiveIdentity() *guard.Identity { return nil }

func TestResolveFillsDefaults(testInstance *testing.T) {
	set, resolveError := dependencies.Resolve(func() (dependencies.Set, error) {
		return dependencies.Set{}, nil
	})
	require.NoError(testInstance, resolveError)
	require.NotNil(testInstance, set.Logger)
	require.NotNil(testInstance, set.Now)
	require.WithinDuration(testInstance, time.Now(), set.Now(), time.Minute)
}

func TestResolveErrors(testInstance *testing.T) {
	_, missingError := dependencies.Resolve(nil)
	require.ErrorIs(testInstance, missingError, dependencies.ErrProviderNotConfigured)

	providerFailure := errors.New("not ready")
	_, failedError := dependencies.Resolve(func() (dependencies.Set, error) {
		return dependencies.Set{}, providerFailure
	})
	require.ErrorIs(testInstance, failedError, providerFailure)
}

func TestRequireUser(testInstance *testing.T) {
	testCases := []struct {
		name          string
		set           dependencies.Set
		expectedError error
	}{
		{name: "no_session", set: dependencies.Set{}, expectedError: dependencies.ErrSessionNotConfigured},
		{name: "anonymous", set: dependencies.Set{Session: staticSession{}}, expectedError: dependencies.ErrNotSignedIn},
		{name: "signed_in", set: dependencies.Set{Session: staticSession{user: &apiclient.User{ID: 9, Username: "erin"}}}},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			user, requireError := testCase.set.RequireUser()
			if testCase.expectedError != nil {
				require.ErrorIs(subTest, requireError, testCase.expectedError)
				return
			}
			require.NoError(subTest, requireError)
			require.Equal(subTest, "erin", user.Username)
		})
	}
}

func TestServiceConstructorsRequireClients(testInstance *testing.T) {
	emptySet := dependencies.Set{}
	_, workflowError := emptySet.NewWorkflow(&bytes.Buffer{})
	require.ErrorIs(testInstance, workflowError, dependencies.ErrAuditClientNotConfigured)
	_, adminError := emptySet.NewAdminService()
	require.ErrorIs(testInstance, adminError, dependencies.ErrAdminClientNotConfigured)

	client, clientError := apiclient.NewClient(apiclient.Options{BaseURL: "http://localhost:8000/api"})
	require.NoError(testInstance, clientError)
	populatedSet := dependencies.Set{AuditClient: client, AdminClient: client, Workflow: workflow.DefaultConfiguration()}

	auditWorkflow, workflowError := populatedSet.NewWorkflow(&bytes.Buffer{})
	require.NoError(testInstance, workflowError)
	require.NotNil(testInstance, auditWorkflow)

	adminService, adminError := populatedSet.NewAdminService()
	require.NoError(testInstance, adminError)
	require.NotNil(testInstance, adminService)
}

func TestRouteOfWalksParents(testInstance *testing.T) {
	root := &cobra.Command{Use: "root"}
	group := &cobra.Command{Use: "admin"}
	leaf := &cobra.Command{Use: "list"}
	override := &cobra.Command{Use: "validate"}
	root.AddCommand(group)
	group.AddCommand(leaf, override)

	dependencies.AnnotateRoute(group, guard.AdminRoute)
	dependencies.AnnotateRoute(override, guard.RegisterRoute)
	dependencies.AnnotateRoute(nil, guard.AdminRoute)

	require.Empty(testInstance, dependencies.RouteOf(root))
	require.Equal(testInstance, guard.AdminRoute, dependencies.RouteOf(group))
	require.Equal(testInstance, guard.AdminRoute, dependencies.RouteOf(leaf))
	require.Equal(testInstance, guard.RegisterRoute, dependencies.RouteOf(override))
}

func TestResolveCollaboratorsKeepExisting(testInstance *testing.T) {
	progress := dependencies.ResolveProgress(nil, &bytes.Buffer{})
	require.NotNil(testInstance, progress)
	require.Same(testInstance, progress, dependencies.ResolveProgress(progress, nil))

	prompter := dependencies.ResolvePrompter(nil, &bytes.Buffer{}, &bytes.Buffer{})
	require.NotNil(testInstance, prompter)
	require.Equal(testInstance, prompter, dependencies.ResolvePrompter(prompter, nil, nil))
}
