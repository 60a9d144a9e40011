package dashboard_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/auditdesk/cmd/cli/dashboard"
	"github.com/temirov/auditdesk/internal/apiclient"
	"github.com/temirov/auditdesk/internal/dependencies"
	"github.com/temirov/auditdesk/internal/guard"
	"github.com/temirov/auditdesk/internal/report"
	"github.com/temirov/auditdesk/internal/session"
)

type stubSession struct {
	user          *apiclient.User
	viewingAsUser bool
}

func (stub *stubSession) Login(context.Context, string, string) (apiclient.User, error) {
	return apiclient.User{}, errors.New("not used")
}

func (stub *stubSession) Register(context.Context, session.RegistrationRequest) (apiclient.User, error) {
	return apiclient.User{}, errors.New("not used")
}

func (stub *stubSession) Logout() error {
	return nil
}

func (stub *stubSession) Current() *apiclient.User {
	return stub.user
}

func (stub *stubSession) IsViewingAsUser() bool {
	return stub.viewingAsUser
}

func (stub *stubSession) ToggleViewAsUser() (bool, error) {
	stub.viewingAsUser = !stub.viewingAsUser
	return stub.viewingAsUser, nil
}

func (stub *stubSession) EffectiveIdentity() *guard.Identity {
	if stub.user == nil {
		return nil
	}
	return &guard.Identity{Username: stub.user.Username, IsAdmin: stub.user.IsStaff && !stub.viewingAsUser}
}

type stubClient struct {
	adminCalls int
}

func (client *stubClient) ListAudits(context.Context) ([]apiclient.Audit, error) {
	return []apiclient.Audit{
		{ID: 1, IsCompleted: true, Checklists: []apiclient.ChecklistItem{{ID: 1}}},
		{ID: 2, Checklists: []apiclient.ChecklistItem{{ID: 2}}},
		{ID: 3},
	}, nil
}

func (client *stubClient) GetAudit(context.Context, int64) (apiclient.Audit, error) {
	return apiclient.Audit{}, nil
}

func (client *stubClient) CreateAudit(context.Context, apiclient.CreateAuditRequest) (apiclient.Audit, error) {
	return apiclient.Audit{}, nil
}

func (client *stubClient) UpdateAudit(context.Context, int64, apiclient.AuditUpdate) (apiclient.Audit, error) {
	return apiclient.Audit{}, nil
}

func (client *stubClient) DeleteAudit(context.Context, int64) error {
	return nil
}

func (client *stubClient) UpdateChecklistItem(context.Context, int64, apiclient.ChecklistItemUpdate) (apiclient.ChecklistItem, error) {
	return apiclient.ChecklistItem{}, nil
}

func (client *stubClient) SubmitResponse(context.Context, int64, apiclient.ResponseSubmission) (apiclient.AuditResponse, error) {
	return apiclient.AuditResponse{}, nil
}

func (client *stubClient) SubmitResponses(context.Context, int64, []apiclient.ResponseSubmission) ([]apiclient.AuditResponse, error) {
	return nil, nil
}

func (client *stubClient) ListResponses(context.Context, int64) ([]apiclient.AuditResponse, error) {
	return nil, nil
}

func (client *stubClient) CompleteAudit(context.Context, int64) error {
	return nil
}

func (client *stubClient) ListUsers(context.Context) ([]apiclient.User, error) {
	client.adminCalls++
	return []apiclient.User{{ID: 1, IsStaff: true}, {ID: 2}, {ID: 3}}, nil
}

func (client *stubClient) GetUser(context.Context, int64) (apiclient.User, error) {
	return apiclient.User{}, nil
}

func (client *stubClient) CreateUser(context.Context, apiclient.UserCreate) (apiclient.User, error) {
	return apiclient.User{}, nil
}

func (client *stubClient) UpdateUser(context.Context, int64, apiclient.UserUpdate) (apiclient.User, error) {
	return apiclient.User{}, nil
}

func (client *stubClient) DeleteUser(context.Context, int64) error {
	return nil
}

func (client *stubClient) ListInvitations(context.Context) ([]apiclient.AdminInvitation, error) {
	return []apiclient.AdminInvitation{{ID: 1, IsUsed: true}}, nil
}

func (client *stubClient) CreateInvitation(context.Context, string) (apiclient.AdminInvitation, error) {
	return apiclient.AdminInvitation{}, nil
}

func (client *stubClient) DeleteInvitation(context.Context, int64) error {
	return nil
}

func (client *stubClient) ValidateInvitationToken(context.Context, string) (apiclient.InvitationTokenValidation, error) {
	return apiclient.InvitationTokenValidation{}, nil
}

func runDashboard(testInstance *testing.T, sessionStub *stubSession, client *stubClient) (report.DashboardData, error) {
	testInstance.Helper()
	builder := dashboard.CommandBuilder{DependenciesProvider: func() (dependencies.Set, error) {
		return dependencies.Set{Session: sessionStub, AuditClient: client, AdminClient: client}, nil
	}}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	require.Equal(testInstance, guard.DashboardRoute, dependencies.RouteOf(command))

	var output bytes.Buffer
	command.SetContext(context.Background())
	command.SetArgs([]string{"--format", "json"})
	command.SetOut(&output)
	command.SetErr(&bytes.Buffer{})
	if executionError := command.Execute(); executionError != nil {
		return report.DashboardData{}, executionError
	}

	var data report.DashboardData
	require.NoError(testInstance, json.Unmarshal(output.Bytes(), &data))
	return data, nil
}

func TestDashboard(testInstance *testing.T) {
	testCases := []struct {
		name           string
		session        *stubSession
		expectOverview bool
	}{
		{name: "regular_user", session: &stubSession{user: &apiclient.User{Username: "ada"}}},
		{name: "administrator", session: &stubSession{user: &apiclient.User{Username: "root", IsStaff: true}}, expectOverview: true},
		{name: "administrator_viewing_as_user", session: &stubSession{user: &apiclient.User{Username: "root", IsStaff: true}, viewingAsUser: true}},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			client := &stubClient{}
			data, runError := runDashboard(subTest, testCase.session, client)
			require.NoError(subTest, runError)
			require.Equal(subTest, testCase.session.user.Username, data.Username)
			require.Equal(subTest, 3, data.Audits.Total)
			require.Equal(subTest, 1, data.Audits.Completed)
			require.Equal(subTest, 1, data.Audits.InProgress)
			require.Equal(subTest, 1, data.Audits.NotStarted)

			if !testCase.expectOverview {
				require.Nil(subTest, data.Overview)
				require.Zero(subTest, client.adminCalls)
				return
			}
			require.NotNil(subTest, data.Overview)
			require.Equal(subTest, 1, data.Overview.Users.Staff)
			require.Equal(subTest, 2, data.Overview.Users.Regular)
			require.Equal(subTest, 1, data.Overview.Invitations.Used)
		})
	}
}

func TestDashboardRequiresSignedInUser(testInstance *testing.T) {
	_, runError := runDashboard(testInstance, &stubSession{}, &stubClient{})
	require.ErrorIs(testInstance, runError, dependencies.ErrNotSignedIn)
}
