package audits_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/temirov/auditdesk/cmd/cli/audits"
	"github.com/temirov/auditdesk/internal/apiclient"
	"github.com/temirov/auditdesk/internal/dependencies"
	"github.com/temirov/auditdesk/internal/guard"
	"github.com/temirov/auditdesk/internal/utils/flags"
	"github.com/temirov/auditdesk/internal/workflow"
)

type stubAuditClient struct {
	mutex         sync.Mutex
	audits        map[int64]apiclient.Audit
	responses     []apiclient.AuditResponse
	submitted     []apiclient.ResponseSubmission
	bulkCalls     int
	createRequest apiclient.CreateAuditRequest
	updates       []apiclient.AuditUpdate
	itemUpdates   map[int64]apiclient.ChecklistItemUpdate
	deleted       []int64
	completed     []int64
}

func newStubAuditClient() *stubAuditClient {
	return &stubAuditClient{
		audits:      map[int64]apiclient.Audit{7: sampleAudit()},
		itemUpdates: map[int64]apiclient.ChecklistItemUpdate{},
	}
}

func sampleAudit() apiclient.Audit {
	return apiclient.Audit{
		ID:              7,
		Title:           "Warehouse safety",
		AuditType:       "security",
		Organization:    "Acme",
		Industry:        "Manufacturing",
		ComplexityLevel: "basic",
		Checklists: []apiclient.ChecklistItem{
			{ID: 11, Audit: 7, Item: "Category 1: Exits", Order: 1},
			{ID: 12, Audit: 7, Item: "Exits are marked", Order: 2, Notes: "checked east wing"},
			{ID: 13, Audit: 7, Item: "Category 2: Records", Order: 3},
			{ID: 14, Audit: 7, Item: "Logs are retained", Order: 4},
		},
	}
}

func (client *stubAuditClient) ListAudits(context.Context) ([]apiclient.Audit, error) {
	client.mutex.Lock()
	defer client.mutex.Unlock()
	audits := make([]apiclient.Audit, 0, len(client.audits))
	for _, audit := range client.audits {
		audits = append(audits, audit)
	}
	return audits, nil
}

func (client *stubAuditClient) GetAudit(_ context.Context, auditID int64) (apiclient.Audit, error) {
	client.mutex.Lock()
	defer client.mutex.Unlock()
	audit, exists := client.audits[auditID]
	if !exists {
		return apiclient.Audit{}, apiclient.APIError{StatusCode: 404, Message: "Not found."}
	}
	return audit, nil
}

func (client *stubAuditClient) CreateAudit(_ context.Context, request apiclient.CreateAuditRequest) (apiclient.Audit, error) {
	client.mutex.Lock()
	defer client.mutex.Unlock()
	client.createRequest = request
	created := sampleAudit()
	created.ID = 8
	created.Title = request.Title
	client.audits[created.ID] = created
	return created, nil
}

func (client *stubAuditClient) UpdateAudit(_ context.Context, auditID int64, update apiclient.AuditUpdate) (apiclient.Audit, error) {
	client.mutex.Lock()
	defer client.mutex.Unlock()
	client.updates = append(client.updates, update)
	audit := client.audits[auditID]
	if update.IsCompleted != nil {
		audit.IsCompleted = *update.IsCompleted
	}
	client.audits[auditID] = audit
	return audit, nil
}

func (client *stubAuditClient) DeleteAudit(_ context.Context, auditID int64) error {
	client.mutex.Lock()
	defer client.mutex.Unlock()
	client.deleted = append(client.deleted, auditID)
	delete(client.audits, auditID)
	return nil
}

func (client *stubAuditClient) UpdateChecklistItem(_ context.Context, itemID int64, update apiclient.ChecklistItemUpdate) (apiclient.ChecklistItem, error) {
	client.mutex.Lock()
	defer client.mutex.Unlock()
	client.itemUpdates[itemID] = update
	return apiclient.ChecklistItem{ID: itemID, IsCompleted: update.IsCompleted, Notes: update.Notes}, nil
}

func (client *stubAuditClient) SubmitResponse(_ context.Context, auditID int64, submission apiclient.ResponseSubmission) (apiclient.AuditResponse, error) {
	client.mutex.Lock()
	defer client.mutex.Unlock()
	client.submitted = append(client.submitted, submission)
	return apiclient.AuditResponse{Audit: auditID, ChecklistItem: submission.ChecklistItem, Response: submission.Response, Notes: submission.Notes}, nil
}

func (client *stubAuditClient) SubmitResponses(_ context.Context, auditID int64, submissions []apiclient.ResponseSubmission) ([]apiclient.AuditResponse, error) {
	client.mutex.Lock()
	defer client.mutex.Unlock()
	client.bulkCalls++
	client.submitted = append(client.submitted, submissions...)
	return nil, nil
}

func (client *stubAuditClient) ListResponses(context.Context, int64) ([]apiclient.AuditResponse, error) {
	client.mutex.Lock()
	defer client.mutex.Unlock()
	return client.responses, nil
}

func (client *stubAuditClient) CompleteAudit(_ context.Context, auditID int64) error {
	client.mutex.Lock()
	defer client.mutex.Unlock()
	client.completed = append(client.completed, auditID)
	audit := client.audits[auditID]
	audit.IsCompleted = true
	client.audits[auditID] = audit
	return nil
}

func (client *stubAuditClient) submittedByItem() map[int64]apiclient.ResponseSubmission {
	client.mutex.Lock()
	defer client.mutex.Unlock()
	indexed := map[int64]apiclient.ResponseSubmission{}
	for _, submission := range client.submitted {
		indexed[submission.ChecklistItem] = submission
	}
	return indexed
}

type scriptedPrompter struct {
	answers      []string
	confirmation bool
	prompts      []string
}

func (prompter *scriptedPrompter) Confirm(prompt string) (bool, error) {
	prompter.prompts = append(prompter.prompts, prompt)
	return prompter.confirmation, nil
}

func (prompter *scriptedPrompter) Ask(prompt string) (string, error) {
	prompter.prompts = append(prompter.prompts, prompt)
	if len(prompter.answers) == 0 {
		return "", nil
	}
	answer := prompter.answers[0]
	prompter.answers = prompter.answers[1:]
	return answer, nil
}

type silentProgress struct{}

func (silentProgress) Start(string) {}

func (silentProgress) Stop() {}

func buildGroup(testInstance *testing.T, client *stubAuditClient, prompter dependencies.Prompter) *cobra.Command {
	testInstance.Helper()
	builder := audits.CommandBuilder{DependenciesProvider: func() (dependencies.Set, error) {
		return dependencies.Set{
			AuditClient: client,
			Workflow:    workflow.DefaultConfiguration(),
			Progress:    silentProgress{},
			Prompter:    prompter,
		}, nil
	}}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	return command
}

func execute(command *cobra.Command, arguments ...string) (string, string, error) {
	var standardOutput, standardError bytes.Buffer
	command.SetContext(context.Background())
	command.SetArgs(flags.NormalizeToggleArguments(arguments))
	command.SetOut(&standardOutput)
	command.SetErr(&standardError)
	executionError := command.Execute()
	return standardOutput.String(), standardError.String(), executionError
}

func TestGroupIsGuardedAsAuditRoute(testInstance *testing.T) {
	group := buildGroup(testInstance, newStubAuditClient(), nil)
	for _, subcommand := range group.Commands() {
		require.Equal(testInstance, guard.AuditsRoute, dependencies.RouteOf(subcommand), subcommand.Name())
	}
}

func TestListRendersJSON(testInstance *testing.T) {
	output, _, executionError := execute(buildGroup(testInstance, newStubAuditClient(), nil), "list", "--format", "json")
	require.NoError(testInstance, executionError)

	var decoded []map[string]any
	require.NoError(testInstance, json.Unmarshal([]byte(output), &decoded))
	require.Len(testInstance, decoded, 1)
	require.Equal(testInstance, "Warehouse safety", decoded[0]["title"])
}

func TestShowGroupsChecklist(testInstance *testing.T) {
	output, _, executionError := execute(buildGroup(testInstance, newStubAuditClient(), nil), "show", "7")
	require.NoError(testInstance, executionError)
	require.Contains(testInstance, output, "Category 1: Exits")
	require.Contains(testInstance, output, "Logs are retained")
}

func TestShowRejectsInvalidIdentifier(testInstance *testing.T) {
	_, _, executionError := execute(buildGroup(testInstance, newStubAuditClient(), nil), "show", "seven")
	require.EqualError(testInstance, executionError, `invalid audit identifier "seven"`)
}

func TestCreateForwardsFlags(testInstance *testing.T) {
	client := newStubAuditClient()
	_, _, executionError := execute(buildGroup(testInstance, client, nil), "create",
		"--title", " Quarterly ", "--type", "security", "--organization", "Acme",
		"--industry", "Technology", "--complexity", "advanced", "--requirements", "ISO 27001")
	require.NoError(testInstance, executionError)
	require.Equal(testInstance, apiclient.CreateAuditRequest{
		Title:                "Quarterly",
		AuditType:            "security",
		Organization:         "Acme",
		Industry:             "Technology",
		ComplexityLevel:      "advanced",
		SpecificRequirements: "ISO 27001",
	}, client.createRequest)
}

func TestCreateUsageListsAcceptedChoices(testInstance *testing.T) {
	group := buildGroup(testInstance, newStubAuditClient(), nil)
	createCommand, _, findError := group.Find([]string{"create"})
	require.NoError(testInstance, findError)

	expectations := map[string][]string{
		"type":       apiclient.AuditTypes(),
		"industry":   apiclient.Industries(),
		"complexity": apiclient.ComplexityLevels(),
	}
	for flagName, choices := range expectations {
		usage := createCommand.Flags().Lookup(flagName).Usage
		require.NotEmpty(testInstance, choices)
		for _, choice := range choices {
			require.Contains(testInstance, usage, choice, flagName)
		}
	}

	for _, auditType := range apiclient.AuditTypes() {
		client := newStubAuditClient()
		_, _, executionError := execute(buildGroup(testInstance, client, nil), "create",
			"--title", "Quarterly", "--type", auditType, "--organization", "Acme",
			"--industry", apiclient.Industries()[0], "--complexity", apiclient.ComplexityLevels()[0])
		require.NoError(testInstance, executionError, auditType)
		require.Equal(testInstance, auditType, client.createRequest.AuditType)
	}
}

func TestCreateValidatesLocally(testInstance *testing.T) {
	client := newStubAuditClient()
	_, _, executionError := execute(buildGroup(testInstance, client, nil), "create", "--title", "Quarterly")
	require.Error(testInstance, executionError)
	require.Empty(testInstance, client.createRequest.Title)
}

func TestDelete(testInstance *testing.T) {
	testCases := []struct {
		name            string
		arguments       []string
		confirmation    bool
		expectedDeleted []int64
		expectedError   error
	}{
		{name: "assume_yes", arguments: []string{"delete", "7", "--yes"}, expectedDeleted: []int64{7}},
		{name: "confirmed", arguments: []string{"delete", "7"}, confirmation: true, expectedDeleted: []int64{7}},
		{name: "declined", arguments: []string{"delete", "7"}, expectedError: workflow.ErrDeletionDeclined},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			client := newStubAuditClient()
			prompter := &scriptedPrompter{confirmation: testCase.confirmation}
			output, _, executionError := execute(buildGroup(subTest, client, prompter), testCase.arguments...)
			if testCase.expectedError != nil {
				require.ErrorIs(subTest, executionError, testCase.expectedError)
				require.Empty(subTest, client.deleted)
				return
			}
			require.NoError(subTest, executionError)
			require.Equal(subTest, testCase.expectedDeleted, client.deleted)
			require.Equal(subTest, "Audit 7 deleted\n", output)
		})
	}
}

func TestChecklistSubmitsFlagAndFileAnswers(testInstance *testing.T) {
	answersFile := filepath.Join(testInstance.TempDir(), "answers.yaml")
	require.NoError(testInstance, os.WriteFile(answersFile, []byte("12:\n  response: no\n  notes: east exit blocked\n14: yes\n"), 0o600))

	client := newStubAuditClient()
	output, _, executionError := execute(buildGroup(testInstance, client, nil), "checklist", "7",
		"--answers-file", answersFile, "--answer", "14=na:logs moved offsite", "--mode", "bulk")
	require.NoError(testInstance, executionError)
	require.Equal(testInstance, "Audit 7 submitted and completed (4 responses)\n", output)

	require.Equal(testInstance, 1, client.bulkCalls)
	submitted := client.submittedByItem()
	require.Len(testInstance, submitted, 4)
	require.Equal(testInstance, apiclient.ResponseSubmission{ChecklistItem: 12, Response: apiclient.ResponseValueNo, Notes: "east exit blocked"}, submitted[12])
	require.Equal(testInstance, apiclient.ResponseSubmission{ChecklistItem: 14, Response: apiclient.ResponseValueNotApplicable, Notes: "logs moved offsite"}, submitted[14])
	require.Equal(testInstance, apiclient.ResponseValueNotApplicable, submitted[11].Response)

	require.Len(testInstance, client.updates, 1)
	require.True(testInstance, *client.updates[0].IsCompleted)
	require.NotNil(testInstance, client.updates[0].CompletionDate)
}

func TestChecklistInteractivePromptsUnansweredItems(testInstance *testing.T) {
	client := newStubAuditClient()
	prompter := &scriptedPrompter{answers: []string{"yes", "", "maybe", "no", "fire door", "yes", "kept"}}
	_, standardError, executionError := execute(buildGroup(testInstance, client, prompter), "checklist", "7", "--interactive", "-a", "13=na")
	require.NoError(testInstance, executionError)
	require.Contains(testInstance, standardError, "== Category 1: Exits ==")

	submitted := client.submittedByItem()
	require.Equal(testInstance, apiclient.ResponseValueYes, submitted[11].Response)
	require.Equal(testInstance, apiclient.ResponseSubmission{ChecklistItem: 12, Response: apiclient.ResponseValueNo, Notes: "fire door"}, submitted[12])
	require.Equal(testInstance, apiclient.ResponseValueNotApplicable, submitted[13].Response)
	require.Equal(testInstance, apiclient.ResponseSubmission{ChecklistItem: 14, Response: apiclient.ResponseValueYes, Notes: "kept"}, submitted[14])

	itemPrompts := []string{}
	for _, prompt := range prompter.prompts {
		if strings.HasPrefix(prompt, "[") {
			itemPrompts = append(itemPrompts, prompt[:4])
		}
	}
	sort.Strings(itemPrompts)
	require.Equal(testInstance, []string{"[11]", "[12]", "[12]", "[14]"}, itemPrompts)
}

func TestChecklistRejectsUnknownItem(testInstance *testing.T) {
	client := newStubAuditClient()
	_, _, executionError := execute(buildGroup(testInstance, client, nil), "checklist", "7", "--answer", "99=yes")
	var validationError workflow.ValidationError
	require.ErrorAs(testInstance, executionError, &validationError)
	require.Empty(testInstance, client.submitted)
	require.Empty(testInstance, client.updates)
}

func TestChecklistRejectsCompletedAudit(testInstance *testing.T) {
	client := newStubAuditClient()
	completedAudit := client.audits[7]
	completedAudit.IsCompleted = true
	client.audits[7] = completedAudit

	_, _, executionError := execute(buildGroup(testInstance, client, nil), "checklist", "7")
	require.ErrorIs(testInstance, executionError, workflow.ErrAuditCompleted)
}

func TestItemKeepsNotesUnlessProvided(testInstance *testing.T) {
	testCases := []struct {
		name           string
		startCompleted bool
		arguments      []string
		expectedUpdate apiclient.ChecklistItemUpdate
		expectedOutput string
	}{
		{
			name:           "toggle_only",
			arguments:      []string{"item", "7", "12", "--completed", "yes"},
			expectedUpdate: apiclient.ChecklistItemUpdate{IsCompleted: true, Notes: "checked east wing"},
			expectedOutput: "Checklist item 12 saved (completed: yes)\n",
		},
		{
			name:           "toggle_shorthand",
			arguments:      []string{"item", "7", "12", "-c"},
			expectedUpdate: apiclient.ChecklistItemUpdate{IsCompleted: true, Notes: "checked east wing"},
			expectedOutput: "Checklist item 12 saved (completed: yes)\n",
		},
		{
			name:           "notes_replaced",
			arguments:      []string{"item", "7", "12", "--notes", "rechecked"},
			expectedUpdate: apiclient.ChecklistItemUpdate{IsCompleted: false, Notes: "rechecked"},
			expectedOutput: "Checklist item 12 saved (completed: no)\n",
		},
		{
			name:           "notes_keep_completion",
			startCompleted: true,
			arguments:      []string{"item", "7", "12", "--notes", "rechecked"},
			expectedUpdate: apiclient.ChecklistItemUpdate{IsCompleted: true, Notes: "rechecked"},
			expectedOutput: "Checklist item 12 saved (completed: yes)\n",
		},
		{
			name:           "explicit_reopen",
			startCompleted: true,
			arguments:      []string{"item", "7", "12", "--completed", "no"},
			expectedUpdate: apiclient.ChecklistItemUpdate{IsCompleted: false, Notes: "checked east wing"},
			expectedOutput: "Checklist item 12 saved (completed: no)\n",
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			client := newStubAuditClient()
			client.audits[7].Checklists[1].IsCompleted = testCase.startCompleted
			output, _, executionError := execute(buildGroup(subTest, client, nil), testCase.arguments...)
			require.NoError(subTest, executionError)
			require.Equal(subTest, testCase.expectedUpdate, client.itemUpdates[12])
			require.Equal(subTest, testCase.expectedOutput, output)
		})
	}
}

func TestReviewCompletesAndShowsResults(testInstance *testing.T) {
	client := newStubAuditClient()
	client.responses = []apiclient.AuditResponse{{ChecklistItem: 12, Response: apiclient.ResponseValueYes, Notes: "ok"}}

	output, standardError, executionError := execute(buildGroup(testInstance, client, nil), "review", "7", "--complete", "--format", "csv")
	require.NoError(testInstance, executionError)
	require.Equal(testInstance, []int64{7}, client.completed)
	require.Contains(testInstance, standardError, "Audit 7 completed")
	require.Contains(testInstance, output, "Exits are marked")
	require.Contains(testInstance, output, "YES")
}

func TestResultsRequiresFileForSpreadsheet(testInstance *testing.T) {
	client := newStubAuditClient()
	group := buildGroup(testInstance, client, nil)

	_, _, executionError := execute(group, "results", "7", "--format", "xlsx")
	require.Error(testInstance, executionError)

	outputPath := filepath.Join(testInstance.TempDir(), "results.xlsx")
	_, _, executionError = execute(buildGroup(testInstance, client, nil), "results", "7", "--format", "xlsx", "--output", outputPath)
	require.NoError(testInstance, executionError)
	fileInfo, statError := os.Stat(outputPath)
	require.NoError(testInstance, statError)
	require.Positive(testInstance, fileInfo.Size())
}
