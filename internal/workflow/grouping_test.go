package workflow_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/auditdesk/internal/apiclient"
	"github.com/temirov/auditdesk/internal/workflow"
)

func checklist(texts ...string) []apiclient.ChecklistItem {
	items := make([]apiclient.ChecklistItem, 0, len(texts))
	for index, text := range texts {
		items = append(items, apiclient.ChecklistItem{ID: int64(index + 1), Item: text, Order: index + 1})
	}
	return items
}

func flatten(groups []workflow.CategoryGroup) []int64 {
	identifiers := make([]int64, 0)
	for _, group := range groups {
		if group.Header != nil {
			identifiers = append(identifiers, group.Header.ID)
		}
		for _, item := range group.Items {
			identifiers = append(identifiers, item.ID)
		}
	}
	return identifiers
}

func TestGroupByCategoryMarkers(testInstance *testing.T) {
	items := checklist(
		"Scope confirmed",
		"Category 1: Access control",
		"Badges reviewed",
		"Visitor log kept",
		"Category 2: Records",
		"Retention policy",
	)

	groups := workflow.GroupByCategory(items, "Category")
	require.Len(testInstance, groups, 3)

	require.Empty(testInstance, groups[0].Title)
	require.Nil(testInstance, groups[0].Header)
	require.Len(testInstance, groups[0].Items, 1)

	require.Equal(testInstance, "Category 1: Access control", groups[1].Title)
	require.NotNil(testInstance, groups[1].Header)
	require.Len(testInstance, groups[1].Items, 2)

	require.Equal(testInstance, "Category 2: Records", groups[2].Title)
	require.Len(testInstance, groups[2].Items, 1)

	require.Equal(testInstance, []int64{1, 2, 3, 4, 5, 6}, flatten(groups))

	total := 0
	for _, group := range groups {
		total += group.Size()
	}
	require.Equal(testInstance, len(items), total)
}

func TestGroupByCategoryCustomPrefixAndEmptyGroups(testInstance *testing.T) {
	items := checklist("Section A", "Section B", "Item under B")

	groups := workflow.GroupByCategory(items, "Section")
	require.Len(testInstance, groups, 2)
	require.Empty(testInstance, groups[0].Items)
	require.Len(testInstance, groups[1].Items, 1)
	require.Equal(testInstance, []int64{1, 2, 3}, flatten(groups))
}

func TestGroupByCategoryExplicitField(testInstance *testing.T) {
	items := []apiclient.ChecklistItem{
		{ID: 1, Item: "Category looking text", Category: "Safety"},
		{ID: 2, Item: "Exits", Category: "Safety"},
		{ID: 3, Item: "Ledger", Category: "Finance"},
		{ID: 4, Item: "Drills", Category: "Safety"},
	}

	groups := workflow.GroupByCategory(items, "Category")
	require.Len(testInstance, groups, 3)
	require.Equal(testInstance, "Safety", groups[0].Title)
	require.Len(testInstance, groups[0].Items, 2)
	require.Equal(testInstance, "Finance", groups[1].Title)
	require.Equal(testInstance, "Safety", groups[2].Title)
	require.Equal(testInstance, []int64{1, 2, 3, 4}, flatten(groups))
}

func TestGroupByCategoryEmpty(testInstance *testing.T) {
	require.Empty(testInstance, workflow.GroupByCategory(nil, "Category"))
}

func TestDeriveState(testInstance *testing.T) {
	require.Equal(testInstance, workflow.StateDraft, workflow.DeriveState(nil))
	require.Equal(testInstance, workflow.StateNotStarted, workflow.DeriveState(&apiclient.Audit{}))
	require.Equal(testInstance, workflow.StateInProgress, workflow.DeriveState(&apiclient.Audit{Checklists: checklist("Only item")}))
	require.Equal(testInstance, workflow.StateCompleted, workflow.DeriveState(&apiclient.Audit{IsCompleted: true}))
	require.True(testInstance, workflow.StateCompleted.Terminal())
	require.False(testInstance, workflow.StateInProgress.Terminal())
}

func TestConfigurationSanitize(testInstance *testing.T) {
	sanitized := workflow.Configuration{SubmissionMode: " BULK ", MaxRetries: 1}.Sanitize()
	require.Equal(testInstance, workflow.SubmissionModeBulk, sanitized.SubmissionMode)
	require.Equal(testInstance, "Category", sanitized.CategoryMarkerPrefix)
	require.Positive(testInstance, sanitized.RetryInitialInterval)
	require.Zero(testInstance, sanitized.MaxParallelSubmissions)
	require.Zero(testInstance, workflow.Configuration{MaxParallelSubmissions: -3}.Sanitize().MaxParallelSubmissions)
	require.Equal(testInstance, 2, workflow.Configuration{MaxParallelSubmissions: 2}.Sanitize().MaxParallelSubmissions)
	require.NoError(testInstance, sanitized.Validate())

	require.Error(testInstance, workflow.Configuration{SubmissionMode: workflow.SubmissionModeParallel, MaxRetries: -1}.Validate())
}

func TestCountAudits(testInstance *testing.T) {
	audits := []apiclient.Audit{
		{ID: 1, IsCompleted: true, Checklists: checklist("a")},
		{ID: 2, Checklists: checklist("a", "b")},
		{ID: 3},
		{ID: 4, IsCompleted: true},
	}

	counts := workflow.CountAudits(audits)
	require.Equal(testInstance, workflow.AuditCounts{Total: 4, Completed: 2, InProgress: 1, NotStarted: 1}, counts)
	require.Equal(testInstance, workflow.AuditCounts{}, workflow.CountAudits(nil))
}
