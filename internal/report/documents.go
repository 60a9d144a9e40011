package report

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/temirov/auditdesk/internal/admin"
	"github.com/temirov/auditdesk/internal/apiclient"
	"github.com/temirov/auditdesk/internal/workflow"
)

const (
	dateLayoutConstant              = "2006-01-02 15:04"
	dateOnlyLayoutConstant          = "2006-01-02"
	emptyValueConstant              = "-"
	yesLabelConstant                = "yes"
	noLabelConstant                 = "no"
	percentageTemplateConstant      = "%s%%"
	auditsSectionTitleConstant      = "Audits"
	auditSectionTitleConstant       = "Audit"
	summarySectionTitleConstant     = "Summary"
	responsesSectionTitleConstant   = "Responses"
	usersSectionTitleConstant       = "Users"
	invitationsSectionTitleConstant = "Admin invitations"
	profileSectionTitleConstant     = "Profile"
	dashboardSectionTitleConstant   = "Dashboard"
	uncategorizedTitleConstant      = "General"
	roleAdminLabelConstant          = "admin"
	roleUserLabelConstant           = "user"
	fieldHeaderConstant             = "Field"
	valueHeaderConstant             = "Value"
	percentageDisplayPlacesConstant = 1
)

// AuditListDocument renders the audits visible to the user.
func AuditListDocument(audits []apiclient.Audit) Document {
	section := Section{
		Title:   auditsSectionTitleConstant,
		Headers: []string{"ID", "Title", "Type", "Organization", "Industry", "Complexity", "State", "Items", "Created"},
	}
	for index := range audits {
		audit := audits[index]
		section.Rows = append(section.Rows, []string{
			formatIdentifier(audit.ID),
			audit.Title,
			audit.AuditType,
			audit.Organization,
			audit.Industry,
			audit.ComplexityLevel,
			string(workflow.DeriveState(&audit)),
			strconv.Itoa(len(audit.Checklists)),
			formatTime(audit.CreatedAt, dateOnlyLayoutConstant),
		})
	}
	return Document{Sections: []Section{section}, Payload: audits}
}

// AuditDetailDocument renders an audit header followed by its checklist grouped by category.
func AuditDetailDocument(audit apiclient.Audit, groups []workflow.CategoryGroup) Document {
	header := Section{
		Title:   auditSectionTitleConstant,
		Headers: []string{fieldHeaderConstant, valueHeaderConstant},
		Rows: [][]string{
			{"ID", formatIdentifier(audit.ID)},
			{"Title", audit.Title},
			{"Description", valueOrDash(audit.Description)},
			{"Type", audit.AuditType},
			{"Organization", audit.Organization},
			{"Industry", audit.Industry},
			{"Complexity", audit.ComplexityLevel},
			{"Requirements", valueOrDash(audit.SpecificRequirements)},
			{"State", string(workflow.DeriveState(&audit))},
			{"Created by", valueOrDash(audit.CreatedBy.Username)},
			{"Created", formatTime(audit.CreatedAt, dateLayoutConstant)},
			{"Completed", formatOptionalTime(audit.CompletionDate)},
		},
	}

	sections := []Section{header}
	for _, group := range groups {
		section := Section{
			Title:   groupTitle(group),
			Headers: []string{"ID", "Item", "Done", "Notes"},
		}
		for _, item := range groupItems(group) {
			section.Rows = append(section.Rows, []string{
				formatIdentifier(item.ID),
				item.Item,
				formatBool(item.IsCompleted),
				item.Notes,
			})
		}
		sections = append(sections, section)
	}
	return Document{Sections: sections, Payload: audit}
}

type resultsPayload struct {
	Audit   apiclient.Audit      `json:"audit"`
	Summary summaryPayload       `json:"summary"`
	Groups  []resultGroupPayload `json:"groups"`
}

type summaryPayload struct {
	TotalItems           int             `json:"total_items"`
	CompletedItems       int             `json:"completed_items"`
	YesResponses         int             `json:"yes_responses"`
	NoResponses          int             `json:"no_responses"`
	NAResponses          int             `json:"na_responses"`
	CompletionPercentage decimal.Decimal `json:"completion_percentage"`
}

type resultGroupPayload struct {
	Title string             `json:"title"`
	Rows  []resultRowPayload `json:"rows"`
}

type resultRowPayload struct {
	ChecklistItem int64  `json:"checklist_item"`
	Item          string `json:"item"`
	Response      string `json:"response"`
	Answered      bool   `json:"answered"`
	Notes         string `json:"notes"`
}

// ResultsDocument renders the completion summary and the joined responses grouped by category.
func ResultsDocument(results workflow.ResultSet, summary workflow.AuditResult, groups []workflow.CategoryGroup) Document {
	summarySection := Section{
		Title:   summarySectionTitleConstant,
		Headers: []string{fieldHeaderConstant, valueHeaderConstant},
		Rows: [][]string{
			{"Audit", results.Audit.Title},
			{"State", string(workflow.DeriveState(&results.Audit))},
			{"Total items", strconv.Itoa(summary.TotalItems)},
			{"Completed items", strconv.Itoa(summary.CompletedItems)},
			{"Yes", strconv.Itoa(summary.YesResponses)},
			{"No", strconv.Itoa(summary.NoResponses)},
			{"N/A", strconv.Itoa(summary.NAResponses)},
			{"Completion", FormatPercentage(summary.CompletionPercentage)},
		},
	}

	rowsByItem := make(map[int64]workflow.ResultRow, len(results.Rows))
	for _, row := range results.Rows {
		rowsByItem[row.Item.ID] = row
	}

	responsesSection := Section{
		Title:   responsesSectionTitleConstant,
		Headers: []string{"Category", "ID", "Item", "Response", "Notes"},
	}
	payload := resultsPayload{
		Audit: results.Audit,
		Summary: summaryPayload{
			TotalItems:           summary.TotalItems,
			CompletedItems:       summary.CompletedItems,
			YesResponses:         summary.YesResponses,
			NoResponses:          summary.NoResponses,
			NAResponses:          summary.NAResponses,
			CompletionPercentage: summary.CompletionPercentage,
		},
		Groups: make([]resultGroupPayload, 0, len(groups)),
	}
	for _, group := range groups {
		title := groupTitle(group)
		groupPayload := resultGroupPayload{Title: title}
		for _, item := range groupItems(group) {
			row, exists := rowsByItem[item.ID]
			if !exists {
				row = workflow.ResultRow{Item: item}
			}
			responsesSection.Rows = append(responsesSection.Rows, []string{
				title,
				formatIdentifier(item.ID),
				item.Item,
				row.ResponseLabel(),
				row.Notes(),
			})
			groupPayload.Rows = append(groupPayload.Rows, resultRowPayload{
				ChecklistItem: item.ID,
				Item:          item.Item,
				Response:      row.ResponseLabel(),
				Answered:      row.Answered(),
				Notes:         row.Notes(),
			})
		}
		payload.Groups = append(payload.Groups, groupPayload)
	}

	return Document{Sections: []Section{summarySection, responsesSection}, Payload: payload}
}

// UsersDocument renders user accounts.
func UsersDocument(users []apiclient.User) Document {
	section := Section{
		Title:   usersSectionTitleConstant,
		Headers: []string{"ID", "Username", "Email", "Role"},
	}
	for _, user := range users {
		section.Rows = append(section.Rows, []string{formatIdentifier(user.ID), user.Username, user.Email, roleLabel(user.IsStaff)})
	}
	return Document{Sections: []Section{section}, Payload: users}
}

// InvitationsDocument renders admin invitations with their effective status.
func InvitationsDocument(views []admin.InvitationView) Document {
	section := Section{
		Title:   invitationsSectionTitleConstant,
		Headers: []string{"ID", "Email", "Status", "Invited by", "Created", "Expires", "Token"},
	}
	payload := make([]apiclient.AdminInvitation, 0, len(views))
	for _, view := range views {
		invitation := view.Invitation
		invitation.Status = view.Status
		section.Rows = append(section.Rows, []string{
			formatIdentifier(invitation.ID),
			invitation.Email,
			string(view.Status),
			valueOrDash(invitation.InvitedBy.Username),
			formatTime(invitation.CreatedAt, dateLayoutConstant),
			formatTime(invitation.ExpiresAt, dateLayoutConstant),
			invitation.Token,
		})
		payload = append(payload, invitation)
	}
	return Document{Sections: []Section{section}, Payload: payload}
}

// ProfileDocument renders the signed-in account.
func ProfileDocument(user apiclient.User, viewingAsUser bool) Document {
	section := Section{
		Title:   profileSectionTitleConstant,
		Headers: []string{fieldHeaderConstant, valueHeaderConstant},
		Rows: [][]string{
			{"ID", formatIdentifier(user.ID)},
			{"Username", user.Username},
			{"Email", valueOrDash(user.Email)},
			{"Role", roleLabel(user.IsStaff)},
			{"Viewing as user", formatBool(viewingAsUser)},
		},
	}
	return Document{Sections: []Section{section}, Payload: user}
}

// DashboardData holds the counts shown on the dashboard; Overview is present for administrators only.
type DashboardData struct {
	Username string               `json:"username"`
	Audits   workflow.AuditCounts `json:"audits"`
	Overview *admin.Overview      `json:"overview,omitempty"`
}

// DashboardDocument renders dashboard counts.
func DashboardDocument(data DashboardData) Document {
	section := Section{
		Title:   dashboardSectionTitleConstant,
		Headers: []string{fieldHeaderConstant, valueHeaderConstant},
		Rows: [][]string{
			{"Signed in as", data.Username},
			{"Total audits", strconv.Itoa(data.Audits.Total)},
			{"Completed audits", strconv.Itoa(data.Audits.Completed)},
			{"In progress", strconv.Itoa(data.Audits.InProgress)},
			{"Not started", strconv.Itoa(data.Audits.NotStarted)},
		},
	}
	if data.Overview != nil {
		section.Rows = append(section.Rows,
			[]string{"Total users", strconv.Itoa(data.Overview.Users.Total)},
			[]string{"Administrators", strconv.Itoa(data.Overview.Users.Staff)},
			[]string{"Regular users", strconv.Itoa(data.Overview.Users.Regular)},
			[]string{"Valid invitations", strconv.Itoa(data.Overview.Invitations.Valid)},
			[]string{"Used invitations", strconv.Itoa(data.Overview.Invitations.Used)},
			[]string{"Expired invitations", strconv.Itoa(data.Overview.Invitations.Expired)},
		)
	}
	return Document{Sections: []Section{section}, Payload: data}
}

// FormatPercentage renders a percentage with one decimal place.
func FormatPercentage(percentage decimal.Decimal) string {
	return fmt.Sprintf(percentageTemplateConstant, percentage.StringFixed(percentageDisplayPlacesConstant))
}

func groupTitle(group workflow.CategoryGroup) string {
	if len(group.Title) == 0 {
		return uncategorizedTitleConstant
	}
	return group.Title
}

func groupItems(group workflow.CategoryGroup) []apiclient.ChecklistItem {
	items := make([]apiclient.ChecklistItem, 0, group.Size())
	if group.Header != nil {
		items = append(items, *group.Header)
	}
	return append(items, group.Items...)
}

func formatIdentifier(identifier int64) string {
	return strconv.FormatInt(identifier, 10)
}

func formatBool(value bool) string {
	if value {
		return yesLabelConstant
	}
	return noLabelConstant
}

func roleLabel(isStaff bool) string {
	if isStaff {
		return roleAdminLabelConstant
	}
	return roleUserLabelConstant
}

func formatTime(value time.Time, layout string) string {
	if value.IsZero() {
		return emptyValueConstant
	}
	return value.Local().Format(layout)
}

func formatOptionalTime(value *time.Time) string {
	if value == nil {
		return emptyValueConstant
	}
	return formatTime(*value, dateLayoutConstant)
}

func valueOrDash(value string) string {
	if len(value) == 0 {
		return emptyValueConstant
	}
	return value
}
