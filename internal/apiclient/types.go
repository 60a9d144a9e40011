package apiclient

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

const (
	responseValueYesConstant                 = "yes"
	responseValueNoConstant                  = "no"
	responseValueNotApplicableConstant       = "na"
	responseValueSlashAliasConstant          = "n/a"
	responseLabelNotApplicableConstant       = "N/A"
	invitationStatusValidConstant            = "valid"
	invitationStatusUsedConstant             = "used"
	invitationStatusExpiredConstant          = "expired"
	unsupportedResponseValueTemplateConstant = "unsupported response value %q (expected yes, no, or na)"
	validateTagConstant                      = "validate"
	oneOfRulePrefixConstant                  = "oneof="
	auditTypeFieldNameConstant               = "AuditType"
	industryFieldNameConstant                = "Industry"
	complexityFieldNameConstant              = "ComplexityLevel"
)

// ResponseValue enumerates the answers accepted for a checklist item.
type ResponseValue string

// Supported checklist answers.
const (
	ResponseValueYes           ResponseValue = ResponseValue(responseValueYesConstant)
	ResponseValueNo            ResponseValue = ResponseValue(responseValueNoConstant)
	ResponseValueNotApplicable ResponseValue = ResponseValue(responseValueNotApplicableConstant)
)

// ParseResponseValue normalizes user input into a ResponseValue.
func ParseResponseValue(rawValue string) (ResponseValue, error) {
	normalizedValue := strings.ToLower(strings.TrimSpace(rawValue))
	switch normalizedValue {
	case responseValueYesConstant:
		return ResponseValueYes, nil
	case responseValueNoConstant:
		return ResponseValueNo, nil
	case responseValueNotApplicableConstant, responseValueSlashAliasConstant:
		return ResponseValueNotApplicable, nil
	default:
		return "", fmt.Errorf(unsupportedResponseValueTemplateConstant, rawValue)
	}
}

// Valid reports whether the value is one of the supported answers.
func (value ResponseValue) Valid() bool {
	switch value {
	case ResponseValueYes, ResponseValueNo, ResponseValueNotApplicable:
		return true
	default:
		return false
	}
}

// Label renders the value the way result views display it.
func (value ResponseValue) Label() string {
	switch value {
	case ResponseValueYes, ResponseValueNo:
		return strings.ToUpper(string(value))
	default:
		return responseLabelNotApplicableConstant
	}
}

// InvitationStatus describes the lifecycle of an admin invitation.
type InvitationStatus string

// Invitation status values.
const (
	InvitationStatusValid   InvitationStatus = InvitationStatus(invitationStatusValidConstant)
	InvitationStatusUsed    InvitationStatus = InvitationStatus(invitationStatusUsedConstant)
	InvitationStatusExpired InvitationStatus = InvitationStatus(invitationStatusExpiredConstant)
)

// User is an account known to the audit service.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsStaff  bool   `json:"is_staff"`
}

// UserCreate is the payload for provisioning an account; the password is write-only.
type UserCreate struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
	IsStaff  bool   `json:"is_staff"`
}

// UserUpdate carries the mutable user fields for partial updates.
type UserUpdate struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
	IsStaff  *bool   `json:"is_staff,omitempty"`
}

// ChecklistItem is one generated question or requirement of an audit.
type ChecklistItem struct {
	ID          int64  `json:"id"`
	Audit       int64  `json:"audit"`
	Item        string `json:"item"`
	IsCompleted bool   `json:"is_completed"`
	Notes       string `json:"notes"`
	Order       int    `json:"order"`
	Category    string `json:"category,omitempty"`
}

// ChecklistItemUpdate is the autosave payload for a single checklist item.
type ChecklistItemUpdate struct {
	IsCompleted bool   `json:"is_completed"`
	Notes       string `json:"notes"`
}

// Audit is a compliance or quality review with its checklist.
type Audit struct {
	ID                   int64           `json:"id"`
	Title                string          `json:"title"`
	Description          string          `json:"description"`
	AuditType            string          `json:"audit_type"`
	Organization         string          `json:"organization"`
	Industry             string          `json:"industry"`
	SpecificRequirements string          `json:"specific_requirements"`
	ComplexityLevel      string          `json:"complexity_level"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
	CreatedBy            User            `json:"created_by"`
	IsCompleted          bool            `json:"is_completed"`
	CompletionDate       *time.Time      `json:"completion_date"`
	Checklists           []ChecklistItem `json:"checklists"`
}

// CreateAuditRequest captures the classification fields submitted when creating an audit.
type CreateAuditRequest struct {
	Title                string `json:"title" validate:"required"`
	AuditType            string `json:"audit_type" validate:"required,oneof=compliance financial operational IT security quality environmental health_safety internal external"`
	Organization         string `json:"organization" validate:"required"`
	Industry             string `json:"industry" validate:"required,oneof=Manufacturing Healthcare Retail Technology Finance Education Construction Transportation Energy Agriculture Other"`
	SpecificRequirements string `json:"specific_requirements"`
	ComplexityLevel      string `json:"complexity_level" validate:"required,oneof=basic intermediate advanced"`
}

// AuditTypes lists the audit_type values accepted when creating an audit.
func AuditTypes() []string {
	return creationChoices(auditTypeFieldNameConstant)
}

// Industries lists the industry values accepted when creating an audit.
func Industries() []string {
	return creationChoices(industryFieldNameConstant)
}

// ComplexityLevels lists the complexity_level values accepted when creating an audit.
func ComplexityLevels() []string {
	return creationChoices(complexityFieldNameConstant)
}

// creationChoices returns the oneof values from the field's validate tag.
func creationChoices(fieldName string) []string {
	field, found := reflect.TypeOf(CreateAuditRequest{}).FieldByName(fieldName)
	if !found {
		return nil
	}
	for _, rule := range strings.Split(field.Tag.Get(validateTagConstant), ",") {
		if choices, isChoiceRule := strings.CutPrefix(rule, oneOfRulePrefixConstant); isChoiceRule {
			return strings.Fields(choices)
		}
	}
	return nil
}

// AuditUpdate carries partial audit modifications.
type AuditUpdate struct {
	Title          *string    `json:"title,omitempty"`
	Description    *string    `json:"description,omitempty"`
	IsCompleted    *bool      `json:"is_completed,omitempty"`
	CompletionDate *time.Time `json:"completion_date,omitempty"`
}

// AuditResponse is a persisted answer to a checklist item.
type AuditResponse struct {
	ID            int64         `json:"id"`
	Audit         int64         `json:"audit"`
	ChecklistItem int64         `json:"checklist_item"`
	Response      ResponseValue `json:"response"`
	Notes         string        `json:"notes"`
	Evidence      string        `json:"evidence"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// ResponseSubmission is the payload for creating or replacing an answer.
type ResponseSubmission struct {
	ChecklistItem int64         `json:"checklist_item"`
	Response      ResponseValue `json:"response"`
	Notes         string        `json:"notes"`
}

// AdminInvitation grants registration with staff privileges until it expires.
type AdminInvitation struct {
	ID        int64            `json:"id"`
	Email     string           `json:"email"`
	Token     string           `json:"token"`
	CreatedAt time.Time        `json:"created_at"`
	ExpiresAt time.Time        `json:"expires_at"`
	IsUsed    bool             `json:"is_used"`
	InvitedBy User             `json:"invited_by"`
	Status    InvitationStatus `json:"status"`
}

// EffectiveStatus returns the server-provided status or derives it from the usage flag and expiry.
func (invitation AdminInvitation) EffectiveStatus(now time.Time) InvitationStatus {
	if len(invitation.Status) > 0 {
		return invitation.Status
	}
	if invitation.IsUsed {
		return InvitationStatusUsed
	}
	if !invitation.ExpiresAt.IsZero() && now.After(invitation.ExpiresAt) {
		return InvitationStatusExpired
	}
	return InvitationStatusValid
}

// InvitationTokenValidation is returned when an invitation token is accepted.
type InvitationTokenValidation struct {
	Email string `json:"email"`
}

// LoginCredentials identifies a user either by username or by email.
type LoginCredentials struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

// RegisterRequest is the account registration payload.
type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	InvitationToken string `json:"invitation_token,omitempty"`
}

// LoginResponse carries the issued token pair and the authenticated user.
type LoginResponse struct {
	Token   string `json:"token"`
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    User   `json:"user"`
}

// AccessToken returns the issued access token regardless of the field name the server used.
func (response LoginResponse) AccessToken() string {
	if len(response.Token) > 0 {
		return response.Token
	}
	return response.Access
}

// RefreshResponse carries a renewed access token.
type RefreshResponse struct {
	Token   string `json:"token"`
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// AccessToken returns the renewed access token regardless of the field name the server used.
func (response RefreshResponse) AccessToken() string {
	if len(response.Token) > 0 {
		return response.Token
	}
	return response.Access
}
