package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

const (
	listInvitationsOperationNameConstant    = OperationName("ListInvitations")
	createInvitationOperationNameConstant   = OperationName("CreateInvitation")
	deleteInvitationOperationNameConstant   = OperationName("DeleteInvitation")
	validateInvitationOperationNameConstant = OperationName("ValidateInvitationToken")
	adminSegmentConstant                    = "admin"
	invitationsSegmentConstant              = "admin-invitations"
	validateTokenSegmentConstant            = "validate_token"
	tokenQueryParameterConstant             = "token"
	invitationIdentifierFieldNameConstant   = "invitation_id"
	invitationTokenFieldNameConstant        = "token"
)

// ListInvitations returns the admin invitations issued so far.
func (client *Client) ListInvitations(executionContext context.Context) ([]AdminInvitation, error) {
	var invitations []AdminInvitation
	executionError := client.execute(executionContext, requestCall{
		operation: listInvitationsOperationNameConstant,
		method:    http.MethodGet,
		path:      resourcePath(adminSegmentConstant, invitationsSegmentConstant),
		target:    &invitations,
	})
	if executionError != nil {
		return nil, executionError
	}
	return invitations, nil
}

// CreateInvitation issues an admin invitation for the email address.
func (client *Client) CreateInvitation(executionContext context.Context, email string) (AdminInvitation, error) {
	trimmedEmail := strings.TrimSpace(email)
	if len(trimmedEmail) == 0 {
		return AdminInvitation{}, InvalidInputError{FieldName: emailFieldNameConstant, Message: requiredValueMessageConstant}
	}

	payload := struct {
		Email string `json:"email"`
	}{Email: trimmedEmail}

	var invitation AdminInvitation
	executionError := client.execute(executionContext, requestCall{
		operation: createInvitationOperationNameConstant,
		method:    http.MethodPost,
		path:      resourcePath(adminSegmentConstant, invitationsSegmentConstant),
		payload:   payload,
		target:    &invitation,
	})
	if executionError != nil {
		return AdminInvitation{}, executionError
	}
	return invitation, nil
}

// DeleteInvitation revokes an invitation.
func (client *Client) DeleteInvitation(executionContext context.Context, invitationID int64) error {
	if validationError := requirePositiveIdentifier(invitationIdentifierFieldNameConstant, invitationID); validationError != nil {
		return validationError
	}

	return client.execute(executionContext, requestCall{
		operation: deleteInvitationOperationNameConstant,
		method:    http.MethodDelete,
		path:      resourcePath(adminSegmentConstant, invitationsSegmentConstant, invitationID),
	})
}

// ValidateInvitationToken checks an invitation token and returns the invited email address.
func (client *Client) ValidateInvitationToken(executionContext context.Context, token string) (InvitationTokenValidation, error) {
	trimmedToken := strings.TrimSpace(token)
	if len(trimmedToken) == 0 {
		return InvitationTokenValidation{}, InvalidInputError{FieldName: invitationTokenFieldNameConstant, Message: requiredValueMessageConstant}
	}

	var validation InvitationTokenValidation
	executionError := client.execute(executionContext, requestCall{
		operation: validateInvitationOperationNameConstant,
		method:    http.MethodGet,
		path:      resourcePath(adminSegmentConstant, invitationsSegmentConstant, validateTokenSegmentConstant),
		query:     url.Values{tokenQueryParameterConstant: []string{trimmedToken}},
		target:    &validation,
	})
	if executionError != nil {
		return InvitationTokenValidation{}, executionError
	}
	return validation, nil
}
