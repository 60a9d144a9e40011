package apiclient

import (
	"context"
	"net/http"
	"strings"
)

const (
	loginOperationNameConstant           = OperationName("Login")
	registerOperationNameConstant        = OperationName("Register")
	refreshOperationNameConstant         = OperationName("RefreshToken")
	currentUserOperationNameConstant     = OperationName("CurrentUser")
	authSegmentConstant                  = "auth"
	loginSegmentConstant                 = "login"
	registerSegmentConstant              = "register"
	tokenSegmentConstant                 = "token"
	refreshSegmentConstant               = "refresh"
	usersSegmentConstant                 = "users"
	currentUserSegmentConstant           = "me"
	passwordFieldNameConstant            = "password"
	identifierFieldNameConstant          = "identifier"
	emailFieldNameConstant               = "email"
	refreshTokenFieldNameConstant        = "refresh"
	requiredValueMessageConstant         = "value required"
	conflictingIdentifierMessageConstant = "provide either username or email, not both"
)

// Login exchanges credentials for a token pair.
func (client *Client) Login(executionContext context.Context, credentials LoginCredentials) (LoginResponse, error) {
	hasUsername := len(strings.TrimSpace(credentials.Username)) > 0
	hasEmail := len(strings.TrimSpace(credentials.Email)) > 0
	switch {
	case !hasUsername && !hasEmail:
		return LoginResponse{}, InvalidInputError{FieldName: identifierFieldNameConstant, Message: requiredValueMessageConstant}
	case hasUsername && hasEmail:
		return LoginResponse{}, InvalidInputError{FieldName: identifierFieldNameConstant, Message: conflictingIdentifierMessageConstant}
	}
	if len(credentials.Password) == 0 {
		return LoginResponse{}, InvalidInputError{FieldName: passwordFieldNameConstant, Message: requiredValueMessageConstant}
	}

	var response LoginResponse
	executionError := client.execute(executionContext, requestCall{
		operation: loginOperationNameConstant,
		method:    http.MethodPost,
		path:      resourcePath(authSegmentConstant, loginSegmentConstant),
		payload:   credentials,
		target:    &response,
	})
	if executionError != nil {
		return LoginResponse{}, executionError
	}
	return response, nil
}

// Register creates an account and returns its token pair.
func (client *Client) Register(executionContext context.Context, request RegisterRequest) (LoginResponse, error) {
	if len(strings.TrimSpace(request.Email)) == 0 {
		return LoginResponse{}, InvalidInputError{FieldName: emailFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(request.Password) == 0 {
		return LoginResponse{}, InvalidInputError{FieldName: passwordFieldNameConstant, Message: requiredValueMessageConstant}
	}

	var response LoginResponse
	executionError := client.execute(executionContext, requestCall{
		operation: registerOperationNameConstant,
		method:    http.MethodPost,
		path:      resourcePath(authSegmentConstant, registerSegmentConstant),
		payload:   request,
		target:    &response,
	})
	if executionError != nil {
		return LoginResponse{}, executionError
	}
	return response, nil
}

// RefreshToken renews the access token using a refresh token.
func (client *Client) RefreshToken(executionContext context.Context, refreshToken string) (RefreshResponse, error) {
	trimmedRefreshToken := strings.TrimSpace(refreshToken)
	if len(trimmedRefreshToken) == 0 {
		return RefreshResponse{}, InvalidInputError{FieldName: refreshTokenFieldNameConstant, Message: requiredValueMessageConstant}
	}

	payload := struct {
		Refresh string `json:"refresh"`
	}{Refresh: trimmedRefreshToken}

	var response RefreshResponse
	executionError := client.execute(executionContext, requestCall{
		operation: refreshOperationNameConstant,
		method:    http.MethodPost,
		path:      resourcePath(authSegmentConstant, tokenSegmentConstant, refreshSegmentConstant),
		payload:   payload,
		target:    &response,
	})
	if executionError != nil {
		return RefreshResponse{}, executionError
	}
	return response, nil
}

// CurrentUser resolves the account bound to the attached access token.
func (client *Client) CurrentUser(executionContext context.Context) (User, error) {
	var user User
	executionError := client.execute(executionContext, requestCall{
		operation: currentUserOperationNameConstant,
		method:    http.MethodGet,
		path:      resourcePath(usersSegmentConstant, currentUserSegmentConstant),
		target:    &user,
	})
	if executionError != nil {
		return User{}, executionError
	}
	return user, nil
}
