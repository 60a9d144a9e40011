package apiclient

import (
	"context"
	"net/http"
)

const (
	listUsersOperationNameConstant  = OperationName("ListUsers")
	getUserOperationNameConstant    = OperationName("GetUser")
	createUserOperationNameConstant = OperationName("CreateUser")
	updateUserOperationNameConstant = OperationName("UpdateUser")
	deleteUserOperationNameConstant = OperationName("DeleteUser")
	userIdentifierFieldNameConstant = "user_id"
)

// ListUsers returns every account; requires staff privileges.
func (client *Client) ListUsers(executionContext context.Context) ([]User, error) {
	var users []User
	executionError := client.execute(executionContext, requestCall{
		operation: listUsersOperationNameConstant,
		method:    http.MethodGet,
		path:      resourcePath(usersSegmentConstant, listSegmentConstant),
		target:    &users,
	})
	if executionError != nil {
		return nil, executionError
	}
	return users, nil
}

// GetUser fetches a single account.
func (client *Client) GetUser(executionContext context.Context, userID int64) (User, error) {
	if validationError := requirePositiveIdentifier(userIdentifierFieldNameConstant, userID); validationError != nil {
		return User{}, validationError
	}

	var user User
	executionError := client.execute(executionContext, requestCall{
		operation: getUserOperationNameConstant,
		method:    http.MethodGet,
		path:      resourcePath(usersSegmentConstant, listSegmentConstant, userID),
		target:    &user,
	})
	if executionError != nil {
		return User{}, executionError
	}
	return user, nil
}

// CreateUser provisions a new account; requires staff privileges.
func (client *Client) CreateUser(executionContext context.Context, create UserCreate) (User, error) {
	var user User
	executionError := client.execute(executionContext, requestCall{
		operation: createUserOperationNameConstant,
		method:    http.MethodPost,
		path:      resourcePath(usersSegmentConstant, listSegmentConstant),
		payload:   create,
		target:    &user,
	})
	if executionError != nil {
		return User{}, executionError
	}
	return user, nil
}

// UpdateUser applies a partial update to an account.
func (client *Client) UpdateUser(executionContext context.Context, userID int64, update UserUpdate) (User, error) {
	if validationError := requirePositiveIdentifier(userIdentifierFieldNameConstant, userID); validationError != nil {
		return User{}, validationError
	}

	var user User
	executionError := client.execute(executionContext, requestCall{
		operation: updateUserOperationNameConstant,
		method:    http.MethodPatch,
		path:      resourcePath(usersSegmentConstant, listSegmentConstant, userID),
		payload:   update,
		target:    &user,
	})
	if executionError != nil {
		return User{}, executionError
	}
	return user, nil
}

// DeleteUser removes an account.
func (client *Client) DeleteUser(executionContext context.Context, userID int64) error {
	if validationError := requirePositiveIdentifier(userIdentifierFieldNameConstant, userID); validationError != nil {
		return validationError
	}

	return client.execute(executionContext, requestCall{
		operation: deleteUserOperationNameConstant,
		method:    http.MethodDelete,
		path:      resourcePath(usersSegmentConstant, listSegmentConstant, userID),
	})
}
