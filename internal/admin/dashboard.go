package admin

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/temirov/auditdesk/internal/apiclient"
)

// UserCounts tallies accounts by role.
type UserCounts struct {
	Total   int `json:"total"`
	Staff   int `json:"staff"`
	Regular int `json:"regular"`
}

// InvitationCounts tallies invitations by effective status.
type InvitationCounts struct {
	Valid   int `json:"valid"`
	Used    int `json:"used"`
	Expired int `json:"expired"`
}

// Overview is the administrator's view of the user base.
type Overview struct {
	Users       UserCounts       `json:"users"`
	Invitations InvitationCounts `json:"invitations"`
}

// CountUsers splits accounts into staff and regular users.
func CountUsers(users []apiclient.User) UserCounts {
	counts := UserCounts{Total: len(users)}
	for _, user := range users {
		if user.IsStaff {
			counts.Staff++
			continue
		}
		counts.Regular++
	}
	return counts
}

// CountInvitations groups invitations by their effective status at the given instant.
func CountInvitations(invitations []apiclient.AdminInvitation, now time.Time) InvitationCounts {
	var counts InvitationCounts
	for _, invitation := range invitations {
		switch invitation.EffectiveStatus(now) {
		case apiclient.InvitationStatusUsed:
			counts.Used++
		case apiclient.InvitationStatusExpired:
			counts.Expired++
		default:
			counts.Valid++
		}
	}
	return counts
}

// Overview fetches users and invitations concurrently and tallies them.
func (service *Service) Overview(executionContext context.Context) (Overview, error) {
	var (
		users       []apiclient.User
		invitations []apiclient.AdminInvitation
	)

	group, groupContext := errgroup.WithContext(executionContext)
	group.Go(func() error {
		fetchedUsers, fetchError := service.client.ListUsers(groupContext)
		users = fetchedUsers
		return fetchError
	})
	group.Go(func() error {
		fetchedInvitations, fetchError := service.client.ListInvitations(groupContext)
		invitations = fetchedInvitations
		return fetchError
	})
	if waitError := group.Wait(); waitError != nil {
		return Overview{}, waitError
	}

	return Overview{Users: CountUsers(users), Invitations: CountInvitations(invitations, service.now())}, nil
}
