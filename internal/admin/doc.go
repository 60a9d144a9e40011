// Package admin implements the staff-only management of user accounts and
// admin invitations on top of the audit service client.
package admin
