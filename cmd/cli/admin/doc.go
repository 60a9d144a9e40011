// Package admin wires the administrator commands for user accounts and
// administrator invitations.
package admin
