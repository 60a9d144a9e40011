// Package auth wires the account commands: signing in and out, registration,
// the profile view and the administrator view toggle.
package auth
