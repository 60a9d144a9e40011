// Package session owns the authenticated identity of the running process.
//
// A single Provider is constructed per invocation and handed to every command
// builder. It is the only component that reads or writes the persisted token
// pair, and it resolves the current user from that pair during Bootstrap.
package session
