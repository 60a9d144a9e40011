// Package cli constructs the auditdesk command-line interface. It wires the
// Cobra command hierarchy, configuration loader, structured logging, the
// session provider and the REST client, and checks every command's route
// before it runs.
package cli
