// Package apiclient binds the audit-management REST service for auditdesk.
//
// It layers typed request and response structures over the HTTP endpoints,
// attaches bearer credentials and request identifiers to every call, reports
// request lifecycle events to observers, and converts failures into typed
// errors so callers can distinguish validation, transport, decoding, and
// server-side problems.
package apiclient
