// Package workflow drives an audit through its lifecycle.
//
// An audit starts as a Draft form, becomes NotStarted or InProgress once the
// service has generated its checklist, and ends Completed either by submitting
// the full checklist or through the review step. Pending answers are kept
// locally, keyed by checklist item, until they are submitted.
package workflow
