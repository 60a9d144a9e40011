// Package audits wires the audit commands: listing, creation, checklist answering,
// item autosave, review, completion and results export.
package audits
