package workflow

import "github.com/temirov/auditdesk/internal/apiclient"

// AuditCounts tallies audits by lifecycle state for the dashboard.
type AuditCounts struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	InProgress int `json:"in_progress"`
	NotStarted int `json:"not_started"`
}

// CountAudits groups the audits by DeriveState.
func CountAudits(audits []apiclient.Audit) AuditCounts {
	counts := AuditCounts{Total: len(audits)}
	for index := range audits {
		switch DeriveState(&audits[index]) {
		case StateCompleted:
			counts.Completed++
		case StateInProgress:
			counts.InProgress++
		default:
			counts.NotStarted++
		}
	}
	return counts
}
