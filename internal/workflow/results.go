package workflow

import (
	"context"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/auditdesk/internal/apiclient"
)

const percentagePrecisionConstant = 1

var oneHundred = decimal.NewFromInt(100)

// ResultRow joins a checklist item with its stored response, if any.
type ResultRow struct {
	Item     apiclient.ChecklistItem
	Response *apiclient.AuditResponse
}

// Answered reports whether a response is stored for the item.
func (row ResultRow) Answered() bool {
	return row.Response != nil
}

// ResponseLabel renders the stored response; unanswered items read "N/A".
func (row ResultRow) ResponseLabel() string {
	if row.Response == nil {
		return apiclient.ResponseValueNotApplicable.Label()
	}
	return row.Response.Response.Label()
}

// Notes returns the response notes, or an empty string when unanswered.
func (row ResultRow) Notes() string {
	if row.Response == nil {
		return ""
	}
	return row.Response.Notes
}

// ResultSet is an audit together with its joined rows.
type ResultSet struct {
	Audit apiclient.Audit
	Rows  []ResultRow
}

// AuditResult is the summary derived from result rows.
type AuditResult struct {
	TotalItems           int
	CompletedItems       int
	YesResponses         int
	NoResponses          int
	NAResponses          int
	CompletionPercentage decimal.Decimal
}

// Results fetches the audit and its responses concurrently and joins them by checklist item.
func (workflow *Workflow) Results(executionContext context.Context, auditID int64) (ResultSet, error) {
	var (
		audit     apiclient.Audit
		responses []apiclient.AuditResponse
	)

	group, groupContext := errgroup.WithContext(executionContext)
	group.Go(func() error {
		fetchedAudit, fetchError := workflow.client.GetAudit(groupContext, auditID)
		audit = fetchedAudit
		return fetchError
	})
	group.Go(func() error {
		fetchedResponses, fetchError := workflow.client.ListResponses(groupContext, auditID)
		responses = fetchedResponses
		return fetchError
	})
	if waitError := group.Wait(); waitError != nil {
		return ResultSet{}, waitError
	}

	orderedAudit := copyAudit(audit)
	return ResultSet{Audit: orderedAudit, Rows: JoinResponses(orderedAudit.Checklists, responses)}, nil
}

// JoinResponses pairs each item with its response; the most recently updated response wins.
func JoinResponses(items []apiclient.ChecklistItem, responses []apiclient.AuditResponse) []ResultRow {
	responsesByItem := make(map[int64]apiclient.AuditResponse, len(responses))
	for _, response := range responses {
		existing, exists := responsesByItem[response.ChecklistItem]
		if !exists || !response.UpdatedAt.Before(existing.UpdatedAt) {
			responsesByItem[response.ChecklistItem] = response
		}
	}

	rows := make([]ResultRow, 0, len(items))
	for _, item := range items {
		row := ResultRow{Item: item}
		if response, exists := responsesByItem[item.ID]; exists {
			responseCopy := response
			row.Response = &responseCopy
		}
		rows = append(rows, row)
	}
	return rows
}

// Summarize counts answers per value; items without a stored response are not completed.
func Summarize(rows []ResultRow) AuditResult {
	result := AuditResult{TotalItems: len(rows), CompletionPercentage: decimal.Zero}
	for _, row := range rows {
		if row.Response == nil {
			continue
		}
		result.CompletedItems++
		switch row.Response.Response {
		case apiclient.ResponseValueYes:
			result.YesResponses++
		case apiclient.ResponseValueNo:
			result.NoResponses++
		default:
			result.NAResponses++
		}
	}

	if result.TotalItems > 0 {
		result.CompletionPercentage = decimal.NewFromInt(int64(result.CompletedItems)).
			Mul(oneHundred).
			Div(decimal.NewFromInt(int64(result.TotalItems))).
			Round(percentagePrecisionConstant)
	}
	return result
}
