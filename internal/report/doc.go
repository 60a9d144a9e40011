// Package report renders audits, checklist results and administrative listings
// as aligned tables, CSV, JSON or XLSX workbooks.
package report
