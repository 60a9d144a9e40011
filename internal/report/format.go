package report

import (
	"fmt"
	"io"
	"strings"
)

// Format names an output encoding.
type Format string

// Supported output formats.
const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatXLSX  Format = "xlsx"
)

const unsupportedFormatTemplateConstant = "unsupported output format %q (expected one of %s)"

// Formats lists the supported format names with the default first.
func Formats() []string {
	return []string{string(FormatTable), string(FormatCSV), string(FormatJSON), string(FormatXLSX)}
}

// ParseFormat normalizes a user supplied format name; blank input selects the table format.
func ParseFormat(rawFormat string) (Format, error) {
	normalizedFormat := Format(strings.ToLower(strings.TrimSpace(rawFormat)))
	switch normalizedFormat {
	case "":
		return FormatTable, nil
	case FormatTable, FormatCSV, FormatJSON, FormatXLSX:
		return normalizedFormat, nil
	default:
		return "", fmt.Errorf(unsupportedFormatTemplateConstant, rawFormat, strings.Join(Formats(), ", "))
	}
}

// Binary reports whether the format produces non-text output.
func (format Format) Binary() bool {
	return format == FormatXLSX
}

// Section is one titled table of a document.
type Section struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Document is a renderable collection of sections; Payload, when set, is what the JSON format emits.
type Document struct {
	Sections []Section
	Payload  any
}

// Renderer writes a document in a specific format.
type Renderer interface {
	Render(writer io.Writer, document Document) error
}

// NewRenderer returns the renderer for the format.
func NewRenderer(format Format) (Renderer, error) {
	switch format {
	case FormatTable, "":
		return tableRenderer{}, nil
	case FormatCSV:
		return csvRenderer{}, nil
	case FormatJSON:
		return jsonRenderer{}, nil
	case FormatXLSX:
		return xlsxRenderer{}, nil
	default:
		return nil, fmt.Errorf(unsupportedFormatTemplateConstant, string(format), strings.Join(Formats(), ", "))
	}
}
