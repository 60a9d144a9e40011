package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/xuri/excelize/v2"
)

const (
	tableColumnSeparatorConstant       = "\t"
	tableTitleTemplateConstant         = "%s\n"
	tableEmptyMessageConstant          = "(none)"
	jsonIndentConstant                 = "  "
	defaultSheetNameConstant           = "Sheet1"
	maximumSheetNameLengthConstant     = 31
	sheetNameFallbackConstant          = "Report"
	sheetNameSuffixTemplateConstant    = " (%d)"
	forbiddenSheetCharactersConstant   = `[]:*?/\`
	sheetRenameErrorTemplateConstant   = "rename sheet %q: %w"
	sheetCreateErrorTemplateConstant   = "create sheet %q: %w"
	sheetWriteErrorTemplateConstant    = "write sheet %q row %d: %w"
	workbookWriteErrorTemplateConstant = "write workbook: %w"
)

var tableCellReplacer = strings.NewReplacer("\t", " ", "\n", " ", "\r", " ")

type tableRenderer struct{}

func (tableRenderer) Render(writer io.Writer, document Document) error {
	for sectionIndex, section := range document.Sections {
		if sectionIndex > 0 {
			if _, writeError := io.WriteString(writer, "\n"); writeError != nil {
				return writeError
			}
		}
		if len(section.Title) > 0 {
			if _, writeError := fmt.Fprintf(writer, tableTitleTemplateConstant, section.Title); writeError != nil {
				return writeError
			}
		}

		tableWriter := tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)
		if len(section.Headers) > 0 {
			upperHeaders := make([]string, 0, len(section.Headers))
			for _, header := range section.Headers {
				upperHeaders = append(upperHeaders, strings.ToUpper(header))
			}
			fmt.Fprintln(tableWriter, strings.Join(upperHeaders, tableColumnSeparatorConstant))
		}
		if len(section.Rows) == 0 {
			fmt.Fprintln(tableWriter, tableEmptyMessageConstant)
		}
		for _, row := range section.Rows {
			fmt.Fprintln(tableWriter, strings.Join(sanitizeTableCells(row), tableColumnSeparatorConstant))
		}
		if flushError := tableWriter.Flush(); flushError != nil {
			return flushError
		}
	}
	return nil
}

func sanitizeTableCells(row []string) []string {
	sanitized := make([]string, 0, len(row))
	for _, cell := range row {
		sanitized = append(sanitized, tableCellReplacer.Replace(cell))
	}
	return sanitized
}

type csvRenderer struct{}

func (csvRenderer) Render(writer io.Writer, document Document) error {
	csvWriter := csv.NewWriter(writer)
	for sectionIndex, section := range document.Sections {
		if sectionIndex > 0 {
			if writeError := csvWriter.Write([]string{}); writeError != nil {
				return writeError
			}
		}
		if len(document.Sections) > 1 && len(section.Title) > 0 {
			if writeError := csvWriter.Write([]string{section.Title}); writeError != nil {
				return writeError
			}
		}
		if len(section.Headers) > 0 {
			if writeError := csvWriter.Write(section.Headers); writeError != nil {
				return writeError
			}
		}
		if writeError := csvWriter.WriteAll(section.Rows); writeError != nil {
			return writeError
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

type jsonRenderer struct{}

func (jsonRenderer) Render(writer io.Writer, document Document) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", jsonIndentConstant)
	if document.Payload != nil {
		return encoder.Encode(document.Payload)
	}
	return encoder.Encode(sectionsPayload(document.Sections))
}

func sectionsPayload(sections []Section) []map[string]any {
	payload := make([]map[string]any, 0, len(sections))
	for _, section := range sections {
		records := make([]map[string]string, 0, len(section.Rows))
		for _, row := range section.Rows {
			record := make(map[string]string, len(section.Headers))
			for columnIndex, header := range section.Headers {
				if columnIndex < len(row) {
					record[header] = row[columnIndex]
				}
			}
			records = append(records, record)
		}
		payload = append(payload, map[string]any{"title": section.Title, "rows": records})
	}
	return payload
}

type xlsxRenderer struct{}

func (xlsxRenderer) Render(writer io.Writer, document Document) error {
	workbook := excelize.NewFile()
	defer workbook.Close()

	headerStyle, styleError := workbook.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if styleError != nil {
		return styleError
	}

	usedNames := map[string]struct{}{}
	for sectionIndex, section := range document.Sections {
		sheetName := uniqueSheetName(section.Title, usedNames)
		if sectionIndex == 0 {
			if renameError := workbook.SetSheetName(defaultSheetNameConstant, sheetName); renameError != nil {
				return fmt.Errorf(sheetRenameErrorTemplateConstant, sheetName, renameError)
			}
		} else if _, createError := workbook.NewSheet(sheetName); createError != nil {
			return fmt.Errorf(sheetCreateErrorTemplateConstant, sheetName, createError)
		}

		rowNumber := 1
		if len(section.Headers) > 0 {
			if writeError := writeSheetRow(workbook, sheetName, rowNumber, section.Headers); writeError != nil {
				return writeError
			}
			firstCell, _ := excelize.CoordinatesToCellName(1, rowNumber)
			lastCell, _ := excelize.CoordinatesToCellName(len(section.Headers), rowNumber)
			if styleError := workbook.SetCellStyle(sheetName, firstCell, lastCell, headerStyle); styleError != nil {
				return styleError
			}
			rowNumber++
		}
		for _, row := range section.Rows {
			if writeError := writeSheetRow(workbook, sheetName, rowNumber, row); writeError != nil {
				return writeError
			}
			rowNumber++
		}
	}

	if writeError := workbook.Write(writer); writeError != nil {
		return fmt.Errorf(workbookWriteErrorTemplateConstant, writeError)
	}
	return nil
}

func writeSheetRow(workbook *excelize.File, sheetName string, rowNumber int, values []string) error {
	cellName, coordinateError := excelize.CoordinatesToCellName(1, rowNumber)
	if coordinateError != nil {
		return fmt.Errorf(sheetWriteErrorTemplateConstant, sheetName, rowNumber, coordinateError)
	}
	cells := make([]any, 0, len(values))
	for _, value := range values {
		cells = append(cells, value)
	}
	if writeError := workbook.SetSheetRow(sheetName, cellName, &cells); writeError != nil {
		return fmt.Errorf(sheetWriteErrorTemplateConstant, sheetName, rowNumber, writeError)
	}
	return nil
}

func uniqueSheetName(title string, usedNames map[string]struct{}) string {
	baseName := strings.Map(func(character rune) rune {
		if strings.ContainsRune(forbiddenSheetCharactersConstant, character) {
			return '-'
		}
		return character
	}, strings.TrimSpace(title))
	if len(baseName) == 0 {
		baseName = sheetNameFallbackConstant
	}
	baseName = truncateRunes(baseName, maximumSheetNameLengthConstant)

	candidate := baseName
	for suffix := 2; ; suffix++ {
		if _, taken := usedNames[strings.ToLower(candidate)]; !taken {
			break
		}
		suffixed := fmt.Sprintf(sheetNameSuffixTemplateConstant, suffix)
		candidate = truncateRunes(baseName, maximumSheetNameLengthConstant-len(suffixed)) + suffixed
	}
	usedNames[strings.ToLower(candidate)] = struct{}{}
	return candidate
}

func truncateRunes(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
