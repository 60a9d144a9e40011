package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	pathutils "github.com/temirov/auditdesk/internal/utils/path"
)

const (
	binaryOutputMessageConstant           = "binary formats need an output file (use --output)"
	outputFileCreateErrorTemplateConstant = "unable to create output file %s: %w"
	outputFileCloseErrorTemplateConstant  = "unable to close output file %s: %w"
	outputFilePermissionsConstant         = 0o644
	outputFileFlagsConstant               = os.O_CREATE | os.O_TRUNC | os.O_WRONLY
)

// ErrBinaryOutputRequiresFile indicates a binary format was requested for terminal output.
var ErrBinaryOutputRequiresFile = errors.New(binaryOutputMessageConstant)

// Emit renders the document to the output path, or to the writer when the path is blank.
func Emit(writer io.Writer, outputPath string, format Format, document Document) error {
	renderer, rendererError := NewRenderer(format)
	if rendererError != nil {
		return rendererError
	}

	trimmedPath := strings.TrimSpace(outputPath)
	if len(trimmedPath) == 0 {
		if format.Binary() {
			return ErrBinaryOutputRequiresFile
		}
		return renderer.Render(writer, document)
	}

	resolvedPath := pathutils.NewHomeExpander().Expand(trimmedPath)
	outputFile, createError := os.OpenFile(resolvedPath, outputFileFlagsConstant, outputFilePermissionsConstant)
	if createError != nil {
		return fmt.Errorf(outputFileCreateErrorTemplateConstant, resolvedPath, createError)
	}

	renderError := renderer.Render(outputFile, document)
	closeError := outputFile.Close()
	if renderError != nil {
		return renderError
	}
	if closeError != nil {
		return fmt.Errorf(outputFileCloseErrorTemplateConstant, resolvedPath, closeError)
	}
	return nil
}
