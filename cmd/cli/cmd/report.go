package cmd

import (
	"fmt"
	"io"

	"traylib/internal/errors"
)

// ReportError prints a fatal error. Guidance for an empty library is shown
// as is; other errors are prefixed with their kind.
func ReportError(w io.Writer, err error) {
	switch errors.TypeOf(err) {
	case errors.TypeEnumerationEmpty:
		fmt.Fprintln(w, errors.MessageOf(err))
	case errors.TypeConfig:
		fmt.Fprintf(w, "Configuration error: %s\n", errors.MessageOf(err))
	case errors.TypeExternalTool:
		fmt.Fprintf(w, "External tool failed: %v\n", err)
	default:
		fmt.Fprintf(w, "Error: %v\n", err)
	}
}
