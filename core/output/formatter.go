// Package output provides output formatting for plan reports.
// This package produces human and machine-readable listings of a library.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"traylib/core/determinism"
	"traylib/core/engine"
	"traylib/core/ledger"
	"traylib/core/target"
	"traylib/core/ui"
	"traylib/internal/errors"
)

// Format represents output format type
type Format string

const (
	// FormatCLI is a human-readable CLI table
	FormatCLI Format = "table"

	// FormatJSON is machine-readable JSON
	FormatJSON Format = "json"

	// FormatMarkdown is a markdown catalog of the library
	FormatMarkdown Format = "markdown"
)

// Formatter produces output in a specific format
type Formatter interface {
	// Format returns the format type
	Format() Format

	// Render produces output for the given report
	Render(w io.Writer, report *Report) error
}

// Report is the plan of one run
type Report struct {
	// Entries are the targets in enumeration order
	Entries []Entry `json:"targets"`

	// Counts are the count pass counters
	Counts ledger.Counts `json:"counts"`

	// Warnings are non-fatal resolution problems
	Warnings []string `json:"warnings,omitempty"`

	// Metadata contains execution context
	Metadata Metadata `json:"metadata"`
}

// Entry is one resolved target
type Entry struct {
	Kind       string   `json:"kind"`
	Descriptor string   `json:"descriptor"`
	State      string   `json:"state"`
	Render     bool     `json:"render"`
	Slice      bool     `json:"slice"`
	Folder     string   `json:"folder"`
	Model      string   `json:"model"`
	Preview    string   `json:"preview"`
	Gcode      string   `json:"gcode"`
	Command    []string `json:"command"`
}

// Metadata contains execution context
type Metadata struct {
	// RunID tags the log lines of the run
	RunID string `json:"run_id"`

	// Unit is the working unit name
	Unit string `json:"unit"`

	// Version is the tool version
	Version string `json:"version"`
}

// NewReport builds a report from the count pass entries.
func NewReport(entries []engine.PlanEntry, counts ledger.Counts, warnings []error, meta Metadata) *Report {
	r := &Report{Counts: counts, Metadata: meta, Entries: make([]Entry, 0, len(entries))}
	for _, w := range warnings {
		r.Warnings = append(r.Warnings, w.Error())
	}
	for _, e := range entries {
		t := e.Target
		r.Entries = append(r.Entries, Entry{
			Kind:       string(t.Descriptor.Kind),
			Descriptor: t.Descriptor.String(),
			State:      string(e.Decision.State),
			Render:     e.Decision.Render,
			Slice:      e.Decision.Slice,
			Folder:     t.FolderPath,
			Model:      t.ModelPath,
			Preview:    t.PreviewPath,
			Gcode:      t.GcodePath,
			Command:    t.Command,
		})
	}
	return r
}

// JSONFormatter renders indented JSON
type JSONFormatter struct{}

// Format returns FormatJSON
func (JSONFormatter) Format() Format { return FormatJSON }

// Render writes the report as JSON
func (JSONFormatter) Render(w io.Writer, report *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// TableFormatter renders a console table with the count summary
type TableFormatter struct {
	NoColor bool
	// Commands adds every render command below the table
	Commands bool
}

// Format returns FormatCLI
func (TableFormatter) Format() Format { return FormatCLI }

// Render writes the table
func (f TableFormatter) Render(w io.Writer, report *Report) error {
	out := ui.NewWriter(w, f.NoColor)
	for _, warn := range report.Warnings {
		out.Warning("%s", warn)
	}

	table := out.NewTable("Kind", "State", "Model")
	for _, e := range report.Entries {
		table.AddRow(e.Kind, e.State, e.Model)
	}
	table.Render()

	if f.Commands {
		out.Println("")
		for _, e := range report.Entries {
			out.Println("%s", target.Command(e.Command).String())
		}
	}
	out.Println("")
	out.Summary("", engine.CountSummary(report.Counts))
	return nil
}

// MarkdownFormatter renders a catalog grouped by folder
type MarkdownFormatter struct{}

// Format returns FormatMarkdown
func (MarkdownFormatter) Format() Format { return FormatMarkdown }

// Render writes the catalog
func (MarkdownFormatter) Render(w io.Writer, report *Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# Tray library (%s)\n", report.Metadata.Unit)

	byFolder := make(map[string][]Entry)
	for _, e := range report.Entries {
		byFolder[e.Folder] = append(byFolder[e.Folder], e)
	}
	for _, folder := range determinism.SortedKeys(byFolder) {
		fmt.Fprintf(&b, "\n## %s\n\n", folder)
		b.WriteString("| Kind | Descriptor | State |\n|------|------------|-------|\n")
		for _, e := range byFolder[folder] {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", e.Kind, e.Descriptor, e.State)
		}
	}

	for _, line := range engine.CountSummary(report.Counts).Lines() {
		fmt.Fprintf(&b, "\n    %s", line)
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// Registry manages formatter registration
type Registry struct {
	formatters map[Format]Formatter
}

// NewRegistry creates a registry holding the given formatters
func NewRegistry(formatters ...Formatter) *Registry {
	r := &Registry{formatters: make(map[Format]Formatter)}
	for _, f := range formatters {
		_ = r.Register(f)
	}
	return r
}

// Register adds a formatter to the registry
func (r *Registry) Register(f Formatter) error {
	if _, ok := r.formatters[f.Format()]; ok {
		return errors.Newf(errors.TypeInternal, "formatter %q registered twice", f.Format())
	}
	r.formatters[f.Format()] = f
	return nil
}

// Get returns the formatter for a format name
func (r *Registry) Get(format string) (Formatter, error) {
	f, ok := r.formatters[Format(strings.ToLower(format))]
	if !ok {
		return nil, errors.Configf("unknown format %q: use one of %s", format, strings.Join(r.Formats(), ", "))
	}
	return f, nil
}

// Formats returns the registered format names, sorted
func (r *Registry) Formats() []string {
	names := make([]string, 0, len(r.formatters))
	for _, f := range determinism.SortedKeys(r.formatters) {
		names = append(names, string(f))
	}
	return names
}
