// Package ui - Terminal user interface
// Console output with progress, tables, count summaries and the
// confirmation prompt.
package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// Colors for terminal output
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Dim    = "\033[2m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Cyan   = "\033[36m"
)

// Writer is the UI output destination. Safe for concurrent use; each call
// is written in one piece.
type Writer struct {
	mu        sync.Mutex
	out       io.Writer
	noColor   bool
	verbosity int
}

// NewWriter creates a UI writer
func NewWriter(out io.Writer, noColor bool) *Writer {
	if out == nil {
		out = os.Stdout
	}
	return &Writer{
		out:       out,
		noColor:   noColor,
		verbosity: 1,
	}
}

// SetVerbosity sets output verbosity (0=quiet, 1=normal, 2=verbose)
func (w *Writer) SetVerbosity(level int) {
	w.verbosity = level
}

// Verbose reports whether debug output is shown
func (w *Writer) Verbose() bool {
	return w.verbosity >= 2
}

func (w *Writer) color(c, text string) string {
	if w.noColor {
		return text
	}
	return c + text + Reset
}

// Print writes formatted text
func (w *Writer) Print(format string, args ...interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, format, args...)
}

// Println writes a line with newline
func (w *Writer) Println(format string, args ...interface{}) {
	w.Print(format+"\n", args...)
}

// Raw writes text unformatted, adding a trailing newline if missing
func (w *Writer) Raw(text string) {
	if text == "" {
		return
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, _ = io.WriteString(w.out, text)
}

// SubHeader prints a subsection header
func (w *Writer) SubHeader(title string) {
	w.Println("%s", w.color(Bold, "▸ "+title))
}

// Success prints a success message
func (w *Writer) Success(format string, args ...interface{}) {
	w.Println("%s%s", w.color(Green, "✓ "), fmt.Sprintf(format, args...))
}

// Warning prints a warning
func (w *Writer) Warning(format string, args ...interface{}) {
	w.Println("%s%s", w.color(Yellow, "⚠ "), fmt.Sprintf(format, args...))
}

// Error prints an error
func (w *Writer) Error(format string, args ...interface{}) {
	w.Println("%s%s", w.color(Red, "✗ "), fmt.Sprintf(format, args...))
}

// Info prints an info message
func (w *Writer) Info(format string, args ...interface{}) {
	if w.verbosity < 1 {
		return
	}
	w.Println("%s%s", w.color(Blue, "ℹ "), fmt.Sprintf(format, args...))
}

// Debug prints a debug message
func (w *Writer) Debug(format string, args ...interface{}) {
	if w.verbosity < 2 {
		return
	}
	w.Println("%s", w.color(Dim, "  "+fmt.Sprintf(format, args...)))
}

// ProgressBar renders a progress bar
type ProgressBar struct {
	w         *Writer
	total     int
	current   int
	width     int
	label     string
	startTime time.Time
}

// NewProgressBar creates a progress bar
func (w *Writer) NewProgressBar(total int, label string) *ProgressBar {
	return &ProgressBar{
		w:         w,
		total:     total,
		width:     40,
		label:     label,
		startTime: time.Now(),
	}
}

// Update updates the progress bar
func (p *ProgressBar) Update(current int) {
	p.current = current
	p.render()
}

// Increment increments the progress bar
func (p *ProgressBar) Increment() {
	p.current++
	p.render()
}

func (p *ProgressBar) render() {
	if p.total == 0 {
		return
	}

	current := min(p.current, p.total)
	percent := float64(current) / float64(p.total)
	filled := int(percent * float64(p.width))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", p.width-filled)

	eta := ""
	if current > 0 {
		elapsed := time.Since(p.startTime)
		remaining := time.Duration(float64(elapsed) / float64(current) * float64(p.total-current))
		eta = fmt.Sprintf(" ETA: %s", formatDuration(remaining))
	}

	p.w.Print("\r%s [%s] %3.0f%% (%s/%s)%s",
		p.label, bar, percent*100, humanize.Comma(int64(current)), humanize.Comma(int64(p.total)), eta)
}

// Done completes the progress bar
func (p *ProgressBar) Done() {
	if p.total > 0 {
		p.w.Print("\n")
	}
}

// Table renders a table
type Table struct {
	w       *Writer
	headers []string
	rows    [][]string
	widths  []int
}

// NewTable creates a table
func (w *Writer) NewTable(headers ...string) *Table {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	return &Table{
		w:       w,
		headers: headers,
		widths:  widths,
	}
}

// AddRow adds a row to the table
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.headers))
	for i := range row {
		if i < len(cells) {
			row[i] = cells[i]
		}
		if len(row[i]) > t.widths[i] {
			t.widths[i] = len(row[i])
		}
	}
	t.rows = append(t.rows, row)
}

// Render prints the table
func (t *Table) Render() {
	format := ""
	for i, w := range t.widths {
		if i > 0 {
			format += " │ "
		}
		format += fmt.Sprintf("%%-%ds", w)
	}

	t.w.Println("%s", t.w.color(Bold, strings.TrimRight(fmt.Sprintf(format, toArgs(t.headers)...), " ")))

	sep := ""
	for i, w := range t.widths {
		if i > 0 {
			sep += "─┼─"
		}
		sep += strings.Repeat("─", w)
	}
	t.w.Println("%s", sep)

	for _, row := range t.rows {
		t.w.Println("%s", strings.TrimRight(fmt.Sprintf(format, toArgs(row)...), " "))
	}
}

func toArgs(cells []string) []interface{} {
	args := make([]interface{}, len(cells))
	for i, c := range cells {
		args[i] = c
	}
	return args
}

// CountSummary reports the ledger counters of a pass
type CountSummary struct {
	Declared   int64
	Existing   int64
	ToGenerate int64
	ToSlice    int64
}

// Lines renders the summary as aligned text lines
func (s CountSummary) Lines() []string {
	return []string{
		fmt.Sprintf("Number of objects declared:         %s", humanize.Comma(s.Declared)),
		fmt.Sprintf("Number of objects existing:         %s", humanize.Comma(s.Existing)),
		fmt.Sprintf("Number of objects to be gen/sliced: %s, %s", humanize.Comma(s.ToGenerate), humanize.Comma(s.ToSlice)),
	}
}

// Summary prints a count summary under a title
func (w *Writer) Summary(title string, s CountSummary) {
	if title != "" {
		w.Println("%s", w.color(Bold, title))
	}
	for _, line := range s.Lines() {
		w.Println("%s", line)
	}
	w.Println("")
}

// Prompt asks yes/no questions on an input stream. Anything but an answer
// starting with "n" counts as yes.
type Prompt struct {
	w  *Writer
	in *bufio.Reader
}

// NewPrompt creates a prompt reading from in
func (w *Writer) NewPrompt(in io.Reader) *Prompt {
	if in == nil {
		in = os.Stdin
	}
	return &Prompt{w: w, in: bufio.NewReader(in)}
}

// Confirm shows the question and reads one answer line.
func (p *Prompt) Confirm(question string) (bool, error) {
	p.w.Print("%s [Y/n]: ", question)
	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return !strings.HasPrefix(answer, "n"), nil
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "< 1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}
