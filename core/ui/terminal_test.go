package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountSummaryLines(t *testing.T) {
	s := CountSummary{Declared: 12345, Existing: 45, ToGenerate: 12300, ToSlice: 7}

	assert.Equal(t, []string{
		"Number of objects declared:         12,345",
		"Number of objects existing:         45",
		"Number of objects to be gen/sliced: 12,300, 7",
	}, s.Lines())
}

func TestWriterNoColor(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, true)

	w.Success("rendered %d", 3)
	w.Warning("careful")
	w.Debug("hidden")
	w.SetVerbosity(2)
	w.Debug("shown")

	out := buf.String()
	assert.Contains(t, out, "✓ rendered 3\n")
	assert.Contains(t, out, "⚠ careful\n")
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.NotContains(t, out, "\033[")
}

func TestWriterPercentInArguments(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, true)

	w.Error("%s", "100% broken")
	w.Raw("tool output")
	assert.Equal(t, "✗ 100% broken\ntool output\n", buf.String())
}

func TestTableRender(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, true)

	table := w.NewTable("Kind", "Model")
	table.AddRow("simple", "out/tray_4x2x1.3mf")
	table.AddRow("lid")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Kind   │ Model", lines[0])
	assert.Equal(t, "simple │ out/tray_4x2x1.3mf", lines[2])
	assert.Equal(t, "lid    │", lines[3])
}

func TestPromptConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"\n", true},
		{"y\n", true},
		{"Yes\n", true},
		{"n\n", false},
		{"No thanks\n", false},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var buf bytes.Buffer
			p := NewWriter(&buf, true).NewPrompt(strings.NewReader(tt.input))

			ok, err := p.Confirm("Are you ready to do this?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, "Are you ready to do this? [Y/n]: ", buf.String())
		})
	}
}

func TestProgressBar(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, true)

	bar := w.NewProgressBar(4, "Rendering")
	bar.Increment()
	bar.Update(4)
	bar.Done()

	out := buf.String()
	assert.Contains(t, out, "(1/4)")
	assert.Contains(t, out, "100% (4/4)")
	assert.True(t, strings.HasSuffix(out, "\n"))

	buf.Reset()
	empty := w.NewProgressBar(0, "Nothing")
	empty.Increment()
	empty.Done()
	assert.Empty(t, buf.String())
}
