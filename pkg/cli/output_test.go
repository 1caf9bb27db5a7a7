package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintTable_Basic(t *testing.T) {
	var buf bytes.Buffer
	PrintTable(&buf, []string{"name", "z"}, [][]string{
		{"SPT3G_A", "0.5"},
		{"SPT3G_LONGER", "1.2"},
	})
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")

	require.Len(t, lines, 3, "expected header + 2 data rows")
	assert.Equal(t, "NAME          Z", lines[0])
	assert.Equal(t, "SPT3G_A       0.5", lines[1])
	assert.Equal(t, "SPT3G_LONGER  1.2", lines[2])
}

func TestPrintTable_EmptyColumns(t *testing.T) {
	var buf bytes.Buffer
	PrintTable(&buf, []string{}, [][]string{{"a"}})
	assert.Empty(t, buf.String(), "empty columns should produce no output")
}

func TestPrintTable_EmptyRows(t *testing.T) {
	var buf bytes.Buffer
	PrintTable(&buf, []string{"id", "value"}, nil)
	assert.Equal(t, "ID  VALUE\n", buf.String())
}

func TestPrintTable_MultiByteCells(t *testing.T) {
	var buf bytes.Buffer
	PrintTable(&buf, []string{"n", "x"}, [][]string{{"✓", "1"}, {"ab", "2"}})
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, "✓   1", lines[1])
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintJSON(&buf, map[string]string{"hello": "world"}))

	var parsed map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))
	assert.Equal(t, "world", parsed["hello"])
	assert.Contains(t, buf.String(), "\n  ")

	buf.Reset()
	require.NoError(t, PrintJSON(&buf, nil))
	assert.Equal(t, "null\n", buf.String())
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"a longer note", 6, "a lon…"},
		{"line one\nline two", 0, "line one line two"},
		{"abc", 1, "…"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, truncate(tt.in, tt.n), "%q/%d", tt.in, tt.n)
	}
}

func TestTerminalWidth_NotATerminal(t *testing.T) {
	assert.Equal(t, 0, terminalWidth(&bytes.Buffer{}))
}
