package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name     string
		s        string
		maxLen   int
		expected string
	}{
		{name: "shorter than max", s: "cwltool", maxLen: 10, expected: "cwltool"},
		{name: "equal to max", s: "sbpack", maxLen: 6, expected: "sbpack"},
		{name: "longer than max", s: "ghcr.io/open-workflow-library", maxLen: 10, expected: "ghcr.io..."},
		{name: "maxLen less than 3", s: "hello", maxLen: 2, expected: "he"},
		{name: "maxLen exactly 3", s: "hello", maxLen: 3, expected: "..."},
		{name: "empty string", s: "", maxLen: 5, expected: ""},
		{name: "maxLen zero", s: "hello", maxLen: 0, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TruncateString(tt.s, tt.maxLen))
		})
	}
}

func TestPadString(t *testing.T) {
	tests := []struct {
		name     string
		s        string
		width    int
		expected string
	}{
		{name: "shorter than width", s: "cgc", width: 6, expected: "cgc   "},
		{name: "equal to width", s: "hello", width: 5, expected: "hello"},
		{name: "longer than width", s: "hello!", width: 5, expected: "hello!"},
		{name: "empty string", s: "", width: 3, expected: "   "},
		{name: "width zero", s: "hi", width: 0, expected: "hi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, PadString(tt.s, tt.width))
		})
	}
}

func TestRenderTable(t *testing.T) {
	columns := []Column{
		{Name: "Service", Key: "service"},
		{Name: "Identity", Key: "identity"},
	}
	rows := []map[string]string{
		{"service": "ghcr", "identity": "alice"},
		{"service": "sevenbridges", "identity": "cgc"},
	}

	var buf bytes.Buffer
	RenderTable(&buf, columns, rows)

	out := buf.String()
	assert.Contains(t, out, "Service")
	assert.Contains(t, out, "ghcr")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "cgc")
}

func TestRenderTableEmptyRows(t *testing.T) {
	var buf bytes.Buffer
	RenderTable(&buf, []Column{{Name: "A", Key: "a"}}, nil)
	assert.Empty(t, buf.String())
}

func TestRenderTableTruncatesWideColumns(t *testing.T) {
	columns := []Column{{Name: "Image", Key: "image", Width: 10}}
	rows := []map[string]string{
		{"image": "ghcr.io/open-workflow-library/tool:latest"},
	}

	var buf bytes.Buffer
	RenderTable(&buf, columns, rows)

	assert.Contains(t, buf.String(), "ghcr.io...")
	assert.NotContains(t, buf.String(), "tool:latest")
}
