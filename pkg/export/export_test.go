package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weekGrid() Grid {
	return Grid{
		Title:   "Grade 1A",
		Headers: []string{"Module", "Monday", "Tuesday"},
		Rows: [][]string{
			{"1", "MAT (1)", ""},
			{"2", "MAT (1)", "PHL (2)"},
		},
	}
}

func TestCSVExporterRendersGrid(t *testing.T) {
	content, err := NewCSVExporter().Render(weekGrid())
	require.NoError(t, err)
	assert.Equal(t, "Module,Monday,Tuesday\n1,MAT (1),\n2,MAT (1),PHL (2)\n", string(content))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Grid{})
	require.Error(t, err)
}

func TestPDFExporterRendersGrid(t *testing.T) {
	content, err := NewPDFExporter().Render(weekGrid())
	require.NoError(t, err)
	require.NotEmpty(t, content)
	assert.Equal(t, "%PDF", string(content[:4]))
}

func TestPDFExporterRequiresHeaders(t *testing.T) {
	_, err := NewPDFExporter().Render(Grid{})
	require.Error(t, err)
}
