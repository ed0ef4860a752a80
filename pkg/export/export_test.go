package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() Table {
	return Table{
		Title: "Lecture tracking",
		Columns: []Column{
			{Key: "batch", Label: "Batch", Weight: 2},
			{Key: "subject", Label: "Subject", Weight: 2},
			{Key: "rate"},
		},
		Rows: []map[string]string{
			{"batch": "Batch A", "subject": "Physics", "rate": "40"},
			{"batch": "Batch B", "subject": "Chemistry, Organic"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleTable())
	require.NoError(t, err)
	assert.Equal(t, "Batch,Subject,rate\nBatch A,Physics,40\nBatch B,\"Chemistry, Organic\",\n", string(out))
}

func TestCSVExporterRequiresColumns(t *testing.T) {
	_, err := NewCSVExporter().Render(Table{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleTable())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestColumnWidthsFillPage(t *testing.T) {
	widths := columnWidths(sampleTable().Columns)
	require.Len(t, widths, 3)
	assert.InDelta(t, pdfTableWidth*2/5, widths[0], 0.001)
	assert.InDelta(t, pdfTableWidth/5, widths[2], 0.001)
}
