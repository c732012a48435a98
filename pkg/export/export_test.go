package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Training Requests",
		Headers: []string{"ID", "Status"},
		Rows: []map[string]string{
			{"ID": "1", "Status": "under_review"},
			{"ID": "2", "Status": "completed", "Ignored": "x"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "ID,Status\n1,under_review\n2,completed\n", string(out))
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestXLSXExporterRender(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleDataset())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Training Requests")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ID", "Status"}, rows[0])
	assert.Equal(t, []string{"2", "completed"}, rows[2])
}

func TestRenderersRequireHeaders(t *testing.T) {
	for format, renderer := range NewRegistry() {
		_, err := renderer.Render(Dataset{})
		assert.Error(t, err, string(format))
	}
}

func TestRegistryUnknownFormat(t *testing.T) {
	_, err := NewRegistry().Get("docx")
	assert.Error(t, err)
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "ab", sheetName("a/b"))
	assert.Equal(t, xlsxSheet, sheetName("///"))
	assert.Len(t, []rune(sheetName("a very long title that exceeds the excel limit")), 31)
}
