package excel

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestNewDataReader_FileType(t *testing.T) {
	assert.Equal(t, "xlsx", NewDataReader("hours.XLSX").FileType())
	assert.Equal(t, "csv", NewDataReader("hours.csv").FileType())
	assert.Equal(t, "csv", NewDataReader("hours").FileType())
}

func TestRead_CSVDelimiters(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"comma", "id,horas_uso\n1,5.5\n2,6\n"},
		{"semicolon", "id;horas_uso\n1;5.5\n2;6\n"},
		{"tab", "id\thoras_uso\n1\t5.5\n2\t6\n"},
		{"byte order mark", "\ufeffid,horas_uso\n1,5.5\n2,6\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := NewDataReader("data.csv").Read(strings.NewReader(tt.content))
			require.NoError(t, err)
			assert.Equal(t, []string{"id", "horas_uso"}, table.Headers)
			assert.Equal(t, [][]string{{"1", "5.5"}, {"2", "6"}}, table.Rows)
		})
	}
}

func TestRead_CSVRaggedRows(t *testing.T) {
	table, err := NewDataReader("data.csv").Read(strings.NewReader("a,b\n1\n2,3,4\n"))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1"}, {"2", "3"}}, table.Rows)
	assert.Equal(t, 2, table.Len())
}

func TestRead_CSVHeaderOnly(t *testing.T) {
	_, err := NewDataReader("data.csv").Read(strings.NewReader("a,b\n"))
	assert.Error(t, err)
}

func TestRead_XLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"name", "tiempo"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"ana", 4.5}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"bob", 7}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	table, err := NewDataReader("data.xlsx").Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "tiempo"}, table.Headers)
	assert.Equal(t, [][]string{{"ana", "4.5"}, {"bob", "7"}}, table.Rows)
}

func TestRead_XLSXCorrupt(t *testing.T) {
	_, err := NewDataReader("data.xlsx").Read(strings.NewReader("not a zip"))
	assert.Error(t, err)
}
