package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"github.com/fuelmetrics/fuelmetrics-api/internal/schema"
)

// buildWorkbook writes rows into the default sheet of an in-memory xlsx.
func buildWorkbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &rows[i]))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestReadGrid_Workbook(t *testing.T) {
	raw := buildWorkbook(t, [][]interface{}{
		{"SÍNTESE SEMANAL DO COMPORTAMENTO DOS PREÇOS"},
		{"MUNICÍPIO", "ESTADO", "PRODUTO", "PREÇO MÉDIO REVENDA", "NÚMERO DE POSTOS PESQUISADOS"},
		{"CAMPINAS", "SAO PAULO", "GASOLINA COMUM", 5.49, 31},
	})

	grid, err := ReadGrid(raw)

	require.NoError(t, err)
	require.Len(t, grid, 3)
	assert.Equal(t, "MUNICÍPIO", grid[1][0])
	assert.Equal(t, "5.49", grid[2][3])
	assert.Equal(t, "31", grid[2][4])
}

func TestReadGrid_SemicolonCSV(t *testing.T) {
	raw := []byte("MUNICÍPIO;ESTADO;PRODUTO;PREÇO MÉDIO REVENDA\nCAMPINAS;SP;GASOLINA;5,49\n")

	grid, err := ReadGrid(raw)

	require.NoError(t, err)
	require.Len(t, grid, 2)
	assert.Equal(t, []string{"CAMPINAS", "SP", "GASOLINA", "5,49"}, grid[1])
}

func TestReadGrid_CommaCSVWithBOM(t *testing.T) {
	raw := []byte("\xef\xbb\xbfMUNICIPIO,ESTADO,PRODUTO,PRECO MEDIO REVENDA\nCAMPINAS,SP,GASOLINA,5.49\n")

	grid, err := ReadGrid(raw)

	require.NoError(t, err)
	assert.Equal(t, "MUNICIPIO", grid[0][0])
	assert.Equal(t, "5.49", grid[1][3])
}

func TestReadGrid_Latin1CSV(t *testing.T) {
	utf8Text := "MUNICÍPIO;ESTADO\nSÃO PAULO;SP\n"
	raw, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(utf8Text))
	require.NoError(t, err)

	grid, err := ReadGrid(raw)

	require.NoError(t, err)
	assert.Equal(t, "MUNICÍPIO", grid[0][0])
	assert.Equal(t, "SÃO PAULO", grid[1][0])
}

func TestReadGrid_Empty(t *testing.T) {
	_, err := ReadGrid([]byte("  \n "))
	assert.ErrorIs(t, err, schema.ErrEmptyGrid)
}

func TestReadGrid_LegacyXLS(t *testing.T) {
	_, err := ReadGrid([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDetectDelimiter(t *testing.T) {
	assert.Equal(t, ';', detectDelimiter([]byte("a;b;c\n1;2,5;3\n")))
	assert.Equal(t, ',', detectDelimiter([]byte("a,b,c\n1,2,3\n")))
	assert.Equal(t, '\t', detectDelimiter([]byte("a\tb\tc\n")))
	assert.Equal(t, ';', detectDelimiter([]byte("single column\n")), "default delimiter")
}
