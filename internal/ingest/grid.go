package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/fuelmetrics/fuelmetrics-api/internal/models"
	"github.com/fuelmetrics/fuelmetrics-api/internal/schema"
)

// ErrUnsupportedFormat is returned for inputs that are neither xlsx nor
// delimited text, such as legacy BIFF .xls workbooks.
var ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")

var (
	zipMagic = []byte{'P', 'K', 0x03, 0x04}
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0}
)

// sniffLines is how many non-empty lines are inspected to pick a delimiter.
const sniffLines = 40

// ReadGrid decodes raw spreadsheet bytes into a RawGrid. Workbooks are read
// from their first sheet with raw cell values; anything else is parsed as
// delimited text.
func ReadGrid(raw []byte) (models.RawGrid, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, schema.ErrEmptyGrid
	}

	switch {
	case bytes.HasPrefix(raw, zipMagic):
		return readWorkbook(raw)
	case bytes.HasPrefix(raw, oleMagic):
		return nil, fmt.Errorf("%w: legacy .xls workbook", ErrUnsupportedFormat)
	default:
		return readDelimited(raw)
	}
}

func readWorkbook(raw []byte) (models.RawGrid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, schema.ErrEmptyGrid
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, schema.ErrEmptyGrid
	}
	return models.RawGrid(rows), nil
}

func readDelimited(raw []byte) (models.RawGrid, error) {
	if bytes.IndexByte(raw, 0) >= 0 {
		return nil, fmt.Errorf("%w: binary content", ErrUnsupportedFormat)
	}

	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(raw) {
		decoded, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), raw)
		if err != nil {
			return nil, fmt.Errorf("decode latin-1: %w", err)
		}
		raw = decoded
	}

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.Comma = detectDelimiter(raw)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var grid models.RawGrid
	line := 1
	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("line %d: failed to read row: %w", line, err)
		}
		grid = append(grid, record)
		line++
	}

	if len(grid) == 0 {
		return nil, schema.ErrEmptyGrid
	}
	return grid, nil
}

// detectDelimiter picks the candidate that occurs most often in the first
// non-empty lines. Semicolons win ties because Brazilian exports use comma
// as the decimal separator.
func detectDelimiter(raw []byte) rune {
	candidates := []rune{';', '\t', ','}
	counts := make(map[rune]int, len(candidates))

	seen := 0
	for _, line := range strings.Split(string(raw), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		for _, c := range candidates {
			counts[c] += strings.Count(line, string(c))
		}
		seen++
		if seen >= sniffLines {
			break
		}
	}

	best := ';'
	for _, c := range candidates {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}
