package ingest

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/fuelmetrics/fuelmetrics-api/internal/schema"
)

// ErrEmptyValue marks a blank or placeholder ("-") cell.
var ErrEmptyValue = errors.New("empty value")

// NumericCoercionError reports a cell that could not be read as a number.
// It never aborts ingestion; the canonicalizer logs it and drops or blanks
// the value.
type NumericCoercionError struct {
	Row   int
	Field schema.Field
	Value string
	Err   error
}

func (e *NumericCoercionError) Error() string {
	return fmt.Sprintf("row %d: field '%s' must be a valid number, got '%s': %v", e.Row, e.Field, e.Value, e.Err)
}

func (e *NumericCoercionError) Unwrap() error {
	return e.Err
}

// ParseDecimal reads a number written with either '.' or ',' as the decimal
// separator. The policy is fixed rather than guessed per row:
//   - both present: the right-most one is the decimal separator and the
//     other is a thousands separator ("1.234,56", "1,234.56");
//   - a single ',' or a single '.': decimal separator;
//   - the same separator repeated: thousands grouping ("1.234.567").
//
// Currency symbols and spaces are ignored.
func ParseDecimal(s string) (float64, error) {
	v := strings.TrimSpace(s)
	v = strings.TrimPrefix(v, "R$")
	v = strings.NewReplacer(" ", "", "\u00a0", "").Replace(v)
	if v == "" || v == "-" || v == "--" {
		return 0, ErrEmptyValue
	}

	dots := strings.Count(v, ".")
	commas := strings.Count(v, ",")

	switch {
	case dots > 0 && commas > 0:
		if strings.LastIndex(v, ",") > strings.LastIndex(v, ".") {
			v = strings.ReplaceAll(v, ".", "")
			v = strings.Replace(v, ",", ".", 1)
		} else {
			v = strings.ReplaceAll(v, ",", "")
		}
	case commas == 1:
		v = strings.Replace(v, ",", ".", 1)
	case commas > 1:
		v = strings.ReplaceAll(v, ",", "")
	case dots > 1:
		v = strings.ReplaceAll(v, ".", "")
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("parse %q: not a finite number", s)
	}
	return f, nil
}

// dateLayouts are tried in order for textual period cells.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
	"02/01/06",
	// Two-digit years with dashes are month-first; slashes stay day-first.
	"01-02-06",
	"2006-01",
	"01/2006",
}

// Excel serials outside this window are treated as plain numbers, not dates.
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465
)

// ParsePeriodDate reads a period cell: ISO and Brazilian day-first dates,
// year-month strings, or an Excel serial day number.
func ParsePeriodDate(s string) (time.Time, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return time.Time{}, ErrEmptyValue
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}

	if serial, err := strconv.ParseFloat(v, 64); err == nil && serial >= minExcelSerial && serial <= maxExcelSerial {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("excel serial %q: %w", s, err)
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}

	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
