package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyGrid is returned when the input has no rows at all.
var ErrEmptyGrid = errors.New("spreadsheet has no rows")

// SchemaNotFoundError means no scanned row met the anchor threshold.
type SchemaNotFoundError struct {
	RowsScanned int
	BestScore   int
	MinMatches  int
}

func (e *SchemaNotFoundError) Error() string {
	return fmt.Sprintf("no header row found in first %d rows (best score %d, need %d)",
		e.RowsScanned, e.BestScore, e.MinMatches)
}

// RequiredColumnMissingError means the header row was found but a mandatory
// field could not be mapped to any of its cells.
type RequiredColumnMissingError struct {
	Field  Field
	Header []string
}

func (e *RequiredColumnMissingError) Error() string {
	return fmt.Sprintf("required column %q not found in header [%s]",
		e.Field, strings.Join(e.Header, ", "))
}
